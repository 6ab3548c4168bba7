package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CZERTAINLY/contribart/internal/log"
	"github.com/CZERTAINLY/contribart/internal/model"
	"github.com/CZERTAINLY/contribart/internal/service"

	"github.com/spf13/cobra"
)

// newRunCmd returns the command running the task once. Flags set explicitly
// take precedence over the same fields of --payload.
func newRunCmd() *cobra.Command {
	var (
		rawPayload string
		fields     = []struct {
			flag, usage string
			set         func(p *model.Payload, v string)
		}{
			{"text", "text to render", func(p *model.Payload, v string) { p.Text = &v }},
			{"repo-path", "path of the art repository", func(p *model.Payload, v string) { p.RepoPath = &v }},
			{"remote-url", "remote to push to", func(p *model.Payload, v string) { p.RemoteURL = &v }},
			{"branch", "branch to push", func(p *model.Payload, v string) { p.Branch = &v }},
			{"start-date", "first rendered day (YYYY-MM-DD)", func(p *model.Payload, v string) { p.StartDate = &v }},
		}
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run regenerates the contribution art once and prints the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := model.ParsePayload([]byte(rawPayload))
			if err != nil {
				return err
			}
			for _, f := range fields {
				if cmd.Flags().Changed(f.flag) {
					v, _ := cmd.Flags().GetString(f.flag)
					f.set(&payload, v)
				}
			}

			ctx := log.ContextAttrs(cmd.Context(), slog.Group("contribart",
				slog.String("cmd", "run"),
				slog.Int("pid", os.Getpid()),
			))
			task, err := service.TaskFromConfig(config)
			if err != nil {
				return err
			}
			result, err := task.Run(ctx, payload)
			if err != nil {
				return err
			}
			return service.NewWriterSink(cmd.OutOrStdout()).Write(ctx, result)
		},
	}
	cmd.Flags().StringVar(&rawPayload, "payload", "", "task payload as a JSON object")
	for _, f := range fields {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	return cmd
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve runs the task on the configured schedule until interrupted",
	RunE:  doServe,
}

func doServe(cmd *cobra.Command, args []string) error {
	if !config.Schedule.Enabled {
		return errors.New("schedule is disabled in " + configPath)
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.ContextAttrs(ctx, slog.Group("contribart",
		slog.String("cmd", "serve"),
		slog.Int("pid", os.Getpid()),
	))

	task, err := service.TaskFromConfig(config)
	if err != nil {
		return err
	}
	sinks, err := service.Sinks(config.Service)
	if err != nil {
		return fmt.Errorf("initializing sinks: %w", err)
	}
	scheduler, err := service.NewScheduler(ctx, config.Schedule, task.Daily, sinks...)
	if err != nil {
		return err
	}
	return scheduler.Do(ctx)
}
