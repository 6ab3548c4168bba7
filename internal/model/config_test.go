package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/CZERTAINLY/contribart/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yml := `
version: 0
script:
  interpreter: /usr/bin/python3.12
  path: /opt/art/github-contribution-art.py
task:
  max_duration: 1m30s
  max_output: 1024
schedule:
  cron: "30 5 * * 1-5"
  timezone: Europe/Prague
service:
  verbose: true
  dir: /var/lib/contribart
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/python3.12", cfg.Script.Interpreter)
	require.Equal(t, "/opt/art/github-contribution-art.py", cfg.Script.Path)
	require.Equal(t, int64(1024), cfg.Task.MaxOutput)
	d, err := cfg.Task.Duration()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)
	require.True(t, cfg.Schedule.Enabled)
	require.Equal(t, "30 5 * * 1-5", cfg.Schedule.Cron)
	require.Equal(t, "Europe/Prague", cfg.Schedule.Timezone)
	require.True(t, cfg.Service.Verbose)
	require.Equal(t, "/var/lib/contribart", cfg.Service.Dir)
}

func TestDefaultConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	require.Equal(t, 0, cfg.Version)
	require.Equal(t, "python3", cfg.Script.Interpreter)
	require.Empty(t, cfg.Script.Path)
	require.Equal(t, int64(10<<20), cfg.Task.MaxOutput)
	d, err := cfg.Task.Duration()
	require.NoError(t, err)
	require.Equal(t, 300*time.Second, d)
	require.True(t, cfg.Schedule.Enabled)
	require.Equal(t, "0 6 * * *", cfg.Schedule.Cron)
	require.Equal(t, "UTC", cfg.Schedule.Timezone)
	require.False(t, cfg.Service.Verbose)
}

func TestLoadConfig_Fail(t *testing.T) {
	cases := []struct {
		scenario string
		given    string
	}{
		{"unknown field", "version: 0\nservice:\n  colour: blue\n"},
		{"wrong version", "version: 1\n"},
		{"bad duration", "version: 0\ntask:\n  max_duration: 5 minutes\n"},
		{"zero duration", "version: 0\ntask:\n  max_duration: 0s\n"},
		{"negative output", "version: 0\ntask:\n  max_output: -1\n"},
		{"empty interpreter", "version: 0\nscript:\n  interpreter: \"\"\n"},
		{"bad cron", "version: 0\nschedule:\n  cron: \"* * 32 * *\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			_, err := model.LoadConfig(strings.NewReader(tc.given))
			require.Error(t, err)
		})
	}

	t.Run("details", func(t *testing.T) {
		_, err := model.LoadConfig(strings.NewReader(cases[0].given))
		require.Error(t, err)
		details := model.CueErrDetails(err)
		require.NotEmpty(t, details)
		require.Contains(t, strings.Join(details, "\n"), "colour")
	})
}
