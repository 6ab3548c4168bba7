package model

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Environment variables consulted when a payload field is absent.
const (
	EnvText      = "GITHUB_CONTRIBUTION_TEXT"
	EnvRepoPath  = "GITHUB_CONTRIBUTION_REPO_PATH"
	EnvRemoteURL = "GITHUB_CONTRIBUTION_REMOTE_URL"
	EnvBranch    = "GITHUB_CONTRIBUTION_BRANCH"
	EnvStartDate = "GITHUB_CONTRIBUTION_START_DATE"
)

const (
	DefaultText   = "TRIGGER"
	DefaultBranch = "main"
	// DefaultRepoDir is relative to the working directory.
	DefaultRepoDir = ".cache/github-contribution-art"
)

// Environ is a snapshot of the process environment.
type Environ map[string]string

// EnvironFrom builds an Environ from KEY=VALUE pairs as returned by os.Environ.
func EnvironFrom(kv []string) Environ {
	env := make(Environ, len(kv))
	for _, s := range kv {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

func (e Environ) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Defaults are the last resort values of Resolve.
type Defaults struct {
	Text      string
	RepoPath  string
	RemoteURL string
	Branch    string
	StartDate string
}

func DefaultsFor(cwd string) Defaults {
	return Defaults{
		Text:     DefaultText,
		RepoPath: filepath.Join(cwd, DefaultRepoDir),
		Branch:   DefaultBranch,
	}
}

// Params are the fully resolved generator arguments.
type Params struct {
	Text      string
	RepoPath  string
	RemoteURL string
	Branch    string
	StartDate string
}

func (p Params) HasRemote() bool {
	return p.RemoteURL != ""
}

func (p Params) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("text", p.Text),
		slog.String("repoPath", p.RepoPath),
		slog.Bool("hasRemote", p.HasRemote()),
		slog.String("branch", p.Branch),
	}
	if p.StartDate != "" {
		attrs = append(attrs, slog.String("startDate", p.StartDate))
	}
	return slog.GroupValue(attrs...)
}

// Resolve picks each parameter from the payload, then env, then defaults.
// Empty strings count as absent. Values are not validated.
func Resolve(payload Payload, env Environ, defaults Defaults) Params {
	return Params{
		Text:      pick(payload.Text, env, EnvText, defaults.Text),
		RepoPath:  pick(payload.RepoPath, env, EnvRepoPath, defaults.RepoPath),
		RemoteURL: pick(payload.RemoteURL, env, EnvRemoteURL, defaults.RemoteURL),
		Branch:    pick(payload.Branch, env, EnvBranch, defaults.Branch),
		StartDate: pick(payload.StartDate, env, EnvStartDate, defaults.StartDate),
	}
}

func pick(field *string, env Environ, key, dflt string) string {
	if field != nil && *field != "" {
		return *field
	}
	if v, ok := env.Lookup(key); ok && v != "" {
		return v
	}
	return dflt
}
