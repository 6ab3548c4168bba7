package model

// Summary is the JSON object printed by the generator on its last stdout line.
// Its shape is owned by the generator and passed through untouched.
type Summary map[string]any

// TaskResult is the outcome of one successful task execution.
type TaskResult struct {
	Text                string  `json:"text"`
	RepoPath            string  `json:"repoPath"`
	RemoteURLConfigured bool    `json:"remoteUrlConfigured"`
	Branch              string  `json:"branch"`
	StartDate           string  `json:"startDate,omitempty"`
	Summary             Summary `json:"summary,omitempty"`
}

func NewTaskResult(p Params, summary Summary) TaskResult {
	return TaskResult{
		Text:                p.Text,
		RepoPath:            p.RepoPath,
		RemoteURLConfigured: p.HasRemote(),
		Branch:              p.Branch,
		StartDate:           p.StartDate,
		Summary:             summary,
	}
}
