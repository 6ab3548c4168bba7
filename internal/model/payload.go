package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	cuejson "cuelang.org/go/encoding/json"
)

// Payload is the optional input of a task invocation. A nil field is absent.
type Payload struct {
	Text      *string `json:"text,omitempty"`
	RepoPath  *string `json:"repoPath,omitempty"`
	RemoteURL *string `json:"remoteUrl,omitempty"`
	Branch    *string `json:"branch,omitempty"`
	StartDate *string `json:"startDate,omitempty"`
}

// ParsePayload validates raw JSON against the #Payload schema. An empty
// input or JSON null is an empty payload, a null field is absent and unknown
// fields are ignored.
func ParsePayload(raw []byte) (Payload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Payload{}, nil
	}

	expr, err := cuejson.Extract("payload.json", raw)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validatePayload(expr); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	// raw is a schema valid JSON object, null fields decode to nil
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return p, nil
}

func validatePayload(expr ast.Expr) error {
	cueMx.Lock()
	defer cueMx.Unlock()

	v := cueCtx.BuildExpr(expr)
	if v.Err() != nil {
		return v.Err()
	}
	return payloadSchema.Unify(v).Validate(cue.All(), cue.Concrete(true))
}

// Empty reports whether no field is set.
func (p Payload) Empty() bool {
	return p == Payload{}
}

// LogValue never exposes the remote URL, it may embed credentials.
func (p Payload) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 5)
	add := func(key string, v *string) {
		if v != nil {
			attrs = append(attrs, slog.String(key, *v))
		}
	}
	add("text", p.Text)
	add("repoPath", p.RepoPath)
	add("branch", p.Branch)
	add("startDate", p.StartDate)
	attrs = append(attrs, slog.Bool("hasRemote", p.RemoteURL != nil && *p.RemoteURL != ""))
	return slog.GroupValue(attrs...)
}

// Ptr returns a pointer to s, handy for building payloads.
func Ptr(s string) *string {
	return &s
}
