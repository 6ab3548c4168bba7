package service_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/contribart/internal/model"
	"github.com/CZERTAINLY/contribart/internal/service"

	"github.com/stretchr/testify/require"
)

var sinkResult = model.TaskResult{
	Text:                "TRIGGER",
	RepoPath:            "/srv/art",
	RemoteURLConfigured: true,
	Branch:              "main",
	Summary:             model.Summary{"addedCommits": float64(42)},
}

func TestWriterSink(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	sink := service.NewWriterSink(&buf)
	require.NoError(t, sink.Write(t.Context(), sinkResult))
	require.NoError(t, sink.Write(t.Context(), model.TaskResult{Text: "A", RepoPath: "/r", Branch: "main"}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"text":"TRIGGER","repoPath":"/srv/art","remoteUrlConfigured":true,"branch":"main","summary":{"addedCommits":42}}`, string(lines[0]))
	require.JSONEq(t, `{"text":"A","repoPath":"/r","remoteUrlConfigured":false,"branch":"main"}`, string(lines[1]))
}

func TestDirSink(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "results")
	sink, err := service.NewDirSink(dir)
	require.NoError(t, err)
	require.NoError(t, sink.Write(t.Context(), sinkResult))
	require.NoError(t, sink.Close())
	require.Error(t, sink.Close())
	require.Error(t, sink.Write(t.Context(), sinkResult))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	var got model.TaskResult
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, sinkResult, got)
}

func TestWebhookSink(t *testing.T) {
	t.Parallel()
	var received []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			contentType = r.Header.Get("Content-Type")
			received, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		case "/problem":
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"repository is archived"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}
	}))
	t.Cleanup(srv.Close)

	sink, err := service.NewWebhookSink(srv.URL + "/ok")
	require.NoError(t, err)
	require.NoError(t, sink.Write(t.Context(), sinkResult))
	require.Equal(t, "application/json", contentType)
	var got model.TaskResult
	require.NoError(t, json.Unmarshal(received, &got))
	require.Equal(t, sinkResult, got)

	sink, err = service.NewWebhookSink(srv.URL + "/problem")
	require.NoError(t, err)
	require.EqualError(t, sink.Write(t.Context(), sinkResult), "status code: 400, detail: repository is archived")

	sink, err = service.NewWebhookSink(srv.URL + "/fail")
	require.NoError(t, err)
	require.EqualError(t, sink.Write(t.Context(), sinkResult), "unexpected status: 500, body: boom")

	for _, bad := range []string{"ftp://example.com", "/relative", "https://"} {
		_, err := service.NewWebhookSink(bad)
		require.Error(t, err, bad)
	}
}

func TestSinks(t *testing.T) {
	t.Parallel()
	sinks, err := service.Sinks(model.Service{})
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	require.IsType(t, service.WriterSink{}, sinks[0])

	sinks, err = service.Sinks(model.Service{Dir: t.TempDir(), Webhook: "https://example.com/hook"})
	require.NoError(t, err)
	require.Len(t, sinks, 2)
	for _, s := range sinks {
		if c, ok := s.(model.SinkCloser); ok {
			require.NoError(t, c.Close())
		}
	}
}
