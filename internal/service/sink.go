package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/CZERTAINLY/contribart/internal/model"
)

// Sinks builds the sinks from the service configuration, a WriterSink
// on stdout when nothing is configured.
func Sinks(cfg model.Service) ([]model.Sink, error) {
	if cfg.Dir == "" && cfg.Webhook == "" {
		return []model.Sink{NewWriterSink(os.Stdout)}, nil
	}
	var sinks []model.Sink
	if cfg.Dir != "" {
		s, err := NewDirSink(cfg.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Webhook != "" {
		s, err := NewWebhookSink(cfg.Webhook)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// WriterSink writes every result as a single JSON line.
type WriterSink struct {
	mx *sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) WriterSink {
	return WriterSink{mx: &sync.Mutex{}, w: w}
}

func (s WriterSink) Write(_ context.Context, result model.TaskResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	_, err = s.w.Write(append(b, '\n'))
	return err
}

// DirSink stores every result in its own timestamped file.
type DirSink struct {
	root *os.Root
}

func NewDirSink(path string) (*DirSink, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating results dir: %w", err)
	}
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, err
	}
	return &DirSink{root: root}, nil
}

func (s *DirSink) Write(ctx context.Context, result model.TaskResult) error {
	if s.root == nil {
		return errors.New("root already closed")
	}

	path := "contribart-" + time.Now().UTC().Format("2006-01-02-15-04-05") + ".json"

	f, err := s.root.Create(path)
	if err != nil {
		return fmt.Errorf("creating task result: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		_ = f.Close()
		return fmt.Errorf("saving task result: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing task result: %w", err)
	}
	slog.InfoContext(ctx, "task result saved", "path", path)
	return nil
}

func (s *DirSink) Close() error {
	if s.root == nil {
		return errors.New("sink already closed")
	}
	err := s.root.Close()
	s.root = nil
	return err
}

// WebhookSink posts every result as JSON to an http(s) endpoint.
type WebhookSink struct {
	requestURL *url.URL
	client     *http.Client
}

func NewWebhookSink(serverURL string) (*WebhookSink, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	if (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return nil, errors.New("please define the webhook url with http(s) scheme and host, e.g. `https://some-url.com/hook`")
	}
	return &WebhookSink{
		requestURL: parsedURL,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *WebhookSink) Write(ctx context.Context, result model.TaskResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.requestURL.String(), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.DebugContext(ctx, "task result posted", slog.Int("status", resp.StatusCode))
		return nil
	}
	return decodeProblem(resp)
}

// decodeProblem turns a non 2xx response into an error, using the
// application/problem+json detail when present.
func decodeProblem(resp *http.Response) error {
	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if contentType == "application/problem+json" {
		var problemDetail struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&problemDetail); err != nil {
			return fmt.Errorf("decoding json response failed: %w", err)
		}
		return fmt.Errorf("status code: %d, detail: %s", resp.StatusCode, problemDetail.Detail)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(respBody))
}
