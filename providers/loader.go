package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultLoadTimeout       = 15 * time.Second
	maxScriptBytes     int64 = 4 << 20
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ScriptLoader fetches a provider SDK before the adapter configures it.
type ScriptLoader interface {
	Load(ctx context.Context, src string) error
}

type ScriptLoaderFunc func(ctx context.Context, src string) error

func (fn ScriptLoaderFunc) Load(ctx context.Context, src string) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, src)
}

// HTTPScriptLoader confirms the SDK is reachable by downloading it.
type HTTPScriptLoader struct {
	Client  HTTPDoer
	Timeout time.Duration
}

func (l HTTPScriptLoader) Load(ctx context.Context, src string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return fmt.Errorf("providers: script source is required")
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("providers: build script request: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("providers: fetch %s: %w", src, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("providers: fetch %s: unexpected status %d", src, res.StatusCode)
	}
	if _, err := io.Copy(io.Discard, io.LimitReader(res.Body, maxScriptBytes)); err != nil {
		return fmt.Errorf("providers: read %s: %w", src, err)
	}
	return nil
}
