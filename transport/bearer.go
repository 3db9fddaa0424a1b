package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-auth-session/core"
)

type RequestSigner interface {
	Sign(ctx context.Context, req *http.Request) error
}

// StorageBearerSigner attaches the persisted access token, when present, as
// a bearer credential. It reads one key per request and never writes.
type StorageBearerSigner struct {
	Storage core.Storage
}

func (s StorageBearerSigner) Sign(ctx context.Context, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("transport: http request is required")
	}
	if s.Storage == nil {
		return nil
	}
	token, ok, err := s.Storage.Get(ctx, core.StorageKeyAccessToken)
	if err != nil {
		return &core.UnknownError{Message: "transport: read access token", Cause: err}
	}
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
