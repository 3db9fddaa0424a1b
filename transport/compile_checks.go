package transport

import (
	"net/http"

	"github.com/goliatone/go-auth-session/core"
)

var (
	_ core.AuthAPI    = (*Client)(nil)
	_ core.AccountAPI = (*Client)(nil)
	_ RequestSigner   = StorageBearerSigner{}
	_ HTTPDoer        = (*http.Client)(nil)
)
