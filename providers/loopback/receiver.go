// Package loopback receives provider redirects on a local origin. The
// provider posts its result (form_post or query) to the callback path and
// Await hands the first delivery to the waiting sign-in.
package loopback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

const (
	defaultCallbackPath = "/"
	completedPage       = `<!doctype html><html><body><p>Sign in complete. You can close this window.</p></body></html>`
)

var (
	ErrNotStarted     = errors.New("loopback: receiver is not started")
	ErrAlreadyStarted = errors.New("loopback: receiver already started")
)

// PageRenderer writes the page served on GET of the callback path.
type PageRenderer func(w io.Writer) error

type Receiver struct {
	mu           sync.Mutex
	echo         *echo.Echo
	callbackPath string
	page         PageRenderer
	deliveries   chan url.Values
	baseURL      string
	started      bool
}

type Option func(*Receiver)

func WithCallbackPath(path string) Option {
	return func(r *Receiver) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		r.callbackPath = path
	}
}

func WithPage(page PageRenderer) Option {
	return func(r *Receiver) {
		r.page = page
	}
}

func New(opts ...Option) *Receiver {
	r := &Receiver{
		callbackPath: defaultCallbackPath,
		deliveries:   make(chan url.Values, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET(r.callbackPath, r.handlePage)
	e.POST(r.callbackPath, r.handleCallback)
	r.echo = e
	return r
}

// ListenAddress derives host:port from an origin such as
// http://127.0.0.1:8085.
func ListenAddress(origin string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("loopback: invalid origin %q", origin)
	}
	if parsed.Port() != "" {
		return parsed.Host, nil
	}
	if parsed.Scheme == "https" {
		return net.JoinHostPort(parsed.Hostname(), "443"), nil
	}
	return net.JoinHostPort(parsed.Hostname(), "80"), nil
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and returns the
// callback URL.
func (r *Receiver) Start(addr string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return "", ErrAlreadyStarted
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("loopback: listen %s: %w", addr, err)
	}
	r.echo.Listener = listener
	r.baseURL = "http://" + listener.Addr().String()
	r.started = true
	go func() {
		if serveErr := r.echo.Start(""); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			r.echo.Logger.Error(serveErr)
		}
	}()
	return r.callbackURLLocked(), nil
}

func (r *Receiver) CallbackURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callbackURLLocked()
}

func (r *Receiver) callbackURLLocked() string {
	if r.baseURL == "" {
		return ""
	}
	if r.callbackPath == "/" {
		return r.baseURL + "/"
	}
	return r.baseURL + r.callbackPath
}

// SetPage replaces the page renderer. Adapters set it once their client id
// is known.
func (r *Receiver) SetPage(page PageRenderer) {
	r.mu.Lock()
	r.page = page
	r.mu.Unlock()
}

// Await blocks until a callback arrives or ctx ends.
func (r *Receiver) Await(ctx context.Context) (url.Values, error) {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return nil, ErrNotStarted
	}
	select {
	case values := <-r.deliveries:
		return values, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Discard drops a callback left over from an earlier flow and reports
// whether one was pending. Call it before opening a new sign-in.
func (r *Receiver) Discard() bool {
	select {
	case <-r.deliveries:
		return true
	default:
		return false
	}
}

func (r *Receiver) Close(ctx context.Context) error {
	r.mu.Lock()
	started := r.started
	r.started = false
	listener := r.echo.Listener
	r.mu.Unlock()
	if !started {
		return nil
	}
	err := r.echo.Shutdown(ctx)
	if listener != nil {
		_ = listener.Close()
	}
	return err
}

// ServeHTTP exposes the routes without a listener.
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.echo.ServeHTTP(w, req)
}

func (r *Receiver) handlePage(c echo.Context) error {
	if values := c.QueryParams(); len(values) > 0 {
		return r.deliver(c, values)
	}
	r.mu.Lock()
	page := r.page
	r.mu.Unlock()
	if page == nil {
		return c.NoContent(http.StatusNotFound)
	}
	var buf bytes.Buffer
	if err := page(&buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "render sign in page").SetInternal(err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (r *Receiver) handleCallback(c echo.Context) error {
	if err := c.Request().ParseForm(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid callback form").SetInternal(err)
	}
	values := url.Values{}
	for key, items := range c.Request().Form {
		values[key] = append([]string(nil), items...)
	}
	return r.deliver(c, values)
}

func (r *Receiver) deliver(c echo.Context, values url.Values) error {
	select {
	case r.deliveries <- values:
		return c.HTML(http.StatusOK, completedPage)
	default:
		return echo.NewHTTPError(http.StatusConflict, "a sign in result is already pending")
	}
}
