package authkit

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/wrenlabs/authkit/pkg/httpx"
	"github.com/wrenlabs/authkit/pkg/secrets"
	"github.com/wrenlabs/authkit/pkg/slogx"
)

// Client is the authentication SDK entry point. It owns the HTTP transport
// with its interceptor chain, the secret store, the observable auth state,
// and the refresh coordinator. A single Client is safe for concurrent use
// and is meant to live for the whole app process.
type Client struct {
	http     *httpx.Client
	store    secrets.Store
	notifier Notifier
	log      *slog.Logger
	gate     BiometricGate

	// loginLimiter throttles interactive login attempts client-side so a
	// stuck retry loop in UI code cannot hammer the backend.
	loginLimiter *rate.Limiter

	refreshMu  sync.Mutex
	refreshing *refreshCall

	sessionMu   sync.Mutex
	invalidated bool

	biometricBusy atomic.Bool
}

type options struct {
	store      secrets.Store
	notifier   Notifier
	log        *slog.Logger
	gate       BiometricGate
	platform   string
	httpOpts   []httpx.Option
	loginEvery time.Duration
	loginBurst int
}

// Option configures a Client.
type Option func(*options)

// WithSecretStore sets the credential persistence backend. Defaults to an
// in-memory store, which is only appropriate for tests.
func WithSecretStore(s secrets.Store) Option {
	return func(o *options) { o.store = s }
}

// WithNotifier sets the auth state sink. Defaults to a fresh AuthState.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithBiometricGate wires the platform biometric port. Without it the
// biometric operations report unavailable.
func WithBiometricGate(g BiometricGate) Option {
	return func(o *options) { o.gate = g }
}

// WithPlatform sets the X-Client-Platform header value (e.g. "ios",
// "android").
func WithPlatform(platform string) Option {
	return func(o *options) { o.platform = platform }
}

// WithHTTPOptions appends extra transport options (timeout, headers,
// additional interceptors).
func WithHTTPOptions(opts ...httpx.Option) Option {
	return func(o *options) { o.httpOpts = append(o.httpOpts, opts...) }
}

// WithLoginRate overrides the client-side login throttle. A zero interval
// disables throttling.
func WithLoginRate(every time.Duration, burst int) Option {
	return func(o *options) {
		o.loginEvery = every
		o.loginBurst = burst
	}
}

// New builds a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	o := options{
		store:      secrets.NewMemoryStore(),
		log:        slogx.Discard(),
		loginEvery: 12 * time.Second,
		loginBurst: 5,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.notifier == nil {
		o.notifier = NewAuthState()
	}

	c := &Client{
		store:    o.store,
		notifier: o.notifier,
		log:      o.log,
		gate:     o.gate,
	}

	if o.loginEvery > 0 {
		c.loginLimiter = rate.NewLimiter(rate.Every(o.loginEvery), o.loginBurst)
	}

	httpOpts := []httpx.Option{}
	if o.platform != "" {
		httpOpts = append(httpOpts, httpx.WithHeader("X-Client-Platform", o.platform))
	}
	httpOpts = append(httpOpts, o.httpOpts...)
	httpOpts = append(httpOpts, httpx.WithInterceptors(
		httpx.ContextLogger(c.log),
		httpx.RequestID(),
		httpx.Logging(),
		c.authInterceptor(),
	))

	c.http = httpx.NewClient(baseURL, httpOpts...)
	return c
}

// HTTP exposes the underlying transport for callers that need to hit
// non-auth backend endpoints through the same interceptor chain.
func (c *Client) HTTP() *httpx.Client {
	return c.http
}

// Notifier returns the auth state sink the client reports into.
func (c *Client) Notifier() Notifier {
	return c.notifier
}
