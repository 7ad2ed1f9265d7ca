// Package router owns the device connection. It decodes inbound frames and
// dispatches them by type, and it encodes outbound commands.
//
// Only the Router dials. Handlers are registered on the Router rather than on
// a connection, so a reset keeps them bound to the replacement link.
//
// Frames read from the socket are forwarded on [Router.Inbound] and handled by
// whoever drains that channel, normally a single event loop calling
// [Router.Dispatch]. Handlers therefore never run on a pump goroutine.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/desertthunder/godctl/internal/models"
	"github.com/desertthunder/godctl/internal/shared"
)

// HandlerFunc processes the payload of one inbound frame.
type HandlerFunc func(payload string) error

// DialFunc opens a websocket connection.
type DialFunc func(ctx context.Context, url string) (*websocket.Conn, error)

// Option configures a [Router].
type Option func(*Router)

// WithDialTimeout bounds the websocket handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(r *Router) { r.dialTimeout = d }
}

// WithResetLimit allows one reset every interval with the given burst.
func WithResetLimit(interval time.Duration, burst int) Option {
	return func(r *Router) { r.limiter = rate.NewLimiter(rate.Every(interval), burst) }
}

// WithInboundBuffer sizes the inbound frame channel.
func WithInboundBuffer(n int) Option {
	return func(r *Router) { r.inbound = make(chan []byte, n) }
}

// Router routes frames between the device socket and registered handlers.
type Router struct {
	logger      *log.Logger
	dial        DialFunc
	dialTimeout time.Duration
	limiter     *rate.Limiter
	handlers    map[string]HandlerFunc
	inbound     chan []byte

	mu   sync.Mutex
	url  string
	link *link
}

// New creates a disconnected router for the socket at url.
func New(url string, logger *log.Logger, opts ...Option) *Router {
	r := &Router{
		logger:      logger,
		url:         url,
		dialTimeout: 5 * time.Second,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 3),
		handlers:    make(map[string]HandlerFunc),
		inbound:     make(chan []byte, 256),
	}
	r.dial = r.dialWebSocket
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers fn for frames of type typ, replacing any previous handler.
func (r *Router) Handle(typ string, fn HandlerFunc) {
	r.handlers[typ] = fn
}

// Inbound delivers raw frames read from the socket.
func (r *Router) Inbound() <-chan []byte {
	return r.inbound
}

// URL returns the socket address used by the next dial.
func (r *Router) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.url
}

// SetURL changes the socket address. It takes effect on the next Connect or Reset.
func (r *Router) SetURL(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.url = url
}

// Dispatch decodes raw and runs the matching handler on the caller's goroutine.
//
// Undecodable frames, unknown types and handler failures are logged and returned; none are fatal.
func (r *Router) Dispatch(raw []byte) error {
	env, err := decode(raw)
	if err != nil {
		r.logger.Warn("dropping undecodable frame", "error", err, "frame", truncate(raw))
		return err
	}

	fn, ok := r.handlers[env.Type]
	if !ok {
		r.logger.Warn("ignoring unknown message type", "type", env.Type)
		return fmt.Errorf("%w: %q", shared.ErrUnknownMessage, env.Type)
	}

	if err := fn(env.Payload); err != nil {
		r.logger.Warn("dropping message", "type", env.Type, "error", err)
		return err
	}
	return nil
}

// rawState is the subset of a bare device state push used to recognize it.
type rawState struct {
	Type      *string `json:"type"`
	IsPlaying *bool   `json:"is_playing"`
	Duration  *int64  `json:"duration"`
}

// decode reads an envelope. A bare state object without a type is wrapped as a state frame.
func decode(raw []byte) (models.Envelope, error) {
	var probe rawState
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.Envelope{}, fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
	}

	if probe.Type == nil {
		if probe.IsPlaying != nil || probe.Duration != nil {
			return models.Envelope{Type: models.TypeState, Payload: string(raw)}, nil
		}
		return models.Envelope{}, fmt.Errorf("%w: frame has no type", shared.ErrMalformedPayload)
	}

	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Envelope{}, fmt.Errorf("%w: %v", shared.ErrMalformedPayload, err)
	}
	return env, nil
}

// Emit encodes cmd and queues it on the live link.
func (r *Router) Emit(cmd models.Command) error {
	data, err := json.Marshal(cmd.Envelope())
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", cmd.Type, err)
	}

	r.mu.Lock()
	l := r.link
	r.mu.Unlock()

	if l == nil {
		return shared.ErrNotConnected
	}
	if !l.enqueue(data) {
		r.logger.Warn("send queue full, dropping command", "command", cmd.String())
		return fmt.Errorf("%w: send queue full", shared.ErrTransport)
	}
	r.logger.Debug("queued command", "command", cmd.String())
	return nil
}

// Connected reports whether a link is live.
func (r *Router) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.link != nil
}

// Connect dials the device unless a link is already live.
func (r *Router) Connect(ctx context.Context) error {
	if r.Connected() {
		return nil
	}
	return r.connect(ctx, r.URL())
}

// Reset closes the current link, if any, and dials again. Resets are rate limited.
func (r *Router) Reset(ctx context.Context) error {
	if !r.limiter.Allow() {
		return fmt.Errorf("%w: reset rate limited", shared.ErrTransport)
	}

	r.mu.Lock()
	old := r.link
	r.link = nil
	url := r.url
	r.mu.Unlock()

	if old != nil {
		old.close()
		r.logger.Info("closed connection for reset")
	}
	return r.connect(ctx, url)
}

// Close shuts down the live link.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.link != nil {
		r.link.close()
		r.link = nil
	}
	return nil
}

// Shutdown flushes queued commands and closes the link with a close frame. When ctx ends first the link is
// closed without waiting.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	l := r.link
	r.link = nil
	r.mu.Unlock()

	if l == nil {
		return nil
	}
	l.shutdown()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.close()
		return ctx.Err()
	}
}

// connect dials url without holding the lock, then installs the new link. A link
// installed by a concurrent dial is closed and replaced.
func (r *Router) connect(ctx context.Context, url string) error {
	conn, err := r.dial(ctx, url)
	if err != nil {
		r.logger.Warn("failed to connect", "url", url, "error", err)
		return fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}

	l := newLink(conn, r.logger)
	r.mu.Lock()
	raced := r.link
	r.link = l
	r.mu.Unlock()

	if raced != nil {
		r.logger.Debug("replacing link installed while dialing", "url", url)
		raced.close()
	}

	go l.writePump()
	go l.readPump(r.inbound, func() { r.drop(l) })

	r.logger.Info("connected", "url", url)
	return nil
}

// drop forgets l if it is still the live link.
func (r *Router) drop(l *link) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.link == l {
		r.link = nil
		r.logger.Warn("connection lost", "url", r.url)
	}
	l.close()
}

func (r *Router) dialWebSocket(ctx context.Context, url string) (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, r.dialTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: r.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func truncate(b []byte) string {
	const limit = 120
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "…"
}
