package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/sadopc/apitester/internal/core/history"
	"github.com/sadopc/apitester/internal/core/request"
	"github.com/sadopc/apitester/internal/protocol"
)

var (
	// ErrBusy is returned by Send while another send is outstanding.
	ErrBusy = errors.New("a request is already in flight")
	// ErrInvalidRequest wraps record validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned when a history reference matches nothing.
	ErrNotFound = errors.New("history entry not found")
)

// App is the application state shared by every command: the dispatcher,
// the history, the last response and the loading flag.
type App struct {
	dispatcher protocol.Dispatcher
	history    *history.Store
	log        zerolog.Logger

	loading atomic.Bool

	mu      sync.Mutex
	current *protocol.Response
}

// New wires an App from its collaborators.
func New(d protocol.Dispatcher, h *history.Store, log zerolog.Logger) *App {
	return &App{
		dispatcher: d,
		history:    h,
		log:        log,
	}
}

// SendOption adjusts a single Send.
type SendOption func(*sendOptions)

type sendOptions struct {
	skipHistory bool
}

// WithoutHistory keeps the request out of history.
func WithoutHistory() SendOption {
	return func(o *sendOptions) { o.skipHistory = true }
}

// Send dispatches rec and, when a response was received, records rec in
// history. Only one Send may be outstanding at a time.
func (a *App) Send(ctx context.Context, rec request.Record, opts ...SendOption) (protocol.Result, error) {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := rec.Validate(); err != nil {
		return protocol.Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if !a.loading.CompareAndSwap(false, true) {
		return protocol.Result{}, ErrBusy
	}
	defer a.loading.Store(false)

	a.setCurrent(nil)

	a.log.Debug().Str("id", rec.ID).Str("method", rec.Method.String()).Str("url", rec.URL).Msg("dispatching")
	res := a.dispatcher.Dispatch(ctx, &protocol.Request{
		Method:  rec.Method.String(),
		URL:     rec.URL,
		Headers: rec.Headers,
		Body:    rec.Body,
	})

	resp := res.Response
	a.setCurrent(&resp)

	if !res.OK() {
		a.log.Debug().Err(res.Err).Int64("time_ms", resp.Time).Msg("transport failure")
		return res, nil
	}
	a.log.Debug().Int("status", resp.Status).Int64("time_ms", resp.Time).Int64("size", resp.Size).Msg("response received")
	if !o.skipHistory {
		a.history.Record(rec)
	}
	return res, nil
}

// Replay sends a fresh copy of the history entry ref refers to.
func (a *App) Replay(ctx context.Context, ref string) (request.Record, protocol.Result, error) {
	orig, err := a.Resolve(ref)
	if err != nil {
		return request.Record{}, protocol.Result{}, err
	}
	rec := orig.Renew()
	res, err := a.Send(ctx, rec)
	return rec, res, err
}

// Resolve finds a history entry by ID or by 1-based position, newest first.
func (a *App) Resolve(ref string) (request.Record, error) {
	if rec, ok := a.history.Get(ref); ok {
		return rec, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		entries := a.history.List()
		if n >= 1 && n <= len(entries) {
			return entries[n-1], nil
		}
	}
	return request.Record{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// History returns the history, newest first.
func (a *App) History() []request.Record {
	return a.history.List()
}

// SearchHistory returns entries whose URL contains query.
func (a *App) SearchHistory(query string) []request.Record {
	return a.history.Search(query)
}

// ClearHistory empties the history.
func (a *App) ClearHistory() {
	a.history.Clear()
}

// Current returns the most recent response, if any.
func (a *App) Current() (protocol.Response, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return protocol.Response{}, false
	}
	return *a.current, true
}

// Loading reports whether a Send is outstanding.
func (a *App) Loading() bool {
	return a.loading.Load()
}

func (a *App) setCurrent(r *protocol.Response) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = r
}
