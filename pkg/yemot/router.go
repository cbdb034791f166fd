package yemot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abaye123/yemot-router2/pkg/callstore"
)

// CallHandler is one linear call flow. It runs in its own goroutine,
// suspended between prompts, and ends by returning: nil for a completed
// flow, the error from a terminal operation or a failed Read to unwind,
// or any other error to reach the uncaught-error handler.
type CallHandler func(call *Call) error

// UncaughtErrorHandler receives handler errors that are not call-end
// signals. It usually plays an apology and exits, returning the resulting
// EndError, which the router treats as a normal termination.
type UncaughtErrorHandler func(err error, call *Call) error

// Options configures a Router.
type Options struct {
	// Timeout is the default wait for a call's next request before a
	// suspended read gives up. Zero waits forever. Shorthand for
	// Defaults.Read.Timeout.
	Timeout time.Duration
	// PrintLog turns on per-call lifecycle logging.
	PrintLog bool
	// Defaults overlays the library defaults for every call this router
	// creates.
	Defaults *Defaults
	// UncaughtErrorHandler, when set, receives any non-signal error a
	// call handler returns.
	UncaughtErrorHandler UncaughtErrorHandler
	// Store, when set, holds per-call scratch values; a call's entries
	// are cleared when the call is torn down.
	Store callstore.Store
}

// Router owns the registry of live calls and drives their handlers. It is
// a plain http.Handler backed by a chi mux, so it mounts anywhere a chi or
// net/http router composes handlers.
type Router struct {
	mux      *chi.Mux
	events   *Events
	uncaught UncaughtErrorHandler
	store    callstore.Store

	mu       sync.Mutex
	calls    map[string]*Call
	defaults Defaults
}

// NewRouter builds a call-flow router with the given options.
func NewRouter(opts Options) *Router {
	d := libraryDefaults()
	if opts.Defaults != nil {
		d = MergeDefaults(d, *opts.Defaults)
	}
	if opts.Timeout != 0 {
		d.Read.Timeout = opts.Timeout
	}
	if opts.PrintLog {
		d.PrintLog = true
	}

	return &Router{
		mux:      chi.NewMux(),
		events:   newEvents(),
		uncaught: opts.UncaughtErrorHandler,
		store:    opts.Store,
		calls:    make(map[string]*Call),
		defaults: d,
	}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// Get registers a call flow for GET requests on path.
func (rt *Router) Get(path string, h CallHandler) {
	rt.mux.Get(path, rt.callHandler(h))
}

// Post registers a call flow for POST requests on path (api_url_post=yes).
func (rt *Router) Post(path string, h CallHandler) {
	rt.mux.Post(path, rt.callHandler(h))
}

// All registers a call flow for any method on path.
func (rt *Router) All(path string, h CallHandler) {
	rt.mux.HandleFunc(path, rt.callHandler(h))
}

// Events exposes the call-lifecycle notification stream.
func (rt *Router) Events() *Events {
	return rt.events
}

// Defaults returns the effective defaults new calls are created with.
func (rt *Router) Defaults() Defaults {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.defaults
}

// SetDefaults overlays d on the router defaults. Live calls keep the
// snapshot they were created with.
func (rt *Router) SetDefaults(d Defaults) error {
	if d.Read.Timeout < 0 {
		return fmt.Errorf("yemot: read timeout must not be negative, got %s", d.Read.Timeout)
	}
	rt.mu.Lock()
	rt.defaults = MergeDefaults(rt.defaults, d)
	rt.mu.Unlock()
	return nil
}

// ActiveCalls lists the ids of calls currently in the registry.
func (rt *Router) ActiveCalls() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ids := make([]string, 0, len(rt.calls))
	for id := range rt.calls {
		ids = append(ids, id)
	}
	return ids
}

// DeleteCall removes a call from the registry and releases its resources:
// a handler still parked on the call is resumed with a hangup signal so
// its goroutine can unwind, any unanswered request is closed out, and the
// call's scratch values are cleared. Idempotent and safe for unknown ids.
func (rt *Router) DeleteCall(callID string) {
	rt.mu.Lock()
	c, ok := rt.calls[callID]
	delete(rt.calls, callID)
	rt.mu.Unlock()
	if !ok {
		return
	}

	c.fire(signalHangup)
	c.releaseExchange()

	if rt.store != nil {
		if err := rt.store.Clear(context.Background(), callID); err != nil {
			log.Printf("[yemot] failed to clear stored values for call %s: %v", callID, err)
		}
	}
}

// Required correlation fields on every yemot request. ApiExtension is
// present but may legitimately be empty at the system root.
var requiredFields = [...]string{"ApiCallId", "ApiPhone", "ApiDID", "ApiExtension"}

// callHandler adapts a call flow into the per-request dispatch: correlate
// by ApiCallId, create or resume the call, and hold the HTTP request open
// until the flow produced a response for it.
func (rt *Router) callHandler(h CallHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := requestFields(r)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": "the request is not valid yemot request"})
			return
		}
		for _, name := range requiredFields {
			if _, ok := fields[name]; !ok {
				respondJSON(w, http.StatusBadRequest, map[string]string{"message": "the request is not valid yemot request"})
				return
			}
		}
		callID := fields["ApiCallId"]
		if callID == "" {
			respondJSON(w, http.StatusBadRequest, map[string]string{"message": "the request is not valid yemot request"})
			return
		}
		hangup := fields["hangup"] == "yes"

		rt.mu.Lock()
		c, exists := rt.calls[callID]
		if !exists {
			if hangup {
				rt.mu.Unlock()
				// The platform reports a hangup for a call this router
				// never handled; acknowledge without creating anything.
				respondJSON(w, http.StatusOK, map[string]string{"message": "hangup"})
				rt.events.emit(Event{Kind: EventCallHangup, CallID: callID})
				return
			}
			c = newCall(callID, rt.defaults)
			rt.calls[callID] = c
		}
		rt.mu.Unlock()

		ex := c.beginRequest(w, fields)

		switch {
		case !exists:
			c.syncIdent()
			rt.logf("call %s is new", callID)
			rt.events.emit(Event{Kind: EventNewCall, CallID: callID, Call: c})
			go rt.runHandler(h, c)
		case hangup:
			rt.events.emit(Event{Kind: EventCallHangup, CallID: callID, Call: c})
			c.fire(signalHangup)
		default:
			rt.events.emit(Event{Kind: EventCallContinue, CallID: callID, Call: c})
			c.fire(signalContinue)
		}

		rt.awaitResponse(c, callID, ex)
	}
}

// awaitResponse holds the request open until the flow (or a diagnostic
// path) answers it. A request can install its exchange just as the call's
// teardown runs: teardown released the previous exchange, the handler
// goroutine is gone and the fired signal was dropped, so nothing is left
// to answer this one. DeleteCall removes the call from the registry before
// it releases exchanges, so a call found missing here is exactly that race
// and gets a hangup acknowledgment instead of stranding the transport
// until the platform's own I/O timeout.
func (rt *Router) awaitResponse(c *Call, callID string, ex *exchange) {
	rt.mu.Lock()
	_, live := rt.calls[callID]
	rt.mu.Unlock()
	if !live {
		c.respondJSON(map[string]string{"message": "hangup"})
	}
	<-ex.done
}

func (rt *Router) runHandler(h CallHandler, c *Call) {
	rt.finishCall(c, rt.invoke(h, c))
}

func (rt *Router) invoke(h CallHandler, c *Call) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("call handler panic: %v", v)
		}
	}()
	return h(c)
}

// finishCall settles a terminated handler: classify the outcome, route
// anything unclassified to the uncaught-error handler, and reclaim the
// call.
func (rt *Router) finishCall(c *Call, err error) {
	end, isEnd := AsEnd(err)
	switch {
	case err == nil:
		rt.logf("call %s completed", c.CallID)
	case isEnd && end.Kind == EndTimeout:
		log.Printf("[yemot] call %s timed out after %s", c.CallID, end.Timeout)
	case isEnd && end.Kind == EndExit:
		rt.logf("call %s exited via %s to %q", c.CallID, end.Op, end.Target)
	case isEnd:
		rt.logf("call %s hung up", c.CallID)
	default:
		rt.handleUncaught(c, err)
	}
	rt.DeleteCall(c.CallID)
}

// handleUncaught deals with handler errors that are not call-end signals.
// The platform is still waiting on the open request, so when no fallback
// flow answers it a generic diagnostic goes out rather than leaving the
// request to hit the platform's own I/O timeout.
func (rt *Router) handleUncaught(c *Call, err error) {
	if rt.uncaught == nil {
		log.Printf("[yemot] uncaught error in call %s handler: %v", c.CallID, err)
		c.respondJSON(map[string]string{"message": "internal error"})
		return
	}

	herr := rt.invokeUncaught(err, c)
	if herr == nil {
		return
	}
	if _, ok := AsEnd(herr); ok {
		// The fallback flow played its message and exited; a normal end.
		return
	}
	log.Printf("[yemot] uncaught-error handler for call %s failed: %v (original error: %v)", c.CallID, herr, err)
	c.respondJSON(map[string]string{"message": "internal error"})
}

func (rt *Router) invokeUncaught(cause error, c *Call) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("uncaught-error handler panic: %v", v)
		}
	}()
	return rt.uncaught(cause, c)
}

func (rt *Router) logf(format string, args ...any) {
	rt.mu.Lock()
	enabled := rt.defaults.PrintLog
	rt.mu.Unlock()
	if !enabled {
		return
	}
	log.Printf("[yemot] "+format, args...)
}

// requestFields flattens the request's query and form fields into one
// snapshot. A field submitted more than once keeps its last occurrence.
func requestFields(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(r.Form))
	for k, vals := range r.Form {
		if len(vals) == 0 {
			continue
		}
		fields[k] = vals[len(vals)-1]
	}
	return fields, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[yemot] failed to write json response: %v", err)
	}
}
