package yemot

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// exchange is one physical request/response pair. The response body may be
// written exactly once, by whichever side gets there first (the handler,
// the hangup path or the timeout timer); done is closed once the transport
// may complete the HTTP request.
type exchange struct {
	w    http.ResponseWriter
	done chan struct{}
	once sync.Once
	// sent guards the single response write; protected by Call.mu.
	sent bool
}

func (ex *exchange) finish() {
	ex.once.Do(func() { close(ex.done) })
}

// Call is one logical phone call, reconstructed across the discrete HTTP
// requests that share its ApiCallId. The application handler runs in its
// own goroutine and talks to the caller exclusively through the Call's
// operations; between a prompt and its answer the handler is parked on the
// call's suspension slot.
type Call struct {
	// Correlation fields. CallID is fixed for the call's lifetime; the
	// rest are refreshed from the request snapshot whenever the handler
	// resumes, and are safe to read from the handler goroutine only.
	// Observers on other goroutines read the snapshot through Value.
	CallID    string
	Phone     string
	DID       string
	RealDID   string
	Extension string

	defaults Defaults

	mu       sync.Mutex
	values   map[string]string
	exchange *exchange
	pending  *suspension
	queued   string
	valIndex int
}

func newCall(callID string, defaults Defaults) *Call {
	return &Call{
		CallID:   callID,
		defaults: defaults,
		values:   map[string]string{},
	}
}

// beginRequest installs the next physical request on the call: the field
// snapshot is replaced wholesale. A superseded exchange that never got a
// response is released empty, so an out-of-protocol concurrent request
// cannot strand its transport goroutine. The identification fields are
// deliberately not touched here: a spurious request for a call whose
// handler is mid-execution must not write fields that goroutine may be
// reading. They refresh in syncIdent, on paths where the handler cannot
// observe them.
func (c *Call) beginRequest(w http.ResponseWriter, fields map[string]string) *exchange {
	ex := &exchange{w: w, done: make(chan struct{})}

	c.mu.Lock()
	old := c.exchange
	c.exchange = ex
	c.values = fields
	c.mu.Unlock()

	if old != nil {
		old.finish()
	}
	return ex
}

// syncIdent refreshes the identification fields from the current request
// snapshot. Callers must guarantee the handler goroutine cannot be reading
// them: before its first execution, or while it is parked on a suspension.
func (c *Call) syncIdent() {
	c.mu.Lock()
	c.syncIdentLocked()
	c.mu.Unlock()
}

func (c *Call) syncIdentLocked() {
	c.DID = c.values["ApiDID"]
	c.Phone = c.values["ApiPhone"]
	c.RealDID = c.values["ApiRealDID"]
	c.Extension = c.values["ApiExtension"]
}

// Values returns a copy of the field snapshot from the current physical
// request. The snapshot is replaced, never merged, on each request.
func (c *Call) Values() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Value looks up one field from the current request snapshot.
func (c *Call) Value(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[name]
	return v, ok
}

// SetReadTimeout adjusts this call's resume timeout for subsequent reads.
// Zero disables the timeout.
func (c *Call) SetReadTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("yemot: read timeout must not be negative, got %s", d)
	}
	c.mu.Lock()
	c.defaults.Read.Timeout = d
	c.mu.Unlock()
	return nil
}

func (c *Call) readTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaults.Read.Timeout
}

// responseSent reports whether the current physical request already got
// its response body.
func (c *Call) responseSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchange == nil || c.exchange.sent
}

// writeResponse sends body as the response to the current physical
// request. Fails when that response was already written.
func (c *Call) writeResponse(body string) error {
	c.mu.Lock()
	ex := c.exchange
	if ex == nil || ex.sent {
		c.mu.Unlock()
		return fmt.Errorf("yemot: response already sent for call %s", c.CallID)
	}
	ex.sent = true
	c.mu.Unlock()

	ex.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(ex.w, body); err != nil {
		log.Printf("[yemot] failed to write response for call %s: %v", c.CallID, err)
	}
	ex.finish()
	return nil
}

// respondJSON writes a diagnostic JSON body, best effort: it is a no-op
// when the current request already has a response.
func (c *Call) respondJSON(payload any) {
	c.mu.Lock()
	ex := c.exchange
	if ex == nil || ex.sent {
		c.mu.Unlock()
		return
	}
	ex.sent = true
	c.mu.Unlock()

	ex.w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(ex.w).Encode(payload); err != nil {
		log.Printf("[yemot] failed to write diagnostic for call %s: %v", c.CallID, err)
	}
	ex.finish()
}

// releaseExchange closes out an unanswered request on teardown. The
// response slot is consumed so a late writer cannot touch the transport
// after the request completed.
func (c *Call) releaseExchange() {
	c.mu.Lock()
	ex := c.exchange
	if ex != nil {
		ex.sent = true
	}
	c.mu.Unlock()
	if ex != nil {
		ex.finish()
	}
}

func (c *Call) queueResponse(text string) {
	c.mu.Lock()
	c.queued += text
	c.mu.Unlock()
}

func (c *Call) takeQueued() string {
	c.mu.Lock()
	q := c.queued
	c.queued = ""
	c.mu.Unlock()
	return q
}

// sendWithQueued flushes any buffered prepend text in front of line.
func (c *Call) sendWithQueued(line string) error {
	return c.writeResponse(c.takeQueued() + line)
}

// waitNext parks the handler until the next physical request for this
// call, converting a hangup or an elapsed timer into the matching end
// signal. d bounds the wait; zero waits forever.
func (c *Call) waitNext(op string, d time.Duration) error {
	s := c.arm(d)
	c.logf("call %s suspended in %s", c.CallID, op)

	switch <-s.ch {
	case signalHangup:
		c.respondJSON(map[string]string{"message": "hangup"})
		return &EndError{Kind: EndHangup, CallID: c.CallID, Op: op}
	case signalTimeout:
		return &EndError{Kind: EndTimeout, CallID: c.CallID, Op: op, Timeout: d}
	}
	c.logf("call %s resumed in %s", c.CallID, op)
	return nil
}

// Read prompts the caller and waits for one answer. The prompt repeats on
// every request that arrives without the expected value, mirroring the
// platform's own retry-until-answered behavior; amount_attempts is a
// pass-through vendor option and does not bound this loop. Only the
// configured resume timeout makes this layer give up.
//
// The submitted value is returned raw. When AllowEmpty is on and the
// platform submits the configured empty sentinel, Read returns "".
//
// A caller hangup, an elapsed timeout, or malformed messages/options fail
// the read; the first two are EndError signals meant to unwind the
// handler.
func (c *Call) Read(messages []Msg, mode ReadMode, opts *ReadOptions) (string, error) {
	eff, err := effectiveRead(c.readDefaults(), opts)
	if err != nil {
		return "", err
	}

	valName := ""
	reEnter := false
	if opts != nil {
		valName = opts.ValName
		reEnter = opts.ReEnterIfExists
	}
	if valName == "" {
		c.mu.Lock()
		c.valIndex++
		valName = fmt.Sprintf("val_%d", c.valIndex)
		c.mu.Unlock()
	}

	combined, err := EncodeMessages(messages, eff.RemoveInvalidChars)
	if err != nil {
		return "", err
	}

	var line string
	switch mode {
	case ModeTap, "":
		line = tapReadLine(combined, valName, reEnter, eff.Tap)
	case ModeStt:
		line, err = sttReadLine(combined, valName, reEnter, eff.Stt)
		if err != nil {
			return "", err
		}
	case ModeRecord:
		line = recordReadLine(combined, valName, reEnter, eff.Record)
	default:
		return "", encodingErrorf("mode", "%q is not a valid read mode (valid modes: tap, stt, record)", mode)
	}

	emptyVal := "None"
	if eff.Tap.EmptyVal != nil {
		emptyVal = *eff.Tap.EmptyVal
	}

	for {
		// A previous operation may have already answered this request;
		// hold the prompt for the next one.
		if c.responseSent() {
			if err := c.waitNext("read", eff.Timeout); err != nil {
				return "", err
			}
		}
		if err := c.sendWithQueued(line); err != nil {
			return "", err
		}
		if err := c.waitNext("read", eff.Timeout); err != nil {
			return "", err
		}

		v, ok := c.Value(valName)
		if !ok {
			// Not answered on this request; same prompt, same value name.
			continue
		}
		if mode != ModeStt && mode != ModeRecord && eff.Tap.AllowEmpty && v == emptyVal {
			return "", nil
		}
		return v, nil
	}
}

func (c *Call) readDefaults() ReadDefaults {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaults.Read
}

// IDListMessage plays messages with no further input expected. By default
// the platform leaves the extension once playback finishes, so the
// returned EndError unwinds the handler. With PrependToNextAction the
// encoded playback is buffered in front of the next response line instead
// and the handler keeps running.
func (c *Call) IDListMessage(messages []Msg, opts *IDListMessageOptions) error {
	sanitize := c.defaults.IDListMessage.RemoveInvalidChars
	prepend := false
	if opts != nil {
		if opts.RemoveInvalidChars != nil {
			sanitize = *opts.RemoveInvalidChars
		}
		prepend = opts.PrependToNextAction
	}

	for i, m := range messages {
		if m.Kind != MsgGoToFolder {
			continue
		}
		if prepend {
			return encodingErrorf("prependToNextAction", "a go_to_folder message cannot be combined with prependToNextAction - nothing can run after navigation")
		}
		if i != len(messages)-1 {
			return encodingErrorf("messages", "a go_to_folder message must be the last in the list")
		}
	}

	combined, err := EncodeMessages(messages, sanitize)
	if err != nil {
		return err
	}
	line := idListMessageLine(combined)

	if prepend {
		c.queueResponse(line)
		return nil
	}

	if c.responseSent() {
		if err := c.waitNext("id_list_message", c.readTimeout()); err != nil {
			return err
		}
	}
	if err := c.sendWithQueued(line); err != nil {
		return err
	}
	return &EndError{Kind: EndHangup, CallID: c.CallID, Op: "id_list_message"}
}

// GoToFolder navigates the call to another extension and ends the current
// handler. Any buffered prepend text is flushed in front of the directive.
func (c *Call) GoToFolder(target string) error {
	if err := c.sendWithQueued(goToFolderLine(target)); err != nil {
		return err
	}
	return &EndError{Kind: EndExit, CallID: c.CallID, Op: "go_to_folder", Target: target}
}

// RoutingYemot transfers the call to another yemot system.
func (c *Call) RoutingYemot(number string) error {
	if err := c.sendWithQueued(routingYemotLine(number)); err != nil {
		return err
	}
	return &EndError{Kind: EndExit, CallID: c.CallID, Op: "routing_yemot", Target: number}
}

// RestartExt sends the caller back to the top of the current extension.
func (c *Call) RestartExt() error {
	return c.GoToFolder("/" + c.Extension)
}

// Hangup disconnects the caller.
func (c *Call) Hangup() error {
	return c.GoToFolder("hangup")
}

// Send writes raw verbatim as the response body. Escape hatch: no
// validation, no queued-text prefix.
func (c *Call) Send(raw string) error {
	return c.writeResponse(raw)
}

func (c *Call) logf(format string, args ...any) {
	if !c.defaults.PrintLog {
		return
	}
	log.Printf("[yemot] "+format, args...)
}
