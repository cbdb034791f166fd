package yemot

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// A request can land for a call whose handler finished a moment earlier:
// the dispatch looks the call up before teardown removes it, but installs
// its exchange after teardown already released the previous one. The
// dropped signal has no receiver, so the registry re-check must answer
// the request instead of leaving it open forever.
func TestRequestRacingTeardownIsAnswered(t *testing.T) {
	rt := NewRouter(Options{})
	c := newCall("c1", libraryDefaults())
	rt.mu.Lock()
	rt.calls["c1"] = c
	rt.mu.Unlock()

	c.beginRequest(httptest.NewRecorder(), testFields())
	rt.DeleteCall("c1")

	// The racing request proceeds with its stale Call reference.
	rec := httptest.NewRecorder()
	ex := c.beginRequest(rec, testFields())
	c.fire(signalHangup) // nobody is parked; dropped

	done := make(chan struct{})
	go func() {
		rt.awaitResponse(c, "c1", ex)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request stranded after teardown race")
	}
	if !strings.Contains(rec.Body.String(), "hangup") {
		t.Fatalf("missing hangup acknowledgment: %q", rec.Body.String())
	}
}

func TestAwaitResponseLiveCallWaitsForFlow(t *testing.T) {
	rt := NewRouter(Options{})
	c := newCall("c1", libraryDefaults())
	rt.mu.Lock()
	rt.calls["c1"] = c
	rt.mu.Unlock()

	rec := httptest.NewRecorder()
	ex := c.beginRequest(rec, testFields())

	done := make(chan struct{})
	go func() {
		rt.awaitResponse(c, "c1", ex)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("returned before the flow answered")
	case <-time.After(50 * time.Millisecond):
	}

	if err := c.writeResponse("go_to_folder=hangup"); err != nil {
		t.Fatalf("writeResponse err: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("never returned after the flow answered")
	}
	if got := rec.Body.String(); got != "go_to_folder=hangup" {
		t.Fatalf("unexpected body: %q", got)
	}
}

// A second physical request arriving while the handler is mid-execution
// replaces the values snapshot but must leave the identification fields
// alone; the handler goroutine may be reading them concurrently.
func TestSpuriousRequestLeavesIdentFieldsAlone(t *testing.T) {
	c := newCall("c1", libraryDefaults())
	c.beginRequest(httptest.NewRecorder(), testFields())
	c.syncIdent()

	stop := make(chan struct{})
	reads := make(chan struct{})
	go func() {
		defer close(reads)
		var n int
		for {
			select {
			case <-stop:
				_ = n
				return
			default:
				n += len(c.Phone) + len(c.Extension)
			}
		}
	}()

	for i := 0; i < 100; i++ {
		fields := testFields()
		fields["ApiExtension"] = "9"
		c.beginRequest(httptest.NewRecorder(), fields)
		c.fire(signalContinue) // no suspension armed; dropped
	}

	close(stop)
	<-reads

	if c.Extension != "" {
		t.Fatalf("identification fields changed without a parked handler: %q", c.Extension)
	}
	if v, _ := c.Value("ApiExtension"); v != "9" {
		t.Fatalf("values snapshot not replaced: %q", v)
	}
}
