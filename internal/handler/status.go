package handler

import (
	"net/http"
	"time"

	"github.com/abaye123/yemot-router2/pkg/utils"
	"github.com/abaye123/yemot-router2/pkg/yemot"
)

// Status reports the router's live state and streams call events over SSE
// for clients that cannot hold a websocket.
type Status struct {
	router *yemot.Router
}

func NewStatus(router *yemot.Router) *Status {
	return &Status{router: router}
}

// handleStatus returns a snapshot of the calls currently in flight.
func (s *Status) handleStatus(w http.ResponseWriter, r *http.Request) {
	calls := s.router.ActiveCalls()
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"activeCalls": len(calls),
		"callIds":     calls,
	})
}

// handleSSE streams call events until the client disconnects. Events that
// arrive faster than the client reads are dropped, never buffered without
// bound.
func (s *Status) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	events, unsubscribe := s.router.Events().Subscribe(16)
	defer unsubscribe()

	utils.SendSSEEvent(w, flusher, "connected", map[string]int64{
		"timestamp": time.Now().Unix(),
	})

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload := map[string]interface{}{
				"callId":    ev.CallID,
				"timestamp": time.Now().Unix(),
			}
			if ev.Call != nil {
				phone, _ := ev.Call.Value("ApiPhone")
				extension, _ := ev.Call.Value("ApiExtension")
				payload["phone"] = phone
				payload["extension"] = extension
			}
			utils.SendSSEEvent(w, flusher, string(ev.Kind), payload)
		}
	}
}
