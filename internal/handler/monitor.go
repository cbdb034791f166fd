package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abaye123/yemot-router2/pkg/yemot"
)

// Monitor streams call-lifecycle events to websocket clients, giving
// operators a live view of calls entering, advancing through and leaving
// the system.
type Monitor struct {
	events   *yemot.Events
	upgrader websocket.Upgrader
}

// NewMonitor creates a monitor over the router's event stream.
func NewMonitor(events *yemot.Events) *Monitor {
	return &Monitor{
		events: events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

type eventMessage struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	CallID    string `json:"callId"`
	Phone     string `json:"phone,omitempty"`
	Extension string `json:"extension,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket upgrades the connection and forwards call events until
// the client goes away.
func (m *Monitor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[monitor] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[monitor] new connection from %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := m.events.Subscribe(16)
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go m.pingLoop(ctx, conn)
	go m.discardReads(cancel, conn)

	// Confirm the stream is live before any event can flow.
	if err := conn.WriteJSON(eventMessage{Type: "connected", Timestamp: time.Now().Unix()}); err != nil {
		log.Printf("[monitor] write failed: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg := eventMessage{
				Type:      "call_event",
				Event:     string(ev.Kind),
				CallID:    ev.CallID,
				Timestamp: time.Now().Unix(),
			}
			if ev.Call != nil {
				// Value reads the guarded request snapshot; the exported
				// fields belong to the handler goroutine.
				msg.Phone, _ = ev.Call.Value("ApiPhone")
				msg.Extension, _ = ev.Call.Value("ApiExtension")
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[monitor] write failed: %v", err)
				return
			}
		}
	}
}

// discardReads drains inbound frames so pong handlers run, cancelling the
// stream when the client closes.
func (m *Monitor) discardReads(cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[monitor] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (m *Monitor) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
