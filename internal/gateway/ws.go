package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/basket/textlens/internal/bus"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsWriteTimeout = 5 * time.Second

// streamEvent is the frame pushed to WebSocket clients for each bus event.
type streamEvent struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// handleWS upgrades to a WebSocket and forwards every session and analysis
// event until the client disconnects. Client messages are ignored.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not configured")
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Same-origin requests are always allowed by the websocket library.
		OriginPatterns: s.cfg.AllowOrigins,
	})
	if err != nil {
		s.cfg.Logger.Debug("ws: accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	sub := s.cfg.Bus.Subscribe("")
	defer s.cfg.Bus.Unsubscribe(sub)

	s.streams.Add(1)
	s.cfg.Metrics.ActiveStreams.Add(r.Context(), 1)
	defer func() {
		s.streams.Add(-1)
		s.cfg.Metrics.ActiveStreams.Add(context.WithoutCancel(r.Context()), -1)
	}()
	s.cfg.Logger.Info("ws: client connected", "remote", r.RemoteAddr)

	// CloseRead drains client frames and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	hello := streamEvent{Topic: "hello", Payload: s.cfg.Session.Snapshot()}
	if err := writeFrame(ctx, conn, hello); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.cfg.Logger.Info("ws: client disconnected")
			return
		case ev, ok := <-sub.Ch():
			if !ok {
				return
			}
			if err := writeFrame(ctx, conn, toStreamEvent(ev)); err != nil {
				s.cfg.Logger.Debug("ws: write failed", "error", err)
				return
			}
			s.streamEvents.Add(1)
		}
	}
}

func toStreamEvent(ev bus.Event) streamEvent {
	return streamEvent{Topic: ev.Topic, Payload: ev.Payload}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
