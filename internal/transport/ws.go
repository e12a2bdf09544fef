package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/rbright/dictate/internal/domain"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type clientMessage struct {
	Action string `json:"action"`
}

type serverMessage struct {
	Type          string    `json:"type"`
	State         string    `json:"state,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
	RecordingID   string    `json:"recording_id,omitempty"`
	Path          string    `json:"path,omitempty"`
	Text          string    `json:"text,omitempty"`
	CapturedAt    time.Time `json:"captured_at,omitempty"`
	TranscribedAt time.Time `json:"transcribed_at,omitempty"`
	Message       string    `json:"message,omitempty"`
}

func (s *Server) registerWebsocket() {
	s.echo.GET("/ws", s.handleWebsocket)
}

// handleWebsocket upgrades one connection and serves it until the client
// disconnects or sends "stop" followed by close. All connections drive
// the one shared listener: a "start" while a session is already active
// is reported as an error event, and events are translated into the §6
// streaming message shapes.
func (s *Server) handleWebsocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.writeJSON(conn, serverMessage{Type: "connected"})

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if s.listener.IsListening() {
				s.listener.Stop()
			}
			return nil
		}

		switch msg.Action {
		case "start":
			events, err := s.listener.Start(s.hub.AudioFormat())
			if err != nil {
				s.writeJSON(conn, serverMessage{Type: "error", Message: err.Error(), Timestamp: time.Now()})
				continue
			}
			go s.pumpEvents(ctx, conn, events)
		case "stop":
			s.listener.Stop()
			s.writeJSON(conn, serverMessage{Type: "state_change", State: "STOPPED", Timestamp: time.Now()})
		}
	}
}

// pumpEvents forwards one listener session's events to conn until the
// channel closes (Stop was called) or ctx is cancelled (the connection
// closed).
func (s *Server) pumpEvents(ctx context.Context, conn *websocket.Conn, events <-chan domain.ListenerEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.writeJSON(conn, toServerMessage(ev))
		}
	}
}

func toServerMessage(ev domain.ListenerEvent) serverMessage {
	switch ev.Kind {
	case domain.EventStateChange:
		return serverMessage{Type: "state_change", State: mapState(ev.State), Timestamp: time.Now()}
	case domain.EventResult:
		return serverMessage{
			Type:          "result",
			RecordingID:   ev.Recording.ID,
			Path:          ev.Recording.Path,
			Text:          ev.Transcript.Text,
			CapturedAt:    ev.Recording.CapturedAt,
			TranscribedAt: ev.Transcript.GeneratedAt,
		}
	case domain.EventError:
		return serverMessage{Type: "error", Message: ev.Message, Timestamp: time.Now()}
	default:
		return serverMessage{Type: "error", Message: "unknown event", Timestamp: time.Now()}
	}
}

func mapState(s domain.ListenerState) string {
	switch s {
	case domain.ListenerIdle:
		return "IDLE"
	case domain.ListenerArmed:
		return "ARMED"
	case domain.ListenerListening:
		return "LISTENING"
	default:
		return "IDLE"
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, msg serverMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("ws write failed", "error", err)
	}
}
