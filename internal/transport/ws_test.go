package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rbright/dictate/internal/domain"
)

func startTestWSServer(t *testing.T) string {
	t.Helper()
	srv := newTestServer(t)
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)
	return "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

func dialWS(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(baseURL+"/ws", nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg serverMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWSHandshakeSendsConnected(t *testing.T) {
	baseURL := startTestWSServer(t)
	conn := dialWS(t, baseURL)
	defer conn.Close()

	msg := readMessage(t, conn)
	require.Equal(t, "connected", msg.Type)
}

func TestWSStartFailsWhenHubNotRunning(t *testing.T) {
	baseURL := startTestWSServer(t)
	conn := dialWS(t, baseURL)
	defer conn.Close()

	readMessage(t, conn) // connected

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "start"}))
	msg := readMessage(t, conn)
	require.Equal(t, "error", msg.Type)
}

func TestWSStopWhenNotListeningReportsStopped(t *testing.T) {
	baseURL := startTestWSServer(t)
	conn := dialWS(t, baseURL)
	defer conn.Close()

	readMessage(t, conn) // connected

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "stop"}))
	msg := readMessage(t, conn)
	require.Equal(t, "state_change", msg.Type)
	require.Equal(t, "STOPPED", msg.State)
}

func TestToServerMessageMapsEventKinds(t *testing.T) {
	stateMsg := toServerMessage(domain.ListenerEvent{Kind: domain.EventStateChange, State: domain.ListenerArmed})
	require.Equal(t, "state_change", stateMsg.Type)
	require.Equal(t, "ARMED", stateMsg.State)

	resultMsg := toServerMessage(domain.ListenerEvent{
		Kind:       domain.EventResult,
		Recording:  domain.Recording{ID: "r1", Path: "/tmp/r1.wav"},
		Transcript: domain.Transcript{Text: "hi"},
	})
	require.Equal(t, "result", resultMsg.Type)
	require.Equal(t, "r1", resultMsg.RecordingID)
	require.Equal(t, "hi", resultMsg.Text)

	errMsg := toServerMessage(domain.ListenerEvent{Kind: domain.EventError, Message: "boom"})
	require.Equal(t, "error", errMsg.Type)
	require.Equal(t, "boom", errMsg.Message)
}
