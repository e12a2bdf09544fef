package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/errs"
	"github.com/rbright/dictate/internal/hub"
	"github.com/rbright/dictate/internal/listener"
	"github.com/rbright/dictate/internal/recorder"
	"github.com/rbright/dictate/internal/registry"
)

type fakeRecorderHub struct{ running bool }

func (f *fakeRecorderHub) IsRunning() bool { return f.running }
func (f *fakeRecorderHub) Subscribe(name string, maxFrames int) *hub.Reader {
	return hub.NewReader(name, maxFrames)
}

type fakeListenerHub struct{ running bool }

func (f *fakeListenerHub) IsRunning() bool { return f.running }
func (f *fakeListenerHub) Subscribe(name string, maxFrames int) *hub.Reader {
	return hub.NewReader(name, maxFrames)
}

type fakeEncoder struct{}

func (fakeEncoder) SaveRecording(_ context.Context, rec domain.Recording) (domain.Recording, error) {
	rec.Path = "/tmp/rec.wav"
	rec.Data = nil
	return rec, nil
}

type fakeWake struct{}

func (fakeWake) Detect(audioframe.AudioFrame) (domain.WakeEvent, error) { return domain.WakeEvent{}, nil }
func (fakeWake) Reset()                                                {}

type fakeVad struct{}

func (fakeVad) Process(audioframe.AudioFrame) (domain.VadEvent, error) {
	return domain.VadEvent{Kind: domain.VadNone}, nil
}
func (fakeVad) Reset() {}

type fakeSTT struct{}

func (fakeSTT) TranscribeRecording(_ context.Context, rec domain.Recording) (domain.Transcript, error) {
	return domain.Transcript{Text: "hello", RecordingPath: rec.Path, GeneratedAt: time.Now()}, nil
}

type fakeTTT struct{ fail bool }

func (f fakeTTT) Enhance(_ context.Context, text string) (domain.Note, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Note{}, errs.ErrEmptyTranscript
	}
	return domain.Note{Title: "Note", Body: text, Tags: []string{"general"}, CreatedAt: time.Now()}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	format, err := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	require.NoError(t, err)

	h := hub.New(format, nil)
	reg := registry.New()
	rec := recorder.New(&fakeRecorderHub{running: false}, fakeEncoder{}, reg, recorder.Config{})
	lis := listener.New(&fakeListenerHub{running: false}, fakeWake{}, fakeVad{}, fakeEncoder{}, fakeSTT{}, nil, listener.Config{})

	return New(h, rec, lis, fakeSTT{}, fakeTTT{}, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleStartRecordingFailsWhenHubNotRunning(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/start_recording", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleTranscribeUnknownRecording(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/transcribe", map[string]string{"recording_id": "missing"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEnhanceReturnsNote(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/enhance", map[string]string{"text": "buy milk"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"Note"`)
}

func TestHandleEnhanceRejectsEmptyText(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/enhance", map[string]string{"text": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListenStatusReportsIdle(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/listen/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"is_listening":false`)
}

func TestHandleListenStopFailsWhenNotListening(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/listen/stop", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleListenStartFailsWhenHubNotRunning(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/listen/start", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}
