// Package transport exposes the core services over the request/response
// and streaming surfaces from the spec: a thin echo/gorilla-websocket
// composition that maps core errors to HTTP status codes and fans
// listener events out to connected websocket clients. It holds no
// business logic of its own.
package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/errs"
	"github.com/rbright/dictate/internal/hub"
	"github.com/rbright/dictate/internal/listener"
	"github.com/rbright/dictate/internal/recorder"
	"github.com/rbright/dictate/internal/stt"
	"github.com/rbright/dictate/internal/ttt"
)

// Server wires the core services to HTTP and websocket handlers.
type Server struct {
	echo     *echo.Echo
	hub      *hub.Hub
	recorder *recorder.Recorder
	listener *listener.Listener
	sttPort  stt.Port
	tttPort  ttt.Port
	logger   *slog.Logger
}

// New constructs an echo application with every route from spec.md §6
// registered.
func New(h *hub.Hub, rec *recorder.Recorder, lis *listener.Listener, sttPort stt.Port, tttPort ttt.Port, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, hub: h, recorder: rec, listener: lis, sttPort: sttPort, tttPort: tttPort, logger: logger}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler, for http.Serve over a
// unix-socket listener or a TCP one.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/start_recording", s.handleStartRecording)
	s.echo.POST("/stop_recording", s.handleStopRecording)
	s.echo.POST("/transcribe", s.handleTranscribe)
	s.echo.POST("/enhance", s.handleEnhance)
	s.echo.POST("/listen/start", s.handleListenStart)
	s.echo.POST("/listen/stop", s.handleListenStop)
	s.echo.GET("/listen/status", s.handleListenStatus)
	s.registerWebsocket()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRecording(c echo.Context) error {
	session, err := s.recorder.StartRecording()
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":               "recording",
		"started_at":           session.StartedAt,
		"max_duration_seconds": session.MaxDurationSeconds,
	})
}

func (s *Server) handleStopRecording(c echo.Context) error {
	rec, err := s.recorder.StopRecording(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"recording_id": rec.ID,
		"path":         rec.Path,
		"captured_at":  rec.CapturedAt,
	})
}

type transcribeRequest struct {
	RecordingID string `json:"recording_id"`
}

func (s *Server) handleTranscribe(c echo.Context) error {
	var req transcribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	rec, err := s.recorder.GetRecording(req.RecordingID)
	if err != nil {
		return mapError(c, err)
	}

	transcript, err := s.sttPort.TranscribeRecording(c.Request().Context(), rec)
	if err != nil {
		return mapError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"recording_id": req.RecordingID,
		"text":         transcript.Text,
		"generated_at": transcript.GeneratedAt,
	})
}

type enhanceRequest struct {
	Text        string `json:"text"`
	RecordingID string `json:"recording_id,omitempty"`
}

func (s *Server) handleEnhance(c echo.Context) error {
	var req enhanceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	note, err := s.tttPort.Enhance(c.Request().Context(), req.Text)
	if err != nil {
		return mapError(c, err)
	}

	resp := map[string]any{
		"title":      note.Title,
		"body":       note.Body,
		"tags":       note.Tags,
		"created_at": note.CreatedAt,
	}
	if req.RecordingID != "" {
		resp["recording_id"] = req.RecordingID
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListenStart(c echo.Context) error {
	_, err := s.listener.Start(s.hub.AudioFormat())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"state":      string(domain.ListenerIdle),
		"started_at": time.Now(),
	})
}

func (s *Server) handleListenStop(c echo.Context) error {
	if !s.listener.IsListening() {
		return mapError(c, errs.ErrStreamNotRunning)
	}
	s.listener.Stop()
	return c.JSON(http.StatusOK, nil)
}

func (s *Server) handleListenStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"is_listening": s.listener.IsListening(),
		"state":        string(s.listener.State()),
	})
}

func mapError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrSessionAlreadyActive):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrStreamNotRunning):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrEmptyTranscript):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrInvalidRecording):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNoAudioCaptured),
		errors.Is(err, errs.ErrEncodeFailed),
		errors.Is(err, errs.ErrTranscribeFailed),
		errors.Is(err, errs.ErrEnhanceFailed):
		status = http.StatusInternalServerError
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
