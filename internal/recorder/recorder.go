// Package recorder implements manual start/stop capture: a private
// subscriber on the stream hub that accumulates frames between start and
// stop, then persists and registers the result.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/encoder"
	"github.com/rbright/dictate/internal/errs"
	"github.com/rbright/dictate/internal/hub"
	"github.com/rbright/dictate/internal/registry"
)

const (
	subscriberName     = "recorder"
	defaultMaxFrames   = 4096
	defaultReadTimeout = 200 * time.Millisecond
	joinTimeout        = 5 * time.Second
)

// HubPort is the subset of hub.Hub the recorder depends on.
type HubPort interface {
	IsRunning() bool
	Subscribe(name string, maxFrames int) *hub.Reader
}

// Config tunes the recorder's private subscription.
type Config struct {
	MaxFrames          int
	ReadTimeout        time.Duration
	MaxDurationSeconds float64
}

func (c Config) withDefaults() Config {
	if c.MaxFrames <= 0 {
		c.MaxFrames = defaultMaxFrames
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	return c
}

// Session describes a recording in progress.
type Session struct {
	StartedAt          time.Time
	MaxDurationSeconds float64
}

// Recorder coordinates one manual-capture session at a time.
type Recorder struct {
	hub      HubPort
	encoder  encoder.Port
	registry *registry.Registry
	cfg      Config

	mu        sync.Mutex
	active    bool
	reader    *hub.Reader
	frames    []audioframe.AudioFrame
	stopCh    chan struct{}
	doneCh    chan struct{}
	startedAt time.Time
}

// New constructs a Recorder backed by h, persisting through enc and
// registering finished recordings in reg.
func New(h HubPort, enc encoder.Port, reg *registry.Registry, cfg Config) *Recorder {
	return &Recorder{hub: h, encoder: enc, registry: reg, cfg: cfg.withDefaults()}
}

// StartRecording opens a private subscription and begins accumulating
// frames. Fails with ErrSessionAlreadyActive if a session is already
// running, or ErrStreamNotRunning if the hub has no open device.
func (r *Recorder) StartRecording() (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return Session{}, errs.ErrSessionAlreadyActive
	}
	if !r.hub.IsRunning() {
		return Session{}, errs.ErrStreamNotRunning
	}

	reader := r.hub.Subscribe(subscriberName, r.cfg.MaxFrames)

	r.reader = reader
	r.frames = nil
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.startedAt = time.Now()
	r.active = true

	go r.captureLoop(reader, r.stopCh, r.doneCh)

	return Session{StartedAt: r.startedAt, MaxDurationSeconds: r.cfg.MaxDurationSeconds}, nil
}

func (r *Recorder) captureLoop(reader *hub.Reader, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		frame, ok := reader.Read(r.cfg.ReadTimeout)
		if !ok {
			continue
		}
		r.mu.Lock()
		r.frames = append(r.frames, frame)
		r.mu.Unlock()
	}
}

// StopRecording signals the capture loop, joins it within 5 seconds,
// concatenates whatever frames were captured, persists the result
// through the encoder port, and registers it. Fails with
// ErrStreamNotRunning if no session is active (mirrors the hub's
// StreamNotRunning bucket: both map to the same 409 at the HTTP
// surface), or ErrNoAudioCaptured if zero frames were collected.
func (r *Recorder) StopRecording(ctx context.Context) (domain.Recording, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return domain.Recording{}, errs.ErrStreamNotRunning
	}
	reader := r.reader
	stopCh := r.stopCh
	doneCh := r.doneCh
	startedAt := r.startedAt
	r.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(joinTimeout):
	}
	reader.Close()

	r.mu.Lock()
	frames := r.frames
	r.frames = nil
	r.active = false
	r.reader = nil
	r.mu.Unlock()

	if len(frames) == 0 {
		return domain.Recording{}, errs.ErrNoAudioCaptured
	}

	rec := domain.Recording{
		Data:       audioframe.ConcatInt16(frames),
		Format:     frames[0].Format,
		CapturedAt: startedAt,
	}

	persisted, err := r.encoder.SaveRecording(ctx, rec)
	if err != nil {
		return domain.Recording{}, err
	}
	if persisted.ID == "" {
		persisted.ID = persisted.Path
	}

	if err := r.registry.Put(persisted); err != nil {
		return domain.Recording{}, fmt.Errorf("%w: %v", errs.ErrInternal, err)
	}
	return persisted, nil
}

// GetRecording returns a defensive copy of the recording stored under id.
func (r *Recorder) GetRecording(id string) (domain.Recording, error) {
	return r.registry.Get(id)
}
