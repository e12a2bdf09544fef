// Package listener implements the wake-word + VAD coordination state
// machine: IDLE waits for a wake word, ARMED waits a bounded time for
// speech to start, LISTENING accumulates an utterance (with pre-roll and
// hangover) and hands it off to the encoder and STT ports at the
// IDLE transition.
package listener

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/debugdump"
	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/encoder"
	"github.com/rbright/dictate/internal/errs"
	"github.com/rbright/dictate/internal/hub"
	"github.com/rbright/dictate/internal/stt"
	"github.com/rbright/dictate/internal/vad"
	"github.com/rbright/dictate/internal/wakeword"
)

const (
	subscriberName     = "listener"
	defaultMaxFrames   = 1024
	defaultReadTimeout = 150 * time.Millisecond
	joinTimeout        = 5 * time.Second
	defaultEventBuffer = 8
)

// HubPort is the subset of hub.Hub the listener depends on.
type HubPort interface {
	IsRunning() bool
	Subscribe(name string, maxFrames int) *hub.Reader
}

// Config tunes the state machine's timing and buffer sizes, derived from
// the stream format per spec.md §4.3.
type Config struct {
	ArmedTimeoutSeconds float64
	VadSpeechPadMs      float64
	EndHangoverMs       float64
	MaxUtteranceSeconds float64
	MaxFrames           int
	ReadTimeout         time.Duration
	DebugAudioDump      bool
	DebugDumpDir        string
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

// monotonicNow is overridable in tests so armed-timeout behavior can be
// exercised without sleeping wall-clock seconds.
var monotonicNow = func() time.Time { return time.Now() }

// Listener runs the wake+VAD state machine over the hub's frames.
type Listener struct {
	hub     HubPort
	wake    wakeword.Port
	vadPort vad.Port
	enc     encoder.Port
	sttPort stt.Port
	logger  *slog.Logger
	cfg     Config

	preRollMax    int
	hangoverMax   int
	maxUtteranceN int

	mu     sync.Mutex
	active bool
	state  domain.ListenerState
	reader *hub.Reader
	stopCh chan struct{}
	doneCh chan struct{}
	events chan domain.ListenerEvent
}

// New constructs a Listener. Buffer sizes are computed lazily on Start,
// once the hub's format (and therefore fps) is known.
func New(h HubPort, wake wakeword.Port, vadPort vad.Port, enc encoder.Port, sttPort stt.Port, logger *slog.Logger, cfg Config) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		hub:     h,
		wake:    wake,
		vadPort: vadPort,
		enc:     enc,
		sttPort: sttPort,
		logger:  logger,
		cfg:     cfg.withDefaults(),
		state:   domain.ListenerIdle,
	}
}

// Start subscribes to the hub and begins running the state machine on a
// background goroutine. Fails with ErrSessionAlreadyActive if already
// running, or ErrStreamNotRunning if the hub has no open device.
func (l *Listener) Start(format audioframe.AudioFormat) (<-chan domain.ListenerEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		return nil, errs.ErrSessionAlreadyActive
	}
	if !l.hub.IsRunning() {
		return nil, errs.ErrStreamNotRunning
	}

	fps := format.FramesPerSecond()
	l.preRollMax = maxInt(1, roundInt(l.cfg.VadSpeechPadMs/1000*fps)+5)
	l.hangoverMax = maxInt(1, roundInt(l.cfg.EndHangoverMs/1000*fps))
	l.maxUtteranceN = roundInt(l.cfg.MaxUtteranceSeconds * fps)

	reader := l.hub.Subscribe(subscriberName, l.cfg.MaxFrames)
	l.reader = reader
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.events = make(chan domain.ListenerEvent, defaultEventBuffer)
	l.active = true
	l.state = domain.ListenerIdle

	events := l.events
	go l.run(reader, l.stopCh, l.doneCh, events)

	return events, nil
}

// Stop signals the run loop, waits up to 5 seconds for it to exit, closes
// the subscriber, resets both detectors, and returns to IDLE. The event
// channel is only closed once run() has actually exited: if the 5-second
// join times out while a finalize() call is still in flight, closing the
// channel here could race its own (independently timed) blocking emit of
// a result/error event and panic on a send to a closed channel. In that
// case the close is deferred to a background goroutine that waits for
// the real exit; per spec.md §4.3/§9 a finalization already in flight
// when Stop is called is allowed to complete, so its event may still
// reach subscribers slightly after Stop returns.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	stopCh := l.stopCh
	doneCh := l.doneCh
	reader := l.reader
	events := l.events
	l.mu.Unlock()

	close(stopCh)
	timedOut := false
	select {
	case <-doneCh:
	case <-time.After(joinTimeout):
		timedOut = true
	}

	reader.Close()
	l.wake.Reset()
	l.vadPort.Reset()

	l.mu.Lock()
	l.active = false
	l.state = domain.ListenerIdle
	l.reader = nil
	l.events = nil
	l.mu.Unlock()

	if timedOut {
		go func() {
			<-doneCh
			close(events)
		}()
		return
	}
	close(events)
}

// IsListening reports whether a session is currently running.
func (l *Listener) IsListening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// State returns the current state machine state.
func (l *Listener) State() domain.ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Listener) setState(s domain.ListenerState, events chan<- domain.ListenerEvent) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
	l.emit(events, domain.ListenerEvent{Kind: domain.EventStateChange, State: s}, true)
}

// emit pushes ev onto events. mayDrop selects drop-oldest semantics for
// state_change events; result and error events always block (bounded by
// the channel capacity, sized for the worst-case concurrent utterance
// count) so they are never lost.
func (l *Listener) emit(events chan<- domain.ListenerEvent, ev domain.ListenerEvent, mayDrop bool) {
	if events == nil {
		return
	}
	if !mayDrop {
		events <- ev
		return
	}
	select {
	case events <- ev:
	default:
		// Drop-oldest for state_change: make room for the newest state
		// rather than stalling the loop on a slow consumer.
		select {
		case <-events:
		default:
		}
		select {
		case events <- ev:
		default:
		}
	}
}

type preRollBuffer struct {
	frames []audioframe.AudioFrame
	max    int
}

func (p *preRollBuffer) append(f audioframe.AudioFrame) {
	p.frames = append(p.frames, f)
	for len(p.frames) > p.max {
		p.frames = p.frames[1:]
	}
}

func (p *preRollBuffer) clear() { p.frames = p.frames[:0] }

func (l *Listener) run(reader *hub.Reader, stopCh <-chan struct{}, done chan<- struct{}, events chan domain.ListenerEvent) {
	defer close(done)

	preRoll := &preRollBuffer{max: l.preRollMax}
	var utterance []audioframe.AudioFrame
	var hangover []audioframe.AudioFrame
	var armedAt time.Time
	speechEnded := false

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		frame, ok := reader.Read(l.cfg.ReadTimeout)
		if !ok {
			if l.State() == domain.ListenerArmed && monotonicNow().Sub(armedAt).Seconds() > l.cfg.ArmedTimeoutSeconds {
				l.wake.Reset()
				l.vadPort.Reset()
				preRoll.clear()
				l.setState(domain.ListenerIdle, events)
			}
			continue
		}

		switch l.State() {
		case domain.ListenerIdle:
			wakeEv, err := l.wake.Detect(frame)
			if err != nil {
				l.logger.Error("listener: wake detect failed", "error", err)
				continue
			}
			if wakeEv.Detected {
				armedAt = monotonicNow()
				l.vadPort.Reset()
				preRoll.clear()
				l.setState(domain.ListenerArmed, events)
			}

		case domain.ListenerArmed:
			if monotonicNow().Sub(armedAt).Seconds() > l.cfg.ArmedTimeoutSeconds {
				l.wake.Reset()
				l.vadPort.Reset()
				preRoll.clear()
				l.setState(domain.ListenerIdle, events)
				continue
			}

			vadEv, err := l.vadPort.Process(frame)
			if err != nil {
				l.logger.Error("listener: vad process failed", "error", err)
				continue
			}
			if vadEv.Kind == domain.VadSpeechStart {
				utterance = append(utterance[:0], preRoll.frames...)
				utterance = append(utterance, frame)
				preRoll.clear()
				speechEnded = false
				hangover = hangover[:0]
				l.setState(domain.ListenerListening, events)
			} else {
				preRoll.append(frame)
			}

		case domain.ListenerListening:
			if !speechEnded {
				vadEv, err := l.vadPort.Process(frame)
				if err != nil {
					l.logger.Error("listener: vad process failed", "error", err)
					continue
				}
				if vadEv.Kind == domain.VadSpeechEnd {
					speechEnded = true
				} else {
					utterance = append(utterance, frame)
				}
			} else {
				hangover = append(hangover, frame)
			}

			if !speechEnded && len(utterance) >= l.maxUtteranceN {
				l.finalize(utterance, events)
				utterance = nil
				hangover = hangover[:0]
				speechEnded = false
				l.wake.Reset()
				l.vadPort.Reset()
				preRoll.clear()
				l.setState(domain.ListenerIdle, events)
				continue
			}

			if speechEnded && len(hangover) >= l.hangoverMax {
				final := append(append([]audioframe.AudioFrame{}, utterance...), hangover...)
				l.finalize(final, events)
				utterance = nil
				hangover = hangover[:0]
				speechEnded = false
				l.wake.Reset()
				l.vadPort.Reset()
				preRoll.clear()
				l.setState(domain.ListenerIdle, events)
			}
		}
	}
}

// finalize concatenates the utterance's frames, persists the result, and
// transcribes it, emitting exactly one result or error event.
func (l *Listener) finalize(frames []audioframe.AudioFrame, events chan domain.ListenerEvent) {
	if len(frames) == 0 {
		l.emit(events, domain.ListenerEvent{Kind: domain.EventError, Message: "empty utterance"}, false)
		return
	}

	rec := domain.Recording{
		Data:       audioframe.ConcatInt16(frames),
		Format:     frames[0].Format,
		CapturedAt: time.Now(),
	}

	l.writeDebugAudio(rec)

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	persisted, err := l.enc.SaveRecording(ctx, rec)
	if err != nil {
		l.logger.Error("listener: finalize encode failed", "error", err)
		l.emit(events, domain.ListenerEvent{Kind: domain.EventError, Message: err.Error()}, false)
		return
	}

	transcript, err := l.sttPort.TranscribeRecording(ctx, persisted)
	if err != nil {
		l.logger.Error("listener: finalize transcribe failed", "error", err)
		l.emit(events, domain.ListenerEvent{Kind: domain.EventError, Message: err.Error()}, false)
		return
	}

	l.emit(events, domain.ListenerEvent{Kind: domain.EventResult, Recording: persisted, Transcript: transcript}, false)
}

// writeDebugAudio dumps a finalized utterance to disk when
// debug.audio_dump is enabled. Failures are logged, not surfaced: a
// broken debug sink must never fail an otherwise-successful finalize.
func (l *Listener) writeDebugAudio(rec domain.Recording) {
	if !l.cfg.DebugAudioDump {
		return
	}
	dir, err := debugdump.ResolveDir(l.cfg.DebugDumpDir)
	if err != nil {
		l.logger.Warn("listener: resolve debug dump dir failed", "error", err)
		return
	}
	if _, err := debugdump.WriteAudioWAV(dir, rec.Data, rec.Format.SampleRate, rec.Format.Channels); err != nil {
		l.logger.Warn("listener: write debug audio dump failed", "error", err)
	}
}

func roundInt(f float64) int {
	return int(math.Round(f))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

