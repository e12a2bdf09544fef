package vad

import (
	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/domain"
)

// Config tunes the hysteresis layered on top of the raw per-window
// speech probability.
type Config struct {
	Threshold       float64
	MinSilenceMs    int
	FrameDurationMs int // window duration in ms; 32 for the 512-sample/16kHz Silero window
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 1
	}
	return (a + b - 1) / b
}

// Adapter hides the engine's fixed WindowSamples requirement behind an
// accumulator fed by frames of any size, and layers the boundary
// detector's hysteresis on top of raw per-window probabilities.
type Adapter struct {
	engine Engine
	bd     *boundaryDetector

	accumulator []float32
}

// New builds a buffering Port adapter around engine. A single speech
// window starts speech (minSpeechFrames is fixed at 1; Config has no
// field to change it), and cfg.MinSilenceMs, rounded up to whole windows
// of FrameDurationMs, sets how many silent windows end it.
func New(engine Engine, cfg Config) *Adapter {
	frameMs := cfg.FrameDurationMs
	if frameMs <= 0 {
		frameMs = 32
	}
	minSilenceFrames := ceilDiv(cfg.MinSilenceMs, frameMs)
	return &Adapter{
		engine: engine,
		bd:     newBoundaryDetector(cfg.Threshold, 1, minSilenceFrames),
	}
}

// Process implements Port.
func (a *Adapter) Process(frame audioframe.AudioFrame) (domain.VadEvent, error) {
	a.accumulator = append(a.accumulator, frame.AsMonoFloat32()...)

	result := domain.VadEvent{Kind: domain.VadNone}
	sawSpeechEnd := false

	for len(a.accumulator) >= WindowSamples {
		window := append([]float32(nil), a.accumulator[:WindowSamples]...)
		n := copy(a.accumulator, a.accumulator[WindowSamples:])
		a.accumulator = a.accumulator[:n]

		prob, err := a.engine.Infer(window)
		if err != nil {
			return domain.VadEvent{}, err
		}

		kind := a.bd.process(prob)
		if kind == domain.VadNone {
			continue
		}

		if kind == domain.VadSpeechEnd {
			sawSpeechEnd = true
			result = domain.VadEvent{Kind: domain.VadSpeechEnd, Confidence: float64(prob)}
			continue
		}

		if sawSpeechEnd {
			// speech_end is sticky within this call: a later
			// speech_start in the same call never shadows it.
			continue
		}
		result = domain.VadEvent{Kind: kind, Confidence: float64(prob)}
	}

	return result, nil
}

// Reset implements Port: clears the engine's recurrent state, the
// hysteresis counters, and the sample accumulator.
func (a *Adapter) Reset() {
	a.engine.Reset()
	a.bd.reset()
	a.accumulator = a.accumulator[:0]
}
