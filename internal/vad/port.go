// Package vad defines the voice-activity-detection port: a frame goes in,
// an optional speech-start/speech-end transition comes out. The
// underlying detector requires exactly 512 samples per call at 16 kHz;
// this package hides that behind an accumulator so callers may pass
// frames of any size.
package vad

import (
	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/domain"
)

// Port is implemented by anything that turns a stream of arbitrary-size
// frames into speech-start/speech-end transitions. Not safe for
// concurrent use; owned exclusively by the listener that calls it.
type Port interface {
	// Process appends frame's mono-float32 samples to the internal
	// accumulator and runs the underlying detector once per complete
	// window produced. Returns the last event emitted across those
	// windows, except a speech_end is never shadowed by a later
	// speech_start produced within the same call.
	Process(frame audioframe.AudioFrame) (domain.VadEvent, error)
	// Reset clears model state and the accumulator.
	Reset()
}
