// Package audioframe defines the canonical audio frame model shared by the
// capture hub, the detector adapation layer, and the recorder/listener
// services: one immutable AudioFormat per stream lifetime, and AudioFrame
// values that convert on demand into the two detector-specific views.
package audioframe

import (
	"fmt"

	"github.com/rbright/dictate/internal/errs"
)

// Dtype names a sample encoding carried by an AudioFormat/AudioFrame.
type Dtype string

const (
	DtypeFloat32 Dtype = "float32"
	DtypeInt16   Dtype = "int16"
	DtypeFloat64 Dtype = "float64"
)

// AudioFormat is an immutable description of one stream's sample layout.
// A stream has exactly one format for its lifetime.
type AudioFormat struct {
	SampleRate int
	Channels   int
	Blocksize  int
	Dtype      Dtype
}

// NewAudioFormat validates and constructs an AudioFormat. Every field must
// be positive; Dtype must be one of the three recognized encodings.
func NewAudioFormat(sampleRate, channels, blocksize int, dtype Dtype) (AudioFormat, error) {
	if sampleRate <= 0 || channels <= 0 || blocksize <= 0 {
		return AudioFormat{}, fmt.Errorf("%w: sample_rate=%d channels=%d blocksize=%d", errs.ErrInvalidFormat, sampleRate, channels, blocksize)
	}
	switch dtype {
	case DtypeFloat32, DtypeInt16, DtypeFloat64:
	default:
		return AudioFormat{}, fmt.Errorf("%w: unknown dtype %q", errs.ErrInvalidFormat, dtype)
	}
	return AudioFormat{SampleRate: sampleRate, Channels: channels, Blocksize: blocksize, Dtype: dtype}, nil
}

// FramesPerSecond returns sample_rate / blocksize, the cadence at which the
// hub is expected to deliver frames to subscribers.
func (f AudioFormat) FramesPerSecond() float64 {
	if f.Blocksize <= 0 {
		return 0
	}
	return float64(f.SampleRate) / float64(f.Blocksize)
}
