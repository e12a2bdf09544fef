package audioframe

import (
	"fmt"
	"math"
	"time"
)

// AudioFrame is a cheap-to-pass value produced by the stream hub. Consumers
// must not mutate the underlying sample buffer — it may be shared across
// subscribers. Sequence is assigned by the hub and increases monotonically
// within the lifetime of one stream.
type AudioFrame struct {
	Float32   []float32
	Int16     []int16
	Float64   []float64
	Format    AudioFormat
	Timestamp int64 // monotonic nanoseconds
	Sequence  uint64
}

// NewFrame builds a frame from a native-typed sample buffer matching
// format.Dtype. The buffer length must be a multiple of format.Channels.
func NewFrame(format AudioFormat, timestamp int64, sequence uint64, data any) (AudioFrame, error) {
	frame := AudioFrame{Format: format, Timestamp: timestamp, Sequence: sequence}

	switch v := data.(type) {
	case []float32:
		frame.Float32 = v
	case []int16:
		frame.Int16 = v
	case []float64:
		frame.Float64 = v
	default:
		return AudioFrame{}, fmt.Errorf("audioframe: unsupported sample buffer type %T", data)
	}

	if n := frame.totalSamples(); format.Channels > 0 && n%format.Channels != 0 {
		return AudioFrame{}, fmt.Errorf("audioframe: buffer length %d is not a multiple of channels %d", n, format.Channels)
	}
	return frame, nil
}

func (f AudioFrame) totalSamples() int {
	switch {
	case f.Float32 != nil:
		return len(f.Float32)
	case f.Int16 != nil:
		return len(f.Int16)
	default:
		return len(f.Float64)
	}
}

// NumSamples returns the frame length along the time axis (per channel).
func (f AudioFrame) NumSamples() int {
	if f.Format.Channels <= 0 {
		return 0
	}
	return f.totalSamples() / f.Format.Channels
}

// Duration returns how much wall-clock audio this frame represents.
func (f AudioFrame) Duration() time.Duration {
	if f.Format.SampleRate <= 0 {
		return 0
	}
	seconds := float64(f.NumSamples()) / float64(f.Format.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// AsMonoFloat32 averages channels down to mono (if multi-channel) and
// returns float32 samples. int16 samples are scaled by 1/32768 into
// [-1.0, 1.0); float32 and float64 samples are converted as they are,
// without scaling or clipping.
func (f AudioFrame) AsMonoFloat32() []float32 {
	channels := f.Format.Channels
	if channels <= 0 {
		channels = 1
	}

	switch {
	case f.Int16 != nil:
		return downmixInt16(f.Int16, channels)
	case f.Float64 != nil:
		return downmixFloat64(f.Float64, channels)
	default:
		return downmixFloat32(f.Float32, channels)
	}
}

// AsMonoInt16 derives the mono float32 view, clips to [-1.0, 1.0], and
// rounds to int16 PCM — the format the detector ports and the encoder
// subprocess expect.
func (f AudioFrame) AsMonoInt16() []int16 {
	mono := f.AsMonoFloat32()
	out := make([]int16, len(mono))
	for i, s := range mono {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(math.Round(float64(s) * 32767))
	}
	return out
}

func downmixInt16(samples []int16, channels int) []float32 {
	n := len(samples) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(samples[i*channels+c]) / 32768.0
		}
		out[i] = sum / float32(channels)
	}
	return out
}

func downmixFloat32(samples []float32, channels int) []float32 {
	if channels <= 1 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}
	n := len(samples) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

func downmixFloat64(samples []float64, channels int) []float32 {
	n := len(samples) / channels
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// ConcatInt16 concatenates mono int16 views of every frame along the time
// axis, in the order given, for utterance/recording finalization.
func ConcatInt16(frames []AudioFrame) []int16 {
	total := 0
	for _, f := range frames {
		total += f.NumSamples()
	}
	out := make([]int16, 0, total)
	for _, f := range frames {
		out = append(out, f.AsMonoInt16()...)
	}
	return out
}
