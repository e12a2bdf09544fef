// Package domain holds the value types shared by the core services:
// recordings, transcripts, notes, and the events the detector ports and
// the listener emit. Nothing here touches I/O.
package domain

import (
	"fmt"
	"time"

	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/errs"
)

// Recording is a persisted or in-memory span of captured audio. At least
// one of Data or Path must be set; Path is authoritative once the
// recording has been encoded to disk.
type Recording struct {
	ID         string
	Data       []int16
	Path       string
	Format     audioframe.AudioFormat
	DeviceName string
	CapturedAt time.Time
}

// Validate enforces that a Recording carries either inline samples or a
// path to an encoded file.
func (r Recording) Validate() error {
	if len(r.Data) == 0 && r.Path == "" {
		return errs.ErrInvalidRecording
	}
	return nil
}

// Transcript is the text produced by the STT port for one recording.
type Transcript struct {
	Text          string
	RecordingID   string
	RecordingPath string
	GeneratedAt   time.Time
}

// Note is the output of the enhancement port: a transcript rewritten into
// a titled note with a small set of topical tags.
type Note struct {
	Title     string
	Body      string
	Tags      []string
	CreatedAt time.Time
}

// MinTags and MaxTags bound the Tags slice the enhancement port is
// expected to produce.
const (
	MinTags = 3
	MaxTags = 5
)

// ValidateTags enforces the tag-count invariant independently of the
// port that produced them, so both the adapter and its tests share one
// definition of "valid".
func ValidateTags(tags []string) error {
	if len(tags) < MinTags || len(tags) > MaxTags {
		return fmt.Errorf("%w: expected %d-%d tags, got %d", errs.ErrEnhanceFailed, MinTags, MaxTags, len(tags))
	}
	return nil
}

// WakeEvent is the result of one call into the wake-word port.
type WakeEvent struct {
	Detected bool
	Scores   map[string]float64
}

// VadKind names the three outcomes a single VAD call can report for the
// frame(s) it consumed. SpeechEnd is sticky: once raised within a call it
// is never shadowed by a later SpeechStart detected within the same call.
type VadKind string

const (
	VadNone        VadKind = "none"
	VadSpeechStart VadKind = "speech_start"
	VadSpeechEnd   VadKind = "speech_end"
)

// VadEvent is the result of one call into the VAD port.
type VadEvent struct {
	Kind       VadKind
	Confidence float64
}

// ListenerState names the states of the wake+VAD coordination state
// machine: idle (nothing armed), armed (wake word heard, waiting for
// speech), listening (capturing an utterance).
type ListenerState string

const (
	ListenerIdle      ListenerState = "idle"
	ListenerArmed     ListenerState = "armed"
	ListenerListening ListenerState = "listening"
)

// ListenerEventKind names the three shapes a ListenerEvent can take.
type ListenerEventKind string

const (
	EventStateChange ListenerEventKind = "state_change"
	EventResult      ListenerEventKind = "result"
	EventError       ListenerEventKind = "error"
)

// ListenerEvent is what the listener service publishes on its event
// channel. Exactly the fields matching Kind are meaningful.
type ListenerEvent struct {
	Kind       ListenerEventKind
	State      ListenerState
	Recording  Recording
	Transcript Transcript
	Message    string
}
