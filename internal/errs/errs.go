// Package errs holds the sentinel error taxonomy shared across dictate's
// core services, so HTTP handlers and IPC callers can map failures to
// stable status codes with errors.Is instead of string matching.
package errs

import "errors"

var (
	// ErrInvalidFormat means an AudioFormat had a non-positive field.
	ErrInvalidFormat = errors.New("invalid audio format")
	// ErrDeviceError means the capture device could not be opened.
	ErrDeviceError = errors.New("audio device error")
	// ErrSessionAlreadyActive means a recorder or listener session was already running.
	ErrSessionAlreadyActive = errors.New("session already active")
	// ErrStreamNotRunning means the hub has no running capture stream.
	ErrStreamNotRunning = errors.New("audio stream not running")
	// ErrNoAudioCaptured means a recording session produced zero frames.
	ErrNoAudioCaptured = errors.New("no audio captured")
	// ErrEncodeFailed means the encoder port failed to persist a recording.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrInvalidRecording means a Recording had neither data nor a path.
	ErrInvalidRecording = errors.New("invalid recording")
	// ErrNotFound means a recording id was not present in the registry.
	ErrNotFound = errors.New("not found")
	// ErrEmptyTranscript means enhancement was asked to process blank text.
	ErrEmptyTranscript = errors.New("empty transcript")
	// ErrTranscribeFailed means the STT port failed.
	ErrTranscribeFailed = errors.New("transcribe failed")
	// ErrEnhanceFailed means the text-to-text port failed.
	ErrEnhanceFailed = errors.New("enhance failed")
	// ErrInternal is a catch-all for unexpected internal failures.
	ErrInternal = errors.New("internal error")
)
