// Package stt defines the speech-to-text port: a persisted recording
// goes in, a transcript comes out.
package stt

import (
	"context"

	"github.com/rbright/dictate/internal/domain"
)

// Port transcribes a persisted Recording.
type Port interface {
	TranscribeRecording(ctx context.Context, rec domain.Recording) (domain.Transcript, error)
}
