// Package encoder defines the port that turns an in-memory Recording
// into a persisted one: rec.Path non-empty, rec.Data released.
package encoder

import (
	"context"

	"github.com/rbright/dictate/internal/domain"
)

// Port persists an in-memory Recording to a filesystem container. The
// core is agnostic to the container and codec the implementation
// chooses.
type Port interface {
	SaveRecording(ctx context.Context, rec domain.Recording) (domain.Recording, error)
}
