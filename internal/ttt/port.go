// Package ttt defines the text-to-text port used for enhancement: raw
// transcript text goes in, a titled Note comes out.
package ttt

import (
	"context"

	"github.com/rbright/dictate/internal/domain"
)

// Port turns transcript text into a titled, tagged Note.
type Port interface {
	Enhance(ctx context.Context, text string) (domain.Note, error)
}
