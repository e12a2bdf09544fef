// Package wakeword defines the wake-word detection port: frame in,
// (detected, per-model score) out, plus a reset that clears model state
// without touching any other component.
package wakeword

import (
	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/domain"
)

// Port is implemented by anything that can score a variable-size audio
// frame against one or more wake-word models. Implementations are
// stateful across calls and are not safe for concurrent use; each is
// owned exclusively by the listener that calls it.
type Port interface {
	// Detect scores frame against every configured model and reports
	// whether any model's score crossed its threshold.
	Detect(frame audioframe.AudioFrame) (domain.WakeEvent, error)
	// Reset clears accumulated model state (mel/embedding buffers, score
	// windows) but not any configuration.
	Reset()
}
