package vad

import "github.com/rbright/dictate/internal/domain"

// boundaryDetector converts a stream of per-window speech probabilities
// into speech-start/speech-end transitions, requiring minSpeechFrames
// consecutive speech windows before declaring start and minSilenceFrames
// consecutive silent windows before declaring end. This hysteresis keeps
// a single noisy window from flipping the state.
type boundaryDetector struct {
	threshold float64

	inSpeech      bool
	speechFrames  int
	silenceFrames int

	minSpeechFrames  int
	minSilenceFrames int
}

func newBoundaryDetector(threshold float64, minSpeechFrames, minSilenceFrames int) *boundaryDetector {
	if minSpeechFrames < 1 {
		minSpeechFrames = 1
	}
	if minSilenceFrames < 1 {
		minSilenceFrames = 1
	}
	return &boundaryDetector{
		threshold:        threshold,
		minSpeechFrames:  minSpeechFrames,
		minSilenceFrames: minSilenceFrames,
	}
}

// process consumes one window's speech probability and returns the
// transition it produced, if any.
func (bd *boundaryDetector) process(prob float32) domain.VadKind {
	isSpeech := float64(prob) >= bd.threshold

	if isSpeech {
		bd.speechFrames++
		bd.silenceFrames = 0

		if !bd.inSpeech && bd.speechFrames >= bd.minSpeechFrames {
			bd.inSpeech = true
			return domain.VadSpeechStart
		}
		return domain.VadNone
	}

	bd.silenceFrames++
	bd.speechFrames = 0

	if bd.inSpeech && bd.silenceFrames >= bd.minSilenceFrames {
		bd.inSpeech = false
		return domain.VadSpeechEnd
	}
	return domain.VadNone
}

// reset clears the hysteresis counters, independent of threshold/minimums.
func (bd *boundaryDetector) reset() {
	bd.inSpeech = false
	bd.speechFrames = 0
	bd.silenceFrames = 0
}
