package listener

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/errs"
	"github.com/rbright/dictate/internal/hub"
)

type fakeHub struct {
	running bool
	reader  *hub.Reader
}

func (f *fakeHub) IsRunning() bool { return f.running }

func (f *fakeHub) Subscribe(name string, maxFrames int) *hub.Reader {
	f.reader = hub.NewReader(name, maxFrames)
	return f.reader
}

// fakeWake detects on the Nth call whose index is in hits.
type fakeWake struct {
	calls  int
	hits   map[int]bool
	resets int
}

func (f *fakeWake) Detect(frame audioframe.AudioFrame) (domain.WakeEvent, error) {
	f.calls++
	if f.hits[f.calls] {
		return domain.WakeEvent{Detected: true, Scores: map[string]float64{"hey": 0.9}}, nil
	}
	return domain.WakeEvent{Detected: false}, nil
}

func (f *fakeWake) Reset() { f.resets++ }

// fakeVad returns a scripted sequence of events, one per call.
type fakeVad struct {
	calls  int
	events map[int]domain.VadKind
	resets int
}

func (f *fakeVad) Process(frame audioframe.AudioFrame) (domain.VadEvent, error) {
	f.calls++
	if kind, ok := f.events[f.calls]; ok {
		return domain.VadEvent{Kind: kind}, nil
	}
	return domain.VadEvent{Kind: domain.VadNone}, nil
}

func (f *fakeVad) Reset() { f.resets++ }

type fakeEncoder struct{}

func (fakeEncoder) SaveRecording(ctx context.Context, rec domain.Recording) (domain.Recording, error) {
	rec.Path = "/tmp/listener-rec.wav"
	rec.Data = nil
	return rec, nil
}

type fakeSTT struct{}

func (fakeSTT) TranscribeRecording(ctx context.Context, rec domain.Recording) (domain.Transcript, error) {
	return domain.Transcript{Text: "hello world", RecordingPath: rec.Path, GeneratedAt: time.Now()}, nil
}

func testFrame(t *testing.T, seq uint64) audioframe.AudioFrame {
	t.Helper()
	format, err := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	require.NoError(t, err)
	frame, err := audioframe.NewFrame(format, 0, seq, make([]int16, 512))
	require.NoError(t, err)
	return frame
}

func drainUntil(t *testing.T, events <-chan domain.ListenerEvent, kind domain.ListenerEventKind, timeout time.Duration) domain.ListenerEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events closed before observing %s", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestStartRejectsWhenStreamNotRunning(t *testing.T) {
	h := &fakeHub{running: false}
	l := New(h, &fakeWake{}, &fakeVad{}, fakeEncoder{}, fakeSTT{}, nil, Config{})
	format, _ := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	_, err := l.Start(format)
	require.ErrorIs(t, err, errs.ErrStreamNotRunning)
}

func TestStartRejectsDoubleStart(t *testing.T) {
	h := &fakeHub{running: true}
	l := New(h, &fakeWake{}, &fakeVad{}, fakeEncoder{}, fakeSTT{}, nil, Config{ReadTimeout: 5 * time.Millisecond})
	format, _ := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	_, err := l.Start(format)
	require.NoError(t, err)
	defer l.Stop()

	_, err = l.Start(format)
	require.ErrorIs(t, err, errs.ErrSessionAlreadyActive)
}

func TestWakeDetectArmsAndStateChangeEmitted(t *testing.T) {
	h := &fakeHub{running: true}
	wake := &fakeWake{hits: map[int]bool{1: true}}
	vadPort := &fakeVad{}
	l := New(h, wake, vadPort, fakeEncoder{}, fakeSTT{}, nil, Config{
		ArmedTimeoutSeconds: 5,
		ReadTimeout:         5 * time.Millisecond,
	})
	format, _ := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	events, err := l.Start(format)
	require.NoError(t, err)
	defer l.Stop()

	h.reader.Offer(testFrame(t, 1))
	ev := drainUntil(t, events, domain.EventStateChange, time.Second)
	require.Equal(t, domain.ListenerArmed, ev.State)
}

func TestArmedTimeoutReturnsToIdleWithoutResult(t *testing.T) {
	h := &fakeHub{running: true}
	wake := &fakeWake{hits: map[int]bool{1: true}}
	vadPort := &fakeVad{}
	l := New(h, wake, vadPort, fakeEncoder{}, fakeSTT{}, nil, Config{
		ArmedTimeoutSeconds: 0.05,
		ReadTimeout:         5 * time.Millisecond,
	})
	format, _ := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	events, err := l.Start(format)
	require.NoError(t, err)
	defer l.Stop()

	h.reader.Offer(testFrame(t, 1))
	armedEv := drainUntil(t, events, domain.EventStateChange, time.Second)
	require.Equal(t, domain.ListenerArmed, armedEv.State)

	var sawIdleAgain bool
	deadline := time.After(time.Second)
	for !sawIdleAgain {
		select {
		case ev := <-events:
			if ev.Kind == domain.EventStateChange && ev.State == domain.ListenerIdle {
				sawIdleAgain = true
			}
			require.NotEqual(t, domain.EventResult, ev.Kind)
		case <-deadline:
			t.Fatal("timed out waiting for armed timeout to return to idle")
		}
	}
}

func TestFullUtteranceProducesResult(t *testing.T) {
	h := &fakeHub{running: true}
	wake := &fakeWake{hits: map[int]bool{1: true}}
	vadPort := &fakeVad{events: map[int]domain.VadKind{
		1: domain.VadSpeechStart,
		6: domain.VadSpeechEnd,
	}}
	l := New(h, wake, vadPort, fakeEncoder{}, fakeSTT{}, nil, Config{
		ArmedTimeoutSeconds: 5,
		MaxUtteranceSeconds: 5,
		EndHangoverMs:       1,
		ReadTimeout:         5 * time.Millisecond,
	})
	format, _ := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	events, err := l.Start(format)
	require.NoError(t, err)
	defer l.Stop()

	// frame 1: wake detect -> ARMED
	h.reader.Offer(testFrame(t, 1))
	drainUntil(t, events, domain.EventStateChange, time.Second)

	// frame 2: vad call #1 -> speech_start -> LISTENING
	h.reader.Offer(testFrame(t, 2))
	drainUntil(t, events, domain.EventStateChange, time.Second)

	// frames 3..6: vad calls #2..#5 no event, #6 (6th vad call) -> speech_end
	for i := 0; i < 4; i++ {
		h.reader.Offer(testFrame(t, uint64(3+i)))
	}
	h.reader.Offer(testFrame(t, 7)) // vad call #6 -> speech_end

	// one more frame to push hangover past its minimum
	h.reader.Offer(testFrame(t, 8))

	result := drainUntil(t, events, domain.EventResult, 2*time.Second)
	require.Equal(t, "hello world", result.Transcript.Text)
	require.Equal(t, "/tmp/listener-rec.wav", result.Recording.Path)
}

func TestFinalizeWritesDebugAudioDumpWhenEnabled(t *testing.T) {
	h := &fakeHub{running: true}
	wake := &fakeWake{hits: map[int]bool{1: true}}
	vadPort := &fakeVad{events: map[int]domain.VadKind{
		1: domain.VadSpeechStart,
		6: domain.VadSpeechEnd,
	}}
	dumpDir := t.TempDir()
	l := New(h, wake, vadPort, fakeEncoder{}, fakeSTT{}, nil, Config{
		ArmedTimeoutSeconds: 5,
		MaxUtteranceSeconds: 5,
		EndHangoverMs:       1,
		ReadTimeout:         5 * time.Millisecond,
		DebugAudioDump:      true,
		DebugDumpDir:        dumpDir,
	})
	format, _ := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	events, err := l.Start(format)
	require.NoError(t, err)
	defer l.Stop()

	h.reader.Offer(testFrame(t, 1))
	drainUntil(t, events, domain.EventStateChange, time.Second)
	h.reader.Offer(testFrame(t, 2))
	drainUntil(t, events, domain.EventStateChange, time.Second)
	for i := 0; i < 4; i++ {
		h.reader.Offer(testFrame(t, uint64(3+i)))
	}
	h.reader.Offer(testFrame(t, 7))
	h.reader.Offer(testFrame(t, 8))

	drainUntil(t, events, domain.EventResult, 2*time.Second)

	entries, err := os.ReadDir(dumpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStopReturnsToIdleAndResetsDetectors(t *testing.T) {
	h := &fakeHub{running: true}
	wake := &fakeWake{}
	vadPort := &fakeVad{}
	l := New(h, wake, vadPort, fakeEncoder{}, fakeSTT{}, nil, Config{ReadTimeout: 5 * time.Millisecond})
	format, _ := audioframe.NewAudioFormat(16000, 1, 512, audioframe.DtypeInt16)
	_, err := l.Start(format)
	require.NoError(t, err)

	l.Stop()
	require.Equal(t, domain.ListenerIdle, l.State())
	require.False(t, l.IsListening())
	require.GreaterOrEqual(t, wake.resets, 1)
	require.GreaterOrEqual(t, vadPort.resets, 1)
}
