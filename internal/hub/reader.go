package hub

import (
	"sync"
	"time"

	"github.com/rbright/dictate/internal/audioframe"
)

// Reader is a subscriber's handle onto the hub: its own bounded,
// drop-oldest queue of frames produced after the subscription began.
type Reader struct {
	name      string
	maxFrames int

	mu     sync.Mutex
	queue  []audioframe.AudioFrame
	notify chan struct{}
	closed bool
}

// NewReader constructs a standalone Reader with the hub's drop-oldest
// queue semantics. It exists so other packages can compose or test
// against a Reader without going through a live Hub subscription.
func NewReader(name string, maxFrames int) *Reader {
	return newReader(name, maxFrames)
}

func newReader(name string, maxFrames int) *Reader {
	if maxFrames <= 0 {
		maxFrames = 1024
	}
	return &Reader{
		name:      name,
		maxFrames: maxFrames,
		queue:     make([]audioframe.AudioFrame, 0, maxFrames),
		notify:    make(chan struct{}, 1),
	}
}

// Offer exposes offer to callers outside this package that compose a
// Reader directly via NewReader (test doubles and alternate producers).
func (r *Reader) Offer(frame audioframe.AudioFrame) bool {
	return r.offer(frame)
}

// offer appends frame to the queue, evicting the oldest frame first if
// the queue is already at capacity. Returns false if the reader is
// closed, signaling the hub to remove it from the subscriber list.
func (r *Reader) offer(frame audioframe.AudioFrame) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	if len(r.queue) >= r.maxFrames {
		r.queue = r.queue[1:]
	}
	r.queue = append(r.queue, frame)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return true
}

// Read blocks up to timeout for the next frame. timeout=0 is
// non-blocking; a negative timeout blocks indefinitely. Returns
// (frame, true) on success, (zero, false) on timeout or end-of-stream.
func (r *Reader) Read(timeout time.Duration) (audioframe.AudioFrame, bool) {
	if frame, ok := r.pop(); ok {
		return frame, true
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return audioframe.AudioFrame{}, false
	}

	if timeout == 0 {
		return audioframe.AudioFrame{}, false
	}

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-r.notify:
		if frame, ok := r.pop(); ok {
			return frame, true
		}
		return audioframe.AudioFrame{}, false
	case <-timeoutCh:
		return audioframe.AudioFrame{}, false
	}
}

func (r *Reader) pop() (audioframe.AudioFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return audioframe.AudioFrame{}, false
	}
	frame := r.queue[0]
	r.queue = r.queue[1:]
	return frame, true
}

// Close marks the reader closed. Removal from the hub's subscriber list
// happens lazily on the next fan-out.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
