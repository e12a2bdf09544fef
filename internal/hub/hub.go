// Package hub owns the audio device and fans captured frames out to an
// arbitrary number of independent subscribers, each with its own
// bounded, drop-oldest queue so one slow consumer cannot stall another
// or the device producer.
package hub

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/rbright/dictate/internal/audioframe"
	"github.com/rbright/dictate/internal/errs"
)

// Hub owns one capture device and fans its frames out to subscribers.
type Hub struct {
	format audioframe.AudioFormat
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	client  *pulse.Client
	stream  *pulse.RecordStream
	readers []*Reader

	sequence atomic.Uint64
	pending  []byte // partial blocksize bytes carried across device callbacks
}

// New constructs a Hub for the given format. The device is not opened
// until Start. The capture stream is always opened mono/int16 (pulse's
// RecordMono + FormatInt16LE below), so Channels and Dtype are
// canonicalized here to match what delivered frames actually carry
// regardless of what the caller's config requested; only SampleRate and
// Blocksize pass through unchanged.
func New(format audioframe.AudioFormat, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	format.Channels = 1
	format.Dtype = audioframe.DtypeInt16
	return &Hub{format: format, logger: logger}
}

// AudioFormat returns the stream's fixed format.
func (h *Hub) AudioFormat() audioframe.AudioFormat {
	return h.format
}

// IsRunning reports whether the device is currently open.
func (h *Hub) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Start opens the capture device idempotently using the hub's device
// selection policy (prefer a "monitor" input; otherwise the default
// input; otherwise the first input at all).
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}

	client, err := pulse.NewClient(pulse.ClientApplicationName("dictate"))
	if err != nil {
		return fmt.Errorf("%w: connect pulse server: %v", errs.ErrDeviceError, err)
	}

	devices, err := listDevices(client)
	if err != nil {
		client.Close()
		return fmt.Errorf("%w: %v", errs.ErrDeviceError, err)
	}
	device, err := selectDevice(devices)
	if err != nil {
		client.Close()
		return err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return fmt.Errorf("%w: resolve source %q: %v", errs.ErrDeviceError, device.ID, err)
	}

	writer := pulse.NewWriter(writerFunc(h.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(uint32(h.format.SampleRate)),
		pulse.RecordBufferFragmentSize(uint32(h.format.Blocksize*2)),
		pulse.RecordMediaName("dictate capture"),
	)
	if err != nil {
		client.Close()
		return fmt.Errorf("%w: create pulse record stream: %v", errs.ErrDeviceError, err)
	}

	h.client = client
	h.stream = stream
	h.running = true
	h.pending = nil
	stream.Start()
	return nil
}

// Stop closes the device idempotently. Subscriber readers are not
// closed; they observe end-of-stream on their next Read.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	if h.stream != nil {
		h.stream.Stop()
		h.stream.Close()
	}
	if h.client != nil {
		h.client.Close()
	}
	h.stream = nil
	h.client = nil
}

// Subscribe registers a new reader that receives only frames produced
// after this call.
func (h *Hub) Subscribe(name string, maxFrames int) *Reader {
	reader := newReader(name, maxFrames)
	h.mu.Lock()
	h.readers = append(h.readers, reader)
	h.mu.Unlock()
	return reader
}

// onPCM is the pulse device callback: it assembles raw bytes into
// fixed-blocksize frames and fans each one out to every live subscriber.
func (h *Hub) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	frameBytes := h.format.Blocksize * 2 // int16 mono
	h.mu.Lock()
	h.pending = append(h.pending, buffer...)
	var chunks [][]byte
	for len(h.pending) >= frameBytes {
		chunk := make([]byte, frameBytes)
		copy(chunk, h.pending[:frameBytes])
		h.pending = h.pending[frameBytes:]
		chunks = append(chunks, chunk)
	}
	h.mu.Unlock()

	for _, chunk := range chunks {
		h.deliver(chunk)
	}
	return len(buffer), nil
}

func (h *Hub) deliver(pcm []byte) {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}

	seq := h.sequence.Add(1)
	frame, err := audioframe.NewFrame(h.format, time.Now().UnixNano(), seq, samples)
	if err != nil {
		h.logger.Error("hub: dropped malformed frame", "error", err)
		return
	}

	h.mu.Lock()
	live := h.readers[:0]
	for _, r := range h.readers {
		if r.isClosed() {
			continue
		}
		r.offer(frame)
		live = append(live, r)
	}
	h.readers = live
	h.mu.Unlock()
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }
