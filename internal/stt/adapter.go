package stt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/dictate/internal/debugdump"
	"github.com/rbright/dictate/internal/domain"
	"github.com/rbright/dictate/internal/errs"
	"github.com/rbright/dictate/internal/sttrpc"
)

const sendChunkBytes = 32 * 1024

// Config controls how the adapter reaches the STT endpoint, which
// vocabulary-boost phrases ride along on every request, and whether each
// wire exchange is dumped to disk for offline inspection.
type Config struct {
	Endpoint      string
	DialTimeout   time.Duration
	Phrases       []sttrpc.SpeechPhrase
	DebugGRPCDump bool
	DebugDumpDir  string
	Logger        *slog.Logger
}

// Adapter wraps an sttrpc client as a Port, reading the persisted
// recording's file and streaming it up in chunks.
type Adapter struct {
	cfg    Config
	logger *slog.Logger
}

// New constructs an Adapter.
func New(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{cfg: cfg, logger: logger}
}

// TranscribeRecording implements Port. It rejects a recording with
// neither data nor path, and copies the input's path onto the resulting
// transcript if the caller didn't already set one.
func (a *Adapter) TranscribeRecording(ctx context.Context, rec domain.Recording) (domain.Transcript, error) {
	if err := rec.Validate(); err != nil {
		return domain.Transcript{}, err
	}

	payload, err := a.readPayload(rec)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("%w: %v", errs.ErrTranscribeFailed, err)
	}
	totalBytes := len(payload)

	startedAt := time.Now()
	stream, err := sttrpc.DialStream(ctx, sttrpc.Config{
		Endpoint:    a.cfg.Endpoint,
		DialTimeout: a.cfg.DialTimeout,
		Phrases:     a.cfg.Phrases,
	})
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("%w: %v", errs.ErrTranscribeFailed, err)
	}

	chunkCount := 0
	for len(payload) > 0 {
		n := sendChunkBytes
		if n > len(payload) {
			n = len(payload)
		}
		if err := stream.SendAudio(payload[:n]); err != nil {
			_ = stream.Cancel()
			return domain.Transcript{}, fmt.Errorf("%w: %v", errs.ErrTranscribeFailed, err)
		}
		payload = payload[n:]
		chunkCount++
	}

	text, err := stream.CloseAndCollect()
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("%w: %v", errs.ErrTranscribeFailed, err)
	}

	a.writeDebugExchange(startedAt, totalBytes, chunkCount, text)

	transcript := domain.Transcript{Text: text, RecordingPath: rec.Path, GeneratedAt: time.Now()}
	return transcript, nil
}

// writeDebugExchange dumps the wire exchange to disk when
// debug.grpc_dump is enabled. Failures are logged, not surfaced: a
// broken debug sink must never fail a transcription that otherwise
// succeeded.
func (a *Adapter) writeDebugExchange(startedAt time.Time, bytesSent, chunkCount int, transcript string) {
	if !a.cfg.DebugGRPCDump {
		return
	}
	dir, err := debugdump.ResolveDir(a.cfg.DebugDumpDir)
	if err != nil {
		a.logger.Warn("stt: resolve debug dump dir failed", "error", err)
		return
	}
	phrases := make([]string, 0, len(a.cfg.Phrases))
	for _, p := range a.cfg.Phrases {
		phrases = append(phrases, fmt.Sprintf("%s;%g", p.Phrase, p.Boost))
	}
	if _, err := debugdump.WriteGRPCExchange(dir, debugdump.GRPCExchange{
		Endpoint:    a.cfg.Endpoint,
		BytesSent:   bytesSent,
		ChunkCount:  chunkCount,
		Phrases:     phrases,
		Transcript:  transcript,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}); err != nil {
		a.logger.Warn("stt: write debug grpc dump failed", "error", err)
	}
}

func (a *Adapter) readPayload(rec domain.Recording) ([]byte, error) {
	if rec.Path != "" {
		return os.ReadFile(rec.Path)
	}
	buf := make([]byte, 2*len(rec.Data))
	for i, s := range rec.Data {
		buf[2*i] = byte(uint16(s))
		buf[2*i+1] = byte(uint16(s) >> 8)
	}
	return buf, nil
}
