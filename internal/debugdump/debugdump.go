// Package debugdump writes optional diagnostic artifacts — a finalized
// listener utterance as WAV, or an STT wire exchange as JSON — gated on
// config.DebugConfig's EnableAudioDump/EnableGRPCDump flags. Grounded on
// the teacher's pipeline.Transcriber writeDebugAudio/debugGRPCFile
// helpers (WAV header, timestamped filenames, $XDG_STATE_HOME fallback).
package debugdump

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ResolveDir returns explicit if set, otherwise
// $XDG_STATE_HOME/dictate/debug, falling back to ~/.local/state/dictate/debug.
func ResolveDir(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "dictate", "debug"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for debug dump: %w", err)
	}
	return filepath.Join(home, ".local", "state", "dictate", "debug"), nil
}

// WriteAudioWAV writes raw little-endian int16 PCM as a minimal WAV file
// under dir, timestamped, and returns the path written.
func WriteAudioWAV(dir string, pcm []int16, sampleRate, channels int) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dump dir: %w", err)
	}

	raw := make([]byte, 2*len(pcm))
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(s))
	}

	path := filepath.Join(dir, fmt.Sprintf("utterance-%s.wav", time.Now().Format("20060102-150405.000")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open debug audio dump: %w", err)
	}
	defer f.Close()

	if err := writeWAVHeader(f, len(raw), sampleRate, channels); err != nil {
		return "", err
	}
	if _, err := f.Write(raw); err != nil {
		return "", fmt.Errorf("write debug audio dump: %w", err)
	}
	return path, nil
}

func writeWAVHeader(f *os.File, pcmLen, sampleRate, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+pcmLen))
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], uint32(pcmLen))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write debug audio dump header: %w", err)
	}
	return nil
}

// GRPCExchange records one STT RPC's shape for offline inspection: the
// endpoint dialed, how much audio was sent, which boost phrases rode
// along, and the transcript that came back.
type GRPCExchange struct {
	Endpoint    string    `json:"endpoint"`
	BytesSent   int       `json:"bytes_sent"`
	ChunkCount  int       `json:"chunk_count"`
	Phrases     []string  `json:"phrases,omitempty"`
	Transcript  string    `json:"transcript"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// WriteGRPCExchange serializes exch as JSON under dir, timestamped, and
// returns the path written.
func WriteGRPCExchange(dir string, exch GRPCExchange) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dump dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("grpc-%s.json", time.Now().Format("20060102-150405.000")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open debug grpc dump: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(exch); err != nil {
		return "", fmt.Errorf("write debug grpc dump: %w", err)
	}
	return path, nil
}
