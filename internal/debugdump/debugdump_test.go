package debugdump

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveDirPrefersExplicit(t *testing.T) {
	dir, err := ResolveDir("/tmp/explicit-debug")
	require.NoError(t, err)
	require.Equal(t, "/tmp/explicit-debug", dir)
}

func TestResolveDirFallsBackToXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/xdg-state")
	dir, err := ResolveDir("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/xdg-state", "dictate", "debug"), dir)
}

func TestWriteAudioWAVWritesValidHeaderAndSamples(t *testing.T) {
	dir := t.TempDir()
	pcm := []int16{1, -1, 32767, -32768}

	path, err := WriteAudioWAV(dir, pcm, 16000, 1)
	require.NoError(t, err)
	require.FileExists(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(raw[0:4]))
	require.Equal(t, "WAVE", string(raw[8:12]))
	require.Equal(t, "data", string(raw[36:40]))

	dataLen := binary.LittleEndian.Uint32(raw[40:44])
	require.Equal(t, uint32(2*len(pcm)), dataLen)
	require.Len(t, raw, 44+2*len(pcm))

	sampleRate := binary.LittleEndian.Uint32(raw[24:28])
	require.Equal(t, uint32(16000), sampleRate)
}

func TestWriteGRPCExchangeWritesJSON(t *testing.T) {
	dir := t.TempDir()
	exch := GRPCExchange{
		Endpoint:    "localhost:50051",
		BytesSent:   1024,
		ChunkCount:  2,
		Phrases:     []string{"kubernetes;15"},
		Transcript:  "hello world",
		StartedAt:   time.Unix(0, 0),
		CompletedAt: time.Unix(1, 0),
	}

	path, err := WriteGRPCExchange(dir, exch)
	require.NoError(t, err)
	require.FileExists(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "hello world")
	require.Contains(t, string(raw), "kubernetes;15")
}
