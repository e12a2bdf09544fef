package ipc

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRuntimeSocketPathPrefersExplicit(t *testing.T) {
	path, err := RuntimeSocketPath("/tmp/explicit.sock")
	require.NoError(t, err)
	require.Equal(t, "/tmp/explicit.sock", path)
}

func TestRuntimeSocketPathRequiresXDGWhenImplicit(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	_, err := RuntimeSocketPath("")
	require.Error(t, err)
}

func TestAcquireAndProbeRoundtrip(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "dictate.sock")

	listener, err := Acquire(context.Background(), sockPath, 200*time.Millisecond)
	require.NoError(t, err)
	defer listener.Close()

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})}
	go srv.Serve(listener)
	defer srv.Close()

	time.Sleep(20 * time.Millisecond)

	alive, err := Probe(context.Background(), sockPath, 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, alive)

	_, err = Acquire(context.Background(), sockPath, 500*time.Millisecond)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireClearsStaleSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "dictate.sock")

	listener, err := Acquire(context.Background(), sockPath, 200*time.Millisecond)
	require.NoError(t, err)
	listener.Close() // simulate a crash: the socket file is left behind

	listener2, err := Acquire(context.Background(), sockPath, 200*time.Millisecond)
	require.NoError(t, err)
	defer listener2.Close()
}
