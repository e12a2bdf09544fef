// Package ipc resolves and acquires the single-instance unix-domain
// socket dictated listens on, and gives dictatectl an http.Client wired
// to dial that same socket — the request/response bodies riding over it
// are the ordinary JSON envelopes from the HTTP surface, not a bespoke
// wire protocol.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrAlreadyRunning means a responsive dictated is already bound to the
// socket path.
var ErrAlreadyRunning = errors.New("dictate daemon already running")

// RuntimeSocketPath resolves the unix socket path dictated listens on,
// honoring an explicit override before falling back to XDG_RUNTIME_DIR.
func RuntimeSocketPath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, "dictate.sock"), nil
}

// Acquire binds a listener to path, detecting and clearing a stale socket
// left by a crashed prior instance. It returns ErrAlreadyRunning if a
// live daemon answers on path.
func Acquire(ctx context.Context, path string, probeTimeout time.Duration) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err == nil {
		_ = os.Chmod(path, 0o600)
		return listener, nil
	}
	if !isAddrInUse(err) {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}

	alive, probeErr := Probe(ctx, path, probeTimeout)
	if alive {
		return nil, ErrAlreadyRunning
	}
	if probeErr != nil {
		return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
	}

	if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
	}

	listener, err = net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s after clearing stale socket: %w", path, err)
	}
	_ = os.Chmod(path, 0o600)
	return listener, nil
}

// Probe checks whether a responsive dictated is listening on path by
// hitting its /health endpoint.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	client := Client(path, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/health", nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		if isSocketMissing(err) || isConnectionRefused(err) {
			return false, nil
		}
		return false, fmt.Errorf("probe socket: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// Client builds an http.Client that dials path as a unix socket instead
// of a TCP address, for dictatectl to reuse against the HTTP surface.
func Client(path string, timeout time.Duration) *http.Client {
	dialer := net.Dialer{Timeout: timeout}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, "unix", path)
			},
		},
	}
}

func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}

func isSocketMissing(err error) bool {
	return err != nil && errors.Is(err, os.ErrNotExist)
}

func isConnectionRefused(err error) bool {
	return err != nil && strings.Contains(err.Error(), "connection refused")
}
