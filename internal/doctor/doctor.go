// Package doctor runs runtime readiness diagnostics for config, the
// encoder binary, the wake/VAD model files, and the STT/TTT endpoints.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/dictate/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config/binary/model/endpoint checks for a loaded config.
func Run(cfg config.Loaded) Report {
	var checks []Check

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkBinary(cfg.Config.Encoder.Binary, "encoder"))
	checks = append(checks, checkDir(cfg.Config.Listener.WakeModelDir, "wake.model_dir"))
	checks = append(checks, checkFileIfSet(cfg.Config.Listener.VadModelPath, "vad.model_path"))
	checks = append(checks, checkTCPReachable(cfg.Config.STT.Endpoint, "stt.endpoint"))
	checks = append(checks, checkHTTPReachable(cfg.Config.TTT.Endpoint, "ttt.endpoint"))

	return Report{Checks: checks}
}

func checkBinary(bin, name string) Check {
	if bin == "" {
		return Check{Name: name, Pass: false, Message: "binary path is empty"}
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

func checkDir(dir, name string) Check {
	if dir == "" {
		return Check{Name: name, Pass: false, Message: "directory is empty"}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found %s", filepath.Clean(dir))}
}

func checkFileIfSet(path, name string) Check {
	if path == "" {
		return Check{Name: name, Pass: true, Message: "not configured, skipped"}
	}
	if _, err := os.Stat(path); err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found %s", path)}
}

// checkTCPReachable dials the STT gRPC endpoint's TCP address without
// completing a handshake; it only confirms something is listening.
func checkTCPReachable(addr, name string) Check {
	if addr == "" {
		return Check{Name: name, Pass: false, Message: "endpoint is empty"}
	}
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("dial failed: %v", err)}
	}
	conn.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", addr)}
}

// checkHTTPReachable issues a HEAD request against the TTT endpoint.
func checkHTTPReachable(endpoint, name string) Check {
	if endpoint == "" {
		return Check{Name: name, Pass: false, Message: "endpoint is empty"}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
}
