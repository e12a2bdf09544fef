// Package ctl implements dictatectl's command dispatch: parse argv,
// resolve the daemon's unix socket, issue the matching HTTP request,
// and print its response — mirroring the teacher's forward-to-owner
// pattern but riding the HTTP surface instead of a bespoke protocol.
package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rbright/dictate/internal/cli"
	"github.com/rbright/dictate/internal/config"
	"github.com/rbright/dictate/internal/doctor"
	"github.com/rbright/dictate/internal/ipc"
	"github.com/rbright/dictate/internal/version"
)

const requestTimeout = 30 * time.Second

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Execute is the package entrypoint used by cmd/dictatectl/main.go.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses CLI arguments and dispatches the matching daemon
// request, or handles version/help locally without touching the socket.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("dictatectl"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("dictatectl"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	if parsed.Command == cli.CommandDoctor {
		cfgLoaded, err := config.Load(parsed.ConfigPath)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	}

	socketPath, err := ipc.RuntimeSocketPath(parsed.SocketPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	method, path, body, err := requestFor(parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	client := ipc.Client(socketPath, requestTimeout)
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, "http://unix"+path, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: no active dictate daemon: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read response: %v\n", err)
		return 1
	}

	fmt.Fprintln(r.Stdout, formatResponse(raw))
	if resp.StatusCode >= http.StatusBadRequest {
		return 1
	}
	return 0
}

// requestFor maps a parsed CLI command onto the daemon's HTTP surface.
func requestFor(parsed cli.Parsed) (method, path string, body []byte, err error) {
	switch parsed.Command {
	case cli.CommandStartRecording:
		return http.MethodPost, "/start_recording", nil, nil
	case cli.CommandStopRecording:
		return http.MethodPost, "/stop_recording", nil, nil
	case cli.CommandTranscribe:
		if strings.TrimSpace(parsed.RecordingID) == "" {
			return "", "", nil, errors.New("transcribe requires --recording-id")
		}
		payload, _ := json.Marshal(map[string]string{"recording_id": parsed.RecordingID})
		return http.MethodPost, "/transcribe", payload, nil
	case cli.CommandEnhance:
		if strings.TrimSpace(parsed.Text) == "" {
			return "", "", nil, errors.New("enhance requires --text")
		}
		payload, _ := json.Marshal(map[string]string{"text": parsed.Text})
		return http.MethodPost, "/enhance", payload, nil
	case cli.CommandListenStart:
		return http.MethodPost, "/listen/start", nil, nil
	case cli.CommandListenStop:
		return http.MethodPost, "/listen/stop", nil, nil
	case cli.CommandStatus:
		return http.MethodGet, "/listen/status", nil, nil
	default:
		return "", "", nil, fmt.Errorf("unsupported command %q", parsed.Command)
	}
}

// formatResponse pretty-prints a JSON response body, falling back to
// the raw bytes if it doesn't parse as JSON.
func formatResponse(raw []byte) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	return string(pretty)
}
