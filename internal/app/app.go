// Package app is the daemon's composition root: it builds one of every
// service the spec names, wires them into a transport.Server, and
// serves that server over the single-instance unix socket (plus an
// optional TCP listener) until the process is signaled to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbright/dictate/internal/cli"
	"github.com/rbright/dictate/internal/config"
	"github.com/rbright/dictate/internal/doctor"
	"github.com/rbright/dictate/internal/encoder"
	"github.com/rbright/dictate/internal/hub"
	"github.com/rbright/dictate/internal/ipc"
	"github.com/rbright/dictate/internal/listener"
	"github.com/rbright/dictate/internal/logging"
	"github.com/rbright/dictate/internal/recorder"
	"github.com/rbright/dictate/internal/registry"
	"github.com/rbright/dictate/internal/stt"
	"github.com/rbright/dictate/internal/sttrpc"
	"github.com/rbright/dictate/internal/transport"
	"github.com/rbright/dictate/internal/ttt"
	"github.com/rbright/dictate/internal/vad"
	"github.com/rbright/dictate/internal/version"
	"github.com/rbright/dictate/internal/wakeword"
)

// Runner holds process-level dependencies used by the daemon entrypoint.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute is the package entrypoint used by cmd/dictated/main.go.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses CLI arguments, loads config/logging, and either prints
// version/help/doctor output or runs the daemon until ctx is cancelled.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("dictated"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("dictated"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	if parsed.Command == cli.CommandDoctor {
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	}

	logger.Info("daemon start", "config", cfgLoaded.Path, "log", logRuntime.Path)

	return r.serve(ctx, cfgLoaded.Config, logger)
}

// services bundles every long-lived component the daemon tears down in
// reverse construction order.
type services struct {
	hub      *hub.Hub
	wake     *wakeword.Adapter
	vadEng   *vad.SileroEngine
	server   *transport.Server
	listener *listener.Listener
}

// build constructs one of every service named in the module/operation
// inventory, wiring the domain-stack adapters (pulse, onnxruntime_go,
// gRPC, net/http) behind their ports before handing them to the
// transport layer.
func build(cfg config.Config, logger *slog.Logger) (*services, error) {
	format, err := cfg.Audio.Format()
	if err != nil {
		return nil, fmt.Errorf("audio format: %w", err)
	}

	h := hub.New(format, logger)
	if err := h.Start(); err != nil {
		return nil, fmt.Errorf("start capture hub: %w", err)
	}

	enc := encoder.New(encoder.Config{
		Binary:       cfg.Encoder.Binary,
		Args:         cfg.Encoder.Args,
		ContainerExt: cfg.Encoder.ContainerExt,
		TmpDir:       cfg.Encoder.TmpDir,
	})

	phrases, warnings, err := config.BuildSpeechPhrases(cfg)
	if err != nil {
		h.Stop()
		return nil, fmt.Errorf("build speech phrases: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("vocab config warning", "message", w.Message)
	}
	sttPhrases := make([]sttrpc.SpeechPhrase, len(phrases))
	for i, p := range phrases {
		sttPhrases[i] = sttrpc.SpeechPhrase{Phrase: p.Phrase, Boost: p.Boost}
	}

	sttPort := stt.New(stt.Config{
		Endpoint:      cfg.STT.Endpoint,
		DialTimeout:   time.Duration(cfg.STT.DialTimeout * float64(time.Second)),
		Phrases:       sttPhrases,
		DebugGRPCDump: cfg.Debug.EnableGRPCDump,
		DebugDumpDir:  cfg.Debug.DumpDir,
		Logger:        logger,
	})

	tttPort := ttt.New(ttt.Config{
		Endpoint: cfg.TTT.Endpoint,
		Timeout:  time.Duration(cfg.TTT.DialTimeout * float64(time.Second)),
	})

	wake, err := wakeword.New(wakeword.Config{
		ModelDir:  cfg.Listener.WakeModelDir,
		Models:    cfg.Listener.WakeModels,
		OnnxLib:   cfg.Listener.WakeOnnxLib,
		Threshold: cfg.Listener.WakeThreshold,
	})
	if err != nil {
		h.Stop()
		return nil, fmt.Errorf("init wakeword detector: %w", err)
	}

	vadEngine, err := vad.NewSileroEngine(cfg.Listener.VadOnnxLib, cfg.Listener.VadModelPath)
	if err != nil {
		h.Stop()
		return nil, fmt.Errorf("init vad engine: %w", err)
	}
	vadPort := vad.New(vadEngine, vad.Config{
		Threshold:    cfg.Listener.VadThreshold,
		MinSilenceMs: cfg.Listener.VadMinSilenceMs,
	})

	reg := registry.New()
	rec := recorder.New(h, enc, reg, recorder.Config{
		MaxDurationSeconds: cfg.Recorder.MaxDurationSeconds,
		MaxFrames:          cfg.Recorder.MaxFrames,
	})

	lis := listener.New(h, wake, vadPort, enc, sttPort, logger, listener.Config{
		ArmedTimeoutSeconds: cfg.Listener.ArmedTimeoutSeconds,
		VadSpeechPadMs:      cfg.Listener.VadSpeechPadMs,
		EndHangoverMs:       cfg.Listener.EndHangoverMs,
		MaxUtteranceSeconds: cfg.Listener.MaxUtteranceSeconds,
		MaxFrames:           cfg.Listener.MaxFrames,
		DebugAudioDump:      cfg.Debug.EnableAudioDump,
		DebugDumpDir:        cfg.Debug.DumpDir,
	})

	srv := transport.New(h, rec, lis, sttPort, tttPort, logger)

	return &services{hub: h, wake: wake, vadEng: vadEngine, server: srv, listener: lis}, nil
}

func (svc *services) close() {
	if svc.listener != nil && svc.listener.IsListening() {
		svc.listener.Stop()
	}
	if svc.vadEng != nil {
		svc.vadEng.Close()
	}
	if svc.wake != nil {
		svc.wake.Close()
	}
	if svc.hub != nil {
		svc.hub.Stop()
	}
}

// serve builds the daemon's services, acquires the single-instance
// socket, and runs until ctx (or a SIGINT/SIGTERM) asks it to stop.
func (r Runner) serve(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath(cfg.HTTP.SocketPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	sockListener, err := ipc.Acquire(ctx, socketPath, 200*time.Millisecond)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: dictated is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = sockListener.Close()
		_ = os.Remove(socketPath)
	}()

	svc, err := build(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer svc.close()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{Handler: svc.server.Handler()}
	errCh := make(chan error, 2)
	servingOn := 1

	go func() { errCh <- httpSrv.Serve(sockListener) }()

	var tcpListener net.Listener
	if cfg.HTTP.ListenAddr != "" {
		tcpListener, err = net.Listen("tcp", cfg.HTTP.ListenAddr)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: listen %s: %v\n", cfg.HTTP.ListenAddr, err)
			return 1
		}
		servingOn++
		go func() { errCh <- httpSrv.Serve(tcpListener) }()
	}

	logger.Info("daemon ready", "socket", socketPath, "tcp", cfg.HTTP.ListenAddr)

	<-runCtx.Done()
	logger.Info("daemon shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err.Error())
	}

	for i := 0; i < servingOn; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("serve error", "error", err.Error())
		}
	}

	return 0
}
