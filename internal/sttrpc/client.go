package sttrpc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// speechPhraseMetadataKey carries vocabulary-boost phrases as gRPC
// request metadata rather than as stream message fields: the service
// descriptor below has no generated config message to put them in (no
// model .proto files were retrieved with the pack), and metadata is the
// standard place a streaming gRPC client attaches per-call recognition
// parameters that aren't part of the audio payload itself.
const speechPhraseMetadataKey = "x-dictate-speech-phrase"

// SpeechPhrase is one vocabulary boost phrase in request-ready form.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}

// Config controls how a Stream dials and times out against the STT
// endpoint.
type Config struct {
	Endpoint    string
	DialTimeout time.Duration
	Phrases     []SpeechPhrase
}

// speechContextMetadata encodes phrases as repeated "phrase;boost"
// metadata values, one per phrase, skipping blanks.
func speechContextMetadata(phrases []SpeechPhrase) metadata.MD {
	if len(phrases) == 0 {
		return nil
	}
	md := metadata.MD{}
	for _, p := range phrases {
		phrase := strings.TrimSpace(p.Phrase)
		if phrase == "" {
			continue
		}
		md.Append(speechPhraseMetadataKey, phrase+";"+strconv.FormatFloat(float64(p.Boost), 'g', -1, 32))
	}
	if len(md) == 0 {
		return nil
	}
	return md
}

// Stream wraps one Transcribe RPC lifecycle: many SendAudio calls
// followed by exactly one CloseAndCollect.
type Stream struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
	cancel context.CancelFunc

	mu         sync.Mutex
	closedSend bool
}

// DialStream opens a connection to cfg.Endpoint and starts a Transcribe
// stream on it.
func DialStream(ctx context.Context, cfg Config) (*Stream, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("stt endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial stt grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for stt grpc readiness: %w", err)
	}

	streamCtx, streamCancel := context.WithCancel(ctx)
	if md := speechContextMetadata(cfg.Phrases); md != nil {
		streamCtx = metadata.NewOutgoingContext(streamCtx, md)
	}
	desc := ServiceDesc.Streams[0]
	clientStream, err := openStreamWithTimeout(streamCtx, cfg.DialTimeout, func() (grpc.ClientStream, error) {
		return conn.NewStream(streamCtx, &desc, FullMethod)
	})
	if err != nil {
		streamCancel()
		_ = conn.Close()
		return nil, fmt.Errorf("open transcribe stream: %w", err)
	}

	return &Stream{conn: conn, stream: clientStream, cancel: streamCancel}, nil
}

// SendAudio sends one chunk of a persisted recording's raw bytes.
func (s *Stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	closed := s.closedSend
	s.mu.Unlock()
	if closed {
		return errors.New("stream already closed for sending")
	}

	return s.stream.SendMsg(wrapperspb.Bytes(chunk))
}

// CloseAndCollect closes the send side and returns the single transcript
// the server replies with.
func (s *Stream) CloseAndCollect() (string, error) {
	s.mu.Lock()
	if !s.closedSend {
		s.closedSend = true
		_ = s.stream.CloseSend()
	}
	s.mu.Unlock()

	defer func() {
		if s.cancel != nil {
			s.cancel()
		}
		_ = s.conn.Close()
	}()

	var resp wrapperspb.StringValue
	if err := s.stream.RecvMsg(&resp); err != nil {
		return "", err
	}
	return resp.GetValue(), nil
}

// Cancel aborts the stream and closes the underlying connection.
func (s *Stream) Cancel() error {
	s.mu.Lock()
	s.closedSend = true
	s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return s.conn.Close()
}
