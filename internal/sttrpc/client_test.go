package sttrpc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeTranscriber struct {
	transcript string
	streamErr  error

	received     bytes.Buffer
	receivedMeta metadata.MD
}

func (f *fakeTranscriber) Transcribe(stream grpc.ClientStreamingServer[wrapperspb.BytesValue, wrapperspb.StringValue]) error {
	if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
		f.receivedMeta = md
	}
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		f.received.Write(chunk.GetValue())
	}
	if f.streamErr != nil {
		return f.streamErr
	}
	return stream.SendAndClose(wrapperspb.String(f.transcript))
}

func startTestServer(t *testing.T, impl TranscriberServer) (string, func()) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	grpcServer.RegisterService(&ServiceDesc, impl)

	go func() { _ = grpcServer.Serve(lis) }()

	return lis.Addr().String(), func() {
		grpcServer.Stop()
		_ = lis.Close()
	}
}

func TestDialStreamSendsChunksAndCollectsTranscript(t *testing.T) {
	srv := &fakeTranscriber{transcript: "hello world"}
	endpoint, shutdown := startTestServer(t, srv)
	defer shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, Config{Endpoint: endpoint, DialTimeout: 2 * time.Second})
	require.NoError(t, err)

	require.NoError(t, stream.SendAudio([]byte("abc")))
	require.NoError(t, stream.SendAudio([]byte("def")))
	require.NoError(t, stream.SendAudio(nil))

	text, err := stream.CloseAndCollect()
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
	require.Equal(t, "abcdef", srv.received.String())
}

func TestDialStreamCarriesSpeechPhrasesAsMetadata(t *testing.T) {
	srv := &fakeTranscriber{transcript: "hello"}
	endpoint, shutdown := startTestServer(t, srv)
	defer shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, Config{
		Endpoint:    endpoint,
		DialTimeout: 2 * time.Second,
		Phrases: []SpeechPhrase{
			{Phrase: "kubernetes", Boost: 15},
			{Phrase: "  ", Boost: 10}, // blank, skipped
			{Phrase: "postgres", Boost: 10},
		},
	})
	require.NoError(t, err)

	require.NoError(t, stream.SendAudio([]byte("abc")))
	_, err = stream.CloseAndCollect()
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"kubernetes;15", "postgres;10"}, srv.receivedMeta.Get(speechPhraseMetadataKey))
}

func TestDialStreamEmptyEndpoint(t *testing.T) {
	_, err := DialStream(context.Background(), Config{Endpoint: "   "})
	require.Error(t, err)
	require.Contains(t, err.Error(), "endpoint is empty")
}

func TestDialStreamReadinessTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := DialStream(ctx, Config{Endpoint: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	require.Contains(t, err.Error(), "readiness")
}

func TestSendAudioAfterCloseReturnsError(t *testing.T) {
	srv := &fakeTranscriber{transcript: "ok"}
	endpoint, shutdown := startTestServer(t, srv)
	defer shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, Config{Endpoint: endpoint, DialTimeout: time.Second})
	require.NoError(t, err)

	_, err = stream.CloseAndCollect()
	require.NoError(t, err)

	err = stream.SendAudio([]byte("too late"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "closed")
}

func TestCancelClosesConnection(t *testing.T) {
	srv := &fakeTranscriber{transcript: "ok"}
	endpoint, shutdown := startTestServer(t, srv)
	defer shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	stream, err := DialStream(ctx, Config{Endpoint: endpoint, DialTimeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, stream.Cancel())
}
