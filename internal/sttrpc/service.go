// Package sttrpc is the wire-level gRPC client for the speech-to-text
// port: stream a persisted recording's bytes up in chunks, and receive
// one final transcript back. No protoc-generated stubs exist for this
// service, so the descriptor and the server-side stream wrapper below
// are hand-written the way protoc-gen-go-grpc would emit them, using
// protobuf's pre-generated wrapper types as the wire messages.
package sttrpc

import (
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName = "dictate.stt.v1.Transcriber"
	streamName  = "Transcribe"
)

// FullMethod is the fully qualified RPC name used by both client and
// server registration.
var FullMethod = "/" + serviceName + "/" + streamName

// TranscriberServer is implemented by the STT adapter's server side (used
// only in tests here; production traffic terminates in a real STT
// service speaking this same wire contract).
type TranscriberServer interface {
	Transcribe(stream grpc.ClientStreamingServer[wrapperspb.BytesValue, wrapperspb.StringValue]) error
}

// ServiceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would generate for a single client-streaming RPC: many BytesValue
// chunks in, one StringValue transcript out.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TranscriberServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamName,
			Handler:       transcribeHandler,
			ClientStreams: true,
		},
	},
	Metadata: "dictate/sttrpc/transcribe.proto",
}

func transcribeHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TranscriberServer).Transcribe(&transcribeServerStream{stream})
}

type transcribeServerStream struct {
	grpc.ServerStream
}

func (x *transcribeServerStream) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *transcribeServerStream) SendAndClose(m *wrapperspb.StringValue) error {
	return x.ServerStream.SendMsg(m)
}
