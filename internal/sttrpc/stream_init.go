package sttrpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
)

type openResult struct {
	stream grpc.ClientStream
	err    error
}

func openStreamWithTimeout(ctx context.Context, timeout time.Duration, open func() (grpc.ClientStream, error)) (grpc.ClientStream, error) {
	if timeout <= 0 {
		return open()
	}

	resultCh := make(chan openResult, 1)
	go func() {
		stream, err := open()
		resultCh <- openResult{stream: stream, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("timed out after %s", timeout)
	case result := <-resultCh:
		return result.stream, result.err
	}
}
