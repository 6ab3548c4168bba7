package model

import "context"

// Sink receives task results produced by the scheduler.
type Sink interface {
	Write(ctx context.Context, result TaskResult) error
}

type SinkCloser interface {
	Sink
	Close() error
}
