// Package realtime moves chat messages between API replicas so every
// process can push them to its own SSE subscribers.
package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/sahilchouksey/course-marketplace/utils/sse"
)

var errNoHandler = errors.New("onMsg callback required")

type Bus interface {
	Publish(ctx context.Context, msg sse.Message) error
	StartForwarder(ctx context.Context, onMsg func(m sse.Message)) error
	Close() error
}

// localBus delivers in-process. Used for a single replica and in tests.
type localBus struct {
	mu       sync.RWMutex
	handlers []func(sse.Message)
}

func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(_ context.Context, msg sse.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onMsg func(m sse.Message)) error {
	if onMsg == nil {
		return errNoHandler
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
