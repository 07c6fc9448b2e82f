package sse

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvMessage(t *testing.T, ch <-chan Message, timeout time.Duration) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return Message{}
}

func TestHubBroadcastOnlyToRoom(t *testing.T) {
	hub := NewHub(logger.Nop())

	a := hub.NewClient(1)
	b := hub.NewClient(2)
	hub.AddChannel(a, "course:1")
	hub.AddChannel(b, "course:2")
	assert.Equal(t, 1, hub.Subscribers("course:1"))

	hub.Broadcast(Message{Channel: "course:1", Event: EventChatMessage, Data: map[string]any{"seq": 1}})
	hub.Broadcast(Message{Channel: "course:1", Event: EventChatMessage, Data: map[string]any{"seq": 2}})

	first := recvMessage(t, a.Outbound, time.Second)
	second := recvMessage(t, a.Outbound, time.Second)
	assert.Equal(t, 1, first.Data.(map[string]any)["seq"])
	assert.Equal(t, 2, second.Data.(map[string]any)["seq"])

	select {
	case <-b.Outbound:
		t.Fatal("client in another room must not receive the message")
	default:
	}
}

func TestHubCloseClient(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient(1)
	hub.AddChannel(c, "course:9")

	hub.CloseClient(c)
	hub.CloseClient(c)
	assert.Equal(t, 0, hub.Subscribers("course:9"))

	_, ok := <-c.Outbound
	assert.False(t, ok)

	// broadcasting after close must not panic
	hub.Broadcast(Message{Channel: "course:9", Event: EventChatMessage})
}

func TestStreamWritesEvents(t *testing.T) {
	hub := NewHub(logger.Nop())
	c := hub.NewClient(1)
	hub.AddChannel(c, "course:3")

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hub.Stream(ctx, w, c)
		close(done)
	}()

	hub.Broadcast(Message{Channel: "course:3", Event: EventChatMessage, Data: "hello"})
	require.Eventually(t, func() bool { return len(c.Outbound) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	out := buf.String()
	assert.True(t, strings.Contains(out, "event: message"))
	assert.Contains(t, out, `"channel":"course:3"`)
}
