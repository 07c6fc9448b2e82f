package realtime

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-marketplace/utils/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBusDeliversToForwarders(t *testing.T) {
	bus := NewLocalBus()
	ctx := context.Background()

	var got []sse.Message
	require.NoError(t, bus.StartForwarder(ctx, func(m sse.Message) { got = append(got, m) }))
	assert.Error(t, bus.StartForwarder(ctx, nil))

	require.NoError(t, bus.Publish(ctx, sse.Message{Channel: "course:1", Event: sse.EventChatMessage}))
	require.Len(t, got, 1)
	assert.Equal(t, "course:1", got[0].Channel)
	assert.NoError(t, bus.Close())
}
