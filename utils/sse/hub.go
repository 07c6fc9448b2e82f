package sse

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
)

type EventType string

const (
	EventChatMessage EventType = "ChatMessage"
)

// Message is one broadcast unit. Channel names a room, e.g. "course:12".
type Message struct {
	Channel string    `json:"channel"`
	Event   EventType `json:"event"`
	Data    any       `json:"data,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	UserID   uint
	Channels map[string]bool
	Outbound chan Message
	done     chan struct{}
}

// Hub fans messages out to the clients subscribed on this process.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*Client]bool
	heartbeat     time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*Client]bool),
		heartbeat:     15 * time.Second,
	}
}

func (hub *Hub) NewClient(userID uint) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan Message, 16),
		done:     make(chan struct{}),
	}
}

func (hub *Hub) AddChannel(client *Client, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}

	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*Client]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.log.Debug("SSE client subscribed", "clientID", client.ID.String(), "channel", channel)
}

func (hub *Hub) RemoveClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Subscribers reports how many local clients listen on channel.
func (hub *Hub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

// Broadcast never blocks: a client whose buffer is full misses the message.
func (hub *Hub) Broadcast(msg Message) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Channel == "" {
		return
	}
	clientsMap, ok := hub.subscriptions[msg.Channel]
	if !ok {
		return
	}
	for c := range clientsMap {
		select {
		case c.Outbound <- msg:
		default:
			hub.log.Warn("Dropping SSE message; outbound buffer full", "clientID", c.ID.String())
		}
	}
}

// Stream writes client messages to w until ctx ends, the client is closed or a write fails.
// It is meant to run inside fiber's SetBodyStreamWriter.
func (hub *Hub) Stream(ctx context.Context, w *bufio.Writer, client *Client) {
	heartbeat := time.NewTicker(hub.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			if err := SendKeepAlive(w); err != nil {
				hub.log.Debug("SSE client went away", "clientID", client.ID.String())
				return
			}
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			if err := Send(w, Event{Event: "message", Data: msg}); err != nil {
				hub.log.Debug("SSE write failed", "clientID", client.ID.String(), "error", err)
				return
			}
		}
	}
}

func (hub *Hub) CloseClient(client *Client) {
	hub.RemoveClient(client)
	select {
	case <-client.done:
		return
	default:
	}
	close(client.done)
	close(client.Outbound)
}
