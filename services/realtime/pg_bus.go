package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/sse"
	"gorm.io/gorm"
)

// pgBus uses LISTEN/NOTIFY so replicas can share chat without Redis.
// NOTIFY payloads are capped at 8000 bytes; chat messages are limited well below that.
type pgBus struct {
	log      *logger.Logger
	db       *gorm.DB
	listener *pq.Listener
	channel  string
}

func NewPostgresBus(db *gorm.DB, dsn string, log *logger.Logger) (Bus, error) {
	log = log.With("service", "PostgresChatBus")
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn("postgres listener event", "event", int(ev), "error", err)
		}
	})
	if err := listener.Listen(defaultChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("pq listen: %w", err)
	}
	return &pgBus{log: log, db: db, listener: listener, channel: defaultChannel}, nil
}

func (b *pgBus) Publish(ctx context.Context, msg sse.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", b.channel, string(raw)).Error
}

func (b *pgBus) StartForwarder(ctx context.Context, onMsg func(m sse.Message)) error {
	if onMsg == nil {
		return errNoHandler
	}

	go func() {
		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-b.listener.Notify:
				if !ok {
					return
				}
				// nil after a reconnect
				if n == nil {
					continue
				}
				var msg sse.Message
				if err := json.Unmarshal([]byte(n.Extra), &msg); err != nil {
					b.log.Warn("bad postgres chat payload", "error", err)
					continue
				}
				onMsg(msg)
			case <-ping.C:
				go func() { _ = b.listener.Ping() }()
			}
		}
	}()
	return nil
}

func (b *pgBus) Close() error {
	return b.listener.Close()
}
