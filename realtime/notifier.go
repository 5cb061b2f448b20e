// Package realtime fans status changes out over Redis pub/sub so every API
// instance can push them to its connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"dodje/logger"
	"dodje/progression"
)

// Message is the wire form of one status change.
type Message struct {
	ID    string                  `json:"id"`
	Event progression.StatusEvent `json:"event"`
}

// Bus publishes status events and forwards the ones published by any
// instance to a local callback.
type Bus interface {
	progression.Notifier
	StartForwarder(ctx context.Context, onEvent func(Message)) error
	Close() error
}

type redisBus struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

// NewBus connects to Redis at addr. An empty addr yields an in-process bus,
// which is enough for a single instance.
func NewBus(addr, channel string, log *logger.Logger) (Bus, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		log.Info("REDIS_ADDR not set, status changes stay in process")
		return &localBus{}, nil
	}
	if strings.TrimSpace(channel) == "" {
		channel = "progression"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	return &redisBus{
		log:     log.With("service", "RedisBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, ev progression.StatusEvent) error {
	raw, err := Encode(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onEvent func(Message)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return errors.Wrap(err, "redis subscribe")
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				msg, err := Decode([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis status payload", "error", err)
					continue
				}
				onEvent(msg)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

// Encode wraps ev in a Message with a fresh id.
func Encode(ev progression.StatusEvent) ([]byte, error) {
	raw, err := json.Marshal(Message{ID: uuid.NewString(), Event: ev})
	if err != nil {
		return nil, errors.Wrap(err, "encode status event")
	}
	return raw, nil
}

func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, errors.Wrap(err, "decode status event")
	}
	if msg.Event.UserID == "" || !msg.Event.Kind.Valid() {
		return Message{}, errors.New("decode status event: missing user or kind")
	}
	return msg, nil
}

// localBus hands every published event straight to the forwarder callback.
type localBus struct {
	mu    sync.RWMutex
	onMsg func(Message)
}

func (b *localBus) Publish(_ context.Context, ev progression.StatusEvent) error {
	b.mu.RLock()
	onMsg := b.onMsg
	b.mu.RUnlock()
	if onMsg == nil {
		return nil
	}
	onMsg(Message{ID: uuid.NewString(), Event: ev})
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onEvent func(Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onMsg = onEvent
	return nil
}

func (b *localBus) Close() error { return nil }
