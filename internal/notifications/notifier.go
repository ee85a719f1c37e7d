// Package notifications delivers new feed items to websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"moments/internal/models"
	"moments/internal/observability"

	"github.com/redis/go-redis/v9"
)

// FeedChannel is the Redis channel new feed items are published on.
const FeedChannel = "feed:items"

// EventFeedItem is the envelope type of a feed item pushed to clients.
const EventFeedItem = "feed_item"

// FeedEvent is the JSON envelope sent over the channel and the websocket.
type FeedEvent struct {
	Type    string          `json:"type"`
	Payload models.FeedItem `json:"payload"`
}

// Notifier publishes feed items into Redis. Without Redis it delivers to
// in-process subscribers, which is enough for a single instance.
type Notifier struct {
	rdb *redis.Client

	mu     sync.RWMutex
	local  map[int]func(payload string)
	nextID int
}

// NewNotifier creates a new Notifier instance using the provided Redis client,
// which may be nil.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, local: make(map[int]func(string))}
}

// PublishFeedItem sends item to every feed subscriber.
func (n *Notifier) PublishFeedItem(ctx context.Context, item models.FeedItem) error {
	payload, err := json.Marshal(FeedEvent{Type: EventFeedItem, Payload: item})
	if err != nil {
		return fmt.Errorf("marshal feed item: %w", err)
	}
	observability.FeedItemsPublished.WithLabelValues(string(item.Type)).Inc()

	if n.rdb == nil {
		n.mu.RLock()
		handlers := make([]func(string), 0, len(n.local))
		for _, h := range n.local {
			handlers = append(handlers, h)
		}
		n.mu.RUnlock()
		for _, h := range handlers {
			safeDeliver("local feed subscriber", h, string(payload))
		}
		return nil
	}
	return n.rdb.Publish(ctx, FeedChannel, string(payload)).Err()
}

// StartFeedSubscriber calls onMessage with every published feed payload until
// ctx is done.
func (n *Notifier) StartFeedSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		n.mu.Lock()
		id := n.nextID
		n.nextID++
		n.local[id] = onMessage
		n.mu.Unlock()

		go func() {
			<-ctx.Done()
			n.mu.Lock()
			delete(n.local, id)
			n.mu.Unlock()
		}()
		return nil
	}

	sub := n.rdb.Subscribe(ctx, FeedChannel)
	// Wait for the subscription so messages published right after this call
	// are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", FeedChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				safeDeliver("feed subscriber", onMessage, msg.Payload)
			}
		}
	}()

	return nil
}

func safeDeliver(name string, handler func(string), payload string) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.Error("panic in "+name,
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	handler(payload)
}
