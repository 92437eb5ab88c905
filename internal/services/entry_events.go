package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/diary-backend/internal/models"
	"github.com/AnshRaj112/diary-backend/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const (
	entryChannelPrefix  = "entries:owner:"
	entryChannelPattern = entryChannelPrefix + "*"
	subscriberBuffer    = 16
)

// EntryPublisher announces entry mutations to the owner's live subscribers.
type EntryPublisher interface {
	Publish(ctx context.Context, owner string, evt models.EntryEvent) error
}

// EntryHub is the local registry of live subscribers, keyed by owner key.
type EntryHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan models.EntryEvent]struct{}
}

func NewEntryHub() *EntryHub {
	return &EntryHub{subs: make(map[string]map[chan models.EntryEvent]struct{})}
}

// Subscribe registers a subscriber for ownerKey. The returned func unregisters it and closes the channel.
func (h *EntryHub) Subscribe(ownerKey string) (<-chan models.EntryEvent, func()) {
	ch := make(chan models.EntryEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[ownerKey] == nil {
		h.subs[ownerKey] = make(map[chan models.EntryEvent]struct{})
	}
	h.subs[ownerKey][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[ownerKey], ch)
			if len(h.subs[ownerKey]) == 0 {
				delete(h.subs, ownerKey)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// FanOut delivers evt to every local subscriber of evt.OwnerKey. Slow subscribers miss events.
func (h *EntryHub) FanOut(evt models.EntryEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[evt.OwnerKey] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// EntryBroker publishes entry events. Without Redis, events only reach this
// instance's subscribers; with Redis they reach every instance.
type EntryBroker struct {
	hub   *EntryHub
	redis *redis.Client
	log   *slog.Logger
}

func NewEntryBroker(hub *EntryHub, client *redis.Client, log *slog.Logger) *EntryBroker {
	return &EntryBroker{hub: hub, redis: client, log: log}
}

// Subscribe registers a live subscriber for owner's events.
func (b *EntryBroker) Subscribe(owner string) (<-chan models.EntryEvent, func()) {
	return b.hub.Subscribe(utils.OwnerKey(owner))
}

func (b *EntryBroker) Publish(ctx context.Context, owner string, evt models.EntryEvent) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.OwnerKey = utils.OwnerKey(owner)

	if b.redis == nil {
		b.hub.FanOut(evt)
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.redis.Publish(ctx, entryChannelPrefix+evt.OwnerKey, data).Err()
}

// Run relays Redis events to local subscribers until ctx is done. It returns
// immediately when Redis is not configured.
func (b *EntryBroker) Run(ctx context.Context) {
	if b.redis == nil {
		return
	}

	backoff := time.Second
	for ctx.Err() == nil {
		if b.relay(ctx) {
			backoff = time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

// relay consumes one subscription until it fails. It reports whether any message was received.
func (b *EntryBroker) relay(ctx context.Context) bool {
	pubsub := b.redis.PSubscribe(ctx, entryChannelPattern)
	defer pubsub.Close()

	b.log.Info("entry event subscriber started", "pattern", entryChannelPattern)

	received := false
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				b.log.Warn("entry event subscriber error", "error", err)
			}
			return received
		}
		received = true

		var evt models.EntryEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			b.log.Warn("dropping malformed entry event", "error", err)
			continue
		}
		evt.OwnerKey = strings.TrimPrefix(msg.Channel, entryChannelPrefix)
		b.hub.FanOut(evt)
	}
}
