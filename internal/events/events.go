// Package events carries catalog change notifications over Redis pub/sub.
package events

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"catalog-service/internal/logging"
)

// DefaultChannel is the pub/sub channel the realtime hub listens on.
const DefaultChannel = "broadcast"

const (
	TrackAdded    = "track.added"
	TrackUpdated  = "track.updated"
	TrackDeleted  = "track.deleted"
	CatalogLoaded = "catalog.loaded"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Publisher struct {
	rdb     *redis.Client
	channel string
}

func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	if err := p.rdb.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe forwards every message on channel to deliver until ctx is done.
func Subscribe(ctx context.Context, rdb *redis.Client, channel string, deliver func([]byte)) error {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so callers can publish right after.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	logging.Info().Str("channel", channel).Msg("events: subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			deliver([]byte(msg.Payload))
		}
	}
}
