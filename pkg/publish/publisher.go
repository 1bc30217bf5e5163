// Package publish emits typed events to per-user private destinations.
// Every event is addressed to exactly one user's channel; there is no
// shared broadcast surface for subscribers to filter.
package publish

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ridgeline-homes/portalchat/pkg/events"
)

// Destination is the private pub/sub channel name for a user. Stable and
// derived only from the user's identity.
func Destination(userID string) string {
	return "private-" + userID
}

// Broker is the external pub/sub capability: deliver a frame to a named
// destination, at-least-once, with no cross-channel leakage.
type Broker interface {
	Publish(ctx context.Context, destination string, frame []byte) error
}

// RedisBroker publishes frames over Redis pub/sub.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Publish(ctx context.Context, destination string, frame []byte) error {
	return b.rdb.Publish(ctx, destination, frame).Err()
}

// Publisher wraps a broker with event encoding and the fire-and-forget
// contract: transport failures are logged and swallowed so they can
// never abort the caller's primary write.
type Publisher struct {
	broker Broker
	log    *zap.Logger
}

func New(broker Broker, log *zap.Logger) *Publisher {
	return &Publisher{broker: broker, log: log}
}

// Publish delivers one event to one user's private destination. Errors
// are not returned: delivery is an enhancement over polling, the
// committed rows remain ground truth.
func (p *Publisher) Publish(ctx context.Context, userID string, kind events.Kind, payload any) {
	frame, err := events.Marshal(kind, payload)
	if err != nil {
		p.log.Error("encode event", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	dest := Destination(userID)
	if err := p.broker.Publish(ctx, dest, frame); err != nil {
		p.log.Warn("publish event",
			zap.String("kind", string(kind)),
			zap.String("destination", dest),
			zap.Error(err),
		)
	}
}

// PublishAll delivers one event to each destination.
func (p *Publisher) PublishAll(ctx context.Context, userIDs []string, kind events.Kind, payload any) {
	for _, id := range userIDs {
		p.Publish(ctx, id, kind, payload)
	}
}
