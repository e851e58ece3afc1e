// Brokers carry published events from the notifier to the sessions of a room.

package notify

import (
	"Wishful/internal/entity"
	"Wishful/internal/room"
	"Wishful/pkg/db"
	"Wishful/pkg/log"
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Broker moves an envelope to every registry which has sessions for its room.
type Broker interface {
	// Publish hands env over for fan-out.
	Publish(ctx context.Context, env entity.Envelope) error
	// Run blocks while the broker feeds the local registry, until ctx is done or Close is called.
	Run(ctx context.Context) error
	// Close releases the broker, shaped as a cleanup.Operation.
	Close(ctx context.Context) error
}

// LocalBroker fans out inside this process only.
type LocalBroker struct {
	registry *room.Registry
}

func NewLocalBroker(registry *room.Registry) *LocalBroker {
	return &LocalBroker{registry: registry}
}

func (b *LocalBroker) Publish(ctx context.Context, env entity.Envelope) error {
	b.registry.Publish(env.Room, env.Message, env.Origin)
	return nil
}

func (b *LocalBroker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (b *LocalBroker) Close(ctx context.Context) error {
	return nil
}

// Prefix of the redis channels events travel on, one channel per wishlist.
const channelPrefix = "wishful:room:"

// RedisBroker shares the fan-out between every Wishful instance connected to the same redis.
// Each instance publishes on wishful:room:<wishlistId> and pattern-subscribes once on behalf of its local sessions.
type RedisBroker struct {
	db       *db.RedisDB
	registry *room.Registry
	logger   log.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	ready  chan struct{}
	once   sync.Once
}

func NewRedisBroker(dbwrp *db.RedisDB, registry *room.Registry, logger log.Logger) *RedisBroker {
	return &RedisBroker{db: dbwrp, registry: registry, logger: logger, ready: make(chan struct{})}
}

// Ready is closed once the subscription is confirmed by redis.
func (b *RedisBroker) Ready() <-chan struct{} {
	return b.ready
}

func (b *RedisBroker) Publish(ctx context.Context, env entity.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if dberr := b.db.Client().Publish(ctx, channelPrefix+env.Room, payload).Err(); dberr != nil {
		b.logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Publish() in notify.RedisBroker.Publish")
		return dberr
	}
	return nil
}

func (b *RedisBroker) Run(ctx context.Context) error {
	pubsub := b.db.Client().PSubscribe(ctx, channelPrefix+"*")
	// Wait for the subscription confirmation so no event published afterwards is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		b.logger.WithCtx(ctx).Error().Err(err).Msg("Error occured during execution of redis.PSubscribe() in notify.RedisBroker.Run")
		pubsub.Close()
		return err
	}
	b.mu.Lock()
	b.pubsub = pubsub
	b.mu.Unlock()
	b.once.Do(func() { close(b.ready) })
	b.logger.WithCtx(ctx).Info().Msg("Subscribed to wishlist event channels")

	// A single consumer keeps the order redis delivered the events in
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env entity.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn().Err(err).Str("Channel", msg.Channel).Msg("Dropping malformed envelope")
				continue
			}
			if env.Room == "" {
				env.Room = strings.TrimPrefix(msg.Channel, channelPrefix)
			}
			b.registry.Publish(env.Room, env.Message, env.Origin)
		}
	}
}

func (b *RedisBroker) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub == nil {
		return nil
	}
	err := b.pubsub.Close()
	b.pubsub = nil
	return err
}
