// Change notifier turns committed mutations into realtime events.

package notify

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"context"
)

// Notifier is invoked by mutation handlers strictly after the storage write committed.
// It never reports failure, a lost event must not undo a committed mutation.
type Notifier interface {
	// Notify publishes an event of kind carrying the populated product.
	Notify(ctx context.Context, kind entity.EventKind, product entity.Product, origin string)
	// NotifyDeleted publishes product-deleted carrying only the product id.
	NotifyDeleted(ctx context.Context, wishlistID, productID, origin string)
}

type notifier struct {
	broker    Broker
	projector *Projector
	logger    log.Logger
}

// origin is the session id of the mutating client, empty when unknown.
func NewNotifier(broker Broker, projector *Projector, logger log.Logger) Notifier {
	return notifier{broker: broker, projector: projector, logger: logger}
}

func (n notifier) Notify(ctx context.Context, kind entity.EventKind, product entity.Product, origin string) {
	if !kind.CarriesProduct() {
		n.logger.WithCtx(ctx).Error().Str("Event", string(kind)).Msg("Event kind doesn't carry a product, not published")
		return
	}
	view := n.projector.Project(ctx, product)
	n.publish(ctx, entity.Message{
		Event: kind,
		Data:  entity.EventPayload{WishlistID: product.WishlistID, Product: &view},
	}, origin)
}

func (n notifier) NotifyDeleted(ctx context.Context, wishlistID, productID, origin string) {
	n.publish(ctx, entity.Message{
		Event: entity.ProductDeleted,
		Data:  entity.EventPayload{WishlistID: wishlistID, ProductID: productID},
	}, origin)
}

func (n notifier) publish(ctx context.Context, msg entity.Message, origin string) {
	env := entity.Envelope{Room: msg.Data.WishlistID, Origin: origin, Message: msg}
	if err := n.broker.Publish(ctx, env); err != nil {
		// Best effort, viewers resync on their next fetch
		n.logger.WithCtx(ctx).Error().Err(err).Str("Event", string(msg.Event)).Str("WishlistID", env.Room).Msg("Couldn't publish event")
		return
	}
	n.logger.WithCtx(ctx).Debug().Str("Event", string(msg.Event)).Str("WishlistID", env.Room).Str("Origin", origin).Msg("Event published")
}
