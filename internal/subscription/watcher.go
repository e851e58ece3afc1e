// Watcher keeps a View subscribed across websocket reconnects.

package subscription

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotMounted is returned by the mutations of a Watcher whose view holds no wishlist.
var ErrNotMounted = errors.New("no wishlist is mounted")

// Watcher glues a Conn and a View and redials when the connection drops.
type Watcher struct {
	cfg         Config
	rest        *RestClient
	view        *View
	redialDelay time.Duration
	logger      log.Logger

	mu   sync.Mutex
	conn *Conn
	// Optional hook for server error frames
	onError func(entity.ErrorPayload)
}

// NewWatcher builds a watcher whose view fetches through rest.
func NewWatcher(cfg Config, rest *RestClient, redialDelay time.Duration, logger log.Logger) *Watcher {
	w := &Watcher{cfg: cfg, rest: rest, redialDelay: redialDelay, logger: logger}
	w.view = NewView(w, rest)
	return w
}

// View returns the view the watcher keeps in sync.
func (w *Watcher) View() *View {
	return w.view
}

// OnError registers fn for the error frames of the server.
func (w *Watcher) OnError(fn func(entity.ErrorPayload)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Join implements Joiner on whatever connection is current.
func (w *Watcher) Join(ctx context.Context, wishlistID string) error {
	return w.current().Join(ctx, wishlistID)
}

// Leave implements Joiner on whatever connection is current.
func (w *Watcher) Leave(ctx context.Context, wishlistID string) error {
	return w.current().Leave(ctx, wishlistID)
}

func (w *Watcher) current() *Conn {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		// Never dialed, every send fails with ErrNotConnected
		return NewConn(w.cfg, w.logger)
	}
	return w.conn
}

func (w *Watcher) dial(ctx context.Context) (*Conn, error) {
	conn := NewConn(w.cfg, w.logger)
	conn.OnEvent(w.view.Handle)
	conn.OnSession(w.rest.SetSessionID)
	conn.OnError(func(payload entity.ErrorPayload) {
		w.logger.Warn().Str("Wishlist", payload.WishlistID).Msg("Server refused: " + payload.Message)
		w.mu.Lock()
		fn := w.onError
		w.mu.Unlock()
		if fn != nil {
			fn(payload)
		}
	})
	if err := conn.Dial(ctx); err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	return conn, nil
}

// Run mounts wishlistID and keeps it in sync until ctx is done.
// The first load failing ends Run, later drops are redialed after redialDelay and resynced.
func (w *Watcher) Run(ctx context.Context, wishlistID string) error {
	mounted := false
	for {
		conn, err := w.dial(ctx)
		if err != nil {
			w.logger.Warn().Err(err).Msg("Couldn't connect, retrying")
		} else {
			if !mounted {
				if err := w.view.Mount(ctx, wishlistID); err != nil {
					conn.Close()
					return err
				}
				mounted = true
			} else if err := w.view.Resync(ctx); err != nil {
				w.logger.Warn().Err(err).Msg("Couldn't resync, reconnecting")
				conn.Close()
			}

			select {
			case <-conn.Done():
				w.logger.Info().Msg("Connection lost, reconnecting")
			case <-ctx.Done():
				w.view.Unmount(context.Background())
				conn.Close()
				return ctx.Err()
			}
		}

		select {
		case <-time.After(w.redialDelay):
		case <-ctx.Done():
			if mounted {
				w.view.Unmount(context.Background())
			}
			return ctx.Err()
		}
	}
}

// The mutations below go through the REST client and merge the answer into the view,
// since the server skips the session which made a change when it fans it out.

func (w *Watcher) mounted() (string, error) {
	wishlistID := w.view.WishlistID()
	if wishlistID == "" {
		return "", ErrNotMounted
	}
	return wishlistID, nil
}

func (w *Watcher) applyProduct(wishlistID string, kind entity.EventKind, product entity.ProductView) {
	w.view.ApplyLocal(entity.Message{Event: kind, Data: entity.EventPayload{WishlistID: wishlistID, Product: &product}})
}

// AddProduct adds a product to the mounted wishlist.
func (w *Watcher) AddProduct(ctx context.Context, input entity.ProductInput) (entity.ProductView, error) {
	wishlistID, err := w.mounted()
	if err != nil {
		return entity.ProductView{}, err
	}
	product, err := w.rest.AddProduct(ctx, wishlistID, input)
	if err != nil {
		return product, err
	}
	w.applyProduct(wishlistID, entity.ProductAdded, product)
	return product, nil
}

// UpdateProduct edits a product of the mounted wishlist.
func (w *Watcher) UpdateProduct(ctx context.Context, productID string, input entity.ProductInput) (entity.ProductView, error) {
	wishlistID, err := w.mounted()
	if err != nil {
		return entity.ProductView{}, err
	}
	product, err := w.rest.UpdateProduct(ctx, wishlistID, productID, input)
	if err != nil {
		return product, err
	}
	w.applyProduct(wishlistID, entity.ProductUpdated, product)
	return product, nil
}

// DeleteProduct removes a product of the mounted wishlist.
func (w *Watcher) DeleteProduct(ctx context.Context, productID string) error {
	wishlistID, err := w.mounted()
	if err != nil {
		return err
	}
	if err := w.rest.DeleteProduct(ctx, wishlistID, productID); err != nil {
		return err
	}
	w.view.ApplyLocal(entity.Message{Event: entity.ProductDeleted, Data: entity.EventPayload{WishlistID: wishlistID, ProductID: productID}})
	return nil
}

// AddComment comments on a product of the mounted wishlist.
func (w *Watcher) AddComment(ctx context.Context, productID, text string) (entity.ProductView, error) {
	wishlistID, err := w.mounted()
	if err != nil {
		return entity.ProductView{}, err
	}
	product, err := w.rest.AddComment(ctx, wishlistID, productID, text)
	if err != nil {
		return product, err
	}
	w.applyProduct(wishlistID, entity.CommentAdded, product)
	return product, nil
}

// ToggleReaction toggles emoji on a product of the mounted wishlist, added tells which way it went.
func (w *Watcher) ToggleReaction(ctx context.Context, productID, emoji string) (product entity.ProductView, added bool, err error) {
	wishlistID, err := w.mounted()
	if err != nil {
		return entity.ProductView{}, false, err
	}
	product, added, err = w.rest.ToggleReaction(ctx, wishlistID, productID, emoji)
	if err != nil {
		return product, added, err
	}
	kind := entity.ReactionRemoved
	if added {
		kind = entity.ReactionAdded
	}
	w.applyProduct(wishlistID, kind, product)
	return product, added, nil
}
