// View keeps the product list of one open wishlist in sync with the server.

package subscription

import (
	"Wishful/internal/entity"
	"context"
	"errors"
	"sync"
)

// ViewState is the lifecycle of a View.
type ViewState int

const (
	// Unmounted views hold no state and ignore events.
	Unmounted ViewState = iota
	// Loading views joined the room and wait for the snapshot, events are buffered.
	Loading
	// Ready views apply events as they come.
	Ready
	// Failed views couldn't load, a fresh View has to be built.
	Failed
)

func (s ViewState) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrViewFailed is returned by Mount on a view whose load failed.
	ErrViewFailed = errors.New("view failed to load, build a new one")
	// ErrAlreadyMounted is returned by Mount on a mounted view.
	ErrAlreadyMounted = errors.New("view is already mounted")
	// ErrUnmounted is returned by Mount when the view was unmounted before the load completed.
	ErrUnmounted = errors.New("view was unmounted while loading")
)

// Joiner sends room control frames, implemented by Conn.
type Joiner interface {
	Join(ctx context.Context, wishlistID string) error
	Leave(ctx context.Context, wishlistID string) error
}

// Fetcher loads the current state of a wishlist, implemented by RestClient.
type Fetcher interface {
	FetchWishlist(ctx context.Context, wishlistID string) (entity.WishlistDetail, error)
}

// View is the client side of one open wishlist.
type View struct {
	joiner  Joiner
	fetcher Fetcher

	mu         sync.Mutex
	state      ViewState
	wishlistID string
	wishlist   entity.Wishlist
	products   []entity.ProductView
	// Events received while Loading, applied on top of the snapshot
	buffered []entity.Message
	// Bumped by every load and unmount so a stale fetch can't overwrite newer state
	generation int
	onChange   func([]entity.ProductView)
	err        error
}

func NewView(joiner Joiner, fetcher Fetcher) *View {
	return &View{joiner: joiner, fetcher: fetcher}
}

// OnChange registers fn, called with a copy of the products after every change.
func (v *View) OnChange(fn func([]entity.ProductView)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

// Mount joins the room of wishlistID then fetches its products.
// Joining first means no event can fall between the snapshot and the subscription.
func (v *View) Mount(ctx context.Context, wishlistID string) error {
	v.mu.Lock()
	switch v.state {
	case Failed:
		v.mu.Unlock()
		return ErrViewFailed
	case Loading, Ready:
		v.mu.Unlock()
		return ErrAlreadyMounted
	}
	v.wishlistID = wishlistID
	v.mu.Unlock()
	return v.load(ctx, true)
}

// Resync reloads the mounted wishlist, used after the transport reconnected since missed events are lost.
// A failed resync leaves the view Loading so that it can be retried.
func (v *View) Resync(ctx context.Context) error {
	v.mu.Lock()
	if v.state != Ready && v.state != Loading {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()
	return v.load(ctx, false)
}

func (v *View) load(ctx context.Context, initial bool) error {
	v.mu.Lock()
	v.state = Loading
	v.buffered = nil
	v.generation++
	generation, wishlistID := v.generation, v.wishlistID
	v.mu.Unlock()

	if err := v.joiner.Join(ctx, wishlistID); err != nil {
		return v.fail(generation, initial, err)
	}
	v.mu.Lock()
	abandoned := v.abandoned(generation, wishlistID)
	v.mu.Unlock()
	if abandoned {
		// Unmount already sent its leave, this join came after it
		if err := v.joiner.Leave(ctx, wishlistID); err != nil {
			return err
		}
		return ErrUnmounted
	}

	detail, err := v.fetcher.FetchWishlist(ctx, wishlistID)
	if err != nil {
		return v.fail(generation, initial, err)
	}

	v.mu.Lock()
	if v.generation != generation {
		abandoned := v.abandoned(generation, wishlistID)
		v.mu.Unlock()
		if abandoned {
			return ErrUnmounted
		}
		// A newer load of the same wishlist owns the state
		return nil
	}
	products := detail.Products
	for _, msg := range v.buffered {
		products = Apply(products, msg)
	}
	v.wishlist = detail.Wishlist
	v.products = products
	v.buffered = nil
	v.err = nil
	v.state = Ready
	notify := v.changed()
	v.mu.Unlock()
	notify()
	return nil
}

// abandoned reports whether the load of generation no longer has a view wanting wishlistID, mu must be held.
func (v *View) abandoned(generation int, wishlistID string) bool {
	if v.generation == generation {
		return false
	}
	return v.state == Unmounted || v.state == Failed || v.wishlistID != wishlistID
}

func (v *View) fail(generation int, initial bool, err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = err
	if initial && v.generation == generation {
		v.state = Failed
		v.products = nil
		v.buffered = nil
	}
	return err
}

// Unmount leaves the room and discards local state.
func (v *View) Unmount(ctx context.Context) error {
	v.mu.Lock()
	if v.state == Unmounted {
		v.mu.Unlock()
		return nil
	}
	wishlistID := v.wishlistID
	v.state = Unmounted
	v.generation++
	v.wishlistID = ""
	v.wishlist = entity.Wishlist{}
	v.products = nil
	v.buffered = nil
	v.err = nil
	v.mu.Unlock()
	return v.joiner.Leave(ctx, wishlistID)
}

// Handle merges msg, events of other wishlists are ignored.
func (v *View) Handle(msg entity.Message) {
	v.merge(msg)
}

// ApplyLocal merges the outcome of a mutation made by this client.
// The server doesn't echo it to the session which made it, so the caller feeds it here.
func (v *View) ApplyLocal(msg entity.Message) {
	v.merge(msg)
}

func (v *View) merge(msg entity.Message) {
	v.mu.Lock()
	if msg.Data.WishlistID != v.wishlistID {
		v.mu.Unlock()
		return
	}
	switch v.state {
	case Loading:
		v.buffered = append(v.buffered, msg)
		v.mu.Unlock()
	case Ready:
		v.products = Apply(v.products, msg)
		notify := v.changed()
		v.mu.Unlock()
		notify()
	default:
		v.mu.Unlock()
	}
}

// changed must be called with mu held, the returned func runs the callback outside of it.
func (v *View) changed() func() {
	fn := v.onChange
	if fn == nil {
		return func() {}
	}
	products := v.snapshot()
	return func() { fn(products) }
}

func (v *View) snapshot() []entity.ProductView {
	products := make([]entity.ProductView, len(v.products))
	copy(products, v.products)
	return products
}

// Products returns a copy of the local product list.
func (v *View) Products() []entity.ProductView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

// State returns the lifecycle state of the view.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// WishlistID returns the id of the mounted wishlist, empty when unmounted.
func (v *View) WishlistID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wishlistID
}

// Wishlist returns the wishlist loaded by the last successful fetch.
func (v *View) Wishlist() entity.Wishlist {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wishlist
}

// Err returns why the view failed.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}
