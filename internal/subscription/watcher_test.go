// Reconnect and resync tests in Wishful.

package subscription

import (
	"Wishful/internal/entity"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Server double speaking the websocket protocol and serving wishlist snapshots.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	products []entity.ProductView
	sessions int
	// X-Session-ID of every mutation
	origins []string

	conns    chan *websocket.Conn
	controls chan entity.ControlMessage
}

func newFakeServer(t *testing.T, products []entity.ProductView) *fakeServer {
	s := &fakeServer{
		products: products,
		conns:    make(chan *websocket.Conn, 4),
		controls: make(chan entity.ControlMessage, 16),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ws", s.serveWs)
	mux.HandleFunc("/api/wishlists/", s.serveWishlist)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *fakeServer) setProducts(products []entity.ProductView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
}

func (s *fakeServer) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.sessions++
	id := "s" + string(rune('0'+s.sessions))
	s.mu.Unlock()

	if err := wsjson.Write(r.Context(), conn, entity.Frame{Event: entity.FrameSession, Data: entity.SessionPayload{SessionID: id}}); err != nil {
		return
	}
	s.conns <- conn
	for {
		var msg entity.ControlMessage
		if err := wsjson.Read(r.Context(), conn, &msg); err != nil {
			return
		}
		if msg.Type == entity.JoinWishlist {
			ack := entity.Frame{Event: entity.FrameJoined, Data: entity.RoomPayload{WishlistID: msg.WishlistID}}
			if err := wsjson.Write(r.Context(), conn, ack); err != nil {
				return
			}
		}
		s.controls <- msg
	}
}

func (s *fakeServer) serveWishlist(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("access_token"); err != nil || cookie.Value != "alice" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	// wishlistId[/products[/productId[/reactions]]]
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/wishlists/"), "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Method != http.MethodGet {
		s.origins = append(s.origins, r.Header.Get(entity.SessionHeader))
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(entity.WishlistDetail{Wishlist: entity.Wishlist{ID: parts[0]}, Products: s.products})
	case len(parts) == 2 && r.Method == http.MethodPost:
		var input entity.ProductInput
		json.NewDecoder(r.Body).Decode(&input)
		p := product("p"+string(rune('0'+len(s.products)+1)), input.Name)
		s.products = append([]entity.ProductView{p}, s.products...)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(p)
	case len(parts) == 3 && r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 4 && r.Method == http.MethodPost:
		var input entity.ReactionInput
		json.NewDecoder(r.Body).Decode(&input)
		p := product(parts[2], "Reacted")
		p.Reactions = []entity.ReactionView{{ID: "r1", Emoji: input.Emoji}}
		json.NewEncoder(w).Encode(map[string]interface{}{"product": p, "added": true})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *fakeServer) nextConn(t *testing.T) *websocket.Conn {
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func (s *fakeServer) nextControl(t *testing.T) entity.ControlMessage {
	select {
	case msg := <-s.controls:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no control frame received")
		return entity.ControlMessage{}
	}
}

func newWatcher(server *fakeServer) (*Watcher, *RestClient) {
	cfg := DefaultConfig()
	cfg.URL = "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	cfg.Token = "alice"
	rest := NewRestClient(server.URL)
	rest.SetToken("alice")
	return NewWatcher(cfg, rest, 20*time.Millisecond, logger), rest
}

func productsOf(view *View, want ...string) func() bool {
	return func() bool {
		return assert.ObjectsAreEqual(want, names(view.Products())) && view.State() == Ready
	}
}

func TestWatcherFollowsAndResyncs(t *testing.T) {
	server := newFakeServer(t, []entity.ProductView{product("p1", "Mug")})
	watcher, rest := newWatcher(server)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	result := make(chan error, 1)
	go func() { result <- watcher.Run(runCtx, "w1") }()

	first := server.nextConn(t)
	assert.Equal(t, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "w1"}, server.nextControl(t))
	require.Eventually(t, productsOf(watcher.View(), "p1:Mug"), 5*time.Second, 10*time.Millisecond)

	p2 := product("p2", "Lamp")
	require.Nil(t, wsjson.Write(ctx, first, entity.Message{Event: entity.ProductAdded, Data: entity.EventPayload{WishlistID: "w1", Product: &p2}}))
	require.Eventually(t, productsOf(watcher.View(), "p2:Lamp", "p1:Mug"), 5*time.Second, 10*time.Millisecond)
	rest.mu.RLock()
	assert.Equal(t, "s1", rest.sessionID)
	rest.mu.RUnlock()

	// p3 is added while the client is away, only the resync can tell
	server.setProducts([]entity.ProductView{product("p3", "Book"), product("p2", "Lamp"), product("p1", "Mug")})
	first.Close(websocket.StatusGoingAway, "restarting")

	server.nextConn(t)
	assert.Equal(t, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "w1"}, server.nextControl(t))
	require.Eventually(t, productsOf(watcher.View(), "p3:Book", "p2:Lamp", "p1:Mug"), 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		rest.mu.RLock()
		defer rest.mu.RUnlock()
		return rest.sessionID == "s2"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-result:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher didn't stop")
	}
	assert.Equal(t, Unmounted, watcher.View().State())
}

func TestWatcherStopsWhenFirstLoadFails(t *testing.T) {
	server := newFakeServer(t, nil)
	watcher, rest := newWatcher(server)
	rest.SetToken("mallory")

	err := watcher.Run(ctx, "w1")
	require.NotNil(t, err)
	assert.Equal(t, Failed, watcher.View().State())
}

func TestWatcherRetriesDial(t *testing.T) {
	server := newFakeServer(t, []entity.ProductView{product("p1", "Mug")})
	watcher, _ := newWatcher(server)
	// Nothing listens there, every attempt fails until the context ends
	watcher.cfg.URL = "ws://127.0.0.1:1/api/ws"

	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, watcher.Run(runCtx, "w1"))
	assert.Equal(t, Unmounted, watcher.View().State())
}

func TestWatcherMergesOwnMutations(t *testing.T) {
	server := newFakeServer(t, []entity.ProductView{product("p1", "Mug")})
	watcher, _ := newWatcher(server)

	_, err := watcher.AddProduct(ctx, entity.ProductInput{Name: "Lamp"})
	assert.Equal(t, ErrNotMounted, err)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watcher.Run(runCtx, "w1")
	server.nextConn(t)
	server.nextControl(t)
	require.Eventually(t, productsOf(watcher.View(), "p1:Mug"), 5*time.Second, 10*time.Millisecond)

	// No event reaches the socket, the responses alone update the view
	added, err := watcher.AddProduct(ctx, entity.ProductInput{Name: "Lamp"})
	require.Nil(t, err)
	assert.Equal(t, "p2", added.ID)
	assert.Equal(t, []string{"p2:Lamp", "p1:Mug"}, names(watcher.View().Products()))

	_, isAdded, err := watcher.ToggleReaction(ctx, "p1", "🎉")
	require.Nil(t, err)
	assert.True(t, isAdded)
	assert.Equal(t, []string{"p2:Lamp", "p1:Reacted"}, names(watcher.View().Products()))

	require.Nil(t, watcher.DeleteProduct(ctx, "p2"))
	assert.Equal(t, []string{"p1:Reacted"}, names(watcher.View().Products()))

	server.mu.Lock()
	assert.Equal(t, []string{"s1", "s1", "s1"}, server.origins)
	server.mu.Unlock()
}
