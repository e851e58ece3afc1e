// Room registry tests in Wishful.

package room

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global instance of log.Logger to be used during registry testing.
var logger log.Logger = log.NewWithWriter("test", io.Discard)

// Session double which records every delivered message.
type fakeSession struct {
	id    string
	inbox chan entity.Message
}

func newFakeSession(id string, capacity int) *fakeSession {
	return &fakeSession{id: id, inbox: make(chan entity.Message, capacity)}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Deliver(msg entity.Message) bool {
	select {
	case s.inbox <- msg:
		return true
	default:
		return false
	}
}

// Drains everything delivered so far.
func (s *fakeSession) received() []entity.Message {
	var msgs []entity.Message
	for {
		select {
		case msg := <-s.inbox:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// Session double opened by a user.
type userSession struct {
	*fakeSession
	username string
}

func (s userSession) Username() string { return s.username }

// Observer double counting publishes.
type countingObserver struct {
	mu        sync.Mutex
	delivered int
	dropped   int
	calls     int
}

func (o *countingObserver) Published(room string, kind entity.EventKind, delivered, dropped int, took time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	o.delivered += delivered
	o.dropped += dropped
}

func addedEvent(wishlistID, productID string) entity.Message {
	return entity.Message{
		Event: entity.ProductAdded,
		Data: entity.EventPayload{
			WishlistID: wishlistID,
			Product:    &entity.ProductView{ID: productID, WishlistID: wishlistID, Name: "Mug", Price: 5},
		},
	}
}

func TestJoinThenPublishDelivers(t *testing.T) {
	registry := NewRegistry(logger)
	a := newFakeSession("a", 8)

	registry.Join("w1", a)
	delivered := registry.Publish("w1", addedEvent("w1", "p1"), "")

	assert.Equal(t, 1, delivered)
	msgs := a.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.ProductAdded, msgs[0].Event)
	assert.Equal(t, "w1", msgs[0].Data.WishlistID)
	assert.Equal(t, "p1", msgs[0].Data.Product.ID)
}

func TestLeaveBeforePublish(t *testing.T) {
	registry := NewRegistry(logger)
	a := newFakeSession("a", 8)

	registry.Join("w1", a)
	registry.Leave("w1", a)
	registry.Publish("w1", addedEvent("w1", "p1"), "")

	assert.Empty(t, a.received())
	// Empty rooms are pruned right away
	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, 0, registry.Sessions())
}

func TestJoinAndLeaveAreIdempotent(t *testing.T) {
	registry := NewRegistry(logger)
	a := newFakeSession("a", 8)

	// Leaving a room which doesn't exist is fine
	registry.Leave("w1", a)
	registry.Join("w1", a)
	registry.Join("w1", a)
	assert.Equal(t, []string{"a"}, registry.Members("w1"))

	registry.Publish("w1", addedEvent("w1", "p1"), "")
	assert.Len(t, a.received(), 1, "double join must not double deliver")

	registry.Leave("w1", a)
	registry.Leave("w1", a)
	assert.Empty(t, registry.Members("w1"))
}

func TestPublishExcludesOrigin(t *testing.T) {
	registry := NewRegistry(logger)
	a, b := newFakeSession("a", 8), newFakeSession("b", 8)
	registry.Join("w1", a)
	registry.Join("w1", b)

	// A deletes p1, only B hears about it
	deleted := entity.Message{Event: entity.ProductDeleted, Data: entity.EventPayload{WishlistID: "w1", ProductID: "p1"}}
	assert.Equal(t, 1, registry.Publish("w1", deleted, "a"))
	assert.Empty(t, a.received())
	msgs := b.received()
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.ProductDeleted, msgs[0].Event)
	assert.Equal(t, "p1", msgs[0].Data.ProductID)
	assert.Nil(t, msgs[0].Data.Product)

	// Unknown origin reaches everybody
	assert.Equal(t, 2, registry.Publish("w1", deleted, ""))
	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
}

func TestPublishIsScopedToRoom(t *testing.T) {
	registry := NewRegistry(logger)
	a, b := newFakeSession("a", 8), newFakeSession("b", 8)
	registry.Join("w1", a)
	registry.Join("w2", b)

	registry.Publish("w1", addedEvent("w1", "p1"), "")
	assert.Len(t, a.received(), 1)
	assert.Empty(t, b.received())

	// Publishing into a room nobody joined is a no-op
	assert.Equal(t, 0, registry.Publish("w3", addedEvent("w3", "p9"), ""))
}

func TestDisconnectCleansEveryRoom(t *testing.T) {
	registry := NewRegistry(logger)
	a, b := newFakeSession("a", 8), newFakeSession("b", 8)
	registry.Join("w1", a)
	registry.Join("w2", a)
	registry.Join("w2", b)

	rooms := registry.Rooms("a")
	sort.Strings(rooms)
	assert.Equal(t, []string{"w1", "w2"}, rooms)

	registry.Disconnect(a)

	assert.Empty(t, registry.Rooms("a"))
	assert.Equal(t, []string{"b"}, registry.Members("w2"))
	assert.Equal(t, 1, registry.Len())

	// A revived handle with the same id doesn't get anything
	registry.Publish("w1", addedEvent("w1", "p1"), "")
	registry.Publish("w2", addedEvent("w2", "p2"), "")
	assert.Empty(t, a.received())
	assert.Len(t, b.received(), 1)
}

func TestPublishPreservesOrder(t *testing.T) {
	registry := NewRegistry(logger)
	members := []*fakeSession{newFakeSession("a", 64), newFakeSession("b", 64), newFakeSession("c", 64)}
	for _, m := range members {
		registry.Join("w1", m)
	}

	for i := 0; i < 50; i++ {
		registry.Publish("w1", addedEvent("w1", fmt.Sprintf("p%d", i)), "")
	}

	for _, m := range members {
		msgs := m.received()
		require.Len(t, msgs, 50)
		for i, msg := range msgs {
			assert.Equal(t, fmt.Sprintf("p%d", i), msg.Data.EntityID())
		}
	}
}

func TestConcurrentPublishesAgreeOnOrder(t *testing.T) {
	registry := NewRegistry(logger)
	a, b := newFakeSession("a", 256), newFakeSession("b", 256)
	registry.Join("w1", a)
	registry.Join("w1", b)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			registry.Publish("w1", addedEvent("w1", fmt.Sprintf("p%d", i)), "")
		}(i)
	}
	wg.Wait()

	ids := func(msgs []entity.Message) []string {
		out := make([]string, 0, len(msgs))
		for _, msg := range msgs {
			out = append(out, msg.Data.EntityID())
		}
		return out
	}
	fromA, fromB := ids(a.received()), ids(b.received())
	assert.Len(t, fromA, 100)
	// Whatever the interleaving, both members saw the same sequence
	assert.Equal(t, fromA, fromB)
}

func TestObserverAndDrops(t *testing.T) {
	registry := NewRegistry(logger)
	observer := &countingObserver{}
	registry.SetObserver(observer)

	slow := newFakeSession("slow", 1)
	fast := newFakeSession("fast", 8)
	registry.Join("w1", slow)
	registry.Join("w1", fast)

	registry.Publish("w1", addedEvent("w1", "p1"), "")
	registry.Publish("w1", addedEvent("w1", "p2"), "")

	assert.Equal(t, 2, observer.calls)
	assert.Equal(t, 3, observer.delivered)
	assert.Equal(t, 1, observer.dropped)
	assert.Len(t, fast.received(), 2)
	assert.Len(t, slow.received(), 1)
}

func TestConcurrentMembershipChanges(t *testing.T) {
	registry := NewRegistry(logger)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFakeSession(fmt.Sprintf("s%d", i), 128)
			room := fmt.Sprintf("w%d", i%3)
			for j := 0; j < 50; j++ {
				registry.Join(room, s)
				registry.Publish(room, addedEvent(room, "p"), "")
				registry.Leave(room, s)
			}
			registry.Join(room, s)
			registry.Disconnect(s)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, 0, registry.Sessions())
}

func TestOwnsTracksMembership(t *testing.T) {
	registry := NewRegistry(logger)
	alice := userSession{newFakeSession("a", 8), "alice"}
	anonymous := newFakeSession("b", 8)

	// Unknown until it joins a room
	assert.False(t, registry.Owns("a", "alice"))
	registry.Join("w1", alice)
	registry.Join("w2", alice)
	registry.Join("w1", anonymous)

	assert.True(t, registry.Owns("a", "alice"))
	assert.False(t, registry.Owns("a", "mallory"))
	assert.False(t, registry.Owns("a", ""))
	assert.False(t, registry.Owns("b", ""), "sessions without a user are owned by nobody")

	registry.Leave("w1", alice)
	assert.True(t, registry.Owns("a", "alice"), "still in w2")
	registry.Leave("w2", alice)
	assert.False(t, registry.Owns("a", "alice"))

	registry.Join("w1", alice)
	registry.Disconnect(alice)
	assert.False(t, registry.Owns("a", "alice"))
}
