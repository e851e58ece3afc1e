// Websocket session tests in Wishful.

package socket

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/room"
	"Wishful/internal/test"
	"Wishful/pkg/log"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global instance of log.Logger to be used during websocket testing.
var logger log.Logger = log.NewWithWriter("test", io.Discard)

// Access double, alice may view w1 and w2, "secret" exists but is private.
type fakeAccess struct{}

func (fakeAccess) Viewable(ctx context.Context, username, wishlistID string) (entity.Wishlist, error) {
	switch wishlistID {
	case "w1", "w2":
		return entity.Wishlist{ID: wishlistID, Owner: username}, nil
	case "secret":
		return entity.Wishlist{}, errors.Forbidden("You don't have access to this wishlist")
	}
	return entity.Wishlist{}, errors.NotFound("Wishlist not found")
}

// Frame as read by the tests, data stays raw until the test knows its shape.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Helper starting a server with its own registry.
func newServer(t *testing.T, allowedOrigin string, settings Settings) (*httptest.Server, *room.Registry) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	registry := room.NewRegistry(logger)
	APIHandlers(router, registry, fakeAccess{}, test.MockAuthMiddleware(logger), allowedOrigin, settings, logger)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
}

func authHeader(username string) http.Header {
	header := http.Header{}
	header.Set("Cookie", test.MockAuthAllowCookie.Name+"="+test.MockAuthAllowCookie.Value+"; "+test.UserCookie(username).Name+"="+username)
	return header
}

// Helper dialing as alice and reading the session greeting.
func dial(t *testing.T, server *httptest.Server) (*websocket.Conn, string) {
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server), authHeader("alice"))
	require.Nil(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })

	greeting := read(t, conn)
	require.Equal(t, entity.FrameSession, greeting.Event)
	var payload entity.SessionPayload
	require.Nil(t, json.Unmarshal(greeting.Data, &payload))
	return conn, payload.SessionID
}

func read(t *testing.T, conn *websocket.Conn) frame {
	var f frame
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.Nil(t, conn.ReadJSON(&f))
	return f
}

func send(t *testing.T, conn *websocket.Conn, msg interface{}) {
	require.Nil(t, conn.WriteJSON(msg))
}

func joined(registry *room.Registry, wishlistID, sessionID string) func() bool {
	return func() bool {
		for _, id := range registry.Members(wishlistID) {
			if id == sessionID {
				return true
			}
		}
		return false
	}
}

// Reads the acknowledgement of a join.
func readJoined(t *testing.T, conn *websocket.Conn, wishlistID string) {
	f := read(t, conn)
	require.Equal(t, entity.FrameJoined, f.Event)
	var payload entity.RoomPayload
	require.Nil(t, json.Unmarshal(f.Data, &payload))
	assert.Equal(t, wishlistID, payload.WishlistID)
}

func deletedEvent(wishlistID, productID string) entity.Message {
	return entity.Message{Event: entity.ProductDeleted, Data: entity.EventPayload{WishlistID: wishlistID, ProductID: productID}}
}

func TestSessionGreetsWithID(t *testing.T) {
	server, registry := newServer(t, "*", DefaultSettings(8))
	_, id := dial(t, server)

	_, parseerr := ulid.Parse(id)
	assert.Nil(t, parseerr)
	assert.Empty(t, registry.Rooms(id))
}

func TestUnauthenticatedUpgradeRefused(t *testing.T) {
	server, _ := newServer(t, "*", DefaultSettings(8))
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NotNil(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinThenReceiveEvents(t *testing.T) {
	server, registry := newServer(t, "*", DefaultSettings(8))
	conn, id := dial(t, server)

	send(t, conn, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "w1"})
	readJoined(t, conn, "w1")
	// Membership is in effect once the acknowledgement is out
	assert.True(t, joined(registry, "w1", id)())

	// The mutating session doesn't hear about its own change
	registry.Publish("w1", deletedEvent("w1", "p1"), id)
	registry.Publish("w1", deletedEvent("w1", "p2"), "")
	registry.Publish("w2", deletedEvent("w2", "p3"), "")

	f := read(t, conn)
	assert.Equal(t, string(entity.ProductDeleted), f.Event)
	var payload entity.EventPayload
	require.Nil(t, json.Unmarshal(f.Data, &payload))
	assert.Equal(t, "w1", payload.WishlistID)
	assert.Equal(t, "p2", payload.ProductID)
}

func TestJoinRefused(t *testing.T) {
	server, registry := newServer(t, "*", DefaultSettings(8))
	conn, id := dial(t, server)

	for _, wishlistID := range []string{"secret", "missing", ""} {
		send(t, conn, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: wishlistID})
		f := read(t, conn)
		require.Equal(t, entity.FrameError, f.Event)
		var payload entity.ErrorPayload
		require.Nil(t, json.Unmarshal(f.Data, &payload))
		assert.Equal(t, wishlistID, payload.WishlistID)
		assert.NotEmpty(t, payload.Message)
	}
	assert.Empty(t, registry.Rooms(id))
	assert.Empty(t, registry.Members("secret"))
}

func TestMalformedAndUnknownFrames(t *testing.T) {
	server, _ := newServer(t, "*", DefaultSettings(8))
	conn, _ := dial(t, server)

	require.Nil(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	f := read(t, conn)
	assert.Equal(t, entity.FrameError, f.Event)
	assert.Contains(t, string(f.Data), "Malformed message")

	send(t, conn, map[string]string{"type": "dance"})
	f = read(t, conn)
	assert.Equal(t, entity.FrameError, f.Event)
	assert.Contains(t, string(f.Data), "dance")

	// The session survives both
	send(t, conn, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "missing"})
	assert.Equal(t, entity.FrameError, read(t, conn).Event)
}

func TestLeaveStopsEvents(t *testing.T) {
	server, registry := newServer(t, "*", DefaultSettings(8))
	conn, id := dial(t, server)

	send(t, conn, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "w1"})
	readJoined(t, conn, "w1")
	send(t, conn, entity.ControlMessage{Type: entity.LeaveWishlist, WishlistID: "w1"})
	require.Eventually(t, func() bool { return !joined(registry, "w1", id)() }, 5*time.Second, 10*time.Millisecond)

	registry.Publish("w1", deletedEvent("w1", "p1"), "")
	// Frames are ordered, so the next one must be the answer to this unknown message
	send(t, conn, map[string]string{"type": "ping-me"})
	assert.Equal(t, entity.FrameError, read(t, conn).Event)
}

func TestDisconnectCleansRegistry(t *testing.T) {
	server, registry := newServer(t, "*", DefaultSettings(8))
	conn, id := dial(t, server)

	send(t, conn, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "w1"})
	send(t, conn, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "w2"})
	require.Eventually(t, joined(registry, "w2", id), 5*time.Second, 10*time.Millisecond)
	require.Equal(t, 2, registry.Len())

	conn.Close()
	assert.Eventually(t, func() bool { return registry.Sessions() == 0 && registry.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestFullBufferKicksSession(t *testing.T) {
	registry := room.NewRegistry(logger)
	s := newSession(nil, "alice", registry, fakeAccess{}, Settings{SendBuffer: 1}, logger)
	registry.Join("w1", s)

	assert.Equal(t, 1, registry.Publish("w1", deletedEvent("w1", "p1"), ""))
	assert.False(t, s.Kicked())
	assert.Equal(t, 0, registry.Publish("w1", deletedEvent("w1", "p2"), ""))
	assert.True(t, s.Kicked())
	// Nothing is accepted once kicked, even with room in the buffer
	<-s.send
	assert.False(t, s.Deliver(deletedEvent("w1", "p3")))
}

func TestSlowClientIsDisconnected(t *testing.T) {
	settings := DefaultSettings(1)
	server, registry := newServer(t, "*", settings)
	conn, id := dial(t, server)

	send(t, conn, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: "w1"})
	require.Eventually(t, joined(registry, "w1", id), 5*time.Second, 10*time.Millisecond)
	for i := 0; i < 10000 && registry.Sessions() > 0; i++ {
		registry.Publish("w1", deletedEvent("w1", "p"), "")
	}

	// Drain until the server closes the connection
	var readerr error
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for readerr == nil {
		_, _, readerr = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(readerr, websocket.ClosePolicyViolation), "got %v", readerr)
	assert.Eventually(t, func() bool { return registry.Sessions() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	server, _ := newServer(t, "https://wishful.example", DefaultSettings(8))

	header := authHeader("alice")
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	require.NotNil(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://wishful.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	require.Nil(t, err)
	conn.Close()

	check := checkOrigin("*")
	assert.True(t, check(&http.Request{Header: http.Header{"Origin": {"https://anything.example"}}}))
	assert.True(t, checkOrigin("https://wishful.example")(&http.Request{Header: http.Header{}}))
}
