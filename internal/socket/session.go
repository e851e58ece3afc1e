// A live websocket session viewing wishlists in Wishful.

package socket

import (
	"Wishful/internal/entity"
	"Wishful/internal/errors"
	"Wishful/internal/room"
	"Wishful/pkg/log"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// Settings of the read and write pumps.
type Settings struct {
	// Capacity of the outgoing frame buffer, a session whose buffer is full gets kicked
	SendBuffer int
	// Time allowed to write a frame to the peer
	WriteWait time.Duration
	// Time allowed to read the next pong from the peer
	PongWait time.Duration
	// Pings are sent with this period, must be less than PongWait
	PingPeriod time.Duration
	// Largest control frame accepted from the peer
	MaxMessageSize int64
}

// DefaultSettings returns the pump settings used by the server.
func DefaultSettings(sendBuffer int) Settings {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return Settings{
		SendBuffer:     sendBuffer,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Access decides whether a user may follow the events of a wishlist.
type Access interface {
	Viewable(ctx context.Context, username, wishlistID string) (entity.Wishlist, error)
}

// Session is one websocket connection. It implements room.Session.
type Session struct {
	id       string
	username string
	conn     *websocket.Conn
	// Frames waiting for the write pump, FIFO
	send chan interface{}
	// Closed once the session is kicked or its read pump ends
	done      chan struct{}
	closeOnce sync.Once
	// Close frame sent by the write pump when done is closed
	closeCode   int
	closeReason string

	registry *room.Registry
	access   Access
	settings Settings
	logger   log.Logger
}

func newSession(conn *websocket.Conn, username string, registry *room.Registry, access Access, settings Settings, logger log.Logger) *Session {
	return &Session{
		id:       ulid.Make().String(),
		username: username,
		conn:     conn,
		send:     make(chan interface{}, settings.SendBuffer),
		done:     make(chan struct{}),
		registry: registry,
		access:   access,
		settings: settings,
		logger:   logger,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Username is the user who opened the session, it makes the session room.Owned.
func (s *Session) Username() string {
	return s.username
}

// Deliver enqueues msg without blocking. A full buffer kicks the session.
// Called while the registry holds its lock, so it never calls back into the registry.
func (s *Session) Deliver(msg entity.Message) bool {
	return s.enqueue(msg)
}

func (s *Session) enqueue(frame interface{}) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		s.kick(websocket.ClosePolicyViolation, "send buffer full")
		return false
	}
}

// kick asks the write pump to close the connection. Safe to call more than once.
func (s *Session) kick(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closeCode, s.closeReason = code, reason
		close(s.done)
	})
}

// Kicked reports whether the session stopped accepting frames.
func (s *Session) Kicked() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) sendError(message, wishlistID string) {
	s.enqueue(entity.Frame{
		Event: entity.FrameError,
		Data:  entity.ErrorPayload{Message: message, WishlistID: wishlistID},
	})
}

// Serve greets the peer with its session id and runs both pumps.
// It returns once the connection is gone and the session left every room.
func (s *Session) Serve(ctx context.Context) {
	s.enqueue(entity.Frame{Event: entity.FrameSession, Data: entity.SessionPayload{SessionID: s.id}})
	go s.writePump()
	s.readPump(ctx)
}

// readPump handles control frames until the peer goes away.
func (s *Session) readPump(ctx context.Context) {
	defer func() {
		// Membership must be gone before the connection is released
		s.registry.Disconnect(s)
		s.kick(websocket.CloseNormalClosure, "")
		s.conn.Close()
		s.logger.WithCtx(ctx).Info().Str("Session", s.id).Msg("Websocket session closed")
	}()

	s.conn.SetReadLimit(s.settings.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.settings.PongWait))
	})

	for {
		_, data, readerr := s.conn.ReadMessage()
		if readerr != nil {
			if websocket.IsUnexpectedCloseError(readerr, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.WithCtx(ctx).Warn().Err(readerr).Str("Session", s.id).Msg("Unexpected websocket close")
			}
			return
		}
		var msg entity.ControlMessage
		if jsonerr := json.Unmarshal(data, &msg); jsonerr != nil {
			s.sendError("Malformed message", "")
			continue
		}
		s.handle(ctx, msg)
	}
}

func (s *Session) handle(ctx context.Context, msg entity.ControlMessage) {
	switch msg.Type {
	case entity.JoinWishlist:
		if msg.WishlistID == "" {
			s.sendError("wishlistId is required", "")
			return
		}
		if _, err := s.access.Viewable(ctx, s.username, msg.WishlistID); err != nil {
			message := "Couldn't join wishlist"
			if resp, ok := err.(errors.ErrorResponse); ok {
				message = resp.Message
			}
			s.logger.WithCtx(ctx).Info().Str("Session", s.id).Str("Wishlist", msg.WishlistID).Msg("Join refused")
			s.sendError(message, msg.WishlistID)
			return
		}
		s.registry.Join(msg.WishlistID, s)
		s.enqueue(entity.Frame{Event: entity.FrameJoined, Data: entity.RoomPayload{WishlistID: msg.WishlistID}})
	case entity.LeaveWishlist:
		if msg.WishlistID == "" {
			s.sendError("wishlistId is required", "")
			return
		}
		s.registry.Leave(msg.WishlistID, s)
	default:
		s.sendError("Unknown message type "+msg.Type, msg.WishlistID)
	}
}

// writePump drains the send buffer in order and keeps the connection alive with pings.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				s.kick(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.settings.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.kick(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-s.done:
			if s.closeCode != websocket.CloseAbnormalClosure {
				s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(s.closeCode, s.closeReason),
					time.Now().Add(s.settings.WriteWait))
			}
			return
		}
	}
}
