// Client side of the websocket session, built on coder/websocket.

package subscription

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

var (
	// ErrNotConnected is returned when a control frame is sent on a Conn which isn't connected.
	ErrNotConnected = errors.New("not connected")
	// ErrJoinRefused is wrapped by Join when the server answered with an error frame.
	ErrJoinRefused = errors.New("join refused")
)

// ConnectionState represents the current state of the websocket connection.
type ConnectionState int

const (
	// StateDisconnected means the connection is not established or was lost.
	StateDisconnected ConnectionState = iota
	// StateConnecting means the handshake is in progress.
	StateConnecting
	// StateConnected means control frames can be sent.
	StateConnected
	// StateClosed means Close was called.
	StateClosed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config controls how a Conn connects.
type Config struct {
	// websocket endpoint, e.g. ws://localhost:8080/api/ws
	URL string
	// access token sent as the access_token cookie
	Token            string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// Largest frame accepted from the server
	ReadLimit int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        1 << 20,
	}
}

// Conn is one websocket session with the server. A Conn is dialed once, a new one is built to reconnect.
type Conn struct {
	cfg        Config
	ws         *websocket.Conn
	writeCh    chan entity.ControlMessage
	dispatcher Dispatcher
	logger     log.Logger

	mu        sync.Mutex
	state     ConnectionState
	sessionID string
	// Joins waiting for the server's answer, by wishlist id
	pending map[string][]chan error
	cancel  context.CancelFunc
	// Closed once the read loop returned
	done chan struct{}
	err  error
}

func NewConn(cfg Config, logger log.Logger) *Conn {
	c := &Conn{
		cfg:     cfg,
		writeCh: make(chan entity.ControlMessage, 16),
		logger:  logger,
		pending: make(map[string][]chan error),
		done:    make(chan struct{}),
	}
	c.dispatcher.SetOnJoined(func(wishlistID string) { c.settle(wishlistID, nil) })
	c.OnError(nil)
	return c
}

// OnEvent registers the callback for the seven event frames.
func (c *Conn) OnEvent(fn func(entity.Message)) { c.dispatcher.SetOnEvent(fn) }

// OnError registers the callback for error frames. Refusals also fail the pending Join.
func (c *Conn) OnError(fn func(entity.ErrorPayload)) {
	c.dispatcher.SetOnError(func(payload entity.ErrorPayload) {
		if payload.WishlistID != "" {
			c.settle(payload.WishlistID, fmt.Errorf("%w: %s", ErrJoinRefused, payload.Message))
		}
		if fn != nil {
			fn(payload)
		}
	})
}

// OnSession registers a callback for the session frame, SessionID is already set when it runs.
func (c *Conn) OnSession(fn func(string)) {
	c.dispatcher.SetOnSession(func(id string) {
		c.mu.Lock()
		c.sessionID = id
		c.mu.Unlock()
		if fn != nil {
			fn(id)
		}
	})
}

// Dial performs the handshake and starts the read and write loops.
func (c *Conn) Dial(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected || c.ws != nil {
		c.mu.Unlock()
		return errors.New("conn was already dialed")
	}
	c.state = StateConnecting
	c.mu.Unlock()
	if c.dispatcher.onSession == nil {
		c.OnSession(nil)
	}

	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Cookie", (&http.Cookie{Name: "access_token", Value: c.cfg.Token}).String())
	}
	ws, _, err := websocket.Dial(dialCtx, c.cfg.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}
	if c.cfg.ReadLimit > 0 {
		ws.SetReadLimit(c.cfg.ReadLimit)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.ws = ws
	c.cancel = cancel
	c.state = StateConnected
	c.mu.Unlock()

	go c.readLoop(runCtx)
	go c.writeLoop(runCtx)
	return nil
}

// Join asks the server to send the events of wishlistID and waits until it did.
// Once Join returned nil every later event of the room reaches this Conn.
func (c *Conn) Join(ctx context.Context, wishlistID string) error {
	if wishlistID == "" {
		return fmt.Errorf("%w: wishlistId is required", ErrJoinRefused)
	}
	answer := make(chan error, 1)
	c.mu.Lock()
	c.pending[wishlistID] = append(c.pending[wishlistID], answer)
	c.mu.Unlock()
	defer c.forget(wishlistID, answer)

	if err := c.send(ctx, entity.ControlMessage{Type: entity.JoinWishlist, WishlistID: wishlistID}); err != nil {
		return err
	}
	select {
	case err := <-answer:
		return err
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle answers every Join waiting on wishlistID.
func (c *Conn) settle(wishlistID string, err error) {
	c.mu.Lock()
	waiting := c.pending[wishlistID]
	delete(c.pending, wishlistID)
	c.mu.Unlock()
	for _, answer := range waiting {
		answer <- err
	}
}

func (c *Conn) forget(wishlistID string, answer chan error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	waiting := c.pending[wishlistID]
	for i, ch := range waiting {
		if ch == answer {
			waiting = append(waiting[:i], waiting[i+1:]...)
			break
		}
	}
	if len(waiting) == 0 {
		delete(c.pending, wishlistID)
	} else {
		c.pending[wishlistID] = waiting
	}
}

// Leave asks the server to stop sending the events of wishlistID.
func (c *Conn) Leave(ctx context.Context, wishlistID string) error {
	return c.send(ctx, entity.ControlMessage{Type: entity.LeaveWishlist, WishlistID: wishlistID})
}

// SessionID returns the id the server greeted this connection with, empty until the greeting arrived.
func (c *Conn) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// State returns the current ConnectionState.
func (c *Conn) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the connection is gone, Err tells why.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error which ended the connection, nil after Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts down the loops and closes the websocket.
func (c *Conn) Close() error {
	c.mu.Lock()
	ws, cancel := c.ws, c.cancel
	c.state = StateClosed
	c.mu.Unlock()
	if ws == nil {
		return nil
	}
	cancel()
	return ws.Close(websocket.StatusNormalClosure, "client close")
}

func (c *Conn) setState(state ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = state
	}
}

func (c *Conn) send(ctx context.Context, msg entity.ControlMessage) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	select {
	case c.writeCh <- msg:
		return nil
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		var f inboundFrame
		if err := wsjson.Read(ctx, c.ws, &f); err != nil {
			if !isExpectedDisconnect(ctx, err) {
				c.logger.Warn().Err(err).Msg("Websocket read loop exit")
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			c.setState(StateDisconnected)
			c.cancel()
			return
		}
		if err := c.dispatcher.Dispatch(f); err != nil {
			c.logger.Warn().Err(err).Str("Event", f.Event).Msg("Dropped undecodable frame")
		}
	}
}

func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case msg := <-c.writeCh:
			writeCtx := ctx
			var cancel context.CancelFunc = func() {}
			if c.cfg.WriteTimeout > 0 {
				writeCtx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
			}
			err := wsjson.Write(writeCtx, c.ws, msg)
			cancel()
			if err != nil {
				if !isExpectedDisconnect(ctx, err) {
					c.logger.Warn().Err(err).Msg("Websocket write loop exit")
				}
				c.ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
