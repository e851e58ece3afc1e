// Service layer of Server Side Events (SSE) in Wishful.

package sse

import (
	"Wishful/internal/entity"
	"Wishful/internal/room"
	"Wishful/pkg/log"
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Access decides whether a user may follow the events of a wishlist.
type Access interface {
	Viewable(ctx context.Context, username, wishlistID string) (entity.Wishlist, error)
}

type Service interface {
	// Checks access, then joins a fresh stream into the room of wishlistID
	open(ctx context.Context, username, wishlistID string) (*Stream, error)
	// Removes the stream from every room it joined
	close(ctx context.Context, stream *Stream)
	// Closed once Shutdown was called
	stopping() <-chan struct{}
	// Ends every open stream, used during server shutdown
	Shutdown(ctx context.Context) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	registry   *room.Registry
	access     Access
	sendBuffer int
	// Closed on shutdown so that open streams return
	quit     chan struct{}
	quitOnce *sync.Once
	logger   log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
func NewService(registry *room.Registry, access Access, sendBuffer int, logger log.Logger) Service {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return service{registry, access, sendBuffer, make(chan struct{}), &sync.Once{}, logger}
}

// Stream is one open event stream. It implements room.Session.
type Stream struct {
	id       string
	username string
	events   chan entity.Message
	// Closed when the stream fell behind
	done     chan struct{}
	doneOnce sync.Once
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) Username() string {
	return s.username
}

// Deliver enqueues msg without blocking, a stream which fell behind is ended.
func (s *Stream) Deliver(msg entity.Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- msg:
		return true
	default:
		s.doneOnce.Do(func() { close(s.done) })
		return false
	}
}

func (s service) open(ctx context.Context, username, wishlistID string) (*Stream, error) {
	if _, err := s.access.Viewable(ctx, username, wishlistID); err != nil {
		return nil, err
	}
	stream := &Stream{
		id:       ulid.Make().String(),
		username: username,
		events:   make(chan entity.Message, s.sendBuffer),
		done:     make(chan struct{}),
	}
	s.registry.Join(wishlistID, stream)
	s.logger.WithCtx(ctx).Info().Str("Session", stream.id).Str("Wishlist", wishlistID).Msg("Opened SSE stream")
	return stream, nil
}

func (s service) close(ctx context.Context, stream *Stream) {
	s.registry.Disconnect(stream)
	s.logger.WithCtx(ctx).Info().Str("Session", stream.id).Msg("Closed SSE stream")
}

func (s service) stopping() <-chan struct{} {
	return s.quit
}

func (s service) Shutdown(ctx context.Context) error {
	s.quitOnce.Do(func() { close(s.quit) })
	return nil
}
