// Room registry tracks which live sessions are viewing which wishlist.

package room

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"sync"
	"time"
)

// Session is a live transport connection, owned by the transport layer.
// The registry only keeps a membership reference and never closes a session.
type Session interface {
	// ID uniquely identifies the connection for the lifetime of the process.
	ID() string
	// Deliver enqueues msg without blocking, false means the session refused it.
	Deliver(msg entity.Message) bool
}

// Owned is implemented by sessions opened by an authenticated user.
type Owned interface {
	Username() string
}

// Observer is told about every publish, used for realtime metrics.
type Observer interface {
	Published(room string, kind entity.EventKind, delivered, dropped int, took time.Duration)
}

// Registry maps a wishlist id to the sessions currently viewing it.
// Rooms are created on first join and pruned as soon as they are empty.
type Registry struct {
	mu sync.RWMutex
	// room -> session id -> session
	rooms map[string]map[string]Session
	// session id -> rooms joined, lets Disconnect avoid a scan over every room
	joined map[string]map[string]struct{}
	// session id -> username, only for Owned sessions
	owners map[string]string

	observer Observer
	logger   log.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]map[string]Session),
		joined: make(map[string]map[string]struct{}),
		owners: make(map[string]string),
		logger: logger,
	}
}

// SetObserver installs o, it must be called before the registry is shared.
func (r *Registry) SetObserver(o Observer) {
	r.observer = o
}

// Join adds s to room. Joining twice is a no-op.
func (r *Registry) Join(room string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]Session)
		r.rooms[room] = members
	}
	members[s.ID()] = s

	rooms, ok := r.joined[s.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[s.ID()] = rooms
	}
	rooms[room] = struct{}{}
	if o, ok := s.(Owned); ok {
		r.owners[s.ID()] = o.Username()
	}

	r.logger.Debug().Str("Room", room).Str("Session", s.ID()).Int("Members", len(members)).Msg("Session joined room")
}

// Leave removes s from room. Leaving a room s is not in is a no-op.
func (r *Registry) Leave(room string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leave(room, s.ID())
}

// Disconnect removes s from every room it joined.
// The transport calls it synchronously from its disconnect path.
func (r *Registry) Disconnect(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[s.ID()] {
		r.leave(room, s.ID())
	}
	delete(r.joined, s.ID())
	delete(r.owners, s.ID())
}

// leave must be called with mu held.
func (r *Registry) leave(room, sessionID string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.joined[sessionID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, sessionID)
			delete(r.owners, sessionID)
		}
	}
}

// Publish hands msg to every member of room except the session with id origin.
// An empty origin delivers to every member. Returns the number of sessions that accepted msg.
//
// Publishes are serialized on the write lock and Deliver only enqueues, so every member
// sees the events of a room in the same order, the order Publish was called in.
func (r *Registry) Publish(room string, msg entity.Message, origin string) int {
	start := time.Now()
	delivered, dropped := 0, 0

	r.mu.Lock()
	for id, s := range r.rooms[room] {
		if origin != "" && id == origin {
			continue
		}
		if s.Deliver(msg) {
			delivered++
		} else {
			dropped++
		}
	}
	r.mu.Unlock()

	if dropped > 0 {
		r.logger.Warn().Str("Room", room).Str("Event", string(msg.Event)).Int("Dropped", dropped).Msg("Sessions refused event")
	}
	if r.observer != nil {
		r.observer.Published(room, msg.Event, delivered, dropped, time.Since(start))
	}
	return delivered
}

// Members returns the ids of the sessions in room.
func (r *Registry) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rooms[room]))
	for id := range r.rooms[room] {
		ids = append(ids, id)
	}
	return ids
}

// Rooms returns the rooms the session with id sessionID has joined.
func (r *Registry) Rooms(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.joined[sessionID]))
	for room := range r.joined[sessionID] {
		rooms = append(rooms, room)
	}
	return rooms
}

// Owns reports whether sessionID is a session of username which joined at least one room.
// A session outside every room can't be excluded from any publish, so it doesn't need to be known.
func (r *Registry) Owns(sessionID, username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[sessionID]
	return ok && username != "" && owner == username
}

// Len returns the number of non-empty rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Sessions returns the number of sessions that joined at least one room.
func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.joined)
}
