// Structure of the realtime Event Model in Wishful.
// Events are immutable notifications of committed mutations, fanned out to the viewers of one wishlist.

package entity

// EventKind names a server-to-client event frame.
type EventKind string

const (
	ProductAdded    EventKind = "product-added"
	ProductUpdated  EventKind = "product-updated"
	ProductDeleted  EventKind = "product-deleted"
	CommentAdded    EventKind = "comment-added"
	CommentDeleted  EventKind = "comment-deleted"
	ReactionAdded   EventKind = "reaction-added"
	ReactionRemoved EventKind = "reaction-removed"
)

// EventKinds lists every kind a mutation can emit.
var EventKinds = []EventKind{
	ProductAdded, ProductUpdated, ProductDeleted,
	CommentAdded, CommentDeleted,
	ReactionAdded, ReactionRemoved,
}

// Valid reports whether k is one of EventKinds.
func (k EventKind) Valid() bool {
	for _, kind := range EventKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// CarriesProduct reports whether events of kind k carry the full product, deletions only carry its id.
func (k EventKind) CarriesProduct() bool {
	return k.Valid() && k != ProductDeleted
}

// EventPayload is the data of an event frame.
type EventPayload struct {
	WishlistID string       `json:"wishlistId"`
	Product    *ProductView `json:"product,omitempty"`
	ProductID  string       `json:"productId,omitempty"`
}

// EntityID returns the identifier of the product the event is about.
func (p EventPayload) EntityID() string {
	if p.Product != nil {
		return p.Product.ID
	}
	return p.ProductID
}

// Message is an event frame as written on the wire: {"event": "...", "data": {...}}.
type Message struct {
	Event EventKind    `json:"event"`
	Data  EventPayload `json:"data"`
}

// Envelope wraps a Message with its routing data while it travels through a broker.
type Envelope struct {
	Room    string  `json:"room"`
	Origin  string  `json:"origin,omitempty"`
	Message Message `json:"message"`
}

// Frames the transport sends besides events.
const (
	FrameSession = "session"
	FrameError   = "error"
	// Sent once a join-wishlist took effect, events of the room follow it
	FrameJoined = "joined"
)

// Frame is a transport-level server-to-client frame (session greeting, errors).
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Data of the session frame, the id goes back to the server in the X-Session-ID header of mutations.
type SessionPayload struct {
	SessionID string `json:"sessionId"`
}

// Data of the joined frame.
type RoomPayload struct {
	WishlistID string `json:"wishlistId"`
}

// Data of the error frame.
type ErrorPayload struct {
	Message    string `json:"message"`
	WishlistID string `json:"wishlistId,omitempty"`
}

// Control message types sent by clients.
const (
	JoinWishlist  = "join-wishlist"
	LeaveWishlist = "leave-wishlist"
)

// ControlMessage is a client-to-server frame: {"type": "join-wishlist", "wishlistId": "w1"}.
type ControlMessage struct {
	Type       string `json:"type"`
	WishlistID string `json:"wishlistId"`
}

// SessionHeader carries the session id of the mutating client on HTTP mutations.
const SessionHeader = "X-Session-ID"
