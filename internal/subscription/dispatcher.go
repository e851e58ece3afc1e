// Routing of server frames to the callbacks registered on a Conn.

package subscription

import (
	"Wishful/internal/entity"
	"encoding/json"
)

// Frame as read off the wire, data is decoded once the event name is known.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Dispatcher routes server frames to registered callbacks.
type Dispatcher struct {
	onSession func(sessionID string)
	onJoined  func(wishlistID string)
	onEvent   func(msg entity.Message)
	onError   func(payload entity.ErrorPayload)
}

func (d *Dispatcher) SetOnSession(fn func(string))            { d.onSession = fn }
func (d *Dispatcher) SetOnJoined(fn func(string))             { d.onJoined = fn }
func (d *Dispatcher) SetOnEvent(fn func(entity.Message))      { d.onEvent = fn }
func (d *Dispatcher) SetOnError(fn func(entity.ErrorPayload)) { d.onError = fn }

// Dispatch decodes f and hands it to the matching callback. Unknown frames are dropped.
func (d *Dispatcher) Dispatch(f inboundFrame) error {
	switch f.Event {
	case entity.FrameSession:
		var payload entity.SessionPayload
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return err
		}
		if d.onSession != nil {
			d.onSession(payload.SessionID)
		}
	case entity.FrameJoined:
		var payload entity.RoomPayload
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return err
		}
		if d.onJoined != nil {
			d.onJoined(payload.WishlistID)
		}
	case entity.FrameError:
		var payload entity.ErrorPayload
		if err := json.Unmarshal(f.Data, &payload); err != nil {
			return err
		}
		if d.onError != nil {
			d.onError(payload)
		}
	default:
		kind := entity.EventKind(f.Event)
		if !kind.Valid() {
			return nil
		}
		msg := entity.Message{Event: kind}
		if err := json.Unmarshal(f.Data, &msg.Data); err != nil {
			return err
		}
		if d.onEvent != nil {
			d.onEvent(msg)
		}
	}
	return nil
}
