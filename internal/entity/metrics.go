// Structure of Wishful realtime Metrics Model.

package entity

// Snapshot of the fan-out counters, saved in DB as the hash wishful:metrics.
type Metrics struct {
	EventsPublished  int64   `json:"events_published" redis:"events_published"`
	Deliveries       int64   `json:"deliveries" redis:"deliveries"`
	Drops            int64   `json:"drops" redis:"drops"`
	AvgPublishMillis float64 `json:"avg_publish_ms" redis:"avg_publish_ms"`
	AvgFanOut        float64 `json:"avg_fan_out" redis:"avg_fan_out"`
	FlushedAt        int64   `json:"flushed_at" redis:"flushed_at"`
	// Saved as the hash fields kind:<event kind>
	EventsByKind      map[string]int64 `json:"events_by_kind" redis:"-"`
	ActiveRooms       int              `json:"active_rooms" redis:"-"`
	ConnectedSessions int              `json:"connected_sessions" redis:"-"`
}
