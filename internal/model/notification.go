package model

import "time"

// Notification is derived, never stored: one entry per unresolved follow
// request targeting a user, enriched with the requester's profile. Ordering
// is most recent request first; the relation row id breaks timestamp ties.
type Notification struct {
	RequestID   uint64    `json:"request_id"`
	Sender      Profile   `json:"sender"`
	RequestedAt time.Time `json:"requested_at"`
}
