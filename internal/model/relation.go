package model

import "time"

// Relation status values.
const (
	RelationPending  int8 = 0
	RelationAccepted int8 = 1
)

// Relation is one directed edge of the follow graph: RequesterID asked to
// follow TargetID. A pending edge is an unresolved follow request; an accepted
// edge means the target approved it. One row per directed pair, so an id can
// never be pending and accepted towards the same target at once.
type Relation struct {
	ID          uint64 `gorm:"primaryKey"`
	RequesterID uint64 `gorm:"not null;uniqueIndex:idx_requester_target;index:idx_requester"`
	TargetID    uint64 `gorm:"not null;uniqueIndex:idx_requester_target;index:idx_target"`
	Status      int8   `gorm:"not null;default:0;comment:'0=pending,1=accepted'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName sets table name for Relation
func (Relation) TableName() string {
	return "relations"
}

// SocialOutbox records relationship and message events for async delivery.
type SocialOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:24;not null"` // follow_requested / follow_accepted / ...
	ActorID   uint64 `gorm:"not null"`
	SubjectID uint64 `gorm:"not null"`
	Payload   string `gorm:"type:json;not null"`
	Status    int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }
