package model

import (
	"strconv"
	"time"
)

// Message kinds. Exactly one payload variant is set per message.
const (
	MessageText  = "text"
	MessageImage = "image"
)

// Conversation is the canonical pairwise message log. Key is derived from the
// sorted participant ids, so both participants resolve the same row. LastSeq
// is the per-conversation commit counter; it only ever grows.
type Conversation struct {
	Key       string `gorm:"primaryKey;size:64"`
	UserLow   uint64 `gorm:"not null;index"`
	UserHigh  uint64 `gorm:"not null;index"`
	LastSeq   uint64 `gorm:"not null;default:0"`
	CreatedAt time.Time
}

// TableName sets table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

type Message struct {
	ID              string `gorm:"primaryKey;size:36" json:"id"`
	ConversationKey string `gorm:"size:64;not null;index:idx_conv_seq,priority:1" json:"conversation_key"`
	Seq             uint64 `gorm:"not null;index:idx_conv_seq,priority:2" json:"seq"`
	SenderID        uint64 `gorm:"not null" json:"sender_id"`
	Kind            string `gorm:"size:8;not null" json:"kind"`
	Body            string `gorm:"type:text" json:"body,omitempty"`
	ImageRef        string `gorm:"size:255" json:"image_ref,omitempty"`
	ImageURL        string `gorm:"-" json:"image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName sets table name for Message
func (Message) TableName() string {
	return "messages"
}

// ConversationKey builds the canonical key for a user pair. The ids are
// sorted first, so ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(a, b uint64) string {
	low, high := SortPair(a, b)
	return strconv.FormatUint(low, 10) + "_" + strconv.FormatUint(high, 10)
}

// SortPair returns the two ids in ascending order.
func SortPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}
