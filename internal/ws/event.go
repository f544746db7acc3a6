package ws

import (
	"encoding/json"
	"strconv"
)

// Event types carried over live subscriptions.
const (
	EventMessage  = "message"  // new message in a conversation
	EventRelation = "relation" // follow graph changed around a user
	EventPresence = "presence" // status / last-seen change
	EventProfile  = "profile"  // bio or photo change
)

// Topic prefixes: "chat:<conversationKey>" and "user:<id>".
const (
	TopicChatPrefix = "chat:"
	TopicUserPrefix = "user:"
)

// UserTopic is the channel carrying every change to one user's record.
func UserTopic(id uint64) string {
	return TopicUserPrefix + strconv.FormatUint(id, 10)
}

// ChatTopic is the channel carrying commits to one conversation.
func ChatTopic(key string) string {
	return TopicChatPrefix + key
}

// Event is the envelope delivered to every subscriber of a topic.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEvent marshals v into an event envelope.
func NewEvent(typ string, v any) (Event, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Data: raw}, nil
}
