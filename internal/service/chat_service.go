package service

import (
	"context"
	"log"
	"strings"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"
	"Talk_Flow/internal/ws"
)

// MessageStore is the persistence surface of conversations.
type MessageStore interface {
	Append(ctx context.Context, msg *model.Message, peerID uint64) error
	List(ctx context.Context, key string, cursor uint64, limit int) ([]model.Message, uint64, error)
}

// MutualChecker answers the conversation access gate.
type MutualChecker interface {
	Mutual(ctx context.Context, a, b uint64) (bool, error)
}

// MessagePayload is the tagged variant a caller submits: exactly one of
// Text or Image must be set.
type MessagePayload struct {
	Text  string
	Image []byte
}

type ChatService struct {
	messages  MessageStore
	relations MutualChecker
	bus       EventBus
	hub       *ws.Hub
	blobs     pkg.BlobStore
}

func NewChatService(messages MessageStore, relations MutualChecker, bus EventBus, hub *ws.Hub, blobs pkg.BlobStore) *ChatService {
	return &ChatService{
		messages:  messages,
		relations: relations,
		bus:       bus,
		hub:       hub,
		blobs:     blobs,
	}
}

// ConversationKey exposes the canonical pair key.
func (s *ChatService) ConversationKey(a, b uint64) string {
	return model.ConversationKey(a, b)
}

// Append commits one message from sender to peer. The mutual-follow gate is
// evaluated against a fresh read every time: a cached or once-true answer is
// not enough, since either side may have unfollowed meanwhile.
func (s *ChatService) Append(ctx context.Context, senderID, peerID uint64, payload MessagePayload) (*model.Message, error) {
	if err := s.authorize(ctx, senderID, peerID); err != nil {
		return nil, err
	}

	hasText := strings.TrimSpace(payload.Text) != ""
	hasImage := len(payload.Image) > 0
	if hasText == hasImage {
		if !hasText {
			return nil, pkg.ErrEmptyMessage
		}
		return nil, pkg.ErrMalformedPayload
	}

	msg := &model.Message{
		ConversationKey: model.ConversationKey(senderID, peerID),
		SenderID:        senderID,
	}
	if hasText {
		msg.Kind = model.MessageText
		msg.Body = payload.Text
	} else {
		ref, err := s.blobs.Upload(payload.Image)
		if err != nil {
			return nil, err
		}
		msg.Kind = model.MessageImage
		msg.ImageRef = ref
	}

	if err := s.messages.Append(ctx, msg, peerID); err != nil {
		return nil, err
	}
	s.resolveImage(msg)
	s.publish(ctx, msg)
	return msg, nil
}

// History pages the conversation newest first, gated like Append.
func (s *ChatService) History(ctx context.Context, callerID, peerID uint64, cursor uint64, limit int) ([]model.Message, uint64, error) {
	if err := s.authorize(ctx, callerID, peerID); err != nil {
		return nil, 0, err
	}
	key := model.ConversationKey(callerID, peerID)
	rows, next, err := s.messages.List(ctx, key, cursor, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range rows {
		s.resolveImage(&rows[i])
	}
	return rows, next, nil
}

// Subscribe opens a live feed of the conversation, gated like Append.
// The caller owns the returned subscription and must Cancel it.
func (s *ChatService) Subscribe(ctx context.Context, callerID, peerID uint64) (*ws.Subscription, error) {
	if err := s.authorize(ctx, callerID, peerID); err != nil {
		return nil, err
	}
	key := model.ConversationKey(callerID, peerID)
	return s.hub.Subscribe(ws.ChatTopic(key), 64), nil
}

func (s *ChatService) authorize(ctx context.Context, a, b uint64) error {
	if a == 0 || b == 0 || a == b {
		return pkg.ErrNotAuthorized
	}
	mutual, err := s.relations.Mutual(ctx, a, b)
	if err != nil {
		return err
	}
	if !mutual {
		return pkg.ErrNotAuthorized
	}
	return nil
}

func (s *ChatService) resolveImage(msg *model.Message) {
	if msg.Kind != model.MessageImage || msg.ImageRef == "" {
		return
	}
	url, err := s.blobs.Resolve(msg.ImageRef)
	if err != nil {
		return
	}
	msg.ImageURL = url
}

func (s *ChatService) publish(ctx context.Context, msg *model.Message) {
	ev, err := ws.NewEvent(ws.EventMessage, msg)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ws.ChatTopic(msg.ConversationKey), ev); err != nil {
		log.Printf("message event publish for %s failed: %v", msg.ConversationKey, err)
	}
}
