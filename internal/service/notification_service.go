package service

import (
	"context"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/ws"
)

// PendingSource lists a user's unresolved incoming requests, newest first.
type PendingSource interface {
	PendingFor(ctx context.Context, userID uint64) ([]model.Relation, error)
}

// ProfileSource resolves requester profiles in a batch.
type ProfileSource interface {
	FindMany(ctx context.Context, ids []uint64) ([]model.User, error)
}

// NotificationService derives the pending-request notification list from the
// user's record. Nothing is stored: every change to the record recomputes
// the whole list.
type NotificationService struct {
	pending  PendingSource
	profiles ProfileSource
	hub      *ws.Hub
}

func NewNotificationService(pending PendingSource, profiles ProfileSource, hub *ws.Hub) *NotificationService {
	return &NotificationService{pending: pending, profiles: profiles, hub: hub}
}

// Derive builds the notification list for userID: one entry per unresolved
// request, most recent first, enriched with the requester's profile.
// Requesters that vanished since asking are skipped. Empty in, empty out.
func (s *NotificationService) Derive(ctx context.Context, userID uint64) ([]model.Notification, error) {
	rels, err := s.pending.PendingFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return []model.Notification{}, nil
	}

	ids := make([]uint64, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.RequesterID)
	}
	users, err := s.profiles.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Profile, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Profile()
	}

	out := make([]model.Notification, 0, len(rels))
	for _, rel := range rels {
		sender, ok := byID[rel.RequesterID]
		if !ok {
			continue
		}
		out = append(out, model.Notification{
			RequestID:   rel.ID,
			Sender:      sender,
			RequestedAt: rel.CreatedAt,
		})
	}
	return out, nil
}

// Subscribe opens a live feed of the user's record changes; the caller
// re-derives on every event and must Cancel when done.
func (s *NotificationService) Subscribe(userID uint64) *ws.Subscription {
	return s.hub.Subscribe(ws.UserTopic(userID), 16)
}
