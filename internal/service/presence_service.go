package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/ws"
)

// PresenceStore is the slice of the user directory presence cares about.
type PresenceStore interface {
	SetPresence(ctx context.Context, id uint64, status string, lastSeen time.Time) error
	TouchLastSeen(ctx context.Context, id uint64) error
	MarkAwayBefore(ctx context.Context, cutoff time.Time) ([]uint64, error)
}

type PresenceService struct {
	store PresenceStore
	bus   EventBus
}

func NewPresenceService(store PresenceStore, bus EventBus) *PresenceService {
	return &PresenceService{store: store, bus: bus}
}

type presenceEvent struct {
	UserID   uint64    `json:"user_id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

// SetStatus stamps the user's status and last-seen together and notifies
// record watchers.
func (s *PresenceService) SetStatus(ctx context.Context, userID uint64, status string) error {
	switch status {
	case model.StatusOnline, model.StatusAway, model.StatusOffline:
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	now := time.Now()
	if err := s.store.SetPresence(ctx, userID, status, now); err != nil {
		return err
	}
	s.publish(ctx, userID, status, now)
	return nil
}

// TouchLastSeen refreshes activity without changing status.
func (s *PresenceService) TouchLastSeen(ctx context.Context, userID uint64) error {
	return s.store.TouchLastSeen(ctx, userID)
}

// Heartbeat is what clients call on an interval: refresh last-seen and make
// sure the user reads as online again if the reaper parked them on away.
func (s *PresenceService) Heartbeat(ctx context.Context, userID uint64) error {
	return s.SetStatus(ctx, userID, model.StatusOnline)
}

// RunAwayReaper scans for online users who stopped heartbeating and marks
// them away. Pure UX; correctness never depends on it.
func (s *PresenceService) RunAwayReaper(ctx context.Context, interval, idleAfter time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ids, err := s.store.MarkAwayBefore(ctx, time.Now().Add(-idleAfter))
			if err != nil {
				log.Printf("away reaper err: %v", err)
				continue
			}
			for _, id := range ids {
				s.publish(ctx, id, model.StatusAway, time.Now())
			}
		}
	}
}

func (s *PresenceService) publish(ctx context.Context, userID uint64, status string, lastSeen time.Time) {
	ev, err := ws.NewEvent(ws.EventPresence, presenceEvent{
		UserID:   userID,
		Status:   status,
		LastSeen: lastSeen,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ws.UserTopic(userID), ev); err != nil {
		log.Printf("presence event publish for %d failed: %v", userID, err)
	}
}

// FormatLastSeen buckets a last-seen timestamp for display: "just now"
// under a minute, then minutes, then hours, then the calendar date.
func FormatLastSeen(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		m := int(diff.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case diff < 24*time.Hour:
		h := int(diff.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		return t.Format("Jan 2, 2006")
	}
}
