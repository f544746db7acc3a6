package service

import (
	"context"
	"log"
	"time"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"
	"Talk_Flow/internal/repository/mysql"
	"Talk_Flow/internal/ws"
)

// EventBus carries live-change events to everyone watching a topic.
type EventBus interface {
	Publish(ctx context.Context, topic string, ev ws.Event) error
}

// RelationStore is the persistence surface of the follow graph.
type RelationStore interface {
	SendRequest(ctx context.Context, requesterID, targetID uint64) error
	Accept(ctx context.Context, targetID, requesterID uint64) error
	Reject(ctx context.Context, targetID, requesterID uint64) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error)
	FollowBack(ctx context.Context, followerID, followeeID uint64) error
	IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error)
	HasPending(ctx context.Context, requesterID, targetID uint64) (bool, error)
	Mutual(ctx context.Context, a, b uint64) (bool, error)
	FollowerIDs(ctx context.Context, userID uint64) ([]uint64, error)
	ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error)
	ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error)
	PendingFor(ctx context.Context, userID uint64) ([]model.Relation, error)
}

// RelationCache is the optional redis shortcut for relation-set reads.
type RelationCache interface {
	AddFollower(ctx context.Context, userID, followerID uint64)
	RemoveFollower(ctx context.Context, userID, followerID uint64)
	AddPending(ctx context.Context, userID, requesterID uint64)
	RemovePending(ctx context.Context, userID, requesterID uint64)
	IsFollowerCached(ctx context.Context, userID, followerID uint64) (bool, bool, error)
	WarmFollowers(ctx context.Context, userID uint64, followerIDs []uint64) error
}

type FollowService struct {
	repo  RelationStore
	cache RelationCache
	bus   EventBus
}

func NewFollowService(repo RelationStore, cache RelationCache, bus EventBus) *FollowService {
	return &FollowService{repo: repo, cache: cache, bus: bus}
}

// relationEvent is the payload of every relation change notification.
type relationEvent struct {
	Event     string `json:"event"`
	ActorID   uint64 `json:"actor_id"`
	SubjectID uint64 `json:"subject_id"`
}

// SendFollowRequest asks targetID to let requesterID follow them.
func (s *FollowService) SendFollowRequest(ctx context.Context, requesterID, targetID uint64) error {
	if requesterID == 0 || targetID == 0 {
		return pkg.ErrUserNotFound
	}
	if requesterID == targetID {
		return pkg.ErrSelfRelation
	}
	if err := s.repo.SendRequest(ctx, requesterID, targetID); err != nil {
		return err
	}
	s.cache.AddPending(ctx, targetID, requesterID)
	s.notifyPair(ctx, "follow_requested", requesterID, targetID)
	return nil
}

// AcceptFollowRequest approves requesterID's pending request to follow
// targetID: the requester lands in the target's followers and the target in
// the requester's following in one commit.
func (s *FollowService) AcceptFollowRequest(ctx context.Context, targetID, requesterID uint64) error {
	if err := s.repo.Accept(ctx, targetID, requesterID); err != nil {
		return err
	}
	s.cache.RemovePending(ctx, targetID, requesterID)
	s.cache.AddFollower(ctx, targetID, requesterID)
	s.notifyPair(ctx, "follow_accepted", targetID, requesterID)
	return nil
}

// RejectFollowRequest drops the pending request. Calling it again after it
// already resolved is a no-op, not an error.
func (s *FollowService) RejectFollowRequest(ctx context.Context, targetID, requesterID uint64) error {
	changed, err := s.repo.Reject(ctx, targetID, requesterID)
	if err != nil {
		return err
	}
	if changed {
		s.cache.RemovePending(ctx, targetID, requesterID)
		s.notifyPair(ctx, "follow_rejected", targetID, requesterID)
	}
	return nil
}

// Unfollow removes followerID from followeeID's followers. Idempotent:
// unfollowing someone you never followed succeeds and changes nothing.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID uint64) error {
	if followerID == followeeID {
		return nil
	}
	changed, err := s.repo.Unfollow(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if changed {
		s.cache.RemoveFollower(ctx, followeeID, followerID)
		s.notifyPair(ctx, "unfollowed", followerID, followeeID)
	}
	return nil
}

// FollowBack reciprocates an accepted follow without a pending step. Valid
// only while the other side already follows the caller.
func (s *FollowService) FollowBack(ctx context.Context, followerID, followeeID uint64) error {
	if followerID == followeeID {
		return pkg.ErrSelfRelation
	}
	if err := s.repo.FollowBack(ctx, followerID, followeeID); err != nil {
		return err
	}
	s.cache.AddFollower(ctx, followeeID, followerID)
	s.notifyPair(ctx, "follow_back", followerID, followeeID)
	return nil
}

// Mutual is the chat gate: true only when each user is an accepted follower
// of the other, re-read from the store.
func (s *FollowService) Mutual(ctx context.Context, a, b uint64) (bool, error) {
	return s.repo.Mutual(ctx, a, b)
}

// Relationship summarizes how other relates to viewer, for profile views.
type Relationship struct {
	YouFollowThem  bool `json:"you_follow_them"`
	TheyFollowYou  bool `json:"they_follow_you"`
	RequestPending bool `json:"request_pending"`
	Mutual         bool `json:"mutual"`
}

func (s *FollowService) Relationship(ctx context.Context, viewerID, otherID uint64) (*Relationship, error) {
	youFollow, err := s.isFollowing(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	theyFollow, err := s.isFollowing(ctx, otherID, viewerID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.HasPending(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	return &Relationship{
		YouFollowThem:  youFollow,
		TheyFollowYou:  theyFollow,
		RequestPending: pending,
		Mutual:         youFollow && theyFollow,
	}, nil
}

// isFollowing answers a display-only membership question, cache first. The
// chat gate never comes through here; it uses Mutual's store read.
func (s *FollowService) isFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if member, hit, err := s.cache.IsFollowerCached(ctx, followeeID, followerID); err == nil && hit {
		return member, nil
	}
	ok, err := s.repo.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return false, err
	}
	if ids, err := s.repo.FollowerIDs(ctx, followeeID); err == nil {
		_ = s.cache.WarmFollowers(ctx, followeeID, ids)
	}
	return ok, nil
}

func (s *FollowService) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error) {
	return s.repo.ListFollowers(ctx, userID, cursor, limit)
}

func (s *FollowService) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error) {
	return s.repo.ListFollowings(ctx, userID, cursor, limit)
}

// notifyPair tells both parties' record watchers that the graph changed
// around them. Delivery is best effort; the store already committed.
func (s *FollowService) notifyPair(ctx context.Context, event string, actorID, subjectID uint64) {
	ev, err := ws.NewEvent(ws.EventRelation, relationEvent{
		Event:     event,
		ActorID:   actorID,
		SubjectID: subjectID,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ws.UserTopic(actorID), ev); err != nil {
		log.Printf("relation event publish for %d failed: %v", actorID, err)
	}
	if err := s.bus.Publish(ctx, ws.UserTopic(subjectID), ev); err != nil {
		log.Printf("relation event publish for %d failed: %v", subjectID, err)
	}
}

// Sender delivers one outbox row downstream.
type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxRelayer drains the social outbox to a sender on a fixed interval.
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(sender Sender) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      mysql.NewOutboxRepository(),
		batchSize: 200,
		interval:  time.Second,
		sender:    sender,
	}
}

func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *OutboxRelayer) drainOnce(ctx context.Context) {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		log.Printf("outbox query err: %v", err)
		return
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			_ = r.repo.RetryUpdate(ctx, ob.ID)
			continue
		}
		_ = r.repo.SuccessUpdate(ctx, ob.ID)
	}
}

// KafkaSender builds a Sender that forwards outbox rows to kafka, keyed by
// the acting user so one user's events stay ordered.
func KafkaSender(producer *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return producer.Send(ctx, pkg.UserEventKey(ob.ActorID), []byte(ob.Payload))
	}
}

// LogSender is the no-broker fallback: print and acknowledge.
func LogSender(ctx context.Context, ob *model.SocialOutbox) error {
	log.Printf("OUTBOX SEND type=%s actor=%d subject=%d payload=%s",
		ob.EventType, ob.ActorID, ob.SubjectID, ob.Payload)
	return nil
}

// CountReconciler periodically recomputes follower/following counters from
// the relations table, correcting drift left by failed half-updates.
type CountReconciler struct {
	repo      *mysql.CountReconcilerRepo
	batchSize int
	interval  time.Duration
}

func NewCountReconciler() *CountReconciler {
	return &CountReconciler{
		repo:      mysql.NewCountReconcilerRepo(),
		batchSize: 500,
		interval:  5 * time.Minute,
	}
}

func (r *CountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	var lastID uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			lastID = r.reconcileOnce(ctx, lastID)
		}
	}
}

func (r *CountReconciler) reconcileOnce(ctx context.Context, lastID uint64) uint64 {
	users, nextID, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
	if err != nil {
		log.Printf("reconcile list err: %v", err)
		return lastID
	}
	if len(users) == 0 {
		// wrapped around; start over next tick
		return 0
	}

	for _, u := range users {
		realFollowing, err := r.repo.RealFollowings(ctx, u.ID)
		if err != nil {
			continue
		}
		realFollowers, err := r.repo.RealFollowers(ctx, u.ID)
		if err != nil {
			continue
		}
		if realFollowing != u.FollowingCount {
			_ = r.repo.ReconcileFollowings(ctx, u.ID, realFollowing)
		}
		if realFollowers != u.FollowerCount {
			_ = r.repo.ReconcileFollowers(ctx, u.ID, realFollowers)
		}
	}
	return nextID
}
