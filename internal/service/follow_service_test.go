package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"
	"Talk_Flow/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelationStore mirrors the mysql relation repository's semantics in a
// map, one row per directed pair.
type fakeRelationStore struct {
	mu     sync.Mutex
	edges  map[[2]uint64]*model.Relation
	users  map[uint64]bool
	nextID uint64
}

func newFakeRelationStore(userIDs ...uint64) *fakeRelationStore {
	s := &fakeRelationStore{
		edges: map[[2]uint64]*model.Relation{},
		users: map[uint64]bool{},
	}
	for _, id := range userIDs {
		s.users[id] = true
	}
	return s
}

func (s *fakeRelationStore) SendRequest(ctx context.Context, requesterID, targetID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.users[targetID] {
		return pkg.ErrUserNotFound
	}
	if r, ok := s.edges[[2]uint64{requesterID, targetID}]; ok {
		if r.Status == model.RelationAccepted {
			return pkg.ErrAlreadyFollowing
		}
		return pkg.ErrAlreadyRequested
	}
	s.nextID++
	s.edges[[2]uint64{requesterID, targetID}] = &model.Relation{
		ID:          s.nextID,
		RequesterID: requesterID,
		TargetID:    targetID,
		Status:      model.RelationPending,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (s *fakeRelationStore) Accept(ctx context.Context, targetID, requesterID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.edges[[2]uint64{requesterID, targetID}]
	if !ok || r.Status != model.RelationPending {
		return pkg.ErrRequestNotFound
	}
	r.Status = model.RelationAccepted
	return nil
}

func (s *fakeRelationStore) Reject(ctx context.Context, targetID, requesterID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.edges[[2]uint64{requesterID, targetID}]
	if !ok || r.Status != model.RelationPending {
		return false, nil
	}
	delete(s.edges, [2]uint64{requesterID, targetID})
	return true, nil
}

func (s *fakeRelationStore) Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.edges[[2]uint64{followerID, followeeID}]
	if !ok || r.Status != model.RelationAccepted {
		return false, nil
	}
	delete(s.edges, [2]uint64{followerID, followeeID})
	return true, nil
}

func (s *fakeRelationStore) FollowBack(ctx context.Context, followerID, followeeID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.edges[[2]uint64{followeeID, followerID}]
	if !ok || rev.Status != model.RelationAccepted {
		return pkg.ErrNotFollowing
	}
	if r, ok := s.edges[[2]uint64{followerID, followeeID}]; ok {
		if r.Status == model.RelationAccepted {
			return pkg.ErrAlreadyFollowing
		}
		return pkg.ErrAlreadyRequested
	}
	s.nextID++
	s.edges[[2]uint64{followerID, followeeID}] = &model.Relation{
		ID:          s.nextID,
		RequesterID: followerID,
		TargetID:    followeeID,
		Status:      model.RelationAccepted,
		CreatedAt:   time.Now(),
	}
	return nil
}

func (s *fakeRelationStore) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.edges[[2]uint64{followerID, followeeID}]
	return ok && r.Status == model.RelationAccepted, nil
}

func (s *fakeRelationStore) HasPending(ctx context.Context, requesterID, targetID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.edges[[2]uint64{requesterID, targetID}]
	return ok && r.Status == model.RelationPending, nil
}

func (s *fakeRelationStore) Mutual(ctx context.Context, a, b uint64) (bool, error) {
	ab, _ := s.IsFollowing(ctx, a, b)
	ba, _ := s.IsFollowing(ctx, b, a)
	return ab && ba, nil
}

func (s *fakeRelationStore) FollowerIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, r := range s.edges {
		if r.TargetID == userID && r.Status == model.RelationAccepted {
			out = append(out, r.RequesterID)
		}
	}
	return out, nil
}

func (s *fakeRelationStore) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Relation
	for _, r := range s.edges {
		if r.TargetID == userID && r.Status == model.RelationAccepted {
			out = append(out, *r)
		}
	}
	return out, 0, nil
}

func (s *fakeRelationStore) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Relation
	for _, r := range s.edges {
		if r.RequesterID == userID && r.Status == model.RelationAccepted {
			out = append(out, *r)
		}
	}
	return out, 0, nil
}

func (s *fakeRelationStore) PendingFor(ctx context.Context, userID uint64) ([]model.Relation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Relation
	for _, r := range s.edges {
		if r.TargetID == userID && r.Status == model.RelationPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

// fakeRelationCache records the mutations the service pushed at it.
type fakeRelationCache struct {
	mu    sync.Mutex
	calls []string
}

func (c *fakeRelationCache) record(op string) {
	c.mu.Lock()
	c.calls = append(c.calls, op)
	c.mu.Unlock()
}

func (c *fakeRelationCache) AddFollower(ctx context.Context, userID, followerID uint64) {
	c.record("add_follower")
}
func (c *fakeRelationCache) RemoveFollower(ctx context.Context, userID, followerID uint64) {
	c.record("remove_follower")
}
func (c *fakeRelationCache) AddPending(ctx context.Context, userID, requesterID uint64) {
	c.record("add_pending")
}
func (c *fakeRelationCache) RemovePending(ctx context.Context, userID, requesterID uint64) {
	c.record("remove_pending")
}
func (c *fakeRelationCache) IsFollowerCached(ctx context.Context, userID, followerID uint64) (bool, bool, error) {
	return false, false, nil
}
func (c *fakeRelationCache) WarmFollowers(ctx context.Context, userID uint64, followerIDs []uint64) error {
	c.record("warm_followers")
	return nil
}

func newFollowFixture(userIDs ...uint64) (*FollowService, *fakeRelationStore, *fakeRelationCache, *ws.Hub) {
	store := newFakeRelationStore(userIDs...)
	cache := &fakeRelationCache{}
	hub := ws.NewHub()
	svc := NewFollowService(store, cache, &ws.LocalBus{Hub: hub})
	return svc, store, cache, hub
}

func TestSendFollowRequestSelf(t *testing.T) {
	svc, _, _, _ := newFollowFixture(1)
	err := svc.SendFollowRequest(context.Background(), 1, 1)
	assert.ErrorIs(t, err, pkg.ErrSelfRelation)
}

func TestSendFollowRequestUnknownTarget(t *testing.T) {
	svc, _, _, _ := newFollowFixture(1)
	err := svc.SendFollowRequest(context.Background(), 1, 99)
	assert.ErrorIs(t, err, pkg.ErrUserNotFound)
}

func TestSendFollowRequestPendingNotFollowing(t *testing.T) {
	svc, store, cache, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))

	pending, err := store.HasPending(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, pending)

	following, err := store.IsFollowing(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, following, "request alone must not create a follow")
	assert.Contains(t, cache.calls, "add_pending")
}

func TestSendFollowRequestDuplicate(t *testing.T) {
	svc, _, _, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))
	err := svc.SendFollowRequest(ctx, 1, 2)
	assert.ErrorIs(t, err, pkg.ErrAlreadyRequested)
}

func TestAcceptMakesOneWayFollow(t *testing.T) {
	svc, store, cache, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))
	require.NoError(t, svc.AcceptFollowRequest(ctx, 2, 1))

	following, _ := store.IsFollowing(ctx, 1, 2)
	assert.True(t, following)
	reverse, _ := store.IsFollowing(ctx, 2, 1)
	assert.False(t, reverse, "accepting must not follow back automatically")
	pending, _ := store.HasPending(ctx, 1, 2)
	assert.False(t, pending)

	mutual, err := svc.Mutual(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, mutual)

	assert.Contains(t, cache.calls, "remove_pending")
	assert.Contains(t, cache.calls, "add_follower")
}

func TestAcceptWithoutRequest(t *testing.T) {
	svc, _, _, _ := newFollowFixture(1, 2)
	err := svc.AcceptFollowRequest(context.Background(), 2, 1)
	assert.ErrorIs(t, err, pkg.ErrRequestNotFound)
}

func TestRejectIsIdempotent(t *testing.T) {
	svc, store, _, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))
	require.NoError(t, svc.RejectFollowRequest(ctx, 2, 1))
	require.NoError(t, svc.RejectFollowRequest(ctx, 2, 1), "second reject is a no-op")

	pending, _ := store.HasPending(ctx, 1, 2)
	assert.False(t, pending)
}

func TestRejectedRequesterCanRetry(t *testing.T) {
	svc, store, _, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))
	require.NoError(t, svc.RejectFollowRequest(ctx, 2, 1))
	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))

	pending, _ := store.HasPending(ctx, 1, 2)
	assert.True(t, pending)
}

func TestUnfollowIsIdempotent(t *testing.T) {
	svc, _, cache, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	require.NoError(t, svc.Unfollow(ctx, 1, 2), "unfollowing a stranger succeeds")
	assert.Empty(t, cache.calls, "nothing changed, nothing invalidated")
	require.NoError(t, svc.Unfollow(ctx, 1, 1), "self unfollow is a no-op")
}

func TestFollowBackRequiresExistingFollower(t *testing.T) {
	svc, _, _, _ := newFollowFixture(1, 2)
	err := svc.FollowBack(context.Background(), 2, 1)
	assert.ErrorIs(t, err, pkg.ErrNotFollowing)
}

func TestMutualLifecycle(t *testing.T) {
	svc, _, _, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	// alice asks, bob accepts, bob reciprocates
	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))
	require.NoError(t, svc.AcceptFollowRequest(ctx, 2, 1))
	require.NoError(t, svc.FollowBack(ctx, 2, 1))

	mutual, err := svc.Mutual(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, mutual)

	// either side leaving breaks mutuality immediately
	require.NoError(t, svc.Unfollow(ctx, 1, 2))
	mutual, err = svc.Mutual(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, mutual)
}

func TestRelationshipSummary(t *testing.T) {
	svc, _, _, _ := newFollowFixture(1, 2)
	ctx := context.Background()

	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))
	rel, err := svc.Relationship(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, rel.RequestPending)
	assert.False(t, rel.YouFollowThem)
	assert.False(t, rel.Mutual)

	require.NoError(t, svc.AcceptFollowRequest(ctx, 2, 1))
	require.NoError(t, svc.FollowBack(ctx, 2, 1))
	rel, err = svc.Relationship(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, rel.YouFollowThem)
	assert.True(t, rel.TheyFollowYou)
	assert.True(t, rel.Mutual)
	assert.False(t, rel.RequestPending)
}

func TestRelationEventsReachBothParties(t *testing.T) {
	svc, _, _, hub := newFollowFixture(1, 2)
	ctx := context.Background()

	requesterFeed := hub.Subscribe(ws.UserTopic(1), 8)
	defer requesterFeed.Cancel()
	targetFeed := hub.Subscribe(ws.UserTopic(2), 8)
	defer targetFeed.Cancel()

	require.NoError(t, svc.SendFollowRequest(ctx, 1, 2))

	assert.Equal(t, ws.EventRelation, (<-requesterFeed.C).Type)
	assert.Equal(t, ws.EventRelation, (<-targetFeed.C).Type)
}
