package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	FollowerSetTTL       = 24 * time.Hour
	FollowerSetKeyPrefix = "rel:followers" // accepted follower ids per user
	PendingSetKeyPrefix  = "rel:pending"   // unresolved requester ids per user
	AllocLockTTL         = 2 * time.Second
	AllocLockKeyPrefix   = "lock:alloc:name"
)

// RelationCacheRepository caches follower and pending-request id sets.
// It is a read-path shortcut only: the conversation gate and every state
// transition re-read MySQL, so a stale or missing set is never unsafe.
type RelationCacheRepository struct {
	setTTL time.Duration
}

// AllocLock serializes display-name allocation per candidate so two
// registrations racing on the same generated name do not both pass the
// existence probe.
type AllocLock struct {
	RDB *redis.Client
}

func NewRelationCacheRepository() *RelationCacheRepository {
	return &RelationCacheRepository{setTTL: FollowerSetTTL}
}

func (r *RelationCacheRepository) followerKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", FollowerSetKeyPrefix, userID)
}
func (r *RelationCacheRepository) pendingKey(userID uint64) string {
	return fmt.Sprintf("%s:%d", PendingSetKeyPrefix, userID)
}

// WarmFollowers replaces the cached follower set from an authoritative read.
func (r *RelationCacheRepository) WarmFollowers(ctx context.Context, userID uint64, followerIDs []uint64) error {
	k := r.followerKey(userID)
	pipe := Client.TxPipeline()
	pipe.Del(ctx, k)
	if len(followerIDs) > 0 {
		members := make([]any, len(followerIDs))
		for i, id := range followerIDs {
			members[i] = id
		}
		pipe.SAdd(ctx, k, members...)
	}
	pipe.Expire(ctx, k, r.setTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// AddFollower updates the cached set lazily: only when it already exists,
// so cold users do not grow unbounded sets nobody reads.
func (r *RelationCacheRepository) AddFollower(ctx context.Context, userID, followerID uint64) {
	r.lazyUpdate(ctx, r.followerKey(userID), followerID, true)
}

func (r *RelationCacheRepository) RemoveFollower(ctx context.Context, userID, followerID uint64) {
	r.lazyUpdate(ctx, r.followerKey(userID), followerID, false)
}

func (r *RelationCacheRepository) AddPending(ctx context.Context, userID, requesterID uint64) {
	r.lazyUpdate(ctx, r.pendingKey(userID), requesterID, true)
}

func (r *RelationCacheRepository) RemovePending(ctx context.Context, userID, requesterID uint64) {
	r.lazyUpdate(ctx, r.pendingKey(userID), requesterID, false)
}

// IsFollowerCached reports (isFollower, cacheHit). Callers must fall back to
// the store on a miss and must never authorize with a hit alone.
func (r *RelationCacheRepository) IsFollowerCached(ctx context.Context, userID, followerID uint64) (bool, bool, error) {
	k := r.followerKey(userID)
	exists, err := Client.Exists(ctx, k).Result()
	if err != nil {
		return false, false, err
	}
	if exists == 0 {
		return false, false, nil
	}
	b, err := Client.SIsMember(ctx, k, followerID).Result()
	return b, true, err
}

func (r *RelationCacheRepository) lazyUpdate(ctx context.Context, key string, member uint64, add bool) {
	if ok, _ := Client.Exists(ctx, key).Result(); ok > 0 {
		if add {
			_ = Client.SAdd(ctx, key, member).Err()
		} else {
			_ = Client.SRem(ctx, key, member).Err()
		}
		_ = Client.Expire(ctx, key, r.setTTL).Err()
	}
}

// Acquire takes the allocation lock for one candidate name.
func (l *AllocLock) Acquire(ctx context.Context, name, token string) (bool, error) {
	key := fmt.Sprintf("%s:%s", AllocLockKeyPrefix, name)
	return l.RDB.SetNX(ctx, key, token, AllocLockTTL).Result()
}

// Release frees the lock only if we still hold it; the Lua script keeps the
// compare and delete atomic.
func (l *AllocLock) Release(ctx context.Context, name, token string) error {
	key := fmt.Sprintf("%s:%s", AllocLockKeyPrefix, name)
	_, err := redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`).Run(ctx, l.RDB, []string{key}, token).Result()
	return err
}
