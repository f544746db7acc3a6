package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RelationRepository struct {
	DB *gorm.DB
}

type OutboxRepository struct {
	DB *gorm.DB
}

type CountReconcilerRepo struct {
	DB *gorm.DB
}

func NewRelationRepository() *RelationRepository {
	return &RelationRepository{DB: DB}
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{DB: DB}
}

func NewCountReconcilerRepo() *CountReconcilerRepo {
	return &CountReconcilerRepo{DB: DB}
}

// CounterPair carries a user's stored counters for reconciliation.
type CounterPair struct {
	ID             uint64
	FollowingCount int64
	FollowerCount  int64
}

// SendRequest records a pending follow request from requester to target.
func (r *RelationRepository) SendRequest(ctx context.Context, requesterID, targetID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target model.User
		if err := tx.Select("id").First(&target, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkg.ErrUserNotFound
			}
			return err
		}

		var rel model.Relation
		// select for update so two clients racing on the same pair serialize
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("requester_id = ? AND target_id = ?", requesterID, targetID).
			First(&rel).Error
		if err == nil {
			if rel.Status == model.RelationAccepted {
				return pkg.ErrAlreadyFollowing
			}
			return pkg.ErrAlreadyRequested
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		rel = model.Relation{
			RequesterID: requesterID,
			TargetID:    targetID,
			Status:      model.RelationPending,
		}
		if err := tx.Create(&rel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return pkg.ErrAlreadyRequested
			}
			return err
		}
		return r.insertOutbox(tx, "follow_requested", requesterID, targetID)
	})
}

// Accept flips a pending request to accepted. The relation row carries both
// sides of the edge, so the follower set of the target and the following set
// of the requester change in the same commit.
func (r *RelationRepository) Accept(ctx context.Context, targetID, requesterID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Relation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("requester_id = ? AND target_id = ? AND status = ?",
				requesterID, targetID, model.RelationPending).
			First(&rel).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkg.ErrRequestNotFound
			}
			return err
		}

		if err := tx.Model(&model.Relation{}).
			Where("id = ? AND status = ?", rel.ID, model.RelationPending).
			Update("status", model.RelationAccepted).Error; err != nil {
			return err
		}
		if err := r.adjustCounts(tx, requesterID, targetID, +1); err != nil {
			return err
		}
		return r.insertOutbox(tx, "follow_accepted", targetID, requesterID)
	})
}

// Reject drops a pending request. Repeating after success is a no-op.
func (r *RelationRepository) Reject(ctx context.Context, targetID, requesterID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("requester_id = ? AND target_id = ? AND status = ?",
			requesterID, targetID, model.RelationPending).
			Delete(&model.Relation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		return r.insertOutbox(tx, "follow_rejected", targetID, requesterID)
	})
	return changed, err
}

// Unfollow removes the accepted edge follower->followee. Idempotent.
func (r *RelationRepository) Unfollow(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Relation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("requester_id = ? AND target_id = ? AND status = ?",
				followerID, followeeID, model.RelationAccepted).
			First(&rel).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Delete(&model.Relation{}, rel.ID).Error; err != nil {
			return err
		}
		changed = true
		if err := r.adjustCounts(tx, followerID, followeeID, -1); err != nil {
			return err
		}
		return r.insertOutbox(tx, "unfollowed", followerID, followeeID)
	})
	return changed, err
}

// FollowBack inserts an accepted edge follower->followee directly, skipping
// the pending step. Only valid while the reverse edge is already accepted.
func (r *RelationRepository) FollowBack(ctx context.Context, followerID, followeeID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reverse int64
		if err := tx.Model(&model.Relation{}).
			Where("requester_id = ? AND target_id = ? AND status = ?",
				followeeID, followerID, model.RelationAccepted).
			Count(&reverse).Error; err != nil {
			return err
		}
		if reverse == 0 {
			return pkg.ErrNotFollowing
		}

		var rel model.Relation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("requester_id = ? AND target_id = ?", followerID, followeeID).
			First(&rel).Error
		if err == nil {
			if rel.Status == model.RelationAccepted {
				return pkg.ErrAlreadyFollowing
			}
			return pkg.ErrAlreadyRequested
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		rel = model.Relation{
			RequesterID: followerID,
			TargetID:    followeeID,
			Status:      model.RelationAccepted,
		}
		if err := tx.Create(&rel).Error; err != nil {
			return err
		}
		if err := r.adjustCounts(tx, followerID, followeeID, +1); err != nil {
			return err
		}
		return r.insertOutbox(tx, "follow_back", followerID, followeeID)
	})
}

// IsFollowing reports whether the accepted edge follower->followee exists.
func (r *RelationRepository) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Relation{}).
		Where("requester_id = ? AND target_id = ? AND status = ?",
			followerID, followeeID, model.RelationAccepted).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mutual re-reads both directions in one query. Anything less than two
// accepted edges, including the transient half-updated states, reads as
// "not yet mutual".
func (r *RelationRepository) Mutual(ctx context.Context, a, b uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Relation{}).
		Where("status = ?", model.RelationAccepted).
		Where("(requester_id = ? AND target_id = ?) OR (requester_id = ? AND target_id = ?)",
			a, b, b, a).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n == 2, nil
}

// HasPending reports whether requester has an unresolved request to target.
func (r *RelationRepository) HasPending(ctx context.Context, requesterID, targetID uint64) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.Relation{}).
		Where("requester_id = ? AND target_id = ? AND status = ?",
			requesterID, targetID, model.RelationPending).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// FollowerIDs lists every accepted follower of a user, for cache warming.
func (r *RelationRepository) FollowerIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.Relation{}).
		Where("target_id = ? AND status = ?", userID, model.RelationAccepted).
		Pluck("requester_id", &ids).Error
	return ids, err
}

// ListFollowers pages over accepted edges targeting userID, newest first.
func (r *RelationRepository) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error) {
	return r.listEdges(ctx, "target_id", userID, model.RelationAccepted, cursor, limit)
}

// ListFollowings pages over accepted edges requested by userID, newest first.
func (r *RelationRepository) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Relation, uint64, error) {
	return r.listEdges(ctx, "requester_id", userID, model.RelationAccepted, cursor, limit)
}

// PendingFor returns every unresolved request targeting userID, newest first.
// The id ordering breaks created_at ties deterministically.
func (r *RelationRepository) PendingFor(ctx context.Context, userID uint64) ([]model.Relation, error) {
	var rows []model.Relation
	err := r.DB.WithContext(ctx).
		Where("target_id = ? AND status = ?", userID, model.RelationPending).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *RelationRepository) listEdges(ctx context.Context, column string, userID uint64, status int8, cursor uint64, limit int) ([]model.Relation, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.DB.WithContext(ctx).Model(&model.Relation{}).
		Where(column+" = ? AND status = ?", userID, status)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Relation
	// limit+1 probes whether another page exists
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

func (r *RelationRepository) adjustCounts(tx *gorm.DB, followerID, followeeID uint64, delta int64) error {
	if err := tx.Model(&model.User{}).
		Where("id = ?", followerID).
		UpdateColumn("following_count", gorm.Expr("GREATEST(0, following_count + ?)", delta)).Error; err != nil {
		return err
	}
	if err := tx.Model(&model.User{}).
		Where("id = ?", followeeID).
		UpdateColumn("follower_count", gorm.Expr("GREATEST(0, follower_count + ?)", delta)).Error; err != nil {
		return err
	}
	return nil
}

func (r *RelationRepository) insertOutbox(tx *gorm.DB, event string, actorID, subjectID uint64) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"actor":      actorID,
		"subject":    subjectID,
	})
	ob := &model.SocialOutbox{
		EventType: event,
		ActorID:   actorID,
		SubjectID: subjectID,
		Payload:   string(payload),
		Status:    0,
	}
	return tx.Create(ob).Error
}

// List returns pending outbox rows oldest first.
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = 0").
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate marks a delivery failure and bumps the retry counter.
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": 2, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate marks a row as delivered.
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id = ?", id).
		Update("status", 1).Error
}

// ReconcileList pages over users for counter reconciliation.
func (r *CountReconcilerRepo) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]CounterPair, uint64, error) {
	var list []CounterPair
	if err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("id", "following_count", "follower_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealFollowers counts accepted edges targeting userID straight from the
// relations table.
func (r *CountReconcilerRepo) RealFollowers(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Relation{}).
		Where("target_id = ? AND status = ?", userID, model.RelationAccepted).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// RealFollowings counts accepted edges requested by userID.
func (r *CountReconcilerRepo) RealFollowings(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&model.Relation{}).
		Where("requester_id = ? AND status = ?", userID, model.RelationAccepted).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *CountReconcilerRepo) ReconcileFollowers(ctx context.Context, userID uint64, real int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn("follower_count", real).Error
}

func (r *CountReconcilerRepo) ReconcileFollowings(ctx context.Context, userID uint64, real int64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn("following_count", real).Error
}
