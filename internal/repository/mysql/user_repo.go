package mysql

import (
	"context"
	"errors"
	"time"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"

	"gorm.io/gorm"
)

// The search upper bound mirrors a lexicographic prefix range: every string
// starting with the prefix sorts between it and prefix+sentinel.
const prefixSentinel = ""

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository() *UserRepository {
	return &UserRepository{DB: DB}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.DB.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkg.ErrNameTaken
	}
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.ErrUserNotFound
	}
	return &user, err
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).
		Where("display_name = ? OR email = ?", login, login).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.ErrUserNotFound
	}
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkg.ErrUserNotFound
	}
	return &user, err
}

// DisplayNameExists is the fast-path uniqueness probe. The unique index is
// still authoritative: two concurrent allocators can both pass this check,
// and the loser gets ErrNameTaken from Create.
func (r *UserRepository) DisplayNameExists(ctx context.Context, name string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("display_name = ?", name).
		Count(&n).Error
	return n > 0, err
}

// SearchByPrefix returns users whose display name starts with prefix,
// excluding the caller. Empty prefix matches nobody.
func (r *UserRepository) SearchByPrefix(ctx context.Context, prefix string, excludeID uint64, limit int) ([]model.User, error) {
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []model.User
	err := r.DB.WithContext(ctx).
		Where("display_name >= ? AND display_name <= ?", prefix, prefix+prefixSentinel).
		Where("id <> ?", excludeID).
		Order("display_name ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// List returns the directory ordered the way the users screen shows it:
// online users first, then by most recent activity.
func (r *UserRepository) List(ctx context.Context, excludeID uint64, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []model.User
	err := r.DB.WithContext(ctx).
		Where("id <> ?", excludeID).
		Order("status = 'online' DESC").
		Order("last_seen DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FindMany resolves a batch of ids; missing ids are silently dropped.
func (r *UserRepository) FindMany(ctx context.Context, ids []uint64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.User
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// UpdateProfile merges only the named fields into the record.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint64, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkg.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("password", hash).Error
}

// SetPresence stamps status and last_seen together.
func (r *UserRepository) SetPresence(ctx context.Context, id uint64, status string, lastSeen time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "last_seen": lastSeen}).Error
}

func (r *UserRepository) TouchLastSeen(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("last_seen", time.Now()).Error
}

// MarkAwayBefore flips online users whose last_seen is older than the cutoff
// to away, returning the ids it touched so presence events can be published.
func (r *UserRepository) MarkAwayBefore(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("status = ? AND last_seen < ?", model.StatusOnline, cutoff).
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	err = r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id IN ?", ids).
		Update("status", model.StatusAway).Error
	return ids, err
}
