package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"Talk_Flow/internal/model"
	"Talk_Flow/internal/pkg"
	"Talk_Flow/internal/ws"

	"golang.org/x/crypto/bcrypt"
)

const maxAllocateAttempts = 16

// UserStore is the persistence surface of the user directory.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	DisplayNameExists(ctx context.Context, name string) (bool, error)
	SearchByPrefix(ctx context.Context, prefix string, excludeID uint64, limit int) ([]model.User, error)
	List(ctx context.Context, excludeID uint64, limit int) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uint64, fields map[string]any) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

// SessionStore holds the active access token per user.
type SessionStore interface {
	AddToken(userID uint64, token string) error
	DeleteToken(userID uint64) error
}

// CodeVerifier checks emailed verification codes.
type CodeVerifier interface {
	VerifyCode(scope, email, code string) (bool, error)
}

// NameLocker serializes allocation of one candidate display name.
type NameLocker interface {
	Acquire(ctx context.Context, name, token string) (bool, error)
	Release(ctx context.Context, name, token string) error
}

type UserService struct {
	repo     UserStore
	sessions SessionStore
	codes    CodeVerifier
	lock     NameLocker
	presence *PresenceService
	bus      EventBus
}

func NewUserService(repo UserStore, sessions SessionStore, codes CodeVerifier, lock NameLocker, presence *PresenceService, bus EventBus) *UserService {
	return &UserService{
		repo:     repo,
		sessions: sessions,
		codes:    codes,
		lock:     lock,
		presence: presence,
		bus:      bus,
	}
}

// AllocateUsername loops the generator until it finds a free display name,
// holding a short per-candidate lock across the existence probe so two
// registrations cannot both claim the same candidate. Bounded: after
// maxAllocateAttempts collisions it gives up rather than spin forever.
func (s *UserService) AllocateUsername(ctx context.Context) (string, error) {
	for i := 0; i < maxAllocateAttempts; i++ {
		name, err := pkg.GenerateUsername()
		if err != nil {
			return "", err
		}

		token := fmt.Sprintf("%d-%s", time.Now().UnixNano(), name)
		got, err := s.lock.Acquire(ctx, name, token)
		if err != nil || !got {
			continue
		}
		exists, err := s.repo.DisplayNameExists(ctx, name)
		_ = s.lock.Release(ctx, name, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return "", pkg.ErrNameSpaceExhausted
}

// Register creates the directory record for a new account. The emailed code
// proves ownership of the address; the display name must be unused.
func (s *UserService) Register(ctx context.Context, displayName, password, email, code string) (*model.User, error) {
	if displayName == "" || password == "" || email == "" {
		return nil, pkg.ErrMissingField
	}
	ok, err := s.codes.VerifyCode("register", email, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkg.ErrCodeInvalid
	}
	exists, err := s.repo.DisplayNameExists(ctx, displayName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, pkg.ErrNameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		DisplayName: displayName,
		Email:       email,
		Password:    string(hash),
		Status:      model.StatusOnline,
		LastSeen:    time.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials, issues a token pair and flips the user online.
func (s *UserService) Login(ctx context.Context, login, password string) (*pkg.TokenPair, *model.User, error) {
	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, nil, pkg.ErrWrongPassword
	}

	token, err := pkg.GenerateTokenPair(user.ID)
	if err != nil {
		return nil, nil, err
	}
	if err = s.sessions.AddToken(user.ID, token.AccessToken); err != nil {
		return nil, nil, err
	}
	if err := s.presence.SetStatus(ctx, user.ID, model.StatusOnline); err != nil {
		log.Printf("login presence update for %d failed: %v", user.ID, err)
	}
	return token, user, nil
}

// Logout drops the session and stamps the user offline with a final
// last-seen.
func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if err := s.sessions.DeleteToken(userID); err != nil {
		return err
	}
	if err := s.presence.SetStatus(ctx, userID, model.StatusOffline); err != nil {
		log.Printf("logout presence update for %d failed: %v", userID, err)
	}
	return nil
}

func (s *UserService) Refresh(refreshToken string) (*pkg.TokenPair, error) {
	return pkg.RefreshTokens(refreshToken)
}

func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Search finds users whose display name starts with prefix, never including
// the caller themselves.
func (s *UserService) Search(ctx context.Context, callerID uint64, prefix string, limit int) ([]model.Profile, error) {
	rows, err := s.repo.SearchByPrefix(ctx, prefix, callerID, limit)
	if err != nil {
		return nil, err
	}
	return profiles(rows), nil
}

// Directory lists everyone else, online users first.
func (s *UserService) Directory(ctx context.Context, callerID uint64, limit int) ([]model.Profile, error) {
	rows, err := s.repo.List(ctx, callerID, limit)
	if err != nil {
		return nil, err
	}
	return profiles(rows), nil
}

// UpdateProfile merges bio and photo changes and tells record watchers.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, bio, photoURL *string) error {
	fields := map[string]any{}
	if bio != nil {
		fields["bio"] = *bio
	}
	if photoURL != nil {
		fields["photo_url"] = *photoURL
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		return err
	}
	if ev, err := ws.NewEvent(ws.EventProfile, map[string]uint64{"user_id": userID}); err == nil {
		if err := s.bus.Publish(ctx, ws.UserTopic(userID), ev); err != nil {
			log.Printf("profile event publish for %d failed: %v", userID, err)
		}
	}
	return nil
}

// ChangePassword verifies the old password before hashing in the new one,
// then forces a fresh login.
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return pkg.ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// ResetPassword is the forgotten-password flow: emailed code instead of the
// old password.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	ok, err := s.codes.VerifyCode("reset", email, code)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.ErrCodeInvalid
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, user.ID, string(hash))
}

func profiles(users []model.User) []model.Profile {
	out := make([]model.Profile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	return out
}
