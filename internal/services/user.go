package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bloggery/apiserver/internal/auth"
	"github.com/bloggery/apiserver/internal/logutil"
	"github.com/bloggery/apiserver/internal/metrics"
	"github.com/bloggery/apiserver/internal/session"
	"github.com/bloggery/apiserver/internal/store"
	"github.com/bloggery/apiserver/types"
)

// dummyHash is compared against when a login names an unknown user, so
// both failure paths cost one bcrypt verification.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// maxPasswordBytes is bcrypt's input limit. Anything longer is invalid
// input, not an internal failure.
const maxPasswordBytes = 72

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// UserService implements the registration, login, and self-service
// account lifecycle. Every mutation of an account goes through the
// session bound to it; no operation accepts a caller-supplied user id.
type UserService struct {
	repo     UserRepository
	sessions *session.Manager
}

func NewUserService(repo UserRepository, sessions *session.Manager) *UserService {
	return &UserService{repo: repo, sessions: sessions}
}

// RegisterInput carries the registration form fields. The password
// fields are consumed here and never stored, logged, or echoed back.
type RegisterInput struct {
	Username        string
	Name            string
	Email           string
	FavoriteColor   string
	Password        string
	ConfirmPassword string
}

// Register creates an account with a hashed credential. Username and
// email uniqueness is enforced by the store's constraints; a collision
// surfaces as *store.DuplicateError.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	fields := fieldErrors{}
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.FavoriteColor = strings.TrimSpace(in.FavoriteColor)

	if in.Username == "" {
		fields.set("username", "required")
	}
	if in.Name == "" {
		fields.set("name", "required")
	}
	if in.Email == "" {
		fields.set("email", "required")
	}
	if in.Password == "" {
		fields.set("password", "required")
	}
	if len(in.Password) > maxPasswordBytes {
		fields.set("password", "too long")
	}
	if in.Password != in.ConfirmPassword {
		fields.set("confirm_password", "passwords must match")
	}
	if err := fields.err(); err != nil {
		return types.User{}, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:      in.Username,
		Name:          in.Name,
		Email:         in.Email,
		FavoriteColor: in.FavoriteColor,
		PasswordHash:  hashed,
	})
	if err != nil {
		return types.User{}, err
	}

	metrics.RegistrationsTotal.Inc()
	return user, nil
}

// Login verifies credentials and issues a session. Unknown usernames
// and wrong passwords both fail with ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (string, types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues(metrics.LoginFailure).Inc()
		return "", types.User{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger := logutil.GetOrDefault(ctx)
			logger.Error().Err(err).Msg("login: user lookup failed")
			return "", types.User{}, err
		}
		auth.CheckPassword(password, dummyHash)
		metrics.LoginsTotal.WithLabelValues(metrics.LoginFailure).Inc()
		return "", types.User{}, ErrInvalidCredentials
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		metrics.LoginsTotal.WithLabelValues(metrics.LoginFailure).Inc()
		return "", types.User{}, ErrInvalidCredentials
	}

	token, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", types.User{}, err
	}

	metrics.LoginsTotal.WithLabelValues(metrics.LoginSuccess).Inc()
	metrics.SessionsIssued.Inc()
	return token, user, nil
}

// Logout revokes the presented token. It succeeds whether or not the
// token was live.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return err
	}
	metrics.SessionsRevoked.Inc()
	return nil
}

// CurrentUser resolves the token to its live account. A token whose
// account has been deleted resolves to nobody and is revoked on sight.
// Store failures propagate unchanged; only a genuinely absent session
// reads as unauthenticated.
func (s *UserService) CurrentUser(ctx context.Context, token string) (types.User, error) {
	sess, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return types.User{}, ErrNotAuthenticated
		}
		return types.User{}, err
	}

	user, err := s.repo.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = s.sessions.Revoke(ctx, token)
			return types.User{}, ErrNotAuthenticated
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateSelfInput carries the profile fields a user may edit.
type UpdateSelfInput struct {
	Username      string
	Name          string
	Email         string
	FavoriteColor string
}

// UpdateSelf mutates the account bound to the session. The target is
// always the session's own user; a username or email change is
// re-checked against the store's unique constraints at commit.
func (s *UserService) UpdateSelf(ctx context.Context, token string, in UpdateSelfInput) (types.User, error) {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return types.User{}, err
	}

	fields := fieldErrors{}
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" {
		fields.set("username", "required")
	}
	if in.Name == "" {
		fields.set("name", "required")
	}
	if in.Email == "" {
		fields.set("email", "required")
	}
	if err := fields.err(); err != nil {
		return types.User{}, err
	}

	user.Username = in.Username
	user.Name = in.Name
	user.Email = in.Email
	user.FavoriteColor = strings.TrimSpace(in.FavoriteColor)

	return s.repo.Update(ctx, user)
}

// DeleteSelf permanently removes the account bound to the session and
// invalidates every session it holds.
func (s *UserService) DeleteSelf(ctx context.Context, token string) error {
	user, err := s.CurrentUser(ctx, token)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}

	// The presented token first, so its cache entry dies with it.
	_ = s.sessions.Revoke(ctx, token)
	if err := s.sessions.RevokeUser(ctx, user.ID); err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Int("user_id", user.ID).
			Msg("delete self: session revocation failed")
	}

	metrics.AccountsDeleted.Inc()
	metrics.SessionsRevoked.Inc()
	return nil
}

// GetByID returns a single account.
func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all accounts ordered by creation time.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}
