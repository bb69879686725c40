// Package auth signs users in and out against the catalog's user list and
// keeps the active session in the shared key-value medium.
package auth

import (
	"crypto/subtle"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"time"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/errors"
	"github.com/librosapp/libreria/internal/id"
	"github.com/librosapp/libreria/internal/manager"
	"github.com/librosapp/libreria/internal/ratelimit"
	"github.com/librosapp/libreria/internal/storage"
)

// sessionKey holds the current session in the shared medium.
const sessionKey = "usuarioActual"

// RegisterInput is the sign-up form. The confirmation must match the
// password; the role is always USUARIO regardless of input.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Service authenticates users and manages the persisted session.
type Service struct {
	backend storage.Backend
	users   *manager.Users
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates an auth service. The limiter throttles login attempts per
// email address.
func New(backend storage.Backend, users *manager.Users, limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Service {
	return &Service{
		backend: backend,
		users:   users,
		limiter: limiter,
		logger:  logger,
	}
}

// Login verifies the credentials and persists a new session. Throttled
// attempts fail with RateLimited; a wrong email or password fails with
// InvalidCredentials without revealing which was wrong; a deactivated
// account fails with Forbidden.
func (s *Service) Login(email, password string) (domain.Session, error) {
	normalized := domain.NormalizeEmail(email)

	if !s.limiter.Allow(normalized) {
		s.logger.Warn("login throttled", "email", normalized)
		return domain.Session{}, errors.RateLimited("too many login attempts, try again later")
	}

	user, err := s.users.GetByEmail(normalized)
	if err != nil {
		return domain.Session{}, errors.InvalidCredentials("incorrect email or password")
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return domain.Session{}, errors.InvalidCredentials("incorrect email or password")
	}
	if !user.Active {
		return domain.Session{}, errors.Forbidden("this account is deactivated")
	}

	session := domain.Session{
		ID:        id.MustGenerate("ses"),
		User:      user.Sanitized(),
		CreatedAt: time.Now(),
	}
	if err := s.saveSession(session); err != nil {
		return domain.Session{}, err
	}

	s.logger.Info("user logged in", "email", normalized, "role", string(user.Role))
	return session, nil
}

// Current returns the persisted session, or NotFound when nobody is
// signed in.
func (s *Service) Current() (domain.Session, error) {
	var session domain.Session
	var missing bool
	err := s.backend.View(func(tx storage.Tx) error {
		data, err := tx.Get(sessionKey)
		if errors.Is(err, storage.ErrKeyNotFound) {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	if missing {
		return domain.Session{}, errors.NotFound("no user is signed in")
	}
	return session, nil
}

// Logout removes the persisted session. Logging out with no session is
// not an error.
func (s *Service) Logout() error {
	err := s.backend.Update(func(tx storage.Tx) error {
		return tx.Delete(sessionKey)
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.logger.Info("user logged out")
	return nil
}

// Register creates a standard user account from the sign-up form. The
// mismatched confirmation fails with Validation before any field rules
// run; duplicate emails surface as Duplicate from the user manager.
func (s *Service) Register(in RegisterInput) (domain.User, error) {
	if in.Password != in.ConfirmPassword {
		return domain.User{}, errors.Validation("passwords do not match")
	}

	user, err := s.users.Create(domain.UserDraft{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     domain.RoleUser,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user registered", "email", user.Email)
	return user, nil
}

func (s *Service) saveSession(session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	err = s.backend.Update(func(tx storage.Tx) error {
		return tx.Set(sessionKey, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
