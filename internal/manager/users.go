package manager

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/errors"
	"github.com/librosapp/libreria/internal/storage"
	"github.com/librosapp/libreria/internal/validation"
)

// Users manages the in-memory user collection.
type Users struct {
	store    *storage.Store
	validate *validation.Validator
	logger   *slog.Logger

	mu    sync.RWMutex
	users []domain.User
}

// NewUsers creates an empty user manager backed by the store.
func NewUsers(store *storage.Store, validate *validation.Validator, logger *slog.Logger) *Users {
	return &Users{
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// LoadFromStore replaces the in-memory collection with the store's current
// user sequence.
func (m *Users) LoadFromStore() error {
	users, err := m.store.Users()
	if err != nil {
		return err
	}
	m.LoadData(users)
	return nil
}

// LoadData replaces the in-memory collection.
func (m *Users) LoadData(items []domain.User) {
	users := slices.Clone(items)

	m.mu.Lock()
	m.users = users
	m.mu.Unlock()
}

// All returns a copy of the collection in stored order.
func (m *Users) All() []domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.users)
}

// Count returns the number of users.
func (m *Users) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// Get returns the user with the given id.
func (m *Users) Get(userID int64) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.users {
		if m.users[i].ID == userID {
			return m.users[i], nil
		}
	}
	return domain.User{}, errors.NotFound("user not found")
}

// GetByEmail returns the user with the given email, compared in normalized
// form.
func (m *Users) GetByEmail(email string) (domain.User, error) {
	normalized := domain.NormalizeEmail(email)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.users {
		if domain.NormalizeEmail(m.users[i].Email) == normalized {
			return m.users[i], nil
		}
	}
	return domain.User{}, errors.NotFound("user not found")
}

// Create validates and appends a new user, then persists the collection.
// Fails with Validation (listing every violated rule) or Duplicate when the
// email is already registered.
func (m *Users) Create(draft domain.UserDraft) (domain.User, error) {
	user := domain.NewUser(draft)

	if err := m.validate.Validate(&user); err != nil {
		return domain.User{}, err
	}

	// Email uniqueness and id assignment run against the committed
	// sequence so overlapping creates cannot share a snapshot and lose
	// an account.
	next, err := m.store.MutateUsers(func(users []domain.User) ([]domain.User, error) {
		for i := range users {
			if domain.NormalizeEmail(users[i].Email) == user.Email {
				return nil, errors.Duplicate("a user with this email already exists")
			}
		}
		user.ID = domain.NextUserID(users)
		return append(users, user), nil
	})
	if err != nil {
		return domain.User{}, err
	}
	m.LoadData(next)

	m.logger.Info("user created", "id", user.ID, "email", user.Email)
	return user, nil
}

// Update merges the patch onto the stored user, re-validates the merged
// result, and re-checks email uniqueness only when the patch changes the
// email. The primary administrator's role cannot be changed.
func (m *Users) Update(userID int64, patch domain.UserPatch) (domain.User, error) {
	var merged domain.User
	next, err := m.store.MutateUsers(func(users []domain.User) ([]domain.User, error) {
		idx := slices.IndexFunc(users, func(u domain.User) bool { return u.ID == userID })
		if idx < 0 {
			return nil, errors.NotFound("user not found")
		}

		current := users[idx]
		if current.IsPrimaryAdmin() && patch.ChangesRole(&current) {
			return nil, errors.Forbidden("cannot change the primary administrator's role")
		}

		merged = current
		patch.Apply(&merged)

		if err := m.validate.Validate(&merged); err != nil {
			return nil, err
		}

		if patch.ChangesEmail() {
			for i := range users {
				if i != idx && domain.NormalizeEmail(users[i].Email) == merged.Email {
					return nil, errors.Duplicate("a user with this email already exists")
				}
			}
		}

		users[idx] = merged
		return users, nil
	})
	if err != nil {
		return domain.User{}, err
	}
	m.LoadData(next)

	return merged, nil
}

// Delete removes the user with the given id. The primary administrator can
// never be deleted.
func (m *Users) Delete(userID int64) (domain.User, error) {
	var removed domain.User
	next, err := m.store.MutateUsers(func(users []domain.User) ([]domain.User, error) {
		idx := slices.IndexFunc(users, func(u domain.User) bool { return u.ID == userID })
		if idx < 0 {
			return nil, errors.NotFound("user not found")
		}
		if users[idx].IsPrimaryAdmin() {
			return nil, errors.Forbidden("cannot delete the primary administrator")
		}
		removed = users[idx]
		return slices.Delete(users, idx, idx+1), nil
	})
	if err != nil {
		return domain.User{}, err
	}
	m.LoadData(next)

	m.logger.Info("user deleted", "id", userID, "email", removed.Email)
	return removed, nil
}

// ToggleRole flips a user between ADMIN and USUARIO. The primary
// administrator's role cannot be toggled.
func (m *Users) ToggleRole(userID int64) (domain.User, error) {
	var toggled domain.User
	next, err := m.store.MutateUsers(func(users []domain.User) ([]domain.User, error) {
		idx := slices.IndexFunc(users, func(u domain.User) bool { return u.ID == userID })
		if idx < 0 {
			return nil, errors.NotFound("user not found")
		}
		if users[idx].IsPrimaryAdmin() {
			return nil, errors.Forbidden("cannot change the primary administrator's role")
		}
		toggled = users[idx]
		toggled.Role = toggled.Role.Toggled()
		users[idx] = toggled
		return users, nil
	})
	if err != nil {
		return domain.User{}, err
	}
	m.LoadData(next)

	m.logger.Info("user role toggled", "id", userID, "role", string(toggled.Role))
	return toggled, nil
}
