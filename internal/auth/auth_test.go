package auth

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librosapp/libreria/internal/domain"
	domainerrors "github.com/librosapp/libreria/internal/errors"
	"github.com/librosapp/libreria/internal/manager"
	"github.com/librosapp/libreria/internal/ratelimit"
	"github.com/librosapp/libreria/internal/seed"
	"github.com/librosapp/libreria/internal/storage"
	"github.com/librosapp/libreria/internal/validation"
)

// setupAuth creates an auth service over a seeded temp store. The limiter
// is generous so ordinary tests never trip it.
func setupAuth(t *testing.T) (*Service, *manager.Users) {
	t.Helper()
	return setupAuthWithLimiter(t, ratelimit.New(1000, 1000))
}

func setupAuthWithLimiter(t *testing.T, limiter *ratelimit.KeyedRateLimiter) (*Service, *manager.Users) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	backend, err := storage.OpenBadger(filepath.Join(t.TempDir(), "db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	store, err := storage.Open(backend, storage.Options{
		Seed:   seed.InitialRecord(),
		Logger: logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	users := manager.NewUsers(store, validation.New(), logger)
	require.NoError(t, users.LoadFromStore())

	return New(backend, users, limiter, logger), users
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := setupAuth(t)

	session, err := svc.Login("maria@example.com", "maria123")
	require.NoError(t, err)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "María García", session.User.Name)
	assert.Empty(t, session.User.Password)
	assert.False(t, session.CreatedAt.IsZero())
}

func TestLoginNormalizesEmail(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Login("  MARIA@Example.COM ", "maria123")
	assert.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Login("maria@example.com", "incorrecta")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestLoginUnknownEmailGivesSameError(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Login("nadie@example.com", "loquesea")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	svc, users := setupAuth(t)

	active := false
	_, err := users.Update(3, domain.UserPatch{Active: &active})
	require.NoError(t, err)

	_, err = svc.Login("juan@example.com", "juan123456")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestLoginIsThrottledPerEmail(t *testing.T) {
	svc, _ := setupAuthWithLimiter(t, ratelimit.New(0.001, 2))

	_, err := svc.Login("maria@example.com", "mala")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	_, err = svc.Login("maria@example.com", "mala")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = svc.Login("maria@example.com", "maria123")
	assert.ErrorIs(t, err, domainerrors.ErrRateLimited)

	// Another account is not affected by the throttle.
	_, err = svc.Login("juan@example.com", "juan123456")
	assert.NoError(t, err)
}

func TestCurrentAndLogout(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Current()
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	session, err := svc.Login("maria@example.com", "maria123")
	require.NoError(t, err)

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, session.ID, current.ID)
	assert.Equal(t, "maria@example.com", current.User.Email)
	assert.Empty(t, current.User.Password)

	require.NoError(t, svc.Logout())
	_, err = svc.Current()
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	// A second logout with no session is fine.
	assert.NoError(t, svc.Logout())
}

func TestLoginReplacesExistingSession(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Login("maria@example.com", "maria123")
	require.NoError(t, err)
	_, err = svc.Login("juan@example.com", "juan123456")
	require.NoError(t, err)

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", current.User.Email)
}

func TestRegisterCreatesStandardUser(t *testing.T) {
	svc, users := setupAuth(t)

	created, err := svc.Register(RegisterInput{
		Name:            "Lucía Fernández",
		Email:           "lucia@example.com",
		Password:        "secreto123",
		ConfirmPassword: "secreto123",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleUser, created.Role)
	assert.True(t, created.Active)
	assert.Equal(t, 4, users.Count())

	// The new account can sign in right away.
	_, err = svc.Login("lucia@example.com", "secreto123")
	assert.NoError(t, err)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	svc, users := setupAuth(t)

	_, err := svc.Register(RegisterInput{
		Name:            "Lucía Fernández",
		Email:           "lucia@example.com",
		Password:        "secreto123",
		ConfirmPassword: "distinta123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, 3, users.Count())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Register(RegisterInput{
		Name:            "Copia",
		Email:           "maria@example.com",
		Password:        "secreto123",
		ConfirmPassword: "secreto123",
	})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicate)
}

func TestRegisterValidatesFields(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Register(RegisterInput{
		Name:            "L",
		Email:           "no-es-email",
		Password:        "corta",
		ConfirmPassword: "corta",
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.NotEmpty(t, derr.Violations())
}
