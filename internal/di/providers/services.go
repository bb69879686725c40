package providers

import (
	"github.com/samber/do/v2"

	"github.com/librosapp/libreria/internal/auth"
	"github.com/librosapp/libreria/internal/cart"
	"github.com/librosapp/libreria/internal/config"
	"github.com/librosapp/libreria/internal/logger"
	"github.com/librosapp/libreria/internal/manager"
	"github.com/librosapp/libreria/internal/ratelimit"
	"github.com/librosapp/libreria/internal/sync"
	"github.com/librosapp/libreria/internal/validation"
)

// localCartOwner names the single cart of this browser profile.
const localCartOwner = "local"

// ProvideValidator provides the shared struct validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideBooksManager provides the book manager loaded with current data.
func ProvideBooksManager(i do.Injector) (*manager.Books, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*StoreHandle](i)
	validate := do.MustInvoke[*validation.Validator](i)

	books := manager.NewBooks(store.Store, validate, log.Logger)
	if err := books.LoadFromStore(); err != nil {
		return nil, err
	}
	return books, nil
}

// ProvideUsersManager provides the user manager loaded with current data.
func ProvideUsersManager(i do.Injector) (*manager.Users, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*StoreHandle](i)
	validate := do.MustInvoke[*validation.Validator](i)

	users := manager.NewUsers(store.Store, validate, log.Logger)
	if err := users.LoadFromStore(); err != nil {
		return nil, err
	}
	return users, nil
}

// SynchronizerHandle wraps the synchronizer with shutdown capability.
type SynchronizerHandle struct {
	*sync.Synchronizer
}

// Shutdown implements do.Shutdownable.
func (h *SynchronizerHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideSynchronizer provides the started page synchronizer.
func ProvideSynchronizer(i do.Injector) (*SynchronizerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*StoreHandle](i)
	books := do.MustInvoke[*manager.Books](i)
	users := do.MustInvoke[*manager.Users](i)

	syncer := sync.NewSynchronizer(store.Store, books, users, log.Logger)
	if err := syncer.Start(); err != nil {
		return nil, err
	}
	return &SynchronizerHandle{Synchronizer: syncer}, nil
}

// ProvideLoginLimiter provides the per-email login throttle.
func ProvideLoginLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.New(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*auth.Service, error) {
	log := do.MustInvoke[*logger.Logger](i)
	backend := do.MustInvoke[*BackendHandle](i)
	users := do.MustInvoke[*manager.Users](i)
	limiter := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)

	return auth.New(backend.Backend, users, limiter, log.Logger), nil
}

// ProvideCart provides the profile-local shopping cart.
func ProvideCart(i do.Injector) (*cart.Cart, error) {
	log := do.MustInvoke[*logger.Logger](i)
	backend := do.MustInvoke[*BackendHandle](i)

	return cart.New(backend.Backend, localCartOwner, log.Logger), nil
}
