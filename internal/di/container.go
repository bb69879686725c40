// Package di provides dependency injection configuration for the bookstore runtime.
package di

import (
	"github.com/samber/do/v2"

	"github.com/librosapp/libreria/internal/auth"
	"github.com/librosapp/libreria/internal/cart"
	"github.com/librosapp/libreria/internal/config"
	"github.com/librosapp/libreria/internal/di/providers"
	"github.com/librosapp/libreria/internal/logger"
	"github.com/librosapp/libreria/internal/manager"
	"github.com/librosapp/libreria/internal/ratelimit"
	"github.com/librosapp/libreria/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideBackend)
	do.Provide(injector, providers.ProvideBus)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideMirror)

	// Collection managers
	do.Provide(injector, providers.ProvideBooksManager)
	do.Provide(injector, providers.ProvideUsersManager)
	do.Provide(injector, providers.ProvideSynchronizer)

	// Business services
	do.Provide(injector, providers.ProvideLoginLimiter)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideCart)

	return injector
}

// Bootstrap initializes all services and returns once everything is ready.
// This triggers lazy initialization of the full dependency graph.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.BackendHandle](injector)
	_ = do.MustInvoke[*providers.BusHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.MirrorHandle](injector)
	_ = do.MustInvoke[*manager.Books](injector)
	_ = do.MustInvoke[*manager.Users](injector)
	_ = do.MustInvoke[*providers.SynchronizerHandle](injector)
	_ = do.MustInvoke[*ratelimit.KeyedRateLimiter](injector)
	_ = do.MustInvoke[*auth.Service](injector)
	_ = do.MustInvoke[*cart.Cart](injector)
	return nil
}
