// Package di provides dependency injection configuration for dropsort.
package di

import (
	"io"

	"github.com/samber/do/v2"

	"github.com/listenupapp/dropsort/internal/config"
	"github.com/listenupapp/dropsort/internal/di/providers"
	"github.com/listenupapp/dropsort/internal/logger"
	"github.com/listenupapp/dropsort/internal/processor"
	"github.com/listenupapp/dropsort/internal/relocator"
)

// NewContainer creates and configures the DI container for an already loaded
// configuration. Logs are written to logOut.
func NewContainer(cfg *config.Config, logOut io.Writer) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, providers.LogOutput{Writer: logOut})
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideInstanceLock)

	// Relocation
	do.Provide(injector, providers.ProvideRelocator)
	do.Provide(injector, providers.ProvideEventProcessor)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	return injector
}

// Bootstrap initializes every service needed by a long-running watch,
// including the file watcher, which starts delivering events immediately.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.InstanceLockHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*relocator.Relocator](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*processor.EventProcessor](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.FileWatcherHandle](injector); err != nil {
		return err
	}
	return nil
}
