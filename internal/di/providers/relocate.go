package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/dropsort/internal/config"
	"github.com/listenupapp/dropsort/internal/logger"
	"github.com/listenupapp/dropsort/internal/processor"
	"github.com/listenupapp/dropsort/internal/relocator"
)

// ProvideRelocator provides the relocator built from the configured rules.
func ProvideRelocator(i do.Injector) (*relocator.Relocator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}

	log.Info("classification rules loaded",
		"extensions", rules.Len(),
		"settle_delay", cfg.Relocate.SettleDelay,
	)

	return relocator.New(rules, log.Logger, relocator.WithSettleDelay(cfg.Relocate.SettleDelay)), nil
}

// ProvideEventProcessor provides the event processor. The instance lock is
// resolved first so nothing is moved by a second process.
func ProvideEventProcessor(i do.Injector) (*processor.EventProcessor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	_ = do.MustInvoke[*InstanceLockHandle](i)
	r := do.MustInvoke[*relocator.Relocator](i)

	return processor.NewEventProcessor(r, log.Logger, processor.Options{
		Root:          cfg.Watch.Root,
		Filter:        cfg.WatcherOptions(),
		MaxConcurrent: cfg.Relocate.MaxConcurrent,
	}), nil
}
