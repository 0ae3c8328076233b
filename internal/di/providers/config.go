// Package providers contains dependency injection providers for dropsort.
package providers

import (
	"io"
	"os"

	"github.com/samber/do/v2"

	"github.com/listenupapp/dropsort/internal/config"
	"github.com/listenupapp/dropsort/internal/instance"
	"github.com/listenupapp/dropsort/internal/logger"
)

// LogOutput is where the logger writes. A nil Writer means stderr.
type LogOutput struct {
	io.Writer
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	var w io.Writer = os.Stderr
	if o := do.MustInvoke[LogOutput](i); o.Writer != nil {
		w = o.Writer
	}

	log := logger.New(logger.Config{
		Writer:      w,
		Format:      cfg.Logger.Format,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.Info("starting dropsort",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"rules_file", cfg.RulesPath,
		"downloads_dir", cfg.Watch.Root,
	)

	return log, nil
}

// InstanceLockHandle holds the single-instance lock for the watch root.
// Lock is nil when locking is disabled.
type InstanceLockHandle struct {
	Lock *instance.Lock
}

// Shutdown implements do.Shutdownable.
func (h *InstanceLockHandle) Shutdown() error {
	if h.Lock == nil {
		return nil
	}
	return h.Lock.Release()
}

// ProvideInstanceLock takes the per-root lock so that two processes never
// sort the same directory.
func ProvideInstanceLock(i do.Injector) (*InstanceLockHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Lock.Disabled {
		log.Warn("instance lock disabled")
		return &InstanceLockHandle{}, nil
	}

	lock, err := instance.Acquire(cfg.Lock.Dir, cfg.Watch.Root)
	if err != nil {
		return nil, err
	}
	log.Debug("instance lock acquired", "file", lock.File())

	return &InstanceLockHandle{Lock: lock}, nil
}
