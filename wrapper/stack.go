package wrapper

import (
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/rise-and-shine/evwrap/alert"
	"github.com/rise-and-shine/evwrap/callback"
	"github.com/rise-and-shine/evwrap/chain"
	"github.com/rise-and-shine/evwrap/logger"
)

// Config selects the wrappers built by Stack.
type Config struct {
	// DisableMeta skips trace id and service info injection.
	DisableMeta bool `yaml:"disable_meta" default:"false"`

	// DisableTracing skips the tracing wrapper.
	DisableTracing bool `yaml:"disable_tracing" default:"false"`

	// DisableLogging skips the logger wrapper.
	DisableLogging bool `yaml:"disable_logging" default:"false"`

	// DisableTiming skips the timing wrapper.
	DisableTiming bool `yaml:"disable_timing" default:"false"`

	// DisableRecovery skips the recovery wrapper.
	DisableRecovery bool `yaml:"disable_recovery" default:"false"`

	// EnableAlerting adds the alert wrapper. Requires an alert provider.
	EnableAlerting bool `yaml:"enable_alerting" default:"false"`

	// Timeout bounds every invocation when greater than zero.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0" default:"0s"`

	// Retry configures retrying of failed invocations.
	Retry RetryConfig `yaml:"retry"`
}

// Deps are the collaborators used by the wrappers in a stack.
type Deps struct {
	Logger   logger.Logger
	Registry metrics.Registry
	Alert    alert.Provider
}

// Stack builds the configured wrappers, outermost first:
// meta, tracing, logging, timing, alerting, recovery, timeout, retry.
func Stack(cfg Config, deps Deps) []callback.Wrapper {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	var ws []callback.Wrapper
	if !cfg.DisableMeta {
		ws = append(ws, NewMetaInject())
	}
	if !cfg.DisableTracing {
		ws = append(ws, NewTracing())
	}
	if !cfg.DisableLogging {
		ws = append(ws, NewLogger(log))
	}
	if !cfg.DisableTiming {
		ws = append(ws, NewTiming(deps.Registry))
	}
	if cfg.EnableAlerting && deps.Alert != nil {
		ws = append(ws, NewAlert(deps.Alert, log))
	}
	if !cfg.DisableRecovery {
		ws = append(ws, NewRecovery(log))
	}
	if cfg.Timeout > 0 {
		ws = append(ws, NewTimeout(cfg.Timeout))
	}
	if cfg.Retry.Attempts > 1 {
		ws = append(ws, NewRetry(cfg.Retry, log))
	}
	return ws
}

// Install adds ws to c in order and returns their handles.
func Install(c *chain.Chain, ws []callback.Wrapper) []chain.Handle {
	handles := make([]chain.Handle, 0, len(ws))
	for _, w := range ws {
		handles = append(handles, c.Add(w))
	}
	return handles
}

// Uninstall removes handles from c.
func Uninstall(c *chain.Chain, handles []chain.Handle) {
	for _, h := range handles {
		c.Remove(h)
	}
}
