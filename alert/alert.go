package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/evwrap/logger"
)

const (
	ProviderLog  = "log"
	ProviderNoop = "noop"
)

// Config defines configuration options for the alert package.
type Config struct {
	// Provider is either "log" or "noop".
	Provider string `yaml:"provider" validate:"oneof=log noop" default:"noop"`

	// Cooldown is the minimum interval between alerts for the same operation and code.
	// Alerts inside the window are counted and reported with the next one sent.
	Cooldown time.Duration `yaml:"cooldown" validate:"gte=0" default:"5m"`
}

// NewProvider creates a provider from cfg. Log alerts go through log.
func NewProvider(cfg Config, log logger.Logger) (Provider, error) {
	switch cfg.Provider {
	case ProviderNoop:
		return noOpProvider{}, nil
	case ProviderLog:
		return NewCooldown(NewLogProvider(log), cfg.Cooldown), nil
	default:
		return nil, errx.New("[alert]: invalid alert provider", errx.WithDetails(errx.D{"provider": cfg.Provider}))
	}
}

type noOpProvider struct{}

func (noOpProvider) SendError(context.Context, string, string, string, map[string]string) error {
	return nil
}

// Cooldown suppresses repeated alerts for the same operation and code.
type Cooldown struct {
	next   Provider
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	state     map[string]*cooldownState
	lastSweep time.Time
}

type cooldownState struct {
	lastSent   time.Time
	suppressed int
}

// NewCooldown wraps next so that at most one alert per operation and code is sent in
// every window. A zero window disables suppression.
func NewCooldown(next Provider, window time.Duration) *Cooldown {
	return &Cooldown{
		next:   next,
		window: window,
		now:    time.Now,
		state:  make(map[string]*cooldownState),
	}
}

// SendError implements Provider.
func (c *Cooldown) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	suppressed, ok := c.admit(operation + "|" + errCode)
	if !ok {
		return nil
	}

	if suppressed > 0 {
		withFreq := make(map[string]string, len(details)+1)
		for k, v := range details {
			withFreq[k] = v
		}
		withFreq["suppressed"] = fmt.Sprintf("%d in last %s", suppressed, c.window)
		details = withFreq
	}
	return c.next.SendError(ctx, errCode, msg, operation, details)
}

// admit reports whether an alert for key may be sent and how many were dropped since the
// last one.
func (c *Cooldown) admit(key string) (int, bool) {
	if c.window <= 0 {
		return 0, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	st, found := c.state[key]
	if !found {
		c.state[key] = &cooldownState{lastSent: now}
		return 0, true
	}
	if now.Sub(st.lastSent) < c.window {
		st.suppressed++
		return 0, false
	}

	suppressed := st.suppressed
	st.lastSent = now
	st.suppressed = 0
	return suppressed, true
}

// sweep drops keys whose window has passed, at most once per window. Keys still holding
// suppressed alerts are kept for one more window so the count can be reported.
func (c *Cooldown) sweep(now time.Time) {
	if now.Sub(c.lastSweep) < c.window {
		return
	}
	c.lastSweep = now

	for key, st := range c.state {
		age := now.Sub(st.lastSent)
		if age >= 2*c.window || (age >= c.window && st.suppressed == 0) {
			delete(c.state, key)
		}
	}
}

//nolint:gochecknoglobals // global alert provider singleton
var (
	global   atomic.Value // stores holder
	setOnce  sync.Once
	initOnce sync.Once
)

type holder struct {
	Provider
}

// SetGlobal configures the global provider. It must be called at most once.
func SetGlobal(cfg Config, log logger.Logger) error {
	var err error
	called := false

	setOnce.Do(func() {
		initOnce.Do(func() {})

		provider, providerErr := NewProvider(cfg, log)
		if providerErr != nil {
			err = errx.Wrap(providerErr)
			provider = noOpProvider{}
		}
		global.Store(holder{provider})
		called = true
	})

	if !called {
		return errors.New("[alert]: SetGlobal can only be called once")
	}
	return err
}

// Global returns the global provider. Without SetGlobal it discards every alert.
func Global() Provider {
	initOnce.Do(func() {
		global.Store(holder{noOpProvider{}})
	})
	return global.Load().(holder).Provider //nolint:forcetypeassert // always a holder
}

// SendError sends an alert through the global provider.
func SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error {
	return Global().SendError(ctx, errCode, msg, operation, details)
}
