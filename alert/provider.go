// Package alert reports failed event invocations to a monitoring system.
package alert

import (
	"context"

	"github.com/rise-and-shine/evwrap/logger"
)

// Provider sends error alerts.
type Provider interface {
	// SendError reports an error with code errCode and message msg that happened while
	// running operation. details carries additional context such as trace and event ids.
	SendError(ctx context.Context, errCode, msg, operation string, details map[string]string) error
}

// LogProvider is a Provider that writes alerts to a logger.
type LogProvider struct {
	log logger.Logger
}

// NewLogProvider creates a LogProvider writing to log.
func NewLogProvider(log logger.Logger) *LogProvider {
	return &LogProvider{log: log.Named("alert")}
}

// SendError implements Provider.
func (p *LogProvider) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	p.log.WithContext(ctx).With(
		"error_code", errCode,
		"operation", operation,
		"details", details,
	).Error(msg)
	return nil
}
