// Package meta carries invocation metadata through context.
package meta

import "context"

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID correlates every log line and span of one invocation.
	TraceID ContextKey = "trace_id"

	// EventID is the id of the wrapped event being invoked.
	EventID ContextKey = "event_id"

	// EventName is the name of the callback being invoked.
	EventName ContextKey = "event_name"

	// ServiceName identifies the name of current running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion indicates the version of the service.
	ServiceVersion ContextKey = "service_version"
)

//nolint:gochecknoglobals // fixed list of keys extracted for logging
var knownKeys = []ContextKey{
	TraceID,
	EventID,
	EventName,
	ServiceName,
	ServiceVersion,
}

// InjectMetaToContext adds metadata from the provided map to the context.
// Empty values are skipped.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext returns every known, non-empty metadata value of ctx.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	if ctx == nil {
		return data
	}
	for _, k := range knownKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}

// Find returns the value of key in ctx, or an empty string.
func Find(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
