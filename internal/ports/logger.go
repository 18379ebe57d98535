package ports

import "context"

// Logger is the structured logging sink shared by the services, the FX
// refresher and the CLI. Fields are passed as at most one map; adapters in
// internal/adapters/logger render them as text or JSON.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error records err alongside msg; err may be nil.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
