package runctx

import (
	"context"

	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

type contextKeyType int

var runIDKey = contextKeyType(0)

func Logger(ctx context.Context) *zap.Logger {
	return logging.Logger(ctx, zap.NewNop())
}

var WithLogger = logging.WithLogger

func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRunID tags ctx and its logger with the run identifier.
func WithRunID(ctx context.Context, logger *zap.Logger, runID string) context.Context {
	ctx = context.WithValue(ctx, runIDKey, runID)
	return WithLogger(ctx, logger.With(zap.String("run_id", runID)))
}
