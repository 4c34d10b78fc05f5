package safego

import (
	"context"

	"go.uber.org/zap"
)

// Go launches a goroutine with panic recovery.
// If the goroutine panics, the panic value is logged and the goroutine exits
// cleanly instead of crashing the process.
//
// Usage:
//
//	safego.Go(logger, "telegram-listener", func() {
//	    // work that might panic
//	})
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Goroutine panicked",
					zap.String("goroutine", name),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
			}
		}()
		fn()
	}()
}

// GoCtx launches a context-aware goroutine with panic recovery.
// The function receives ctx and is expected to return when it is cancelled.
func GoCtx(ctx context.Context, logger *zap.Logger, name string, fn func(ctx context.Context)) {
	Go(logger, name, func() {
		fn(ctx)
	})
}
