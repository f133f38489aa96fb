package main

import (
	"context"
	"fmt"

	"github.com/aretw0/stepflow"
	"github.com/aretw0/stepflow/internal/config"
	"github.com/aretw0/stepflow/pkg/adapters/redis"
	"github.com/aretw0/stepflow/pkg/domain"
)

// newEngine wires the engine from configuration. The returned cleanup closes
// the run store.
func newEngine(ctx context.Context, c *config.Config, hooks domain.LifecycleHooks) (*stepflow.Engine, func(), error) {
	opts := []stepflow.Option{
		stepflow.WithLogger(logger),
		stepflow.WithLifecycleHooks(hooks),
		stepflow.WithMaxSteps(c.Engine.MaxSteps),
	}
	cleanup := func() {}

	if c.Store.Driver == config.DriverRedis {
		rc := c.Store.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("redis store unreachable at %s: %w", rc.Addr, err)
		}
		logger.Info("Using redis run store", "addr", rc.Addr, "prefix", rc.Prefix)
		opts = append(opts, stepflow.WithRunStore(store))
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close redis store", "error", err)
			}
		}
	}

	return stepflow.New(opts...), cleanup, nil
}
