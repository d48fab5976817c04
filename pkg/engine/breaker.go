package engine

import (
	"context"

	"mcp-geogebra-service/pkg/errors"
)

// BreakerEngine guards an engine's command path with a circuit breaker.
// Only transport failures count against the breaker; commands the engine
// refused are ordinary results.
type BreakerEngine struct {
	Engine
	breaker *errors.CircuitBreaker
}

// WithCircuitBreaker wraps engine
func WithCircuitBreaker(engine Engine, breaker *errors.CircuitBreaker) *BreakerEngine {
	return &BreakerEngine{Engine: engine, breaker: breaker}
}

func (b *BreakerEngine) EvalCommand(ctx context.Context, command string) (*CommandResult, error) {
	var result *CommandResult
	err := b.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		result, err = b.Engine.EvalCommand(ctx, command)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *BreakerEngine) GetAllObjectNames(ctx context.Context) ([]string, error) {
	var names []string
	err := b.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		names, err = b.Engine.GetAllObjectNames(ctx)
		return err
	})
	return names, err
}

// GetState is guarded as a whole since engines may query the live
// construction while building the snapshot
func (b *BreakerEngine) GetState(ctx context.Context) (*State, error) {
	var state *State
	err := b.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		state, err = b.Engine.GetState(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Breaker exposes the underlying breaker for stats
func (b *BreakerEngine) Breaker() *errors.CircuitBreaker {
	return b.breaker
}
