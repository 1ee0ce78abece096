package middleware

import (
	"context"

	"github.com/conneroisu/randomall/internal/blocks"
)

// NumMiddleware substitutes NUM(...) calls with random numbers drawn from
// the state's source.
type NumMiddleware struct{}

// Name implements Middleware.
func (NumMiddleware) Name() string { return "num" }

// Process implements Middleware.
func (NumMiddleware) Process(_ context.Context, state *State) error {
	blocks.SubstituteNum(state.Body, state.source())
	return nil
}

// MultiplyMiddleware turns "*N" variant suffixes into weights.
type MultiplyMiddleware struct{}

// Name implements Middleware.
func (MultiplyMiddleware) Name() string { return "multiply" }

// Process implements Middleware.
func (MultiplyMiddleware) Process(_ context.Context, state *State) error {
	blocks.ParseMultipliers(state.Body)
	return nil
}
