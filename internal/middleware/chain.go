// Package middleware holds the passes an engine runs around generation:
// preprocessing that rewrites block content before rendering and
// postprocessing that derives metadata and backups on save.
package middleware

import (
	"context"
	"fmt"

	"github.com/conneroisu/randomall/internal/logging"
)

// Middleware is one pass over the engine state.
type Middleware interface {
	Name() string
	Process(ctx context.Context, state *State) error
}

// Func adapts a function to Middleware.
type Func struct {
	name string
	fn   func(ctx context.Context, state *State) error
}

// NewFunc wraps fn as a named middleware.
func NewFunc(name string, fn func(ctx context.Context, state *State) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name implements Middleware.
func (f *Func) Name() string { return f.name }

// Process implements Middleware.
func (f *Func) Process(ctx context.Context, state *State) error { return f.fn(ctx, state) }

// Chain runs middlewares strictly in the order they were added. Unlike an
// HTTP chain there is no wrapping: each middleware sees the state left by
// the previous one and the first error stops the run.
//
// A Chain is immutable after construction and safe to share between
// engines; the State passed to Run is not.
type Chain struct {
	logger      logging.Logger
	middlewares []Middleware
}

// NewChain creates a chain. A nil logger discards output.
func NewChain(logger logging.Logger, middlewares ...Middleware) *Chain {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	for i, m := range middlewares {
		if m == nil {
			panic(fmt.Sprintf("middleware.NewChain: middleware at index %d is nil", i))
		}
	}
	return &Chain{
		logger:      logger.WithComponent("middleware"),
		middlewares: append([]Middleware(nil), middlewares...),
	}
}

// With returns a new chain with extra middlewares appended.
func (c *Chain) With(middlewares ...Middleware) *Chain {
	all := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	all = append(all, c.middlewares...)
	all = append(all, middlewares...)
	return NewChain(c.logger, all...)
}

// Len returns the number of middlewares.
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Names returns the middleware names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.middlewares))
	for i, m := range c.middlewares {
		names[i] = m.Name()
	}
	return names
}

// Run applies every middleware to state.
func (c *Chain) Run(ctx context.Context, state *State) error {
	if state == nil {
		return fmt.Errorf("middleware chain: nil state")
	}
	for _, m := range c.middlewares {
		if err := ctx.Err(); err != nil {
			return err
		}
		op := logging.StartOperation(c.logger, m.Name())
		if err := m.Process(ctx, state); err != nil {
			op.EndWithError(ctx, err)
			return fmt.Errorf("%s middleware: %w", m.Name(), err)
		}
		op.End(ctx)
	}
	return nil
}
