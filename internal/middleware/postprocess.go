package middleware

import (
	"context"

	"github.com/conneroisu/randomall/internal/blocks"
	"github.com/conneroisu/randomall/internal/i18n"
)

// HashMiddleware stores the hash of the submitted blocks in the metadata.
type HashMiddleware struct{}

// Name implements Middleware.
func (HashMiddleware) Name() string { return "hash" }

// Process implements Middleware.
func (HashMiddleware) Process(_ context.Context, state *State) error {
	hash, err := blocks.Hash(state.RawBody)
	if err != nil {
		return err
	}
	state.Metadata.Hash = hash
	return nil
}

// VariationsMiddleware stores the variation estimate in the metadata. List
// references are expanded on a copy; the state body is left as is.
type VariationsMiddleware struct {
	store   ListStore
	catalog *i18n.Catalog
}

// NewVariationsMiddleware creates a VariationsMiddleware. A nil store skips
// list expansion.
func NewVariationsMiddleware(store ListStore, catalog *i18n.Catalog) *VariationsMiddleware {
	return &VariationsMiddleware{store: store, catalog: catalog}
}

// Name implements Middleware.
func (m *VariationsMiddleware) Name() string { return "variations" }

// Process implements Middleware.
func (m *VariationsMiddleware) Process(ctx context.Context, state *State) error {
	var resolver blocks.ListResolver
	if m.store != nil {
		resolver = NewListResolver(m.store, m.catalog, state.Owner)
	}
	n, err := blocks.EstimateVariations(ctx, state.Body, resolver)
	if err != nil {
		return err
	}
	state.Metadata.Variations = n
	return nil
}
