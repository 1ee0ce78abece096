package middleware

import (
	"context"
	"strconv"

	"github.com/conneroisu/randomall/internal/blocks"
	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/types"
)

// ListStore reads lists by id. A missing list is reported with a not found
// AppError.
type ListStore interface {
	GetList(ctx context.Context, id int64) (*types.ListEntity, error)
}

// ListResolver resolves LIST(<id>) references for one owner. Lists that
// are missing, inactive or private to someone else resolve to a single
// localized marker variant instead of failing.
type ListResolver struct {
	store   ListStore
	catalog *i18n.Catalog
	owner   *types.User
}

// NewListResolver creates a resolver on behalf of owner.
func NewListResolver(store ListStore, catalog *i18n.Catalog, owner *types.User) *ListResolver {
	return &ListResolver{store: store, catalog: catalog, owner: owner}
}

// ResolveList implements blocks.ListResolver.
func (r *ListResolver) ResolveList(ctx context.Context, id int64) ([]string, error) {
	list, err := r.store.GetList(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return r.marker("list.missing", id), nil
		}
		return nil, err
	}
	if list == nil {
		return r.marker("list.missing", id), nil
	}
	if !list.IsActive() {
		return r.marker("list.inactive", id), nil
	}
	if !list.IsPublic() && !list.IsOwner(r.owner) {
		return r.marker("list.private", id), nil
	}
	return list.Variants(), nil
}

func (r *ListResolver) marker(key string, id int64) []string {
	return []string{r.catalog.Tf(key, map[string]any{"id": strconv.FormatInt(id, 10)})}
}

// ListMiddleware expands list references in the state body.
type ListMiddleware struct {
	store   ListStore
	catalog *i18n.Catalog
}

// NewListMiddleware creates a ListMiddleware.
func NewListMiddleware(store ListStore, catalog *i18n.Catalog) *ListMiddleware {
	return &ListMiddleware{store: store, catalog: catalog}
}

// Name implements Middleware.
func (m *ListMiddleware) Name() string { return "list" }

// Process implements Middleware.
func (m *ListMiddleware) Process(ctx context.Context, state *State) error {
	return blocks.ExpandLists(ctx, state.Body, NewListResolver(m.store, m.catalog, state.Owner))
}
