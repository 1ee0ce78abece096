package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/types"
)

// ListsRepo stores word lists referenced by LIST(<id>) variants.
type ListsRepo struct {
	db    *sql.DB
	cache *Cache[int64, *types.ListEntity]
	now   func() time.Time
}

func newListsRepo(db *sql.DB, cache *Cache[int64, *types.ListEntity], now func() time.Time) *ListsRepo {
	return &ListsRepo{db: db, cache: cache, now: now}
}

// Create inserts list on behalf of owner and returns its id. ID and dates
// of list are ignored.
func (r *ListsRepo) Create(ctx context.Context, owner *types.User, list types.ListEntity) (int64, error) {
	if list.Slicer < 0 || list.Slicer >= len(types.ListSlicers) {
		return 0, apperrors.NewValidationError("LIST_SLICER", "unknown list slicer").WithContext("slicer", list.Slicer)
	}

	o := owner.Owner()
	now := toMillis(r.now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO lists (user_id, username, title, description, access, active, content, slicer, date_added, date_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Username, list.Title, list.Description, int(list.Access), boolToInt(list.Active),
		list.Content, list.Slicer, now, now,
	)
	if err != nil {
		return 0, apperrors.NewStorageError("LIST_CREATE", "failed to create list", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.NewStorageError("LIST_CREATE", "failed to read list id", err)
	}
	return id, nil
}

// SetActive hides or restores list id.
func (r *ListsRepo) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE lists SET active = ?, date_updated = ? WHERE id = ?`,
		boolToInt(active), toMillis(r.now()), id)
	if err != nil {
		return apperrors.NewStorageError("LIST_UPDATE", "failed to update list", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return listNotFound(id)
	}
	r.cache.Delete(id)
	return nil
}

// Get returns list id.
func (r *ListsRepo) Get(ctx context.Context, id int64) (*types.ListEntity, error) {
	if cached, ok := r.cache.Get(id); ok {
		c := *cached
		return &c, nil
	}

	var (
		l       types.ListEntity
		access  int
		active  int
		added   int64
		updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, username, title, description, access, active, content, slicer, date_added, date_updated
		FROM lists WHERE id = ?`, id).Scan(
		&l.ID, &l.User.ID, &l.User.Username, &l.Title, &l.Description, &access, &active,
		&l.Content, &l.Slicer, &added, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, listNotFound(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("LIST_GET", "failed to read list", err)
	}
	l.Access = types.ListAccess(access)
	l.Active = active != 0
	l.DateAdded = fromMillis(added)
	l.DateUpdated = fromMillis(updated)

	r.cache.Set(id, &l)
	c := l
	return &c, nil
}

// GetList implements middleware.ListStore.
func (r *ListsRepo) GetList(ctx context.Context, id int64) (*types.ListEntity, error) {
	return r.Get(ctx, id)
}

func listNotFound(id int64) error {
	return apperrors.NewNotFoundError("LIST_NOT_FOUND", "list not found").WithContext("list_id", id)
}
