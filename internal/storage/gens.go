package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/types"
)

// Retention limits.
const (
	MaxHistory = 5
	BackupTTL  = 15 * time.Minute
)

const genColumns = `id, user_id, username, title, description, category, subcategories, tags,
	access, access_key, format, body, variations, hash, views, active, copyright,
	date_added, date_updated`

// HistoryEntry is a snapshot of a gen taken when its owner changed the
// blocks.
type HistoryEntry struct {
	ID          int64           `json:"id"`
	GenID       int64           `json:"gen_id"`
	UserID      int64           `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Access      types.GenAccess `json:"access"`
	Category    *string         `json:"category"`
	Format      json.RawMessage `json:"format"`
	Body        json.RawMessage `json:"body"`
	Hash        string          `json:"hash"`
	CreatedAt   time.Time       `json:"created_at"`
}

// GensRepo stores gens, their version history and editor backups.
type GensRepo struct {
	db    *sql.DB
	cache *Cache[int64, *types.GenEntity]
	now   func() time.Time
}

func newGensRepo(db *sql.DB, cache *Cache[int64, *types.GenEntity], now func() time.Time) *GensRepo {
	return &GensRepo{db: db, cache: cache, now: now}
}

// NewAccessKey returns a fresh random access key.
func NewAccessKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create inserts a new gen and returns its id. The draft owner defaults to
// the editor.
func (r *GensRepo) Create(ctx context.Context, editor *types.User, draft *types.GenDraft) (int64, error) {
	owner := draft.Owner
	if owner.ID == 0 {
		owner = editor.Owner()
	}

	subcategories, tags, err := encodeLists(draft)
	if err != nil {
		return 0, err
	}

	now := toMillis(r.now())
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO gens (user_id, username, title, description, category, subcategories, tags,
			access, access_key, format, body, variations, hash, date_added, date_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		owner.ID, owner.Username, draft.Title, draft.Description, nullString(draft.Category),
		subcategories, tags, int(draft.Access), NewAccessKey(), string(draft.Format), string(draft.Body),
		draft.Metadata.Variations, draft.Metadata.Hash, now, now,
	)
	if err != nil {
		return 0, apperrors.NewStorageError("GEN_CREATE", "failed to create gen", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperrors.NewStorageError("GEN_CREATE", "failed to read gen id", err)
	}
	return id, nil
}

// Update stores a new version of gen id. When the owner changes the blocks
// (the hash differs) the date is bumped and a history snapshot is kept;
// only the newest MaxHistory snapshots survive.
func (r *GensRepo) Update(ctx context.Context, id int64, editor *types.User, draft *types.GenDraft) error {
	subcategories, tags, err := encodeLists(draft)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("GEN_UPDATE", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	var userID int64
	var prevHash string
	err = tx.QueryRowContext(ctx, `SELECT user_id, hash FROM gens WHERE id = ?`, id).Scan(&userID, &prevHash)
	if errors.Is(err, sql.ErrNoRows) {
		return genNotFound(id)
	}
	if err != nil {
		return apperrors.NewStorageError("GEN_UPDATE", "failed to read gen", err)
	}

	hasUpdate := editor != nil && editor.ID == userID && prevHash != draft.Metadata.Hash
	var dateUpdated any
	now := toMillis(r.now())
	if hasUpdate {
		dateUpdated = now
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE gens SET title = ?, description = ?, category = ?, subcategories = ?, tags = ?,
			access = ?, hash = ?, variations = ?, format = ?, body = ?,
			date_updated = COALESCE(?, date_updated)
		WHERE id = ?`,
		draft.Title, draft.Description, nullString(draft.Category), subcategories, tags,
		int(draft.Access), draft.Metadata.Hash, draft.Metadata.Variations,
		string(draft.Format), string(draft.Body), dateUpdated, id,
	)
	if err != nil {
		return apperrors.NewStorageError("GEN_UPDATE", "failed to update gen", err)
	}

	if hasUpdate {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO gen_history (gen_id, user_id, title, description, access, category, format, body, hash, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, userID, draft.Title, draft.Description, int(draft.Access), nullString(draft.Category),
			string(draft.Format), string(draft.Body), draft.Metadata.Hash, now,
		)
		if err != nil {
			return apperrors.NewStorageError("GEN_HISTORY", "failed to write history", err)
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM gen_history WHERE gen_id = ? AND id NOT IN (
				SELECT id FROM gen_history WHERE gen_id = ? ORDER BY id DESC LIMIT ?
			)`, id, id, MaxHistory)
		if err != nil {
			return apperrors.NewStorageError("GEN_HISTORY", "failed to trim history", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStorageError("GEN_UPDATE", "failed to commit", err)
	}
	r.cache.Delete(id)
	return nil
}

// Get returns gen id. The returned entity may be modified by the caller.
func (r *GensRepo) Get(ctx context.Context, id int64) (*types.GenEntity, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cloneGen(cached), nil
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+genColumns+` FROM gens WHERE id = ?`, id)
	gen, err := scanGen(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, genNotFound(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("GEN_GET", "failed to read gen", err)
	}

	r.cache.Set(id, gen)
	return cloneGen(gen), nil
}

// IncrementViews counts one view of gen id.
func (r *GensRepo) IncrementViews(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE gens SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewStorageError("GEN_VIEWS", "failed to count view", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return genNotFound(id)
	}
	r.cache.Update(id, func(g *types.GenEntity) *types.GenEntity {
		updated := cloneGen(g)
		updated.Views++
		return updated
	})
	return nil
}

// ChangeAccessKey replaces the access key of gen id and returns the new key.
func (r *GensRepo) ChangeAccessKey(ctx context.Context, id int64) (string, error) {
	key := NewAccessKey()
	res, err := r.db.ExecContext(ctx, `UPDATE gens SET access_key = ? WHERE id = ?`, key, id)
	if err != nil {
		return "", apperrors.NewStorageError("GEN_ACCESS_KEY", "failed to change access key", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", genNotFound(id)
	}
	r.cache.Delete(id)
	return key, nil
}

// History returns the snapshots of gen id, newest first.
func (r *GensRepo) History(ctx context.Context, id int64) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, gen_id, user_id, title, description, access, category, format, body, hash, created_at
		FROM gen_history WHERE gen_id = ? ORDER BY id DESC`, id)
	if err != nil {
		return nil, apperrors.NewStorageError("GEN_HISTORY", "failed to read history", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			h        HistoryEntry
			category sql.NullString
			format   string
			body     string
			access   int
			created  int64
		)
		if err := rows.Scan(&h.ID, &h.GenID, &h.UserID, &h.Title, &h.Description, &access,
			&category, &format, &body, &h.Hash, &created); err != nil {
			return nil, apperrors.NewStorageError("GEN_HISTORY", "failed to scan history", err)
		}
		h.Access = types.GenAccess(access)
		h.Category = stringPtr(category)
		h.Format = json.RawMessage(format)
		h.Body = json.RawMessage(body)
		h.CreatedAt = fromMillis(created)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("GEN_HISTORY", "failed to read history", err)
	}
	return out, nil
}

// GetBackup returns the editor backup of a user. Backups older than
// BackupTTL count as missing.
func (r *GensRepo) GetBackup(ctx context.Context, userID int64) (string, bool, error) {
	var data string
	var updated int64
	err := r.db.QueryRowContext(ctx, `SELECT data, date_updated FROM backups WHERE user_id = ?`, userID).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageError("BACKUP_GET", "failed to read backup", err)
	}
	if r.now().Sub(fromMillis(updated)) > BackupTTL {
		return "", false, nil
	}
	return data, true, nil
}

// CreateBackup stores data as the editor backup of a user.
func (r *GensRepo) CreateBackup(ctx context.Context, userID int64, data string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backups (user_id, data, date_updated) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, date_updated = excluded.date_updated`,
		userID, data, toMillis(r.now()))
	if err != nil {
		return apperrors.NewStorageError("BACKUP_CREATE", "failed to write backup", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGen(row rowScanner) (*types.GenEntity, error) {
	var (
		g             types.GenEntity
		category      sql.NullString
		subcategories string
		tags          string
		access        int
		format        string
		body          string
		active        int
		copyright     int
		added         int64
		updated       int64
	)
	err := row.Scan(&g.ID, &g.User.ID, &g.User.Username, &g.Title, &g.Description, &category,
		&subcategories, &tags, &access, &g.AccessKey, &format, &body, &g.Variations, &g.Hash,
		&g.Views, &active, &copyright, &added, &updated)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(subcategories), &g.Subcategories); err != nil {
		return nil, fmt.Errorf("decode subcategories: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &g.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	g.Category = stringPtr(category)
	g.Access = types.GenAccess(access)
	g.Format = json.RawMessage(format)
	g.Body = json.RawMessage(body)
	g.Active = active != 0
	g.Copyright = copyright != 0
	g.DateAdded = fromMillis(added)
	g.DateUpdated = fromMillis(updated)
	return &g, nil
}

func cloneGen(g *types.GenEntity) *types.GenEntity {
	c := *g
	c.Subcategories = append([]string(nil), g.Subcategories...)
	c.Tags = append([]string(nil), g.Tags...)
	if g.Category != nil {
		category := *g.Category
		c.Category = &category
	}
	return &c
}

func encodeLists(draft *types.GenDraft) (string, string, error) {
	subcategories := draft.Subcategories
	if subcategories == nil {
		subcategories = []string{}
	}
	sub, err := json.Marshal(subcategories)
	if err != nil {
		return "", "", apperrors.NewInternalError("GEN_ENCODE", "failed to encode subcategories", err)
	}
	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	tg, err := json.Marshal(tags)
	if err != nil {
		return "", "", apperrors.NewInternalError("GEN_ENCODE", "failed to encode tags", err)
	}
	return string(sub), string(tg), nil
}

func genNotFound(id int64) error {
	return apperrors.NewNotFoundError("GEN_NOT_FOUND", "gen not found").WithContext("gen_id", id)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
