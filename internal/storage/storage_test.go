package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/randomall/internal/engine"
	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/middleware"
	"github.com/conneroisu/randomall/internal/types"
)

var (
	_ engine.GensStore       = (*GensRepo)(nil)
	_ middleware.BackupStore = (*GensRepo)(nil)
	_ middleware.ListStore   = (*ListsRepo)(nil)
)

func openTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	store, err := Open(context.Background(), Options{Path: MemoryPath, CacheSize: 16, CacheTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := newFakeClock()
	store.Gens.now = clock.Now
	store.Lists.now = clock.Now
	return store, clock
}

func strPtr(s string) *string { return &s }

func testDraft(hash string) *types.GenDraft {
	return &types.GenDraft{
		Title:         "Names",
		Description:   "Random names",
		Category:      strPtr("Персонажи"),
		Subcategories: []string{"Имя"},
		Tags:          []string{"NAMES"},
		Access:        types.GenLink,
		Format:        json.RawMessage(`{"align":"left"}`),
		Body:          json.RawMessage(`{"blocks":[]}`),
		Metadata:      types.Metadata{Hash: hash, Variations: 4},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Equal(t, apperrors.ErrorTypeConfig, apperrors.TypeOf(err))
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "randomall.db")
	store, err := Open(context.Background(), Options{Path: path})
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
	assert.FileExists(t, path)
}

func TestGensCreateAndGet(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()
	owner := &types.User{ID: 7, Username: "ann"}

	id, err := store.Gens.Create(ctx, owner, testDraft("h1"))
	require.NoError(t, err)

	gen, err := store.Gens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.Owner{ID: 7, Username: "ann"}, gen.User)
	assert.Equal(t, "Names", gen.Title)
	assert.Equal(t, "Персонажи", *gen.Category)
	assert.Equal(t, []string{"Имя"}, gen.Subcategories)
	assert.Equal(t, []string{"NAMES"}, gen.Tags)
	assert.Equal(t, types.GenLink, gen.Access)
	assert.Len(t, gen.AccessKey, 32)
	assert.JSONEq(t, `{"align":"left"}`, string(gen.Format))
	assert.Equal(t, "h1", gen.Hash)
	assert.Equal(t, 4, gen.Variations)
	assert.True(t, gen.Active)
	assert.False(t, gen.Copyright)
	assert.Equal(t, clock.Now(), gen.DateAdded)
	assert.Equal(t, clock.Now(), gen.DateUpdated)

	// Cached copies are isolated from callers.
	gen.Tags[0] = "CHANGED"
	again, err := store.Gens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"NAMES"}, again.Tags)
}

func TestGensCreateUsesDraftOwner(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	draft := testDraft("h")
	draft.Owner = types.Owner{ID: 3, Username: "owner"}
	draft.Category = nil
	draft.Tags = nil

	id, err := store.Gens.Create(ctx, &types.User{ID: 1, Username: "admin", Admin: true}, draft)
	require.NoError(t, err)

	gen, err := store.Gens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), gen.User.ID)
	assert.Nil(t, gen.Category)
	assert.Equal(t, []string{}, gen.Tags)
}

func TestGensGetMissing(t *testing.T) {
	store, _ := openTestStore(t)
	_, err := store.Gens.Get(context.Background(), 404)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGensUpdateHistory(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()
	owner := &types.User{ID: 7, Username: "ann"}
	admin := &types.User{ID: 1, Username: "root", Admin: true}

	id, err := store.Gens.Create(ctx, owner, testDraft("h0"))
	require.NoError(t, err)
	created := clock.Now()

	t.Run("same hash keeps date and history", func(t *testing.T) {
		clock.Advance(time.Minute)
		draft := testDraft("h0")
		draft.Title = "Renamed"
		require.NoError(t, store.Gens.Update(ctx, id, owner, draft))

		gen, err := store.Gens.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", gen.Title)
		assert.Equal(t, created, gen.DateUpdated)

		history, err := store.Gens.History(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("admin edit takes no snapshot", func(t *testing.T) {
		clock.Advance(time.Minute)
		require.NoError(t, store.Gens.Update(ctx, id, admin, testDraft("admin")))

		gen, err := store.Gens.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "admin", gen.Hash)
		assert.Equal(t, created, gen.DateUpdated)

		history, err := store.Gens.History(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("owner changes keep newest snapshots", func(t *testing.T) {
		for i := 1; i <= MaxHistory+2; i++ {
			clock.Advance(time.Minute)
			require.NoError(t, store.Gens.Update(ctx, id, owner, testDraft(fmt.Sprintf("h%d", i))))
		}

		gen, err := store.Gens.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, clock.Now(), gen.DateUpdated)

		history, err := store.Gens.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, MaxHistory)
		assert.Equal(t, fmt.Sprintf("h%d", MaxHistory+2), history[0].Hash)
		assert.Equal(t, "h3", history[MaxHistory-1].Hash)
		assert.Equal(t, int64(7), history[0].UserID)
		assert.Equal(t, clock.Now(), history[0].CreatedAt)
		assert.JSONEq(t, `{"blocks":[]}`, string(history[0].Body))
	})

	t.Run("missing gen", func(t *testing.T) {
		err := store.Gens.Update(ctx, 999, owner, testDraft("x"))
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestGensViewsAndAccessKey(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	id, err := store.Gens.Create(ctx, &types.User{ID: 2, Username: "bob"}, testDraft("h"))
	require.NoError(t, err)

	before, err := store.Gens.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, store.Gens.IncrementViews(ctx, id))
	require.NoError(t, store.Gens.IncrementViews(ctx, id))
	gen, err := store.Gens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.Views)

	key, err := store.Gens.ChangeAccessKey(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, before.AccessKey, key)
	assert.NotContains(t, key, "-")

	gen, err = store.Gens.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, key, gen.AccessKey)
	assert.Equal(t, 2, gen.Views)

	assert.True(t, apperrors.IsNotFound(store.Gens.IncrementViews(ctx, 999)))
	_, err = store.Gens.ChangeAccessKey(ctx, 999)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestBackups(t *testing.T) {
	store, clock := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Gens.GetBackup(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Gens.CreateBackup(ctx, 5, `{"blocks":[1]}`))
	require.NoError(t, store.Gens.CreateBackup(ctx, 5, `{"blocks":[2]}`))

	data, ok, err := store.Gens.GetBackup(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"blocks":[2]}`, data)

	clock.Advance(BackupTTL + time.Second)
	_, ok, err = store.Gens.GetBackup(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListsCreateAndGet(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	owner := &types.User{ID: 9, Username: "lister"}

	id, err := store.Lists.Create(ctx, owner, types.ListEntity{
		Title:   "Colors",
		Access:  types.ListPrivate,
		Active:  true,
		Content: "red\ngreen\n blue ",
		Slicer:  1,
	})
	require.NoError(t, err)

	list, err := store.Lists.GetList(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.Owner{ID: 9, Username: "lister"}, list.User)
	assert.Equal(t, types.ListPrivate, list.Access)
	assert.Equal(t, []string{"red", "green", "blue"}, list.Variants())

	require.NoError(t, store.Lists.SetActive(ctx, id, false))
	list, err = store.Lists.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, list.Active)

	_, err = store.Lists.Get(ctx, 404)
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(store.Lists.SetActive(ctx, 404, true)))

	_, err = store.Lists.Create(ctx, owner, types.ListEntity{Content: "x", Slicer: 9})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestListMiddlewareWithStore(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	owner := &types.User{ID: 9, Username: "lister"}

	id, err := store.Lists.Create(ctx, owner, types.ListEntity{Title: "L", Active: true, Content: "x,y"})
	require.NoError(t, err)

	resolver := middleware.NewListResolver(store.Lists, nil, owner)
	variants, err := resolver.ResolveList(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, variants)
}
