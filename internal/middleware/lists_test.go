package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/randomall/internal/blocks"
	"github.com/conneroisu/randomall/internal/i18n"
	"github.com/conneroisu/randomall/internal/types"
)

func testLists() memLists {
	owner := types.Owner{ID: 1, Username: "alice"}
	return memLists{
		1: {ID: 1, User: owner, Access: types.ListPublic, Active: true, Content: "red, green", Slicer: 0},
		2: {ID: 2, User: owner, Access: types.ListPrivate, Active: true, Content: "secret\nhidden", Slicer: 1},
		3: {ID: 3, User: owner, Access: types.ListPublic, Active: false, Content: "gone"},
	}
}

func TestListResolver(t *testing.T) {
	alice := &types.User{ID: 1, Username: "alice"}
	bob := &types.User{ID: 2, Username: "bob"}
	admin := &types.User{ID: 3, Username: "root", Admin: true}
	en := i18n.MustNew(i18n.English)

	testCases := []struct {
		name     string
		owner    *types.User
		id       int64
		expected []string
	}{
		{"public list", bob, 1, []string{"red", "green"}},
		{"private list for owner", alice, 2, []string{"secret", "hidden"}},
		{"private list for stranger", bob, 2, []string{"__LIST(2)_IS_PRIVATE__"}},
		{"private list for admin", admin, 2, []string{"__LIST(2)_IS_PRIVATE__"}},
		{"private list anonymous", nil, 2, []string{"__LIST(2)_IS_PRIVATE__"}},
		{"inactive list", alice, 3, []string{"__LIST(3)_DOES_NOT_EXIST__"}},
		{"missing list", alice, 42, []string{"__LIST(42)_LIST_DOES_NOT_EXIST__"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewListResolver(testLists(), en, tc.owner).ResolveList(context.Background(), tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestListResolverRussianMarkers(t *testing.T) {
	got, err := NewListResolver(testLists(), i18n.MustNew(i18n.Russian), nil).ResolveList(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"__LIST(2)_ОШИБКА_НЕТ_ДОСТУПА__"}, got)
}

type failingLists struct{ err error }

func (f failingLists) GetList(context.Context, int64) (*types.ListEntity, error) {
	return nil, f.err
}

func TestListResolverPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("database is locked")
	_, err := NewListResolver(failingLists{boom}, i18n.MustNew(i18n.English), nil).ResolveList(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
}

func TestListMiddleware(t *testing.T) {
	state := &State{
		Owner: &types.User{ID: 2},
		Body: &blocks.Body{Blocks: []blocks.Block{
			{Vars: true, Slicer: ",", Content: "LIST(1), blue, LIST(2)", End: 1},
		}},
	}

	m := NewListMiddleware(testLists(), i18n.MustNew(i18n.English))
	require.NoError(t, m.Process(context.Background(), state))
	assert.Equal(t, []string{"red", "green", "blue", "__LIST(2)_IS_PRIVATE__"}, state.Body.Blocks[0].Variants())
}
