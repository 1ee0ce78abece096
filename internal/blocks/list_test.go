package blocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRef(t *testing.T) {
	testCases := []struct {
		variant string
		id      int64
		ok      bool
	}{
		{"LIST(42)", 42, true},
		{"LIST(0)", 0, true},
		{"LIST( 42)", 0, false},
		{"list(42)", 0, false},
		{"LIST(42) tail", 0, false},
		{"LIST(abc)", 0, false},
		{"LIST(99999999999999999999)", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.variant, func(t *testing.T) {
			id, ok := ListRef(tc.variant)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.id, id)
		})
	}
}

func TestExpandLists(t *testing.T) {
	calls := make(map[int64]int)
	resolver := ListResolverFunc(func(_ context.Context, id int64) ([]string, error) {
		calls[id]++
		switch id {
		case 1:
			return []string{"x", " y "}, nil
		default:
			return []string{"__LIST_MISSING_" + "42" + "__"}, nil
		}
	})

	body := &Body{Blocks: []Block{
		variants("a, LIST(1), b"),
		{Vars: true, Slicer: ";", Content: "LIST(1); LIST(42)", End: 1},
		literal("LIST(1)", 1),
		variants("no lists here"),
	}}

	require.NoError(t, ExpandLists(context.Background(), body, resolver))

	assert.Equal(t, "a,x,y,b", body.Blocks[0].Content)
	assert.Equal(t, []string{"x", "y", "__LIST_MISSING_42__"}, body.Blocks[1].Variants())
	assert.Equal(t, "LIST(1)", body.Blocks[2].Content, "literal blocks are not expanded")
	assert.Equal(t, "no lists here", body.Blocks[3].Content)
	assert.Equal(t, map[int64]int{1: 1, 42: 1}, calls, "each id resolves once")
}

func TestExpandListsKeepsUnchangedContent(t *testing.T) {
	body := &Body{Blocks: []Block{variants(" a ,LIST(x) , b ")}}
	resolver := ListResolverFunc(func(context.Context, int64) ([]string, error) {
		t.Fatal("resolver must not be called")
		return nil, nil
	})

	require.NoError(t, ExpandLists(context.Background(), body, resolver))
	assert.Equal(t, " a ,LIST(x) , b ", body.Blocks[0].Content)
}

func TestExpandListsError(t *testing.T) {
	boom := errors.New("boom")
	body := &Body{Blocks: []Block{variants("LIST(7)")}}
	resolver := ListResolverFunc(func(context.Context, int64) ([]string, error) {
		return nil, boom
	})

	err := ExpandLists(context.Background(), body, resolver)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "LIST(7)")
}
