package i18n

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/randomall/internal/logging"
)

func TestMatchLanguage(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"en", English, false},
		{"EN", English, false},
		{"ru", Russian, false},
		{"ru-RU", Russian, false},
		{"ru-RU,ru;q=0.9,en;q=0.8", Russian, false},
		{"en-GB", English, false},
		{"", "", true},
		{"ja", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			lang, err := MatchLanguage(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, lang)
		})
	}
}

func TestCatalogMessages(t *testing.T) {
	en := MustNew("en")
	ru := MustNew("ru")

	assert.Equal(t, "Server error", en.ServerError())
	assert.Equal(t, "Серверная ошибка", ru.ServerError())
	assert.Equal(t, "Wrong slicer", en.T("body.blocks.errors.slicer_error"))
	assert.Equal(t, "Блок", ru.T("body.blocks.labels.block"))
	assert.Equal(t, "Server error", en.T("no.such.key"))
	assert.False(t, en.Has("no.such.key"))
}

func TestCatalogTf(t *testing.T) {
	en := MustNew("en")

	msg := en.Tf("body.blocks.errors.mods_error_2", map[string]any{"i": 2, "blocks_count": 3, "n": 7})
	assert.Equal(t, "Error in # 2, blocks count: 3, error in block: 7", msg)

	assert.Equal(t, "__LIST(42)_LIST_DOES_NOT_EXIST__", en.Tf("list.missing", map[string]any{"id": 42}))
	assert.Equal(t, "__LIST(42)_ОШИБКА_НЕТ_ДОСТУПА__", MustNew("ru").Tf("list.private", map[string]any{"id": 42}))
}

func TestCatalogCategories(t *testing.T) {
	en := MustNew("en")
	require.Len(t, en.Categories(), 9)

	cat, ok := en.Category("Games")
	require.True(t, ok)
	assert.True(t, cat.Subcategories)

	other, ok := en.Category("Other")
	require.True(t, ok)
	assert.False(t, other.Subcategories)

	_, ok = en.Category("Игры")
	assert.False(t, ok)

	ru := MustNew("ru")
	assert.Len(t, ru.Categories(), 10)
	_, ok = ru.Category("Известные личности")
	assert.True(t, ok)
}

func TestCatalogOverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("server_error: Oops\n"), 0o644))

	c, err := New("en", dir)
	require.NoError(t, err)

	assert.Equal(t, "Oops", c.ServerError())
	assert.Equal(t, "Wrong slicer", c.T("body.blocks.errors.slicer_error"))
	assert.Len(t, c.Categories(), 9)
}

func TestCatalogOverrideInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ru.yaml"), []byte("server_error: [unclosed\n"), 0o644))

	_, err := New("en", dir)
	assert.Error(t, err)
}

func TestCatalogWatchReloads(t *testing.T) {
	dir := t.TempDir()
	c, err := New("en", dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Watch(ctx, logging.NewNopLogger()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("server_error: Reloaded\n"), 0o644))

	assert.Eventually(t, func() bool {
		return c.ServerError() == "Reloaded"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCatalogWatchRequiresDir(t *testing.T) {
	assert.Error(t, MustNew("en").Watch(context.Background(), logging.NewNopLogger()))
}
