package head

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/i18n"
)

func rawHeadDoc(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	doc := map[string]any{
		"title":       "  My gen ",
		"description": " Generates names ",
		"access":      0,
		"category":    "Games",
		"tags":        []string{"fantasy"},
	}
	for k, v := range overrides {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func headKeys(errs *apperrors.Collector) []string {
	var out []string
	for _, e := range errs.Errors() {
		out = append(out, e.Field+":"+e.Key)
	}
	return out
}

func TestValidateValidHead(t *testing.T) {
	h, errs := Validate(rawHeadDoc(t, map[string]any{
		"tags":          []string{" #fantasy ", "Fantasy", "ёлки", "", "##"},
		"subcategories": []any{" elves ", "elves", nil, "  ", "dwarves"},
	}), i18n.MustNew(i18n.English))

	require.False(t, errs.HasErrors(), "%v", errs.Errors())
	assert.Equal(t, "My gen", h.Title)
	assert.Equal(t, "Generates names", h.Description)
	assert.Equal(t, 0, h.Access)
	require.NotNil(t, h.Category)
	assert.Equal(t, "Games", *h.Category)
	assert.Equal(t, []string{"Fantasy", "Ёлки"}, h.Tags)
	assert.Equal(t, []string{"Elves", "Dwarves"}, h.Subcategories)
}

func TestValidateTitleAndDescription(t *testing.T) {
	en := i18n.MustNew(i18n.English)

	testCases := []struct {
		name      string
		overrides map[string]any
		expected  []string
	}{
		{"blank title", map[string]any{"title": "   "}, []string{"title:" + KeyTitleBlank}},
		{"long title", map[string]any{"title": strings.Repeat("я", TitleLimit+1)}, []string{"title:" + KeyTitleTooLong}},
		{"title at limit", map[string]any{"title": strings.Repeat("я", TitleLimit)}, nil},
		{"blank description", map[string]any{"description": ""}, []string{"description:" + KeyDescriptionBlank}},
		{"long description", map[string]any{"description": strings.Repeat("d", DescriptionLimit+1)}, []string{"description:" + KeyDescriptionTooLong}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := Validate(rawHeadDoc(t, tc.overrides), en)
			assert.Equal(t, tc.expected, headKeys(errs))
		})
	}
}

func TestValidateAccessAndCategory(t *testing.T) {
	en := i18n.MustNew(i18n.English)

	testCases := []struct {
		name      string
		overrides map[string]any
		expected  []string
		category  bool
	}{
		{"access too high", map[string]any{"access": 3}, []string{"access:" + KeyAccessError}, false},
		{"access negative", map[string]any{"access": -1}, []string{"access:" + KeyAccessError}, false},
		{"missing category", map[string]any{"category": nil}, []string{"category:" + KeyCategoryBlank}, false},
		{"unknown category", map[string]any{"category": "Cooking"}, []string{"category:" + KeyCategoryError}, false},
		{"russian category in english", map[string]any{"category": "Игры"}, []string{"category:" + KeyCategoryError}, false},
		{"private drops category", map[string]any{"access": 1, "category": "Cooking"}, nil, false},
		{"link drops category", map[string]any{"access": 2, "category": nil}, nil, false},
		{"public keeps category", nil, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, errs := Validate(rawHeadDoc(t, tc.overrides), en)
			assert.Equal(t, tc.expected, headKeys(errs))
			assert.Equal(t, tc.category, h.Category != nil)
		})
	}
}

func TestValidateTags(t *testing.T) {
	en := i18n.MustNew(i18n.English)

	many := make([]string, MaxTags+1)
	for i := range many {
		many[i] = strings.Repeat("t", i+1)
	}

	testCases := []struct {
		name     string
		tags     any
		expected []string
	}{
		{"missing", nil, []string{"tags:" + KeyTagsBlank}},
		{"empty list", []string{}, []string{"tags:" + KeyTagsBlank}},
		{"only blanks", []string{" ", "#"}, []string{"tags:" + KeyTagsError}},
		{"too many", many, []string{"tags:" + KeyTagsTooMany}},
		{"duplicates collapse under the limit", append(many[:MaxTags:MaxTags], "T"), nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, errs := Validate(rawHeadDoc(t, map[string]any{"tags": tc.tags}), en)
			assert.Equal(t, tc.expected, headKeys(errs))
		})
	}
}

func TestValidateSubcategories(t *testing.T) {
	en := i18n.MustNew(i18n.English)

	tooMany := make([]string, MaxSubcategories+1)
	for i := range tooMany {
		tooMany[i] = strings.Repeat("s", i+1)
	}

	h, errs := Validate(rawHeadDoc(t, map[string]any{"category": "Other", "subcategories": []string{"x"}}), en)
	require.False(t, errs.HasErrors())
	assert.Nil(t, h.Subcategories, "category without subcategories")

	h, errs = Validate(rawHeadDoc(t, map[string]any{"subcategories": []string{" ", ""}}), en)
	require.False(t, errs.HasErrors())
	assert.Nil(t, h.Subcategories)

	h, errs = Validate(rawHeadDoc(t, map[string]any{"access": 1, "subcategories": []string{"x"}}), en)
	require.False(t, errs.HasErrors())
	assert.Nil(t, h.Subcategories)

	_, errs = Validate(rawHeadDoc(t, map[string]any{"subcategories": tooMany}), en)
	assert.Equal(t, []string{"subcategories:" + KeySubcategoriesTooMany}, headKeys(errs))
}

func TestValidateRussianCategories(t *testing.T) {
	ru := i18n.MustNew(i18n.Russian)

	h, errs := Validate(rawHeadDoc(t, map[string]any{"category": "Известные личности", "subcategories": []string{"актёры"}}), ru)
	require.False(t, errs.HasErrors(), "%v", errs.Errors())
	assert.Equal(t, []string{"Актёры"}, h.Subcategories)

	_, errs = Validate(rawHeadDoc(t, nil), ru)
	assert.Equal(t, []string{"category:" + KeyCategoryError}, headKeys(errs))
}

func TestValidateInternalErrors(t *testing.T) {
	en := i18n.MustNew(i18n.English)

	for _, raw := range []string{`{`, `[]`, `{"title": 1}`, `{"description":"d","access":0,"tags":["a"],"category":"Games"}`} {
		_, errs := Validate([]byte(raw), en)
		assert.True(t, errs.HasInternal(), raw)
	}
}

func TestValidateAccumulates(t *testing.T) {
	_, errs := Validate(rawHeadDoc(t, map[string]any{
		"title":       "",
		"description": "",
		"access":      7,
		"tags":        []string{},
	}), i18n.MustNew(i18n.English))

	assert.Equal(t, []string{
		"title:" + KeyTitleBlank,
		"description:" + KeyDescriptionBlank,
		"access:" + KeyAccessError,
		"tags:" + KeyTagsBlank,
	}, headKeys(errs))
	for _, e := range errs.Errors() {
		assert.Equal(t, apperrors.SectionHead, e.Section)
		assert.Equal(t, apperrors.DocumentLevel, e.Block)
	}
}
