// Package head validates the descriptive part of a gen document: title,
// description, access, tags and category.
package head

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/conneroisu/randomall/internal/errors"
	"github.com/conneroisu/randomall/internal/i18n"
)

// Limits enforced on heads.
const (
	TitleLimit       = 256
	DescriptionLimit = 1000
	MaxTags          = 15
	MaxSubcategories = 10
	MaxAccess        = 2
)

// Error keys.
const (
	KeyTitleBlank           = "title_blank"
	KeyTitleTooLong         = "title_too_long"
	KeyDescriptionBlank     = "description_blank"
	KeyDescriptionTooLong   = "description_too_long"
	KeyAccessError          = "access_error"
	KeyTagsBlank            = "tags_blank"
	KeyTagsTooMany          = "tags_too_many"
	KeyTagsError            = "tags_error"
	KeyCategoryBlank        = "category_blank"
	KeyCategoryError        = "category_error"
	KeySubcategoriesTooMany = "subcategories_too_many"
)

// Head is a validated head.
type Head struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Access        int      `json:"access"`
	Category      *string  `json:"category"`
	Subcategories []string `json:"subcategories"`
	Tags          []string `json:"tags"`
}

type rawHead struct {
	Title         *string   `json:"title"`
	Description   *string   `json:"description"`
	Access        *int      `json:"access"`
	Category      *string   `json:"category"`
	Subcategories []*string `json:"subcategories"`
	Tags          []string  `json:"tags"`
}

// Validate checks a raw head against the rules and the category table of
// catalog. All violations are collected.
func Validate(raw []byte, catalog *i18n.Catalog) (*Head, *apperrors.Collector) {
	errs := apperrors.NewCollector()

	var in rawHead
	if err := json.Unmarshal(raw, &in); err != nil {
		errs.AddInternal(apperrors.SectionHead, "head", apperrors.DocumentLevel, fmt.Errorf("decode head: %w", err))
		return nil, errs
	}

	upper := cases.Upper(language.Und)
	h := &Head{}

	if in.Title == nil {
		errs.AddInternal(apperrors.SectionHead, "title", apperrors.DocumentLevel, fmt.Errorf("title is required"))
	} else {
		h.Title = strings.TrimSpace(*in.Title)
		switch {
		case h.Title == "":
			errs.AddField(apperrors.SectionHead, "title", KeyTitleBlank, nil)
		case utf8.RuneCountInString(h.Title) > TitleLimit:
			errs.AddField(apperrors.SectionHead, "title", KeyTitleTooLong, nil)
		}
	}

	if in.Description == nil {
		errs.AddInternal(apperrors.SectionHead, "description", apperrors.DocumentLevel, fmt.Errorf("description is required"))
	} else {
		h.Description = strings.TrimSpace(*in.Description)
		switch {
		case h.Description == "":
			errs.AddField(apperrors.SectionHead, "description", KeyDescriptionBlank, nil)
		case utf8.RuneCountInString(h.Description) > DescriptionLimit:
			errs.AddField(apperrors.SectionHead, "description", KeyDescriptionTooLong, nil)
		}
	}

	accessOK := false
	switch {
	case in.Access == nil:
		errs.AddInternal(apperrors.SectionHead, "access", apperrors.DocumentLevel, fmt.Errorf("access is required"))
	case *in.Access < 0 || *in.Access > MaxAccess:
		errs.AddField(apperrors.SectionHead, "access", KeyAccessError, nil)
	default:
		h.Access = *in.Access
		accessOK = true
	}

	h.Tags = validateTags(in.Tags, upper, errs)

	// category rules depend on a valid access value
	if accessOK && h.Access == 0 {
		h.Category = validateCategory(in.Category, catalog, errs)
		if h.Category != nil {
			h.Subcategories = validateSubcategories(*h.Category, in.Subcategories, catalog, upper, errs)
		}
	}

	return h, errs
}

func validateTags(tags []string, upper cases.Caser, errs *apperrors.Collector) []string {
	if len(tags) == 0 {
		errs.AddField(apperrors.SectionHead, "tags", KeyTagsBlank, nil)
		return nil
	}

	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ReplaceAll(strings.TrimSpace(tag), "#", "")
		if tag == "" {
			continue
		}
		tag = upperFirst(tag, upper)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}

	switch {
	case len(result) > MaxTags:
		errs.AddField(apperrors.SectionHead, "tags", KeyTagsTooMany, nil)
		return nil
	case len(result) == 0:
		errs.AddField(apperrors.SectionHead, "tags", KeyTagsError, nil)
		return nil
	}
	return result
}

func validateCategory(category *string, catalog *i18n.Catalog, errs *apperrors.Collector) *string {
	if category == nil {
		errs.AddField(apperrors.SectionHead, "category", KeyCategoryBlank, nil)
		return nil
	}
	if _, ok := catalog.Category(*category); !ok {
		errs.AddField(apperrors.SectionHead, "category", KeyCategoryError, nil)
		return nil
	}
	name := *category
	return &name
}

func validateSubcategories(category string, subs []*string, catalog *i18n.Catalog, upper cases.Caser, errs *apperrors.Collector) []string {
	if subs == nil {
		return nil
	}
	if cat, _ := catalog.Category(category); !cat.Subcategories {
		return nil
	}

	result := make([]string, 0, len(subs))
	seen := make(map[string]bool, len(subs))
	for _, s := range subs {
		if s == nil {
			continue
		}
		v := strings.TrimSpace(*s)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}

	if len(result) > MaxSubcategories {
		errs.AddField(apperrors.SectionHead, "subcategories", KeySubcategoriesTooMany, nil)
		return nil
	}
	if len(result) == 0 {
		return nil
	}
	for i, v := range result {
		result[i] = upperFirst(v, upper)
	}
	return result
}

func upperFirst(s string, upper cases.Caser) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upper.String(string(r)) + s[size:]
}
