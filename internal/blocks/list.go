package blocks

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var listRefPattern = regexp.MustCompile(`^LIST\((\d+)\)$`)

// ListResolver returns the variants a LIST(<id>) reference expands to. For
// lists that are missing or not accessible it returns a single placeholder
// variant; an error means the lookup itself failed.
type ListResolver interface {
	ResolveList(ctx context.Context, id int64) ([]string, error)
}

// ListResolverFunc adapts a function to ListResolver.
type ListResolverFunc func(ctx context.Context, id int64) ([]string, error)

// ResolveList implements ListResolver.
func (f ListResolverFunc) ResolveList(ctx context.Context, id int64) ([]string, error) {
	return f(ctx, id)
}

// ListRef returns the list id of a variant that is exactly LIST(<id>).
func ListRef(variant string) (int64, bool) {
	m := listRefPattern.FindStringSubmatch(variant)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExpandLists splices the variants of referenced lists into blocks in place
// of each LIST(<id>) variant. Each id is resolved once per call.
func ExpandLists(ctx context.Context, body *Body, resolver ListResolver) error {
	resolved := make(map[int64][]string)

	for i := range body.Blocks {
		b := &body.Blocks[i]
		if !b.Vars || b.Slicer == "" || !strings.Contains(b.Content, "LIST(") {
			continue
		}

		variants := b.Variants()
		expanded := make([]string, 0, len(variants))
		changed := false
		for _, v := range variants {
			id, ok := ListRef(v)
			if !ok {
				expanded = append(expanded, v)
				continue
			}
			listVariants, seen := resolved[id]
			if !seen {
				var err error
				listVariants, err = resolver.ResolveList(ctx, id)
				if err != nil {
					return fmt.Errorf("resolve LIST(%d): %w", id, err)
				}
				resolved[id] = listVariants
			}
			for _, lv := range listVariants {
				expanded = append(expanded, strings.TrimSpace(lv))
			}
			changed = true
		}

		if changed {
			b.Content = strings.Join(expanded, b.Slicer)
		}
	}

	return nil
}
