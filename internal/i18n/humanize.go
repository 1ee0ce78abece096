package i18n

import (
	"fmt"
	"strings"

	apperrors "github.com/conneroisu/randomall/internal/errors"
)

var sectionPrefixes = map[string]struct{ labels, errors string }{
	apperrors.SectionHead:   {"head.labels.", "head.errors."},
	apperrors.SectionFormat: {"format.labels.", "format.errors."},
	apperrors.SectionBody:   {"body.blocks.labels.", "body.blocks.errors."},
}

// Humanize renders field errors as "__ERROR__ <label> - <message>" lines.
// Block errors are prefixed with the block label and 1-based number.
// Internal errors show the generic server error.
func (c *Catalog) Humanize(errs []apperrors.FieldError) string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, c.humanizeOne(e))
	}
	return strings.Join(lines, "\n")
}

func (c *Catalog) humanizeOne(e apperrors.FieldError) string {
	prefixes := sectionPrefixes[e.Section]

	label := e.Field
	if key := prefixes.labels + e.Field; c.Has(key) {
		label = c.T(key)
	}

	msg := c.ServerError()
	if !e.Internal {
		if key := prefixes.errors + e.Key; c.Has(key) {
			msg = c.Tf(key, e.Params)
		}
	}

	if e.Block >= 0 {
		block := c.T("body.blocks.labels.block")
		return fmt.Sprintf("__ERROR__ %s #%d: %s - %s", block, e.Block+1, label, msg)
	}
	return fmt.Sprintf("__ERROR__ %s - %s", label, msg)
}
