package blocks

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/conneroisu/randomall/internal/errors"
)

// Message keys for body and format validation.
const (
	KeyBeforeAfterTooLong = "before_after_too_long"
	KeySlicerError        = "slicer_error"
	KeyContentBlank       = "content_blank"
	KeyContentTooLong     = "content_too_long"
	KeyEndError           = "end_error"
	KeyAlignError         = "align_error"
	KeyModsFormat         = "mods_error_1"
	KeyModsRange          = "mods_error_2"
)

var modsPattern = regexp.MustCompile(`^\d+(,\d+)*$`)

// Aligns accepted by the format validator.
var Aligns = []string{"center", "left", "right", "justify"}

// Format holds rendering options of a gen.
type Format struct {
	Align string `json:"align"`
}

type rawFields map[string]json.RawMessage

func decodeObject(raw []byte) (rawFields, error) {
	var fields rawFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("expected an object")
	}
	return fields, nil
}

// Validate checks a raw body document and normalizes it into a Body. Every
// problem is collected; the returned Body is only meaningful when the
// collector is empty.
func Validate(raw []byte) (*Body, *apperrors.Collector) {
	errs := apperrors.NewCollector()
	body := &Body{Blocks: []Block{}, Sequences: [][]int{}, Exceptions: [][]int{}}

	fields, err := decodeObject(raw)
	if err != nil {
		errs.AddInternal(apperrors.SectionBody, "blocks", apperrors.DocumentLevel, err)
		return body, errs
	}

	var rawBlocks []json.RawMessage
	if err := json.Unmarshal(fields["blocks"], &rawBlocks); err != nil || rawBlocks == nil {
		if err == nil {
			err = fmt.Errorf("blocks are required")
		}
		errs.AddInternal(apperrors.SectionBody, "blocks", apperrors.DocumentLevel, err)
		return body, errs
	}

	for i, rb := range rawBlocks {
		body.Blocks = append(body.Blocks, validateBlock(i, rb, errs))
	}

	body.Sequences = validateMods("sequences", fields["sequences"], len(rawBlocks), errs)
	body.Exceptions = validateMods("exceptions", fields["exceptions"], len(rawBlocks), errs)

	return body, errs
}

func validateBlock(index int, raw json.RawMessage, errs *apperrors.Collector) Block {
	var block Block

	fields, err := decodeObject(raw)
	if err != nil {
		errs.AddInternal(apperrors.SectionBody, "block", index, err)
		return block
	}

	block.Vars, _ = boolField(index, "vars", fields, errs)
	block.Cap, _ = boolField(index, "cap", fields, errs)

	before, ok := stringField(index, "before", fields, errs)
	if ok {
		block.Before = validateBeforeAfter(index, "before", before, errs, true)
	}
	after, ok := stringField(index, "after", fields, errs)
	if ok {
		block.After = validateBeforeAfter(index, "after", after, errs, false)
	}

	if slicer, ok := stringField(index, "slicer", fields, errs); ok {
		if !contains(Slicers, slicer) {
			errs.AddBlock(index, "slicer", KeySlicerError, nil)
		}
		block.Slicer = slicer
	}

	if content, ok := stringField(index, "content", fields, errs); ok {
		wrapped := strings.TrimSpace(before) != "" || strings.TrimSpace(after) != ""
		block.Content = validateContent(index, content, wrapped, errs)
	}

	block.End = validateEnd(index, fields, errs)

	return block
}

func boolField(index int, name string, fields rawFields, errs *apperrors.Collector) (bool, bool) {
	raw, present := fields[name]
	if !present {
		errs.AddInternal(apperrors.SectionBody, name, index, fmt.Errorf("field required"))
		return false, false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil || string(raw) == "null" {
		errs.AddInternal(apperrors.SectionBody, name, index, fmt.Errorf("value is not a valid boolean"))
		return false, false
	}
	return v, true
}

func stringField(index int, name string, fields rawFields, errs *apperrors.Collector) (string, bool) {
	raw, present := fields[name]
	if !present {
		errs.AddInternal(apperrors.SectionBody, name, index, fmt.Errorf("field required"))
		return "", false
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		errs.AddInternal(apperrors.SectionBody, name, index, fmt.Errorf("str type expected"))
		return "", false
	}
	return *v, true
}

func validateBeforeAfter(index int, field, v string, errs *apperrors.Collector, leading bool) string {
	if isBlank(v) {
		return ""
	}
	if utf8.RuneCountInString(v) > BeforeAfterLimit {
		errs.AddBlock(index, field, KeyBeforeAfterTooLong, nil)
		return ""
	}
	if leading {
		return strings.TrimLeftFunc(v, unicode.IsSpace)
	}
	return strings.TrimRightFunc(v, unicode.IsSpace)
}

// validateContent keeps a whitespace-only content as a single space when the
// block has text around it.
func validateContent(index int, v string, wrapped bool, errs *apperrors.Collector) string {
	if isBlank(v) && !wrapped {
		errs.AddBlock(index, "content", KeyContentBlank, nil)
		return ""
	}
	if len(v) > ContentLimitBytes {
		errs.AddBlock(index, "content", KeyContentTooLong, nil)
		return ""
	}
	if v != "" && isBlank(v) {
		return " "
	}
	return strings.TrimSpace(v)
}

func validateEnd(index int, fields rawFields, errs *apperrors.Collector) int {
	raw, present := fields["end"]
	if !present {
		errs.AddInternal(apperrors.SectionBody, "end", index, fmt.Errorf("field required"))
		return 0
	}

	end, ok := parseEnd(raw)
	if !ok || end < 1 || end > len(endSymbols) {
		errs.AddBlock(index, "end", KeyEndError, nil)
		return 0
	}
	return end
}

func parseEnd(raw json.RawMessage) (int, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false
		}
		return v, true
	}

	return 0, false
}

// validateMods turns entries like "1, 2,3" into index lists. Only the first
// offending entry is reported.
func validateMods(field string, raw json.RawMessage, blocksCount int, errs *apperrors.Collector) [][]int {
	mods := [][]int{}
	if len(raw) == 0 || string(raw) == "null" {
		return mods
	}

	entries, err := decodeModEntries(raw)
	if err != nil {
		errs.AddInternal(apperrors.SectionBody, field, apperrors.DocumentLevel, err)
		return mods
	}

	i := 0
	for _, entry := range entries {
		if isBlank(entry) {
			continue
		}
		i++
		compact := strings.ReplaceAll(strings.TrimSpace(entry), " ", "")
		if !modsPattern.MatchString(compact) {
			errs.AddField(apperrors.SectionBody, field, KeyModsFormat, map[string]any{"i": i})
			return [][]int{}
		}

		parts := strings.Split(compact, ",")
		mod := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n <= 0 || n > blocksCount {
				shown := p
				if err == nil {
					shown = strconv.Itoa(n)
				}
				errs.AddField(apperrors.SectionBody, field, KeyModsRange, map[string]any{
					"i":            i,
					"blocks_count": blocksCount,
					"n":            shown,
				})
				return [][]int{}
			}
			mod = append(mod, n)
		}
		mods = append(mods, mod)
	}

	return mods
}

func decodeModEntries(raw json.RawMessage) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("value is not a valid list")
	}

	entries := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			entries = append(entries, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			entries = append(entries, n.String())
			continue
		}
		return nil, fmt.Errorf("str type expected")
	}
	return entries, nil
}

// ValidateFormat checks the rendering options of a gen.
func ValidateFormat(raw []byte) (*Format, *apperrors.Collector) {
	errs := apperrors.NewCollector()
	format := &Format{}

	fields, err := decodeObject(raw)
	if err != nil {
		errs.AddInternal(apperrors.SectionFormat, "align", apperrors.DocumentLevel, err)
		return format, errs
	}

	var align *string
	rawAlign, present := fields["align"]
	if !present {
		errs.AddInternal(apperrors.SectionFormat, "align", apperrors.DocumentLevel, fmt.Errorf("field required"))
		return format, errs
	}
	if err := json.Unmarshal(rawAlign, &align); err != nil || align == nil {
		errs.AddInternal(apperrors.SectionFormat, "align", apperrors.DocumentLevel, fmt.Errorf("str type expected"))
		return format, errs
	}
	if !contains(Aligns, *align) {
		errs.AddField(apperrors.SectionFormat, "align", KeyAlignError, nil)
		return format, errs
	}
	format.Align = *align

	return format, errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
