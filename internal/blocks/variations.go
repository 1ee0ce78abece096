package blocks

import (
	"context"
	"fmt"
)

// CountVariations multiplies the variant counts of all blocks with variants.
// The product stops at VariationsCeiling.
func CountVariations(body *Body) int {
	variations := 1
	for i := range body.Blocks {
		b := &body.Blocks[i]
		if !b.Vars {
			continue
		}
		if n := len(b.Variants()); n > 0 {
			variations *= n
		}
		if variations >= VariationsCeiling {
			return VariationsCeiling
		}
	}
	return variations
}

// EstimateVariations counts variations after expanding list references on a
// copy of body. body itself is left untouched.
func EstimateVariations(ctx context.Context, body *Body, resolver ListResolver) (int, error) {
	working := body.Clone()
	if resolver != nil {
		if err := ExpandLists(ctx, working, resolver); err != nil {
			return 0, err
		}
	}
	return CountVariations(working), nil
}

var variationMarks = []struct {
	limit int
	sign  string
}{
	{10, "<"}, {30, "<"}, {50, "<"}, {100, "<"}, {200, "<"}, {300, "<"},
	{400, "<"}, {500, "<"}, {800, "<"},
	{1000, "~"}, {1500, "~"}, {2000, "~"}, {2500, "~"}, {3000, "~"},
	{4000, "~"}, {5000, "~"}, {6000, "~"}, {7000, "~"}, {8000, "~"},
	{9000, "~"}, {10_000, "~"}, {15_000, "~"}, {20_000, "~"},
	{30_000, "~"}, {50_000, "~"}, {100_000, "~"},
}

// ApproximateVariations renders a variation count for display, e.g. "<10",
// "~1500" or ">100000". Zero renders as an empty string.
func ApproximateVariations(n int) string {
	if n <= 0 {
		return ""
	}
	last := variationMarks[len(variationMarks)-1]
	if n >= last.limit {
		return fmt.Sprintf(">%d", last.limit)
	}
	for _, mark := range variationMarks {
		if n < mark.limit {
			return fmt.Sprintf("%s%d", mark.sign, mark.limit)
		}
	}
	return ""
}
