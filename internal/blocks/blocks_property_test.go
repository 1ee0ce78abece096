//go:build property

package blocks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestGenerationProperties validates rendering invariants.
func TestGenerationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("literal bodies render deterministically", prop.ForAll(
		func(content string, end int, seed uint64) bool {
			body := &Body{Blocks: []Block{literal(content, end)}}
			want := content + EndSymbol(end)
			return newTestGenerator(seed).Generate(body) == want
		},
		gen.AlphaString(),
		gen.IntRange(1, 8),
		gen.UInt64(),
	))

	properties.Property("zero weights render empty", prop.ForAll(
		func(n int, seed uint64) bool {
			body := &Body{Blocks: []Block{{
				Vars:    true,
				Slicer:  ",",
				Content: strings.TrimSuffix(strings.Repeat("v,", n), ","),
				Multi:   true,
				Weights: make([]int, n),
				End:     1,
			}}}
			return newTestGenerator(seed).Generate(body) == ""
		},
		gen.IntRange(1, 20),
		gen.UInt64(),
	))

	properties.Property("chosen variant belongs to the block", prop.ForAll(
		func(words []string, seed uint64) bool {
			if len(words) == 0 {
				return true
			}
			body := &Body{Blocks: []Block{variants(strings.Join(words, ","))}}
			out := newTestGenerator(seed).Generate(body)
			for _, w := range words {
				if w == out {
					return true
				}
			}
			return false
		},
		gen.SliceOf(gen.AlphaString()),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// TestPreprocessProperties validates the content rewriting passes.
func TestPreprocessProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(8642)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("content without NUM is unchanged", prop.ForAll(
		func(content string, seed uint64) bool {
			if strings.Contains(content, "NUM(") {
				return true
			}
			return SubstituteNumIn(content, newTestGenerator(seed).rng) == content
		},
		gen.AnyString(),
		gen.UInt64(),
	))

	properties.Property("NUM stays in range", prop.ForAll(
		func(lo int64, width int64, seed uint64) bool {
			hi := lo + width
			out := SubstituteNumIn(fmt.Sprintf("NUM(%d,%d)", lo, hi), newTestGenerator(seed).rng)
			n, err := strconv.ParseInt(out, 10, 64)
			return err == nil && n >= lo && n <= hi
		},
		gen.Int64Range(-1_000_000, 1_000_000),
		gen.Int64Range(1, 1_000_000),
		gen.UInt64(),
	))

	properties.Property("reversed NUM yields a marker", prop.ForAll(
		func(lo int64, width int64) bool {
			expr := fmt.Sprintf("NUM(%d,%d)", lo+width, lo)
			out := SubstituteNumIn(expr, newTestGenerator(1).rng)
			return out == numMarker(expr)
		},
		gen.Int64Range(-1_000_000, 1_000_000),
		gen.Int64Range(0, 1_000_000),
	))

	properties.Property("weights are clamped", prop.ForAll(
		func(w int64) bool {
			body := &Body{Blocks: []Block{variants(fmt.Sprintf("a*%d,b", w))}}
			ParseMultipliers(body)
			got := body.Blocks[0].Weights[0]
			switch {
			case w <= 0:
				return got == 0
			case w > MaxWeight:
				return got == MaxWeight
			default:
				return got == int(w)
			}
		},
		gen.Int64Range(-100_000, 1_000_000),
	))

	properties.Property("missing list leaves a single marker variant", prop.ForAll(
		func(id int64) bool {
			body := &Body{Blocks: []Block{variants(fmt.Sprintf("LIST(%d)", id))}}
			resolver := ListResolverFunc(func(_ context.Context, id int64) ([]string, error) {
				return []string{fmt.Sprintf("missing list %d", id)}, nil
			})
			if err := ExpandLists(context.Background(), body, resolver); err != nil {
				return false
			}
			got := body.Blocks[0].Variants()
			return len(got) == 1 && strings.Contains(got[0], strconv.FormatInt(id, 10))
		},
		gen.Int64Range(0, 1<<40),
	))

	properties.Property("variations multiply and saturate", prop.ForAll(
		func(counts []int) bool {
			body := &Body{}
			want := 1
			for _, c := range counts {
				body.Blocks = append(body.Blocks, variants(strings.TrimSuffix(strings.Repeat("v,", c), ",")))
				if want < VariationsCeiling {
					want *= c
				}
			}
			if want > VariationsCeiling {
				want = VariationsCeiling
			}
			return CountVariations(body) == want
		},
		gen.SliceOf(gen.IntRange(1, 60)),
	))

	properties.TestingRun(t)
}
