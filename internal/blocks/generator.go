package blocks

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Strategy is the rendering algorithm chosen for a body.
type Strategy int

const (
	StrategyBase Strategy = iota
	StrategySequence
	StrategyException
	StrategyAdvanced
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyBase:
		return "base"
	case StrategySequence:
		return "sequence"
	case StrategyException:
		return "exception"
	case StrategyAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// SelectStrategy picks a strategy from the structural features of a body.
func SelectStrategy(hasSequences, hasExceptions bool) Strategy {
	switch {
	case hasSequences && hasExceptions:
		return StrategyAdvanced
	case hasSequences:
		return StrategySequence
	case hasExceptions:
		return StrategyException
	default:
		return StrategyBase
	}
}

// StrategyFor returns the strategy that renders body.
func StrategyFor(body *Body) Strategy {
	return SelectStrategy(len(body.Sequences) > 0, len(body.Exceptions) > 0)
}

// slot is the per-call working state of one block.
type slot struct {
	block    *Block
	variants []string
	weights  []int
}

type arena []slot

func newArena(body *Body) arena {
	a := make(arena, len(body.Blocks))
	for i := range body.Blocks {
		b := &body.Blocks[i]
		s := slot{block: b}
		if b.Vars {
			s.variants = b.Variants()
			s.weights = append([]int(nil), b.Weights...)
		}
		a[i] = s
	}
	return a
}

func (a arena) clone() arena {
	out := make(arena, len(a))
	for i, s := range a {
		out[i] = slot{
			block:    s.block,
			variants: append([]string(nil), s.variants...),
			weights:  append([]int(nil), s.weights...),
		}
	}
	return out
}

// at returns the slot for a 1-based position, or nil when out of range.
func (a arena) at(pos int) *slot {
	if pos < 1 || pos > len(a) {
		return nil
	}
	return &a[pos-1]
}

// Generator renders bodies. It owns its random source and case mappers and is
// not safe for concurrent use.
type Generator struct {
	rng   *rand.Rand
	upper cases.Caser
	fold  cases.Caser
}

// NewGenerator creates a Generator drawing from rng. A nil rng is seeded
// randomly.
func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{
		rng:   rng,
		upper: cases.Upper(language.Und),
		fold:  cases.Fold(),
	}
}

// Generate renders one output of body.
func (g *Generator) Generate(body *Body) string {
	a := newArena(body)
	switch StrategyFor(body) {
	case StrategySequence:
		return g.renderPath(a, g.pickSequence(body), nil)
	case StrategyException:
		return g.renderExceptions(a, body.Exceptions)
	case StrategyAdvanced:
		return g.renderPath(a, g.pickSequence(body), body.Exceptions)
	default:
		return g.renderAll(a)
	}
}

// Test renders the editor preview of body. Sequence based strategies render
// every sequence on its own numbered line.
func (g *Generator) Test(body *Body) string {
	a := newArena(body)
	switch StrategyFor(body) {
	case StrategySequence:
		return g.renderSequences(a, body.Sequences, nil)
	case StrategyAdvanced:
		return g.renderSequences(a, body.Sequences, body.Exceptions)
	default:
		return g.Generate(body)
	}
}

func (g *Generator) pickSequence(body *Body) []int {
	return body.Sequences[g.rng.IntN(len(body.Sequences))]
}

func (g *Generator) renderAll(a arena) string {
	var sb strings.Builder
	for i := range a {
		s := &a[i]
		sb.WriteString(g.tie(s, g.choose(s)))
	}
	return sb.String()
}

func (g *Generator) renderExceptions(a arena, exceptions [][]int) string {
	var sb strings.Builder
	for i := range a {
		s := &a[i]
		choice := g.choose(s)
		sb.WriteString(g.tie(s, choice))
		g.prune(a, exceptions, i+1, choice)
	}
	return sb.String()
}

// renderPath renders the blocks of one sequence in order. With exceptions,
// every choice prunes the other members of its groups before they are
// visited.
func (g *Generator) renderPath(a arena, sequence []int, exceptions [][]int) string {
	var sb strings.Builder
	for _, pos := range sequence {
		s := a.at(pos)
		if s == nil {
			continue
		}
		choice := g.choose(s)
		if len(exceptions) > 0 {
			g.prune(a, exceptions, pos, choice)
		}
		sb.WriteString(g.tie(s, choice))
	}
	return sb.String()
}

func (g *Generator) renderSequences(a arena, sequences [][]int, exceptions [][]int) string {
	lines := make([]string, 0, len(sequences))
	for i, sequence := range sequences {
		working := a
		if len(exceptions) > 0 {
			working = a.clone()
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, g.renderPath(working, sequence, exceptions)))
	}
	return strings.Join(lines, "\n")
}

// prune removes choice from every other member of each exception group that
// contains pos. Groups are copied per visit so the first occurrence of pos
// is the one dropped.
func (g *Generator) prune(a arena, exceptions [][]int, pos int, choice string) {
	for _, group := range exceptions {
		idx := indexOf(group, pos)
		if idx < 0 {
			continue
		}
		members := make([]int, 0, len(group)-1)
		members = append(members, group[:idx]...)
		members = append(members, group[idx+1:]...)
		for _, e := range members {
			if s := a.at(e); s != nil {
				g.deleteSame(s, choice)
			}
		}
	}
}

// deleteSame drops variants equal to choice ignoring case. Weighted blocks
// keep their variants with a zero weight instead.
func (g *Generator) deleteSame(s *slot, choice string) {
	if !s.block.Vars {
		return
	}
	target := g.fold.String(choice)

	if s.block.Multi {
		for i, v := range s.variants {
			if i < len(s.weights) && g.fold.String(v) == target {
				s.weights[i] = 0
			}
		}
		return
	}

	kept := s.variants[:0]
	for _, v := range s.variants {
		if g.fold.String(v) != target {
			kept = append(kept, v)
		}
	}
	s.variants = kept
}

// choose resolves the text of a slot.
func (g *Generator) choose(s *slot) string {
	var choice string
	switch {
	case !s.block.Vars:
		choice = s.block.Content
	case s.block.Multi:
		choice = g.weighted(s.variants, s.weights)
	case len(s.variants) == 0:
		choice = ""
	default:
		choice = s.variants[g.rng.IntN(len(s.variants))]
	}

	if s.block.Cap {
		return g.capitalize(choice)
	}
	return choice
}

// weighted picks a variant proportionally to its weight. No positive weight
// means no valid choice.
func (g *Generator) weighted(variants []string, weights []int) string {
	n := min(len(variants), len(weights))
	total := 0
	for i := 0; i < n; i++ {
		if weights[i] > 0 {
			total += weights[i]
		}
	}
	if total <= 0 {
		return ""
	}

	r := g.rng.IntN(total)
	for i := 0; i < n; i++ {
		if weights[i] <= 0 {
			continue
		}
		if r < weights[i] {
			return variants[i]
		}
		r -= weights[i]
	}
	return ""
}

func (g *Generator) capitalize(s string) string {
	if s == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(s)
	return g.upper.String(s[:size]) + s[size:]
}

func (g *Generator) tie(s *slot, choice string) string {
	return s.block.Before + choice + s.block.After + EndSymbol(s.block.End)
}

func indexOf(values []int, v int) int {
	for i, value := range values {
		if value == v {
			return i
		}
	}
	return -1
}
