// Package blocks implements the block template engine: the document model,
// its validation, the preprocessing passes that rewrite block content and
// the generation strategies that render a body into text.
package blocks

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Limits enforced on documents.
const (
	ContentLimitBytes = 100_000
	BeforeAfterLimit  = 1_000
	MaxWeight         = 10_000
	VariationsCeiling = 100_000
	NumMagnitude      = 1_000_000_000_000
)

// Slicers are the delimiters a block's content may be split by.
var Slicers = []string{",", ".", ";"}

var endSymbols = [...]string{"", " ", ".", "\n", ", ", ". ", ".\n", "\n\n"}

// EndSymbol returns the trailing symbol for an end value in 1..8.
func EndSymbol(end int) string {
	if end < 1 || end > len(endSymbols) {
		return ""
	}
	return endSymbols[end-1]
}

// Block is one content unit of a document.
type Block struct {
	Vars    bool   `json:"vars"`
	Before  string `json:"before"`
	After   string `json:"after"`
	Slicer  string `json:"slicer"`
	Content string `json:"content"`
	Cap     bool   `json:"cap"`
	End     int    `json:"end"`
	Multi   bool   `json:"multi"`
	Weights []int  `json:"weights,omitempty"`
}

// Variants splits the content by the slicer and trims each variant.
func (b *Block) Variants() []string {
	if b.Slicer == "" {
		return []string{strings.TrimSpace(b.Content)}
	}
	parts := strings.Split(b.Content, b.Slicer)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Body is a whole document. Sequence and exception entries are 1-based
// block positions.
type Body struct {
	Blocks     []Block `json:"blocks"`
	Sequences  [][]int `json:"sequences"`
	Exceptions [][]int `json:"exceptions"`
}

// Clone returns a deep copy of b.
func (b *Body) Clone() *Body {
	out := &Body{
		Blocks:     make([]Block, len(b.Blocks)),
		Sequences:  cloneIndex(b.Sequences),
		Exceptions: cloneIndex(b.Exceptions),
	}
	for i, block := range b.Blocks {
		block.Weights = append([]int(nil), block.Weights...)
		out.Blocks[i] = block
	}
	return out
}

func cloneIndex(in [][]int) [][]int {
	if in == nil {
		return nil
	}
	out := make([][]int, len(in))
	for i, group := range in {
		out[i] = append([]int(nil), group...)
	}
	return out
}

// Construct decodes an already validated body without validating it again.
func Construct(raw []byte) (*Body, error) {
	var body Body
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("construct body: %w", err)
	}
	if body.Sequences == nil {
		body.Sequences = [][]int{}
	}
	if body.Exceptions == nil {
		body.Exceptions = [][]int{}
	}
	return &body, nil
}
