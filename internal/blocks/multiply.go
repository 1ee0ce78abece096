package blocks

import (
	"regexp"
	"strconv"
	"strings"
)

var multiplierPattern = regexp.MustCompile(`^(.*)\*(-?\d+)$`)

// ParseMultipliers turns trailing "*<n>" suffixes of variants into weights.
// Only blocks with variants are considered. Weights are clamped to
// 0..MaxWeight and unweighted variants weigh 1.
func ParseMultipliers(body *Body) {
	for i := range body.Blocks {
		parseBlockMultipliers(&body.Blocks[i])
	}
}

func parseBlockMultipliers(b *Block) {
	if !b.Vars || b.Slicer == "" || !strings.Contains(b.Content, "*") {
		return
	}

	variants := strings.Split(b.Content, b.Slicer)
	values := make([]string, 0, len(variants))
	weights := make([]int, 0, len(variants))
	multi := false

	for _, v := range variants {
		m := multiplierPattern.FindStringSubmatch(strings.TrimSpace(v))
		if m == nil {
			values = append(values, v)
			weights = append(weights, 1)
			continue
		}
		values = append(values, m[1])
		weights = append(weights, clampWeight(m[2]))
		multi = true
	}

	if multi {
		b.Content = strings.Join(values, b.Slicer)
		b.Weights = weights
		b.Multi = true
	}
}

func clampWeight(digits string) int {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// only overflow is possible here
		if strings.HasPrefix(digits, "-") {
			return 0
		}
		return MaxWeight
	}
	if n <= 0 {
		return 0
	}
	if n > MaxWeight {
		return MaxWeight
	}
	return int(n)
}
