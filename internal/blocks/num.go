package blocks

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidNum is returned for NUM arguments that cannot produce a number.
var ErrInvalidNum = errors.New("invalid NUM expression")

var (
	numCallPattern  = regexp.MustCompile(`NUM\([^)]*\)`)
	numTokenPattern = regexp.MustCompile(`-?\d+(?:\.\d*)?`)
)

// RandomNumber evaluates the arguments of a NUM call.
//
//	[lo, hi]       uniform integer in lo..hi inclusive
//	[lo, hi, step] lo plus a random multiple of step not above hi
func RandomNumber(args []string, rng *rand.Rand) (string, error) {
	nums := make([]int64, len(args))
	for i, a := range args {
		n, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return "", ErrInvalidNum
		}
		if n <= -NumMagnitude || n >= NumMagnitude {
			return "", ErrInvalidNum
		}
		nums[i] = n
	}

	switch {
	case len(nums) == 2 && nums[0] < nums[1]:
		lo, hi := nums[0], nums[1]
		return strconv.FormatInt(lo+rng.Int64N(hi-lo+1), 10), nil
	case len(nums) == 3 && nums[0] < nums[1] && nums[2] > 0:
		lo, hi, step := nums[0], nums[1], nums[2]
		if step > hi-lo {
			return strconv.FormatInt(lo, 10), nil
		}
		steps := (hi - lo) / step
		return strconv.FormatInt(lo+step*rng.Int64N(steps+1), 10), nil
	default:
		return "", ErrInvalidNum
	}
}

// numMarker is the visible replacement for a NUM call that failed.
func numMarker(expr string) string {
	return strings.ReplaceAll("__ERROR__"+expr+"__ERROR__", ",", "__COMMA__")
}

// SubstituteNumIn replaces every NUM(...) call in content, left to right.
// Each call is evaluated on its own.
func SubstituteNumIn(content string, rng *rand.Rand) string {
	if !strings.Contains(content, "NUM(") {
		return content
	}
	return numCallPattern.ReplaceAllStringFunc(content, func(call string) string {
		expr := strings.ReplaceAll(call, " ", "")
		args := numTokenPattern.FindAllString(expr, -1)
		n, err := RandomNumber(args, rng)
		if err != nil {
			return numMarker(expr)
		}
		return n
	})
}

// SubstituteNum rewrites the content of every block in body.
func SubstituteNum(body *Body, rng *rand.Rand) {
	for i := range body.Blocks {
		body.Blocks[i].Content = SubstituteNumIn(body.Blocks[i].Content, rng)
	}
}
