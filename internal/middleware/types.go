package middleware

import (
	"encoding/json"
	"math/rand/v2"

	"github.com/conneroisu/randomall/internal/blocks"
	"github.com/conneroisu/randomall/internal/types"
)

// Action names the engine operation a chain runs for.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionTest     Action = "test"
	ActionCreate   Action = "create"
	ActionEdit     Action = "edit"
)

// State is the per-request working state shared by the middlewares of a
// chain. Middlewares may rewrite Body and Metadata; RawBody is the body as
// submitted and is never modified. Rand is the request's random source and
// is not shared between states.
type State struct {
	Action   Action
	Body     *blocks.Body
	RawBody  json.RawMessage
	Owner    *types.User
	Metadata types.Metadata
	Rand     *rand.Rand
}

func (s *State) source() *rand.Rand {
	if s.Rand == nil {
		s.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s.Rand
}
