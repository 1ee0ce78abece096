package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/randomall/internal/blocks"
)

func recorder(name string, calls *[]string, err error) Middleware {
	return NewFunc(name, func(context.Context, *State) error {
		*calls = append(*calls, name)
		return err
	})
}

func TestChainRunsInOrder(t *testing.T) {
	var calls []string
	chain := NewChain(nil, recorder("a", &calls, nil), recorder("b", &calls, nil), recorder("c", &calls, nil))

	require.NoError(t, chain.Run(context.Background(), &State{Body: &blocks.Body{}}))
	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.Equal(t, []string{"a", "b", "c"}, chain.Names())
	assert.Equal(t, 3, chain.Len())
}

func TestChainStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	var calls []string
	chain := NewChain(nil, recorder("a", &calls, nil), recorder("b", &calls, boom), recorder("c", &calls, nil))

	err := chain.Run(context.Background(), &State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b middleware")
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestChainHonorsCancellation(t *testing.T) {
	var calls []string
	chain := NewChain(nil, recorder("a", &calls, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, chain.Run(ctx, &State{}), context.Canceled)
	assert.Empty(t, calls)
}

func TestChainWithAppends(t *testing.T) {
	var calls []string
	base := NewChain(nil, recorder("a", &calls, nil))
	extended := base.With(recorder("b", &calls, nil))

	assert.Equal(t, []string{"a"}, base.Names())
	assert.Equal(t, []string{"a", "b"}, extended.Names())
}

func TestChainRejectsNil(t *testing.T) {
	assert.Panics(t, func() { NewChain(nil, nil) })
	assert.Error(t, NewChain(nil).Run(context.Background(), nil))
}

func TestNewChainsNames(t *testing.T) {
	chains := NewChains(Deps{Lists: memLists{}, Backups: newMemBackups()})
	defer chains.Wait()

	assert.Equal(t, []string{"list", "num", "multiply"}, chains.Preprocess.Names())
	assert.Equal(t, []string{"backup"}, chains.PostprocessTest.Names())
	assert.Equal(t, []string{"backup", "hash", "variations"}, chains.PostprocessSave.Names())

	withoutLists := NewChains(Deps{})
	assert.Equal(t, []string{"num", "multiply"}, withoutLists.Preprocess.Names())
}
