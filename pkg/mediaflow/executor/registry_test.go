package executor

import (
	"context"
	"testing"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultRegistry_CoversExecutableTypes(t *testing.T) {
	r := NewDefaultRegistry(Services{})

	for _, nt := range graph.AllTypes {
		if nt == graph.TypeNote {
			assert.False(t, r.Has(nt), "note is not executable")
			continue
		}
		assert.True(t, r.Has(nt), "missing behavior for %s", nt)
	}
	assert.Equal(t, len(graph.AllTypes)-1, r.Len())
	assert.Len(t, r.Types(), r.Len())
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	first := NewBehavior(nil, func(context.Context, Request) (graph.Data, error) { return graph.Data{"v": 1}, nil })
	second := NewBehavior(nil, func(context.Context, Request) (graph.Data, error) { return graph.Data{"v": 2}, nil })

	r.Register(graph.TypePrompt, first)
	r.Register(graph.TypePrompt, second)

	b, ok := r.Get(graph.TypePrompt)
	require.True(t, ok)
	out, err := b.Run(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, out["v"])
	assert.Equal(t, 1, r.Len())
}

func TestDefaultRegistry_BehaviorTraits(t *testing.T) {
	r := NewDefaultRegistry(Services{}, WithVideoCooldown(0))

	video, _ := r.Get(graph.TypeGenerateVideo)
	c, ok := video.(Cooldown)
	require.True(t, ok)
	assert.Zero(t, c.Cooldown())

	chunker, _ := r.Get(graph.TypeSyllableChunker)
	_, isLocal := chunker.(Local)
	assert.True(t, isLocal)

	img, _ := r.Get(graph.TypeGenerateImage)
	_, isLocal = img.(Local)
	assert.False(t, isLocal)
	_, cools := img.(Cooldown)
	assert.False(t, cools)

	def := NewDefaultRegistry(Services{})
	video, _ = def.Get(graph.TypeGenerateVideo)
	assert.Equal(t, DefaultVideoCooldown, video.(Cooldown).Cooldown())
}

func TestExecutor_IsLocal(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.x.IsLocal(graph.TypePrompt))
	assert.True(t, f.x.IsLocal(graph.TypeCombineText))
	assert.False(t, f.x.IsLocal(graph.TypeGenerateImage))
	assert.False(t, f.x.IsLocal(graph.TypeNote), "no behavior")
}
