package resolve_test

import (
	"testing"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, s *graph.Store, spec graph.EdgeSpec) *graph.Edge {
	t.Helper()
	e, ok := s.Connect(spec)
	require.True(t, ok, "connect %s -> %s", spec.Source, spec.Target)
	return e
}

func TestResolve_ChunkerIndexedByConsumer(t *testing.T) {
	s := graph.NewStore("")
	chunker := s.AddNode(graph.TypeSyllableChunker, graph.Position{}, map[string]any{
		graph.FieldOutputChunks: []string{"a", "b", "c"},
	})
	consumer := s.AddNode(graph.TypeGenerateImage, graph.Position{}, map[string]any{
		graph.FieldChunkIndex: 2,
	})
	e := connect(t, s, graph.EdgeSpec{Source: chunker.ID, Target: consumer.ID, TargetHandle: graph.HandleText})

	r := resolve.New(s)
	assert.Equal(t, "b", r.Resolve(consumer.ID).Text)

	require.True(t, s.RemoveEdge(e.ID))
	assert.Empty(t, r.Resolve(consumer.ID).Text)
	assert.True(t, r.Resolve(consumer.ID).Empty())
}

func TestResolve_ChunkIndexOutOfRange(t *testing.T) {
	s := graph.NewStore("")
	chunker := s.AddNode(graph.TypeSyllableChunker, graph.Position{}, map[string]any{
		graph.FieldOutputChunks: []any{"a", "b"},
	})
	tests := []struct {
		name  string
		index any
		want  string
	}{
		{"default is first", nil, "a"},
		{"json number", float64(2), "b"},
		{"past end", 3, ""},
		{"zero", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]any{}
			if tt.index != nil {
				fields[graph.FieldChunkIndex] = tt.index
			}
			consumer := s.AddNode(graph.TypeTextToSpeech, graph.Position{}, fields)
			connect(t, s, graph.EdgeSpec{Source: chunker.ID, Target: consumer.ID, TargetHandle: graph.HandleText})

			assert.Equal(t, tt.want, resolve.New(s).Resolve(consumer.ID).Text)
		})
	}
}

func TestResolve_ImagesAccumulateInEdgeOrder(t *testing.T) {
	s := graph.NewStore("")
	in := s.AddNode(graph.TypeImageInput, graph.Position{}, map[string]any{graph.FieldImage: "img-in"})
	gen := s.AddNode(graph.TypeGenerateImage, graph.Position{}, map[string]any{graph.FieldOutputImage: "img-gen"})
	vid := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, map[string]any{graph.FieldLastFrame: "frame"})
	target := s.AddNode(graph.TypeGenerateImage, graph.Position{}, nil)

	connect(t, s, graph.EdgeSpec{Source: gen.ID, Target: target.ID, TargetHandle: graph.HandleImage})
	connect(t, s, graph.EdgeSpec{Source: in.ID, Target: target.ID, TargetHandle: graph.HandleImage})
	connect(t, s, graph.EdgeSpec{Source: vid.ID, Target: target.ID, TargetHandle: graph.HandleImage})

	got := resolve.New(s).Resolve(target.ID)
	assert.Equal(t, []string{"img-gen", "img-in", "frame"}, got.Images)
	assert.Equal(t, "img-gen", got.Image())
}

func TestResolve_SingleValuedLastWriterWins(t *testing.T) {
	s := graph.NewStore("")
	p1 := s.AddNode(graph.TypePrompt, graph.Position{}, map[string]any{graph.FieldPrompt: "first"})
	p2 := s.AddNode(graph.TypePrompt, graph.Position{}, map[string]any{graph.FieldPrompt: "second"})
	v1 := s.AddNode(graph.TypeVideoInput, graph.Position{}, map[string]any{graph.FieldVideo: "v1"})
	v2 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, map[string]any{graph.FieldOutputVideo: "v2"})
	target := s.AddNode(graph.TypeStitchVideos, graph.Position{}, nil)

	connect(t, s, graph.EdgeSpec{Source: p1.ID, Target: target.ID, TargetHandle: graph.HandleText})
	connect(t, s, graph.EdgeSpec{Source: p2.ID, Target: target.ID, TargetHandle: graph.HandleText})
	connect(t, s, graph.EdgeSpec{Source: v1.ID, Target: target.ID, TargetHandle: graph.HandleVideo})
	connect(t, s, graph.EdgeSpec{Source: v2.ID, Target: target.ID, TargetHandle: graph.HandleVideo})

	got := resolve.New(s).Resolve(target.ID)
	assert.Equal(t, "second", got.Text)
	assert.Equal(t, "v2", got.Video)
	assert.Equal(t, []string{"v1", "v2"}, got.Videos)
}

func TestResolve_ContextAndAudio(t *testing.T) {
	s := graph.NewStore("")
	tg := s.AddNode(graph.TypeTextGenerate, graph.Position{}, map[string]any{graph.FieldOutputText: "story"})
	tts := s.AddNode(graph.TypeTextToSpeech, graph.Position{}, map[string]any{graph.FieldOutputAudio: "aud"})
	target := s.AddNode(graph.TypeMergeAudio, graph.Position{}, nil)

	connect(t, s, graph.EdgeSpec{Source: tg.ID, Target: target.ID, TargetHandle: graph.HandleContext})
	connect(t, s, graph.EdgeSpec{Source: tts.ID, Target: target.ID, TargetHandle: graph.HandleAudio})

	got := resolve.New(s).Resolve(target.ID)
	assert.Equal(t, "story", got.Context)
	assert.Empty(t, got.Text)
	assert.Equal(t, "aud", got.Audio)
}

func TestResolve_HandleFilter(t *testing.T) {
	s := graph.NewStore("")
	p := s.AddNode(graph.TypePrompt, graph.Position{}, map[string]any{graph.FieldPrompt: "hi"})
	img := s.AddNode(graph.TypeImageInput, graph.Position{}, map[string]any{graph.FieldImage: "img"})
	target := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, nil)
	connect(t, s, graph.EdgeSpec{Source: p.ID, Target: target.ID, TargetHandle: graph.HandleText})
	connect(t, s, graph.EdgeSpec{Source: img.ID, Target: target.ID, TargetHandle: graph.HandleImage})

	got := resolve.New(s).Resolve(target.ID, graph.HandleImage)
	assert.Equal(t, []string{"img"}, got.Images)
	assert.Empty(t, got.Text)
}

func TestResolve_HandleFallbacks(t *testing.T) {
	s := graph.NewStore("")
	gen := s.AddNode(graph.TypeGenerateImage, graph.Position{}, map[string]any{graph.FieldOutputImage: "img"})
	vid := s.AddNode(graph.TypeVideoInput, graph.Position{}, map[string]any{graph.FieldVideo: "vid"})
	out := s.AddNode(graph.TypeOutput, graph.Position{}, nil)

	// no handles at all: primary output of the source type
	connect(t, s, graph.EdgeSpec{Source: gen.ID, Target: out.ID})
	// source handle only
	connect(t, s, graph.EdgeSpec{Source: vid.ID, Target: out.ID, SourceHandle: graph.HandleVideo})

	got := resolve.New(s).Resolve(out.ID)
	assert.Equal(t, []string{"img"}, got.Images)
	assert.Equal(t, "vid", got.Video)
}

func TestResolve_ReferenceChainsThroughVideoNodes(t *testing.T) {
	s := graph.NewStore("")
	ref1 := s.AddNode(graph.TypeImageInput, graph.Position{}, map[string]any{graph.FieldImage: "ref-1"})
	ref2 := s.AddNode(graph.TypeGenerateImage, graph.Position{}, map[string]any{graph.FieldOutputImage: "ref-2"})
	v1 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, nil)
	v2 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, nil)
	v3 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, nil)

	connect(t, s, graph.EdgeSpec{Source: ref1.ID, Target: v1.ID, TargetHandle: graph.HandleReference})
	connect(t, s, graph.EdgeSpec{Source: ref2.ID, Target: v1.ID, TargetHandle: graph.HandleReference})
	connect(t, s, graph.EdgeSpec{Source: v1.ID, Target: v2.ID, SourceHandle: graph.HandleReference, TargetHandle: graph.HandleReference})
	connect(t, s, graph.EdgeSpec{Source: v2.ID, Target: v3.ID, SourceHandle: graph.HandleReference, TargetHandle: graph.HandleReference})

	r := resolve.New(s)
	assert.Equal(t, []string{"ref-1", "ref-2"}, r.Resolve(v2.ID).ReferenceImages)
	assert.Equal(t, []string{"ref-1", "ref-2"}, r.Resolve(v3.ID).ReferenceImages)
}

func TestResolve_ReferenceFallsBackToStoredOnPassthroughNode(t *testing.T) {
	s := graph.NewStore("")
	v1 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, map[string]any{
		graph.FieldReferenceImages: []string{"kept"},
	})
	v2 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, nil)
	connect(t, s, graph.EdgeSpec{Source: v1.ID, Target: v2.ID, SourceHandle: graph.HandleReference, TargetHandle: graph.HandleReference})

	assert.Equal(t, []string{"kept"}, resolve.New(s).Resolve(v2.ID).ReferenceImages)
}

func TestResolve_ReferenceCycleTerminates(t *testing.T) {
	s := graph.NewStore("")
	v1 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, nil)
	v2 := s.AddNode(graph.TypeGenerateVideo, graph.Position{}, nil)
	connect(t, s, graph.EdgeSpec{Source: v1.ID, Target: v2.ID, SourceHandle: graph.HandleReference, TargetHandle: graph.HandleReference})
	connect(t, s, graph.EdgeSpec{Source: v2.ID, Target: v1.ID, SourceHandle: graph.HandleReference, TargetHandle: graph.HandleReference})

	assert.Empty(t, resolve.New(s).Resolve(v1.ID).ReferenceImages)
}

func TestResolve_UnknownNode(t *testing.T) {
	s := graph.NewStore("")
	assert.True(t, resolve.New(s).Resolve("nope-1").Empty())
}

func TestEffective(t *testing.T) {
	assert.Equal(t, "live", resolve.Effective("live", "stored"))
	assert.Equal(t, "stored", resolve.Effective("", "stored"))
	assert.Equal(t, 0, resolve.Effective(0, 0))

	assert.Equal(t, []string{"a"}, resolve.EffectiveList([]string{"a"}, []string{"b"}))
	assert.Equal(t, []string{"b"}, resolve.EffectiveList(nil, []string{"b"}))
	assert.Nil(t, resolve.EffectiveList[string](nil, nil))
}
