package executor

import (
	"context"
	"testing"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stitchGraph(t *testing.T, f *fixture, fields map[string]any) (stitch, v1, v2 string) {
	t.Helper()
	stitch = f.add(graph.TypeStitchVideos, fields)
	v1 = f.add(graph.TypeGenerateVideo, map[string]any{graph.FieldPrompt: "a"})
	v2 = f.add(graph.TypeGenerateVideo, map[string]any{graph.FieldPrompt: "b"})
	f.connect(t, v1, stitch, graph.HandleVideo)
	f.connect(t, v2, stitch, graph.HandleVideo)
	return stitch, v1, v2
}

func TestRegenerateStitch_Iterations(t *testing.T) {
	f := newFixture(t)
	stitch, _, _ := stitchGraph(t, f, map[string]any{
		graph.FieldIterations:   2,
		graph.FieldOutputFolder: "out",
	})

	var steps []string
	err := f.x.RegenerateStitch(context.Background(), stitch, StitchOptions{
		Sink:   f.svc,
		OnStep: func(id string, _ int) { steps = append(steps, id) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"generate_video", "generate_video", "stitch", "save_output",
		"generate_video", "generate_video", "stitch", "save_output",
	}, f.svc.Calls())
	assert.Len(t, steps, 6)
	assert.Equal(t, []string{
		"out/" + stitch + "-001=stitched[vid:a:1 vid:b:2]",
		"out/" + stitch + "-002=stitched[vid:a:3 vid:b:4]",
	}, f.svc.saved)
	assert.Equal(t, graph.StatusComplete, f.node(t, stitch).Status())
}

func TestRegenerateStitch_DefaultIterationsAndNoFolder(t *testing.T) {
	f := newFixture(t)
	stitch, _, _ := stitchGraph(t, f, nil)

	require.NoError(t, f.x.RegenerateStitch(context.Background(), stitch, StitchOptions{Sink: f.svc}))

	assert.Equal(t, []string{"generate_video", "generate_video", "stitch"}, f.svc.Calls())
	assert.Empty(t, f.svc.saved)
}

func TestRegenerateStitch_UpstreamFailureIsTolerated(t *testing.T) {
	f := newFixture(t)
	stitch, v1, v2 := stitchGraph(t, f, nil)
	// seed a stale output that must not leak into the stitch
	f.store.UpdateNodeData(v1, graph.Data{graph.FieldOutputVideo: "stale.mp4"})

	calls := 0
	reg := f.x.Registry()
	orig, _ := reg.Get(graph.TypeGenerateVideo)
	reg.Register(graph.TypeGenerateVideo, NewBehavior(orig.Validate, func(ctx context.Context, req Request) (graph.Data, error) {
		calls++
		if calls == 1 {
			return nil, serviceErr(req, "generate_video", errBoom)
		}
		return graph.Data{graph.FieldOutputVideo: "fresh.mp4"}, nil
	}))

	require.NoError(t, f.x.RegenerateStitch(context.Background(), stitch, StitchOptions{}))

	assert.Equal(t, graph.StatusError, f.node(t, v1).Status())
	assert.False(t, f.node(t, v1).Data.Has(graph.FieldOutputVideo))
	assert.Equal(t, graph.StatusComplete, f.node(t, v2).Status())
	assert.Equal(t, "stitched[fresh.mp4]", f.node(t, stitch).Data.String(graph.FieldOutputVideo))
}

func TestRegenerateStitch_StitchFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	stitch, _, _ := stitchGraph(t, f, map[string]any{graph.FieldIterations: 3})
	f.svc.errs["stitch"] = errBoom

	err := f.x.RegenerateStitch(context.Background(), stitch, StitchOptions{})

	assert.ErrorIs(t, err, ErrExternalService)
	assert.Equal(t, []string{"generate_video", "generate_video", "stitch"}, f.svc.Calls())
}

func TestRegenerateStitch_CancelStopsLoop(t *testing.T) {
	f := newFixture(t)
	stitch, v1, v2 := stitchGraph(t, f, map[string]any{graph.FieldIterations: 2})
	f.svc.block["generate_video"] = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.x.RegenerateStitch(ctx, stitch, StitchOptions{}) }()

	<-f.svc.started
	cancel()
	err := <-done

	assert.True(t, IsCancelled(err))
	assert.Equal(t, []string{"generate_video"}, f.svc.Calls())
	assert.Equal(t, graph.StatusIdle, f.node(t, v1).Status())
	assert.Equal(t, graph.StatusIdle, f.node(t, v2).Status())
	assert.Equal(t, graph.StatusIdle, f.node(t, stitch).Status())
}

func TestRegenerateStitch_NonStitchRunsNode(t *testing.T) {
	f := newFixture(t)
	id := f.add(graph.TypeGenerateImage, map[string]any{graph.FieldPrompt: "x"})

	require.NoError(t, f.x.RegenerateStitch(context.Background(), id, StitchOptions{}))
	assert.Equal(t, []string{"generate_image"}, f.svc.Calls())
}

func TestRegenerateStitch_DefaultFolder(t *testing.T) {
	f := newFixture(t)
	stitch, _, _ := stitchGraph(t, f, nil)

	require.NoError(t, f.x.RegenerateStitch(context.Background(), stitch, StitchOptions{Sink: f.svc, Folder: "renders"}))

	require.Len(t, f.svc.saved, 1)
	assert.Contains(t, f.svc.saved[0], "renders/"+stitch+"-001=")
}

func TestRegenerateStitch_NodeRemovedBeforeSave(t *testing.T) {
	f := newFixture(t)
	stitch, _, _ := stitchGraph(t, f, map[string]any{graph.FieldOutputFolder: "out"})
	f.x.Registry().Register(graph.TypeStitchVideos, NewBehavior(nil,
		func(context.Context, Request) (graph.Data, error) {
			f.store.RemoveNode(stitch)
			return graph.Data{graph.FieldOutputVideo: "stitched.mp4"}, nil
		}))

	err := f.x.RegenerateStitch(context.Background(), stitch, StitchOptions{Sink: f.svc})

	assert.ErrorIs(t, err, ErrNodeNotFound)
	assert.Empty(t, f.svc.saved)
}
