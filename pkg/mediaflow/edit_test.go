package mediaflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

func TestEdit_UndoRedoStructuralEdits(t *testing.T) {
	e := newEngine(t, newImageService())
	assert.False(t, e.CanUndo())

	a := e.AddNode(graph.TypePrompt, graph.Position{}, nil)
	b := e.AddNode(graph.TypeGenerateImage, graph.Position{}, nil)
	_, ok := e.Connect(graph.EdgeSpec{Source: a.ID, Target: b.ID, TargetHandle: graph.HandleText})
	require.True(t, ok)
	require.Len(t, e.Edges(), 1)

	require.True(t, e.Undo())
	assert.Empty(t, e.Edges())
	assert.Len(t, e.Nodes(), 2)

	require.True(t, e.Undo())
	require.True(t, e.Undo())
	assert.Empty(t, e.Nodes())
	assert.False(t, e.Undo())
	assert.True(t, e.CanRedo())

	require.True(t, e.Redo())
	require.True(t, e.Redo())
	require.True(t, e.Redo())
	assert.Len(t, e.Nodes(), 2)
	assert.Len(t, e.Edges(), 1)
	assert.False(t, e.Redo())
}

func TestEdit_RejectedEditsAreNotRecorded(t *testing.T) {
	e := newEngine(t, newImageService())
	a := e.AddNode(graph.TypePrompt, graph.Position{}, nil)

	_, ok := e.Connect(graph.EdgeSpec{Source: a.ID, Target: a.ID})
	assert.False(t, ok)
	assert.False(t, e.RemoveNode("ghost-1"))
	assert.False(t, e.RemoveEdge("ghost"))
	assert.False(t, e.SetEdgeStyle(e.EdgeStyle()))

	require.True(t, e.Undo())
	assert.Empty(t, e.Nodes())
	assert.False(t, e.CanUndo(), "only the add was recorded")
}

func TestEdit_DataUpdatesAndMovesAreNotRecorded(t *testing.T) {
	e := newEngine(t, newImageService())
	a := e.AddNode(graph.TypePrompt, graph.Position{}, nil)

	require.True(t, e.UpdateNodeData(a.ID, graph.Data{graph.FieldPrompt: "cat"}))
	require.True(t, e.MoveNode(a.ID, graph.Position{X: 5}))

	require.True(t, e.Undo())
	assert.Empty(t, e.Nodes())
	assert.False(t, e.CanUndo())
}

func TestEdit_GroupIsOneUndoStep(t *testing.T) {
	e := newEngine(t, newImageService())
	seed := e.AddNode(graph.TypePrompt, graph.Position{}, nil)

	e.BeginGroup()
	a := e.AddNode(graph.TypeGenerateImage, graph.Position{}, nil)
	e.BeginGroup()
	e.Connect(graph.EdgeSpec{Source: seed.ID, Target: a.ID})
	e.EndGroup()
	e.SetEdgeStyle(graph.EdgeStyleStraight)
	e.EndGroup()

	require.True(t, e.Undo())
	assert.Len(t, e.Nodes(), 1)
	assert.Empty(t, e.Edges())
	assert.Equal(t, graph.EdgeStyleBezier, e.EdgeStyle())

	require.True(t, e.Undo())
	assert.Empty(t, e.Nodes())
}

func TestEdit_PasteIsOneStep(t *testing.T) {
	e := newEngine(t, newImageService())
	a := e.AddNode(graph.TypePrompt, graph.Position{X: 10, Y: 10}, map[string]any{graph.FieldPrompt: "cat"})
	b := e.AddNode(graph.TypeGenerateImage, graph.Position{}, nil)
	e.Connect(graph.EdgeSpec{Source: a.ID, Target: b.ID, TargetHandle: graph.HandleText})

	e.Copy([]string{a.ID, b.ID})
	pasted := e.Paste()
	require.Len(t, pasted, 2)
	assert.Equal(t, graph.Position{X: 60, Y: 60}, pasted[0].Position)
	assert.Len(t, e.Nodes(), 4)
	assert.Len(t, e.Edges(), 2)

	require.True(t, e.Undo())
	assert.Len(t, e.Nodes(), 2)
	assert.Len(t, e.Edges(), 1)
}

func TestEdit_RemoveNodesIsOneStep(t *testing.T) {
	e := newEngine(t, newImageService())
	p := buildPipeline(t, e, "cat")

	assert.Equal(t, 2, e.RemoveNodes([]string{p.gen, p.out, "ghost-1"}))
	assert.Len(t, e.Nodes(), 1)
	assert.Empty(t, e.Edges())

	require.True(t, e.Undo())
	assert.Len(t, e.Nodes(), 3)
	assert.Len(t, e.Edges(), 2)
}

func TestEdit_ClearAndLoadAreUndoable(t *testing.T) {
	e := newEngine(t, newImageService())
	buildPipeline(t, e, "cat")

	require.True(t, e.Clear())
	assert.Empty(t, e.Nodes())
	require.True(t, e.Undo())
	assert.Len(t, e.Nodes(), 3)

	e.Load(&graph.Workflow{
		ID:   "wf-9",
		Name: "loaded",
		Nodes: []*graph.Node{
			{ID: "prompt-40", Type: graph.TypePrompt, Data: graph.NewData(nil)},
		},
	})
	assert.Len(t, e.Nodes(), 1)
	assert.Equal(t, "wf-9", e.WorkflowID())
	assert.Equal(t, "loaded", e.WorkflowName())
	assert.Equal(t, "prompt-41", e.AddNode(graph.TypePrompt, graph.Position{}, nil).ID)

	require.True(t, e.Undo())
	require.True(t, e.Undo())
	assert.Len(t, e.Nodes(), 3)
}

func TestEdit_HistoryGatedWhileRunning(t *testing.T) {
	images := newImageService()
	e := newEngine(t, images)
	p := buildPipeline(t, e, "cat")
	release := images.block()
	defer release()

	done := runAsync(e, context.Background(), "")
	<-images.started

	assert.False(t, e.CanUndo())
	assert.False(t, e.Undo())
	before := e.Snapshot()
	name := e.WorkflowName()

	assert.Nil(t, e.AddNode(graph.TypeNote, graph.Position{}, nil))
	assert.False(t, e.RemoveNode(p.out))
	assert.False(t, e.ToggleEdgePause(p.outEdge))
	assert.False(t, e.SetEdgeStyle(graph.EdgeStyleStep))
	assert.False(t, e.Clear())
	assert.False(t, e.Load(&graph.Workflow{Name: "other"}))
	assert.ErrorIs(t, e.Import([]byte(`{"version":1,"name":"x","nodes":[],"edges":[]}`)), mediaflow.ErrRunning)
	e.BeginGroup()
	e.EndGroup()

	assert.Len(t, e.Nodes(), len(before.Nodes))
	assert.Len(t, e.Edges(), len(before.Edges))
	assert.Equal(t, name, e.WorkflowName())

	release()
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, mediaflow.OutcomeCompleted, r.res.Outcome)

	steps := 0
	for e.Undo() {
		steps++
	}
	assert.Equal(t, 5, steps, "only the edits that built the pipeline are recorded")
}

func TestEdit_GroupEndedDuringRunIsClosed(t *testing.T) {
	images := newImageService()
	e := newEngine(t, images)
	buildPipeline(t, e, "cat")
	release := images.block()
	defer release()

	e.BeginGroup()
	done := runAsync(e, context.Background(), "")
	<-images.started
	e.EndGroup()
	release()
	require.NoError(t, (<-done).err)

	e.AddNode(graph.TypeNote, graph.Position{}, nil)
	e.AddNode(graph.TypeNote, graph.Position{}, nil)
	require.Len(t, e.Nodes(), 5)

	require.True(t, e.Undo())
	assert.Len(t, e.Nodes(), 4, "each later edit is its own step")
	require.True(t, e.Undo())
	assert.Len(t, e.Nodes(), 3)
	assert.Len(t, e.Edges(), 2)
}

func TestEdit_UndoResetsExecutionState(t *testing.T) {
	e := newEngine(t, newImageService())
	p := buildPipeline(t, e, "cat")
	require.True(t, e.ToggleEdgePause(p.outEdge))

	res, err := e.Run(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, mediaflow.OutcomePaused, res.Outcome)

	require.True(t, e.Undo())
	assert.Equal(t, mediaflow.ExecutionState{}, e.ExecutionState())
	_, err = e.Resume(context.Background())
	assert.ErrorIs(t, err, mediaflow.ErrNotPaused)
}

func TestEdit_ImportExport(t *testing.T) {
	e := newEngine(t, newImageService())
	buildPipeline(t, e, "cat")
	e.Rename("demo")

	data, err := e.Export()
	require.NoError(t, err)

	other := newEngine(t, newImageService())
	require.NoError(t, other.Import(data))
	assert.Len(t, other.Nodes(), 3)
	assert.Len(t, other.Edges(), 2)
	assert.Equal(t, "demo", other.WorkflowName())
	assert.Equal(t, e.WorkflowID(), other.WorkflowID())
	assert.True(t, other.CanUndo())

	assert.ErrorIs(t, other.Import([]byte(`{"version": 7}`)), graph.ErrInvalidWorkflow)
}
