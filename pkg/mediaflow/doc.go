/*
Package mediaflow executes node graphs of media generation steps.

# Overview

A workflow is a directed graph of processing nodes (image, video and audio
generators, text transforms, video processing) wired port to port. The
Engine owns one workflow: it applies edits with undo/redo history, runs the
graph in dependency order, and publishes what happens on an event bus.

Subpackages hold the parts:
  - graph: the data model, the copy-on-write store and the workflow file format
  - resolve: input resolution across upstream nodes
  - schedule: dependency order and cycle detection
  - executor: node behaviors and the collaborator interfaces they call
  - history: bounded undo/redo stacks with grouping
  - event: the event bus
  - store: workflow persistence (memory and SQLite)
  - config: settings from YAML or JSON
  - observability: slog helpers, OpenTelemetry metrics and tracing

# Basic Usage

	engine, err := mediaflow.New(mediaflow.WithServices(executor.Services{
	    Images: myImageService,
	}))
	if err != nil {
	    log.Fatal(err)
	}
	defer engine.Close()

	prompt := engine.AddNode(graph.TypePrompt, graph.Position{}, map[string]any{
	    graph.FieldPrompt: "a lighthouse at dusk",
	})
	gen := engine.AddNode(graph.TypeGenerateImage, graph.Position{X: 300}, nil)
	engine.Connect(graph.EdgeSpec{Source: prompt.ID, Target: gen.ID, TargetHandle: graph.HandleText})

	res, err := engine.Run(ctx, "")

# Runs

Only one run or regeneration is active at a time. A call made while one is
active returns OutcomeBusy and does nothing. Nodes run one after another
on the caller's goroutine.

An edge flagged with pause stops the run before its target node; Resume
continues from that node. Stop cancels the run's context with ErrStopped:
the node in flight returns to idle and nothing after it runs.

A node failure is recorded on the node (status error plus message) and ends
the run with a *NodeError. A cycle ends the run before any node executes.
Nothing is retried automatically.

# History

Structural edits (adding and removing nodes and edges, toggling pause,
paste, load, clear, edge style) are undoable. BeginGroup and EndGroup
collapse a burst of edits into one step. Undo, Redo and grouping do nothing
while a run is active.

# Persistence

With a repository configured, every successful run autosaves the open
workflow. OpenWorkflow switches workflows and RestoreCurrent reopens the
last one at startup.
*/
package mediaflow
