package executor

import (
	"context"
	"fmt"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/resolve"
)

// StitchOptions configures RegenerateStitch.
type StitchOptions struct {
	// Iterations is used when the node does not set its own count. Values
	// below 1 mean a single iteration.
	Iterations int
	// Sink receives each iteration's result when the node sets an output
	// folder. Nil skips persisting.
	Sink OutputSink
	// Folder is used when the node does not set its own output folder.
	Folder string
	// OnStep is called before each node runs. Optional.
	OnStep func(nodeID string, iteration int)
}

// RegenerateStitch regenerates a stitch node together with the video
// generation nodes feeding it.
//
// Each iteration clears the upstream video nodes' outputs so no stale frame
// leaks into the next attempt, re-runs them in edge order, stitches, and
// persists the result through the sink. Upstream failures are tolerated and
// logged; the stitch step itself and persisting are fail-fast. Cancellation
// stops immediately.
func (x *Executor) RegenerateStitch(ctx context.Context, nodeID string, opts StitchOptions) error {
	node, ok := x.store.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if node.Type != graph.TypeStitchVideos {
		return x.Execute(ctx, nodeID)
	}

	iterations := node.Data.Int(graph.FieldIterations, opts.Iterations)
	if iterations < 1 {
		iterations = 1
	}
	folder := resolve.Effective(node.Data.String(graph.FieldOutputFolder), opts.Folder)

	for i := 1; i <= iterations; i++ {
		for _, src := range x.videoSources(nodeID) {
			if err := ctx.Err(); err != nil {
				return cancelled(ctx, src, err)
			}
			if opts.OnStep != nil {
				opts.OnStep(src, i)
			}
			x.store.UpdateNodeData(src, graph.ClearedOutputs())
			if err := x.Execute(ctx, src); err != nil {
				if IsCancelled(err) {
					return err
				}
				x.logger.Warn("upstream video failed, continuing",
					"node_id", src,
					"stitch_node_id", nodeID,
					"iteration", i,
					"error", err.Error(),
				)
			}
		}

		if opts.OnStep != nil {
			opts.OnStep(nodeID, i)
		}
		if err := x.Execute(ctx, nodeID); err != nil {
			return err
		}

		if folder == "" || opts.Sink == nil {
			continue
		}
		stitched, ok := x.store.Node(nodeID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
		}
		uri := stitched.Data.String(graph.FieldOutputVideo)
		name := fmt.Sprintf("%s-%03d", nodeID, i)
		if err := opts.Sink.SaveOutput(ctx, folder, name, uri); err != nil {
			if IsCancelled(err) || ctx.Err() != nil {
				return cancelled(ctx, nodeID, err)
			}
			serr := &ServiceError{NodeID: nodeID, Op: "save_output", Err: err}
			x.fail(nodeID, serr)
			return serr
		}
	}
	return nil
}

// videoSources returns the distinct video generation nodes feeding nodeID
// on its video handle, in edge order.
func (x *Executor) videoSources(nodeID string) []string {
	var ids []string
	seen := map[string]bool{}
	for _, e := range x.store.Incoming(nodeID) {
		src, ok := x.store.Node(e.Source)
		if !ok || src.Type != graph.TypeGenerateVideo || seen[src.ID] {
			continue
		}
		if resolve.TargetHandle(e, src) != graph.HandleVideo {
			continue
		}
		seen[src.ID] = true
		ids = append(ids, src.ID)
	}
	return ids
}
