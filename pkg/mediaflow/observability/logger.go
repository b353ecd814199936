// Package observability provides the structured logging, metrics and tracing
// helpers used by the mediaflow engine.
//
// Logging goes through slog. Metrics and tracing go through OpenTelemetry
// and pick up whatever global providers the host application installs.
// Every feature has a no-op implementation for when it is disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger.
// Returns a new logger with run_id, node_id, and node_type fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "generateImage-4", "generateImage")
//	enriched.Info("calling service") // includes run_id, node_id, node_type
func EnrichLogger(logger *slog.Logger, runID, nodeID, nodeType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.String("node_type", nodeType),
	)
}

// LogRunStart logs the start of a run.
func LogRunStart(logger *slog.Logger, runID, mode, startNode string, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("run starting",
		slog.String("run_id", runID),
		slog.String("mode", mode),
		slog.String("start_node", startNode),
		slog.Int("nodes", nodeCount),
	)
}

// LogRunComplete logs a run that executed every remaining node.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunPaused logs a run that stopped at a pause edge.
func LogRunPaused(logger *slog.Logger, runID, nodeID string) {
	if logger == nil {
		return
	}
	logger.Info("run paused",
		slog.String("run_id", runID),
		slog.String("paused_at", nodeID),
	)
}

// LogRunStopped logs a run cancelled by the user.
func LogRunStopped(logger *slog.Logger, runID, nodeID string) {
	if logger == nil {
		return
	}
	logger.Info("run stopped",
		slog.String("run_id", runID),
		slog.String("last_node", nodeID),
	)
}

// LogRunError logs run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution failure.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogNodeCancelled logs a node interrupted by cancellation.
func LogNodeCancelled(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Info("node cancelled",
		slog.String("node_id", nodeID),
	)
}

// LogAutosave logs a successful workflow autosave.
func LogAutosave(logger *slog.Logger, workflowID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("workflow autosaved",
		slog.String("workflow_id", workflowID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogAutosaveError logs autosave failure. Autosave failures never fail a run.
func LogAutosaveError(logger *slog.Logger, workflowID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("workflow autosave failed",
		slog.String("workflow_id", workflowID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation returns a function that reports elapsed milliseconds.
//
// Example:
//
//	elapsed := TimedOperation()
//	doWork()
//	LogNodeComplete(logger, nodeID, elapsed())
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000.0
	}
}
