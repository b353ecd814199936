// Package executor holds the node executor registry and the collaborator
// contracts node behaviors call.
//
// Each executable node type has a Behavior registered in a Registry. An
// Executor runs one node at a time: it resolves the node's inputs, applies
// the connected-else-stored fallback, validates, records the inputs and the
// loading status on the node, invokes the behavior and records the outcome.
//
// # Failure Policy
//
// Validation failures (*MissingInputError) and collaborator failures
// (*ServiceError) set the node's status to error and are returned so the
// caller can halt its run. Cancellation resets the node to idle and returns
// a *CancelledError; use IsCancelled to tell the two apart.
//
// RegenerateStitch is the one fail-soft path: upstream video generations
// that fail are logged and skipped while their siblings continue.
//
// # Collaborators
//
// Concrete AI and media services are reached through the interfaces in
// Services. Every call receives the run's context.
package executor
