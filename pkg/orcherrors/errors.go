// Package orcherrors defines the error taxonomy shared across the
// orchestration engine: sentinel errors callers can match with
// errors.Is, plus typed wrappers that carry the context needed to
// decide retry/abort/report behavior.
package orcherrors

import (
	"errors"
	"fmt"
)

var (
	// ErrEntityNotFound surfaces as a 404-equivalent; never retried.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidStateTransition is returned when a command is refused
	// because the target entity isn't in a state that permits it
	// (e.g. starting a non-draft campaign).
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrLineageViolation marks an attempt to break one of the three
	// variant lineage invariants. Fatal to the current stage.
	ErrLineageViolation = errors.New("lineage invariant violation")

	// ErrConcurrency marks an optimistic-lock conflict. Nothing in this
	// module retries it; it is surfaced to the caller as is.
	ErrConcurrency = errors.New("concurrency conflict")

	// ErrBudgetExceeded marks an evaluator call blocked by cost/latency
	// budget with no fallback configured. Persisted as a failed
	// evaluation; the round continues.
	ErrBudgetExceeded = errors.New("evaluation blocked by budget constraints")

	// ErrToolServerNotFound is orchestrator-fatal for the current stage.
	ErrToolServerNotFound = errors.New("tool server not found")

	// ErrToolNotFound is orchestrator-fatal for the current stage.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolExecutionError is logged to the tool access log and
	// bubbled to the calling agent, which decides per-tool whether to
	// fail the whole stage.
	ErrToolExecutionError = errors.New("tool execution error")

	// ErrCancelled is terminal and non-retriable.
	ErrCancelled = errors.New("operation cancelled")

	// ErrTimeout marks an evaluation as failed; the stage continues,
	// ranking treats the row as score 0.
	ErrTimeout = errors.New("operation timed out")
)

// LineageViolation carries the offending variant's intended lineage so
// the failing AgentDecision's reasoning can explain precisely what was
// rejected.
type LineageViolation struct {
	VariantParentID string
	Reason          string
}

func (e *LineageViolation) Error() string {
	return fmt.Sprintf("lineage violation: %s (parent_id=%s)", e.Reason, e.VariantParentID)
}

func (e *LineageViolation) Unwrap() error { return ErrLineageViolation }

// NewLineageViolation builds a LineageViolation wrapping ErrLineageViolation.
func NewLineageViolation(parentID, reason string) error {
	return &LineageViolation{VariantParentID: parentID, Reason: reason}
}

// BudgetExceeded carries the estimate that tripped the budget check.
type BudgetExceeded struct {
	EstimatedCostUSD   float64
	EstimatedLatencyMs float64
	MaxCostUSD         *float64
	MaxLatencyMs       *float64
}

func (e *BudgetExceeded) Error() string {
	return fmt.Sprintf("evaluation blocked by budget constraints: estimated cost=%.6f latency_ms=%.1f",
		e.EstimatedCostUSD, e.EstimatedLatencyMs)
}

func (e *BudgetExceeded) Unwrap() error { return ErrBudgetExceeded }

// ToolServerNotFound names the server/version lookup that failed.
type ToolServerNotFound struct {
	ServerName string
	Version    string
}

func (e *ToolServerNotFound) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("tool server not found: %s@%s", e.ServerName, e.Version)
	}
	return fmt.Sprintf("tool server not found: %s", e.ServerName)
}

func (e *ToolServerNotFound) Unwrap() error { return ErrToolServerNotFound }

// ToolNotFound carries the available tool list for the resolved server,
// per spec.md §4.2 step 3.
type ToolNotFound struct {
	ServerName    string
	ToolName      string
	AvailableTools []string
}

func (e *ToolNotFound) Error() string {
	return fmt.Sprintf("tool %q not found on server %q, available: %v", e.ToolName, e.ServerName, e.AvailableTools)
}

func (e *ToolNotFound) Unwrap() error { return ErrToolNotFound }

// ToolExecutionError wraps the underlying failure from a tool call.
type ToolExecutionError struct {
	ServerName string
	ToolName   string
	Cause      error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q on server %q failed: %v", e.ToolName, e.ServerName, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, ErrToolExecutionError) to match.
func (e *ToolExecutionError) Is(target error) bool { return target == ErrToolExecutionError }

// ConcurrencyConflict carries the entity whose optimistic-lock check failed.
type ConcurrencyConflict struct {
	Entity string
	ID     string
}

func (e *ConcurrencyConflict) Error() string {
	return fmt.Sprintf("concurrency conflict on %s %q", e.Entity, e.ID)
}

func (e *ConcurrencyConflict) Unwrap() error { return ErrConcurrency }

// EntityNotFound carries the entity kind and id for caller messaging.
type EntityNotFound struct {
	Entity string
	ID     string
}

func (e *EntityNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *EntityNotFound) Unwrap() error { return ErrEntityNotFound }

// NewEntityNotFound builds an EntityNotFound wrapping ErrEntityNotFound.
func NewEntityNotFound(entity, id string) error {
	return &EntityNotFound{Entity: entity, ID: id}
}

// InvalidStateTransition carries the entity, its current state and the
// attempted command.
type InvalidStateTransition struct {
	Entity  string
	ID      string
	From    string
	Command string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("%s %q: cannot %s from state %q", e.Entity, e.ID, e.Command, e.From)
}

func (e *InvalidStateTransition) Unwrap() error { return ErrInvalidStateTransition }

// NewInvalidStateTransition builds an InvalidStateTransition wrapping
// ErrInvalidStateTransition.
func NewInvalidStateTransition(entity, id, from, command string) error {
	return &InvalidStateTransition{Entity: entity, ID: id, From: from, Command: command}
}
