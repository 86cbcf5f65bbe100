package agent

import (
	"errors"
	"fmt"
)

// Error categories surfaced by a run. Callers branch with errors.Is; the
// wrapped cause stays reachable through errors.Unwrap.
var (
	// ErrConfiguration reports an unusable controller configuration.
	ErrConfiguration = errors.New("agent: configuration error")
	// ErrInput reports invalid caller-supplied input.
	ErrInput = errors.New("agent: input error")
	// ErrToolExecution reports a tool failure that aborted the run.
	ErrToolExecution = errors.New("agent: tool execution error")
	// ErrModel reports a model backend failure.
	ErrModel = errors.New("agent: model error")
	// ErrBudgetExceeded reports iteration budget exhaustion.
	ErrBudgetExceeded = errors.New("agent: iteration budget exceeded")
)

// BudgetExceededError is returned when the run consumed every iteration
// without the model signalling completion.
type BudgetExceededError struct {
	MaxIterations int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("agent: no completion after %d iterations", e.MaxIterations)
}

// Unwrap makes errors.Is(err, ErrBudgetExceeded) work.
func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func inputErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}
