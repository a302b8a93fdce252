package pipeline

import (
	"errors"
	"fmt"

	"github.com/chazu/meshbool/pkg/engine"
	"github.com/chazu/meshbool/pkg/heal"
	"github.com/chazu/meshbool/pkg/meshio"
)

var (
	// ErrInputNotFound is returned when an input mesh path does not exist.
	ErrInputNotFound = meshio.ErrNotFound
	// ErrInputUnreadable is returned when an input mesh cannot be parsed.
	ErrInputUnreadable = meshio.ErrUnreadable
	// ErrExportFailure is returned when the result cannot be written.
	ErrExportFailure = meshio.ErrWrite

	// ErrHealingFailed is logged, never returned: the unrepaired mesh is used.
	ErrHealingFailed = heal.ErrHealingFailed

	ErrEngineFailure       = engine.ErrEngineFailure
	ErrEngineEmpty         = engine.ErrEngineEmpty
	ErrAllEnginesExhausted = engine.ErrAllEnginesExhausted

	// ErrEmptyFinalResult is returned when the run completed but produced
	// no geometry.
	ErrEmptyFinalResult = errors.New("final result is empty")
	// ErrThinStageFailed is returned when the offset intersection of a thin
	// intersection yields nothing.
	ErrThinStageFailed = errors.New("thin intersection offset stage failed")
	// ErrInvalidRequest is returned for a malformed Request.
	ErrInvalidRequest = errors.New("invalid request")
)

// StageError records the stage at which a run aborted.
type StageError struct {
	Stage Stage
	Op    Op
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s aborted at %s: %v", e.Op, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
