package analysis

import (
	"errors"
	"fmt"
)

// ErrInsufficientHistory is returned when a reflection is requested but no
// daily records exist in the window. Callers should treat it as "not enough
// data yet" and run daily analyses first.
var ErrInsufficientHistory = errors.New("analysis: no archived records in period")

// PipelineError tags a stage failure with the stage that produced it.
// The run is aborted and nothing is persisted.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
