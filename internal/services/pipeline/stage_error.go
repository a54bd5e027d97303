package pipeline

import (
	"fmt"

	"github.com/ternarybob/corpora/internal/models"
)

// StageError identifies which pipeline stage aborted processing. The
// wrapped error is what was persisted to the document record.
type StageError struct {
	Stage models.ProcessingStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
