package stage

import (
	"errors"
	"fmt"

	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// errMissingUpstream marks an input row that does not exist.
var errMissingUpstream = errors.New("upstream resource not found")

// StageError is returned when a stage attempt fails. The failed Job, the dead
// letter and the URL failure status have already been committed when it is returned.
type StageError struct {
	Stage        models.Stage
	ResourceType models.ResourceType
	ResourceID   int64
	URLID        int64
	Reason       string
	Err          error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for %s %d: %v", e.Stage, e.ResourceType, e.ResourceID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Reason codes written to the dead letter queue.
func reasonException(s models.Stage) string { return string(s) + "_exception" }
func reasonTimeout(s models.Stage) string   { return string(s) + "_timeout" }
