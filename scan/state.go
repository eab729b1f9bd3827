package scan

import (
	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/storage"
)

// CursorState tracks one partition scan's progress through the
// incomplete/complete query protocol.
type CursorState int

const (
	StateUninitialized CursorState = iota
	StateRunning
	StateIncompleteEmpty
	StateIncompleteWithData
	StateCompleted
)

func (s CursorState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateRunning:
		return "RUNNING"
	case StateIncompleteEmpty:
		return "INCOMPLETE_EMPTY"
	case StateIncompleteWithData:
		return "INCOMPLETE_WITH_DATA"
	case StateCompleted:
		return "COMPLETED"
	}
	return "UNKNOWN"
}

type stepAction int

const (
	// actionEmit hands the current whole records back as a batch.
	actionEmit stepAction = iota
	// actionGrow doubles the buffers and resubmits.
	actionGrow
	// actionFail aborts the partition.
	actionFail
)

// nextCursorState is the pure transition function of the scan loop: given
// the engine status, the whole-record count of the submission and the
// reallocation gates, it decides the next state and what to do about it.
// Keeping it free of I/O lets the decision logic be tested without an
// engine.
func nextCursorState(status storage.Status, wholeRecords int64, reallocAllowed bool, memoryOK bool) (CursorState, stepAction, error) {
	switch status {
	case storage.StatusCompleted:
		return StateCompleted, actionEmit, nil
	case storage.StatusIncomplete:
		if wholeRecords > 0 {
			return StateIncompleteWithData, actionEmit, nil
		}
		// Zero whole records with an incomplete status means the buffers
		// cannot hold even one record: growing is a hard requirement, not an
		// optimization.
		if !reallocAllowed {
			return StateIncompleteEmpty, actionFail, errors.NewBufferExhaustionError(
				"incomplete query returned no records and buffer reallocation is disabled")
		}
		if !memoryOK {
			return StateIncompleteEmpty, actionFail, errors.NewBufferExhaustionError(
				"not enough free memory to double the read buffers")
		}
		return StateIncompleteEmpty, actionGrow, nil
	default:
		return StateUninitialized, actionFail, errors.NewStorageError(
			"query submission reported status " + status.String())
	}
}
