package scan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridscan/gridscan/errors"
	"github.com/gridscan/gridscan/storage"
)

func TestNextCursorState(t *testing.T) {
	tests := []struct {
		name           string
		status         storage.Status
		wholeRecords   int64
		reallocAllowed bool
		memoryOK       bool
		state          CursorState
		action         stepAction
		errCode        errors.ErrorCode
		wantErr        bool
	}{
		{
			name:   "completed emits",
			status: storage.StatusCompleted, wholeRecords: 10, reallocAllowed: true, memoryOK: true,
			state: StateCompleted, action: actionEmit,
		},
		{
			name:   "completed with no records still emits",
			status: storage.StatusCompleted, wholeRecords: 0, reallocAllowed: false, memoryOK: false,
			state: StateCompleted, action: actionEmit,
		},
		{
			name:   "incomplete with records emits",
			status: storage.StatusIncomplete, wholeRecords: 5, reallocAllowed: false, memoryOK: false,
			state: StateIncompleteWithData, action: actionEmit,
		},
		{
			name:   "incomplete empty grows",
			status: storage.StatusIncomplete, wholeRecords: 0, reallocAllowed: true, memoryOK: true,
			state: StateIncompleteEmpty, action: actionGrow,
		},
		{
			name:   "incomplete empty fails when realloc disabled",
			status: storage.StatusIncomplete, wholeRecords: 0, reallocAllowed: false, memoryOK: true,
			state: StateIncompleteEmpty, action: actionFail, wantErr: true, errCode: errors.BufferExhaustion,
		},
		{
			name:   "incomplete empty fails when memory low",
			status: storage.StatusIncomplete, wholeRecords: 0, reallocAllowed: true, memoryOK: false,
			state: StateIncompleteEmpty, action: actionFail, wantErr: true, errCode: errors.BufferExhaustion,
		},
		{
			name:   "unexpected status fails",
			status: storage.StatusUninitialized, wholeRecords: 0, reallocAllowed: true, memoryOK: true,
			state: StateUninitialized, action: actionFail, wantErr: true, errCode: errors.StorageError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, action, err := nextCursorState(tt.status, tt.wholeRecords, tt.reallocAllowed, tt.memoryOK)
			require.Equal(t, tt.state, state)
			require.Equal(t, tt.action, action)
			if tt.wantErr {
				require.Error(t, err)
				require.True(t, errors.HasCode(err, tt.errCode))
			} else {
				require.NoError(t, err)
			}
		})
	}
}
