package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RunError
		want string
	}{
		{
			name: "code and message",
			err:  &RunError{Code: ErrCodeAdapterSetup, Message: "setup failed"},
			want: "ADAPTER_SETUP: setup failed",
		},
		{
			name: "with run id",
			err:  &RunError{Code: ErrCodeStorageIO, Message: "flush failed", RunID: "run-1"},
			want: "STORAGE_IO: flush failed (run=run-1)",
		},
		{
			name: "with cause",
			err:  &RunError{Code: ErrCodeStorageIO, Message: "commit", RunID: "r", Err: errors.New("disk full")},
			want: "STORAGE_IO: commit (run=r): disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestRunError_Predicates(t *testing.T) {
	setup := fmt.Errorf("run: %w", newRunError(ErrCodeAdapterSetup, "", "boom", nil))
	storage := newRunError(ErrCodeStorageIO, "r", "flush", errors.New("disk full"))
	interrupted := newRunError(ErrCodeInterrupted, "r", "cancelled", context.Canceled)

	assert.True(t, IsSetupError(setup), "wrapped setup error")
	assert.False(t, IsSetupError(storage))

	assert.True(t, IsStorageError(storage))
	assert.False(t, IsStorageError(setup))

	assert.True(t, IsInterrupted(interrupted))
	assert.True(t, IsInterrupted(context.Canceled))
	assert.False(t, IsInterrupted(storage))
	assert.False(t, IsInterrupted(nil))
}
