package history

import (
	"fmt"

	"github.com/ppiankov/bsdetector/internal/model"
)

// Result carries a value together with an optional remote sync failure.
// A non-nil SyncErr never invalidates Value; callers decide how to surface it.
type Result[T any] struct {
	Value   T
	SyncErr error
}

// Synced reports whether the remote side (if any) was reached without error
func (r Result[T]) Synced() bool {
	return r.SyncErr == nil
}

// SyncError is a failed read, write or clear against the remote store
type SyncError struct {
	Op   string
	Type model.HistoryType
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("history sync failed (%s %s): %v", e.Op, e.Type, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
