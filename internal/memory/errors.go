package memory

import (
	"errors"
	"fmt"

	"github.com/rcliao/hye-memory/internal/store"
)

// IndexingError reports a record that was persisted but could not be
// vector-indexed and could not be rolled back. The record stays un-indexed
// until Reindex succeeds.
type IndexingError struct {
	RecordID string
	Err      error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("record %s persisted but not indexed: %v", e.RecordID, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
