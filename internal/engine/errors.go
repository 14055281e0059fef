package engine

import (
	"errors"
	"fmt"

	"github.com/vttkit/sheetsync/internal/store"
)

var (
	// ErrPendingTimeout reports that an optimistic mutation received no
	// confirmation before its deadline and was rolled back.
	ErrPendingTimeout = errors.New("no confirmation received before deadline")

	// ErrNothingToRetry reports that Retry was called for an entity with no
	// failed mutation on record.
	ErrNothingToRetry = errors.New("no failed mutation to retry")

	// ErrMalformedResult reports a success response that carried no usable
	// body; the operation is rolled back like a rejection.
	ErrMalformedResult = errors.New("result carried no body")
)

// errEntityNotFound wraps the store sentinel with the offending id so
// callers can match with errors.Is while logs stay useful.
func errEntityNotFound(id string) error {
	return fmt.Errorf("%w (entity_id=%s)", store.ErrEntityNotFound, id)
}
