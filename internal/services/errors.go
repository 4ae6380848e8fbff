package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned before any store access.
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	// ErrStorageFault covers non-retryable store errors and conflicts that
	// outlived the retry budget.
	ErrStorageFault = errors.New("storage fault")
)

// storageFault marks err as a storage fault while keeping err itself
// matchable with errors.Is. pkg/errors wraps a single cause only, so the
// two-sentinel chain is built with fmt.Errorf.
func storageFault(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageFault, err)
}
