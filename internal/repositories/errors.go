package repositories

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrClubNotFound       = errors.New("club not found")
	ErrUniversityNotFound = errors.New("university not found")
	ErrDuplicateSlug      = errors.New("slug already taken")

	// ErrTransientConflict marks a write conflict that is expected to
	// succeed when the whole transaction is run again.
	ErrTransientConflict = errors.New("transient write conflict")
)

const (
	labelTransientTransaction = "TransientTransactionError"
	labelUnknownCommitResult  = "UnknownTransactionCommitResult"
	codeWriteConflict         = 112
)

// classifyTxnError tags retryable transaction failures with
// ErrTransientConflict while keeping the driver error in the chain.
//
// A duplicate key on the edge insert means a concurrent toggle of the same
// pair committed first; re-running the toggle observes that edge.
func classifyTxnError(err error) error {
	if err == nil || errors.Is(err, ErrClubNotFound) {
		return err
	}
	if isTransient(err) || mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", ErrTransientConflict, err)
	}
	return err
}

func isTransient(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel(labelTransientTransaction) || se.HasErrorCode(codeWriteConflict)
	}
	var le mongo.LabeledError
	if errors.As(err, &le) {
		return le.HasErrorLabel(labelTransientTransaction)
	}
	return false
}

func isUnknownCommitResult(err error) bool {
	var le mongo.LabeledError
	return errors.As(err, &le) && le.HasErrorLabel(labelUnknownCommitResult)
}
