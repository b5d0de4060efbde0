package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionFailure marks a lower-layer fault that aborted a mutation
	ErrTransactionFailure = errors.New("transaction failed")
	// ErrInvalidRange means a session would have been stored with end <= start.
	// The materializer corrects bad explicit dates, so this only surfaces when
	// a session type has a non-positive duration.
	ErrInvalidRange = errors.New("session end must be after start")
)

// TransactionError wraps the fault that rolled back a mutation
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s member: %v: %v", e.Op, ErrTransactionFailure, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransactionFailure) hold for every TransactionError
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailure
}
