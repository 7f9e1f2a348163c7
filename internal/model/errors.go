package model

import (
	"fmt"
	"time"
)

// ValidationError reports bad input amounts or identifiers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown wallet, transaction or config.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// IllegalTransitionError reports a state machine violation, identifying
// the source/target pair that was attempted.
type IllegalTransitionError struct {
	From TransactionStatus
	To   TransactionStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transaction transition: %s -> %s", e.From, e.To)
}

// ExternalServiceError wraps a failure of the rate oracle or a chain
// explorer. Callers treat it as retryable.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// ExpiredError reports an operation attempted on an already-expired
// transaction.
type ExpiredError struct {
	InvoiceID string
	ExpiredAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("invoice %s expired at %s", e.InvoiceID, e.ExpiredAt.Format(time.RFC3339))
}
