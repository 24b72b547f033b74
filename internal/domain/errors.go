package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every specific error below wraps exactly one of these so
// callers can classify with errors.Is.
var (
	ErrValidation     = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrBusinessRule   = errors.New("business rule violation")
	ErrInfrastructure = errors.New("infrastructure failure")
)

var (
	// Validation errors
	ErrRIBFormat        = fmt.Errorf("%w: rib must contain only digits", ErrValidation)
	ErrRIBLength        = fmt.Errorf("%w: rib must contain exactly %d digits", ErrValidation, RIBLength)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidPage      = fmt.Errorf("%w: page index out of range", ErrValidation)
	ErrInvalidDateRange = fmt.Errorf("%w: from date is after to date", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: unknown account status", ErrValidation)
	ErrUsernameRequired = fmt.Errorf("%w: username is required", ErrValidation)

	// Not found errors
	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrSourceNotFound      = fmt.Errorf("source %w", ErrAccountNotFound)
	ErrDestinationNotFound = fmt.Errorf("destination %w", ErrAccountNotFound)
	ErrUnknownUser         = fmt.Errorf("user %w", ErrNotFound)
	ErrCustomerNotFound    = fmt.Errorf("customer %w", ErrNotFound)
	ErrNoAccounts          = fmt.Errorf("customer accounts %w", ErrNotFound)
	ErrTransferNotFound    = fmt.Errorf("transfer %w", ErrNotFound)

	// Conflict errors
	ErrDuplicateRIB      = fmt.Errorf("%w: an account with this rib already exists", ErrConflict)
	ErrDuplicateIdentity = fmt.Errorf("%w: identity already registered", ErrConflict)

	// Business rule errors
	ErrSelfTransfer            = fmt.Errorf("%w: cannot transfer to the same account", ErrBusinessRule)
	ErrSourceUnavailable       = fmt.Errorf("%w: source account is blocked or closed", ErrBusinessRule)
	ErrDestinationUnavailable  = fmt.Errorf("%w: destination account is blocked or closed", ErrBusinessRule)
	ErrInsufficientFunds       = fmt.Errorf("%w: insufficient funds", ErrBusinessRule)
	ErrAccountOwnership        = fmt.Errorf("%w: account does not belong to this customer", ErrBusinessRule)
	ErrInvalidStatusTransition = fmt.Errorf("%w: account status transition not allowed", ErrBusinessRule)
)

// RIBLengthError reports a rib with the wrong number of digits.
type RIBLengthError struct {
	Length int
}

func (e *RIBLengthError) Error() string {
	return fmt.Sprintf("%s (got %d)", ErrRIBLength.Error(), e.Length)
}

func (e *RIBLengthError) Unwrap() error {
	return ErrRIBLength
}

// AccountUnavailableError reports a transfer side whose account is not OPENED.
type AccountUnavailableError struct {
	Side   TransferSide
	RIB    string
	Status AccountStatus
}

func (e *AccountUnavailableError) Error() string {
	return fmt.Sprintf("%s account %s is %s", e.Side, e.RIB, e.Status)
}

func (e *AccountUnavailableError) Unwrap() error {
	if e.Side == SideSource {
		return ErrSourceUnavailable
	}
	return ErrDestinationUnavailable
}

// InfrastructureError wraps a storage or commit fault. No partial effect
// survives it, so the caller may retry.
type InfrastructureError struct {
	Op  string
	Err error
}

// NewInfrastructureError wraps err, leaving domain errors untouched.
func NewInfrastructureError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInfrastructure.Error(), e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() []error {
	return []error{ErrInfrastructure, e.Err}
}

// IsRetryable reports whether err belongs to the only class a caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrBusinessRule) ||
		errors.Is(err, ErrInfrastructure)
}
