package domain

import (
	"github.com/shopspring/decimal"
)

// TransferSide names one side of a transfer.
type TransferSide string

const (
	SideSource      TransferSide = "source"
	SideDestination TransferSide = "destination"
)

// TransferIntent is a request to move Amount from FromRIB to ToRIB on behalf
// of ActingUsername. It is never persisted.
type TransferIntent struct {
	FromRIB        string
	ToRIB          string
	Amount         decimal.Decimal
	ActingUsername string
}

// Normalize canonicalises both ribs in place.
func (t *TransferIntent) Normalize() {
	t.FromRIB = CanonicalRIB(t.FromRIB)
	t.ToRIB = CanonicalRIB(t.ToRIB)
}

// Validate checks the input-only preconditions: a positive amount and two
// distinct accounts.
func (t *TransferIntent) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}

	if t.FromRIB == t.ToRIB {
		return ErrSelfTransfer
	}

	return nil
}

// TransferResult is what a committed transfer produced.
type TransferResult struct {
	TransferID string
	Debit      *Entry
	Credit     *Entry
	From       *Account
	To         *Account
}

// LockOrder returns the ribs in the order their row locks must be taken:
// ascending canonical RIB. Every path that locks two accounts goes through it.
func LockOrder(a, b string) []string {
	if a == b {
		return []string{a}
	}
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}
