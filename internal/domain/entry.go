package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is the side of a money movement an entry records.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// Entry is one immutable side of a transfer. Amount is always a positive
// magnitude; Kind carries the direction.
type Entry struct {
	CreatedAt              time.Time
	ID                     int64
	TransferID             string
	AccountID              int64
	RIB                    string
	Kind                   EntryKind
	Amount                 decimal.Decimal
	ActingUserID           string
	AccountPreviousBalance decimal.Decimal
	AccountCurrentBalance  decimal.Decimal
}

// SignedAmount returns the amount as a balance delta.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Kind == EntryKindDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Clone returns a copy safe to hand out of a store.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// EntryPage is one page of an account's most recent entries.
type EntryPage struct {
	Entries    []*Entry
	PageIndex  int
	PageSize   int
	TotalCount int64
}

// TotalPages returns the number of pages of PageSize covering TotalCount.
func (p EntryPage) TotalPages() int {
	return TotalPages(p.TotalCount, p.PageSize)
}
