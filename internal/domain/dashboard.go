package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DescribedEntry is a ledger entry with its human-readable label.
type DescribedEntry struct {
	*Entry

	Counterparty    string
	CounterpartyRIB string
	Description     string
}

// Describe builds the label shown for an entry given the counterparty name.
func Describe(kind EntryKind, counterparty string) string {
	if kind == EntryKindCredit {
		return fmt.Sprintf("received from %s", counterparty)
	}
	return fmt.Sprintf("sent to %s", counterparty)
}

// AccountSummary is the short form of a sibling account.
type AccountSummary struct {
	RIB     string
	Balance decimal.Decimal
	Status  AccountStatus
}

// DashboardView is the read-only projection of one customer's selected account.
type DashboardView struct {
	CustomerID        string
	RIB               string
	Balance           decimal.Decimal
	Entries           []DescribedEntry
	Accounts          []AccountSummary
	CurrentPage       int
	TotalPages        int
	TotalTransactions int64
}
