package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusOpened  AccountStatus = "OPENED"
	AccountStatusBlocked AccountStatus = "BLOCKED"
	AccountStatusClosed  AccountStatus = "CLOSED"
)

var statusTransitions = map[AccountStatus][]AccountStatus{
	AccountStatusOpened:  {AccountStatusBlocked, AccountStatusClosed},
	AccountStatusBlocked: {AccountStatusOpened, AccountStatusClosed},
	AccountStatusClosed:  nil,
}

// ParseAccountStatus parses a status name.
func ParseAccountStatus(s string) (AccountStatus, error) {
	status := AccountStatus(s)
	if _, ok := statusTransitions[status]; !ok {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// CanTransitionTo reports whether an administrative change from s to next is
// allowed. CLOSED is terminal.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Account represents a customer bank account identified by its RIB.
type Account struct {
	ID             int64
	RIB            string
	OwnerID        string
	Balance        decimal.Decimal
	OpeningBalance decimal.Decimal
	Status         AccountStatus
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CheckAvailable returns an AccountUnavailableError unless the account is OPENED.
func (a *Account) CheckAvailable(side TransferSide) error {
	if a.Status != AccountStatusOpened {
		return &AccountUnavailableError{Side: side, RIB: a.RIB, Status: a.Status}
	}
	return nil
}

// ValidateDebit checks the account holds at least amount. No overdraft.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// Clone returns a copy safe to hand out of a store.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
