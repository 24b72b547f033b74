package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// CheckConsistency sums every debit and every credit.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	defer r.store.rlock(ctx)()

	debits, credits := sumEntries(r.store.entries)
	return debits, credits, nil
}

// SumBalances sums current and opening balances over all accounts.
func (r *LedgerRepository) SumBalances(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	defer r.store.rlock(ctx)()

	balances, opening := decimal.Zero, decimal.Zero
	for _, acc := range r.store.accounts {
		balances = balances.Add(acc.Balance)
		opening = opening.Add(acc.OpeningBalance)
	}
	return balances, opening, nil
}

// AccountTotals sums one account's debits and credits.
func (r *LedgerRepository) AccountTotals(ctx context.Context, accountID int64) (decimal.Decimal, decimal.Decimal, error) {
	defer r.store.rlock(ctx)()

	debits, credits := sumEntries(r.store.byAccount[accountID])
	return debits, credits, nil
}

func sumEntries(entries []*domain.Entry) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, e := range entries {
		if e.Kind == domain.EntryKindDebit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	return debits, credits
}
