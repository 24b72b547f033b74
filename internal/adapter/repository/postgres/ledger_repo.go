package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	sumEntriesByKind = `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'DEBIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'CREDIT'), 0)
		FROM entries`

	sumAccountBalances = `SELECT COALESCE(SUM(balance), 0), COALESCE(SUM(opening_balance), 0) FROM accounts`

	sumAccountEntriesByKind = sumEntriesByKind + ` WHERE account_id = $1`
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency sums every debit and every credit ever written.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (totalDebits decimal.Decimal, totalCredits decimal.Decimal, err error) {
	return r.pair(ctx, sumEntriesByKind)
}

// SumBalances sums current and opening balances over all accounts.
func (r *LedgerRepository) SumBalances(ctx context.Context) (balances decimal.Decimal, openingBalances decimal.Decimal, err error) {
	return r.pair(ctx, sumAccountBalances)
}

// AccountTotals sums one account's debits and credits.
func (r *LedgerRepository) AccountTotals(ctx context.Context, accountID int64) (debits decimal.Decimal, credits decimal.Decimal, err error) {
	return r.pair(ctx, sumAccountEntriesByKind, accountID)
}

func (r *LedgerRepository) pair(ctx context.Context, query string, args ...any) (decimal.Decimal, decimal.Decimal, error) {
	var a, b pgtype.Numeric
	if err := querier(ctx, r.db).QueryRow(ctx, query, args...).Scan(&a, &b); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(a), numericToDecimal(b), nil
}
