package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(accountRepo AccountRepository, ledgerRepo LedgerRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	RIB               string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount recomputes opening balance + credits - debits for one
// account and compares it with the stored balance.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, rib string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByRIB(ctx, domain.CanonicalRIB(rib))
	if err != nil {
		return nil, domain.NewInfrastructureError("get account", err)
	}

	return uc.reconcile(ctx, account)
}

func (uc *ReconciliationUseCase) reconcile(ctx context.Context, account *domain.Account) (*ReconciliationResult, error) {
	debits, credits, err := uc.ledgerRepo.AccountTotals(ctx, account.ID)
	if err != nil {
		return nil, domain.NewInfrastructureError("account totals", err)
	}

	calculated := account.OpeningBalance.Add(credits).Sub(debits)
	difference := account.Balance.Sub(calculated)

	return &ReconciliationResult{
		RIB:               account.RIB,
		RecordedBalance:   account.Balance,
		CalculatedBalance: calculated,
		Difference:        difference,
		IsReconciled:      difference.IsZero(),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	var results []*ReconciliationResult

	for offset := 0; ; offset += ReconcileBatchSize {
		accounts, err := uc.accountRepo.List(ctx, ReconcileBatchSize, offset)
		if err != nil {
			return nil, domain.NewInfrastructureError("list accounts", err)
		}

		for _, account := range accounts {
			result, err := uc.reconcile(ctx, account)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.RIB, err)
			}
			results = append(results, result)
		}

		if len(accounts) < ReconcileBatchSize {
			return results, nil
		}
	}
}

// ConsistencyReport is the ledger-wide double-entry and conservation check.
type ConsistencyReport struct {
	TotalDebits     decimal.Decimal
	TotalCredits    decimal.Decimal
	TotalBalance    decimal.Decimal
	OpeningBalance  decimal.Decimal
	EntriesBalanced bool
	Conserved       bool
}

// Consistent reports whether both ledger-wide checks hold.
func (r *ConsistencyReport) Consistent() bool {
	return r.EntriesBalanced && r.Conserved
}

// CheckLedgerConsistency verifies that debits equal credits and that the sum
// of balances still equals the sum of opening balances.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) (*ConsistencyReport, error) {
	totalDebits, totalCredits, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, domain.NewInfrastructureError("sum entries", err)
	}

	balances, opening, err := uc.ledgerRepo.SumBalances(ctx)
	if err != nil {
		return nil, domain.NewInfrastructureError("sum balances", err)
	}

	return &ConsistencyReport{
		TotalDebits:     totalDebits,
		TotalCredits:    totalCredits,
		TotalBalance:    balances,
		OpeningBalance:  opening,
		EntriesBalanced: totalDebits.Equal(totalCredits),
		Conserved:       balances.Equal(opening),
	}, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	Ledger             *ConsistencyReport
	CheckedAt          time.Time
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	ledger, err := uc.CheckLedgerConsistency(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		TotalAccounts: len(results),
		Discrepancies: make([]*ReconciliationResult, 0),
		Ledger:        ledger,
		CheckedAt:     time.Now().UTC(),
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
