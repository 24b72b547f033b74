package usecase

import (
	"context"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

// EntryUseCase handles ledger reads.
type EntryUseCase struct {
	snapshots   SnapshotReader
	accountRepo AccountRepository
	entryRepo   EntryRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(snapshots SnapshotReader, accountRepo AccountRepository, entryRepo EntryRepository) *EntryUseCase {
	return &EntryUseCase{
		snapshots:   snapshots,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
	}
}

// QueryHistoryInput represents input for an inclusive date-range query.
type QueryHistoryInput struct {
	RIB  string
	From time.Time
	To   time.Time
}

// QueryHistory returns the account's entries created between From and To,
// both inclusive, oldest first.
func (uc *EntryUseCase) QueryHistory(ctx context.Context, input QueryHistoryInput) ([]*domain.Entry, error) {
	if input.From.After(input.To) {
		return nil, domain.ErrInvalidDateRange
	}

	acc, err := uc.accountRepo.GetByRIB(ctx, domain.CanonicalRIB(input.RIB))
	if err != nil {
		return nil, domain.NewInfrastructureError("get account", err)
	}

	entries, err := uc.entryRepo.FindByAccountAndRange(ctx, acc.ID, input.From, input.To)
	if err != nil {
		return nil, domain.NewInfrastructureError("query history", err)
	}

	return entries, nil
}

// FindRecentPagedInput represents input for a page of recent entries.
type FindRecentPagedInput struct {
	RIB       string
	PageIndex int
	PageSize  int
}

// FindRecentPaged returns one page of the account's entries, most recent
// first. The page and its total count come from one snapshot.
func (uc *EntryUseCase) FindRecentPaged(ctx context.Context, input FindRecentPagedInput) (*domain.EntryPage, error) {
	size, _ := domain.ValidatePagination(input.PageSize, 0)
	if err := domain.ValidatePageIndex(input.PageIndex, size); err != nil {
		return nil, err
	}

	page := &domain.EntryPage{PageIndex: input.PageIndex, PageSize: size}
	err := uc.snapshots.ReadSnapshot(ctx, func(ctx context.Context) error {
		acc, err := uc.accountRepo.GetByRIB(ctx, domain.CanonicalRIB(input.RIB))
		if err != nil {
			return domain.NewInfrastructureError("get account", err)
		}

		page.Entries, page.TotalCount, err = uc.entryRepo.FindRecentPaged(ctx, acc.ID, input.PageIndex, size)
		if err != nil {
			return domain.NewInfrastructureError("find recent entries", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewInfrastructureError("read snapshot", err)
	}

	return page, nil
}

// GetEntriesByTransfer lists both legs of a transfer.
func (uc *EntryUseCase) GetEntriesByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error) {
	entries, err := uc.entryRepo.GetByTransfer(ctx, transferID)
	if err != nil {
		return nil, domain.NewInfrastructureError("get transfer entries", err)
	}

	if len(entries) == 0 {
		return nil, domain.ErrTransferNotFound
	}

	return entries, nil
}
