package usecase

import (
	"context"
	"errors"
	"sort"

	"github.com/iho/bankledger/internal/domain"
)

// DashboardUseCase builds the read-only per-customer view. It never writes.
type DashboardUseCase struct {
	snapshots   SnapshotReader
	accountRepo AccountRepository
	entryRepo   EntryRepository
	identities  IdentityResolver
	customers   CustomerDirectory
}

// NewDashboardUseCase creates a new DashboardUseCase.
func NewDashboardUseCase(
	snapshots SnapshotReader,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	identities IdentityResolver,
	customers CustomerDirectory,
) *DashboardUseCase {
	return &DashboardUseCase{
		snapshots:   snapshots,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		identities:  identities,
		customers:   customers,
	}
}

// BuildViewInput represents input for a dashboard page. An empty RIB selects
// the customer's most recently created account.
type BuildViewInput struct {
	CustomerID string
	RIB        string
	PageIndex  int
}

// BuildView assembles the selected account's balance, one described page of
// its recent entries and summaries of every account the customer owns. All
// of it is read from one snapshot.
func (uc *DashboardUseCase) BuildView(ctx context.Context, input BuildViewInput) (*domain.DashboardView, error) {
	if err := domain.ValidatePageIndex(input.PageIndex, domain.DashboardPerPage); err != nil {
		return nil, err
	}

	var view *domain.DashboardView
	err := uc.snapshots.ReadSnapshot(ctx, func(ctx context.Context) error {
		var err error
		view, err = uc.buildView(ctx, input)
		return err
	})
	if err != nil {
		return nil, domain.NewInfrastructureError("read snapshot", err)
	}

	return view, nil
}

func (uc *DashboardUseCase) buildView(ctx context.Context, input BuildViewInput) (*domain.DashboardView, error) {
	if _, err := uc.customers.GetCustomer(ctx, input.CustomerID); err != nil {
		return nil, domain.NewInfrastructureError("get customer", err)
	}

	accounts, err := uc.accountRepo.ListByOwner(ctx, input.CustomerID)
	if err != nil {
		return nil, domain.NewInfrastructureError("list owner accounts", err)
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	selected, err := selectAccount(accounts, domain.CanonicalRIB(input.RIB))
	if err != nil {
		return nil, err
	}

	entries, total, err := uc.entryRepo.FindRecentPaged(ctx, selected.ID, input.PageIndex, domain.DashboardPerPage)
	if err != nil {
		return nil, domain.NewInfrastructureError("find recent entries", err)
	}

	described, err := uc.describe(ctx, entries)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.AccountSummary, 0, len(accounts))
	for _, acc := range accounts {
		summaries = append(summaries, domain.AccountSummary{
			RIB:     acc.RIB,
			Balance: acc.Balance,
			Status:  acc.Status,
		})
	}

	return &domain.DashboardView{
		CustomerID:        input.CustomerID,
		RIB:               selected.RIB,
		Balance:           selected.Balance,
		Entries:           described,
		Accounts:          summaries,
		CurrentPage:       input.PageIndex,
		TotalPages:        domain.TotalPages(total, domain.DashboardPerPage),
		TotalTransactions: total,
	}, nil
}

// selectAccount picks rib among accounts, or the highest ID when rib is
// empty. accounts must be sorted by ID.
func selectAccount(accounts []*domain.Account, rib string) (*domain.Account, error) {
	if rib == "" {
		return accounts[len(accounts)-1], nil
	}

	for _, acc := range accounts {
		if acc.RIB == rib {
			return acc, nil
		}
	}

	return nil, domain.ErrAccountOwnership
}

// describe joins each entry to its paired leg and labels it with the
// username acting on that leg.
func (uc *DashboardUseCase) describe(ctx context.Context, entries []*domain.Entry) ([]domain.DescribedEntry, error) {
	names := make(map[string]string)
	described := make([]domain.DescribedEntry, 0, len(entries))

	for _, e := range entries {
		legs, err := uc.entryRepo.GetByTransfer(ctx, e.TransferID)
		if err != nil {
			return nil, domain.NewInfrastructureError("get transfer entries", err)
		}

		counterpartyUserID := e.ActingUserID
		counterpartyRIB := ""
		for _, leg := range legs {
			if leg.ID != e.ID {
				counterpartyUserID = leg.ActingUserID
				counterpartyRIB = leg.RIB
				break
			}
		}

		name, ok := names[counterpartyUserID]
		if !ok {
			name, err = uc.displayName(ctx, counterpartyUserID)
			if err != nil {
				return nil, err
			}
			names[counterpartyUserID] = name
		}

		described = append(described, domain.DescribedEntry{
			Entry:           e,
			Counterparty:    name,
			CounterpartyRIB: counterpartyRIB,
			Description:     domain.Describe(e.Kind, name),
		})
	}

	return described, nil
}

func (uc *DashboardUseCase) displayName(ctx context.Context, userID string) (string, error) {
	user, err := uc.identities.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrUnknownUser) {
		return userID, nil
	}
	if err != nil {
		return "", domain.NewInfrastructureError("resolve counterparty", err)
	}
	return user.DisplayName(), nil
}
