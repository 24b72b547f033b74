package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create locks the new rib and stages the account. The ID is assigned on
// commit.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	if err := t.lock(ctx, account.RIB); err != nil {
		return err
	}

	r.store.mu.RLock()
	_, exists := r.store.byRIB[account.RIB]
	r.store.mu.RUnlock()

	if exists {
		return domain.ErrDuplicateRIB
	}
	for _, staged := range t.accounts {
		if staged.RIB == account.RIB {
			return domain.ErrDuplicateRIB
		}
	}

	t.accounts = append(t.accounts, account)
	return nil
}

// GetByRIB retrieves an account by rib.
func (r *AccountRepository) GetByRIB(ctx context.Context, rib string) (*domain.Account, error) {
	defer r.store.rlock(ctx)()

	id, ok := r.store.byRIB[rib]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.store.accounts[id].Clone(), nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	defer r.store.rlock(ctx)()

	acc, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// GetByRIBForUpdate locks rib and returns its account.
func (r *AccountRepository) GetByRIBForUpdate(ctx context.Context, tx usecase.Transaction, rib string) (*domain.Account, error) {
	accounts, err := r.GetByRIBsForUpdate(ctx, tx, []string{rib})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return accounts[0], nil
}

// GetByRIBsForUpdate locks ribs in the order given and returns the accounts
// that exist.
func (r *AccountRepository) GetByRIBsForUpdate(ctx context.Context, tx usecase.Transaction, ribs []string) ([]*domain.Account, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}

	for _, rib := range ribs {
		if err := t.lock(ctx, rib); err != nil {
			return nil, err
		}
	}

	defer r.store.rlock(ctx)()

	accounts := make([]*domain.Account, 0, len(ribs))
	for _, rib := range ribs {
		if id, ok := r.store.byRIB[rib]; ok {
			accounts = append(accounts, r.store.accounts[id].Clone())
		}
	}
	return accounts, nil
}

// UpdateBalance stages a new balance for a locked account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id int64, balance decimal.Decimal, updatedAt time.Time) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	if err := t.holds(id); err != nil {
		return err
	}

	if t.balances == nil {
		t.balances = make(map[int64]balanceUpdate)
	}
	t.balances[id] = balanceUpdate{balance: balance, updatedAt: updatedAt}
	return nil
}

// UpdateStatus stages a new status for a locked account.
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id int64, status domain.AccountStatus, updatedAt time.Time) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	if err := t.holds(id); err != nil {
		return err
	}

	if t.statuses == nil {
		t.statuses = make(map[int64]statusUpdate)
	}
	t.statuses[id] = statusUpdate{status: status, updatedAt: updatedAt}
	return nil
}

// ListByOwner lists the owner's accounts by ascending ID.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	defer r.store.rlock(ctx)()

	var accounts []*domain.Account
	for _, acc := range r.store.accounts {
		if acc.OwnerID == ownerID {
			accounts = append(accounts, acc.Clone())
		}
	}
	sortAccounts(accounts)
	return accounts, nil
}

// List lists accounts by ascending ID with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	defer r.store.rlock(ctx)()

	accounts := make([]*domain.Account, 0, len(r.store.accounts))
	for _, acc := range r.store.accounts {
		accounts = append(accounts, acc.Clone())
	}
	sortAccounts(accounts)

	return window(accounts, limit, offset), nil
}

func sortAccounts(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 || limit <= 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) || end < offset {
		end = len(items)
	}
	return items[offset:end]
}
