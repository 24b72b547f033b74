package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create stages entry. Its ID is assigned on commit.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}
	if err := t.holds(entry.AccountID); err != nil {
		return err
	}

	t.entries = append(t.entries, entry)
	return nil
}

// GetByTransfer lists a transfer's entries by ascending ID.
func (r *EntryRepository) GetByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error) {
	defer r.store.rlock(ctx)()

	return cloneEntries(r.store.byTransfer[transferID]), nil
}

// FindByAccountAndRange returns entries with from <= created_at <= to,
// ordered by (created_at, id).
func (r *EntryRepository) FindByAccountAndRange(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.Entry, error) {
	defer r.store.rlock(ctx)()

	var entries []*domain.Entry
	for _, e := range r.store.byAccount[accountID] {
		if e.CreatedAt.Before(from) || e.CreatedAt.After(to) {
			continue
		}
		entries = append(entries, e.Clone())
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	return entries, nil
}

// FindRecentPaged returns page pageIndex ordered by created_at desc, id desc.
func (r *EntryRepository) FindRecentPaged(ctx context.Context, accountID int64, pageIndex, pageSize int) ([]*domain.Entry, int64, error) {
	defer r.store.rlock(ctx)()

	all := cloneEntries(r.store.byAccount[accountID])
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	offset, ok := domain.PageOffset(pageIndex, pageSize)
	if !ok {
		return []*domain.Entry{}, int64(len(all)), nil
	}

	return window(all, pageSize, offset), int64(len(all)), nil
}

func cloneEntries(entries []*domain.Entry) []*domain.Entry {
	out := make([]*domain.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Clone())
	}
	return out
}
