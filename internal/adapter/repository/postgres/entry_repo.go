package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const entryColumns = `id, transfer_id, account_id, rib, kind, amount, acting_user_id, previous_balance, current_balance, created_at`

const (
	insertEntry = `
		INSERT INTO entries (transfer_id, account_id, rib, kind, amount, acting_user_id, previous_balance, current_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	selectEntriesByTransfer = `SELECT ` + entryColumns + ` FROM entries WHERE transfer_id = $1 ORDER BY id`

	selectEntriesInRange = `SELECT ` + entryColumns + ` FROM entries
		WHERE account_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at, id`

	countEntriesByAccount = `SELECT COUNT(*) FROM entries WHERE account_id = $1`

	selectRecentEntries = `SELECT ` + entryColumns + ` FROM entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	db DBTX
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db DBTX) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create appends an entry and assigns its ID.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	return q.QueryRow(ctx, insertEntry,
		entry.TransferID,
		entry.AccountID,
		entry.RIB,
		string(entry.Kind),
		decimalToNumeric(entry.Amount),
		entry.ActingUserID,
		decimalToNumeric(entry.AccountPreviousBalance),
		decimalToNumeric(entry.AccountCurrentBalance),
		entry.CreatedAt,
	).Scan(&entry.ID)
}

// GetByTransfer retrieves both legs of a transfer.
func (r *EntryRepository) GetByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error) {
	rows, err := querier(ctx, r.db).Query(ctx, selectEntriesByTransfer, transferID)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

// FindByAccountAndRange retrieves entries with from <= created_at <= to.
func (r *EntryRepository) FindByAccountAndRange(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.Entry, error) {
	rows, err := querier(ctx, r.db).Query(ctx, selectEntriesInRange, accountID, from, to)
	if err != nil {
		return nil, err
	}

	return collectEntries(rows)
}

// FindRecentPaged retrieves one page of the most recent entries. The count
// and the page agree only when ctx carries a snapshot from ReadSnapshot.
func (r *EntryRepository) FindRecentPaged(ctx context.Context, accountID int64, pageIndex, pageSize int) ([]*domain.Entry, int64, error) {
	q := querier(ctx, r.db)

	var total int64
	if err := q.QueryRow(ctx, countEntriesByAccount, accountID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset, ok := domain.PageOffset(pageIndex, pageSize)
	if !ok {
		return []*domain.Entry{}, total, nil
	}

	rows, err := q.Query(ctx, selectRecentEntries, accountID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func collectEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	defer rows.Close()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		var (
			e                 domain.Entry
			kind              string
			amount, prev, cur pgtype.Numeric
		)

		err := rows.Scan(
			&e.ID,
			&e.TransferID,
			&e.AccountID,
			&e.RIB,
			&kind,
			&amount,
			&e.ActingUserID,
			&prev,
			&cur,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		e.Kind = domain.EntryKind(kind)
		e.Amount = numericToDecimal(amount)
		e.AccountPreviousBalance = numericToDecimal(prev)
		e.AccountCurrentBalance = numericToDecimal(cur)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
