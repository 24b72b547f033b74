package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

const accountColumns = `id, rib, owner_id, balance, opening_balance, status, version, created_at, updated_at`

const (
	insertAccount = `
		INSERT INTO accounts (rib, owner_id, balance, opening_balance, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		RETURNING id`

	selectAccountByRIB = `SELECT ` + accountColumns + ` FROM accounts WHERE rib = $1`

	selectAccountByID = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	selectAccountByRIBForUpdate = `SELECT ` + accountColumns + ` FROM accounts WHERE rib = $1 FOR UPDATE`

	// rows are locked in ORDER BY order, so concurrent transfers over the
	// same pair always queue on the same first row
	selectAccountsByRIBsForUpdate = `SELECT ` + accountColumns + ` FROM accounts WHERE rib = ANY($1) ORDER BY rib FOR UPDATE`

	updateAccountBalance = `UPDATE accounts SET balance = $2, version = version + 1, updated_at = $3 WHERE id = $1`

	updateAccountStatus = `UPDATE accounts SET status = $2, updated_at = $3 WHERE id = $1`

	selectAccountsByOwner = `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY id`

	selectAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY id LIMIT $1 OFFSET $2`
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account and assigns its ID.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, insertAccount,
		account.RIB,
		account.OwnerID,
		decimalToNumeric(account.Balance),
		decimalToNumeric(account.OpeningBalance),
		string(account.Status),
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRIB
	}

	return err
}

// GetByRIB retrieves an account by rib.
func (r *AccountRepository) GetByRIB(ctx context.Context, rib string) (*domain.Account, error) {
	return scanAccount(querier(ctx, r.db).QueryRow(ctx, selectAccountByRIB, rib))
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return scanAccount(querier(ctx, r.db).QueryRow(ctx, selectAccountByID, id))
}

// GetByRIBForUpdate retrieves an account by rib with a FOR UPDATE lock.
func (r *AccountRepository) GetByRIBForUpdate(ctx context.Context, tx usecase.Transaction, rib string) (*domain.Account, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return scanAccount(q.QueryRow(ctx, selectAccountByRIBForUpdate, rib))
}

// GetByRIBsForUpdate retrieves multiple accounts by rib with FOR UPDATE
// locks, acquired in ascending rib order.
func (r *AccountRepository) GetByRIBsForUpdate(ctx context.Context, tx usecase.Transaction, ribs []string) ([]*domain.Account, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, selectAccountsByRIBsForUpdate, ribs)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

// UpdateBalance updates the balance of an account.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id int64, balance decimal.Decimal, updatedAt time.Time) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, updateAccountBalance, id, decimalToNumeric(balance), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// UpdateStatus updates the status of an account.
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id int64, status domain.AccountStatus, updatedAt time.Time) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, updateAccountStatus, id, string(status), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// ListByOwner lists the owner's accounts, oldest first.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	rows, err := querier(ctx, r.db).Query(ctx, selectAccountsByOwner, ownerID)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := querier(ctx, r.db).Query(ctx, selectAccounts, limit, offset)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		acc     domain.Account
		status  string
		balance pgtype.Numeric
		opening pgtype.Numeric
	)

	err := row.Scan(
		&acc.ID,
		&acc.RIB,
		&acc.OwnerID,
		&balance,
		&opening,
		&status,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	acc.Balance = numericToDecimal(balance)
	acc.OpeningBalance = numericToDecimal(opening)
	acc.Status = domain.AccountStatus(status)

	return &acc, nil
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}
