package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountRepository defines data access for accounts.
//
// Accounts are addressed by RIB on every write path. Methods taking a
// Transaction hold the account's row lock until the transaction ends.
type AccountRepository interface {
	// Create stages a new account and assigns its ID. Returns
	// domain.ErrDuplicateRIB if the rib is taken.
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByRIB(ctx context.Context, rib string) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByRIBForUpdate(ctx context.Context, tx Transaction, rib string) (*domain.Account, error)
	// GetByRIBsForUpdate locks ribs in the order given. Unknown ribs are
	// absent from the result rather than an error.
	GetByRIBsForUpdate(ctx context.Context, tx Transaction, ribs []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id int64, balance decimal.Decimal, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, id int64, status domain.AccountStatus, updatedAt time.Time) error
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// EntryRepository defines data access for ledger entries. Entries are
// append-only.
type EntryRepository interface {
	// Create appends an entry and assigns its monotonically increasing ID
	// once the transaction commits.
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByTransfer(ctx context.Context, transferID string) ([]*domain.Entry, error)
	// FindByAccountAndRange returns entries with from <= created_at <= to,
	// oldest first.
	FindByAccountAndRange(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.Entry, error)
	// FindRecentPaged returns one page ordered by created_at desc, id desc,
	// and the account's total entry count.
	FindRecentPaged(ctx context.Context, accountID int64, pageIndex, pageSize int) ([]*domain.Entry, int64, error)
}

// LedgerRepository defines data access for ledger-wide aggregates.
type LedgerRepository interface {
	CheckConsistency(ctx context.Context) (totalDebits, totalCredits decimal.Decimal, err error)
	SumBalances(ctx context.Context) (balances, openingBalances decimal.Decimal, err error)
	AccountTotals(ctx context.Context, accountID int64) (debits, credits decimal.Decimal, err error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// IdentityResolver resolves acting users. It is owned by the
// authentication side; the ledger only reads from it.
type IdentityResolver interface {
	ResolveUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// CustomerDirectory looks up account owners.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
}

// DirectoryWriter registers users and customers.
type DirectoryWriter interface {
	CreateUser(ctx context.Context, user *domain.User) error
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// SnapshotReader runs read-only work against one consistent view of
// committed state. Repository reads made with the ctx handed to fn see every
// transfer either fully applied or not at all.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// Retrier re-runs operation while it fails with a transient storage error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the key can be reused.
	Release(ctx context.Context, key string) error
}

// TransferMetrics records transfer outcomes.
type TransferMetrics interface {
	RecordTransfer(outcome string, amount decimal.Decimal, duration time.Duration)
}
