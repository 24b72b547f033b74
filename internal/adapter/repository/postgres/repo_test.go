package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

const (
	ribA = "000000000000000000000001"
	ribB = "000000000000000000000002"
)

var accountCols = []string{"id", "rib", "owner_id", "balance", "opening_balance", "status", "version", "created_at", "updated_at"}

var entryCols = []string{"id", "transfer_id", "account_id", "rib", "kind", "amount", "acting_user_id", "previous_balance", "current_balance", "created_at"}

func newExactMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) *Tx {
	t.Helper()
	pool.ExpectBeginTx(transferTxOptions)
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	require.NoError(t, err)
	return tx.(*Tx)
}

func num(s string) any {
	return decimalToNumeric(decimal.RequireFromString(s))
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("assigns id", func(t *testing.T) {
		pool := newExactMockPool(t)
		tx := beginTx(t, pool)
		pool.ExpectQuery(insertAccount).
			WithArgs(ribA, "owner-1", pgxmock.AnyArg(), pgxmock.AnyArg(), "OPENED", now, now).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		acc := &domain.Account{RIB: ribA, OwnerID: "owner-1", Status: domain.AccountStatusOpened, CreatedAt: now, UpdatedAt: now}
		require.NoError(t, NewAccountRepository(pool).Create(ctx, tx, acc))
		assert.Equal(t, int64(42), acc.ID)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("duplicate rib", func(t *testing.T) {
		pool := newExactMockPool(t)
		tx := beginTx(t, pool)
		pool.ExpectQuery(insertAccount).
			WithArgs(ribA, "owner-1", pgxmock.AnyArg(), pgxmock.AnyArg(), "OPENED", now, now).
			WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

		acc := &domain.Account{RIB: ribA, OwnerID: "owner-1", Status: domain.AccountStatusOpened, CreatedAt: now, UpdatedAt: now}
		err := NewAccountRepository(pool).Create(ctx, tx, acc)
		assert.ErrorIs(t, err, domain.ErrDuplicateRIB)
	})

	t.Run("foreign transaction", func(t *testing.T) {
		pool := newExactMockPool(t)
		err := NewAccountRepository(pool).Create(ctx, &mocks.MockTransaction{}, &domain.Account{})
		assert.ErrorIs(t, err, ErrForeignTransaction)
	})
}

func TestAccountRepository_GetByRIB(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	pool := newExactMockPool(t)
	pool.ExpectQuery(selectAccountByRIB).WithArgs(ribA).
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(int64(1), ribA, "owner-1", num("700.00"), num("1000.00"), "BLOCKED", int64(3), now, now))
	pool.ExpectQuery(selectAccountByRIB).WithArgs(ribB).WillReturnError(pgx.ErrNoRows)

	repo := NewAccountRepository(pool)

	acc, err := repo.GetByRIB(ctx, ribA)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("700")))
	assert.True(t, acc.OpeningBalance.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, domain.AccountStatusBlocked, acc.Status)
	assert.Equal(t, int64(3), acc.Version)

	_, err = repo.GetByRIB(ctx, ribB)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestAccountRepository_GetByRIBsForUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	pool := newExactMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery(selectAccountsByRIBsForUpdate).WithArgs([]string{ribA, ribB}).
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(int64(1), ribA, "owner-1", num("10"), num("10"), "OPENED", int64(0), now, now))

	accounts, err := NewAccountRepository(pool).GetByRIBsForUpdate(ctx, tx, []string{ribA, ribB})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, ribA, accounts[0].RIB)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestAccountRepository_UpdateBalance(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	pool := newExactMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(updateAccountBalance).WithArgs(int64(1), pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(updateAccountBalance).WithArgs(int64(9), pgxmock.AnyArg(), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewAccountRepository(pool)
	require.NoError(t, repo.UpdateBalance(ctx, tx, 1, decimal.NewFromInt(5), now))
	assert.ErrorIs(t, repo.UpdateBalance(ctx, tx, 9, decimal.NewFromInt(5), now), domain.ErrAccountNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestEntryRepository_CreateAndPage(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	pool := newExactMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery(insertEntry).
		WithArgs("t-1", int64(1), ribA, "DEBIT", pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	pool.ExpectQuery(countEntriesByAccount).WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))
	pool.ExpectQuery(selectRecentEntries).WithArgs(int64(1), 10, 10).
		WillReturnRows(pgxmock.NewRows(entryCols).
			AddRow(int64(2), "t-0", int64(1), ribA, "CREDIT", num("3"), "user-2", num("0"), num("3"), now).
			AddRow(int64(1), "t-0", int64(1), ribA, "DEBIT", num("1"), "user-1", num("1"), num("0"), now))

	repo := NewEntryRepository(pool)

	entry := &domain.Entry{
		TransferID:   "t-1",
		AccountID:    1,
		RIB:          ribA,
		Kind:         domain.EntryKindDebit,
		Amount:       decimal.NewFromInt(1),
		ActingUserID: "user-1",
		CreatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, tx, entry))
	assert.Equal(t, int64(11), entry.ID)

	entries, total, err := repo.FindRecentPaged(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryKindCredit, entries[0].Kind)
	assert.True(t, entries[0].AccountCurrentBalance.Equal(decimal.NewFromInt(3)))

	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestLedgerRepository_Sums(t *testing.T) {
	ctx := context.Background()

	pool := newExactMockPool(t)
	pool.ExpectQuery(sumEntriesByKind).
		WillReturnRows(pgxmock.NewRows([]string{"debits", "credits"}).AddRow(num("300"), num("300")))
	pool.ExpectQuery(sumAccountEntriesByKind).WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"debits", "credits"}).AddRow(num("1.5"), num("0")))

	repo := NewLedgerRepository(pool)

	debits, credits, err := repo.CheckConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, debits.Equal(credits))

	debits, _, err = repo.AccountTotals(ctx, 7)
	require.NoError(t, err)
	assert.True(t, debits.Equal(decimal.RequireFromString("1.5")))

	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestOutboxRepository_Roundtrip(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	pool := newExactMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(insertOutboxEvent).
		WithArgs("ev-1", "t-1", domain.AggregateTypeTransfer, domain.EventTypeTransferCreated, pgxmock.AnyArg(), now, false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectQuery(selectUnpublishedEvents).WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published"}).
			AddRow("ev-1", "t-1", domain.AggregateTypeTransfer, domain.EventTypeTransferCreated, []byte(`{"amount":"5"}`), now, (*time.Time)(nil), false))
	pool.ExpectExec(markEventPublished).WithArgs("ev-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewOutboxRepository(pool)

	require.NoError(t, repo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            "ev-1",
		AggregateID:   "t-1",
		AggregateType: domain.AggregateTypeTransfer,
		EventType:     domain.EventTypeTransferCreated,
		Payload:       map[string]any{"amount": "5"},
		CreatedAt:     now,
	}))

	events, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "5", events[0].Payload["amount"])
	assert.Nil(t, events[0].PublishedAt)

	require.NoError(t, repo.MarkPublished(ctx, "ev-1", now))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestDirectoryRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	pool := newExactMockPool(t)
	pool.ExpectExec(insertUser).WithArgs("user-1", "u1", "", now).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	pool.ExpectQuery(selectUserByUsername).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)
	pool.ExpectQuery(selectUserByID).WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "email", "created_at"}).AddRow("user-1", "u1", "", now))
	pool.ExpectQuery(selectCustomerByID).WithArgs("nobody").WillReturnError(pgx.ErrNoRows)

	repo := NewDirectoryRepository(pool)

	err := repo.CreateUser(ctx, &domain.User{ID: "user-1", Username: "u1", CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	_, err = repo.ResolveUsername(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUnknownUser)

	user, err := repo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.Username)

	_, err = repo.GetCustomer(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestNumericRoundtrip(t *testing.T) {
	for _, s := range []string{"0", "700.00", "-20.5", "123456789012345.6789"} {
		d := decimal.RequireFromString(s)
		assert.True(t, numericToDecimal(decimalToNumeric(d)).Equal(d), s)
	}
}
