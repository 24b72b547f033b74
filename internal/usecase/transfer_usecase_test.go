package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

const (
	ribA = "000000000000000000000001"
	ribB = "000000000000000000000002"
	ribC = "000000000000000000000003"
	ribD = "000000000000000000000004"
)

var actingUser = &domain.User{ID: "user-1", Username: "u1"}

func opened(rib string, balance string) *domain.Account {
	return &domain.Account{
		RIB:            rib,
		OwnerID:        "owner-1",
		Balance:        decimal.RequireFromString(balance),
		OpeningBalance: decimal.RequireFromString(balance),
		Status:         domain.AccountStatusOpened,
	}
}

type transferDeps struct {
	accounts   *mocks.MockAccountRepository
	entries    *mocks.MockEntryRepository
	outbox     *mocks.MockOutboxRepository
	txm        *mocks.MockTransactionManager
	identities *mocks.MockIdentityResolver
	metrics    *mocks.MockTransferMetrics
}

func newTransferDeps(t *testing.T) *transferDeps {
	ctrl := gomock.NewController(t)
	return &transferDeps{
		accounts:   mocks.NewMockAccountRepository(),
		entries:    mocks.NewMockEntryRepository(),
		outbox:     mocks.NewMockOutboxRepository(),
		txm:        mocks.NewMockTransactionManager(),
		identities: mocks.NewMockIdentityResolver(ctrl),
		metrics:    &mocks.MockTransferMetrics{},
	}
}

func (d *transferDeps) useCase(opts ...usecase.TransferOption) *usecase.TransferUseCase {
	opts = append(opts, usecase.WithTransferMetrics(d.metrics))
	return usecase.NewTransferUseCase(d.txm, d.accounts, d.entries, d.outbox, d.identities, mocks.NewMockIDGenerator(), zerolog.Nop(), opts...)
}

func TestTransferUseCase_Execute(t *testing.T) {
	tests := []struct {
		name       string
		intent     domain.TransferIntent
		accounts   []*domain.Account
		resolves   bool
		errorType  error
		wantFrom   string
		wantTo     string
		noUserCall bool
	}{
		{
			name:     "successful transfer",
			intent:   domain.TransferIntent{FromRIB: ribA, ToRIB: ribB, Amount: decimal.RequireFromString("300.00"), ActingUsername: "u1"},
			accounts: []*domain.Account{opened(ribA, "1000.00"), opened(ribB, "2000.00")},
			resolves: true,
			wantFrom: "700.00",
			wantTo:   "2300.00",
		},
		{
			name:       "reject zero amount",
			intent:     domain.TransferIntent{FromRIB: ribA, ToRIB: ribB, Amount: decimal.Zero, ActingUsername: "u1"},
			accounts:   []*domain.Account{opened(ribA, "1000.00"), opened(ribB, "2000.00")},
			errorType:  domain.ErrInvalidAmount,
			noUserCall: true,
		},
		{
			name:       "reject same account transfer",
			intent:     domain.TransferIntent{FromRIB: ribA, ToRIB: ribA, Amount: decimal.NewFromInt(1), ActingUsername: "u1"},
			accounts:   []*domain.Account{opened(ribA, "1000.00")},
			errorType:  domain.ErrSelfTransfer,
			noUserCall: true,
		},
		{
			name:      "reject unknown user",
			intent:    domain.TransferIntent{FromRIB: ribA, ToRIB: ribB, Amount: decimal.NewFromInt(1), ActingUsername: "ghost"},
			accounts:  []*domain.Account{opened(ribA, "1000.00"), opened(ribB, "2000.00")},
			errorType: domain.ErrUnknownUser,
		},
		{
			name:      "reject missing source",
			intent:    domain.TransferIntent{FromRIB: ribD, ToRIB: ribB, Amount: decimal.NewFromInt(1), ActingUsername: "u1"},
			accounts:  []*domain.Account{opened(ribB, "2000.00")},
			resolves:  true,
			errorType: domain.ErrSourceNotFound,
		},
		{
			name:      "reject missing destination",
			intent:    domain.TransferIntent{FromRIB: ribA, ToRIB: ribD, Amount: decimal.NewFromInt(1), ActingUsername: "u1"},
			accounts:  []*domain.Account{opened(ribA, "1000.00")},
			resolves:  true,
			errorType: domain.ErrDestinationNotFound,
		},
		{
			name:   "reject blocked destination",
			intent: domain.TransferIntent{FromRIB: ribA, ToRIB: ribC, Amount: decimal.RequireFromString("1.00"), ActingUsername: "u1"},
			accounts: []*domain.Account{
				opened(ribA, "1000.00"),
				{RIB: ribC, Balance: decimal.Zero, Status: domain.AccountStatusBlocked},
			},
			resolves:  true,
			errorType: domain.ErrDestinationUnavailable,
		},
		{
			name:   "reject closed source",
			intent: domain.TransferIntent{FromRIB: ribC, ToRIB: ribA, Amount: decimal.RequireFromString("1.00"), ActingUsername: "u1"},
			accounts: []*domain.Account{
				opened(ribA, "1000.00"),
				{RIB: ribC, Balance: decimal.NewFromInt(10), Status: domain.AccountStatusClosed},
			},
			resolves:  true,
			errorType: domain.ErrSourceUnavailable,
		},
		{
			name:      "reject insufficient funds",
			intent:    domain.TransferIntent{FromRIB: ribD, ToRIB: ribA, Amount: decimal.RequireFromString("100.00"), ActingUsername: "u1"},
			accounts:  []*domain.Account{opened(ribA, "1000.00"), opened(ribD, "50.00")},
			resolves:  true,
			errorType: domain.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTransferDeps(t)
			d.accounts.Seed(tt.accounts...)

			switch {
			case tt.noUserCall:
			case tt.resolves:
				d.identities.EXPECT().ResolveUsername(gomock.Any(), tt.intent.ActingUsername).Return(actingUser, nil)
			default:
				d.identities.EXPECT().ResolveUsername(gomock.Any(), tt.intent.ActingUsername).Return(nil, domain.ErrUnknownUser)
			}

			before := map[string]decimal.Decimal{}
			for _, acc := range tt.accounts {
				before[acc.RIB] = acc.Balance
			}

			result, err := d.useCase().Execute(context.Background(), tt.intent)

			if tt.errorType != nil {
				require.ErrorIs(t, err, tt.errorType)
				assert.Nil(t, result)
				assert.Empty(t, d.entries.Entries(), "no entries on rejection")
				assert.Empty(t, d.outbox.Events())
				for rib, bal := range before {
					acc, err := d.accounts.GetByRIB(context.Background(), rib)
					require.NoError(t, err)
					assert.True(t, acc.Balance.Equal(bal), "balance of %s changed", rib)
				}
				assert.Equal(t, []string{usecase.OutcomeRejected}, d.metrics.Outcomes)
				return
			}

			require.NoError(t, err)
			assert.True(t, result.From.Balance.Equal(decimal.RequireFromString(tt.wantFrom)))
			assert.True(t, result.To.Balance.Equal(decimal.RequireFromString(tt.wantTo)))

			assert.Equal(t, domain.EntryKindDebit, result.Debit.Kind)
			assert.Equal(t, domain.EntryKindCredit, result.Credit.Kind)
			assert.Equal(t, tt.intent.FromRIB, result.Debit.RIB)
			assert.Equal(t, tt.intent.ToRIB, result.Credit.RIB)
			assert.True(t, result.Debit.Amount.Equal(result.Credit.Amount))
			assert.True(t, result.Debit.CreatedAt.Equal(result.Credit.CreatedAt))
			assert.Equal(t, result.TransferID, result.Debit.TransferID)
			assert.Equal(t, result.TransferID, result.Credit.TransferID)
			assert.Equal(t, actingUser.ID, result.Debit.ActingUserID)
			assert.Len(t, d.entries.Entries(), 2)

			events := d.outbox.Events()
			require.Len(t, events, 1)
			assert.Equal(t, domain.EventTypeTransferCreated, events[0].EventType)
			assert.Equal(t, result.TransferID, events[0].AggregateID)

			assert.Equal(t, []string{usecase.OutcomeCommitted}, d.metrics.Outcomes)
		})
	}
}

func TestTransferUseCase_LocksInCanonicalOrder(t *testing.T) {
	d := newTransferDeps(t)
	d.accounts.Seed(opened(ribA, "100"), opened(ribB, "100"))
	d.identities.EXPECT().ResolveUsername(gomock.Any(), "u1").Return(actingUser, nil).Times(2)

	var seen [][]string
	d.accounts.GetByRIBsForUpdateFunc = func(ctx context.Context, tx usecase.Transaction, ribs []string) ([]*domain.Account, error) {
		seen = append(seen, ribs)
		return []*domain.Account{opened(ribA, "100"), opened(ribB, "100")}, nil
	}

	uc := d.useCase()
	_, err := uc.Execute(context.Background(), domain.TransferIntent{FromRIB: ribB, ToRIB: ribA, Amount: decimal.NewFromInt(1), ActingUsername: "u1"})
	require.NoError(t, err)
	_, err = uc.Execute(context.Background(), domain.TransferIntent{FromRIB: ribA, ToRIB: ribB, Amount: decimal.NewFromInt(1), ActingUsername: "u1"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{ribA, ribB}, {ribA, ribB}}, seen)
}

func TestTransferUseCase_NormalizesRIBs(t *testing.T) {
	d := newTransferDeps(t)
	d.accounts.Seed(opened(ribA, "100"), opened(ribB, "100"))
	d.identities.EXPECT().ResolveUsername(gomock.Any(), "u1").Return(actingUser, nil)

	result, err := d.useCase().Execute(context.Background(), domain.TransferIntent{
		FromRIB:        "0000 0000 0000 0000 0000 0001",
		ToRIB:          " 000000000000000000000002 ",
		Amount:         decimal.NewFromInt(5),
		ActingUsername: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, ribA, result.From.RIB)
	assert.Equal(t, ribB, result.To.RIB)
}

func TestTransferUseCase_InfrastructureFailure(t *testing.T) {
	fault := errors.New("connection reset")

	tests := []struct {
		name  string
		setup func(*transferDeps)
	}{
		{
			name: "begin fails",
			setup: func(d *transferDeps) {
				d.txm.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) { return nil, fault }
			},
		},
		{
			name: "credit entry fails",
			setup: func(d *transferDeps) {
				calls := 0
				d.entries.CreateFunc = func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
					calls++
					if calls == 2 {
						return fault
					}
					return nil
				}
			},
		},
		{
			name: "commit fails",
			setup: func(d *transferDeps) {
				d.txm.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
					return &mocks.MockTransaction{CommitFunc: func(ctx context.Context) error { return fault }}, nil
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTransferDeps(t)
			d.accounts.Seed(opened(ribA, "100"), opened(ribB, "100"))
			d.identities.EXPECT().ResolveUsername(gomock.Any(), "u1").Return(actingUser, nil)
			tt.setup(d)

			_, err := d.useCase().Execute(context.Background(), domain.TransferIntent{FromRIB: ribA, ToRIB: ribB, Amount: decimal.NewFromInt(1), ActingUsername: "u1"})

			require.ErrorIs(t, err, domain.ErrInfrastructure)
			assert.ErrorIs(t, err, fault)
			assert.True(t, domain.IsRetryable(err))
			assert.Equal(t, []string{usecase.OutcomeFailed}, d.metrics.Outcomes)
		})
	}
}

func TestTransferUseCase_RollsBackOnRejection(t *testing.T) {
	d := newTransferDeps(t)
	d.accounts.Seed(opened(ribA, "10"), opened(ribB, "0"))
	d.identities.EXPECT().ResolveUsername(gomock.Any(), "u1").Return(actingUser, nil)

	rolledBack, committed := false, false
	d.txm.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
		return &mocks.MockTransaction{
			CommitFunc:   func(ctx context.Context) error { committed = true; return nil },
			RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
		}, nil
	}

	_, err := d.useCase().Execute(context.Background(), domain.TransferIntent{FromRIB: ribA, ToRIB: ribB, Amount: decimal.NewFromInt(11), ActingUsername: "u1"})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, rolledBack)
	assert.False(t, committed)
}

func TestTransferUseCase_UsesRetrier(t *testing.T) {
	d := newTransferDeps(t)
	d.accounts.Seed(opened(ribA, "100"), opened(ribB, "100"))
	d.identities.EXPECT().ResolveUsername(gomock.Any(), "u1").Return(actingUser, nil)

	attempts := 0
	d.txm.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("deadlock detected")
		}
		return &mocks.MockTransaction{}, nil
	}

	retrier := &mocks.MockRetrier{
		RetryFunc: func(ctx context.Context, operation func() error) error {
			if err := operation(); err == nil {
				return nil
			}
			return operation()
		},
	}

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	result, err := d.useCase(usecase.WithRetrier(retrier), usecase.WithClock(func() time.Time { return fixed })).
		Execute(context.Background(), domain.TransferIntent{FromRIB: ribA, ToRIB: ribB, Amount: decimal.NewFromInt(1), ActingUsername: "u1"})

	require.NoError(t, err)
	assert.Equal(t, 1, retrier.Calls)
	assert.Equal(t, 2, attempts)
	assert.True(t, result.Debit.CreatedAt.Equal(fixed))
}
