package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	customers   CustomerDirectory
	idGen       IDGenerator
	logger      zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase. outboxRepo may be nil.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	customers CustomerDirectory,
	idGen IDGenerator,
	logger zerolog.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		customers:   customers,
		idGen:       idGen,
		logger:      logger.With().Str("component", "account").Logger(),
	}
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	OwnerID        string
	RIB            string
	InitialBalance decimal.Decimal
}

// Open creates an OPENED account for an existing customer. The initial
// balance is taken as given; zero and negative values are accepted.
func (uc *AccountUseCase) Open(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	if err := domain.ValidateRIB(input.RIB); err != nil {
		return nil, err
	}
	rib := domain.CanonicalRIB(input.RIB)

	if _, err := uc.customers.GetCustomer(ctx, input.OwnerID); err != nil {
		return nil, domain.NewInfrastructureError("get customer", err)
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, domain.NewInfrastructureError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	account := &domain.Account{
		RIB:            rib,
		OwnerID:        input.OwnerID,
		Balance:        input.InitialBalance,
		OpeningBalance: input.InitialBalance,
		Status:         domain.AccountStatusOpened,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
		return nil, domain.NewInfrastructureError("create account", err)
	}

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   rib,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeAccountOpened,
			Payload: domain.AccountOpenedEvent{
				RIB:            rib,
				OwnerID:        input.OwnerID,
				OpeningBalance: input.InitialBalance.String(),
			}.Payload(),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, domain.NewInfrastructureError("write outbox event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewInfrastructureError("commit account", err)
	}

	uc.logger.Info().
		Str("rib", rib).
		Str("owner_id", input.OwnerID).
		Str("balance", input.InitialBalance.String()).
		Msg("account opened")

	return account, nil
}

// FindByRib retrieves an account by its rib.
func (uc *AccountUseCase) FindByRib(ctx context.Context, rib string) (*domain.Account, error) {
	acc, err := uc.accountRepo.GetByRIB(ctx, domain.CanonicalRIB(rib))
	if err != nil {
		return nil, domain.NewInfrastructureError("get account", err)
	}
	return acc, nil
}

// ListByOwner lists every account owned by ownerID, oldest first.
func (uc *AccountUseCase) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	accounts, err := uc.accountRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.NewInfrastructureError("list owner accounts", err)
	}
	return accounts, nil
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	accounts, err := uc.accountRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, domain.NewInfrastructureError("list accounts", err)
	}
	return accounts, nil
}

// ChangeStatus applies an administrative status transition under the
// account's row lock, so it serializes with in-flight transfers.
func (uc *AccountUseCase) ChangeStatus(ctx context.Context, rib string, status domain.AccountStatus) (*domain.Account, error) {
	if _, err := domain.ParseAccountStatus(string(status)); err != nil {
		return nil, err
	}
	rib = domain.CanonicalRIB(rib)

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, domain.NewInfrastructureError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	acc, err := uc.accountRepo.GetByRIBForUpdate(ctx, tx, rib)
	if err != nil {
		return nil, domain.NewInfrastructureError("lock account", err)
	}

	if !acc.Status.CanTransitionTo(status) {
		return nil, domain.ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	if err := uc.accountRepo.UpdateStatus(ctx, tx, acc.ID, status, now); err != nil {
		return nil, domain.NewInfrastructureError("update status", err)
	}

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   rib,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeAccountStatusChanged,
			Payload: domain.AccountStatusChangedEvent{
				RIB:  rib,
				From: string(acc.Status),
				To:   string(status),
			}.Payload(),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, domain.NewInfrastructureError("write outbox event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewInfrastructureError("commit status change", err)
	}

	uc.logger.Info().
		Str("rib", rib).
		Str("from", string(acc.Status)).
		Str("to", string(status)).
		Msg("account status changed")

	updated := acc.Clone()
	updated.Status = status
	updated.UpdatedAt = now
	return updated, nil
}
