package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
)

// TransferUseCase moves money between two accounts. It is the only writer of
// account balances and ledger entries after an account is opened.
type TransferUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	outboxRepo  OutboxRepository
	identities  IdentityResolver
	idGen       IDGenerator
	retrier     Retrier
	metrics     TransferMetrics
	logger      zerolog.Logger
	now         func() time.Time
}

// TransferOption configures optional TransferUseCase collaborators.
type TransferOption func(*TransferUseCase)

// WithRetrier retries the whole atomic unit on transient storage errors.
func WithRetrier(r Retrier) TransferOption {
	return func(uc *TransferUseCase) { uc.retrier = r }
}

// WithTransferMetrics records every outcome.
func WithTransferMetrics(m TransferMetrics) TransferOption {
	return func(uc *TransferUseCase) { uc.metrics = m }
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) TransferOption {
	return func(uc *TransferUseCase) { uc.now = now }
}

// NewTransferUseCase creates a new TransferUseCase. outboxRepo may be nil.
func NewTransferUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	identities IdentityResolver,
	idGen IDGenerator,
	logger zerolog.Logger,
	opts ...TransferOption,
) *TransferUseCase {
	uc := &TransferUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		outboxRepo:  outboxRepo,
		identities:  identities,
		idGen:       idGen,
		logger:      logger.With().Str("component", "transfer").Logger(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Execute validates intent and, if every precondition holds, debits the
// source, credits the destination and appends both ledger entries as one
// atomic unit.
//
// Preconditions short-circuit in this order: amount, self transfer, acting
// user, source exists, destination exists, source status, destination
// status, funds.
func (uc *TransferUseCase) Execute(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error) {
	start := time.Now()
	intent.Normalize()

	result, err := uc.execute(ctx, intent)

	uc.observe(intent, result, err, time.Since(start))

	return result, err
}

func (uc *TransferUseCase) execute(ctx context.Context, intent domain.TransferIntent) (*domain.TransferResult, error) {
	// 0. Validate inputs before starting transaction
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	user, err := uc.identities.ResolveUsername(ctx, intent.ActingUsername)
	if err != nil {
		return nil, domain.NewInfrastructureError("resolve acting user", err)
	}

	var result *domain.TransferResult

	run := func() error {
		r, err := uc.commit(ctx, intent, user)
		if err != nil {
			return err
		}
		result = r
		return nil
	}

	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, run)
	} else {
		err = run()
	}

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *TransferUseCase) commit(ctx context.Context, intent domain.TransferIntent, user *domain.User) (*domain.TransferResult, error) {
	// 1. Begin transaction
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, domain.NewInfrastructureError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// 2. Lock both accounts in canonical order (DEADLOCK PREVENTION)
	locked, err := uc.accountRepo.GetByRIBsForUpdate(ctx, tx, domain.LockOrder(intent.FromRIB, intent.ToRIB))
	if err != nil {
		return nil, domain.NewInfrastructureError("lock accounts", err)
	}

	var from, to *domain.Account
	for _, acc := range locked {
		switch acc.RIB {
		case intent.FromRIB:
			from = acc
		case intent.ToRIB:
			to = acc
		}
	}

	// 3. Check preconditions against the locked rows
	if from == nil {
		return nil, domain.ErrSourceNotFound
	}
	if to == nil {
		return nil, domain.ErrDestinationNotFound
	}
	if err := from.CheckAvailable(domain.SideSource); err != nil {
		return nil, err
	}
	if err := to.CheckAvailable(domain.SideDestination); err != nil {
		return nil, err
	}
	if err := from.ValidateDebit(intent.Amount); err != nil {
		return nil, err
	}

	// 4. Apply both legs with a shared timestamp
	now := uc.now().UTC()
	transferID := uc.idGen.Generate()

	debit := &domain.Entry{
		TransferID:             transferID,
		AccountID:              from.ID,
		RIB:                    from.RIB,
		Kind:                   domain.EntryKindDebit,
		Amount:                 intent.Amount,
		ActingUserID:           user.ID,
		AccountPreviousBalance: from.Balance,
		AccountCurrentBalance:  from.ApplyDebit(intent.Amount),
		CreatedAt:              now,
	}

	credit := &domain.Entry{
		TransferID:             transferID,
		AccountID:              to.ID,
		RIB:                    to.RIB,
		Kind:                   domain.EntryKindCredit,
		Amount:                 intent.Amount,
		ActingUserID:           user.ID,
		AccountPreviousBalance: to.Balance,
		AccountCurrentBalance:  to.ApplyCredit(intent.Amount),
		CreatedAt:              now,
	}

	if err := uc.entryRepo.Create(ctx, tx, debit); err != nil {
		return nil, domain.NewInfrastructureError("append debit entry", err)
	}
	if err := uc.accountRepo.UpdateBalance(ctx, tx, from.ID, debit.AccountCurrentBalance, now); err != nil {
		return nil, domain.NewInfrastructureError("update source balance", err)
	}
	if err := uc.entryRepo.Create(ctx, tx, credit); err != nil {
		return nil, domain.NewInfrastructureError("append credit entry", err)
	}
	if err := uc.accountRepo.UpdateBalance(ctx, tx, to.ID, credit.AccountCurrentBalance, now); err != nil {
		return nil, domain.NewInfrastructureError("update destination balance", err)
	}

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   transferID,
			AggregateType: domain.AggregateTypeTransfer,
			EventType:     domain.EventTypeTransferCreated,
			Payload: domain.TransferCreatedEvent{
				TransferID:   transferID,
				FromRIB:      from.RIB,
				ToRIB:        to.RIB,
				Amount:       intent.Amount.String(),
				ActingUserID: user.ID,
				EventAt:      now.Format(time.RFC3339Nano),
			}.Payload(),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return nil, domain.NewInfrastructureError("write outbox event", err)
		}
	}

	// 5. Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.NewInfrastructureError("commit transfer", err)
	}

	from = from.Clone()
	from.Balance = debit.AccountCurrentBalance
	from.Version++
	from.UpdatedAt = now

	to = to.Clone()
	to.Balance = credit.AccountCurrentBalance
	to.Version++
	to.UpdatedAt = now

	return &domain.TransferResult{
		TransferID: transferID,
		Debit:      debit,
		Credit:     credit,
		From:       from,
		To:         to,
	}, nil
}

func (uc *TransferUseCase) observe(intent domain.TransferIntent, result *domain.TransferResult, err error, took time.Duration) {
	outcome := OutcomeCommitted

	switch {
	case err == nil:
		uc.logger.Info().
			Str("transfer_id", result.TransferID).
			Str("from", intent.FromRIB).
			Str("to", intent.ToRIB).
			Str("amount", intent.Amount.String()).
			Dur("took", took).
			Msg("transfer committed")
	case errors.Is(err, domain.ErrInfrastructure):
		outcome = OutcomeFailed
		uc.logger.Error().Err(err).
			Str("from", intent.FromRIB).
			Str("to", intent.ToRIB).
			Msg("transfer failed")
	default:
		outcome = OutcomeRejected
		uc.logger.Warn().Err(err).
			Str("from", intent.FromRIB).
			Str("to", intent.ToRIB).
			Str("amount", intent.Amount.String()).
			Msg("transfer rejected")
	}

	if uc.metrics != nil {
		uc.metrics.RecordTransfer(outcome, intent.Amount, took)
	}
}
