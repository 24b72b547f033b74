// Package memory is a transactional in-process substrate for the ledger.
//
// Writers take per-rib row locks, stage their effects on a Tx and publish
// them in one step on Commit. Readers take the store's read lock, so they
// see every transfer either fully applied or not at all.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

var (
	// ErrTxDone is returned when a committed or rolled back Tx is reused.
	ErrTxDone = errors.New("memory: transaction already finished")
	// ErrNotLocked is returned when a write targets a row the Tx does not hold.
	ErrNotLocked = errors.New("memory: row not locked by transaction")

	errForeignTx = errors.New("memory: transaction not created by this store")
)

// Store holds all committed state.
type Store struct {
	mu sync.RWMutex

	accounts map[int64]*domain.Account
	byRIB    map[string]int64

	entries    []*domain.Entry
	byAccount  map[int64][]*domain.Entry
	byTransfer map[string][]*domain.Entry

	outbox []*domain.OutboxEvent

	users      map[string]*domain.User
	byUsername map[string]string
	customers  map[string]*domain.Customer

	nextAccountID int64
	nextEntryID   int64

	locksMu  sync.Mutex
	rowLocks map[string]chan struct{}

	commitHook func() error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:   make(map[int64]*domain.Account),
		byRIB:      make(map[string]int64),
		byAccount:  make(map[int64][]*domain.Entry),
		byTransfer: make(map[string][]*domain.Entry),
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]string),
		customers:  make(map[string]*domain.Customer),
		rowLocks:   make(map[string]chan struct{}),
	}
}

// SetCommitHook installs fn to run at the start of every commit. A non-nil
// error aborts the commit with nothing applied.
func (s *Store) SetCommitHook(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = fn
}

func (s *Store) rowLock(rib string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	ch, ok := s.rowLocks[rib]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[rib] = ch
	}
	return ch
}

type snapshotKey struct{}

// rlock takes the read lock unless ctx already carries this store's
// snapshot. It returns the matching unlock.
func (s *Store) rlock(ctx context.Context) func() {
	if held, _ := ctx.Value(snapshotKey{}).(*Store); held == s {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// TxManager implements usecase.TransactionManager and usecase.SnapshotReader.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: m.store, held: make(map[string]bool)}, nil
}

// ReadSnapshot holds the store's read lock while fn runs, so no commit can
// land between the reads fn makes with the derived context.
func (m *TxManager) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := m.store.rlock(ctx)
	defer unlock()

	return fn(context.WithValue(ctx, snapshotKey{}, m.store))
}

type balanceUpdate struct {
	balance   decimal.Decimal
	updatedAt time.Time
}

type statusUpdate struct {
	status    domain.AccountStatus
	updatedAt time.Time
}

// Tx stages writes until Commit.
type Tx struct {
	store *Store

	order []string
	held  map[string]bool

	accounts []*domain.Account
	balances map[int64]balanceUpdate
	statuses map[int64]statusUpdate
	entries  []*domain.Entry
	events   []*domain.OutboxEvent

	done bool
}

func asTx(s *Store, tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	if t.done {
		return nil, ErrTxDone
	}
	return t, nil
}

// lock acquires the row lock for rib, blocking until it is free or ctx ends.
func (t *Tx) lock(ctx context.Context, rib string) error {
	if t.held[rib] {
		return nil
	}

	select {
	case t.store.rowLock(rib) <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.held[rib] = true
	t.order = append(t.order, rib)
	return nil
}

// LockOrder returns the ribs this transaction locked, in acquisition order.
func (t *Tx) LockOrder() []string {
	return append([]string(nil), t.order...)
}

func (t *Tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		<-t.store.rowLock(t.order[i])
	}
	t.order = nil
	t.held = map[string]bool{}
}

func (t *Tx) holds(accountID int64) error {
	t.store.mu.RLock()
	acc, ok := t.store.accounts[accountID]
	t.store.mu.RUnlock()

	if !ok {
		return domain.ErrAccountNotFound
	}
	if !t.held[acc.RIB] {
		return fmt.Errorf("%w: %s", ErrNotLocked, acc.RIB)
	}
	return nil
}

// Commit applies every staged effect at once and releases the row locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.release()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitHook != nil {
		if err := s.commitHook(); err != nil {
			return err
		}
	}

	for _, acc := range t.accounts {
		if _, exists := s.byRIB[acc.RIB]; exists {
			return domain.ErrDuplicateRIB
		}
	}

	for _, acc := range t.accounts {
		s.nextAccountID++
		acc.ID = s.nextAccountID
		s.accounts[acc.ID] = acc.Clone()
		s.byRIB[acc.RIB] = acc.ID
	}

	for id, u := range t.balances {
		acc := s.accounts[id]
		acc.Balance = u.balance
		acc.UpdatedAt = u.updatedAt
		acc.Version++
	}

	for id, u := range t.statuses {
		acc := s.accounts[id]
		acc.Status = u.status
		acc.UpdatedAt = u.updatedAt
		acc.Version++
	}

	for _, e := range t.entries {
		s.nextEntryID++
		e.ID = s.nextEntryID
		stored := e.Clone()
		s.entries = append(s.entries, stored)
		s.byAccount[stored.AccountID] = append(s.byAccount[stored.AccountID], stored)
		s.byTransfer[stored.TransferID] = append(s.byTransfer[stored.TransferID], stored)
	}

	for _, ev := range t.events {
		c := *ev
		s.outbox = append(s.outbox, &c)
	}

	return nil
}

// Rollback discards staged effects. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}
