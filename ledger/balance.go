/*
balance.go - The balance Service: credit/debit primitives

PURPOSE:
  Owns every mutation of Account.Points. A credit or debit appends a
  PointTransaction and updates the stored balance in one atomic unit, so
  the central invariant always holds:

      Account.Points == sum(tx.Amount for tx in history(account))
      Account.Points >= 0

CONCURRENCY:
  The critical resource is a single account's balance. Two concurrent
  debits against the same clinic must not both observe a stale balance and
  both succeed when only one could be funded. The Service holds a
  per-account mutex across the read-check-append-update sequence, which
  gives per-account serializability without coordinating unrelated
  accounts.

FAILURE MODES:
  - debit with balance < amount: no mutation, *InsufficientPointsError
    carrying the shortfall
  - BalanceOf finding a stored balance that disagrees with the transaction
    sum, or a negative sum: *InvariantViolationError (fatal, never
    corrected silently)

SEE ALSO:
  - store.go: WithTx, the atomic write boundary
  - booking: the only caller that triggers commission-kind debits
*/
package ledger

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// SERVICE - Exclusive owner of account balance writes
// =============================================================================

type Service struct {
	store TxStore

	mu    sync.Mutex
	locks map[AccountRef]*sync.Mutex
}

func NewService(store TxStore) *Service {
	return &Service{
		store: store,
		locks: make(map[AccountRef]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing operations on one account.
func (s *Service) lockFor(ref AccountRef) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[ref]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ref] = l
	}
	return l
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

// CreateAccount registers a new account with zero points.
func (s *Service) CreateAccount(ctx context.Context, acct Account) (*Account, error) {
	existing, err := s.store.GetAccount(ctx, acct.Ref)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	acct.Points = 0
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}
	if acct.Kind == KindClinic && acct.CommissionRate == 0 {
		acct.CommissionRate = DefaultCommissionRate
	}
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Account returns the account or (nil, nil) if absent.
func (s *Service) Account(ctx context.Context, ref AccountRef) (*Account, error) {
	return s.store.GetAccount(ctx, ref)
}

// ListClinics returns all clinic accounts, oldest first.
func (s *Service) ListClinics(ctx context.Context) ([]Account, error) {
	return s.store.ListAccounts(ctx, KindClinic)
}

// ListUsers returns all user accounts, oldest first.
func (s *Service) ListUsers(ctx context.Context) ([]Account, error) {
	return s.store.ListAccounts(ctx, KindUser)
}

// UpdateAccount persists administrative field changes (status, commission
// rate). It refuses to change Points: the current stored balance always
// wins, so admin updates can never bypass the ledger.
func (s *Service) UpdateAccount(ctx context.Context, acct Account) error {
	l := s.lockFor(acct.Ref)
	l.Lock()
	defer l.Unlock()

	current, err := s.store.GetAccount(ctx, acct.Ref)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrAccountNotFound
	}
	acct.Points = current.Points
	return s.store.SaveAccount(ctx, acct)
}

// =============================================================================
// CREDIT / DEBIT PRIMITIVES
// =============================================================================

// Credit increases the balance and appends a positive transaction.
// Returns the recorded transaction and the new balance.
func (s *Service) Credit(ctx context.Context, ref AccountRef, amount int64, kind TxKind, desc, method, referenceID string) (*PointTransaction, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}

	l := s.lockFor(ref)
	l.Lock()
	defer l.Unlock()

	acct, err := s.store.GetAccount(ctx, ref)
	if err != nil {
		return nil, 0, err
	}
	if acct == nil {
		return nil, 0, ErrAccountNotFound
	}

	tx := PointTransaction{
		ID:          NewID(),
		Account:     ref,
		Kind:        kind,
		Amount:      amount,
		Description: desc,
		Method:      method,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	}
	newBalance := acct.Points + amount

	if err := s.commit(ctx, *acct, newBalance, tx); err != nil {
		return nil, 0, err
	}
	return &tx, newBalance, nil
}

// Debit decreases the balance after an atomic sufficient-funds check.
// On shortage nothing is written and the returned error carries the
// shortfall.
func (s *Service) Debit(ctx context.Context, ref AccountRef, amount int64, kind TxKind, desc, referenceID string) (*PointTransaction, int64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}

	l := s.lockFor(ref)
	l.Lock()
	defer l.Unlock()

	acct, err := s.store.GetAccount(ctx, ref)
	if err != nil {
		return nil, 0, err
	}
	if acct == nil {
		return nil, 0, ErrAccountNotFound
	}

	if acct.Points < amount {
		return nil, 0, &InsufficientPointsError{
			Account:   ref,
			Available: acct.Points,
			Requested: amount,
			Shortfall: amount - acct.Points,
		}
	}

	tx := PointTransaction{
		ID:          NewID(),
		Account:     ref,
		Kind:        kind,
		Amount:      -amount,
		Description: desc,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	}
	newBalance := acct.Points - amount

	if err := s.commit(ctx, *acct, newBalance, tx); err != nil {
		return nil, 0, err
	}
	return &tx, newBalance, nil
}

// commit writes the transaction and the updated balance as one unit.
func (s *Service) commit(ctx context.Context, acct Account, newBalance int64, tx PointTransaction) error {
	return s.store.WithTx(ctx, func(st Store) error {
		if err := st.AppendTransaction(ctx, tx); err != nil {
			return err
		}
		acct.Points = newBalance
		return st.SaveAccount(ctx, acct)
	})
}

// =============================================================================
// READS
// =============================================================================

// BalanceOf returns the current balance, verified against the transaction
// sum. A mismatch or a negative sum means the ledger is corrupt and is
// surfaced as an invariant violation, not silently corrected.
func (s *Service) BalanceOf(ctx context.Context, ref AccountRef) (int64, error) {
	acct, err := s.store.GetAccount(ctx, ref)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, ErrAccountNotFound
	}

	txs, err := s.store.TransactionsByAccount(ctx, ref)
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, tx := range txs {
		sum += tx.Amount
	}

	if sum != acct.Points {
		return 0, &InvariantViolationError{
			AccountAffected: ref,
			StoredBalance:   acct.Points,
			ComputedBalance: sum,
			Detail:          "stored balance disagrees with transaction history",
		}
	}
	if sum < 0 {
		return 0, &InvariantViolationError{
			AccountAffected: ref,
			StoredBalance:   acct.Points,
			ComputedBalance: sum,
			Detail:          "computed balance is negative",
		}
	}
	return acct.Points, nil
}

// History returns the account's transactions, most-recent-first.
func (s *Service) History(ctx context.Context, ref AccountRef) ([]PointTransaction, error) {
	acct, err := s.store.GetAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}

	txs, err := s.store.TransactionsByAccount(ctx, ref)
	if err != nil {
		return nil, err
	}

	// Stored oldest first; callers want newest first.
	out := make([]PointTransaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	return out, nil
}
