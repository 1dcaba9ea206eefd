// Package store provides in-memory ledger Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/thebb/points-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	accounts      map[ledger.AccountRef]ledger.Account
	transactions  map[ledger.AccountRef][]ledger.PointTransaction
	notifications []ledger.Notification
	audit         []ledger.AuditEntry
}

var (
	_ ledger.TxStore     = (*Memory)(nil)
	_ ledger.OutboxStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[ledger.AccountRef]ledger.Account),
		transactions: make(map[ledger.AccountRef][]ledger.PointTransaction),
	}
}

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

func (m *Memory) SaveAccount(_ context.Context, acct ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.Ref] = acct
	return nil
}

func (m *Memory) GetAccount(_ context.Context, ref ledger.AccountRef) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[ref]
	if !ok {
		return nil, nil
	}
	cp := acct
	return &cp, nil
}

func (m *Memory) ListAccounts(_ context.Context, kind ledger.AccountKind) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Account
	for _, acct := range m.accounts {
		if acct.Kind == kind {
			out = append(out, acct)
		}
	}
	// Oldest first, matching the SQLite store's ordering.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// Transactions (append-only)
// -----------------------------------------------------------------------------

func (m *Memory) AppendTransaction(_ context.Context, tx ledger.PointTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.Account] = append(m.transactions[tx.Account], tx)
	return nil
}

func (m *Memory) TransactionsByAccount(_ context.Context, ref ledger.AccountRef) ([]ledger.PointTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txs := m.transactions[ref]
	out := make([]ledger.PointTransaction, len(txs))
	copy(out, txs)
	return out, nil
}

// -----------------------------------------------------------------------------
// WithTx - simulated with a snapshot + rollback on error
// -----------------------------------------------------------------------------

func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txMemoryView{parent: m}

	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts     map[ledger.AccountRef]ledger.Account
	transactions map[ledger.AccountRef][]ledger.PointTransaction
}

func (m *Memory) snapshot() memorySnapshot {
	accounts := make(map[ledger.AccountRef]ledger.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	txs := make(map[ledger.AccountRef][]ledger.PointTransaction, len(m.transactions))
	for k, v := range m.transactions {
		txs[k] = append([]ledger.PointTransaction{}, v...)
	}
	return memorySnapshot{accounts: accounts, transactions: txs}
}

func (m *Memory) restore(s memorySnapshot) {
	m.accounts = s.accounts
	m.transactions = s.transactions
}

// txMemoryView writes directly into the parent while the parent's lock is
// held by WithTx; a failed fn rolls back via the snapshot.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SaveAccount(_ context.Context, acct ledger.Account) error {
	tv.parent.accounts[acct.Ref] = acct
	return nil
}

func (tv *txMemoryView) GetAccount(_ context.Context, ref ledger.AccountRef) (*ledger.Account, error) {
	acct, ok := tv.parent.accounts[ref]
	if !ok {
		return nil, nil
	}
	cp := acct
	return &cp, nil
}

func (tv *txMemoryView) ListAccounts(_ context.Context, kind ledger.AccountKind) ([]ledger.Account, error) {
	var out []ledger.Account
	for _, acct := range tv.parent.accounts {
		if acct.Kind == kind {
			out = append(out, acct)
		}
	}
	return out, nil
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, tx ledger.PointTransaction) error {
	tv.parent.transactions[tx.Account] = append(tv.parent.transactions[tx.Account], tx)
	return nil
}

func (tv *txMemoryView) TransactionsByAccount(_ context.Context, ref ledger.AccountRef) ([]ledger.PointTransaction, error) {
	return tv.parent.transactions[ref], nil
}

// -----------------------------------------------------------------------------
// Outbox
// -----------------------------------------------------------------------------

func (m *Memory) AppendNotification(_ context.Context, n ledger.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *Memory) NotificationsFor(_ context.Context, recipient ledger.AccountRef) ([]ledger.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		if n.Recipient == recipient || n.Recipient == ledger.BroadcastRef {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) AppendAudit(_ context.Context, entry ledger.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) AuditEntries(_ context.Context, limit int) ([]ledger.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.audit[i])
	}
	return out, nil
}
