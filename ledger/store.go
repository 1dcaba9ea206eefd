/*
store.go - Persistence interfaces for accounts, transactions, and the outbox

PURPOSE:
  Defines the interface between the engine and the persistence substrate.
  Different implementations can use SQLite or in-memory storage; the engine
  never touches a database directly.

APPEND-ONLY CONTRACT:
  The transaction log, notification outbox, and audit log are append-only:
  - AppendTransaction / AppendNotification / AppendAudit are the only writes
  - the single exception is MarkNotificationRead, which flips a read flag
  - corrections to the ledger are made via compensating transactions

ATOMICITY:
  WithTx ensures a transaction append and the matching account balance
  update are written together or not at all. A half-written debit (log
  entry without balance change, or vice versa) must never be observable.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - ledger/store: in-memory store for tests and development

SEE ALSO:
  - balance.go: the only writer of account balances
  - outbox.go: higher-level sink over the outbox methods
*/
package ledger

import "context"

// =============================================================================
// STORE - Accounts and the append-only transaction log
// =============================================================================

// Store persists accounts and point transactions.
// Get methods return (nil, nil) when the record is absent; translating a
// miss into a typed error is the caller's job.
type Store interface {
	// SaveAccount inserts or updates an account record.
	// Only the balance Service may change Points through this method.
	SaveAccount(ctx context.Context, acct Account) error

	// GetAccount returns the account or (nil, nil) if absent.
	GetAccount(ctx context.Context, ref AccountRef) (*Account, error)

	// ListAccounts returns accounts of the given kind, oldest first.
	ListAccounts(ctx context.Context, kind AccountKind) ([]Account, error)

	// AppendTransaction persists a ledger entry. Append-only.
	AppendTransaction(ctx context.Context, tx PointTransaction) error

	// TransactionsByAccount returns an account's entries, oldest first.
	TransactionsByAccount(ctx context.Context, ref AccountRef) ([]PointTransaction, error)
}

// TxStore wraps Store with transaction support. If fn returns an error the
// writes made through the passed Store are rolled back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// OUTBOX STORE - Notifications and audit entries
// =============================================================================

type OutboxStore interface {
	// AppendNotification adds an unread notification to the outbox.
	AppendNotification(ctx context.Context, n Notification) error

	// NotificationsFor returns the recipient's notifications plus
	// broadcasts, most-recent-first.
	NotificationsFor(ctx context.Context, recipient AccountRef) ([]Notification, error)

	// MarkNotificationRead flips the read flag. Returns false if the
	// notification doesn't exist.
	MarkNotificationRead(ctx context.Context, id string) (bool, error)

	// AppendAudit adds an immutable audit entry.
	AppendAudit(ctx context.Context, entry AuditEntry) error

	// AuditEntries returns up to limit entries, most-recent-first.
	// limit <= 0 means no limit.
	AuditEntries(ctx context.Context, limit int) ([]AuditEntry, error)
}
