/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore, ledger.OutboxStore, and booking.Store on a
  single SQLite database. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch the transactions, notifications
  (beyond the read flag), or audit tables. Ledger corrections are made via
  compensating transactions only.

KEY TABLES:
  accounts:       users and clinics with their current point balance
  transactions:   immutable points ledger
  events:         bookable clinic promotions
  reservations:   booking outcomes (status may flip to cancelled)
  notifications:  side-effect outbox
  audit_log:      immutable audit trail

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers don't
  block, one writer at a time, better crash recovery.

USAGE:
  st, err := sqlite.New("./data/points.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  svc := ledger.NewService(st)

SEE ALSO:
  - ledger/store.go, booking/store.go: interface definitions
  - ledger/store, booking/store: in-memory implementations for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thebb/points-engine/booking"
	"github.com/thebb/points-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ ledger.TxStore     = (*Store)(nil)
	_ ledger.OutboxStore = (*Store)(nil)
	_ booking.Store      = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		ref TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		contact TEXT,
		email TEXT,
		points INTEGER NOT NULL DEFAULT 0,
		commission_rate INTEGER NOT NULL DEFAULT 0,
		status TEXT,
		created_at TEXT NOT NULL
	);

	-- Append-only points ledger
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_ref TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		description TEXT,
		method TEXT,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_account
		ON transactions(account_ref, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_id);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		clinic_ref TEXT NOT NULL,
		title TEXT NOT NULL,
		price INTEGER NOT NULL,
		promoted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_clinic ON events(clinic_ref);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		contact TEXT,
		customer_ref TEXT,
		event_id TEXT NOT NULL,
		clinic_ref TEXT NOT NULL,
		options_json TEXT,
		total_price INTEGER NOT NULL,
		commission INTEGER NOT NULL,
		transaction_id TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reservations_clinic
		ON reservations(clinic_ref, submitted_at);
	CREATE INDEX IF NOT EXISTS idx_reservations_month
		ON reservations(submitted_at);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		channel TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON notifications(recipient, created_at);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		target TEXT,
		details TEXT,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same helpers serve
// plain calls and WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, acct ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAccount(ctx, s.db, acct)
}

func saveAccount(ctx context.Context, db dbtx, acct ledger.Account) error {
	query := `
		INSERT INTO accounts (ref, kind, name, contact, email, points, commission_rate, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			name = excluded.name,
			contact = excluded.contact,
			email = excluded.email,
			points = excluded.points,
			commission_rate = excluded.commission_rate,
			status = excluded.status
	`
	_, err := db.ExecContext(ctx, query,
		acct.Ref, acct.Kind, acct.Name, acct.Contact, acct.Email,
		acct.Points, acct.CommissionRate, acct.Status,
		acct.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetAccount(ctx context.Context, ref ledger.AccountRef) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, ref)
}

func getAccount(ctx context.Context, db dbtx, ref ledger.AccountRef) (*ledger.Account, error) {
	var acct ledger.Account
	var createdAt string
	err := db.QueryRowContext(ctx, `
		SELECT ref, kind, name, contact, email, points, commission_rate, status, created_at
		FROM accounts WHERE ref = ?`, ref,
	).Scan(&acct.Ref, &acct.Kind, &acct.Name, &acct.Contact, &acct.Email,
		&acct.Points, &acct.CommissionRate, &acct.Status, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acct.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &acct, nil
}

func (s *Store) ListAccounts(ctx context.Context, kind ledger.AccountKind) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ref, kind, name, contact, email, points, commission_rate, status, created_at
		FROM accounts WHERE kind = ? ORDER BY created_at`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var acct ledger.Account
		var createdAt string
		if err := rows.Scan(&acct.Ref, &acct.Kind, &acct.Name, &acct.Contact, &acct.Email,
			&acct.Points, &acct.CommissionRate, &acct.Status, &createdAt); err != nil {
			return nil, err
		}
		acct.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, acct)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS (append-only)
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx ledger.PointTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, db dbtx, tx ledger.PointTransaction) error {
	query := `
		INSERT INTO transactions (id, account_ref, kind, amount, description, method, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		tx.ID, tx.Account, tx.Kind, tx.Amount, tx.Description, tx.Method, tx.ReferenceID,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func (s *Store) TransactionsByAccount(ctx context.Context, ref ledger.AccountRef) ([]ledger.PointTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsByAccount(ctx, s.db, ref)
}

func transactionsByAccount(ctx context.Context, db dbtx, ref ledger.AccountRef) ([]ledger.PointTransaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, account_ref, kind, amount, description, method, reference_id, created_at
		FROM transactions WHERE account_ref = ? ORDER BY created_at, id`, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.PointTransaction
	for rows.Next() {
		var tx ledger.PointTransaction
		var createdAt string
		if err := rows.Scan(&tx.ID, &tx.Account, &tx.Kind, &tx.Amount,
			&tx.Description, &tx.Method, &tx.ReferenceID, &createdAt); err != nil {
			return nil, err
		}
		tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction. If fn returns an
// error, the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every call through the open sql.Tx. It never takes the
// store mutex; WithTx already holds it.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveAccount(ctx context.Context, acct ledger.Account) error {
	return saveAccount(ctx, ts.tx, acct)
}

func (ts *txStore) GetAccount(ctx context.Context, ref ledger.AccountRef) (*ledger.Account, error) {
	return getAccount(ctx, ts.tx, ref)
}

func (ts *txStore) ListAccounts(ctx context.Context, kind ledger.AccountKind) ([]ledger.Account, error) {
	rows, err := ts.tx.QueryContext(ctx, `
		SELECT ref, kind, name, contact, email, points, commission_rate, status, created_at
		FROM accounts WHERE kind = ? ORDER BY created_at`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var acct ledger.Account
		var createdAt string
		if err := rows.Scan(&acct.Ref, &acct.Kind, &acct.Name, &acct.Contact, &acct.Email,
			&acct.Points, &acct.CommissionRate, &acct.Status, &createdAt); err != nil {
			return nil, err
		}
		acct.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (ts *txStore) AppendTransaction(ctx context.Context, tx ledger.PointTransaction) error {
	return appendTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) TransactionsByAccount(ctx context.Context, ref ledger.AccountRef) ([]ledger.PointTransaction, error) {
	return transactionsByAccount(ctx, ts.tx, ref)
}

// =============================================================================
// EVENTS
// =============================================================================

func (s *Store) SaveEvent(ctx context.Context, ev booking.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO events (id, clinic_ref, title, price, promoted, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			promoted = excluded.promoted
	`
	_, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.Clinic, ev.Title, ev.Price, boolToInt(ev.Promoted),
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetEvent(ctx context.Context, id booking.EventID) (*booking.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ev booking.Event
	var promoted int
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, clinic_ref, title, price, promoted, created_at
		FROM events WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.Clinic, &ev.Title, &ev.Price, &promoted, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ev.Promoted = promoted != 0
	ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &ev, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]booking.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEvents(ctx, `
		SELECT id, clinic_ref, title, price, promoted, created_at
		FROM events ORDER BY created_at`)
}

func (s *Store) EventsByClinic(ctx context.Context, clinic ledger.AccountRef) ([]booking.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEvents(ctx, `
		SELECT id, clinic_ref, title, price, promoted, created_at
		FROM events WHERE clinic_ref = ? ORDER BY created_at`, clinic)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]booking.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Event
	for rows.Next() {
		var ev booking.Event
		var promoted int
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.Clinic, &ev.Title, &ev.Price, &promoted, &createdAt); err != nil {
			return nil, err
		}
		ev.Promoted = promoted != 0
		ev.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (s *Store) SaveReservation(ctx context.Context, r booking.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	optionsJSON, _ := json.Marshal(r.Options)
	query := `
		INSERT INTO reservations
		(id, customer_name, contact, customer_ref, event_id, clinic_ref,
		 options_json, total_price, commission, transaction_id, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.CustomerName, r.Contact, r.CustomerRef, r.EventID, r.Clinic,
		string(optionsJSON), r.TotalPrice, r.Commission, r.TransactionID, r.Status,
		r.SubmittedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations, err := s.queryReservations(ctx, `
		SELECT id, customer_name, contact, customer_ref, event_id, clinic_ref,
		       options_json, total_price, commission, transaction_id, status, submitted_at
		FROM reservations WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, nil
	}
	return &reservations[0], nil
}

func (s *Store) ReservationsByClinic(ctx context.Context, clinic ledger.AccountRef) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryReservations(ctx, `
		SELECT id, customer_name, contact, customer_ref, event_id, clinic_ref,
		       options_json, total_price, commission, transaction_id, status, submitted_at
		FROM reservations WHERE clinic_ref = ? ORDER BY submitted_at DESC`, clinic)
}

func (s *Store) ListReservations(ctx context.Context) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryReservations(ctx, `
		SELECT id, customer_name, contact, customer_ref, event_id, clinic_ref,
		       options_json, total_price, commission, transaction_id, status, submitted_at
		FROM reservations ORDER BY submitted_at`)
}

func (s *Store) ReservationsInMonth(ctx context.Context, year int, month time.Month) ([]booking.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := fmt.Sprintf("%04d-%02d", year, int(month))
	return s.queryReservations(ctx, `
		SELECT id, customer_name, contact, customer_ref, event_id, clinic_ref,
		       options_json, total_price, commission, transaction_id, status, submitted_at
		FROM reservations WHERE submitted_at LIKE ? ORDER BY submitted_at`, prefix+"%")
}

func (s *Store) queryReservations(ctx context.Context, query string, args ...any) ([]booking.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		var r booking.Reservation
		var optionsJSON, submittedAt string
		if err := rows.Scan(&r.ID, &r.CustomerName, &r.Contact, &r.CustomerRef, &r.EventID,
			&r.Clinic, &optionsJSON, &r.TotalPrice, &r.Commission, &r.TransactionID,
			&r.Status, &submittedAt); err != nil {
			return nil, err
		}
		if optionsJSON != "" && optionsJSON != "null" {
			_ = json.Unmarshal([]byte(optionsJSON), &r.Options)
		}
		r.SubmittedAt, _ = time.Parse(time.RFC3339Nano, submittedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// NOTIFICATION OUTBOX & AUDIT LOG
// =============================================================================

func (s *Store) AppendNotification(ctx context.Context, n ledger.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient, channel, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Recipient, n.Channel, n.Message, boolToInt(n.IsRead),
		n.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) NotificationsFor(ctx context.Context, recipient ledger.AccountRef) ([]ledger.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient, channel, message, is_read, created_at
		FROM notifications WHERE recipient = ? OR recipient = ?
		ORDER BY created_at DESC`, recipient, ledger.BroadcastRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Notification
	for rows.Next() {
		var n ledger.Notification
		var isRead int
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Channel, &n.Message, &isRead, &createdAt); err != nil {
			return nil, err
		}
		n.IsRead = isRead != 0
		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (s *Store) AppendAudit(ctx context.Context, entry ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor, action, target, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Actor, entry.Action, entry.Target, entry.Details,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) AuditEntries(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, actor, action, target, details, created_at
		FROM audit_log ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.AuditEntry
	for rows.Next() {
		var e ledger.AuditEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Target, &e.Details, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data. Used by the demo scenario loader only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"accounts", "transactions", "events", "reservations", "notifications", "audit_log"}
	var stmts []string
	for _, t := range tables {
		stmts = append(stmts, "DELETE FROM "+t)
	}
	_, err := s.db.ExecContext(ctx, strings.Join(stmts, "; "))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
