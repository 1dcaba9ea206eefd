/*
outbox.go - Notification and audit sinks

PURPOSE:
  Records durable side-effect intents. Nothing is transmitted from here: a
  downstream consumer (SMS gateway, push service, admin dashboard) reads
  the outbox and delivers. Recording instead of delivering keeps the
  booking path free of external I/O while guaranteeing no committed
  financial event loses its trail.

CONTRACT:
  Appends happen as part of the triggering operation's unit of work and
  must succeed before that operation reports success. Callers treat the
  sink as fire-and-forget only in the sense that they never wait for
  delivery.
*/
package ledger

import (
	"context"
	"time"
)

// Outbox appends notifications and audit entries through an OutboxStore.
type Outbox struct {
	store OutboxStore
}

func NewOutbox(store OutboxStore) *Outbox {
	return &Outbox{store: store}
}

// Notify appends an unread notification for the recipient.
// Recipient "admin" or "all" is a broadcast readable by admin-role readers.
func (o *Outbox) Notify(ctx context.Context, recipient AccountRef, channel Channel, message string) error {
	return o.store.AppendNotification(ctx, Notification{
		ID:        NewID(),
		Recipient: recipient,
		Channel:   channel,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	})
}

// Audit appends an immutable entry describing a state-changing operation.
func (o *Outbox) Audit(ctx context.Context, actor, action, target, details string) error {
	return o.store.AppendAudit(ctx, AuditEntry{
		ID:        NewID(),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
}

// Notifications returns the recipient's notifications plus broadcasts,
// most-recent-first.
func (o *Outbox) Notifications(ctx context.Context, recipient AccountRef) ([]Notification, error) {
	return o.store.NotificationsFor(ctx, recipient)
}

// MarkRead flips the read flag. An unknown id is silently ignored.
func (o *Outbox) MarkRead(ctx context.Context, id string) error {
	_, err := o.store.MarkNotificationRead(ctx, id)
	return err
}

// AuditTrail returns up to limit audit entries, most-recent-first.
func (o *Outbox) AuditTrail(ctx context.Context, limit int) ([]AuditEntry, error) {
	return o.store.AuditEntries(ctx, limit)
}
