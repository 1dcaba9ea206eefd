package ledger_test

import (
	"context"
	"testing"

	"github.com/thebb/points-engine/ledger"
	"github.com/thebb/points-engine/ledger/store"
)

func TestOutbox_NotificationsIncludeBroadcasts(t *testing.T) {
	// GIVEN: A direct notification to a clinic and an "all" broadcast
	// WHEN: The clinic's feed is read
	// THEN: Both appear, newest first

	outbox := ledger.NewOutbox(store.NewMemory())
	ctx := context.Background()

	if err := outbox.Notify(ctx, "clinic_a", ledger.ChannelPush, "new booking"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := outbox.Notify(ctx, ledger.BroadcastRef, ledger.ChannelSystem, "maintenance tonight"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := outbox.Notify(ctx, "clinic_b", ledger.ChannelSMS, "not yours"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	feed, err := outbox.Notifications(ctx, "clinic_a")
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(feed))
	}
	if feed[0].Message != "maintenance tonight" {
		t.Errorf("expected broadcast first (newest), got %q", feed[0].Message)
	}
	if feed[1].Message != "new booking" {
		t.Errorf("expected direct notification second, got %q", feed[1].Message)
	}
}

func TestOutbox_MarkRead_UnknownIDIgnored(t *testing.T) {
	outbox := ledger.NewOutbox(store.NewMemory())
	ctx := context.Background()

	if err := outbox.MarkRead(ctx, "no-such-id"); err != nil {
		t.Errorf("unknown id should be ignored, got %v", err)
	}
}

func TestOutbox_MarkRead_FlipsFlag(t *testing.T) {
	outbox := ledger.NewOutbox(store.NewMemory())
	ctx := context.Background()

	if err := outbox.Notify(ctx, "clinic_a", ledger.ChannelKakao, "balance low"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	feed, _ := outbox.Notifications(ctx, "clinic_a")
	if len(feed) != 1 || feed[0].IsRead {
		t.Fatalf("expected one unread notification, got %+v", feed)
	}

	if err := outbox.MarkRead(ctx, feed[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	feed, _ = outbox.Notifications(ctx, "clinic_a")
	if !feed[0].IsRead {
		t.Errorf("expected notification marked read")
	}
}

func TestOutbox_AuditTrail_NewestFirstWithLimit(t *testing.T) {
	outbox := ledger.NewOutbox(store.NewMemory())
	ctx := context.Background()

	actions := []string{ledger.AuditCharge, ledger.AuditCommission, ledger.AuditRefund}
	for _, action := range actions {
		if err := outbox.Audit(ctx, "admin", action, "clinic_a", ""); err != nil {
			t.Fatalf("audit: %v", err)
		}
	}

	trail, err := outbox.AuditTrail(ctx, 2)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected limit of 2 entries, got %d", len(trail))
	}
	if trail[0].Action != ledger.AuditRefund {
		t.Errorf("expected newest entry first, got %s", trail[0].Action)
	}
}
