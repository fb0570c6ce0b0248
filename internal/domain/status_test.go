package domain

import "testing"

func TestParseWebhookStatusFromString(t *testing.T) {
	t.Parallel()

	status, err := ParseWebhookStatusFromString(" processed ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != WebhookStatusProcessed {
		t.Fatalf("status = %s, want PROCESSED", status)
	}

	if _, err := ParseWebhookStatusFromString("unknown"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestWebhookStatusTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    WebhookStatus
		terminal  bool
		processed bool
	}{
		{WebhookStatusReceived, false, false},
		{WebhookStatusProcessed, true, true},
		{WebhookStatusDropped, true, true},
		{WebhookStatusDeadLettered, true, false},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Fatalf("%s IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
		if got := tt.status.IsProcessed(); got != tt.processed {
			t.Fatalf("%s IsProcessed() = %v, want %v", tt.status, got, tt.processed)
		}
	}
}

func TestDeliveryStatusTerminal(t *testing.T) {
	t.Parallel()

	if DeliveryStatusPending.IsTerminal() {
		t.Fatal("PENDING should not be terminal")
	}
	for _, status := range []DeliveryStatus{DeliveryStatusDelivered, DeliveryStatusFailed, DeliveryStatusCanceled} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
}

func TestSubscriptionMatches(t *testing.T) {
	t.Parallel()

	sub := Subscription{Events: []string{"order.created"}}
	if !sub.Matches("order.created") {
		t.Fatal("subscribed event should match")
	}
	if sub.Matches("order.deleted") {
		t.Fatal("unsubscribed event should not match")
	}
}
