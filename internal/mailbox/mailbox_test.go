package mailbox_test

import (
	"testing"

	"github.com/raoulx24/camrelay/internal/mailbox"
)

func TestLatestValueWins(t *testing.T) {
	mb := mailbox.New[string]()
	if mb.TryTake() != nil {
		t.Fatal("expected empty mailbox")
	}

	mb.Put("first")
	mb.Put("second")
	if !mb.Pending() {
		t.Fatal("expected pending value")
	}

	got := mb.TryTake()
	if got == nil || *got != "second" {
		t.Fatalf("TryTake = %v, want second", got)
	}
	if mb.Pending() || mb.TryTake() != nil {
		t.Fatal("slot should be cleared after take")
	}
}
