package audit_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/webhydra/console/internal/audit"
)

func tmpTrail(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "audit.log")
}

func openTrail(t *testing.T, path string) *audit.Trail {
	t.Helper()
	trail, err := audit.Open(path)
	if err != nil {
		t.Fatalf("audit.Open(%q): %v", path, err)
	}
	t.Cleanup(func() { _ = trail.Close() })
	return trail
}

func mustRecord(t *testing.T, trail *audit.Trail, actor, action string, details map[string]string) audit.Event {
	t.Helper()
	e, err := trail.Record(actor, action, details)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	return e
}

func TestRecordFirstEvent(t *testing.T) {
	trail := openTrail(t, tmpTrail(t))
	e := mustRecord(t, trail, "admin", audit.ActionLogin, nil)

	if e.Seq != 1 {
		t.Errorf("seq = %d, want 1", e.Seq)
	}
	if e.PrevHash != audit.GenesisHash {
		t.Errorf("prev_hash = %q, want genesis", e.PrevHash)
	}
	if len(e.EventHash) != 64 {
		t.Errorf("event_hash length = %d, want 64", len(e.EventHash))
	}
	if e.ID == "" {
		t.Error("event id must be assigned")
	}
}

func TestChainLinksAcrossEvents(t *testing.T) {
	trail := openTrail(t, tmpTrail(t))
	first := mustRecord(t, trail, "admin", audit.ActionRuleAdd, map[string]string{"rule": "4"})
	second := mustRecord(t, trail, "admin", audit.ActionRuleToggle, map[string]string{"rule": "4"})

	if second.PrevHash != first.EventHash {
		t.Errorf("second event prev_hash = %q, want first event_hash %q",
			second.PrevHash, first.EventHash)
	}
	if second.Seq != 2 {
		t.Errorf("seq = %d, want 2", second.Seq)
	}
}

func TestVerifyAcceptsValidTrail(t *testing.T) {
	path := tmpTrail(t)
	trail := openTrail(t, path)
	mustRecord(t, trail, "admin", audit.ActionLogin, nil)
	mustRecord(t, trail, "admin", audit.ActionUserAdd, map[string]string{"user": "casey"})
	mustRecord(t, trail, "admin", audit.ActionLogout, nil)

	events, err := audit.Verify(path)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[1].Details["user"] != "casey" {
		t.Errorf("details lost: %+v", events[1].Details)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	path := tmpTrail(t)
	trail := openTrail(t, path)
	mustRecord(t, trail, "admin", audit.ActionUserDelete, map[string]string{"user": "riley"})

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trail: %v", err)
	}
	tampered := strings.Replace(string(raw), "riley", "casey", 1)
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatalf("write tampered trail: %v", err)
	}

	if _, err := audit.Verify(path); err == nil {
		t.Fatal("Verify must reject an edited event")
	}
}

func TestOpenResumesChain(t *testing.T) {
	path := tmpTrail(t)

	trail, err := audit.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first := mustRecord(t, trail, "admin", audit.ActionLogin, nil)
	if err := trail.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTrail(t, path)
	second := mustRecord(t, reopened, "admin", audit.ActionLogout, nil)
	if second.Seq != 2 {
		t.Errorf("seq after reopen = %d, want 2", second.Seq)
	}
	if second.PrevHash != first.EventHash {
		t.Error("chain must continue from the persisted tail")
	}

	if _, err := audit.Verify(path); err != nil {
		t.Errorf("full chain must verify after reopen: %v", err)
	}
}
