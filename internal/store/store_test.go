package store

import (
	"path/filepath"
	"testing"

	"github.com/webhydra/console/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok := s.Session(); ok {
		t.Fatal("fresh store must report no session")
	}

	want := model.Session{Role: model.RoleAnalyst, Username: "casey", Token: "jwt-1"}
	if err := s.SetSession(want); err != nil {
		t.Fatalf("set session: %v", err)
	}
	got, ok := s.Session()
	if !ok {
		t.Fatal("expected a session after SetSession")
	}
	if got != want {
		t.Errorf("session mismatch: got %+v want %+v", got, want)
	}

	if err := s.ClearSession(); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	if _, ok := s.Session(); ok {
		t.Error("session must be gone after ClearSession")
	}
}

func TestSessionInvalidWithoutToken(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetSession(model.Session{Role: model.RoleAdmin, Username: "admin", Token: "jwt-1"}); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if err := s.ClearAuthToken(); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	if _, ok := s.Session(); ok {
		t.Error("a session without its token must be reported as no session")
	}
}

func TestThemeDefaultsToDark(t *testing.T) {
	s := openTestStore(t)
	if got := s.Theme(); got != DefaultTheme {
		t.Errorf("expected default theme %q, got %q", DefaultTheme, got)
	}
	if err := s.SetTheme("light"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if got := s.Theme(); got != "light" {
		t.Errorf("expected stored theme, got %q", got)
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	s := openTestStore(t)
	if got := s.APIKey(); got != "" {
		t.Errorf("expected empty key, got %q", got)
	}
	if err := s.SetAPIKey("hydra-key-123"); err != nil {
		t.Fatalf("set api key: %v", err)
	}
	if got := s.APIKey(); got != "hydra-key-123" {
		t.Errorf("expected stored key, got %q", got)
	}
}

func TestRuleOverridesMalformedDegradesToEmpty(t *testing.T) {
	s := openTestStore(t)

	if got := s.RuleOverrides(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil overrides, got %#v", got)
	}

	if err := s.set(keyRules, "{{not json"); err != nil {
		t.Fatalf("seed malformed value: %v", err)
	}
	if got := s.RuleOverrides(); got == nil || len(got) != 0 {
		t.Errorf("malformed state must degrade to empty overrides, got %#v", got)
	}

	rules := []model.Rule{{ID: 4, Name: "Block scanner UA", Enabled: true}}
	if err := s.SetRuleOverrides(rules); err != nil {
		t.Fatalf("set overrides: %v", err)
	}
	got := s.RuleOverrides()
	if len(got) != 1 || got[0].ID != 4 {
		t.Errorf("override round trip failed: %#v", got)
	}
}

func TestUsersNilWhenAbsent(t *testing.T) {
	s := openTestStore(t)

	if got := s.Users(); got != nil {
		t.Fatalf("expected nil users before any store, got %#v", got)
	}

	users := []model.User{{Username: "admin", PasswordHash: "x", Role: model.RoleAdmin}}
	if err := s.SetUsers(users); err != nil {
		t.Fatalf("set users: %v", err)
	}
	got := s.Users()
	if len(got) != 1 || got[0].Username != "admin" {
		t.Errorf("user round trip failed: %#v", got)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.SetTheme("light"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if err := s.SetSession(model.Session{Role: model.RoleUser, Username: "riley", Token: "jwt-2"}); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s2.Close()

	if got := s2.Theme(); got != "light" {
		t.Errorf("theme lost across reopen: %q", got)
	}
	sess, ok := s2.Session()
	if !ok || sess.Username != "riley" {
		t.Errorf("session lost across reopen: %+v ok=%v", sess, ok)
	}
}
