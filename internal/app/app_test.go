package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/webhydra/console/internal/audit"
	"github.com/webhydra/console/internal/config"
	"github.com/webhydra/console/internal/gateway"
	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// Router

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()

	var gotArgs []string
	r.Bind("page", func(ctx context.Context, args []string) { gotArgs = args })

	if !r.Dispatch(context.Background(), "page 2") {
		t.Fatal("Dispatch returned false for a bound command")
	}
	if len(gotArgs) != 1 || gotArgs[0] != "2" {
		t.Errorf("handler args = %v, want [2]", gotArgs)
	}

	if r.Dispatch(context.Background(), "bogus") {
		t.Error("Dispatch returned true for an unbound command")
	}
	if !r.Dispatch(context.Background(), "   ") {
		t.Error("Dispatch returned false for a blank line")
	}
}

func TestRouterRebindReplaces(t *testing.T) {
	r := NewRouter()
	calls := ""
	r.Bind("x", func(ctx context.Context, args []string) { calls += "a" })
	r.Bind("x", func(ctx context.Context, args []string) { calls += "b" })
	r.Dispatch(context.Background(), "x")
	if calls != "b" {
		t.Errorf("calls = %q, want only the replacement handler", calls)
	}
}

func TestRouterResetClearsCommands(t *testing.T) {
	r := NewRouter()
	noop := func(ctx context.Context, args []string) {}
	r.Bind("sort", noop)
	r.Bind("filter", noop)

	cmds := r.Commands()
	if len(cmds) != 2 || cmds[0] != "filter" || cmds[1] != "sort" {
		t.Errorf("Commands() = %v, want sorted [filter sort]", cmds)
	}

	r.Reset()
	if got := r.Commands(); len(got) != 0 {
		t.Errorf("Commands() after Reset = %v, want none", got)
	}
	if r.Dispatch(context.Background(), "sort") {
		t.Error("Dispatch found a command after Reset")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// App

// newTestApp builds an App against an unreachable backend and an in-memory
// store, so logins fall back to the local account store.
func newTestApp(t *testing.T, trail *audit.Trail) (*App, *bytes.Buffer) {
	t.Helper()

	srv := httptest.NewServer(nil)
	base := srv.URL
	srv.Close()

	cfg := config.Default()
	cfg.WAFBaseURL = base + "/api"
	cfg.TIBaseURL = base + "/api/ti"
	cfg.PatchURL = base + "/api/patch/recommend"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	gw := gateway.New(cfg, logger, gateway.WithTokenStore(st))

	out := &bytes.Buffer{}
	a, err := New(cfg, logger, st, gw, trail, strings.NewReader(""), out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Destroy)
	return a, out
}

func TestLocalLoginOpensDashboard(t *testing.T) {
	a, out := newTestApp(t, nil)
	ctx := context.Background()

	a.handleLine(ctx, "login admin admin123")

	if !a.auth.IsAuthenticated() {
		t.Fatal("not authenticated after local admin login")
	}
	a.mu.Lock()
	page := a.page
	a.mu.Unlock()
	if page != model.PageDashboard {
		t.Errorf("page = %q, want %q", page, model.PageDashboard)
	}
	if !strings.Contains(out.String(), "signed in as admin") {
		t.Errorf("output missing login confirmation:\n%s", out.String())
	}
}

func TestLoginRejectedWrongPassword(t *testing.T) {
	a, out := newTestApp(t, nil)

	a.handleLine(context.Background(), "login admin wrong")

	if a.auth.IsAuthenticated() {
		t.Fatal("authenticated with a wrong password")
	}
	if !strings.Contains(out.String(), "Invalid") && !strings.Contains(out.String(), "failed") {
		t.Errorf("output missing rejection message:\n%s", out.String())
	}
}

func TestCommandsRequireSession(t *testing.T) {
	a, out := newTestApp(t, nil)

	a.handleLine(context.Background(), "sort severity")

	if !strings.Contains(out.String(), "sign in first") {
		t.Errorf("output = %q, want a sign-in prompt", out.String())
	}
}

func TestNavigationDeniedRedirects(t *testing.T) {
	a, out := newTestApp(t, nil)
	ctx := context.Background()

	if err := a.users.AddUser("viewer1", "pass123", model.RoleViewer); err != nil {
		t.Fatalf("add viewer: %v", err)
	}
	a.handleLine(ctx, "login viewer1 pass123")
	if !a.auth.IsAuthenticated() {
		t.Fatal("viewer login failed")
	}
	out.Reset()

	a.handleLine(ctx, "go users")

	a.mu.Lock()
	page := a.page
	a.mu.Unlock()
	if page == model.PageUsers {
		t.Fatal("viewer opened the users page")
	}
	if page != model.PageDashboard {
		t.Errorf("redirect landed on %q, want %q", page, model.PageDashboard)
	}
	if !strings.Contains(out.String(), "may not open") {
		t.Errorf("output missing the denial message:\n%s", out.String())
	}
}

func TestNavigationResetsCommands(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ctx := context.Background()

	a.handleLine(ctx, "login admin admin123")
	if cmds := a.router.Commands(); len(cmds) == 0 {
		t.Fatal("dashboard bound no commands")
	}

	a.handleLine(ctx, "go logs")
	for _, cmd := range a.router.Commands() {
		if cmd == "sort" {
			t.Error("dashboard command leaked into the logs page")
		}
	}
}

func TestLogoutClearsSessionAndPage(t *testing.T) {
	a, _ := newTestApp(t, nil)
	ctx := context.Background()

	a.handleLine(ctx, "login admin admin123")
	a.handleLine(ctx, "logout")

	if a.auth.IsAuthenticated() {
		t.Error("still authenticated after logout")
	}
	if got := a.router.Commands(); len(got) != 0 {
		t.Errorf("commands still bound after logout: %v", got)
	}
	if a.gw.Token() != "" {
		t.Error("gateway still holds a bearer token after logout")
	}
}

func TestAuditTrailRecordsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	trail, err := audit.Open(path)
	if err != nil {
		t.Fatalf("open trail: %v", err)
	}

	a, _ := newTestApp(t, trail)
	ctx := context.Background()

	a.handleLine(ctx, "login admin wrong")
	a.handleLine(ctx, "login admin admin123")
	a.handleLine(ctx, "go rules")
	a.handleLine(ctx, "rule add test-rule \"blocks nothing\"")
	a.handleLine(ctx, "logout")
	a.Destroy()

	events, err := audit.Verify(path)
	if err != nil {
		t.Fatalf("verify trail: %v", err)
	}
	want := []string{
		audit.ActionLoginFailed,
		audit.ActionLogin,
		audit.ActionRuleEdit,
		audit.ActionLogout,
	}
	if len(events) != len(want) {
		t.Fatalf("trail holds %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Action != want[i] {
			t.Errorf("event %d action = %q, want %q", i, ev.Action, want[i])
		}
	}
	if events[1].Actor != "admin" {
		t.Errorf("login actor = %q, want admin", events[1].Actor)
	}
}

func TestAuditSkipsRejectedCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	trail, err := audit.Open(path)
	if err != nil {
		t.Fatalf("open trail: %v", err)
	}

	a, _ := newTestApp(t, trail)
	ctx := context.Background()

	a.handleLine(ctx, "login admin admin123")
	a.handleLine(ctx, "go rules")
	a.handleLine(ctx, "rule add")          // missing name and description
	a.handleLine(ctx, "rule delete 99")    // no such rule
	a.handleLine(ctx, "rule toggle zero")  // not an id
	a.handleLine(ctx, "go users")
	a.handleLine(ctx, "user delete admin") // admin is protected
	a.handleLine(ctx, "logout")
	a.Destroy()

	events, err := audit.Verify(path)
	if err != nil {
		t.Fatalf("verify trail: %v", err)
	}
	for _, ev := range events {
		if ev.Action == audit.ActionRuleEdit || ev.Action == audit.ActionUserEdit {
			t.Errorf("rejected command was audited as %q (%v)", ev.Action, ev.Details)
		}
	}
	if len(events) != 2 {
		t.Errorf("trail holds %d events, want login and logout only", len(events))
	}
}
