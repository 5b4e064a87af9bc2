// Package app assembles the console: it owns the constructed application
// state (models, gateway, store, audit trail), the command input loop, page
// navigation with permission checks, and the single teardown path. Nothing
// in the console lives in package-level mutable state; everything hangs off
// the App built at startup.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/webhydra/console/internal/audit"
	"github.com/webhydra/console/internal/config"
	"github.com/webhydra/console/internal/controller"
	"github.com/webhydra/console/internal/gateway"
	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/store"
	"github.com/webhydra/console/internal/view"
)

const banner = `
 _      __     __      __ __      __
| | /| / /__  / /  ___/ // /_ __ / /__ ___ ____ ___ _
| |/ |/ / -_)/ _ \/ _ / _  / // // _  // __// _ '/ _ \
|__/|__/\__//_.__/\__/_//_/\_, / \_,_//_/   \_,_/ .__/
                          /___/                /_/
`

// Controller is the lifecycle every page controller exposes.
type Controller interface {
	Init(ctx context.Context, bind controller.Binder)
	Render()
	Destroy()
}

// App is the constructed application state. Create one with New and run it
// with Run; Destroy tears everything down exactly once.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	st     *store.Store
	gw     *gateway.Client
	data   *model.DataModel
	users  *model.UserModel
	auth   *model.AuthModel
	trail  *audit.Trail

	in  io.Reader
	out io.Writer

	router *Router

	mu   sync.Mutex
	page string
	ctrl Controller

	destroyOnce sync.Once
}

// New wires the application. trail may be nil to run without an audit
// trail.
func New(cfg *config.Config, logger *slog.Logger, st *store.Store, gw *gateway.Client, trail *audit.Trail, in io.Reader, out io.Writer) (*App, error) {
	users, err := model.NewUserModel(st)
	if err != nil {
		return nil, fmt.Errorf("app: init user model: %w", err)
	}
	return &App{
		cfg:    cfg,
		logger: logger,
		st:     st,
		gw:     gw,
		data:   model.NewDataModel(gw, st),
		users:  users,
		auth:   model.NewAuthModel(st, users, gw),
		trail:  trail,
		in:     in,
		out:    out,
		router: NewRouter(),
	}, nil
}

// Run restores any persisted session, opens the first page, and serves the
// input loop until the reader ends, a quit command arrives, or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Destroy()

	fmt.Fprint(a.out, banner)
	if a.auth.IsAuthenticated() {
		sess := a.auth.CurrentSession()
		view.Statusf(a.out, "restored session for %s (%s)", sess.Username, sess.Role)
		a.gw.SetToken(sess.Token)
		a.Navigate(ctx, model.PageDashboard)
	} else {
		view.Statusf(a.out, "not signed in; use: login <username> <password>")
	}

	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		a.handleLine(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("app: read input: %w", err)
	}
	return nil
}

// handleLine routes one input line: global commands first, then the current
// page's commands.
func (a *App) handleLine(ctx context.Context, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "help":
		a.printHelp()
		return
	case "login":
		a.login(ctx, fields[1:])
		return
	case "logout":
		a.logout()
		return
	case "go":
		if len(fields) != 2 {
			view.Errorf(a.out, "usage: go <page>")
			return
		}
		a.Navigate(ctx, fields[1])
		return
	}

	if !a.auth.IsAuthenticated() {
		view.Errorf(a.out, "sign in first: login <username> <password>")
		return
	}
	if !a.router.Dispatch(ctx, line) {
		view.Errorf(a.out, "unknown command %q; try help", fields[0])
	}
}

// login authenticates and opens the dashboard on success.
func (a *App) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		view.Errorf(a.out, "usage: login <username> <password>")
		return
	}
	result := a.auth.Login(ctx, args[0], args[1])
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "Login failed"
		}
		view.Errorf(a.out, "%s", msg)
		a.audit("", audit.ActionLoginFailed, map[string]string{"username": args[0]})
		return
	}
	if result.Token != "" {
		a.gw.SetToken(result.Token)
	}
	view.Successf(a.out, "signed in as %s (%s)", result.Username, result.Role)
	a.audit(result.Username, audit.ActionLogin, nil)
	a.Navigate(ctx, model.PageDashboard)
}

// logout closes the page, clears the session, and drops the bearer token.
func (a *App) logout() {
	actor := a.auth.CurrentSession().Username
	a.closePage()
	a.auth.Logout()
	a.gw.SetToken("")
	view.Statusf(a.out, "signed out")
	a.audit(actor, audit.ActionLogout, nil)
}

// Navigate opens a page, enforcing the role's permitted-page set before
// anything renders. A denied page redirects to the first page the role may
// open.
func (a *App) Navigate(ctx context.Context, page string) {
	if !a.auth.IsAuthenticated() {
		view.Errorf(a.out, "sign in first: login <username> <password>")
		return
	}
	if !a.auth.HasPermission(page) {
		perm := model.PermissionFor(a.auth.CurrentSession().Role)
		if len(perm.Pages) == 0 {
			view.Errorf(a.out, "your role has no pages")
			return
		}
		view.Errorf(a.out, "your role may not open %q; redirecting to %s", page, perm.Pages[0])
		page = perm.Pages[0]
	}

	ctrl := a.newController(page)
	if ctrl == nil {
		view.Errorf(a.out, "unknown page %q", page)
		return
	}

	a.closePage()
	a.mu.Lock()
	a.page = page
	a.ctrl = ctrl
	a.mu.Unlock()

	fmt.Fprintf(a.out, "\n%s\n", strings.ToUpper(page))
	ctrl.Init(ctx, a.router)
}

// newController builds the controller for a page id.
func (a *App) newController(page string) Controller {
	refresh := a.cfg.Refresh
	current := a.auth.CurrentSession
	switch page {
	case model.PageDashboard:
		return controller.NewDashboard(a.data, a.gw, view.NewDashboard(a.out), a.out, refresh.Dashboard, refresh.Health)
	case model.PageThreat:
		return controller.NewThreat(a.data, a.gw, view.NewThreat(a.out), a.out, refresh.Heatmap, refresh.Anomaly)
	case model.PageIntelligence:
		return controller.NewIntelligence(a.gw, view.NewThreat(a.out), a.out)
	case model.PageRules:
		return controller.NewRules(a.data, a.auth, a.gw, view.NewRules(a.out), a.out, refresh.Dashboard, a.recorder(audit.ActionRuleEdit))
	case model.PageLogs:
		return controller.NewLogs(a.data, view.NewLogs(a.out), a.out, refresh.Logs, a.cfg.PageSize, false)
	case model.PageSyslog:
		return controller.NewLogs(a.data, view.NewLogs(a.out), a.out, refresh.Logs, a.cfg.PageSize, true)
	case model.PageRecommendations:
		return controller.NewRecommendations(a.data, a.gw, view.NewRecommendations(a.out), a.out, refresh.Recommendations, a.recorder(audit.ActionRecApply))
	case model.PageUsers:
		return controller.NewUsers(a.users, current, view.NewUsers(a.out), a.out, a.recorder(audit.ActionUserEdit))
	case model.PageSettings:
		return controller.NewSettings(a.data, a.gw, a.st, current, view.NewSettings(a.out), a.out, a.recorder(audit.ActionSettingsEdit))
	case model.PageProfile:
		return controller.NewProfile(a.data, a.st, current, view.NewSettings(a.out), a.out)
	case model.PageLearning:
		return controller.NewLearning(a.data, view.NewLearning(a.out), a.out, a.cfg.Refresh.TrainingTick)
	default:
		return nil
	}
}

// closePage destroys the current controller and clears its commands.
func (a *App) closePage() {
	a.mu.Lock()
	ctrl := a.ctrl
	a.ctrl = nil
	a.page = ""
	a.mu.Unlock()
	if ctrl != nil {
		ctrl.Destroy()
	}
	a.router.Reset()
}

// printHelp lists the global and page commands.
func (a *App) printHelp() {
	fmt.Fprintln(a.out, "Global: login <user> <pass> | logout | go <page> | help | quit")
	fmt.Fprintln(a.out, "Pages: dashboard threat intelligence rules logs syslog recommendations profile users settings learning")
	if cmds := a.router.Commands(); len(cmds) > 0 {
		fmt.Fprintf(a.out, "This page: %s\n", strings.Join(cmds, " "))
	}
}

// recorder builds the controller callback that audits a completed mutation
// under action. Controllers invoke it only on success paths, so the trail
// never records a rejected command.
func (a *App) recorder(action string) controller.Recorder {
	return func(detail string) {
		a.audit(a.auth.CurrentSession().Username, action, map[string]string{"detail": detail})
	}
}

// audit writes one trail event, logging rather than failing on error.
func (a *App) audit(actor, action string, details map[string]string) {
	if a.trail == nil {
		return
	}
	if _, err := a.trail.Record(actor, action, details); err != nil {
		a.logger.Warn("app: audit write failed", "action", action, "error", err.Error())
	}
}

// Destroy tears the application down: the open page, its tasks, the audit
// trail, and the store. Safe to call more than once.
func (a *App) Destroy() {
	a.destroyOnce.Do(func() {
		a.closePage()
		if a.trail != nil {
			if err := a.trail.Close(); err != nil {
				a.logger.Warn("app: close audit trail", "error", err.Error())
			}
		}
		if err := a.st.Close(); err != nil {
			a.logger.Warn("app: close store", "error", err.Error())
		}
	})
}
