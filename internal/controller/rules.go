package controller

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// RulePermissions gates the mutation commands.
type RulePermissions interface {
	CanManageRules() bool
}

// RuleToggler pushes a toggle of a server-side rule to the backend,
// best-effort; local state is authoritative for the page.
type RuleToggler interface {
	ToggleRule(ctx context.Context, id int, enabled bool) *model.Rule
}

// Rules drives the rule-management page. Mutation commands are only bound
// for sessions that may manage rules; everyone else gets a read-only table
// with the commands hidden.
type Rules struct {
	model   *model.DataModel
	perms   RulePermissions
	toggler RuleToggler
	view    RulesView
	out     io.Writer
	refresh time.Duration
	rec     Recorder

	tasks taskSet
}

// NewRules builds the rules page controller.
func NewRules(m *model.DataModel, perms RulePermissions, toggler RuleToggler, v RulesView, out io.Writer, refresh time.Duration, rec Recorder) *Rules {
	return &Rules{
		model:   m,
		perms:   perms,
		toggler: toggler,
		view:    v,
		out:     out,
		refresh: refresh,
		rec:     rec,
	}
}

// Init loads once, renders, binds the mutation commands when permitted, and
// arms the refresh task.
func (c *Rules) Init(ctx context.Context, bind Binder) {
	c.model.LoadRules(ctx)
	c.Render()

	if c.perms.CanManageRules() {
		bind.Bind("rule", c.handleRule)
	}

	c.tasks.add(StartTask(c.refresh, func(ctx context.Context) {
		c.model.LoadRules(ctx)
		c.Render()
	}))
}

// handleRule dispatches the rule mutation subcommands.
func (c *Rules) handleRule(ctx context.Context, args []string) {
	if !c.perms.CanManageRules() {
		view.Errorf(c.out, "your role may not manage rules")
		return
	}
	if len(args) == 0 {
		c.ruleUsage()
		return
	}
	switch args[0] {
	case "add":
		c.addRule(args[1:])
	case "toggle":
		c.toggleRule(ctx, args[1:])
	case "edit":
		c.editRule(args[1:])
	case "delete":
		c.deleteRule(args[1:])
	default:
		c.ruleUsage()
	}
}

func (c *Rules) ruleUsage() {
	view.Errorf(c.out, "usage: rule add <name> <description> | toggle <id> | edit <id> name|desc <value> | delete <id>")
}

// addRule validates both fields before any write; an empty name or
// description is rejected inline with no partial state change.
func (c *Rules) addRule(args []string) {
	if len(args) < 2 {
		view.Errorf(c.out, "a rule needs both a name and a description")
		return
	}
	name, description := args[0], joinArgs(args[1:])
	if name == "" || description == "" {
		view.Errorf(c.out, "a rule needs both a name and a description")
		return
	}
	rule := c.model.AddRule(name, description, true)
	view.Successf(c.out, "added rule %d: %s", rule.ID, rule.Name)
	c.rec.note("added rule %d (%s)", rule.ID, rule.Name)
	c.Render()
}

func (c *Rules) toggleRule(ctx context.Context, args []string) {
	id, ok := parseID(args)
	if !ok {
		view.Errorf(c.out, "usage: rule toggle <id>")
		return
	}
	enabled, found := c.model.ToggleRule(id)
	if !found {
		view.Errorf(c.out, "no rule with id %d", id)
		return
	}
	// Built-in rules also live on the backend; mirror the flip there.
	if id <= model.SeedRuleMaxID && c.toggler != nil {
		c.toggler.ToggleRule(ctx, id, enabled)
	}
	c.rec.note("toggled rule %d to enabled=%t", id, enabled)
	c.Render()
}

func (c *Rules) editRule(args []string) {
	if len(args) < 3 || (args[1] != "name" && args[1] != "desc") {
		view.Errorf(c.out, "usage: rule edit <id> name|desc <value>")
		return
	}
	id, ok := parseID(args[:1])
	if !ok {
		view.Errorf(c.out, "usage: rule edit <id> name|desc <value>")
		return
	}
	value := joinArgs(args[2:])
	if value == "" {
		view.Errorf(c.out, "the new value must not be empty")
		return
	}
	var upd model.RuleUpdate
	if args[1] == "name" {
		upd.Name = &value
	} else {
		upd.Description = &value
	}
	if _, found := c.model.UpdateRule(id, upd); !found {
		view.Errorf(c.out, "no rule with id %d", id)
		return
	}
	c.rec.note("edited rule %d %s", id, args[1])
	c.Render()
}

func (c *Rules) deleteRule(args []string) {
	id, ok := parseID(args)
	if !ok {
		view.Errorf(c.out, "usage: rule delete <id>")
		return
	}
	if !c.model.DeleteRule(id) {
		view.Errorf(c.out, "no rule with id %d", id)
		return
	}
	view.Successf(c.out, "deleted rule %d", id)
	c.rec.note("deleted rule %d", id)
	c.Render()
}

// Render shows the rule table with the command footer gated by permission.
func (c *Rules) Render() {
	c.view.RenderRules(c.model.Rules(), c.perms.CanManageRules())
}

// Destroy cancels the page's tasks.
func (c *Rules) Destroy() {
	c.tasks.stopAll()
}

// parseID extracts a single positive integer argument.
func parseID(args []string) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
