package controller

import (
	"context"
	"io"
	"sync"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// SettingsGateway reads and writes the backend configuration.
type SettingsGateway interface {
	FetchSettings(ctx context.Context) *model.Settings
	UpdateSettings(ctx context.Context, s model.Settings) *model.Settings
}

// PrefStore persists the local preferences the settings page edits.
type PrefStore interface {
	Theme() string
	SetTheme(theme string) error
}

// Settings drives the settings and profile pages: backend configuration,
// the local theme, and the cached API key.
type Settings struct {
	model   *model.DataModel
	gw      SettingsGateway
	prefs   PrefStore
	current func() model.Session
	view    SettingsView
	out     io.Writer
	rec     Recorder

	// profile serves the theme and API key commands shared with the
	// profile page.
	profile *Profile

	mu       sync.Mutex
	settings *model.Settings
}

// NewSettings builds the settings page controller.
func NewSettings(m *model.DataModel, gw SettingsGateway, prefs PrefStore, current func() model.Session, v SettingsView, out io.Writer, rec Recorder) *Settings {
	return &Settings{
		model:   m,
		gw:      gw,
		prefs:   prefs,
		current: current,
		view:    v,
		out:     out,
		rec:     rec,
		profile: NewProfile(m, prefs, current, v, out),
	}
}

// Init fetches the backend settings once, renders, and binds the commands.
// The page has no refresh task; settings change only through user actions.
func (c *Settings) Init(ctx context.Context, bind Binder) {
	c.mu.Lock()
	c.settings = c.gw.FetchSettings(ctx)
	c.mu.Unlock()
	c.Render()

	bind.Bind("settings", c.handleSettings)
	bind.Bind("theme", c.profile.handleTheme)
	bind.Bind("apikey", c.profile.handleAPIKey)
}

// handleSettings edits one backend field and pushes the result. A rejected
// or unreachable save is reported inline; local state keeps the last
// accepted value.
func (c *Settings) handleSettings(ctx context.Context, args []string) {
	if len(args) != 3 || args[0] != "set" {
		view.Errorf(c.out, "usage: settings set sensitivity|mode|email <value>")
		return
	}

	c.mu.Lock()
	updated := model.Settings{}
	if c.settings != nil {
		updated = *c.settings
	}
	c.mu.Unlock()

	switch args[1] {
	case "sensitivity":
		updated.Sensitivity = args[2]
	case "mode":
		updated.Mode = args[2]
	case "email":
		updated.NotifyEmail = args[2]
	default:
		view.Errorf(c.out, "usage: settings set sensitivity|mode|email <value>")
		return
	}

	saved := c.gw.UpdateSettings(ctx, updated)
	if saved == nil {
		view.Errorf(c.out, "could not save settings; backend unreachable")
		return
	}
	c.mu.Lock()
	c.settings = saved
	c.mu.Unlock()
	view.Successf(c.out, "settings saved")
	c.rec.note("set %s to %s", args[1], args[2])
	c.Render()
}

// Render shows the backend settings and the profile block.
func (c *Settings) Render() {
	c.mu.Lock()
	settings := c.settings
	c.mu.Unlock()
	c.view.RenderSettings(settings)
	c.view.RenderProfile(c.current(), c.prefs.Theme(), c.model.APIKey())
}

// Destroy is a no-op; the page arms no tasks.
func (c *Settings) Destroy() {}

// Profile drives the profile page, the non-admin slice of the settings
// surface: identity, theme, and the cached API key.
type Profile struct {
	model   *model.DataModel
	prefs   PrefStore
	current func() model.Session
	view    SettingsView
	out     io.Writer
}

// NewProfile builds the profile page controller.
func NewProfile(m *model.DataModel, prefs PrefStore, current func() model.Session, v SettingsView, out io.Writer) *Profile {
	return &Profile{model: m, prefs: prefs, current: current, view: v, out: out}
}

// Init renders the profile block and binds the preference commands.
func (c *Profile) Init(_ context.Context, bind Binder) {
	c.Render()
	bind.Bind("theme", c.handleTheme)
	bind.Bind("apikey", c.handleAPIKey)
}

func (c *Profile) handleTheme(_ context.Context, args []string) {
	if len(args) != 1 || (args[0] != "dark" && args[0] != "light") {
		view.Errorf(c.out, "usage: theme dark|light")
		return
	}
	if err := c.prefs.SetTheme(args[0]); err != nil {
		view.Errorf(c.out, "could not persist theme")
		return
	}
	c.Render()
}

func (c *Profile) handleAPIKey(_ context.Context, args []string) {
	if len(args) != 1 || args[0] == "" {
		view.Errorf(c.out, "usage: apikey <key>")
		return
	}
	c.model.SetAPIKey(args[0])
	view.Successf(c.out, "API key saved")
	c.Render()
}

// Render shows the profile block.
func (c *Profile) Render() {
	c.view.RenderProfile(c.current(), c.prefs.Theme(), c.model.APIKey())
}

// Destroy is a no-op; the page arms no tasks.
func (c *Profile) Destroy() {}
