package view

import (
	"fmt"
	"io"

	"github.com/webhydra/console/internal/model"
)

// Settings renders the settings and profile pages.
type Settings struct {
	Out io.Writer
}

// NewSettings returns a settings view writing to out.
func NewSettings(out io.Writer) *Settings {
	return &Settings{Out: out}
}

// RenderSettings prints the backend configuration, or a placeholder when it
// could not be fetched.
func (v *Settings) RenderSettings(s *model.Settings) {
	title(v.Out, "Backend Settings")
	if s == nil {
		fmt.Fprintln(v.Out, "  settings unavailable")
		return
	}
	fmt.Fprintf(v.Out, "  Sensitivity   %s\n", s.Sensitivity)
	fmt.Fprintf(v.Out, "  Mode          %s\n", s.Mode)
	fmt.Fprintf(v.Out, "  Notify Email  %s\n", s.NotifyEmail)
	fmt.Fprintln(v.Out, "Commands: settings set <field> <value>")
}

// RenderProfile prints the signed-in identity and local preferences.
func (v *Settings) RenderProfile(sess model.Session, theme, apiKey string) {
	title(v.Out, "Profile")
	fmt.Fprintf(v.Out, "  Username  %s\n", sess.Username)
	fmt.Fprintf(v.Out, "  Role      %s\n", sess.Role)
	fmt.Fprintf(v.Out, "  Theme     %s\n", theme)
	key := "(not set)"
	if apiKey != "" {
		key = "********"
	}
	fmt.Fprintf(v.Out, "  API Key   %s\n", key)
}
