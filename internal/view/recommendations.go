package view

import (
	"fmt"
	"io"

	"github.com/webhydra/console/internal/model"
)

// Recommendations renders the recommendation cards and generated patch
// analyses.
type Recommendations struct {
	Out io.Writer
}

// NewRecommendations returns a recommendations view writing to out.
func NewRecommendations(out io.Writer) *Recommendations {
	return &Recommendations{Out: out}
}

// RenderRecommendations prints each card with its apply state.
func (v *Recommendations) RenderRecommendations(recs []model.Recommendation) {
	title(v.Out, "Recommendations")
	if len(recs) == 0 {
		fmt.Fprintln(v.Out, "  no recommendations")
		return
	}
	for _, r := range recs {
		state := colorYellow("pending")
		if r.Applied {
			state = colorGreen("applied")
		}
		fmt.Fprintf(v.Out, "  [%d] %s %s\n", r.ID, state, r.Message)
		fmt.Fprintf(v.Out, "      action: %s (%s)\n", r.Action.Name, r.Action.Description)
	}
	fmt.Fprintln(v.Out, "Commands: rec apply <id> | rec analyze <description>")
}

// RenderPatch prints one generated patch recommendation, or its inline
// error when the backend could not produce one.
func (v *Recommendations) RenderPatch(rec model.PatchRecommendation) {
	title(v.Out, "Generated Analysis")
	if rec.Error != "" {
		Errorf(v.Out, "  %s", rec.Error)
		return
	}
	fmt.Fprintf(v.Out, "  Attack Type  %s\n", rec.AttackType)
	fmt.Fprintf(v.Out, "  Risk Level   %s\n", severityColor(model.NormalizeSeverity(rec.RiskLevel))(rec.RiskLevel))
	fmt.Fprintf(v.Out, "  Root Cause   %s\n", rec.RootCause)
	if len(rec.Mitigations) > 0 {
		fmt.Fprintln(v.Out, "  Mitigations:")
		for _, m := range rec.Mitigations {
			fmt.Fprintf(v.Out, "    - %s: %s\n", m.Category, m.Description)
		}
	}
	if len(rec.VirtualPatches) > 0 {
		fmt.Fprintln(v.Out, "  Virtual Patches:")
		for _, p := range rec.VirtualPatches {
			fmt.Fprintf(v.Out, "    - [%s] %s\n", p.Target, p.Rule)
		}
	}
	for _, ref := range rec.References {
		fmt.Fprintf(v.Out, "  ref: %s\n", ref)
	}
}
