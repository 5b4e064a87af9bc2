package view

import (
	"fmt"
	"io"

	"github.com/webhydra/console/internal/model"
)

// Rules renders the rule-management page.
type Rules struct {
	Out io.Writer
}

// NewRules returns a rules view writing to out.
func NewRules(out io.Writer) *Rules {
	return &Rules{Out: out}
}

// RenderRules prints the rule table. When canManage is false the mutation
// commands are omitted from the footer entirely; a viewer never sees
// controls it cannot use.
func (v *Rules) RenderRules(rules []model.Rule, canManage bool) {
	title(v.Out, "WAF Rules")
	if len(rules) == 0 {
		fmt.Fprintln(v.Out, "  no rules configured")
	} else {
		table := newTable(v.Out, []string{"ID", "Name", "Status", "Description"})
		for _, r := range rules {
			table.Append([]string{
				fmt.Sprint(r.ID),
				r.Name,
				onOff(r.Enabled),
				r.Description,
			})
		}
		table.Render()
	}
	if canManage {
		fmt.Fprintln(v.Out, "Commands: rule add <name> <description> | rule toggle <id> | rule edit <id> | rule delete <id>")
	}
}
