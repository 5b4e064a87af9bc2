package view

import (
	"fmt"
	"io"

	"github.com/webhydra/console/internal/model"
)

// Users renders the account-management page.
type Users struct {
	Out io.Writer
}

// NewUsers returns a users view writing to out.
func NewUsers(out io.Writer) *Users {
	return &Users{Out: out}
}

// RenderUsers prints the account table. Password hashes are never shown.
func (v *Users) RenderUsers(users []model.User, current string) {
	title(v.Out, "User Accounts")
	table := newTable(v.Out, []string{"Username", "Role", ""})
	for _, u := range users {
		marker := ""
		if u.Username == current {
			marker = colorCyan("(you)")
		}
		table.Append([]string{u.Username, string(u.Role), marker})
	}
	table.Render()
	fmt.Fprintln(v.Out, "Commands: user add <name> <password> <role> | user role <name> <role> | user delete <name>")
}
