package controller

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/webhydra/console/internal/model"
	"github.com/webhydra/console/internal/view"
)

// Users drives the account-management page. The page itself is admin-only;
// navigation enforces that before this controller ever runs. Within the
// page, the admin account and the caller's own account stay protected by
// the model.
type Users struct {
	users   *model.UserModel
	current func() model.Session
	view    UsersView
	out     io.Writer
	rec     Recorder
}

// NewUsers builds the users page controller. current reports the signed-in
// session so delete-self protection holds even after a mid-page re-login.
func NewUsers(users *model.UserModel, current func() model.Session, v UsersView, out io.Writer, rec Recorder) *Users {
	return &Users{users: users, current: current, view: v, out: out, rec: rec}
}

// Init renders the table and binds the account commands. The page has no
// refresh task; accounts change only through these commands.
func (c *Users) Init(_ context.Context, bind Binder) {
	c.Render()
	bind.Bind("user", c.handleUser)
}

// handleUser dispatches the account subcommands.
func (c *Users) handleUser(_ context.Context, args []string) {
	if len(args) == 0 {
		c.usage()
		return
	}
	// note never carries a password.
	var (
		err  error
		note string
	)
	switch {
	case args[0] == "add" && len(args) == 4:
		err = c.users.AddUser(args[1], args[2], model.Role(args[3]))
		note = fmt.Sprintf("added user %s with role %s", args[1], args[3])
	case args[0] == "role" && len(args) == 3:
		err = c.users.UpdateUser(args[1], model.UserUpdate{Role: model.Role(args[2])})
		note = fmt.Sprintf("set role of %s to %s", args[1], args[2])
	case args[0] == "password" && len(args) == 3:
		err = c.users.UpdateUser(args[1], model.UserUpdate{Password: args[2]})
		note = fmt.Sprintf("changed password of %s", args[1])
	case args[0] == "rename" && len(args) == 3:
		err = c.users.UpdateUser(args[1], model.UserUpdate{Username: args[2]})
		note = fmt.Sprintf("renamed %s to %s", args[1], args[2])
	case args[0] == "delete" && len(args) == 2:
		err = c.users.DeleteUser(args[1], c.current().Username)
		note = fmt.Sprintf("deleted user %s", args[1])
	default:
		c.usage()
		return
	}
	if err != nil {
		view.Errorf(c.out, "%s", userErrorMessage(err))
		return
	}
	c.rec.note("%s", note)
	c.Render()
}

func (c *Users) usage() {
	view.Errorf(c.out, "usage: user add <name> <password> <role> | role <name> <role> | password <name> <new> | rename <old> <new> | delete <name>")
}

// userErrorMessage maps the model's sentinel errors to inline messages.
func userErrorMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrDuplicateUser):
		return "that username is already taken"
	case errors.Is(err, model.ErrUserNotFound):
		return "no such user"
	case errors.Is(err, model.ErrAdminImmutable):
		return "the admin account cannot be renamed, demoted, or deleted"
	case errors.Is(err, model.ErrDeleteSelf):
		return "you cannot delete your own account"
	case errors.Is(err, model.ErrEmptyField):
		return "username and password must not be empty"
	default:
		return err.Error()
	}
}

// Render shows the account table.
func (c *Users) Render() {
	c.view.RenderUsers(c.users.Users(), c.current().Username)
}

// Destroy is a no-op; the page arms no tasks.
func (c *Users) Destroy() {}
