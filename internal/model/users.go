package model

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// User is a local console account. Passwords are stored as bcrypt hashes;
// the plaintext never leaves the call that receives it.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	Role         Role   `json:"role"`
}

// AdminUsername is the immutable built-in account: it cannot be deleted,
// renamed, or demoted.
const AdminUsername = "admin"

// defaultAdminPassword is the password seeded for the admin account on first
// run. Operators are expected to change it.
const defaultAdminPassword = "admin123"

// Sentinel errors for user mutations. Controllers surface these as inline
// form messages.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateUser  = errors.New("a user with that username already exists")
	ErrAdminImmutable = errors.New("the admin account cannot be modified or deleted")
	ErrDeleteSelf     = errors.New("you cannot delete your own account while logged in")
	ErrEmptyField     = errors.New("username and password are required")
)

// UserStore is the subset of the durable store the user model needs.
type UserStore interface {
	Users() []User
	SetUsers(users []User) error
}

// UserModel manages the local user accounts. All mutations write through to
// the store immediately.
type UserModel struct {
	store UserStore
}

// NewUserModel wraps store and seeds the default admin account when no users
// have been persisted yet.
func NewUserModel(store UserStore) (*UserModel, error) {
	m := &UserModel{store: store}
	if users := store.Users(); len(users) == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("model: hash default admin password: %w", err)
		}
		seed := []User{{Username: AdminUsername, PasswordHash: string(hash), Role: RoleAdmin}}
		if err := store.SetUsers(seed); err != nil {
			return nil, fmt.Errorf("model: seed users: %w", err)
		}
	}
	return m, nil
}

// Users returns all accounts in persisted order.
func (m *UserModel) Users() []User {
	return m.store.Users()
}

// ByUsername finds an account by exact username.
func (m *UserModel) ByUsername(username string) (User, bool) {
	for _, u := range m.store.Users() {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Authenticate verifies username/password against the stored bcrypt hash.
func (m *UserModel) Authenticate(username, password string) (User, bool) {
	u, ok := m.ByUsername(username)
	if !ok {
		return User{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, false
	}
	return u, true
}

// AddUser creates a new account. Duplicate usernames and empty required
// fields are rejected before anything is written.
func (m *UserModel) AddUser(username, password string, role Role) error {
	if username == "" || password == "" {
		return ErrEmptyField
	}
	users := m.store.Users()
	for _, u := range users {
		if u.Username == username {
			return ErrDuplicateUser
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("model: hash password: %w", err)
	}
	users = append(users, User{Username: username, PasswordHash: string(hash), Role: role})
	return m.store.SetUsers(users)
}

// UserUpdate carries the optional changes for UpdateUser. Zero-valued fields
// keep their current value.
type UserUpdate struct {
	Username string
	Password string
	Role     Role
}

// UpdateUser modifies the account named username. Renaming onto an existing
// username is rejected, as is renaming or demoting the admin account. No
// partial write occurs on rejection.
func (m *UserModel) UpdateUser(username string, upd UserUpdate) error {
	users := m.store.Users()
	idx := -1
	for i, u := range users {
		if u.Username == username {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrUserNotFound
	}

	if username == AdminUsername {
		if (upd.Username != "" && upd.Username != AdminUsername) ||
			(upd.Role != "" && upd.Role != RoleAdmin) {
			return ErrAdminImmutable
		}
	}

	updated := users[idx]
	if upd.Username != "" {
		for i, u := range users {
			if i != idx && u.Username == upd.Username {
				return ErrDuplicateUser
			}
		}
		updated.Username = upd.Username
	}
	if upd.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("model: hash password: %w", err)
		}
		updated.PasswordHash = string(hash)
	}
	if upd.Role != "" {
		updated.Role = upd.Role
	}

	users[idx] = updated
	return m.store.SetUsers(users)
}

// DeleteUser removes the account named username. The admin account and the
// currently authenticated account are protected regardless of caller role.
func (m *UserModel) DeleteUser(username, currentUsername string) error {
	if username == AdminUsername {
		return ErrAdminImmutable
	}
	if username == currentUsername {
		return ErrDeleteSelf
	}
	users := m.store.Users()
	for i, u := range users {
		if u.Username == username {
			users = append(users[:i], users[i+1:]...)
			return m.store.SetUsers(users)
		}
	}
	return ErrUserNotFound
}

// CanManageUsers reports whether role may open the user-management page.
func (m *UserModel) CanManageUsers(role Role) bool {
	return role == RoleAdmin
}
