package model

import "context"

// Session is the authenticated console session. A zero Session means not
// logged in.
type Session struct {
	Role     Role
	Username string
	// Token is the opaque bearer token issued by the backend; empty when
	// authentication fell back to the local account store.
	Token string
}

// SessionStore is the subset of the durable store the auth model needs.
type SessionStore interface {
	Session() (Session, bool)
	SetSession(sess Session) error
	ClearSession() error
}

// LoginGateway performs the remote JWT login against the TI backend. The
// boolean result distinguishes "backend answered" from "backend unreachable":
// an unreachable backend triggers the local fallback, a definitive rejection
// does not.
type LoginGateway interface {
	Login(ctx context.Context, username, password string) (LoginResult, bool)
}

// AuthModel manages authentication state: remote-first login with local
// fallback, session persistence, and role-based permission checks.
type AuthModel struct {
	store   SessionStore
	users   *UserModel
	gateway LoginGateway
}

// NewAuthModel wires the auth model. gateway may be nil, in which case only
// local authentication is attempted.
func NewAuthModel(store SessionStore, users *UserModel, gateway LoginGateway) *AuthModel {
	return &AuthModel{store: store, users: users, gateway: gateway}
}

// Login authenticates username/password: first against the backend, falling
// back to the local account store when the backend is unreachable. On
// success the session is persisted. The result is always an inline value;
// transport failures never surface as errors.
func (a *AuthModel) Login(ctx context.Context, username, password string) LoginResult {
	if a.gateway != nil {
		if res, reachable := a.gateway.Login(ctx, username, password); reachable {
			if res.Success {
				if res.Role == "" {
					res.Role = RoleUser
				}
				if res.Username == "" {
					res.Username = username
				}
				_ = a.store.SetSession(Session{
					Role:     res.Role,
					Username: res.Username,
					Token:    res.Token,
				})
			}
			return res
		}
	}
	return a.localLogin(username, password)
}

// localLogin authenticates against the local user store.
func (a *AuthModel) localLogin(username, password string) LoginResult {
	u, ok := a.users.Authenticate(username, password)
	if !ok {
		return LoginResult{Success: false, Message: "Invalid username or password."}
	}
	sess := Session{Role: u.Role, Username: u.Username, Token: "local"}
	_ = a.store.SetSession(sess)
	return LoginResult{Success: true, Username: u.Username, Role: u.Role}
}

// Logout destroys the persisted session.
func (a *AuthModel) Logout() {
	_ = a.store.ClearSession()
}

// IsAuthenticated reports whether a valid session exists.
func (a *AuthModel) IsAuthenticated() bool {
	_, ok := a.store.Session()
	return ok
}

// CurrentSession returns the active session, or a zero Session when not
// logged in.
func (a *AuthModel) CurrentSession() Session {
	sess, _ := a.store.Session()
	return sess
}

// HasPermission reports whether the active session's role may open page.
func (a *AuthModel) HasPermission(page string) bool {
	sess, ok := a.store.Session()
	if !ok {
		return false
	}
	return PermissionFor(sess.Role).Allows(page)
}

// CanManageRules reports whether the active session's role may mutate rules.
func (a *AuthModel) CanManageRules() bool {
	sess, ok := a.store.Session()
	if !ok {
		return false
	}
	return PermissionFor(sess.Role).ManageRules
}
