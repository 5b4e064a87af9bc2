// Package store provides the durable key/value state of the Hydra console,
// backed by a WAL-mode SQLite database. It persists the session (role,
// username, auth token), the UI theme, the cached API key, the user-added
// rule overrides, and the local user accounts.
//
// # WAL mode
//
// The database is opened with PRAGMA journal_mode = WAL so that reads and the
// single writer proceed without blocking each other. The connection pool is
// limited to one connection: SQLite allows one writer at a time and the
// console's poll and input goroutines both write through this store.
//
// # Degradation
//
// Read accessors never fail: a missing key, an unreadable row, or malformed
// stored JSON all degrade to the documented default for that entry, matching
// the rest of the console's recover-locally policy. Only writes return
// errors.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // register "sqlite" driver with database/sql

	"github.com/webhydra/console/internal/model"
)

// Storage keys. The names are carried over from the browser incarnation of
// the console so a migrated dump stays readable.
const (
	keyRole     = "webHydraRole"
	keyUsername = "webHydraUsername"
	keyLoggedIn = "webHydraLoggedIn"
	keyToken    = "authToken"
	keyTheme    = "webHydraTheme"
	keyAPIKey   = "webHydraApiKey"
	keyRules    = "webHydraRules"
	keyUsers    = "webHydraUsers"
)

// DefaultTheme is returned when no theme has been stored.
const DefaultTheme = "dark"

// Store is the SQLite-backed key/value gateway. It is safe for concurrent
// use.
type Store struct {
	db *sql.DB
}

// ddl is the schema, kept here to keep the package self-contained.
const ddl = `
CREATE TABLE IF NOT EXISTS console_state (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Open opens (or creates) the SQLite database at path, enables WAL journal
// mode, and applies the schema. If path is ":memory:", an in-memory database
// is used; suitable for tests but lost on Close.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}

	// Serialise all access through a single connection; SQLite allows only
	// one writer and this avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set synchronous = NORMAL: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ── low-level accessors ──────────────────────────────────────────────────────

// get returns the raw value for key and whether it exists. Read failures
// degrade to absence.
func (s *Store) get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM console_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// set writes key=value, replacing any existing value.
func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO console_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

// remove deletes key. Removing an absent key is not an error.
func (s *Store) remove(key string) error {
	if _, err := s.db.Exec(`DELETE FROM console_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("store: remove %q: %w", key, err)
	}
	return nil
}

// getJSON unmarshals the stored value for key into v. A missing key or
// malformed JSON both report false and leave v untouched, so callers
// re-initialise defaults instead of propagating a parse error.
func (s *Store) getJSON(key string, v any) bool {
	raw, ok := s.get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false
	}
	return true
}

// setJSON marshals v and stores it under key.
func (s *Store) setJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %q: %w", key, err)
	}
	return s.set(key, string(raw))
}

// ── session ──────────────────────────────────────────────────────────────────

// Session returns the persisted session. A session is valid only when the
// role, the logged-in flag, and the token are all present; anything less is
// reported as no session.
func (s *Store) Session() (model.Session, bool) {
	role, okRole := s.get(keyRole)
	loggedIn, okFlag := s.get(keyLoggedIn)
	token, okToken := s.get(keyToken)
	if !okRole || !okFlag || !okToken || loggedIn != "true" {
		return model.Session{}, false
	}
	username, _ := s.get(keyUsername)
	return model.Session{
		Role:     model.Role(role),
		Username: username,
		Token:    token,
	}, true
}

// SetSession persists a freshly authenticated session.
func (s *Store) SetSession(sess model.Session) error {
	if err := s.set(keyRole, string(sess.Role)); err != nil {
		return err
	}
	if err := s.set(keyUsername, sess.Username); err != nil {
		return err
	}
	if err := s.set(keyToken, sess.Token); err != nil {
		return err
	}
	return s.set(keyLoggedIn, "true")
}

// ClearSession removes every session entry. Used on logout and on detected
// session invalidity.
func (s *Store) ClearSession() error {
	for _, key := range []string{keyRole, keyUsername, keyLoggedIn, keyToken} {
		if err := s.remove(key); err != nil {
			return err
		}
	}
	return nil
}

// ClearAuthToken removes only the bearer token, leaving the rest of the
// session in place. The gateway calls this on HTTP 401.
func (s *Store) ClearAuthToken() error {
	return s.remove(keyToken)
}

// ── theme / API key ──────────────────────────────────────────────────────────

// Theme returns the stored UI theme, defaulting to DefaultTheme.
func (s *Store) Theme() string {
	if theme, ok := s.get(keyTheme); ok && theme != "" {
		return theme
	}
	return DefaultTheme
}

// SetTheme persists the UI theme.
func (s *Store) SetTheme(theme string) error {
	return s.set(keyTheme, theme)
}

// APIKey returns the cached backend API key, empty when none is stored.
func (s *Store) APIKey() string {
	key, _ := s.get(keyAPIKey)
	return key
}

// SetAPIKey caches the backend API key.
func (s *Store) SetAPIKey(key string) error {
	return s.set(keyAPIKey, key)
}

// ── rule overrides ───────────────────────────────────────────────────────────

// RuleOverrides returns the locally persisted user-added rules. Absent or
// malformed state yields an empty slice.
func (s *Store) RuleOverrides() []model.Rule {
	var rules []model.Rule
	if !s.getJSON(keyRules, &rules) {
		return []model.Rule{}
	}
	return rules
}

// SetRuleOverrides replaces the persisted user-added rule set.
func (s *Store) SetRuleOverrides(rules []model.Rule) error {
	return s.setJSON(keyRules, rules)
}

// ── user accounts ────────────────────────────────────────────────────────────

// Users returns the persisted user accounts, or nil when none have been
// stored (the caller seeds defaults in that case). Malformed state is
// treated the same as absence.
func (s *Store) Users() []model.User {
	var users []model.User
	if !s.getJSON(keyUsers, &users) {
		return nil
	}
	return users
}

// SetUsers replaces the persisted user account list.
func (s *Store) SetUsers(users []model.User) error {
	return s.setJSON(keyUsers, users)
}
