// Package audit records console actions in a tamper-evident, append-only
// trail. Every mutation an operator performs (logins, logouts, rule and
// account changes, recommendation applies) becomes one SHA-256 hash-chained
// JSON line, so an edited or truncated trail fails verification.
//
// # Hash chain
//
// The hash for event N is computed as:
//
//	SHA-256( JSON({id, seq, ts, actor, action, details, prev_hash}) )
//
// The genesis event (seq=1) uses a prev_hash of 64 ASCII zero characters.
//
// # Append semantics
//
// The trail file is opened with O_APPEND so each line is written atomically
// by the OS. A mutex serialises appends to keep the sequence number and
// prev_hash consistent; Trail is safe for concurrent use.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the all-zero digest used as the prev_hash of the first
// event in a trail.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Action names recorded by the console.
const (
	ActionLogin        = "login"
	ActionLoginFailed  = "login_failed"
	ActionLogout       = "logout"
	ActionRuleAdd      = "rule_add"
	ActionRuleEdit     = "rule_edit"
	ActionRuleDelete   = "rule_delete"
	ActionRuleToggle   = "rule_toggle"
	ActionRecApply     = "recommendation_apply"
	ActionUserAdd      = "user_add"
	ActionUserEdit     = "user_edit"
	ActionUserDelete   = "user_delete"
	ActionSettingsEdit = "settings_edit"
)

// Event is one recorded console action.
type Event struct {
	ID        string            `json:"id"`
	Seq       int64             `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	PrevHash  string            `json:"prev_hash"`
	EventHash string            `json:"event_hash"`
}

// eventContent is the hashed subset of Event; it excludes EventHash itself.
type eventContent struct {
	ID        string            `json:"id"`
	Seq       int64             `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	PrevHash  string            `json:"prev_hash"`
}

// Trail is the append-only action log. Create one with Open; do not copy
// after first use.
type Trail struct {
	mu       sync.Mutex
	file     *os.File
	prevHash string
	seq      int64
}

// Open opens (or creates) the trail at path. An existing trail is scanned in
// full to verify the chain and restore the sequence state; a broken chain is
// an error, not something to silently continue past.
func Open(path string) (*Trail, error) {
	prevHash := GenesisHash
	seq := int64(0)

	if _, err := os.Stat(path); err == nil {
		events, err := Verify(path)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			last := events[len(events)-1]
			prevHash = last.EventHash
			seq = last.Seq
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %q: %w", path, err)
	}
	return &Trail{file: f, prevHash: prevHash, seq: seq}, nil
}

// Record appends one action event and returns it with its assigned
// sequence number and hashes.
func (t *Trail) Record(actor, action string, details map[string]string) (Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	content := eventContent{
		ID:        uuid.NewString(),
		Seq:       t.seq + 1,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Details:   details,
		PrevHash:  t.prevHash,
	}
	event := Event{
		ID:        content.ID,
		Seq:       content.Seq,
		Timestamp: content.Timestamp,
		Actor:     content.Actor,
		Action:    content.Action,
		Details:   content.Details,
		PrevHash:  content.PrevHash,
		EventHash: hashContent(content),
	}

	line, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("audit: marshal event: %w", err)
	}
	line = append(line, '\n')
	if _, err := t.file.Write(line); err != nil {
		return Event{}, fmt.Errorf("audit: write event: %w", err)
	}

	t.seq = event.Seq
	t.prevHash = event.EventHash
	return event, nil
}

// Close syncs and closes the trail file.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.file.Sync(); err != nil {
		_ = t.file.Close()
		return fmt.Errorf("audit: sync: %w", err)
	}
	return t.file.Close()
}

// Verify reads the trail at path and checks the full hash chain, returning
// the ordered events on success or the first chain error. An empty trail is
// valid.
func Verify(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: verify open %q: %w", path, err)
	}
	defer f.Close()

	var events []Event
	prevHash := GenesisHash

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("audit: malformed event at seq %d: %w", len(events)+1, err)
		}
		computed := hashContent(eventContent{
			ID:        e.ID,
			Seq:       e.Seq,
			Timestamp: e.Timestamp,
			Actor:     e.Actor,
			Action:    e.Action,
			Details:   e.Details,
			PrevHash:  e.PrevHash,
		})
		if computed != e.EventHash {
			return nil, fmt.Errorf("audit: hash mismatch at seq %d", e.Seq)
		}
		if e.PrevHash != prevHash {
			return nil, fmt.Errorf("audit: chain break at seq %d", e.Seq)
		}
		prevHash = e.EventHash
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan %q: %w", path, err)
	}
	return events, nil
}

// hashContent computes the canonical SHA-256 digest of an event's content.
func hashContent(content eventContent) string {
	data, err := json.Marshal(content)
	if err != nil {
		// Content is built from plain strings and maps; marshal cannot fail.
		panic(fmt.Sprintf("audit: marshal content: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
