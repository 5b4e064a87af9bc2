// Package storage is the optional PostgreSQL archive behind the stub WAF
// backend. Event ingestion is batched: writers enqueue individual events,
// which accumulate in memory and flush to the database either when the
// buffer fills or when the background ticker fires.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultBatchSize is the maximum number of event rows held in memory
	// before an automatic flush is triggered.
	DefaultBatchSize = 100

	// DefaultFlushInterval is how often the background goroutine flushes
	// pending events even when the batch is not full.
	DefaultFlushInterval = 100 * time.Millisecond
)

// EventKind separates the request log from the system log.
type EventKind string

const (
	KindRequestLog EventKind = "request"
	KindSyslog     EventKind = "syslog"
)

// Event is one archived log row.
type Event struct {
	Kind      EventKind
	SourceID  int
	Type      string
	Severity  string
	Message   string
	Timestamp time.Time
}

// EventQuery selects archived events. Severity is an exact match when
// non-empty. Limit defaults to 100.
type EventQuery struct {
	Kind     EventKind
	Severity string
	Limit    int
	Offset   int
}

// schema creates the events table. CREATE TABLE IF NOT EXISTS keeps New
// idempotent across restarts against the same database.
const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id         BIGSERIAL PRIMARY KEY,
		kind       TEXT        NOT NULL,
		source_id  INTEGER     NOT NULL,
		type       TEXT        NOT NULL,
		severity   TEXT        NOT NULL,
		message    TEXT        NOT NULL,
		ts         TIMESTAMPTZ NOT NULL,
		UNIQUE (kind, source_id)
	);
	CREATE INDEX IF NOT EXISTS events_kind_ts ON events (kind, ts DESC)`

// Archive is the PostgreSQL-backed event archive.
type Archive struct {
	pool          *pgxpool.Pool
	mu            sync.Mutex
	batch         []Event
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// New opens a pgxpool connection to connStr, ensures the schema, and starts
// the background flush goroutine.
//
// batchSize ≤ 0 is replaced with DefaultBatchSize.
// flushInterval ≤ 0 is replaced with DefaultFlushInterval.
func New(ctx context.Context, connStr string, batchSize int, flushInterval time.Duration) (*Archive, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("storage: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ensure schema: %w", err)
	}

	a := &Archive{
		pool:          pool,
		batch:         make([]Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go a.flushLoop()
	return a, nil
}

// Close stops the background flush goroutine, flushes any buffered events,
// and closes the connection pool. Safe to call more than once.
func (a *Archive) Close(ctx context.Context) {
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
		<-a.doneCh
		_ = a.Flush(ctx)
	}
	a.pool.Close()
}

// flushLoop ticks on flushInterval and calls Flush until stopCh closes.
func (a *Archive) flushLoop() {
	defer close(a.doneCh)
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			_ = a.Flush(context.Background())
		}
	}
}

// Insert enqueues one event for deferred batch insertion. When the buffer
// fills, Flush runs synchronously so writers observe back-pressure rather
// than unbounded memory growth.
func (a *Archive) Insert(ctx context.Context, e Event) error {
	a.mu.Lock()
	a.batch = append(a.batch, e)
	full := len(a.batch) >= a.batchSize
	a.mu.Unlock()

	if full {
		return a.Flush(ctx)
	}
	return nil
}

// Flush drains the current buffer and sends all rows in a single pgx.Batch
// round-trip. Rows that conflict on (kind, source_id) are silently ignored,
// so replaying a seed set is idempotent.
func (a *Archive) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.batch) == 0 {
		a.mu.Unlock()
		return nil
	}
	toInsert := a.batch
	a.batch = make([]Event, 0, a.batchSize)
	a.mu.Unlock()

	const query = `
		INSERT INTO events (kind, source_id, type, severity, message, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`

	b := &pgx.Batch{}
	for i := range toInsert {
		e := &toInsert[i]
		b.Queue(query, string(e.Kind), e.SourceID, e.Type, e.Severity, e.Message, e.Timestamp)
	}

	br := a.pool.SendBatch(ctx, b)
	defer br.Close()

	for range toInsert {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("storage: batch exec event: %w", err)
		}
	}
	return nil
}

// QueryEvents returns one page of archived events of q.Kind ordered newest
// first, plus the total matching count for pagination footers.
func (a *Archive) QueryEvents(ctx context.Context, q EventQuery) ([]Event, int, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}

	args := []any{string(q.Kind), q.Limit, q.Offset}
	where := "WHERE kind = $1"
	if q.Severity != "" {
		where += " AND severity = $4"
		args = append(args, q.Severity)
	}

	sql := fmt.Sprintf(`
		SELECT source_id, type, severity, message, ts
		FROM   events
		%s
		ORDER  BY ts DESC, source_id
		LIMIT  $2 OFFSET $3`, where)

	rows, err := a.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e := Event{Kind: q.Kind}
		if err := rows.Scan(&e.SourceID, &e.Type, &e.Severity, &e.Message, &e.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("storage: scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("storage: iterate events: %w", err)
	}

	countArgs := []any{string(q.Kind)}
	countWhere := "WHERE kind = $1"
	if q.Severity != "" {
		countWhere += " AND severity = $2"
		countArgs = append(countArgs, q.Severity)
	}
	var total int
	err = a.pool.QueryRow(ctx, "SELECT count(*) FROM events "+countWhere, countArgs...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: count events: %w", err)
	}
	return events, total, nil
}
