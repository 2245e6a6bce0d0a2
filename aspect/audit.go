package aspect

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
	"github.com/sghaida/oproxy/proxy"
)

// Record is one audited call.
type Record struct {
	CallID  string
	Target  string
	Method  string
	Args    string
	Outcome string
	Error   string
	Started time.Time
	Elapsed time.Duration
}

// Sink stores audit records.
type Sink interface {
	Write(ctx context.Context, r Record) error
}

// Audit writes one Record per call to sink after the call completes,
// including calls that fail or panic. A sink error is logged and never
// changes the call's outcome. The default clock is go-timecache.
func Audit(sink Sink, opts ...Option) proxy.Config {
	o := newOptions(append([]Option{WithClock(timecache.CachedTime)}, opts...))
	return proxy.Config{
		Around: func(c *proxy.Call, proceed proxy.Proceed) (out []any, err error) {
			start := o.clock()
			outcome := OutcomePanic
			defer func() {
				rec := Record{
					CallID:  c.ID(),
					Target:  o.target(c),
					Method:  c.Method,
					Args:    encodeArgs(policyArgs(c.Args)),
					Outcome: outcome,
					Started: start,
					Elapsed: o.since(start),
				}
				if err != nil {
					rec.Error = err.Error()
				}
				if r := recover(); r != nil {
					rec.Error = fmt.Sprint(r)
					write(o, c, sink, rec)
					panic(r)
				}
				write(o, c, sink, rec)
			}()

			out, err = proceed()
			outcome = OutcomeOK
			if err != nil {
				outcome = OutcomeError
			}
			return out, err
		},
	}
}

func write(o options, c *proxy.Call, sink Sink, rec Record) {
	if err := sink.Write(c.Context(), rec); err != nil {
		o.logger.LogAttrs(c.Context(), slog.LevelError, "audit write failed",
			slog.String("call_id", rec.CallID),
			slog.String("method", rec.Method),
			slog.Any("error", err),
		)
	}
}

func encodeArgs(args []any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}

// SQLiteSink stores audit records in a SQLite database.
type SQLiteSink struct {
	mu     sync.Mutex
	db     *sql.DB
	insert *sql.Stmt
}

// OpenSQLiteSink opens (or creates) the database at path and prepares the
// audit table.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path))
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditStore, "open audit database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAuditStore, "ping audit database")
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS proxy_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		call_id TEXT NOT NULL,
		target TEXT NOT NULL,
		method TEXT NOT NULL,
		args TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		elapsed_ns INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_proxy_audit_method ON proxy_audit(method);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAuditStore, "create audit schema")
	}

	insert, err := db.Prepare(`
	INSERT INTO proxy_audit (call_id, target, method, args, outcome, error, started_at, elapsed_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAuditStore, "prepare audit insert")
	}

	return &SQLiteSink{db: db, insert: insert}, nil
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insert == nil {
		return errors.New(ErrCodeAuditStore, "audit sink is closed")
	}
	_, err := s.insert.ExecContext(ctx, r.CallID, r.Target, r.Method, r.Args, r.Outcome, r.Error,
		r.Started.UnixNano(), int64(r.Elapsed))
	if err != nil {
		return errors.Wrap(err, ErrCodeAuditStore, "insert audit record")
	}
	return nil
}

// Records returns up to limit records, oldest first. limit <= 0 returns all.
func (s *SQLiteSink) Records(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT call_id, target, method, args, outcome, error, started_at, elapsed_ns
	FROM proxy_audit ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditStore, "query audit records")
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var r Record
		var started, elapsed int64
		if err := rows.Scan(&r.CallID, &r.Target, &r.Method, &r.Args, &r.Outcome, &r.Error, &started, &elapsed); err != nil {
			return nil, errors.Wrap(err, ErrCodeAuditStore, "scan audit record")
		}
		r.Started = time.Unix(0, started)
		r.Elapsed = time.Duration(elapsed)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditStore, "iterate audit records")
	}
	return out, nil
}

// Close releases the prepared statement and the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insert != nil {
		_ = s.insert.Close()
		s.insert = nil
	}
	return s.db.Close()
}
