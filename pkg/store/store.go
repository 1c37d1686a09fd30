// Package store manages the SQLite persistence of a constraint network.
//
// The database holds the log a network is rebuilt from: labelled instants,
// every asserted constraint with its outcome, and the domains asserted for
// agendas. Nothing derived (the propagated matrix, agenda slots) is ever
// stored; a reader replays the log instead. WAL mode lets several CLI
// processes read and append concurrently; writers that decide from a
// replayed log append with AppendConstraintAfter so that nothing they did
// not see slips in between.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/XopheD/chronologic/pkg/model"

	_ "modernc.org/sqlite"
)

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db   *sql.DB
	path string
	log  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger makes the store report retried operations at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string, opts ...Option) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file the store was opened on.
func (s *Store) Path() string { return s.path }

// retryOnContention runs fn under the default retry policy. All store
// writes go through it to survive transient SQLite errors (BUSY, LOCKED,
// IOERR_SHORT_READ) under concurrent access.
func (s *Store) retryOnContention(op string, fn func() error) error {
	return retryOp(defaultRetryConfig, fn, func(attempt int, delay time.Duration, err error) {
		s.log.Debug("retrying store operation",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS instants (
		id         INTEGER PRIMARY KEY,
		label      TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS constraints (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		from_id    INTEGER NOT NULL REFERENCES instants(id),
		to_id      INTEGER NOT NULL REFERENCES instants(id),
		lo         TEXT NOT NULL,
		hi         TEXT NOT NULL,
		status     TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_constraints_status ON constraints(status, id);

	CREATE TABLE IF NOT EXISTS restrictions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		instant_id INTEGER NOT NULL REFERENCES instants(id),
		lo         TEXT NOT NULL,
		hi         TEXT NOT NULL,
		mode       TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_restrictions_instant ON restrictions(instant_id);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Instants
// ---------------------------------------------------------------------------

// AddInstant registers label and returns its record. Idempotent via ON
// CONFLICT: an existing label keeps its id. New ids are dense, one past the
// highest id so far.
func (s *Store) AddInstant(label string) (*model.Instant, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.retryOnContention("add instant", func() error {
		_, err := s.db.Exec(
			`INSERT INTO instants (id, label, created_at)
			 VALUES ((SELECT COALESCE(MAX(id) + 1, 0) FROM instants), ?, ?)
			 ON CONFLICT(label) DO NOTHING`,
			label, now,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstant(label)
}

// GetInstant retrieves an instant by label. It returns sql.ErrNoRows for an
// unknown label.
func (s *Store) GetInstant(label string) (*model.Instant, error) {
	row := s.db.QueryRow(`SELECT id, label, created_at FROM instants WHERE label = ?`, label)
	var in model.Instant
	var createdStr string
	if err := row.Scan(&in.ID, &in.Label, &createdStr); err != nil {
		return nil, err
	}
	var parseErr error
	in.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr)
	if parseErr != nil {
		return nil, fmt.Errorf("parse created_at time for instant %s: %w", in.Label, parseErr)
	}
	return &in, nil
}

// ListInstants returns every instant ordered by id.
func (s *Store) ListInstants() ([]model.Instant, error) {
	rows, err := s.db.Query(`SELECT id, label, created_at FROM instants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instants []model.Instant
	for rows.Next() {
		var in model.Instant
		var createdStr string
		if err := rows.Scan(&in.ID, &in.Label, &createdStr); err != nil {
			return nil, err
		}
		var parseErr error
		in.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse created_at time for instant %s: %w", in.Label, parseErr)
		}
		instants = append(instants, in)
	}
	return instants, rows.Err()
}

// ---------------------------------------------------------------------------
// Constraints
// ---------------------------------------------------------------------------

// ErrStaleLog is returned by AppendConstraintAfter when another writer
// appended to the constraint log since the caller last read it.
var ErrStaleLog = errors.New("constraint log moved")

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertConstraint(ctx context.Context, db execer, c *model.Constraint) (int64, error) {
	lo, err := c.Lo.MarshalText()
	if err != nil {
		return 0, err
	}
	hi, err := c.Hi.MarshalText()
	if err != nil {
		return 0, err
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO constraints (from_id, to_id, lo, hi, status, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.From, c.To, string(lo), string(hi), string(c.Status), int64(c.Version),
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AppendConstraint appends c to the log. Returns the auto-generated row ID.
func (s *Store) AppendConstraint(c *model.Constraint) (int64, error) {
	var lastID int64
	err := s.retryOnContention("append constraint", func() error {
		var err error
		lastID, err = insertConstraint(context.Background(), s.db, c)
		return err
	})
	return lastID, err
}

// AppendConstraintAfter appends c only if the last log entry is still head
// (0 for an empty log), and fails with ErrStaleLog otherwise. The check and
// the insert run in one BEGIN IMMEDIATE transaction, so two writers that
// read the same head cannot both append.
func (s *Store) AppendConstraintAfter(head int64, c *model.Constraint) (int64, error) {
	var lastID int64
	err := s.retryOnContention("append constraint", func() error {
		ctx := context.Background()
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			return err
		}
		committed := false
		defer func() {
			if !committed {
				conn.ExecContext(ctx, "ROLLBACK")
			}
		}()

		var last int64
		if err := conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM constraints`).Scan(&last); err != nil {
			return err
		}
		if last != head {
			return fmt.Errorf("%w: last entry is %d, not %d", ErrStaleLog, last, head)
		}
		id, err := insertConstraint(ctx, conn, c)
		if err != nil {
			return err
		}
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return err
		}
		committed = true
		lastID = id
		return nil
	})
	return lastID, err
}

// LastConstraintID returns the row ID of the last log entry, or 0 for an
// empty log.
func (s *Store) LastConstraintID() (int64, error) {
	var id int64
	err := s.db.QueryRow(`SELECT COALESCE(MAX(id), 0) FROM constraints`).Scan(&id)
	return id, err
}

// SetConstraintStatus rewrites the status of log entry id.
func (s *Store) SetConstraintStatus(id int64, status model.Status) error {
	return s.retryOnContention("set constraint status", func() error {
		res, err := s.db.Exec(`UPDATE constraints SET status = ? WHERE id = ?`, string(status), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

const constraintColumns = `c.id, c.from_id, c.to_id, f.label, t.label, c.lo, c.hi, c.status, c.version, c.created_at
	 FROM constraints c
	 JOIN instants f ON f.id = c.from_id
	 JOIN instants t ON t.id = c.to_id`

// ListConstraints returns log entries with row ID > sinceID, ordered by ID.
func (s *Store) ListConstraints(sinceID int64, limit int) ([]model.Constraint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT `+constraintColumns+`
		 WHERE c.id > ? ORDER BY c.id ASC LIMIT ?`,
		sinceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConstraints(rows)
}

// ListReplayable returns every applied or implied constraint in log order:
// the clean log a graph is rebuilt from.
func (s *Store) ListReplayable() ([]model.Constraint, error) {
	rows, err := s.db.Query(
		`SELECT `+constraintColumns+`
		 WHERE c.status IN (?, ?) ORDER BY c.id ASC`,
		string(model.StatusApplied), string(model.StatusImplied),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConstraints(rows)
}

// CountConstraints returns the number of log entries per status.
func (s *Store) CountConstraints() (map[model.Status]int64, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM constraints GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.Status(status)] = n
	}
	return counts, rows.Err()
}

// MaxVersion returns the highest graph version recorded in the log, or 0
// if the log is empty.
func (s *Store) MaxVersion() uint64 {
	var v int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM constraints`).Scan(&v); err != nil {
		return 0
	}
	return uint64(v)
}

func scanConstraints(rows *sql.Rows) ([]model.Constraint, error) {
	var cs []model.Constraint
	for rows.Next() {
		var c model.Constraint
		var loStr, hiStr, statusStr, createdStr string
		var version int64
		if err := rows.Scan(&c.ID, &c.From, &c.To, &c.FromLabel, &c.ToLabel,
			&loStr, &hiStr, &statusStr, &version, &createdStr); err != nil {
			return nil, err
		}
		if err := c.Lo.UnmarshalText([]byte(loStr)); err != nil {
			return nil, fmt.Errorf("parse lo for constraint %d: %w", c.ID, err)
		}
		if err := c.Hi.UnmarshalText([]byte(hiStr)); err != nil {
			return nil, fmt.Errorf("parse hi for constraint %d: %w", c.ID, err)
		}
		c.Status = model.Status(statusStr)
		c.Version = uint64(version)
		var parseErr error
		c.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse created_at time for constraint %d: %w", c.ID, parseErr)
		}
		cs = append(cs, c)
	}
	return cs, rows.Err()
}

// ---------------------------------------------------------------------------
// Restrictions
// ---------------------------------------------------------------------------

// AddRestriction records a domain asserted on one instant.
func (s *Store) AddRestriction(r *model.Restriction) (int64, error) {
	lo, err := r.Lo.MarshalText()
	if err != nil {
		return 0, err
	}
	hi, err := r.Hi.MarshalText()
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var lastID int64
	err = s.retryOnContention("add restriction", func() error {
		res, err := s.db.Exec(
			`INSERT INTO restrictions (instant_id, lo, hi, mode, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			r.InstantID, string(lo), string(hi), string(r.Mode), now,
		)
		if err != nil {
			return err
		}
		lastID, err = res.LastInsertId()
		return err
	})
	return lastID, err
}

// ListRestrictions returns every restriction in the order it was asserted.
func (s *Store) ListRestrictions() ([]model.Restriction, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.instant_id, i.label, r.lo, r.hi, r.mode, r.created_at
		 FROM restrictions r JOIN instants i ON i.id = r.instant_id
		 ORDER BY r.id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rs []model.Restriction
	for rows.Next() {
		var r model.Restriction
		var loStr, hiStr, modeStr, createdStr string
		if err := rows.Scan(&r.ID, &r.InstantID, &r.Label, &loStr, &hiStr, &modeStr, &createdStr); err != nil {
			return nil, err
		}
		if err := r.Lo.UnmarshalText([]byte(loStr)); err != nil {
			return nil, fmt.Errorf("parse lo for restriction %d: %w", r.ID, err)
		}
		if err := r.Hi.UnmarshalText([]byte(hiStr)); err != nil {
			return nil, fmt.Errorf("parse hi for restriction %d: %w", r.ID, err)
		}
		r.Mode = model.RestrictMode(modeStr)
		var parseErr error
		r.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse created_at time for restriction %d: %w", r.ID, parseErr)
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

// Meta keys.
const (
	// MetaReference holds the label of the default agenda reference.
	MetaReference = "reference"
)

// GetMeta returns the value stored under key ("" if unset).
func (s *Store) GetMeta(key string) string {
	var v string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetMeta stores value under key.
func (s *Store) SetMeta(key, value string) error {
	return s.retryOnContention("set meta", func() error {
		_, err := s.db.Exec(
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		return err
	})
}
