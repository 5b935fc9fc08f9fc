package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update hits a unique constraint
	ErrDuplicate = errors.New("record already exists")
)

// Queries runs statements against either the pool or an open transaction.
type Queries struct {
	q sqlx.ExtContext
}

// Repository provides database operations
type Repository struct {
	*Queries
	db *sqlx.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{Queries: &Queries{q: db}, db: db}
}

// Open connects to the database with the given driver ("postgres" or "sqlite3").
func Open(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == "sqlite3" {
		// sqlite serializes writers anyway and an in-memory database lives on a single connection
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&Queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

var now = func() time.Time { return time.Now().UTC() }

func (q *Queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, q.q, dest, q.q.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (q *Queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, q.q, dest, q.q.Rebind(query), args...)
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.q.ExecContext(ctx, q.q.Rebind(query), args...)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// insertReturning runs a named INSERT ... RETURNING id and stores the id.
// ok is false when the statement produced no row (ON CONFLICT DO NOTHING).
func (q *Queries) insertReturning(ctx context.Context, query string, arg interface{}, id *int64) (ok bool, err error) {
	rows, err := sqlx.NamedQueryContext(ctx, q.q, query, arg)
	if err != nil {
		return false, translate(err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(id); err != nil {
			return false, err
		}
		ok = true
	}
	if err := rows.Err(); err != nil {
		return false, translate(err)
	}
	return ok, nil
}

func (q *Queries) namedExec(ctx context.Context, query string, arg interface{}) (int64, error) {
	res, err := sqlx.NamedExecContext(ctx, q.q, query, arg)
	if err != nil {
		return 0, translate(err)
	}
	return res.RowsAffected()
}

// translate maps driver unique-constraint errors onto ErrDuplicate.
func translate(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
