// Package store is a table-agnostic persistence layer over SQLite. Every
// operation returns a uniform result envelope: expected outcomes such as
// "no rows" or a constraint violation land in the envelope, while Go errors
// are reserved for caller misuse. The store knows nothing about game
// semantics.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and applies
// the embedded schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{db: db, log: logger}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert builds the column list from non-nil values and reports the new
// row id and affected count. Constraint violations come back classified in
// the envelope.
func (s *Store) Insert(ctx context.Context, table string, values map[string]any) (Result, error) {
	cols := make([]string, 0, len(values))
	for col, v := range values {
		if v == nil {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return Result{}, fmt.Errorf("insert into %s: %w", table, ErrNoColumns)
	}
	sort.Strings(cols)
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		args = append(args, values[col])
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return failure(ReasonQuery, err.Error()), nil
	}
	defer conn.Close()

	query := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err), nil
	}
	out := success()
	out.LastInsertID, _ = res.LastInsertId()
	out.Affected, _ = res.RowsAffected()
	return out, nil
}

// GetOpts tunes a Get: column projection, a single optional join clause,
// and ordering terms.
type GetOpts struct {
	Columns []string
	Join    string
	Order   []Order
}

// Get returns every matching row reshaped into column maps. A valid query
// with no matches reports ReasonNoRows in the envelope, not a Go error.
func (s *Store) Get(ctx context.Context, table string, filters Filters, opts GetOpts) (Result, error) {
	where, args, err := filters.build()
	if err != nil {
		return Result{}, fmt.Errorf("get from %s: %w", table, err)
	}
	orderSQL, err := buildOrder(opts.Order)
	if err != nil {
		return Result{}, fmt.Errorf("get from %s: %w", table, err)
	}

	projection := "*"
	if len(opts.Columns) > 0 {
		projection = strings.Join(opts.Columns, ", ")
	}
	query := "SELECT " + projection + " FROM " + table
	if join := strings.TrimSpace(opts.Join); join != "" {
		query += " " + join
	}
	if where != "" {
		query += " WHERE " + where
	}
	query += orderSQL

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return failure(ReasonQuery, err.Error()), nil
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return classify(err), nil
	}
	defer rows.Close()

	out := success()
	names, err := rows.Columns()
	if err != nil {
		return failure(ReasonQuery, err.Error()), nil
	}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return failure(ReasonQuery, err.Error()), nil
		}
		row := make(map[string]any, len(names))
		for i, name := range names {
			row[name] = values[i]
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return failure(ReasonQuery, err.Error()), nil
	}
	if len(out.Rows) == 0 {
		return failure(ReasonNoRows, "table "+table), nil
	}
	out.Affected = int64(len(out.Rows))
	return out, nil
}

// Update applies the non-nil changes to every row matched by filters. An
// empty change set or an empty filter is caller error.
func (s *Store) Update(ctx context.Context, table string, changes map[string]any, filters Filters) (Result, error) {
	if filters.empty() {
		return Result{}, fmt.Errorf("update %s: %w", table, ErrNoFilter)
	}
	cols := make([]string, 0, len(changes))
	for col, v := range changes {
		if v == nil {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return Result{}, fmt.Errorf("update %s: %w", table, ErrNoColumns)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, changes[col])
	}
	where, whereArgs, err := filters.build()
	if err != nil {
		return Result{}, fmt.Errorf("update %s: %w", table, err)
	}
	args = append(args, whereArgs...)

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return failure(ReasonQuery, err.Error()), nil
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, "UPDATE "+table+" SET "+strings.Join(sets, ", ")+" WHERE "+where, args...)
	if err != nil {
		return classify(err), nil
	}
	out := success()
	out.Affected, _ = res.RowsAffected()
	return out, nil
}

// Delete removes every row matched by filters; an empty filter is caller
// error so a stray call can never truncate a table.
func (s *Store) Delete(ctx context.Context, table string, filters Filters) (Result, error) {
	if filters.empty() {
		return Result{}, fmt.Errorf("delete from %s: %w", table, ErrNoFilter)
	}
	where, args, err := filters.build()
	if err != nil {
		return Result{}, fmt.Errorf("delete from %s: %w", table, err)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return failure(ReasonQuery, err.Error()), nil
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+where, args...)
	if err != nil {
		return classify(err), nil
	}
	out := success()
	out.Affected, _ = res.RowsAffected()
	return out, nil
}

// Raw is the passthrough for pre-built statements. Values must still be
// bound by the caller via args.
func (s *Store) Raw(ctx context.Context, query string, args ...any) (Result, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return failure(ReasonQuery, err.Error()), nil
	}
	defer conn.Close()

	trimmed := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(trimmed, "SELECT") {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return classify(err), nil
		}
		defer rows.Close()
		out := success()
		names, err := rows.Columns()
		if err != nil {
			return failure(ReasonQuery, err.Error()), nil
		}
		for rows.Next() {
			values := make([]any, len(names))
			ptrs := make([]any, len(names))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return failure(ReasonQuery, err.Error()), nil
			}
			row := make(map[string]any, len(names))
			for i, name := range names {
				row[name] = values[i]
			}
			out.Rows = append(out.Rows, row)
		}
		if err := rows.Err(); err != nil {
			return failure(ReasonQuery, err.Error()), nil
		}
		if len(out.Rows) == 0 {
			return failure(ReasonNoRows, ""), nil
		}
		out.Affected = int64(len(out.Rows))
		return out, nil
	}

	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(err), nil
	}
	out := success()
	out.LastInsertID, _ = res.LastInsertId()
	out.Affected, _ = res.RowsAffected()
	return out, nil
}
