// internal/repository/postgres/gateway.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"notary-service/internal/pkg/crypto"
	xerrors "notary-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Status is the outcome of a gateway call. Callers must be able to tell "no
// rows" apart from "the store failed" without inspecting driver errors.
type Status uint8

const (
	StatusOK Status = iota
	StatusEmpty
	StatusFailed
)

func (s Status) OK() bool     { return s == StatusOK }
func (s Status) Failed() bool { return s == StatusFailed }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	}
	return "failed"
}

// Err converts a failed status into ErrPersistence and anything else to nil.
func (s Status) Err() error {
	if s == StatusFailed {
		return xerrors.ErrPersistence
	}
	return nil
}

// Row is a single result row keyed by column name. Byte slices are
// converted to strings.
type Row map[string]any

func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Gateway is the single access path to the relational store. Queries are
// written with '?' placeholders; values are always bound, never formatted
// into the query text.
type Gateway struct {
	db     *sql.DB
	q      querier
	tx     *sql.Tx
	hasher *crypto.PasswordHasher
	cipher *crypto.FieldCipher
	logger *zap.Logger
}

func NewGateway(db *sql.DB, hasher *crypto.PasswordHasher, cipher *crypto.FieldCipher, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{db: db, q: db, hasher: hasher, cipher: cipher, logger: logger}
}

// DB exposes the underlying handle for health checks.
func (g *Gateway) DB() *sql.DB {
	return g.db
}

// Ping verifies that the store is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		g.logger.Error("database ping failed", zap.Error(err))
		return xerrors.ErrPersistence
	}
	return nil
}

// Select runs a query and returns every row.
func (g *Gateway) Select(ctx context.Context, query string, args ...any) ([]Row, Status) {
	rows, err := g.q.QueryContext(ctx, Rebind(query), args...)
	if err != nil {
		return nil, g.fail("select", query, args, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, g.fail("select", query, args, err)
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, g.fail("select", query, args, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, g.fail("select", query, args, err)
	}
	if len(out) == 0 {
		return nil, StatusEmpty
	}
	return out, StatusOK
}

// SelectOne returns the first row of a query.
func (g *Gateway) SelectOne(ctx context.Context, query string, args ...any) (Row, Status) {
	rows, st := g.Select(ctx, query, args...)
	if st != StatusOK {
		return nil, st
	}
	return rows[0], StatusOK
}

// ScanOne scans a single row into dest.
func (g *Gateway) ScanOne(ctx context.Context, dest []any, query string, args ...any) Status {
	err := g.q.QueryRowContext(ctx, Rebind(query), args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return StatusEmpty
	}
	if err != nil {
		return g.fail("scan", query, args, err)
	}
	return StatusOK
}

// ScanAll calls fn for every row of the result.
func (g *Gateway) ScanAll(ctx context.Context, fn func(*sql.Rows) error, query string, args ...any) Status {
	rows, err := g.q.QueryContext(ctx, Rebind(query), args...)
	if err != nil {
		return g.fail("scan", query, args, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := fn(rows); err != nil {
			return g.fail("scan", query, args, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return g.fail("scan", query, args, err)
	}
	if n == 0 {
		return StatusEmpty
	}
	return StatusOK
}

// Insert runs an INSERT and returns the generated id. " RETURNING id" is
// appended when the statement does not already carry a RETURNING clause.
func (g *Gateway) Insert(ctx context.Context, query string, args ...any) (int64, Status) {
	if !strings.Contains(strings.ToUpper(query), "RETURNING") {
		query = strings.TrimRight(strings.TrimSpace(query), ";") + " RETURNING id"
	}
	var id int64
	err := g.q.QueryRowContext(ctx, Rebind(query), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// INSERT ... ON CONFLICT DO NOTHING
		return 0, StatusEmpty
	}
	if err != nil {
		return 0, g.fail("insert", query, args, err)
	}
	return id, StatusOK
}

// Update returns the number of affected rows; zero rows is StatusEmpty.
func (g *Gateway) Update(ctx context.Context, query string, args ...any) (int64, Status) {
	return g.affect(ctx, "update", query, args)
}

// Delete returns the number of removed rows; zero rows is StatusEmpty.
func (g *Gateway) Delete(ctx context.Context, query string, args ...any) (int64, Status) {
	return g.affect(ctx, "delete", query, args)
}

// Execute runs a statement whose row count does not matter (DDL, upserts).
func (g *Gateway) Execute(ctx context.Context, query string, args ...any) Status {
	if _, err := g.q.ExecContext(ctx, Rebind(query), args...); err != nil {
		return g.fail("execute", query, args, err)
	}
	return StatusOK
}

// Count returns the number of rows of table matching where. An empty where
// counts the whole table.
func (g *Gateway) Count(ctx context.Context, table, where string, args ...any) (int64, Status) {
	if !KnownTable(table) {
		g.logger.Error("count on unknown table rejected", zap.String("table", table))
		return 0, StatusFailed
	}
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int64
	if st := g.ScanOne(ctx, []any{&n}, query, args...); st == StatusFailed {
		return 0, st
	}
	return n, StatusOK
}

// Exists reports whether at least one row of table matches where.
func (g *Gateway) Exists(ctx context.Context, table, where string, args ...any) (bool, Status) {
	if !KnownTable(table) {
		g.logger.Error("exists on unknown table rejected", zap.String("table", table))
		return false, StatusFailed
	}
	query := "SELECT EXISTS (SELECT 1 FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	query += ")"
	var ok bool
	if st := g.ScanOne(ctx, []any{&ok}, query, args...); st == StatusFailed {
		return false, st
	}
	return ok, StatusOK
}

// Begin opens a transaction and returns a gateway bound to it.
func (g *Gateway) Begin(ctx context.Context) (*Gateway, error) {
	if g.tx != nil {
		return nil, errors.New("transaction already open")
	}
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		g.logger.Error("begin transaction failed", zap.Error(err))
		return nil, xerrors.ErrPersistence
	}
	child := *g
	child.q = tx
	child.tx = tx
	return &child, nil
}

func (g *Gateway) Commit() error {
	if g.tx == nil {
		return errors.New("no open transaction")
	}
	if err := g.tx.Commit(); err != nil {
		g.logger.Error("commit failed", zap.Error(err))
		return xerrors.ErrPersistence
	}
	return nil
}

func (g *Gateway) Rollback() error {
	if g.tx == nil {
		return errors.New("no open transaction")
	}
	if err := g.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		g.logger.Error("rollback failed", zap.Error(err))
		return xerrors.ErrPersistence
	}
	return nil
}

// WithTx runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
func (g *Gateway) WithTx(ctx context.Context, fn func(tx *Gateway) error) error {
	tx, err := g.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (g *Gateway) HashPassword(password string) (string, error) {
	return g.hasher.Hash(password)
}

func (g *Gateway) VerifyPassword(hash, password string) bool {
	return g.hasher.Verify(hash, password)
}

func (g *Gateway) Encrypt(plaintext string) (string, error) {
	if g.cipher == nil {
		return "", errors.New("field encryption is not configured")
	}
	return g.cipher.Encrypt(plaintext)
}

func (g *Gateway) Decrypt(encoded string) (string, error) {
	if g.cipher == nil {
		return "", errors.New("field encryption is not configured")
	}
	return g.cipher.Decrypt(encoded)
}

func (g *Gateway) affect(ctx context.Context, op, query string, args []any) (int64, Status) {
	res, err := g.q.ExecContext(ctx, Rebind(query), args...)
	if err != nil {
		return 0, g.fail(op, query, args, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, g.fail(op, query, args, err)
	}
	if n == 0 {
		return 0, StatusEmpty
	}
	return n, StatusOK
}

// fail logs the statement shape. Argument values are never logged.
func (g *Gateway) fail(op, query string, args []any, err error) Status {
	g.logger.Error("database "+op+" failed",
		zap.String("query", compact(query)),
		zap.Int("args", len(args)),
		zap.Error(err),
	)
	return StatusFailed
}

// Rebind rewrites '?' placeholders to Postgres' $1..$n form. Question marks
// inside single-quoted literals or double-quoted identifiers are left alone.
func Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
