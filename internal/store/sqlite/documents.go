package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/store"
	"github.com/murmurapp/murmur-server/internal/validation"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type column struct {
	name  string
	value any
}

// docTable stores records of type T as JSON in a (id, body) table.
type docTable[T any] struct {
	db    *sql.DB
	name  string
	v     *validation.Validator
	idOf  func(*T) string
	extra func(*T) []column // additional indexed columns, optional
}

func (t *docTable[T]) encode(record *T) ([]byte, []column, error) {
	if err := t.v.Validate(record); err != nil {
		return nil, nil, err
	}
	body, err := json.Marshal(record)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal %s: %w", t.name, err)
	}
	var cols []column
	if t.extra != nil {
		cols = t.extra(record)
	}
	return body, cols, nil
}

func (t *docTable[T]) insert(ctx context.Context, record *T) error {
	body, extra, err := t.encode(record)
	if err != nil {
		return err
	}

	names := []string{"id", "body"}
	args := []any{t.idOf(record), string(body)}
	for _, c := range extra {
		names = append(names, c.name)
		args = append(args, c.value)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(names, ", "), placeholders(len(names)))
	if _, err := t.db.ExecContext(ctx, stmt, args...); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (t *docTable[T]) update(ctx context.Context, record *T) error {
	return t.updateWith(ctx, t.db, record)
}

func (t *docTable[T]) updateWith(ctx context.Context, q querier, record *T) error {
	body, extra, err := t.encode(record)
	if err != nil {
		return err
	}

	sets := []string{"body = ?"}
	args := []any{string(body)}
	for _, c := range extra {
		sets = append(sets, c.name+" = ?")
		args = append(args, c.value)
	}
	args = append(args, t.idOf(record))

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.name, strings.Join(sets, ", "))
	res, err := q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return mapWriteError(err)
	}
	return requireRow(res)
}

// modify loads the record, applies fn and writes it back inside a BEGIN
// IMMEDIATE transaction. The write lock is taken before the read, so no other
// writer can change the record in between.
func (t *docTable[T]) modify(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := t.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, fmt.Errorf("begin %s update: %w", t.name, err)
	}

	record, err := t.modifyLocked(ctx, conn, id, fn)
	if err == nil {
		_, err = conn.ExecContext(ctx, "COMMIT")
	}
	if err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		return nil, err
	}
	return record, nil
}

func (t *docTable[T]) modifyLocked(ctx context.Context, conn *sql.Conn, id string, fn func(*T) error) (*T, error) {
	record, err := t.getWith(ctx, conn, "id", id)
	if err != nil {
		return nil, err
	}
	if err := fn(record); err != nil {
		return nil, err
	}
	if t.idOf(record) != id {
		return nil, fmt.Errorf("update %s %s: record id changed", t.name, id)
	}
	if err := t.updateWith(ctx, conn, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (t *docTable[T]) delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (t *docTable[T]) get(ctx context.Context, id string) (*T, error) {
	return t.getBy(ctx, "id", id)
}

func (t *docTable[T]) getBy(ctx context.Context, col, value string) (*T, error) {
	return t.getWith(ctx, t.db, col, value)
}

func (t *docTable[T]) getWith(ctx context.Context, q querier, col, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var body string
	err := q.QueryRowContext(ctx, "SELECT body FROM "+t.name+" WHERE "+col+" = ?", value).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}

	var record T
	if err := json.Unmarshal([]byte(body), &record); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", t.name, err)
	}
	return &record, nil
}

func (t *docTable[T]) all(ctx context.Context) ([]*T, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT body FROM "+t.name+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var record T
		if err := json.Unmarshal([]byte(body), &record); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", t.name, err)
		}
		out = append(out, &record)
	}
	return out, rows.Err()
}

// Find implements query.Source.
func (t *docTable[T]) Find(ctx context.Context, plan *query.Plan) ([]query.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.find(ctx, t.db, plan)
}

// Count implements query.Source.
func (t *docTable[T]) Count(ctx context.Context, filter query.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.count(ctx, t.db, filter)
}

// FindWithCount implements query.Source. Both statements run in one read
// transaction and therefore see the same snapshot.
func (t *docTable[T]) FindWithCount(ctx context.Context, plan *query.Plan) ([]query.Document, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin %s read: %w", t.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	docs, err := t.find(ctx, tx, plan)
	if err != nil {
		return nil, 0, err
	}
	total, err := t.count(ctx, tx, plan.Filter)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (t *docTable[T]) find(ctx context.Context, q querier, plan *query.Plan) ([]query.Document, error) {
	stmt, args, err := compileFind(t.name, plan)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t.name, err)
	}
	defer rows.Close()

	docs := []query.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		doc, err := query.DecodeDocument([]byte(body))
		if err != nil {
			return nil, err
		}
		docs = append(docs, plan.Project(doc))
	}
	return docs, rows.Err()
}

func (t *docTable[T]) count(ctx context.Context, q querier, filter query.Predicate) (int, error) {
	stmt, args, err := compileCount(t.name, filter)
	if err != nil {
		return 0, err
	}

	var n int
	if err := q.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func mapWriteError(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
	}
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
