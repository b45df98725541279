// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package postgres implements storage.Repository on PostgreSQL with pgx and
// owns the schema migrations for every collection.
package postgres

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/storage"
)

// DBTX is the subset of pgxpool.Pool the repository uses.
// pgxmock.PgxPoolIface satisfies it in tests.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores one entity type in the table named by its codec.
type Repository[T any] struct {
	db    DBTX
	codec storage.Codec[T]
	opts  storage.Options
	table string
}

var _ storage.Repository[struct{}] = (*Repository[struct{}])(nil)

// NewRepository creates a repository for codec backed by db.
func NewRepository[T any](db DBTX, codec storage.Codec[T], opts ...storage.Option) *Repository[T] {
	return &Repository[T]{
		db:    db,
		codec: codec,
		opts:  storage.NewOptions(opts...),
		table: ident(codec.Collection),
	}
}

// Create implements storage.Repository.
func (r *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	row := r.codec.Prepare(entity, r.opts.NewID, r.opts.Clock())

	fields := sortedKeys(row)
	cols := make([]string, len(fields))
	marks := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		cols[i] = ident(field)
		marks[i] = placeholder(i + 1)
		args[i] = row[field]
	}

	sql := "INSERT INTO " + r.table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(marks, ", ") + ") RETURNING *"

	found, err := r.queryRows(ctx, "create", sql, args...)
	if err != nil {
		return zero, err
	}
	if len(found) != 1 {
		return zero, oops.Code(storage.CodeWriteFailed).
			With("collection", r.codec.Collection).
			With("operation", "create").
			Errorf("insert returned %d rows", len(found))
	}
	return found[0], nil
}

// FindByID implements storage.Repository.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	sql := "SELECT * FROM " + r.table + " WHERE " + ident(storage.FieldID) + " = $1"
	found, err := r.queryRows(ctx, "find by id", sql, id)
	if err != nil {
		return nil, err
	}
	return first(found), nil
}

// FindOne implements storage.Repository.
func (r *Repository[T]) FindOne(ctx context.Context, filter storage.Filter) (*T, error) {
	found, err := r.FindAll(ctx, filter, storage.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	return first(found), nil
}

// FindAll implements storage.Repository.
func (r *Repository[T]) FindAll(ctx context.Context, filter storage.Filter, opts storage.FindOptions) ([]T, error) {
	if err := r.codec.CheckFilter(filter); err != nil {
		return nil, err
	}
	if err := r.codec.CheckOptions(opts); err != nil {
		return nil, err
	}

	where, args := whereClause(filter, 1)
	var sb strings.Builder
	sb.WriteString("SELECT * FROM " + r.table + where)

	order := make([]string, 0, len(opts.Sort)+1)
	for _, s := range opts.Sort {
		dir := " ASC"
		if s.Descending {
			dir = " DESC"
		}
		order = append(order, ident(s.Field)+dir)
	}
	order = append(order, ident(storage.FieldID)+" ASC")
	sb.WriteString(" ORDER BY " + strings.Join(order, ", "))

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		sb.WriteString(" LIMIT " + placeholder(len(args)))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		sb.WriteString(" OFFSET " + placeholder(len(args)))
	}

	found, err := r.queryRows(ctx, "find", sb.String(), args...)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []T{}
	}
	return found, nil
}

// Update implements storage.Repository.
func (r *Repository[T]) Update(ctx context.Context, id string, patch storage.Patch) (*T, error) {
	if err := r.codec.CheckPatch(patch); err != nil {
		return nil, err
	}

	fields := sortedKeys(patch)
	sets := make([]string, 0, len(fields)+2)
	args := make([]any, 0, len(fields)+2)
	for _, field := range fields {
		args = append(args, patch[field])
		sets = append(sets, ident(field)+" = "+placeholder(len(args)))
	}
	args = append(args, r.opts.Clock())
	sets = append(sets, ident(storage.FieldUpdatedAt)+" = "+placeholder(len(args)))
	version := ident(storage.FieldVersion)
	sets = append(sets, version+" = "+version+" + 1")
	args = append(args, id)

	sql := "UPDATE " + r.table + " SET " + strings.Join(sets, ", ") +
		" WHERE " + ident(storage.FieldID) + " = " + placeholder(len(args)) + " RETURNING *"

	found, err := r.queryRows(ctx, "update", sql, args...)
	if err != nil {
		return nil, err
	}
	return first(found), nil
}

// Delete implements storage.Repository.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM "+r.table+" WHERE "+ident(storage.FieldID)+" = $1", id)
	if err != nil {
		return false, r.classify("delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Exists implements storage.Repository.
func (r *Repository[T]) Exists(ctx context.Context, filter storage.Filter) (bool, error) {
	if err := r.codec.CheckFilter(filter); err != nil {
		return false, err
	}
	where, args := whereClause(filter, 1)

	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+r.table+where+")", args...).Scan(&exists)
	if err != nil {
		return false, r.classify("exists", err)
	}
	return exists, nil
}

// Count implements storage.Repository.
func (r *Repository[T]) Count(ctx context.Context, filter storage.Filter) (int64, error) {
	if err := r.codec.CheckFilter(filter); err != nil {
		return 0, err
	}
	where, args := whereClause(filter, 1)

	var n int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM "+r.table+where, args...).Scan(&n); err != nil {
		return 0, r.classify("count", err)
	}
	return n, nil
}

func (r *Repository[T]) queryRows(ctx context.Context, operation, sql string, args ...any) ([]T, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, r.classify(operation, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, r.classify(operation, err)
	}

	out := make([]T, 0, len(maps))
	for _, m := range maps {
		entity, err := r.codec.Decode(storage.Row(m))
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// classify maps driver errors onto storage error codes.
func (r *Repository[T]) classify(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return storage.DuplicateError(r.codec.Collection, constraintField(r.codec.Collection, pgErr.ConstraintName), pgErr)
	}
	code := storage.CodeQueryFailed
	switch operation {
	case "create", "update", "delete":
		code = storage.CodeWriteFailed
	}
	return oops.Code(code).
		With("collection", r.codec.Collection).
		With("operation", operation).
		Wrap(err)
}

// whereClause renders an equality filter with placeholders numbered from
// start. Keys are sorted so the SQL text is stable.
func whereClause(filter storage.Filter, start int) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	fields := sortedKeys(filter)
	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		value := filter[field]
		if value == nil {
			conds = append(conds, ident(field)+" IS NULL")
			continue
		}
		args = append(args, value)
		conds = append(conds, ident(field)+" = "+placeholder(start+len(args)-1))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// constraintField recovers the column from PostgreSQL's default unique
// constraint name, <table>_<column>_key.
func constraintField(table, constraint string) string {
	field, ok := strings.CutPrefix(constraint, table+"_")
	if !ok {
		return ""
	}
	field, ok = strings.CutSuffix(field, "_key")
	if !ok {
		return ""
	}
	return field
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func first[T any](found []T) *T {
	if len(found) == 0 {
		return nil
	}
	return &found[0]
}
