package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"expenses/internal/core"
	"expenses/internal/storage"
)

const transactionColumns = `seq, id, date, description, amount, merchant, category_id, source, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// queryTx serves both ReadTx and Tx over one database transaction.
type queryTx struct {
	ctx     context.Context
	tx      *sql.Tx
	dialect Dialect
}

func (q *queryTx) exec(query string, args ...any) (sql.Result, error) {
	return q.tx.ExecContext(q.ctx, q.dialect.Rebind(query), args...)
}

func (q *queryTx) query(query string, args ...any) (*sql.Rows, error) {
	return q.tx.QueryContext(q.ctx, q.dialect.Rebind(query), args...)
}

func (q *queryTx) queryRow(query string, args ...any) *sql.Row {
	return q.tx.QueryRowContext(q.ctx, q.dialect.Rebind(query), args...)
}

func (q *queryTx) Revision() (uint64, error) {
	var rev int64
	if err := q.queryRow(`SELECT revision FROM ledger_meta WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return uint64(rev), nil
}

func (q *queryTx) GetCategory(id uuid.UUID) (core.Category, error) {
	var c core.Category
	err := q.queryRow(`SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError(storage.KindCategory, id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (q *queryTx) ListCategories() ([]core.Category, error) {
	rows, err := q.query(`SELECT id, name FROM categories ORDER BY ` + q.dialect.fold("name") + `, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *queryTx) CategoryUsage() (map[uuid.UUID]int, error) {
	rows, err := q.query(`SELECT category_id, COUNT(*) FROM transactions WHERE category_id IS NOT NULL GROUP BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("count category usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan category usage: %w", err)
		}
		usage[id] = count
	}
	return usage, rows.Err()
}

func (q *queryTx) GetTransaction(id uuid.UUID) (core.Transaction, error) {
	row := q.queryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewNotFoundError(storage.KindTransaction, id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// where renders the filter predicates shared by list, count and scan.
func (q *queryTx) where(f core.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Start != nil {
		conds = append(conds, "date >= ?")
		args = append(args, f.Start.String())
	}
	if f.End != nil {
		conds = append(conds, "date <= ?")
		args = append(args, f.End.String())
	}
	if f.Category.IsUnlabeled() {
		conds = append(conds, "category_id IS NULL")
	} else if id, ok := f.Category.ID(); ok {
		conds = append(conds, "category_id = ?")
		args = append(args, id)
	}
	if qs := strings.TrimSpace(f.Q); qs != "" {
		conds = append(conds, q.dialect.fold("description")+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(qs))+"%")
	}
	if f.After != nil {
		conds = append(conds, "(date < ? OR (date = ? AND seq < ?))")
		d := f.After.Date.String()
		args = append(args, d, d, f.After.Seq)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *queryTx) ListTransactions(f core.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	where, args := q.where(f)
	stmt := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY date DESC, seq DESC`
	switch {
	case f.Limit > 0:
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	case f.Offset > 0:
		stmt += q.dialect.offsetClause()
		args = append(args, f.Offset)
	}

	out := []core.Transaction{}
	err := q.scanRows(stmt, args, func(t core.Transaction) error {
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (q *queryTx) CountTransactions(f core.Filter) (int, error) {
	where, args := q.where(f)
	var n int
	if err := q.queryRow(`SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (q *queryTx) EachTransaction(f core.Filter, fn func(core.Transaction) error) error {
	where, args := q.where(f)
	return q.scanRows(`SELECT `+transactionColumns+` FROM transactions`+where, args, fn)
}

func (q *queryTx) scanRows(stmt string, args []any, fn func(core.Transaction) error) error {
	rows, err := q.query(stmt, args...)
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return fmt.Errorf("scan transaction: %w", err)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (q *queryTx) InsertCategory(c core.Category) error {
	if _, err := q.exec(`INSERT INTO categories (id, name) VALUES (?, ?)`, c.ID, c.Name); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (q *queryTx) DeleteCategory(id uuid.UUID) error {
	res, err := q.exec(`DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, storage.KindCategory, id)
}

func (q *queryTx) DetachCategory(id uuid.UUID) (int, error) {
	res, err := q.exec(`UPDATE transactions SET category_id = NULL WHERE category_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("detach category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("detach category: %w", err)
	}
	return int(n), nil
}

func (q *queryTx) InsertTransaction(t *core.Transaction) error {
	err := q.queryRow(
		`INSERT INTO transactions (id, date, description, amount, merchant, category_id, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING seq`,
		t.ID,
		t.Date.String(),
		t.Description,
		t.Amount.String(),
		nullString(t.Merchant),
		nullUUID(t.CategoryID),
		t.Source,
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	).Scan(&t.Seq)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (q *queryTx) DeleteTransaction(id uuid.UUID) error {
	res, err := q.exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res, storage.KindTransaction, id)
}

func (q *queryTx) SetTransactionCategory(id uuid.UUID, categoryID *uuid.UUID) error {
	res, err := q.exec(`UPDATE transactions SET category_id = ? WHERE id = ?`, nullUUID(categoryID), id)
	if err != nil {
		return fmt.Errorf("set transaction category: %w", err)
	}
	return requireAffected(res, storage.KindTransaction, id)
}

func requireAffected(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NewNotFoundError(kind, id)
	}
	return nil
}
