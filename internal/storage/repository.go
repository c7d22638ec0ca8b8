package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// SQLiteRepository is the persistence layer for transactions, categories,
// budgets, and goals. Aggregation-facing reads return rows joined to their
// category; a deleted category surfaces as a nil Category so callers can
// skip the row instead of failing.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const transactionColumns = `
	t.id, t.user_id, t.category_id, t.amount, t.currency, t.date,
	t.description, t.is_recurring, t.recurring_interval,
	c.id, c.name, c.type, c.icon`

const transactionJoin = `
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

// CreateTransaction persists a new transaction record.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, category_id, amount, currency, date, description,
			 is_recurring, recurring_interval)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.CategoryID, t.Amount.String(), t.Currency,
		t.Date.UTC(), t.Description, t.IsRecurring, nullableInterval(t.Interval))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"category_id", t.CategoryID,
		"amount", t.Amount.String(),
		"currency", t.Currency)
	return nil
}

// GetTransaction returns one transaction with its category joined in.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+transactionJoin+` WHERE t.id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns a user's transactions, newest first, optionally
// restricted to an inclusive date window.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, w *core.Window) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + transactionJoin + ` WHERE t.user_id = ?`
	args := []any{userID}
	if w != nil {
		query += ` AND t.date >= ? AND t.date <= ?`
		args = append(args, w.Start.UTC(), w.End.UTC())
	}
	query += ` ORDER BY t.date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// DeleteTransaction removes a transaction owned by the user.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ListRecurringTemplates returns all recurring transactions whose interval
// is monthly or unset, across all users. Unset is treated as monthly.
func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+transactionJoin+`
		WHERE t.is_recurring = 1
		  AND (t.recurring_interval IS NULL OR t.recurring_interval = '' OR t.recurring_interval = ?)
		ORDER BY t.user_id, t.date`, string(core.IntervalMonthly))
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// CreateRecurringInstance materializes a recurring template for the period
// covered by w, creating at most one instance. The duplicate check and the
// insert run in a single immediate transaction; SQLite serializes writers,
// so concurrent ticks cannot both pass the check. Returns false when an
// instance matching the template already exists in the period.
func (r *SQLiteRepository) CreateRecurringInstance(ctx context.Context, t core.Transaction, w core.Window) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = ? AND category_id = ? AND amount = ?
			  AND description = ? AND is_recurring = 1
			  AND date >= ? AND date <= ?
		)`,
		t.UserID, t.CategoryID, t.Amount.String(), t.Description,
		w.Start.UTC(), w.End.UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing instance: %w", err)
	}
	if exists {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, category_id, amount, currency, date, description,
			 is_recurring, recurring_interval)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		t.ID, t.UserID, t.CategoryID, t.Amount.String(), t.Currency,
		t.Date.UTC(), t.Description, nullableInterval(t.Interval))
	if err != nil {
		return false, fmt.Errorf("insert instance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// GetCategory returns one category by id.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (*core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, icon FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Type, &c.Icon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// ListCategories returns the full category reference set.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertBudget creates or replaces the budget for its composite key. At
// most one budget exists per (user, category, month, year); a second write
// updates the limit rather than inserting a duplicate.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category_id, month, year, limit_amount)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id, month, year)
		DO UPDATE SET limit_amount = excluded.limit_amount`,
		b.UserID, b.CategoryID, b.Month, b.Year, b.Limit.String())
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// ListBudgets returns a user's budgets for a month, categories joined in.
// month and year of zero mean no filter.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string, month, year int) ([]core.Budget, error) {
	query := `
		SELECT b.user_id, b.category_id, b.month, b.year, b.limit_amount,
		       c.id, c.name, c.type, c.icon
		FROM budgets b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ?`
	args := []any{userID}
	if month != 0 && year != 0 {
		query += ` AND b.month = ? AND b.year = ?`
		args = append(args, month, year)
	}
	query += ` ORDER BY b.year, b.month, b.category_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b        core.Budget
			limit    string
			catID    sql.NullString
			catName  sql.NullString
			catType  sql.NullString
			catIcon  sql.NullString
		)
		if err := rows.Scan(&b.UserID, &b.CategoryID, &b.Month, &b.Year, &limit,
			&catID, &catName, &catType, &catIcon); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Limit, err = decimal.NewFromString(limit)
		if err != nil {
			return nil, fmt.Errorf("parse budget limit %q: %w", limit, err)
		}
		if catID.Valid {
			b.Category = &core.Category{
				ID:   catID.String,
				Name: catName.String,
				Type: core.CategoryType(catType.String),
				Icon: catIcon.String,
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateGoal persists a savings goal.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, target_amount, deadline)
		VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.TargetAmount.String(), g.Deadline.UTC())
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// ListGoals returns a user's goals ordered by ascending deadline.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, target_amount, deadline
		FROM goals WHERE user_id = ? ORDER BY deadline`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g      core.Goal
			target string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &target, &g.Deadline); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.TargetAmount, err = decimal.NewFromString(target)
		if err != nil {
			return nil, fmt.Errorf("parse goal target %q: %w", target, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// DeleteGoal removes a goal owned by the user.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t        core.Transaction
		amount   string
		date     time.Time
		interval sql.NullString
		catID    sql.NullString
		catName  sql.NullString
		catType  sql.NullString
		catIcon  sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &amount, &t.Currency,
		&date, &t.Description, &t.IsRecurring, &interval,
		&catID, &catName, &catType, &catIcon)
	if err != nil {
		return nil, err
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	t.Date = date
	if interval.Valid {
		t.Interval = core.RecurringInterval(interval.String)
	}
	if catID.Valid {
		t.Category = &core.Category{
			ID:   catID.String,
			Name: catName.String,
			Type: core.CategoryType(catType.String),
			Icon: catIcon.String,
		}
	}
	return &t, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func nullableInterval(i core.RecurringInterval) any {
	if i == "" {
		return nil
	}
	return string(i)
}
