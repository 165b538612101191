// Package storage persists the budget aggregate in a local SQLite
// database. The aggregate is small enough that Save rewrites the whole
// state in a single transaction, which keeps the on-disk state and the
// in-memory state from ever diverging partially.
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

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"

	_ "modernc.org/sqlite"
)

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

// Load reads the full aggregate. An empty database yields the default
// first-run aggregate rather than an error.
func (r *SQLiteRepository) Load(ctx context.Context) (core.BudgetAggregate, error) {
	var agg core.BudgetAggregate

	var lastReset sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT active_month, last_reset, is_first_time, theme, version FROM app_state WHERE id = 1`,
	).Scan(&agg.ActiveMonth, &lastReset, &agg.IsFirstTime, &agg.Theme, &agg.Version)
	if errors.Is(err, sql.ErrNoRows) {
		slog.InfoContext(ctx, "No saved state, starting fresh")
		return core.DefaultAggregate(time.Now()), nil
	}
	if err != nil {
		return core.BudgetAggregate{}, fmt.Errorf("load app state: %w", err)
	}
	agg.LastReset = timeFromDB(lastReset)

	if agg.Bills, err = r.loadBills(ctx); err != nil {
		return core.BudgetAggregate{}, err
	}
	if agg.PaidHistory, err = r.loadHistory(ctx); err != nil {
		return core.BudgetAggregate{}, err
	}
	if agg.PayInfos, err = r.loadPayInfos(ctx); err != nil {
		return core.BudgetAggregate{}, err
	}

	return agg, nil
}

// Save replaces the persisted aggregate wholesale in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, agg core.BudgetAggregate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"bills", "history", "pay_infos", "app_state"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO app_state (id, active_month, last_reset, is_first_time, theme, version)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		agg.ActiveMonth, timeToDB(agg.LastReset), agg.IsFirstTime, agg.Theme, agg.Version)
	if err != nil {
		return fmt.Errorf("save app state: %w", err)
	}

	for i, b := range agg.Bills {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO bills (id, position, name, amount_cents, due_date, frequency,
			    is_paid, paid_amount_cents, paid_method, paid_date,
			    has_balance, balance_cents, monthly_payment_cents, interest_rate,
			    is_credit_account, note, original_due_day)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, i, b.Name, b.Amount.Cents, timeToDB(b.DueDate), string(b.Frequency),
			b.IsPaid, b.PaidAmount.Cents, b.PaidMethod, timeToDB(b.PaidDate),
			b.HasBalance, b.Balance.Cents, b.MonthlyPayment.Cents, b.InterestRate,
			b.IsCreditAccount, b.Note, b.OriginalDueDay)
		if err != nil {
			return fmt.Errorf("save bill %s: %w", b.ID, err)
		}
	}

	for i, h := range agg.PaidHistory {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO history (id, position, name, paid_amount_cents, paid_method,
			    paid_date, archived_date, due_date, frequency, had_balance, balance_cents)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ID, i, h.Name, h.PaidAmount.Cents, h.PaidMethod,
			timeToDB(h.PaidDate), timeToDB(h.ArchivedDate), timeToDB(h.DueDate),
			string(h.Frequency), h.HadBalance, h.Balance.Cents)
		if err != nil {
			return fmt.Errorf("save history item %s: %w", h.ID, err)
		}
	}

	for i, p := range agg.PayInfos {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pay_infos (name, position, last_pay_date, frequency)
			 VALUES (?, ?, ?, ?)`,
			p.Name, i, timeToDB(p.LastPayDate), string(p.Frequency))
		if err != nil {
			return fmt.Errorf("save pay info %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) loadBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, due_date, frequency,
		    is_paid, paid_amount_cents, paid_method, paid_date,
		    has_balance, balance_cents, monthly_payment_cents, interest_rate,
		    is_credit_account, note, original_due_day
		 FROM bills ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		var b core.Bill
		var freq string
		var dueDate, paidDate sql.NullString
		err := rows.Scan(&b.ID, &b.Name, &b.Amount.Cents, &dueDate, &freq,
			&b.IsPaid, &b.PaidAmount.Cents, &b.PaidMethod, &paidDate,
			&b.HasBalance, &b.Balance.Cents, &b.MonthlyPayment.Cents, &b.InterestRate,
			&b.IsCreditAccount, &b.Note, &b.OriginalDueDay)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.Frequency = core.Frequency(freq)
		b.DueDate = timeFromDB(dueDate)
		b.PaidDate = timeFromDB(paidDate)
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *SQLiteRepository) loadHistory(ctx context.Context) ([]core.HistoryItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, paid_amount_cents, paid_method, paid_date,
		    archived_date, due_date, frequency, had_balance, balance_cents
		 FROM history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var items []core.HistoryItem
	for rows.Next() {
		var h core.HistoryItem
		var freq string
		var paidDate, archivedDate, dueDate sql.NullString
		err := rows.Scan(&h.ID, &h.Name, &h.PaidAmount.Cents, &h.PaidMethod, &paidDate,
			&archivedDate, &dueDate, &freq, &h.HadBalance, &h.Balance.Cents)
		if err != nil {
			return nil, fmt.Errorf("scan history item: %w", err)
		}
		h.Frequency = core.Frequency(freq)
		h.PaidDate = timeFromDB(paidDate)
		h.ArchivedDate = timeFromDB(archivedDate)
		h.DueDate = timeFromDB(dueDate)
		items = append(items, h)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) loadPayInfos(ctx context.Context) ([]core.PayInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, last_pay_date, frequency FROM pay_infos ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load pay infos: %w", err)
	}
	defer rows.Close()

	var infos []core.PayInfo
	for rows.Next() {
		var p core.PayInfo
		var freq string
		var lastPay sql.NullString
		if err := rows.Scan(&p.Name, &lastPay, &freq); err != nil {
			return nil, fmt.Errorf("scan pay info: %w", err)
		}
		p.Frequency = core.PayFrequency(freq)
		p.LastPayDate = timeFromDB(lastPay)
		infos = append(infos, p)
	}
	return infos, rows.Err()
}

// Dates are stored as RFC 3339 text; the zero time maps to NULL.
func timeToDB(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func timeFromDB(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
