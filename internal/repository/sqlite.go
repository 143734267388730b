package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

type sqliteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepository(db *sql.DB, logger *slog.Logger) AllocationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteRepository{db: db, logger: logger}
}

func (r *sqliteRepository) Dialect() Dialect { return DialectSQLite }

func (r *sqliteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			r.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *sqliteRepository) UpsertMany(ctx context.Context, records []entity.Allocation) error {
	if len(records) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQLite)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, a := range records {
			if _, err := stmt.ExecContext(ctx, a.RegisterNumber, a.StudentName, a.HallName, a.SeatNumber, a.ExamDate, a.ExamTime); err != nil {
				r.logger.Error("upsert failed", "register_number", a.RegisterNumber, "error", err)
				return fmt.Errorf("upsert %q: %w", a.RegisterNumber, err)
			}
		}
		return nil
	})
}

func (r *sqliteRepository) SelectByKey(ctx context.Context, registerNumber string) (*entity.StoredAllocation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM hall_allocations WHERE register_number = ?`, registerNumber)
	a, err := scanStored(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", registerNumber, err)
	}
	return a, nil
}

func (r *sqliteRepository) List(ctx context.Context, page Page) ([]entity.StoredAllocation, error) {
	page = page.Normalize()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM hall_allocations ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.StoredAllocation
	for rows.Next() {
		a, err := scanStored(rows)
		if err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *sqliteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM hall_allocations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count allocations: %w", err)
	}
	return n, nil
}

func (r *sqliteRepository) TableExists(ctx context.Context) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'hall_allocations'`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteRepository) Provision(ctx context.Context, seed bool) error {
	stmts, err := SchemaStatements(DialectSQLite, seed)
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return fmt.Errorf("provision: %w", err)
			}
		}
		r.logger.Info("schema provisioned", "dialect", DialectSQLite, "seed", seed)
		return nil
	})
}

func (r *sqliteRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *sqliteRepository) Close() error { return r.db.Close() }
