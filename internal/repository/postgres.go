package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

type postgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresRepository(pool *pgxpool.Pool, logger *slog.Logger) AllocationRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresRepository{pool: pool, logger: logger}
}

func (r *postgresRepository) Dialect() Dialect { return DialectPostgres }

// withTx runs fn in a transaction, committing only when fn succeeds.
func (r *postgresRepository) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpsertMany(ctx context.Context, records []entity.Allocation) error {
	if len(records) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, a := range records {
			batch.Queue(upsertPostgres, a.RegisterNumber, a.StudentName, a.HallName, a.SeatNumber, a.ExamDate, a.ExamTime)
		}
		br := tx.SendBatch(ctx, batch)
		for _, a := range records {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				r.logger.Error("upsert failed", "register_number", a.RegisterNumber, "error", err)
				return fmt.Errorf("upsert %q: %w", a.RegisterNumber, err)
			}
		}
		return br.Close()
	})
}

func (r *postgresRepository) SelectByKey(ctx context.Context, registerNumber string) (*entity.StoredAllocation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM hall_allocations WHERE register_number = $1`, registerNumber)
	a, err := scanStored(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", registerNumber, err)
	}
	return a, nil
}

func (r *postgresRepository) List(ctx context.Context, page Page) ([]entity.StoredAllocation, error) {
	page = page.Normalize()
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM hall_allocations ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

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

func (r *postgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM hall_allocations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count allocations: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) TableExists(ctx context.Context) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, `SELECT to_regclass('hall_allocations') IS NOT NULL`).Scan(&ok); err != nil {
		return false, fmt.Errorf("check table: %w", err)
	}
	return ok, nil
}

func (r *postgresRepository) Provision(ctx context.Context, seed bool) error {
	stmts, err := SchemaStatements(DialectPostgres, seed)
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		for _, s := range stmts {
			if _, err := tx.Exec(ctx, s); err != nil {
				return fmt.Errorf("provision: %w", err)
			}
		}
		r.logger.Info("schema provisioned", "dialect", DialectPostgres, "seed", seed)
		return nil
	})
}

func (r *postgresRepository) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *postgresRepository) Close() error {
	r.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStored(row rowScanner) (*entity.StoredAllocation, error) {
	var (
		a       entity.StoredAllocation
		created any
	)
	if err := row.Scan(&a.ID, &a.RegisterNumber, &a.StudentName, &a.HallName, &a.SeatNumber, &a.ExamDate, &a.ExamTime, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = scanTime(created)
	return &a, nil
}
