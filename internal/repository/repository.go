package repository

import (
	"context"
	"time"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

// AllocationRepository is the persistence collaborator behind the pipeline and
// the lookup/listing surfaces.
type AllocationRepository interface {
	// UpsertMany writes one batch atomically: new register numbers are
	// inserted, existing ones have every field replaced.
	UpsertMany(ctx context.Context, records []entity.Allocation) error
	// SelectByKey returns nil, nil when no record has the register number.
	SelectByKey(ctx context.Context, registerNumber string) (*entity.StoredAllocation, error)
	List(ctx context.Context, page Page) ([]entity.StoredAllocation, error)
	Count(ctx context.Context) (int, error)
	TableExists(ctx context.Context) (bool, error)
	Provision(ctx context.Context, seed bool) error
	Dialect() Dialect
	Ping(ctx context.Context) error
	Close() error
}

// Page selects a window of the newest-first listing. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps the page to valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// scanTime accepts the representations drivers hand back for timestamp columns.
func scanTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	return time.Time{}
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
