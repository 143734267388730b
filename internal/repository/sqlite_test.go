package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

func openTestRepo(t *testing.T) AllocationRepository {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Provision(context.Background(), false))
	return repo
}

func alloc(reg, name string) entity.Allocation {
	return entity.Allocation{
		RegisterNumber: reg,
		StudentName:    name,
		HallName:       "Main Hall A",
		SeatNumber:     "A101",
		ExamDate:       "2023-05-15",
		ExamTime:       "09:00 AM",
	}
}

func TestSQLite_TableExistsAndProvision(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	ok, err := repo.TableExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Provision(ctx, true))
	require.NoError(t, repo.Provision(ctx, true), "provisioning is repeatable")

	ok, err = repo.TableExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := repo.SelectByKey(ctx, "REG12349")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Science Block", got.HallName)
	assert.Equal(t, DialectSQLite, repo.Dialect())
}

func TestSQLite_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.UpsertMany(ctx, []entity.Allocation{alloc("REG12345", "John Doe")}))
	first, err := repo.SelectByKey(ctx, "REG12345")
	require.NoError(t, err)
	require.NotNil(t, first)

	updated := alloc("REG12345", "John Q. Doe")
	updated.HallName = "Main Hall B"
	updated.SeatNumber = "B201"
	updated.ExamTime = "01:00 PM"
	require.NoError(t, repo.UpsertMany(ctx, []entity.Allocation{updated}))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.SelectByKey(ctx, "REG12345")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, updated, got.Allocation)
	assert.Equal(t, first.ID, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_DuplicateKeysInOneBatchLastWins(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.UpsertMany(ctx, []entity.Allocation{
		alloc("REG1000", "First"),
		alloc("REG1000", "Second"),
	}))
	got, err := repo.SelectByKey(ctx, "REG1000")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Second", got.StudentName)
}

func TestSQLite_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	err := repo.UpsertMany(ctx, []entity.Allocation{
		alloc("REG2001", "Kept Out"),
		alloc("REG2002", ""),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REG2002")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_SelectMissing(t *testing.T) {
	repo := openTestRepo(t)
	got, err := repo.SelectByKey(context.Background(), "NOPE000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListPaginates(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	var batch []entity.Allocation
	for i := 1; i <= 25; i++ {
		batch = append(batch, alloc(fmt.Sprintf("REG%04d", i), fmt.Sprintf("Student %d", i)))
	}
	require.NoError(t, repo.UpsertMany(ctx, batch))

	page1, err := repo.List(ctx, Page{Number: 1})
	require.NoError(t, err)
	require.Len(t, page1, DefaultPageSize)
	assert.Equal(t, "REG0025", page1[0].RegisterNumber, "newest first")

	page3, err := repo.List(ctx, Page{Number: 3, Size: 10})
	require.NoError(t, err)
	require.Len(t, page3, 5)
	assert.Equal(t, "REG0001", page3[4].RegisterNumber)

	empty, err := repo.List(ctx, Page{Number: 9, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Size: 10}, Page{}.Normalize())
	assert.Equal(t, Page{Number: 2, Size: 100}, Page{Number: 2, Size: 500}.Normalize())
	assert.Equal(t, 20, Page{Number: 3, Size: 10}.Offset())
}

func TestSchemaSQL(t *testing.T) {
	pg, err := SchemaSQL(DialectPostgres, false)
	require.NoError(t, err)
	assert.Contains(t, pg, "id SERIAL PRIMARY KEY")
	assert.Contains(t, pg, "register_number TEXT UNIQUE NOT NULL")
	assert.Contains(t, pg, "idx_hall_allocations_register_number")
	assert.NotContains(t, pg, "INSERT")

	lite, err := SchemaSQL(DialectSQLite, true)
	require.NoError(t, err)
	assert.Contains(t, lite, "AUTOINCREMENT")
	assert.Contains(t, lite, "ON CONFLICT (register_number) DO NOTHING")

	_, err = SchemaSQL("oracle", false)
	assert.Error(t, err)
}
