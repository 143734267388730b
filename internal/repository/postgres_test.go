package repository

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

const pgDSNEnv = "EXAMHALL_TEST_PG_DSN"

func TestUpsertPostgres_Statement(t *testing.T) {
	cols := strings.Split(columns, ", ")
	params := regexp.MustCompile(`\$\d+`).FindAllString(upsertPostgres, -1)
	assert.Equal(t, []string{"$1", "$2", "$3", "$4", "$5", "$6"}, params)
	assert.Len(t, cols, len(params), "one placeholder per inserted column")

	assert.Contains(t, upsertPostgres, "INSERT INTO hall_allocations ("+columns+")")
	assert.Contains(t, upsertPostgres, "ON CONFLICT (register_number) DO UPDATE SET")
	for _, c := range cols[1:] {
		assert.Contains(t, upsertPostgres, c+" = excluded."+c)
	}
	assert.NotContains(t, upsertPostgres, "register_number = excluded", "the conflict key is never rewritten")
	assert.NotContains(t, upsertPostgres, "?")

	// both dialects share the update clause
	assert.Equal(t,
		upsertPostgres[strings.Index(upsertPostgres, "ON CONFLICT"):],
		upsertSQLite[strings.Index(upsertSQLite, "ON CONFLICT"):])
}

func TestSchemaStatements_Postgres(t *testing.T) {
	stmts, err := SchemaStatements(DialectPostgres, true)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "id SERIAL PRIMARY KEY")
	assert.Contains(t, stmts[0], "TIMESTAMP WITH TIME ZONE")
	assert.Contains(t, stmts[1], "CREATE INDEX IF NOT EXISTS")
	assert.Contains(t, stmts[2], "ON CONFLICT (register_number) DO NOTHING")
}

// openPostgresRepo connects to the database named by EXAMHALL_TEST_PG_DSN and
// removes the rows it wrote once the test ends.
func openPostgresRepo(t *testing.T, prefix string) AllocationRepository {
	t.Helper()
	dsn := os.Getenv(pgDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", pgDSNEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := Open(ctx, Config{Driver: string(DialectPostgres), DSN: dsn, MaxConns: 2, DialTimeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Provision(ctx, false))
	t.Cleanup(func() {
		pool := repo.(*postgresRepository).pool
		_, _ = pool.Exec(context.Background(), `DELETE FROM hall_allocations WHERE register_number LIKE $1`, prefix+"%")
		_ = repo.Close()
	})
	return repo
}

func TestPostgres_UpsertAndSelect(t *testing.T) {
	prefix := fmt.Sprintf("PG%d", time.Now().UnixNano()%1_000_000)
	repo := openPostgresRepo(t, prefix)
	ctx := context.Background()
	assert.Equal(t, DialectPostgres, repo.Dialect())

	ok, err := repo.TableExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	before, err := repo.Count(ctx)
	require.NoError(t, err)

	first, second := prefix+"A", prefix+"B"
	require.NoError(t, repo.UpsertMany(ctx, []entity.Allocation{alloc(first, "Ada"), alloc(second, "Linus")}))

	moved := alloc(first, "Ada L.")
	moved.HallName = "Science Block"
	require.NoError(t, repo.UpsertMany(ctx, []entity.Allocation{moved}))

	got, err := repo.SelectByKey(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada L.", got.StudentName)
	assert.Equal(t, "Science Block", got.HallName)
	assert.False(t, got.CreatedAt.IsZero())

	after, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	missing, err := repo.SelectByKey(ctx, prefix+"none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgres_BatchRollsBackAsAUnit(t *testing.T) {
	prefix := fmt.Sprintf("PR%d", time.Now().UnixNano()%1_000_000)
	repo := openPostgresRepo(t, prefix)
	ctx := context.Background()

	bad := alloc(prefix+"B", "")
	err := repo.UpsertMany(ctx, []entity.Allocation{alloc(prefix+"A", "Ada"), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), prefix+"B")

	got, err := repo.SelectByKey(ctx, prefix+"A")
	require.NoError(t, err)
	assert.Nil(t, got, "a failed batch leaves no rows behind")
}
