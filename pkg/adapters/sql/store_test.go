package sql_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/quill/pkg/adapters/sql"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/ports"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *sql.Store {
	t.Helper()
	store, err := sql.Open(sqlite.Open(filepath.Join(t.TempDir(), "quill.db") + "?_pragma=busy_timeout(5000)"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_Contract(t *testing.T) {
	ports.RunCheckpointStoreContract(t, setupStore(t))
}

func TestSQLStore_ConcurrentInstancesContract(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "quill.db") + "?_pragma=busy_timeout(5000)"

	first, err := sql.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })
	second, err := sql.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	ports.RunCheckpointStoreContract(t, first, second)
}

func TestSQLStore_SharedConnection(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "shared.db")), &gorm.Config{})
	require.NoError(t, err)

	first, err := sql.New(db)
	require.NoError(t, err)
	second, err := sql.New(db) // migrating twice is harmless
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, first.Save(ctx, domain.Checkpoint{ThreadID: "shared", Next: domain.StepPlanner, State: domain.NewState("x", 1)}))

	latest, err := second.LoadLatest(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, domain.StepPlanner, latest.Next)

	var count int64
	require.NoError(t, db.Table("quill_checkpoints").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
