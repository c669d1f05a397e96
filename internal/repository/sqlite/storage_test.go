package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/todolist/internal/db"
	"github.com/nkiryanov/todolist/internal/repository"
	"github.com/nkiryanov/todolist/internal/repository/repotest"
)

func Test_Storage(t *testing.T) {
	t.Parallel()

	// Every test works with its own database file
	newStorage := func(t *testing.T) repository.Storage {
		path := filepath.Join(t.TempDir(), "todolist.sqlite")
		sqlDB, err := db.ConnectAndMigrateSQLite(t.Context(), path)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = sqlDB.Close()
		})

		return NewStorage(sqlDB)
	}

	repotest.RunStorageTests(t, newStorage)
}
