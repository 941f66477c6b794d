package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/paths"
)

func TestMigrateJSONToSQLiteThenBackPreservesTaskSet(t *testing.T) {
	layout, err := paths.NewLayout(t.TempDir())
	require.NoError(t, err)
	jsonStore, err := Open(layout, DefaultLockOptions())
	require.NoError(t, err)

	tasks := []model.Task{
		{ID: "T1", Title: "Design API", Description: "Write the initial REST API specification", Status: model.StatusPending, Priority: model.PriorityHigh, Type: model.TypeTask, Created: time.Now().UTC(), Updated: time.Now().UTC()},
		{ID: "T2", Title: "Write tests", Description: "Cover the REST API with integration tests", Status: model.StatusActive, Priority: model.PriorityMedium, Type: model.TypeTask, Created: time.Now().UTC(), Updated: time.Now().UTC()},
	}
	require.NoError(t, jsonStore.SaveTasks(tasks))
	require.NoError(t, jsonStore.SaveArchive([]model.ArchiveEntry{{Task: model.Task{ID: "T3"}}}))

	require.NoError(t, MigrateJSONToSQLite(jsonStore, layout))

	sqliteStore, err := OpenSQLite(layout)
	require.NoError(t, err)
	defer sqliteStore.Close()

	gotTasks, err := sqliteStore.LoadTasks()
	require.NoError(t, err)
	require.Len(t, gotTasks, 2)

	gotArchive, err := sqliteStore.LoadArchive()
	require.NoError(t, err)
	require.Len(t, gotArchive, 1)

	backLayout, err := paths.NewLayout(t.TempDir())
	require.NoError(t, err)
	backStore, err := Open(backLayout, DefaultLockOptions())
	require.NoError(t, err)
	require.NoError(t, MigrateSQLiteToJSON(sqliteStore, backStore))

	roundTripped, err := backStore.LoadTasks()
	require.NoError(t, err)
	require.Len(t, roundTripped, 2)
}

func TestMigrateJSONToSQLiteRefusesDataLossOverNonEmptyDB(t *testing.T) {
	layout, err := paths.NewLayout(t.TempDir())
	require.NoError(t, err)

	seed, err := OpenSQLite(layout)
	require.NoError(t, err)
	require.NoError(t, seed.SaveTasks([]model.Task{{ID: "T1"}}))
	require.NoError(t, seed.Close())

	jsonStore, err := Open(layout, DefaultLockOptions())
	require.NoError(t, err)

	err = MigrateJSONToSQLite(jsonStore, layout)
	require.Error(t, err)
	require.Contains(t, err.Error(), "VALIDATION_ERROR")
}
