package reports

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE time_reports (
  local_id TEXT PRIMARY KEY,
  server_id INTEGER,
  status TEXT NOT NULL,
  sync_error TEXT NOT NULL DEFAULT '',
  sync_attempts INTEGER NOT NULL DEFAULT 0,
  project_id INTEGER NOT NULL,
  work_type_id INTEGER NOT NULL,
  date TEXT NOT NULL,
  start_time TEXT NOT NULL DEFAULT '',
  end_time TEXT NOT NULL DEFAULT '',
  hours REAL NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  project_name TEXT NOT NULL DEFAULT '',
  work_type_name TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX idx_time_reports_server_id ON time_reports(server_id) WHERE server_id IS NOT NULL;
`)
	require.NoError(t, err)

	return db
}

func sampleReport() *models.TimeReport {
	return &models.TimeReport{
		ProjectID:   5,
		WorkTypeID:  2,
		Date:        "2025-01-10",
		Hours:       8,
		Description: "Install",
	}
}

func TestSave_AssignsLocalIDAndPendingStatus(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	localID, err := r.Save(ctx, sampleReport())
	require.NoError(t, err)
	require.NotEmpty(t, localID)

	got, err := r.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Zero(t, got.ServerID)
	assert.Equal(t, int64(5), got.ProjectID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestListPending_OldestFirst(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	// explicit timestamps so ordering does not depend on clock resolution
	_, err := db.Exec(`INSERT INTO time_reports
		(local_id, status, project_id, work_type_id, date, hours, created_at, updated_at) VALUES
		('b', 'pending', 1, 1, '2025-01-02', 2, '2025-01-02 10:00:00', '2025-01-02 10:00:00'),
		('a', 'error',   1, 1, '2025-01-01', 1, '2025-01-01 10:00:00', '2025-01-01 10:00:00'),
		('c', 'synced',  1, 1, '2025-01-03', 3, '2025-01-03 10:00:00', '2025-01-03 10:00:00')`)
	require.NoError(t, err)

	got, err := r.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].LocalID)
	assert.Equal(t, "b", got[1].LocalID)

	count, err := r.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMarkSynced_SetsServerIDOnce(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	localID, err := r.Save(ctx, sampleReport())
	require.NoError(t, err)

	require.NoError(t, r.MarkSynced(ctx, localID, 101))

	got, err := r.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.Equal(t, int64(101), got.ServerID)

	// server id is immutable once set
	err = r.MarkSynced(ctx, localID, 202)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err = r.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, int64(101), got.ServerID)
}

func TestMarkError_IncrementsAttemptsAndKeepsRow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	localID, err := r.Save(ctx, sampleReport())
	require.NoError(t, err)

	require.NoError(t, r.MarkError(ctx, localID, "HTTP 500"))
	require.NoError(t, r.MarkError(ctx, localID, "HTTP 502"))

	got, err := r.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
	assert.Equal(t, "HTTP 502", got.SyncError)
	assert.Equal(t, 2, got.SyncAttempts)

	// error records are still upload candidates
	count, err := r.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertFromServer_InsertThenUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	server := sampleReport()
	server.ServerID = 77
	require.NoError(t, r.UpsertFromServer(ctx, server))

	got, err := r.GetByServerID(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	firstLocalID := got.LocalID

	// second download of the same server record updates in place
	server2 := sampleReport()
	server2.ServerID = 77
	server2.Hours = 6
	require.NoError(t, r.UpsertFromServer(ctx, server2))

	got, err = r.GetByServerID(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, firstLocalID, got.LocalID)
	assert.Equal(t, 6.0, got.Hours)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDelete_RemovesRegardlessOfStatus(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	localID, err := r.Save(ctx, sampleReport())
	require.NoError(t, err)
	require.NoError(t, r.MarkSynced(ctx, localID, 9))

	require.NoError(t, r.Delete(ctx, localID))

	_, err = r.GetByLocalID(ctx, localID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "missing"), common.ErrNotFound)
}
