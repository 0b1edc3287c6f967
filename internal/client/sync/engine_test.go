package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/client/repositories/reports"
	"github.com/ptms/syncore/internal/client/session"
	"github.com/ptms/syncore/internal/client/store"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/logging"
)

// fakeBackend implements api.Client in memory. Failure modes are injected
// per call family.
type fakeBackend struct {
	mu gosync.Mutex

	projects  []models.Project
	workTypes []models.WorkType
	reports   []*models.TimeReport
	notes     []*models.Note
	nextID    int64

	createErr error
	getErr    error
	mediaErr  error
	delay     time.Duration

	mediaUploads int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		projects:  []models.Project{{ID: 5, Name: "Alpha"}},
		workTypes: []models.WorkType{{ID: 2, Name: "Install"}},
		nextID:    100,
	}
}

func (f *fakeBackend) SetToken(string) {}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (string, *models.Profile, error) {
	return "tok", &models.Profile{Email: email}, nil
}

func (f *fakeBackend) Health(ctx context.Context) (time.Duration, error) {
	return time.Millisecond, nil
}

func (f *fakeBackend) GetProjects(ctx context.Context) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]models.Project(nil), f.projects...), nil
}

func (f *fakeBackend) GetWorkTypes(ctx context.Context) ([]models.WorkType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]models.WorkType(nil), f.workTypes...), nil
}

func (f *fakeBackend) GetReports(ctx context.Context, from, to string) ([]*models.TimeReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]*models.TimeReport, 0, len(f.reports))
	for _, r := range f.reports {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBackend) GetNotes(ctx context.Context) ([]*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]*models.Note, 0, len(f.notes))
	for _, n := range f.notes {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeBackend) CreateReport(ctx context.Context, r *models.TimeReport) (int64, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	cp := *r
	cp.ServerID = f.nextID
	f.reports = append(f.reports, &cp)
	return f.nextID, nil
}

func (f *fakeBackend) CreateNote(ctx context.Context, n *models.Note) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	cp := *n
	cp.ServerID = f.nextID
	f.notes = append(f.notes, &cp)
	return f.nextID, nil
}

func (f *fakeBackend) UploadMedia(ctx context.Context, localPath, kind string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mediaErr != nil {
		return "", f.mediaErr
	}
	f.mediaUploads++
	return fmt.Sprintf("uploads/%s/%d", kind, f.mediaUploads), nil
}

func newTestEngine(t *testing.T, backend *fakeBackend) (*Engine, *store.Repositories) {
	t.Helper()
	ctx := context.Background()

	repos, db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := NewEngine(
		backend,
		repos.Reports, repos.Notes, repos.Reference, repos.Metadata,
		session.NewCoordinator(), nil,
		models.DefaultKeyPolicy(), 0,
		logging.NewDiscard(),
	)
	return e, repos
}

func sampleReport() *models.TimeReport {
	return &models.TimeReport{
		ProjectID:   5,
		WorkTypeID:  2,
		Date:        time.Now().Format("2006-01-02"),
		Hours:       8,
		Description: "Install",
	}
}

func TestSyncUpload_HappyPath(t *testing.T) {
	backend := newFakeBackend()
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	localID, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)

	res := e.SyncUpload(ctx)
	assert.Equal(t, 1, res.Uploaded)
	assert.Zero(t, res.Failed)
	assert.False(t, res.Busy)

	got, err := repos.Reports.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.NotZero(t, got.ServerID)

	count, err := repos.Reports.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSyncUpload_FailureKeepsRecord(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = fmt.Errorf("%w: HTTP 500", common.ErrServer)
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	localID, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)

	res := e.SyncUpload(ctx)
	assert.Zero(t, res.Uploaded)
	assert.Equal(t, 1, res.Failed)
	require.NotEmpty(t, res.Messages)

	got, err := repos.Reports.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, got.Status)
	assert.Equal(t, 1, got.SyncAttempts)

	count, err := repos.Reports.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "failed record stays an upload candidate")
}

func TestSyncUpload_UnreachableDefersRemainder(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = fmt.Errorf("%w: connection refused", common.ErrUnavailable)
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r := sampleReport()
		r.Description = fmt.Sprintf("item %d", i)
		_, err := repos.Reports.Save(ctx, r)
		require.NoError(t, err)
	}

	res := e.SyncUpload(ctx)
	assert.Equal(t, 1, res.Failed, "only the first record hits the wire")
	assert.Equal(t, 2, res.Skipped)

	count, err := repos.Reports.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSyncUpload_MediaBeforePayload(t *testing.T) {
	backend := newFakeBackend()
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	n := &models.Note{
		ProjectID: 5,
		NoteType:  "photo",
		NoteGroup: "project",
		Title:     "roof",
	}
	n.MediaPath = "/local/roof.jpg"
	localID, err := repos.Notes.Save(ctx, n)
	require.NoError(t, err)

	res := e.SyncUpload(ctx)
	assert.Equal(t, 1, res.Uploaded)
	assert.Equal(t, 1, backend.mediaUploads)

	got, err := repos.Notes.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.NotEmpty(t, got.RemoteMediaPath)
}

func TestSyncUpload_MediaFailureMarksErrorAndContinuesBatch(t *testing.T) {
	backend := newFakeBackend()
	backend.mediaErr = fmt.Errorf("%w: HTTP 500", common.ErrServer)
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	n := &models.Note{ProjectID: 5, NoteType: "photo", NoteGroup: "project", Title: "roof"}
	n.MediaPath = "/local/roof.jpg"
	noteID, err := repos.Notes.Save(ctx, n)
	require.NoError(t, err)

	reportID, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)

	res := e.SyncUpload(ctx)
	assert.Equal(t, 1, res.Uploaded, "report still uploads")
	assert.Equal(t, 1, res.Failed)

	gotNote, err := repos.Notes.GetByLocalID(ctx, noteID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, gotNote.Status)

	gotReport, err := repos.Reports.GetByLocalID(ctx, reportID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, gotReport.Status)
}

func TestSyncUpload_MediaRetriedAfterFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.mediaErr = fmt.Errorf("%w: HTTP 500", common.ErrServer)
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	n := &models.Note{ProjectID: 5, NoteType: "photo", NoteGroup: "project", Title: "roof"}
	n.MediaPath = "/local/roof.jpg"
	localID, err := repos.Notes.Save(ctx, n)
	require.NoError(t, err)

	res := e.SyncUpload(ctx)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, backend.mediaUploads)

	got, err := repos.Notes.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	require.Equal(t, models.StatusError, got.Status)
	require.Empty(t, got.RemoteMediaPath)

	// server recovers; the attachment must still reach it before the payload
	backend.mediaErr = nil

	res = e.SyncUpload(ctx)
	assert.Equal(t, 1, res.Uploaded)
	assert.Equal(t, 1, backend.mediaUploads, "media is uploaded on the retry")

	got, err = repos.Notes.GetByLocalID(ctx, localID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
	assert.NotEmpty(t, got.RemoteMediaPath, "attachment survives the retry")
}

// countingReports counts local-store reads so a busy batch can prove it
// performed none.
type countingReports struct {
	reports.Repository
	reads int32
}

func (c *countingReports) CountPending(ctx context.Context) (int, error) {
	atomic.AddInt32(&c.reads, 1)
	return c.Repository.CountPending(ctx)
}

func (c *countingReports) ListPending(ctx context.Context) ([]*models.TimeReport, error) {
	atomic.AddInt32(&c.reads, 1)
	return c.Repository.ListPending(ctx)
}

func TestSyncUpload_BusyCallerTouchesNoLocalStore(t *testing.T) {
	backend := newFakeBackend()
	ctx := context.Background()

	repos, db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	counting := &countingReports{Repository: repos.Reports}
	coord := session.NewCoordinator()
	e := NewEngine(
		backend,
		counting, repos.Notes, repos.Reference, repos.Metadata,
		coord, nil,
		models.DefaultKeyPolicy(), 0,
		logging.NewDiscard(),
	)

	require.True(t, coord.Begin(0), "occupy the session")
	defer coord.End()

	res := e.SyncUpload(ctx)
	assert.True(t, res.Busy)
	assert.Zero(t, atomic.LoadInt32(&counting.reads), "losing caller must not read the store")
}

func TestSyncDownload_ReferenceAndRecords(t *testing.T) {
	backend := newFakeBackend()
	r := sampleReport()
	r.ServerID = 900
	backend.reports = append(backend.reports, r)
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	res := e.SyncDownload(ctx)
	assert.Equal(t, 1, res.Downloaded)
	assert.Zero(t, res.Failed)

	projects, err := repos.Reference.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	got, err := repos.Reports.GetByServerID(ctx, 900)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.Status)
}

func TestSyncDownload_SkipsMatchingUnsyncedLocal(t *testing.T) {
	backend := newFakeBackend()
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	// same content exists both locally (unsynced) and on the server
	local := sampleReport()
	_, err := repos.Reports.Save(ctx, local)
	require.NoError(t, err)

	remote := sampleReport()
	remote.ServerID = 900
	backend.reports = append(backend.reports, remote)

	res := e.SyncDownload(ctx)
	assert.Zero(t, res.Downloaded)
	assert.Equal(t, 1, res.Skipped)

	all, err := repos.Reports.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "local unsynced copy is authoritative until uploaded")
	assert.Equal(t, models.StatusPending, all[0].Status)
}

func TestSyncFull_UploadFailureDoesNotBlockDownload(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = fmt.Errorf("%w: HTTP 503", common.ErrServer)
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	_, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)

	res := e.SyncFull(ctx)
	assert.Equal(t, 1, res.Failed)

	projects, err := repos.Reference.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1, "reference download ran despite upload failure")
}

func TestSyncFull_NoDuplicateAfterUploadThenDownload(t *testing.T) {
	backend := newFakeBackend()
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	_, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)

	res := e.SyncFull(ctx)
	assert.Equal(t, 1, res.Uploaded)

	// the record just uploaded comes straight back in the download phase
	all, err := repos.Reports.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	merged, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.Len(t, merged, 1)
}

func TestSyncFull_Idempotent(t *testing.T) {
	backend := newFakeBackend()
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	_, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)
	n := &models.Note{ProjectID: 5, NoteType: "text", NoteGroup: "project", Title: "t", Content: "c"}
	_, err = repos.Notes.Save(ctx, n)
	require.NoError(t, err)

	e.SyncFull(ctx)
	first, err := e.Reconcile(ctx)
	require.NoError(t, err)

	res := e.SyncFull(ctx)
	assert.Zero(t, res.Uploaded, "nothing new to upload")
	second, err := e.Reconcile(ctx)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Meta().ServerID, second[i].Meta().ServerID)
	}
}

func TestReconcile_UnsyncedLocalIncludedOnce(t *testing.T) {
	backend := newFakeBackend()
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	// synced copy of the same content plus a pending one
	synced := sampleReport()
	synced.ServerID = 900
	require.NoError(t, repos.Reports.UpsertFromServer(ctx, synced))

	_, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)

	other := sampleReport()
	other.Description = "different work"
	_, err = repos.Reports.Save(ctx, other)
	require.NoError(t, err)

	merged, err := e.Reconcile(ctx)
	require.NoError(t, err)
	assert.Len(t, merged, 2, "duplicate pending copy folded into the synced one")
}

func TestSyncFull_SingleFlight(t *testing.T) {
	backend := newFakeBackend()
	backend.delay = 100 * time.Millisecond
	e, repos := newTestEngine(t, backend)
	ctx := context.Background()

	_, err := repos.Reports.Save(ctx, sampleReport())
	require.NoError(t, err)

	results := make([]Result, 2)
	var wg gosync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.SyncFull(ctx)
		}(i)
	}
	wg.Wait()

	busy := 0
	uploaded := 0
	for _, r := range results {
		if r.Busy {
			busy++
			assert.Zero(t, r.Uploaded)
			assert.Zero(t, r.Downloaded)
		}
		uploaded += r.Uploaded
	}
	assert.Equal(t, 1, busy, "exactly one caller loses the race")
	assert.Equal(t, 1, uploaded)
}

func TestSyncFull_StampsLastSyncTime(t *testing.T) {
	backend := newFakeBackend()
	e, _ := newTestEngine(t, backend)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	e.SyncFull(ctx)

	ts, err := e.LastSync(ctx, "last_full_sync")
	require.NoError(t, err)
	assert.True(t, ts.After(before.UTC()) || ts.Equal(before.UTC()))
}

func TestSyncDownload_AllUnreachableStillReturnsResult(t *testing.T) {
	backend := newFakeBackend()
	backend.getErr = fmt.Errorf("%w: request timed out", common.ErrUnavailable)
	e, _ := newTestEngine(t, backend)

	res := e.SyncDownload(context.Background())
	assert.False(t, res.Busy)
	assert.NotZero(t, res.Failed)
	require.NotEmpty(t, res.Messages)
	assert.Contains(t, res.Messages[0], "unavailable")
}
