// Package sync orchestrates the bidirectional exchange with the backend:
// upload of pending local records, wholesale reference-data replace,
// download of the canonical record set, and duplicate-free reconciliation.
//
// A batch never fails past its boundary: per-item errors are folded into
// the returned Result, and a phase that cannot start is skipped while
// independent phases still run.
package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ptms/syncore/internal/client/api"
	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/client/repositories/metadata"
	"github.com/ptms/syncore/internal/client/repositories/notes"
	"github.com/ptms/syncore/internal/client/repositories/reference"
	"github.com/ptms/syncore/internal/client/repositories/reports"
	"github.com/ptms/syncore/internal/client/session"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/logging"
)

// DefaultReportWindow is the rolling download window for time reports.
// Notes are always downloaded in full.
const DefaultReportWindow = 30 * 24 * time.Hour

// Result aggregates one sync batch. Busy means the batch lost the
// single-flight race and performed no network I/O at all.
type Result struct {
	Uploaded   int
	Downloaded int
	Failed     int
	Skipped    int
	Busy       bool
	Messages   []string

	unreachable bool
}

func (r *Result) addMessage(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// ModeReporter lets the engine reflect sync activity in the published
// connection mode. The monitor implements it.
type ModeReporter interface {
	BeginSync()
	EndSync(reachable bool, reason string)
}

type Engine struct {
	api       api.Client
	reports   reports.Repository
	notes     notes.Repository
	reference reference.Repository
	meta      metadata.Repository
	coord     *session.Coordinator
	mode      ModeReporter
	keys      models.KeyPolicy
	window    time.Duration
	log       logging.Logger
}

// NewEngine wires the sync engine. mode may be nil when no connection-mode
// reporting is wanted (tests). A nil key policy falls back to each record's
// default identity composition.
func NewEngine(
	apiClient api.Client,
	reportRepo reports.Repository,
	noteRepo notes.Repository,
	refRepo reference.Repository,
	metaRepo metadata.Repository,
	coord *session.Coordinator,
	mode ModeReporter,
	keys models.KeyPolicy,
	window time.Duration,
	log logging.Logger,
) *Engine {
	if window <= 0 {
		window = DefaultReportWindow
	}
	return &Engine{
		api:       apiClient,
		reports:   reportRepo,
		notes:     noteRepo,
		reference: refRepo,
		meta:      metaRepo,
		coord:     coord,
		mode:      mode,
		keys:      keys,
		window:    window,
		log:       log,
	}
}

// IsSyncing reports whether a batch is currently running.
func (e *Engine) IsSyncing() bool { return e.coord.IsSyncing() }

// SyncFull uploads pending records, then replaces reference data and
// downloads the canonical record set. Upload failures never block the
// download phases.
func (e *Engine) SyncFull(ctx context.Context) Result {
	// Claim the session before touching the local store; a losing caller
	// performs no I/O of any kind.
	if !e.coord.Begin(0) {
		return busyResult()
	}
	defer e.coord.End()
	e.coord.SetTotal(e.pendingTotal(ctx))
	e.beginMode()

	res := Result{}
	e.uploadPhase(ctx, &res)
	e.downloadReferencePhase(ctx, &res)
	e.downloadRecordsPhase(ctx, &res)

	e.stamp(ctx, metadata.KeyLastFullSync)
	e.endMode(&res)
	e.log.Info(ctx, "full sync finished",
		"uploaded", res.Uploaded, "downloaded", res.Downloaded,
		"failed", res.Failed, "skipped", res.Skipped)
	return res
}

// SyncUpload runs only the upload phase.
func (e *Engine) SyncUpload(ctx context.Context) Result {
	if !e.coord.Begin(0) {
		return busyResult()
	}
	defer e.coord.End()
	e.coord.SetTotal(e.pendingTotal(ctx))
	e.beginMode()

	res := Result{}
	e.uploadPhase(ctx, &res)

	e.stamp(ctx, metadata.KeyLastUploadSync)
	e.endMode(&res)
	return res
}

// SyncDownload runs only the reference and record download phases.
func (e *Engine) SyncDownload(ctx context.Context) Result {
	if !e.coord.Begin(0) {
		return busyResult()
	}
	defer e.coord.End()
	e.beginMode()

	res := Result{}
	e.downloadReferencePhase(ctx, &res)
	e.downloadRecordsPhase(ctx, &res)

	e.stamp(ctx, metadata.KeyLastDownload)
	e.endMode(&res)
	return res
}

func busyResult() Result {
	return Result{Busy: true, Messages: []string{common.ErrSyncInProgress.Error()}}
}

// uploadPhase walks upload candidates oldest-first across both kinds.
// Per-item failures mark the record and continue; an unreachable server
// aborts the remainder of the phase since every further call would fail
// the same way.
func (e *Engine) uploadPhase(ctx context.Context, res *Result) {
	items, err := e.pendingOldestFirst(ctx)
	if err != nil {
		res.Failed++
		res.addMessage("upload skipped: %v", err)
		return
	}

	for i, rec := range items {
		e.coord.Progress(i + 1)
		if res.unreachable {
			res.Skipped++
			continue
		}
		e.uploadOne(ctx, rec, res)
	}
}

func (e *Engine) uploadOne(ctx context.Context, rec models.Record, res *Result) {
	meta := rec.Meta()

	// The media gate looks at the media fields, not the status: a note whose
	// media upload failed earlier re-enters the batch as error and must still
	// get its attachment to the server before the payload references it.
	if n, ok := rec.(*models.Note); ok && meta.MediaPath != "" && meta.RemoteMediaPath == "" {
		remote, err := e.api.UploadMedia(ctx, meta.MediaPath, n.NoteType)
		if err != nil {
			e.recordFailure(ctx, rec, err, res)
			return
		}
		if err := e.notes.MarkMediaUploaded(ctx, meta.LocalID, remote); err != nil {
			res.Failed++
			res.addMessage("note %s: %v", meta.LocalID, err)
			return
		}
		meta.RemoteMediaPath = remote
	}

	var serverID int64
	var err error
	switch r := rec.(type) {
	case *models.TimeReport:
		serverID, err = e.api.CreateReport(ctx, r)
	case *models.Note:
		serverID, err = e.api.CreateNote(ctx, r)
	default:
		err = fmt.Errorf("unknown record kind %q", rec.Kind())
	}
	if err != nil {
		e.recordFailure(ctx, rec, err, res)
		return
	}

	if err := e.markSynced(ctx, rec, serverID); err != nil {
		res.Failed++
		res.addMessage("%s %s: %v", rec.Kind(), meta.LocalID, err)
		return
	}
	res.Uploaded++
}

func (e *Engine) recordFailure(ctx context.Context, rec models.Record, cause error, res *Result) {
	meta := rec.Meta()
	res.Failed++
	res.addMessage("%s %s: %v", rec.Kind(), meta.LocalID, cause)

	if err := e.markError(ctx, rec, cause.Error()); err != nil {
		e.log.Error(ctx, "failed to record sync error", "local_id", meta.LocalID, "error", err)
	}
	if errors.Is(cause, common.ErrUnavailable) {
		res.unreachable = true
		res.addMessage("server unreachable, remaining uploads deferred")
	}
}

func (e *Engine) markSynced(ctx context.Context, rec models.Record, serverID int64) error {
	switch rec.Kind() {
	case models.KindTimeReport:
		return e.reports.MarkSynced(ctx, rec.Meta().LocalID, serverID)
	default:
		return e.notes.MarkSynced(ctx, rec.Meta().LocalID, serverID)
	}
}

func (e *Engine) markError(ctx context.Context, rec models.Record, reason string) error {
	switch rec.Kind() {
	case models.KindTimeReport:
		return e.reports.MarkError(ctx, rec.Meta().LocalID, reason)
	default:
		return e.notes.MarkError(ctx, rec.Meta().LocalID, reason)
	}
}

// downloadReferencePhase fetches both reference kinds in parallel and
// replaces each local set wholesale. A failed fetch leaves that kind's
// cache untouched; the other kind still proceeds.
func (e *Engine) downloadReferencePhase(ctx context.Context, res *Result) {
	var (
		projects  []models.Project
		workTypes []models.WorkType
		projErr   error
		wtErr     error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		projects, projErr = e.api.GetProjects(gctx)
		return nil
	})
	g.Go(func() error {
		workTypes, wtErr = e.api.GetWorkTypes(gctx)
		return nil
	})
	_ = g.Wait()

	if projErr != nil {
		res.Failed++
		res.addMessage("projects download: %v", projErr)
		if errors.Is(projErr, common.ErrUnavailable) {
			res.unreachable = true
		}
	} else if err := e.reference.ReplaceProjects(ctx, projects); err != nil {
		res.Failed++
		res.addMessage("projects replace: %v", err)
	}

	if wtErr != nil {
		res.Failed++
		res.addMessage("work types download: %v", wtErr)
		if errors.Is(wtErr, common.ErrUnavailable) {
			res.unreachable = true
		}
	} else if err := e.reference.ReplaceWorkTypes(ctx, workTypes); err != nil {
		res.Failed++
		res.addMessage("work types replace: %v", err)
	}

	if projErr == nil && wtErr == nil {
		e.stamp(ctx, metadata.KeyReferenceStamp)
	}
}

// downloadRecordsPhase pulls the canonical server set (rolling window for
// time reports, full set for notes) and upserts each record locally.
// A remote record whose identity key matches a still-unsynced local record
// is skipped: the local copy is authoritative until its own upload runs.
func (e *Engine) downloadRecordsPhase(ctx context.Context, res *Result) {
	pendingKeys, err := e.pendingIdentityKeys(ctx)
	if err != nil {
		res.Failed++
		res.addMessage("record download skipped: %v", err)
		return
	}

	now := time.Now()
	from := now.Add(-e.window).Format("2006-01-02")
	to := now.Format("2006-01-02")

	remoteReports, err := e.api.GetReports(ctx, from, to)
	if err != nil {
		res.Failed++
		res.addMessage("reports download: %v", err)
		if errors.Is(err, common.ErrUnavailable) {
			res.unreachable = true
			return
		}
	} else {
		for _, r := range remoteReports {
			if pendingKeys[e.keys.Key(r)] {
				res.Skipped++
				continue
			}
			if err := e.reports.UpsertFromServer(ctx, r); err != nil {
				res.Failed++
				res.addMessage("report %d: %v", r.ServerID, err)
				continue
			}
			res.Downloaded++
		}
	}

	remoteNotes, err := e.api.GetNotes(ctx)
	if err != nil {
		res.Failed++
		res.addMessage("notes download: %v", err)
		if errors.Is(err, common.ErrUnavailable) {
			res.unreachable = true
		}
		return
	}
	for _, n := range remoteNotes {
		if pendingKeys[e.keys.Key(n)] {
			res.Skipped++
			continue
		}
		if err := e.notes.UpsertFromServer(ctx, n); err != nil {
			res.Failed++
			res.addMessage("note %d: %v", n.ServerID, err)
			continue
		}
		res.Downloaded++
	}
}

// DownloadReference fetches both reference kinds and replaces the local
// cache wholesale. Used during initial authentication, outside a sync
// batch; unlike the batch phases it reports failure to the caller, since
// the initial-auth flag must not be set on a partial download.
func (e *Engine) DownloadReference(ctx context.Context) error {
	res := Result{}
	e.downloadReferencePhase(ctx, &res)
	if res.Failed > 0 {
		return fmt.Errorf("reference download: %s", strings.Join(res.Messages, "; "))
	}
	return nil
}

// Reconcile builds the duplicate-free merged view: every synced record,
// plus every still-unsynced local record whose identity key is not already
// covered by a synced one. Ordered oldest-first.
func (e *Engine) Reconcile(ctx context.Context) ([]models.Record, error) {
	all, err := e.listAll(ctx)
	if err != nil {
		return nil, err
	}

	merged := make([]models.Record, 0, len(all))
	seen := make(map[string]bool)
	for _, rec := range all {
		if rec.Meta().Status == models.StatusSynced {
			merged = append(merged, rec)
			seen[e.keys.Key(rec)] = true
		}
	}
	for _, rec := range all {
		if rec.Meta().Status == models.StatusSynced {
			continue
		}
		if seen[e.keys.Key(rec)] {
			continue
		}
		merged = append(merged, rec)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Meta().CreatedAt.Before(merged[j].Meta().CreatedAt)
	})
	return merged, nil
}

func (e *Engine) pendingOldestFirst(ctx context.Context) ([]models.Record, error) {
	rs, err := e.reports.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	ns, err := e.notes.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Record, 0, len(rs)+len(ns))
	for _, r := range rs {
		out = append(out, r)
	}
	for _, n := range ns {
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Meta().CreatedAt.Before(out[j].Meta().CreatedAt)
	})
	return out, nil
}

func (e *Engine) pendingIdentityKeys(ctx context.Context) (map[string]bool, error) {
	items, err := e.pendingOldestFirst(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(items))
	for _, rec := range items {
		keys[e.keys.Key(rec)] = true
	}
	return keys, nil
}

func (e *Engine) listAll(ctx context.Context) ([]models.Record, error) {
	rs, err := e.reports.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	ns, err := e.notes.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(rs)+len(ns))
	for _, r := range rs {
		out = append(out, r)
	}
	for _, n := range ns {
		out = append(out, n)
	}
	return out, nil
}

func (e *Engine) pendingTotal(ctx context.Context) int {
	var total int
	if n, err := e.reports.CountPending(ctx); err == nil {
		total += n
	}
	if n, err := e.notes.CountPending(ctx); err == nil {
		total += n
	}
	return total
}

func (e *Engine) stamp(ctx context.Context, key string) {
	v := []byte(time.Now().UTC().Format(time.RFC3339))
	if err := e.meta.Set(ctx, key, v); err != nil {
		e.log.Warn(ctx, "failed to stamp sync time", "key", key, "error", err)
	}
}

// LastSync returns the recorded timestamp for a sync stamp key, or the zero
// time when none is recorded yet.
func (e *Engine) LastSync(ctx context.Context, key string) (time.Time, error) {
	raw, err := e.meta.Get(ctx, key)
	if err != nil || raw == nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, string(raw))
}

func (e *Engine) beginMode() {
	if e.mode != nil {
		e.mode.BeginSync()
	}
}

func (e *Engine) endMode(res *Result) {
	if e.mode == nil {
		return
	}
	if res.unreachable {
		e.mode.EndSync(false, "server unreachable during sync")
	} else {
		e.mode.EndSync(true, "sync finished")
	}
}
