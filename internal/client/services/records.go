package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/client/repositories/notes"
	"github.com/ptms/syncore/internal/client/repositories/reference"
	"github.com/ptms/syncore/internal/client/repositories/reports"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/filex"
	"github.com/ptms/syncore/internal/logging"
)

// RecordService handles local record writes and reads. Saves are
// synchronous and local-only: they validate, enrich display names from the
// reference cache and persist. Nothing here ever waits on the network.
type RecordService struct {
	reports   reports.Repository
	notes     notes.Repository
	reference reference.Repository
	mediaDir  string
	log       logging.Logger
}

// NewRecordService wires the record service. mediaDir is where note
// attachments are copied before upload; empty disables the copy and keeps
// the caller-provided path.
func NewRecordService(
	reportRepo reports.Repository,
	noteRepo notes.Repository,
	refRepo reference.Repository,
	mediaDir string,
	log logging.Logger,
) *RecordService {
	return &RecordService{
		reports:   reportRepo,
		notes:     noteRepo,
		reference: refRepo,
		mediaDir:  mediaDir,
		log:       log,
	}
}

// SaveReport validates and persists a new time report. Project and work
// type names are snapshotted from the reference cache so the row stays
// readable offline; an id missing from the cache fails the save, since it
// would be rejected by the server anyway.
func (s *RecordService) SaveReport(ctx context.Context, r *models.TimeReport) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("invalid time report: %w", err)
	}

	project, err := s.reference.GetProject(ctx, r.ProjectID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("unknown project id %d", r.ProjectID)
		}
		return "", err
	}
	workType, err := s.reference.GetWorkType(ctx, r.WorkTypeID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("unknown work type id %d", r.WorkTypeID)
		}
		return "", err
	}
	r.ProjectName = project.Name
	r.WorkTypeName = workType.Name

	localID, err := s.reports.Save(ctx, r)
	if err != nil {
		return "", err
	}
	s.log.Debug(ctx, "time report saved", "local_id", localID, "project", project.Name)
	return localID, nil
}

// SaveNote validates and persists a new note. A media attachment is copied
// under the app's media directory first so the pending record never points
// at a file the caller may delete.
func (s *RecordService) SaveNote(ctx context.Context, n *models.Note) (string, error) {
	if err := n.Validate(); err != nil {
		return "", fmt.Errorf("invalid note: %w", err)
	}

	if n.MediaPath != "" && s.mediaDir != "" {
		dst, err := filex.CopyIntoDir(n.MediaPath, s.mediaDir)
		if err != nil {
			return "", fmt.Errorf("%w: copying media: %v", common.ErrLocalStorage, err)
		}
		n.MediaPath = dst
	}

	localID, err := s.notes.Save(ctx, n)
	if err != nil {
		return "", err
	}
	s.log.Debug(ctx, "note saved", "local_id", localID, "type", n.NoteType)
	return localID, nil
}

// PendingCount counts all records awaiting upload across both kinds.
func (s *RecordService) PendingCount(ctx context.Context) (int, error) {
	nr, err := s.reports.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	nn, err := s.notes.CountPending(ctx)
	if err != nil {
		return 0, err
	}
	return nr + nn, nil
}

// PendingMediaCount counts notes whose attachment still awaits upload.
func (s *RecordService) PendingMediaCount(ctx context.Context) (int, error) {
	return s.notes.CountPendingMedia(ctx)
}

func (s *RecordService) ListReports(ctx context.Context) ([]*models.TimeReport, error) {
	return s.reports.ListAll(ctx)
}

func (s *RecordService) ListNotes(ctx context.Context) ([]*models.Note, error) {
	return s.notes.ListAll(ctx)
}

// DeleteReport removes a report regardless of sync status.
func (s *RecordService) DeleteReport(ctx context.Context, localID string) error {
	return s.reports.Delete(ctx, localID)
}

// DeleteNote removes a note regardless of sync status.
func (s *RecordService) DeleteNote(ctx context.Context, localID string) error {
	return s.notes.Delete(ctx, localID)
}
