// Package reports persists time reports in the local store.
package reports

import (
	"context"

	"github.com/ptms/syncore/internal/client/models"
)

// Repository describes local persistence for time reports.
//
// Save always succeeds locally regardless of connectivity; everything
// network-related happens later in the sync engine. Status and server id
// mutations go through the Mark* methods so illegal transitions cannot be
// written by accident.
type Repository interface {
	// Save inserts a new locally-created report, assigning a fresh local id
	// and the initial pending status. Returns the local id.
	Save(ctx context.Context, r *models.TimeReport) (string, error)

	// GetByLocalID returns a report or common.ErrNotFound.
	GetByLocalID(ctx context.Context, localID string) (*models.TimeReport, error)

	// GetByServerID returns the local counterpart of a server record,
	// or common.ErrNotFound.
	GetByServerID(ctx context.Context, serverID int64) (*models.TimeReport, error)

	// ListPending returns records awaiting upload (pending/error),
	// oldest created_at first.
	ListPending(ctx context.Context) ([]*models.TimeReport, error)

	// ListAll returns every local report, oldest first.
	ListAll(ctx context.Context) ([]*models.TimeReport, error)

	// CountPending counts records awaiting upload.
	CountPending(ctx context.Context) (int, error)

	// MarkSynced records a successful upload: sets the server id and the
	// synced status. The server id is immutable once set.
	MarkSynced(ctx context.Context, localID string, serverID int64) error

	// MarkError records a failed upload attempt and increments the
	// attempt counter. The record stays eligible for retry.
	MarkError(ctx context.Context, localID string, reason string) error

	// UpsertFromServer inserts or updates the local copy of a canonical
	// server record. The resulting row is always synced.
	UpsertFromServer(ctx context.Context, r *models.TimeReport) error

	// Delete removes a report regardless of its status (explicit user
	// deletion).
	Delete(ctx context.Context, localID string) error
}
