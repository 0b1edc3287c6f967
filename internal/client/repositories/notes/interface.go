// Package notes persists project notes, including media attachment
// bookkeeping, in the local store.
package notes

import (
	"context"

	"github.com/ptms/syncore/internal/client/models"
)

// Repository describes local persistence for notes. It mirrors the time
// report repository with one addition: MarkMediaUploaded, which moves a
// record from pending_media to pending once its attachment reached the
// server.
type Repository interface {
	// Save inserts a new locally-created note with a fresh local id.
	// Initial status is pending_media when a local media path is attached,
	// pending otherwise.
	Save(ctx context.Context, n *models.Note) (string, error)

	GetByLocalID(ctx context.Context, localID string) (*models.Note, error)
	GetByServerID(ctx context.Context, serverID int64) (*models.Note, error)

	// ListPending returns upload candidates oldest created_at first.
	ListPending(ctx context.Context) ([]*models.Note, error)
	ListAll(ctx context.Context) ([]*models.Note, error)
	CountPending(ctx context.Context) (int, error)

	// CountPendingMedia counts notes whose attachment still awaits upload.
	CountPendingMedia(ctx context.Context) (int, error)

	// MarkMediaUploaded stores the remote media path and moves the note
	// from pending_media to pending.
	MarkMediaUploaded(ctx context.Context, localID string, remotePath string) error

	MarkSynced(ctx context.Context, localID string, serverID int64) error
	MarkError(ctx context.Context, localID string, reason string) error
	UpsertFromServer(ctx context.Context, n *models.Note) error
	Delete(ctx context.Context, localID string) error
}
