// Package reference caches server reference data (projects, work types)
// locally. The cache is replaced wholesale on download: readers never see a
// partial or mixed set.
package reference

import (
	"context"

	"github.com/ptms/syncore/internal/client/models"
)

// Repository describes the reference cache.
type Repository interface {
	// ReplaceProjects atomically swaps the whole project set: either the
	// new set is fully visible or the old one is left untouched.
	ReplaceProjects(ctx context.Context, items []models.Project) error

	// ReplaceWorkTypes atomically swaps the whole work-type set.
	ReplaceWorkTypes(ctx context.Context, items []models.WorkType) error

	ListProjects(ctx context.Context) ([]models.Project, error)
	ListWorkTypes(ctx context.Context) ([]models.WorkType, error)

	// GetProject returns a cached project or common.ErrNotFound.
	GetProject(ctx context.Context, id int64) (*models.Project, error)

	// GetWorkType returns a cached work type or common.ErrNotFound.
	GetWorkType(ctx context.Context, id int64) (*models.WorkType, error)
}
