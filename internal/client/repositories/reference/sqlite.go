package reference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/dbx"
)

// SQLiteRepository implements Repository. Unlike the record repositories it
// holds the *sql.DB directly: the wholesale-replace contract needs its own
// transaction (clear + insert committed as one unit).
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceProjects(ctx context.Context, items []models.Project) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
			return err
		}
		for _, p := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO projects (id, name) VALUES (?, ?)`, p.ID, p.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: replace projects: %v", common.ErrLocalStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceWorkTypes(ctx context.Context, items []models.WorkType) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM work_types`); err != nil {
			return err
		}
		for _, wt := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO work_types (id, name) VALUES (?, ?)`, wt.ID, wt.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: replace work types: %v", common.ErrLocalStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: select projects: %v", common.ErrLocalStorage, err)
	}
	defer rows.Close()

	var result []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("%w: scan project: %v", common.ErrLocalStorage, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate projects: %v", common.ErrLocalStorage, err)
	}
	return result, nil
}

func (r *SQLiteRepository) ListWorkTypes(ctx context.Context) ([]models.WorkType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM work_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: select work types: %v", common.ErrLocalStorage, err)
	}
	defer rows.Close()

	var result []models.WorkType
	for rows.Next() {
		var wt models.WorkType
		if err := rows.Scan(&wt.ID, &wt.Name); err != nil {
			return nil, fmt.Errorf("%w: scan work type: %v", common.ErrLocalStorage, err)
		}
		result = append(result, wt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate work types: %v", common.ErrLocalStorage, err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM projects WHERE id = ?`, id).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get project: %v", common.ErrLocalStorage, err)
	}
	return &p, nil
}

func (r *SQLiteRepository) GetWorkType(ctx context.Context, id int64) (*models.WorkType, error) {
	var wt models.WorkType
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM work_types WHERE id = ?`, id).Scan(&wt.ID, &wt.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get work type: %v", common.ErrLocalStorage, err)
	}
	return &wt, nil
}
