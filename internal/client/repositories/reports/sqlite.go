package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/dbx"
)

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const reportColumns = `local_id, server_id, status, sync_error, sync_attempts,
	project_id, work_type_id, date, start_time, end_time, hours, description,
	project_name, work_type_name, created_at, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, report *models.TimeReport) (string, error) {
	if report.LocalID == "" {
		report.LocalID = uuid.NewString()
	}
	report.Status = models.StatusPending
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now

	query := `INSERT INTO time_reports (` + reportColumns + `)
		VALUES (?, NULL, ?, '', 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		report.LocalID, report.Status,
		report.ProjectID, report.WorkTypeID, report.Date,
		report.StartTime, report.EndTime, report.Hours, report.Description,
		report.ProjectName, report.WorkTypeName,
		report.CreatedAt, report.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("%w: insert time report: %v", common.ErrLocalStorage, err)
	}
	return report.LocalID, nil
}

func scanReport(row interface{ Scan(...any) error }) (*models.TimeReport, error) {
	report := &models.TimeReport{}
	var serverID sql.NullInt64
	err := row.Scan(
		&report.LocalID, &serverID, &report.Status, &report.SyncError, &report.SyncAttempts,
		&report.ProjectID, &report.WorkTypeID, &report.Date,
		&report.StartTime, &report.EndTime, &report.Hours, &report.Description,
		&report.ProjectName, &report.WorkTypeName,
		&report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if serverID.Valid {
		report.ServerID = serverID.Int64
	}
	return report, nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) (*models.TimeReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM time_reports WHERE local_id = ?`, localID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get time report: %v", common.ErrLocalStorage, err)
	}
	return report, nil
}

func (r *SQLiteRepository) GetByServerID(ctx context.Context, serverID int64) (*models.TimeReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM time_reports WHERE server_id = ?`, serverID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get time report by server id: %v", common.ErrLocalStorage, err)
	}
	return report, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.TimeReport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select time reports: %v", common.ErrLocalStorage, err)
	}
	defer rows.Close()

	var result []*models.TimeReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan time report: %v", common.ErrLocalStorage, err)
		}
		result = append(result, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate time reports: %v", common.ErrLocalStorage, err)
	}
	return result, nil
}

// ListPending returns upload candidates oldest-first: the upload phase
// processes records in creation order.
func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.TimeReport, error) {
	return r.list(ctx,
		`SELECT `+reportColumns+` FROM time_reports
		 WHERE status IN (?, ?, ?) ORDER BY created_at ASC`,
		models.StatusPending, models.StatusPendingMedia, models.StatusError)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]*models.TimeReport, error) {
	return r.list(ctx, `SELECT `+reportColumns+` FROM time_reports ORDER BY created_at ASC`)
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM time_reports WHERE status IN (?, ?, ?)`,
		models.StatusPending, models.StatusPendingMedia, models.StatusError).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count pending time reports: %v", common.ErrLocalStorage, err)
	}
	return count, nil
}

// MarkSynced only applies to rows that do not have a server id yet:
// once set, the server id is immutable.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID string, serverID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE time_reports
		 SET server_id = ?, status = ?, sync_error = '', sync_attempts = 0, updated_at = ?
		 WHERE local_id = ? AND server_id IS NULL`,
		serverID, models.StatusSynced, time.Now().UTC(), localID)
	if err != nil {
		return fmt.Errorf("%w: mark time report synced: %v", common.ErrLocalStorage, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrLocalStorage, err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) MarkError(ctx context.Context, localID string, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE time_reports
		 SET status = ?, sync_error = ?, sync_attempts = sync_attempts + 1, updated_at = ?
		 WHERE local_id = ?`,
		models.StatusError, reason, time.Now().UTC(), localID)
	if err != nil {
		return fmt.Errorf("%w: mark time report error: %v", common.ErrLocalStorage, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrLocalStorage, err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpsertFromServer(ctx context.Context, report *models.TimeReport) error {
	if report.ServerID == 0 {
		return fmt.Errorf("%w: upsert requires a server id", common.ErrLocalStorage)
	}
	now := time.Now().UTC()

	var localID string
	err := r.db.QueryRowContext(ctx,
		`SELECT local_id FROM time_reports WHERE server_id = ?`, report.ServerID).Scan(&localID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		report.LocalID = uuid.NewString()
		report.Status = models.StatusSynced
		report.CreatedAt = now
		report.UpdatedAt = now
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO time_reports (`+reportColumns+`)
			 VALUES (?, ?, ?, '', 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.LocalID, report.ServerID, models.StatusSynced,
			report.ProjectID, report.WorkTypeID, report.Date,
			report.StartTime, report.EndTime, report.Hours, report.Description,
			report.ProjectName, report.WorkTypeName,
			report.CreatedAt, report.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%w: insert server time report: %v", common.ErrLocalStorage, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%w: lookup server time report: %v", common.ErrLocalStorage, err)
	}

	// Server is canonical for already-synced records: update in place.
	_, err = r.db.ExecContext(ctx,
		`UPDATE time_reports
		 SET status = ?, sync_error = '', sync_attempts = 0,
		     project_id = ?, work_type_id = ?, date = ?, start_time = ?, end_time = ?,
		     hours = ?, description = ?, project_name = ?, work_type_name = ?, updated_at = ?
		 WHERE local_id = ?`,
		models.StatusSynced,
		report.ProjectID, report.WorkTypeID, report.Date, report.StartTime, report.EndTime,
		report.Hours, report.Description, report.ProjectName, report.WorkTypeName,
		now, localID)
	if err != nil {
		return fmt.Errorf("%w: update server time report: %v", common.ErrLocalStorage, err)
	}
	report.LocalID = localID
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_reports WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("%w: delete time report: %v", common.ErrLocalStorage, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrLocalStorage, err)
	}
	if ra != 1 {
		return common.ErrNotFound
	}
	return nil
}
