package notes

import (
	"context"
	"database/sql"
	"encoding/json"
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

const noteColumns = `local_id, server_id, status, sync_error, sync_attempts,
	media_path, remote_media_path, project_id, note_type, note_type_id, note_group,
	title, content, transcription, tags, important, mime_type, file_size,
	created_at, updated_at`

func marshalTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (r *SQLiteRepository) Save(ctx context.Context, note *models.Note) (string, error) {
	if note.LocalID == "" {
		note.LocalID = uuid.NewString()
	}
	if note.MediaPath != "" {
		note.Status = models.StatusPendingMedia
	} else {
		note.Status = models.StatusPending
	}
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	query := `INSERT INTO notes (` + noteColumns + `)
		VALUES (?, NULL, ?, '', 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		note.LocalID, note.Status,
		note.MediaPath, note.RemoteMediaPath,
		note.ProjectID, note.NoteType, note.NoteTypeID, note.NoteGroup,
		note.Title, note.Content, note.Transcription, marshalTags(note.Tags),
		note.Important, note.MimeType, note.FileSize,
		note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("%w: insert note: %v", common.ErrLocalStorage, err)
	}
	return note.LocalID, nil
}

func scanNote(row interface{ Scan(...any) error }) (*models.Note, error) {
	note := &models.Note{}
	var serverID sql.NullInt64
	var tags string
	err := row.Scan(
		&note.LocalID, &serverID, &note.Status, &note.SyncError, &note.SyncAttempts,
		&note.MediaPath, &note.RemoteMediaPath,
		&note.ProjectID, &note.NoteType, &note.NoteTypeID, &note.NoteGroup,
		&note.Title, &note.Content, &note.Transcription, &tags,
		&note.Important, &note.MimeType, &note.FileSize,
		&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if serverID.Valid {
		note.ServerID = serverID.Int64
	}
	if err := json.Unmarshal([]byte(tags), &note.Tags); err != nil {
		note.Tags = nil
	}
	return note, nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, localID string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE local_id = ?`, localID)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get note: %v", common.ErrLocalStorage, err)
	}
	return note, nil
}

func (r *SQLiteRepository) GetByServerID(ctx context.Context, serverID int64) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE server_id = ?`, serverID)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get note by server id: %v", common.ErrLocalStorage, err)
	}
	return note, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select notes: %v", common.ErrLocalStorage, err)
	}
	defer rows.Close()

	var result []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan note: %v", common.ErrLocalStorage, err)
		}
		result = append(result, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate notes: %v", common.ErrLocalStorage, err)
	}
	return result, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.Note, error) {
	return r.list(ctx,
		`SELECT `+noteColumns+` FROM notes
		 WHERE status IN (?, ?, ?) ORDER BY created_at ASC`,
		models.StatusPending, models.StatusPendingMedia, models.StatusError)
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]*models.Note, error) {
	return r.list(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY created_at ASC`)
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE status IN (?, ?, ?)`,
		models.StatusPending, models.StatusPendingMedia, models.StatusError).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count pending notes: %v", common.ErrLocalStorage, err)
	}
	return count, nil
}

func (r *SQLiteRepository) CountPendingMedia(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE status = ?`, models.StatusPendingMedia).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count pending media: %v", common.ErrLocalStorage, err)
	}
	return count, nil
}

// MarkMediaUploaded records the server-side path of the uploaded file and
// moves the note to pending. Valid from pending_media and from error, so a
// note whose media upload failed once can complete it on a later sync.
func (r *SQLiteRepository) MarkMediaUploaded(ctx context.Context, localID string, remotePath string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notes
		 SET remote_media_path = ?, status = ?, updated_at = ?
		 WHERE local_id = ? AND status IN (?, ?)`,
		remotePath, models.StatusPending, time.Now().UTC(), localID,
		models.StatusPendingMedia, models.StatusError)
	if err != nil {
		return fmt.Errorf("%w: mark media uploaded: %v", common.ErrLocalStorage, err)
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

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID string, serverID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notes
		 SET server_id = ?, status = ?, sync_error = '', sync_attempts = 0, updated_at = ?
		 WHERE local_id = ? AND server_id IS NULL`,
		serverID, models.StatusSynced, time.Now().UTC(), localID)
	if err != nil {
		return fmt.Errorf("%w: mark note synced: %v", common.ErrLocalStorage, err)
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
		`UPDATE notes
		 SET status = ?, sync_error = ?, sync_attempts = sync_attempts + 1, updated_at = ?
		 WHERE local_id = ?`,
		models.StatusError, reason, time.Now().UTC(), localID)
	if err != nil {
		return fmt.Errorf("%w: mark note error: %v", common.ErrLocalStorage, err)
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

func (r *SQLiteRepository) UpsertFromServer(ctx context.Context, note *models.Note) error {
	if note.ServerID == 0 {
		return fmt.Errorf("%w: upsert requires a server id", common.ErrLocalStorage)
	}
	now := time.Now().UTC()

	var localID string
	err := r.db.QueryRowContext(ctx,
		`SELECT local_id FROM notes WHERE server_id = ?`, note.ServerID).Scan(&localID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		note.LocalID = uuid.NewString()
		note.Status = models.StatusSynced
		note.CreatedAt = now
		note.UpdatedAt = now
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO notes (`+noteColumns+`)
			 VALUES (?, ?, ?, '', 0, '', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			note.LocalID, note.ServerID, models.StatusSynced,
			note.RemoteMediaPath,
			note.ProjectID, note.NoteType, note.NoteTypeID, note.NoteGroup,
			note.Title, note.Content, note.Transcription, marshalTags(note.Tags),
			note.Important, note.MimeType, note.FileSize,
			note.CreatedAt, note.UpdatedAt)
		if err != nil {
			return fmt.Errorf("%w: insert server note: %v", common.ErrLocalStorage, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("%w: lookup server note: %v", common.ErrLocalStorage, err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE notes
		 SET status = ?, sync_error = '', sync_attempts = 0, remote_media_path = ?,
		     project_id = ?, note_type = ?, note_type_id = ?, note_group = ?,
		     title = ?, content = ?, transcription = ?, tags = ?, important = ?,
		     mime_type = ?, file_size = ?, updated_at = ?
		 WHERE local_id = ?`,
		models.StatusSynced, note.RemoteMediaPath,
		note.ProjectID, note.NoteType, note.NoteTypeID, note.NoteGroup,
		note.Title, note.Content, note.Transcription, marshalTags(note.Tags), note.Important,
		note.MimeType, note.FileSize, now, localID)
	if err != nil {
		return fmt.Errorf("%w: update server note: %v", common.ErrLocalStorage, err)
	}
	note.LocalID = localID
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("%w: delete note: %v", common.ErrLocalStorage, err)
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
