package api

import "github.com/ptms/syncore/internal/client/models"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	Profile models.Profile `json:"profile"`
	Message string         `json:"message,omitempty"`
}

// ReportDTO is the wire shape of a time report. Server-assigned id travels
// in ID; local bookkeeping (status, attempts) never crosses the wire.
type ReportDTO struct {
	ID           int64   `json:"id,omitempty"`
	ProjectID    int64   `json:"project_id"`
	WorkTypeID   int64   `json:"work_type_id"`
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time,omitempty"`
	EndTime      string  `json:"end_time,omitempty"`
	Hours        float64 `json:"hours"`
	Description  string  `json:"description,omitempty"`
	ProjectName  string  `json:"project_name,omitempty"`
	WorkTypeName string  `json:"work_type_name,omitempty"`
}

type NoteDTO struct {
	ID            int64    `json:"id,omitempty"`
	ProjectID     int64    `json:"project_id"`
	NoteType      string   `json:"note_type"`
	NoteTypeID    int64    `json:"note_type_id,omitempty"`
	NoteGroup     string   `json:"note_group"`
	Title         string   `json:"title"`
	Content       string   `json:"content,omitempty"`
	Transcription string   `json:"transcription,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Important     bool     `json:"important,omitempty"`
	MediaPath     string   `json:"media_path,omitempty"`
	MimeType      string   `json:"mime_type,omitempty"`
	FileSize      int64    `json:"file_size,omitempty"`
}

type createResponse struct {
	ID int64 `json:"id"`
}

type mediaResponse struct {
	RemotePath string `json:"remote_path"`
}

func reportToDTO(r *models.TimeReport) ReportDTO {
	return ReportDTO{
		ProjectID:    r.ProjectID,
		WorkTypeID:   r.WorkTypeID,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Hours:        r.Hours,
		Description:  r.Description,
		ProjectName:  r.ProjectName,
		WorkTypeName: r.WorkTypeName,
	}
}

func (d ReportDTO) ToModel() *models.TimeReport {
	r := &models.TimeReport{
		ProjectID:    d.ProjectID,
		WorkTypeID:   d.WorkTypeID,
		Date:         d.Date,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		Hours:        d.Hours,
		Description:  d.Description,
		ProjectName:  d.ProjectName,
		WorkTypeName: d.WorkTypeName,
	}
	r.ServerID = d.ID
	return r
}

func noteToDTO(n *models.Note) NoteDTO {
	return NoteDTO{
		ProjectID:     n.ProjectID,
		NoteType:      n.NoteType,
		NoteTypeID:    n.NoteTypeID,
		NoteGroup:     n.NoteGroup,
		Title:         n.Title,
		Content:       n.Content,
		Transcription: n.Transcription,
		Tags:          n.Tags,
		Important:     n.Important,
		MediaPath:     n.RemoteMediaPath,
		MimeType:      n.MimeType,
		FileSize:      n.FileSize,
	}
}

func (d NoteDTO) ToModel() *models.Note {
	n := &models.Note{
		ProjectID:     d.ProjectID,
		NoteType:      d.NoteType,
		NoteTypeID:    d.NoteTypeID,
		NoteGroup:     d.NoteGroup,
		Title:         d.Title,
		Content:       d.Content,
		Transcription: d.Transcription,
		Tags:          d.Tags,
		Important:     d.Important,
		MimeType:      d.MimeType,
		FileSize:      d.FileSize,
	}
	n.ServerID = d.ID
	n.RemoteMediaPath = d.MediaPath
	return n
}
