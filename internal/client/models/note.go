package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Note is a project note: free text, optionally with an attached media file
// (photo/audio/video) and a speech transcription.
type Note struct {
	RecordMeta

	ProjectID     int64
	NoteType      string // text, audio, photo, video
	NoteTypeID    int64
	NoteGroup     string // project, personal, ...
	Title         string
	Content       string
	Transcription string
	Tags          []string
	Important     bool

	MimeType string
	FileSize int64
}

func (n *Note) Kind() RecordKind { return KindNote }

func (n *Note) Meta() *RecordMeta { return &n.RecordMeta }

func (n *Note) IdentityKey() string { return n.defaultIdentityKey() }

func (n *Note) defaultIdentityKey() string {
	return fmt.Sprintf("nt|%d|%s|%s|%s",
		n.ProjectID, n.NoteGroup, n.Title, hashFragment(n.Content))
}

func (n *Note) Validate() error {
	return validation.ValidateStruct(n,
		validation.Field(&n.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&n.NoteType, validation.Required,
			validation.In("text", "audio", "photo", "video")),
		validation.Field(&n.NoteGroup, validation.Required,
			validation.In("project", "personal")),
	)
}
