// Package server is an in-memory dev stand-in for the production backend.
// It implements the wire contract the client depends on: login, reference
// data, record upload/download, media upload and a health endpoint.
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ptms/syncore/internal/client/models"
)

// RecordPayload is the server-side record shape, a superset of both client
// kinds. The server is canonical: it assigns ids and dedupes repeated
// uploads of identical content.
type RecordPayload struct {
	Kind string `json:"kind,omitempty"`
	ID   int64  `json:"id,omitempty"`

	ProjectID  int64  `json:"project_id"`
	WorkTypeID int64  `json:"work_type_id,omitempty"`
	Date       string `json:"date,omitempty"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`

	Hours        float64 `json:"hours,omitempty"`
	Description  string  `json:"description,omitempty"`
	ProjectName  string  `json:"project_name,omitempty"`
	WorkTypeName string  `json:"work_type_name,omitempty"`

	NoteType      string   `json:"note_type,omitempty"`
	NoteTypeID    int64    `json:"note_type_id,omitempty"`
	NoteGroup     string   `json:"note_group,omitempty"`
	Title         string   `json:"title,omitempty"`
	Content       string   `json:"content,omitempty"`
	Transcription string   `json:"transcription,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Important     bool     `json:"important,omitempty"`
	MediaPath     string   `json:"media_path,omitempty"`
	MimeType      string   `json:"mime_type,omitempty"`
	FileSize      int64    `json:"file_size,omitempty"`
}

// identityKey mirrors the client-side composition so a repeated upload of
// the same content resolves to the already-stored record.
func (p RecordPayload) identityKey() string {
	switch p.Kind {
	case string(models.KindTimeReport):
		return fmt.Sprintf("tr|%d|%d|%s|%.2f|%s",
			p.ProjectID, p.WorkTypeID, p.Date, p.Hours, shortHash(p.Description))
	default:
		return fmt.Sprintf("nt|%d|%s|%s|%s",
			p.ProjectID, p.NoteGroup, p.Title, shortHash(p.Content))
	}
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

type user struct {
	id           int64
	passwordHash []byte
	profile      models.Profile
}

// Store holds all dev-server state behind one mutex. It is small enough
// that finer locking buys nothing.
type Store struct {
	mu sync.Mutex

	users     map[string]user
	projects  []models.Project
	workTypes []models.WorkType

	records map[int64]RecordPayload
	byKey   map[string]int64
	nextID  int64

	media      map[string][]byte
	nextMedia  int64
	nextUserID int64
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]user),
		records: make(map[int64]RecordPayload),
		byKey:   make(map[string]int64),
		media:   make(map[string][]byte),
	}
}

// AddUser registers an account with a bcrypt-hashed password.
func (s *Store) AddUser(email, password string, profile models.Profile) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	profile.UserID = s.nextUserID
	profile.Email = email
	s.users[email] = user{id: s.nextUserID, passwordHash: hash, profile: profile}
	return nil
}

// Authenticate checks the credential and returns the profile on success.
func (s *Store) Authenticate(email, password string) (*models.Profile, bool) {
	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return nil, false
	}
	profile := u.profile
	return &profile, true
}

// SetReference replaces the served reference sets.
func (s *Store) SetReference(projects []models.Project, workTypes []models.WorkType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = projects
	s.workTypes = workTypes
}

func (s *Store) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Project(nil), s.projects...)
}

func (s *Store) WorkTypes() []models.WorkType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.WorkType(nil), s.workTypes...)
}

// CreateRecord stores a record and returns its id. Re-uploading content
// with an identity key already seen returns the existing id instead of
// creating a duplicate.
func (s *Store) CreateRecord(p RecordPayload) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.identityKey()
	if id, ok := s.byKey[key]; ok {
		return id
	}

	s.nextID++
	p.ID = s.nextID
	s.records[p.ID] = p
	s.byKey[key] = p.ID
	return p.ID
}

// ListRecords returns records of a kind, optionally windowed by date for
// time reports. Empty from/to means no bound on that side.
func (s *Store) ListRecords(kind, from, to string) []RecordPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordPayload, 0)
	for _, p := range s.records {
		if p.Kind != kind {
			continue
		}
		if kind == string(models.KindTimeReport) {
			if from != "" && p.Date < from {
				continue
			}
			if to != "" && p.Date > to {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// SaveMedia stores an uploaded file and returns its remote path.
func (s *Store) SaveMedia(kind, filename string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMedia++
	path := fmt.Sprintf("uploads/%s/%d-%s", kind, s.nextMedia, filename)
	s.media[path] = data
	return path
}

// Media returns an uploaded file by its remote path.
func (s *Store) Media(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.media[path]
	return data, ok
}
