package models

// Project is a reference-data snapshot: id and display name only.
// The local set is always replaced wholesale from the server, never merged.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// WorkType is a reference-data snapshot, same contract as Project.
type WorkType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ReferenceKind names a reference-cache table.
type ReferenceKind string

const (
	RefProjects  ReferenceKind = "projects"
	RefWorkTypes ReferenceKind = "work_types"
)
