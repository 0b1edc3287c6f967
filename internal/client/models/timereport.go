package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// TimeReport is a logged block of work against a project and work type.
// ProjectName/WorkTypeName are display snapshots taken from the reference
// cache at save time, kept so the record stays readable offline even if the
// reference cache is replaced later.
type TimeReport struct {
	RecordMeta

	ProjectID   int64
	WorkTypeID  int64
	Date        string // YYYY-MM-DD
	StartTime   string // HH:MM, optional
	EndTime     string // HH:MM, optional
	Hours       float64
	Description string

	ProjectName  string
	WorkTypeName string
}

func (r *TimeReport) Kind() RecordKind { return KindTimeReport }

func (r *TimeReport) Meta() *RecordMeta { return &r.RecordMeta }

func (r *TimeReport) IdentityKey() string { return r.defaultIdentityKey() }

func (r *TimeReport) defaultIdentityKey() string {
	return fmt.Sprintf("tr|%d|%d|%s|%.2f|%s",
		r.ProjectID, r.WorkTypeID, r.Date, r.Hours, hashFragment(r.Description))
}

// Validate checks the fields a server would reject anyway, so bad input
// fails at save time instead of surfacing as a sync error days later.
func (r *TimeReport) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.WorkTypeID, validation.Required),
		validation.Field(&r.Date, validation.Required, validation.Date("2006-01-02")),
		validation.Field(&r.Hours, validation.Required, validation.Min(0.25), validation.Max(24.0)),
	)
}
