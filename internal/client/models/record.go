// Package models defines the client-side data model: syncable record kinds,
// reference-data snapshots, and the cached profile.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RecordKind identifies a concrete syncable record type. The set is closed:
// the sync engine only knows how to handle the kinds enumerated here.
type RecordKind string

const (
	KindTimeReport RecordKind = "time_report"
	KindNote       RecordKind = "note"
)

// RecordStatus is the local synchronization state of a record.
type RecordStatus string

const (
	// StatusPending marks a record created locally and not yet confirmed
	// by the server.
	StatusPending RecordStatus = "pending"

	// StatusPendingMedia marks a record whose attached file has not been
	// uploaded yet. The payload upload waits for the media upload.
	StatusPendingMedia RecordStatus = "pending_media"

	// StatusSynced marks a record confirmed to have a server id.
	StatusSynced RecordStatus = "synced"

	// StatusError marks a record whose last upload attempt failed.
	// Error records are retried on the next sync.
	StatusError RecordStatus = "error"
)

// CanTransition reports whether moving from s to next is a legal status
// transition.
func (s RecordStatus) CanTransition(next RecordStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusSynced || next == StatusError
	case StatusPendingMedia:
		return next == StatusPending || next == StatusError
	case StatusError:
		return next == StatusPending
	default:
		return false
	}
}

// IsPending reports whether the record still needs uploading.
func (s RecordStatus) IsPending() bool {
	return s == StatusPending || s == StatusPendingMedia || s == StatusError
}

// RecordMeta carries the local bookkeeping shared by every record kind.
// ServerID is zero until the record is synced; once set it never changes.
type RecordMeta struct {
	LocalID      string
	ServerID     int64
	Status       RecordStatus
	SyncError    string
	SyncAttempts int

	// MediaPath references a local file waiting for upload;
	// RemoteMediaPath replaces it once the server stores the file.
	MediaPath       string
	RemoteMediaPath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record is the closed interface implemented by TimeReport and Note.
type Record interface {
	Kind() RecordKind
	Meta() *RecordMeta

	// IdentityKey returns the content-derived composite key used for
	// duplicate detection during reconciliation. Unsynced records have
	// no server id, so identity is derived from payload content.
	IdentityKey() string
}

// hashFragment returns a short hex digest of free-form text used inside
// identity keys, so long descriptions do not blow up the key.
func hashFragment(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// KeyFunc computes the identity key for a record. Key composition is a
// policy parameter per kind: collisions are a real risk for records sharing
// all default fields, so deployments can override the composition.
type KeyFunc func(Record) string

// KeyPolicy maps record kinds to their identity-key composition.
type KeyPolicy map[RecordKind]KeyFunc

// DefaultKeyPolicy returns the standard composition: entity refs plus
// quantity/date plus a content hash.
func DefaultKeyPolicy() KeyPolicy {
	return KeyPolicy{
		KindTimeReport: func(r Record) string { return r.(*TimeReport).defaultIdentityKey() },
		KindNote:       func(r Record) string { return r.(*Note).defaultIdentityKey() },
	}
}

// Key applies the policy to r, falling back to the record's own default
// composition when the kind has no override.
func (p KeyPolicy) Key(r Record) string {
	if p != nil {
		if fn, ok := p[r.Kind()]; ok && fn != nil {
			return fn(r)
		}
	}
	return r.IdentityKey()
}
