// Package metadata is a small key/value store for client bookkeeping:
// the cached offline credential, the initial-auth flag, the cached profile,
// the auth token, and last-sync timestamps.
package metadata

import "context"

// Keys used by the auth service and the sync engine.
const (
	KeyCredentialEmail = "credential_email"
	KeyCredentialHash  = "credential_hash"
	KeyCredentialOn    = "credential_enabled"
	KeyInitialAuth     = "initial_auth"
	KeyProfile         = "profile"
	KeyAuthToken       = "auth_token"
	KeyLastFullSync    = "last_full_sync"
	KeyLastUploadSync  = "last_upload_sync"
	KeyLastDownload    = "last_download_sync"
	KeyReferenceStamp  = "reference_cache_stamp"
)

// Repository is a byte-oriented key/value store. Get returns (nil, nil)
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
