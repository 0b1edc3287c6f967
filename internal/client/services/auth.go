// Package services contains the application services exposed to the UI
// layer: login arbitration (online vs offline) and record management.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/client/monitor"
	"github.com/ptms/syncore/internal/client/repositories/metadata"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/cryptox"
	"github.com/ptms/syncore/internal/logging"
)

// CacheFreshFor is how long a reference-data download keeps the initial-auth
// cache considered fresh. A stale cache does not block offline login; it is
// surfaced so the caller can nudge the user to sync.
const CacheFreshFor = 7 * 24 * time.Hour

// Session is the outcome of a successful login. Offline sessions carry no
// token and perform no network I/O to establish.
type Session struct {
	Profile models.Profile
	Token   string
	Offline bool
}

// LoginAPI is the slice of the backend client the auth service needs.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (string, *models.Profile, error)
	SetToken(token string)
}

// ConnectivityChecker is the slice of the monitor the auth service needs.
type ConnectivityChecker interface {
	IsOnline() bool
	QuickPing(ctx context.Context) monitor.ProbeResult
}

// ReferenceDownloader performs the reference-data download that completes
// initial authentication. The sync engine implements it.
type ReferenceDownloader interface {
	DownloadReference(ctx context.Context) error
}

// AuthService arbitrates online vs offline login and owns the cached
// offline credential.
type AuthService struct {
	api  LoginAPI
	meta metadata.Repository
	conn ConnectivityChecker
	refs ReferenceDownloader
	log  logging.Logger
}

func NewAuthService(
	apiClient LoginAPI,
	meta metadata.Repository,
	conn ConnectivityChecker,
	refs ReferenceDownloader,
	log logging.Logger,
) *AuthService {
	return &AuthService{api: apiClient, meta: meta, conn: conn, refs: refs, log: log}
}

// Login routes a credential submission. Offline device goes straight to
// offline validation. Online device probes the server first: an explicit
// rejection from a reachable server is authoritative and never falls back
// to the offline path; a network failure mid-attempt does.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if !s.conn.IsOnline() {
		s.log.Debug(ctx, "no network interface, trying offline login", "email", email)
		return s.OfflineLogin(ctx, email, password)
	}

	probe := s.conn.QuickPing(ctx)
	if !probe.Reachable() {
		s.log.Debug(ctx, "server unreachable, trying offline login",
			"email", email, "diagnostic", probe.Message)
		return s.OfflineLogin(ctx, email, password)
	}

	sess, err := s.OnlineLogin(ctx, email, password)
	if err == nil {
		return sess, nil
	}
	if errors.Is(err, common.ErrUnauthorized) {
		return nil, err
	}

	s.log.Warn(ctx, "online login failed mid-attempt, falling back to offline",
		"email", email, "error", err)
	return s.OfflineLogin(ctx, email, password)
}

// OnlineLogin authenticates against the server and, on success, refreshes
// the offline credential cache: password hash, profile snapshot and the
// initial-auth flag. The flag is only set once the reference download
// succeeds, so a fresh install cannot reach an offline-capable state with
// an empty reference cache.
func (s *AuthService) OnlineLogin(ctx context.Context, email, password string) (*Session, error) {
	token, profile, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.api.SetToken(token)

	if err := s.saveOfflineData(ctx, email, password, token, profile); err != nil {
		return nil, fmt.Errorf("caching offline credential: %w", err)
	}

	if err := s.refs.DownloadReference(ctx); err != nil {
		// online session is still valid; offline capability stays locked
		s.log.Warn(ctx, "reference download failed, initial auth incomplete", "error", err)
	} else if err := s.meta.Set(ctx, metadata.KeyInitialAuth, []byte("1")); err != nil {
		return nil, fmt.Errorf("recording initial auth: %w", err)
	}

	return &Session{Profile: *profile, Token: token}, nil
}

// OfflineLogin validates the submitted credential against the local cache.
// Order matters: the initial-auth gate is checked before any hash is even
// loaded, so a cached hash alone can never authorize a first offline use.
func (s *AuthService) OfflineLogin(ctx context.Context, email, password string) (*Session, error) {
	ok, err := s.HasInitialAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNoInitialAuth
	}

	cachedEmail, err := s.meta.Get(ctx, metadata.KeyCredentialEmail)
	if err != nil {
		return nil, err
	}
	cachedHash, err := s.meta.Get(ctx, metadata.KeyCredentialHash)
	if err != nil {
		return nil, err
	}
	enabled, err := s.meta.Get(ctx, metadata.KeyCredentialOn)
	if err != nil {
		return nil, err
	}
	if cachedEmail == nil || cachedHash == nil || string(enabled) != "1" {
		return nil, common.ErrNoOfflineData
	}
	if string(cachedEmail) != email {
		return nil, common.ErrUnauthorized
	}
	if !cryptox.VerifyPassword(password, string(cachedHash)) {
		return nil, common.ErrUnauthorized
	}

	profile := s.cachedProfile(ctx, email)
	s.log.Info(ctx, "offline login succeeded", "email", email)
	return &Session{Profile: profile, Offline: true}, nil
}

// HasInitialAuth reports whether initial authentication ever completed.
func (s *AuthService) HasInitialAuth(ctx context.Context) (bool, error) {
	v, err := s.meta.Get(ctx, metadata.KeyInitialAuth)
	if err != nil {
		return false, err
	}
	return string(v) == "1", nil
}

// CacheStale reports whether the reference cache is older than
// CacheFreshFor. An unset stamp counts as stale.
func (s *AuthService) CacheStale(ctx context.Context) (bool, error) {
	raw, err := s.meta.Get(ctx, metadata.KeyReferenceStamp)
	if err != nil {
		return true, err
	}
	if raw == nil {
		return true, nil
	}
	stamp, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return true, nil
	}
	return time.Since(stamp) > CacheFreshFor, nil
}

// ClearOfflineData wipes the cached credential, profile, token and the
// initial-auth flag. Sync stamps go with them; the record store is not
// touched.
func (s *AuthService) ClearOfflineData(ctx context.Context) error {
	return s.meta.Clear(ctx)
}

func (s *AuthService) saveOfflineData(ctx context.Context, email, password, token string, profile *models.Profile) error {
	pairs := map[string][]byte{
		metadata.KeyCredentialEmail: []byte(email),
		metadata.KeyCredentialHash:  []byte(cryptox.HashPassword(password)),
		metadata.KeyCredentialOn:    []byte("1"),
		metadata.KeyAuthToken:       []byte(token),
	}
	if profile != nil {
		raw, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("marshaling profile: %w", err)
		}
		pairs[metadata.KeyProfile] = raw
	}
	for key, value := range pairs {
		if err := s.meta.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// cachedProfile materializes the offline session identity. Partial or
// missing profile data degrades to zero values with the submitted email,
// since identity is already proven by the hash match.
func (s *AuthService) cachedProfile(ctx context.Context, email string) models.Profile {
	raw, err := s.meta.Get(ctx, metadata.KeyProfile)
	if err != nil || raw == nil {
		return models.Profile{Email: email}
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn(ctx, "corrupt cached profile, using defaults", "error", err)
		return models.Profile{Email: email}
	}
	if p.Email == "" {
		p.Email = email
	}
	return p
}
