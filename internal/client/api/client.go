// Package api implements the HTTP client for the backend wire contract:
// login, reference data, record upload/download, media upload and the
// health probe used by the connectivity monitor.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/logging"
)

// Client is the backend contract the sync core depends on. Everything but
// Login and Health requires a bearer token previously set via SetToken.
type Client interface {
	Login(ctx context.Context, email, password string) (string, *models.Profile, error)
	Health(ctx context.Context) (time.Duration, error)

	GetProjects(ctx context.Context) ([]models.Project, error)
	GetWorkTypes(ctx context.Context) ([]models.WorkType, error)

	GetReports(ctx context.Context, from, to string) ([]*models.TimeReport, error)
	GetNotes(ctx context.Context) ([]*models.Note, error)
	CreateReport(ctx context.Context, r *models.TimeReport) (int64, error)
	CreateNote(ctx context.Context, n *models.Note) (int64, error)
	UploadMedia(ctx context.Context, localPath, kind string) (string, error)

	SetToken(token string)
}

// HTTPClient talks JSON over HTTP(S).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logging.Logger

	mu    sync.RWMutex
	token string
}

// NewHTTPClient builds a client with the data-call timeout applied to every
// request except Health, which carries its own bound via context.
func NewHTTPClient(baseURL string, timeout time.Duration, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, *models.Profile, error) {
	var resp loginResponse
	err := c.makeRequest(ctx, http.MethodPost, "/api/login", loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return "", nil, err
	}
	if !resp.Success || resp.Token == "" {
		return "", nil, fmt.Errorf("%w: %s", common.ErrUnauthorized, resp.Message)
	}
	return resp.Token, &resp.Profile, nil
}

// Health issues one probe and reports the round-trip latency. The caller
// bounds it with a context deadline; classification into Online/Slow/Offline
// happens in the monitor, not here.
func (c *HTTPClient) Health(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, classifyTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: health returned HTTP %d", common.ErrServer, resp.StatusCode)
	}
	return time.Since(start), nil
}

func (c *HTTPClient) GetProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := c.getWithRetry(ctx, "/api/projects", &out); err != nil {
		return nil, fmt.Errorf("fetching projects: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) GetWorkTypes(ctx context.Context) ([]models.WorkType, error) {
	var out []models.WorkType
	if err := c.getWithRetry(ctx, "/api/work-types", &out); err != nil {
		return nil, fmt.Errorf("fetching work types: %w", err)
	}
	return out, nil
}

func (c *HTTPClient) GetReports(ctx context.Context, from, to string) ([]*models.TimeReport, error) {
	q := url.Values{"kind": {string(models.KindTimeReport)}, "from": {from}, "to": {to}}
	var dtos []ReportDTO
	if err := c.getWithRetry(ctx, "/api/records?"+q.Encode(), &dtos); err != nil {
		return nil, fmt.Errorf("fetching reports: %w", err)
	}
	out := make([]*models.TimeReport, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.ToModel())
	}
	return out, nil
}

func (c *HTTPClient) GetNotes(ctx context.Context) ([]*models.Note, error) {
	q := url.Values{"kind": {string(models.KindNote)}}
	var dtos []NoteDTO
	if err := c.getWithRetry(ctx, "/api/records?"+q.Encode(), &dtos); err != nil {
		return nil, fmt.Errorf("fetching notes: %w", err)
	}
	out := make([]*models.Note, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.ToModel())
	}
	return out, nil
}

func (c *HTTPClient) CreateReport(ctx context.Context, r *models.TimeReport) (int64, error) {
	var resp createResponse
	body := struct {
		Kind string `json:"kind"`
		ReportDTO
	}{Kind: string(models.KindTimeReport), ReportDTO: reportToDTO(r)}
	if err := c.makeRequest(ctx, http.MethodPost, "/api/records", body, &resp, true); err != nil {
		return 0, fmt.Errorf("uploading report: %w", err)
	}
	return resp.ID, nil
}

func (c *HTTPClient) CreateNote(ctx context.Context, n *models.Note) (int64, error) {
	var resp createResponse
	body := struct {
		Kind string `json:"kind"`
		NoteDTO
	}{Kind: string(models.KindNote), NoteDTO: noteToDTO(n)}
	if err := c.makeRequest(ctx, http.MethodPost, "/api/records", body, &resp, true); err != nil {
		return 0, fmt.Errorf("uploading note: %w", err)
	}
	return resp.ID, nil
}

// UploadMedia streams the local file as multipart form data and returns the
// server-side path to reference in the subsequent record upload.
func (c *HTTPClient) UploadMedia(ctx context.Context, localPath, kind string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: opening media file: %v", common.ErrLocalStorage, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("kind", kind); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("%w: reading media file: %v", common.ErrLocalStorage, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/media", &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(common.AuthHeaderName, common.BearerPrefix+c.bearer())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	var out mediaResponse
	if err := c.decodeResponse(resp, &out); err != nil {
		return "", err
	}
	return out.RemotePath, nil
}

// getWithRetry retries idempotent GETs a couple of times on transient
// transport failures. Server and auth errors are permanent.
func (c *HTTPClient) getWithRetry(ctx context.Context, path string, out any) error {
	op := func() error {
		err := c.makeRequest(ctx, http.MethodGet, path, nil, out, true)
		if err != nil && !errors.Is(err, common.ErrUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.Retry(op, b)
}

func (c *HTTPClient) makeRequest(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set(common.AuthHeaderName, common.BearerPrefix+c.bearer())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug(ctx, "request failed", "method", method, "path", path, "error", err)
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	return c.decodeResponse(resp, out)
}

func (c *HTTPClient) decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: HTTP 401", common.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", common.ErrServer, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response body: %v", common.ErrServer, err)
	}
	return nil
}

// classifyTransportError folds every unreachable-server cause into
// ErrUnavailable. The wrapped message distinguishes timeout, refused and
// DNS failure for diagnostics; behavior is identical for all three.
func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return fmt.Errorf("%w: DNS lookup failed for %s", common.ErrUnavailable, dnsErr.Name)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: request timed out", common.ErrUnavailable)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w: request timed out", common.ErrUnavailable)
		}
		if strings.Contains(err.Error(), "connection refused") {
			return fmt.Errorf("%w: connection refused", common.ErrUnavailable)
		}
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
}
