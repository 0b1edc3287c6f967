package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptms/syncore/internal/client/models"
)

func newTestServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.AddUser("u@x.io", "pw1", models.Profile{Name: "User", IsActive: true}))
	store.SetReference(
		[]models.Project{{ID: 5, Name: "Alpha"}},
		[]models.WorkType{{ID: 2, Name: "Install"}},
	)

	srv := httptest.NewServer(NewRouter(store, Config{JWTSecret: []byte("test-secret")}))
	t.Cleanup(srv.Close)
	return srv, store
}

func login(t *testing.T, srv *httptest.Server, email, password string) (string, int) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode
	}
	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Success)
	return out.Token, resp.StatusCode
}

func authedGet(t *testing.T, srv *httptest.Server, token, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	token, status := login(t, srv, "u@x.io", "pw1")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, token)

	_, status = login(t, srv, "u@x.io", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	_, status = login(t, srv, "nobody@x.io", "pw1")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := authedGet(t, srv, "", "/api/projects")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = authedGet(t, srv, "garbage", "/api/projects")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _ := login(t, srv, "u@x.io", "pw1")
	resp = authedGet(t, srv, token, "/api/projects")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var projects []models.Project
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projects))
	assert.Len(t, projects, 1)
}

func TestCreateRecord_AssignsIDAndDedupes(t *testing.T) {
	srv, _ := newTestServer(t)
	token, _ := login(t, srv, "u@x.io", "pw1")

	payload := RecordPayload{
		Kind:        "time_report",
		ProjectID:   5,
		WorkTypeID:  2,
		Date:        "2025-01-10",
		Hours:       8,
		Description: "Install",
	}

	post := func() int64 {
		body, _ := json.Marshal(payload)
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/records", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			ID int64 `json:"id"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.ID
	}

	first := post()
	second := post()
	assert.NotZero(t, first)
	assert.Equal(t, first, second, "identical content resolves to the same id")
}

func TestListRecords_WindowFilter(t *testing.T) {
	srv, store := newTestServer(t)
	token, _ := login(t, srv, "u@x.io", "pw1")

	store.CreateRecord(RecordPayload{Kind: "time_report", ProjectID: 5, Date: "2025-01-10", Hours: 8})
	store.CreateRecord(RecordPayload{Kind: "time_report", ProjectID: 5, Date: "2024-06-01", Hours: 4})
	store.CreateRecord(RecordPayload{Kind: "note", ProjectID: 5, NoteGroup: "project", Title: "n"})

	resp := authedGet(t, srv, token, "/api/records?kind=time_report&from=2025-01-01&to=2025-12-31")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []RecordPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01-10", got[0].Date)

	resp = authedGet(t, srv, token, "/api/records?kind=note")
	defer resp.Body.Close()
	var notes []RecordPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&notes))
	assert.Len(t, notes, 1)
}

func TestUploadMedia(t *testing.T) {
	srv, store := newTestServer(t)
	token, _ := login(t, srv, "u@x.io", "pw1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", "photo"))
	part, err := mw.CreateFormFile("file", "roof.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpegdata"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/media", &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		RemotePath string `json:"remote_path"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.RemotePath)

	data, ok := store.Media(out.RemotePath)
	require.True(t, ok)
	assert.Equal(t, []byte("jpegdata"), data)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth_ConfigurableDelay(t *testing.T) {
	store := NewStore()
	srv := httptest.NewServer(NewRouter(store, Config{
		JWTSecret:   []byte("s"),
		HealthDelay: 50 * time.Millisecond,
	}))
	t.Cleanup(srv.Close)

	start := time.Now()
	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
