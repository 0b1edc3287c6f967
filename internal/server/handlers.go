package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ptms/syncore/internal/client/models"
	"github.com/ptms/syncore/internal/common"
	"github.com/ptms/syncore/internal/server/auth"
)

const maxMediaBytes = 32 << 20

// Config carries the dev server knobs.
type Config struct {
	JWTSecret     []byte
	TokenValidity time.Duration

	// HealthDelay makes the health endpoint slow, for probe testing.
	HealthDelay time.Duration
}

type Handler struct {
	store *Store
	cfg   Config
}

func NewHandler(store *Store, cfg Config) *Handler {
	if cfg.TokenValidity <= 0 {
		cfg.TokenValidity = 24 * time.Hour
	}
	return &Handler{store: store, cfg: cfg}
}

// NewRouter mounts the wire contract. Login and health are open; the rest
// sits behind bearer-token auth.
func NewRouter(store *Store, cfg Config) chi.Router {
	h := NewHandler(store, cfg)

	r := chi.NewRouter()
	r.Post("/api/login", h.Login)
	r.Get("/api/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Get("/api/projects", h.Projects)
		r.Get("/api/work-types", h.WorkTypes)
		r.Get("/api/records", h.ListRecords)
		r.Post("/api/records", h.CreateRecord)
		r.Post("/api/media", h.UploadMedia)
	})

	return r
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("missing bearer token"))
			return
		}
		if _, err := auth.GetUserIDFromToken(token, h.cfg.JWTSecret); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody("invalid or expired token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	profile, ok := h.store.Authenticate(req.Email, req.Password)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
		return
	}

	token, err := auth.GenerateToken(profile.UserID, h.cfg.JWTSecret, h.cfg.TokenValidity)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("token generation failed"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"profile": profile,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.cfg.HealthDelay > 0 {
		select {
		case <-time.After(h.cfg.HealthDelay):
		case <-r.Context().Done():
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Projects())
}

func (h *Handler) WorkTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.WorkTypes())
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != string(models.KindTimeReport) && kind != string(models.KindNote) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown record kind"))
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	writeJSON(w, http.StatusOK, h.store.ListRecords(kind, from, to))
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var p RecordPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if p.Kind != string(models.KindTimeReport) && p.Kind != string(models.KindNote) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown record kind"))
		return
	}

	id := h.store.CreateRecord(p)
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMediaBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart body"))
		return
	}
	kind := r.FormValue("kind")
	if kind == "" {
		kind = "file"
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing file"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxMediaBytes))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("reading upload"))
		return
	}

	path := h.store.SaveMedia(kind, hdr.Filename, data)
	writeJSON(w, http.StatusOK, map[string]string{"remote_path": path})
}
