package sharedstore

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"artcache/internal/logging"
)

const maxRequestBytes = 1 << 20

type handler struct {
	store  *Store
	apiKey string
	logger *slog.Logger
}

// NewHandler exposes the store over the JSON API. Every route except
// /healthz requires "Authorization: Bearer <apiKey>".
func NewHandler(store *Store, apiKey string, logger *slog.Logger) (http.Handler, error) {
	if store == nil {
		return nil, errors.New("store required")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("api key required")
	}
	h := &handler{
		store:  store,
		apiKey: apiKey,
		logger: logging.NewComponentLogger(logger, "store-api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /v1/artworks/{hash}", h.authorized(h.handleGetArtwork))
	mux.HandleFunc("GET /v1/artworks", h.authorized(h.handleSearchArtworks))
	mux.HandleFunc("POST /v1/artworks", h.authorized(h.handleInsertArtwork))
	mux.HandleFunc("PATCH /v1/artworks/{id}", h.authorized(h.handleUpdateArtwork))
	mux.HandleFunc("POST /v1/artworks/{id}/views", h.authorized(h.handleIncrementViews))
	mux.HandleFunc("GET /v1/artists", h.authorized(h.handleFindArtists))
	mux.HandleFunc("POST /v1/artists", h.authorized(h.handleInsertArtist))
	mux.HandleFunc("PATCH /v1/artists/{id}", h.authorized(h.handleUpdateArtist))
	return h.withRequestLog(mux), nil
}

// authorized validates the bearer token before invoking next.
func (h *handler) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) != 1 {
			h.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		logging.WithContext(ctx, h.logger).Debug("store request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)),
		)
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleGetArtwork(w http.ResponseWriter, r *http.Request) {
	art, err := h.store.ArtworkByHash(r.Context(), r.PathValue("hash"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, art)
}

func (h *handler) handleSearchArtworks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	arts, err := h.store.SearchArtworks(r.Context(), ArtworkQuery{
		TitlePrefix:  query.Get("title"),
		ArtistPrefix: query.Get("artist"),
		Limit:        limit,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if arts == nil {
		arts = []*Artwork{}
	}
	h.writeJSON(w, http.StatusOK, arts)
}

func (h *handler) handleInsertArtwork(w http.ResponseWriter, r *http.Request) {
	var in NewArtwork
	if !h.decode(w, r, &in) {
		return
	}
	art, err := h.store.InsertArtwork(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, art)
}

func (h *handler) handleUpdateArtwork(w http.ResponseWriter, r *http.Request) {
	var patch ArtworkPatch
	if !h.decode(w, r, &patch) {
		return
	}
	art, err := h.store.UpdateArtwork(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, art)
}

func (h *handler) handleIncrementViews(w http.ResponseWriter, r *http.Request) {
	if err := h.store.IncrementViews(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleFindArtists(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	artists, err := h.store.FindArtists(r.Context(), ArtistQuery{
		Name:           query.Get("name"),
		NormalizedName: query.Get("normalized_name"),
		Search:         query.Get("search"),
		Limit:          limit,
	})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if artists == nil {
		artists = []*Artist{}
	}
	h.writeJSON(w, http.StatusOK, artists)
}

func (h *handler) handleInsertArtist(w http.ResponseWriter, r *http.Request) {
	var in NewArtist
	if !h.decode(w, r, &in) {
		return
	}
	artist, err := h.store.InsertArtist(r.Context(), in)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, artist)
}

func (h *handler) handleUpdateArtist(w http.ResponseWriter, r *http.Request) {
	var patch ArtistPatch
	if !h.decode(w, r, &patch) {
		return
	}
	artist, err := h.store.UpdateArtist(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, artist)
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json body: %v", err))
		return false
	}
	return true
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}

func (h *handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrDuplicate):
		h.writeError(w, http.StatusConflict, "duplicate")
	case errors.Is(err, ErrInvalid):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.ErrorWithContext(h.logger, "store operation failed", "store_operation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the store database file and disk space"),
		)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
