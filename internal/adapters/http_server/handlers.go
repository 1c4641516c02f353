// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"pricedrop/internal/app"
	"pricedrop/internal/domain"
)

const (
	maxJSONBody     = 64 << 10
	maxDocumentBody = 10 << 20
)

type Handlers struct {
	Compare  *app.CompareService
	Extract  *app.ExtractionService
	Tracking *app.TrackingService
	Verifier domain.IdentityVerifier
	// Quota is optional; nil disables the hourly limit.
	Quota        domain.QuotaLimiter
	QuotaPerHour int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type trackingCreated struct {
	Tracking domain.TrackingRecord   `json:"tracking"`
	Result   domain.ComparisonResult `json:"result"`
}

// extractResponse carries the raw fields and, when they are complete, the
// booking ready to post to /v1/compare.
type extractResponse struct {
	Fields     domain.BookingFields    `json:"fields"`
	Booking    *domain.BookingSnapshot `json:"booking"`
	Incomplete string                  `json:"incomplete,omitempty"`
}

type trackingList struct {
	Items []domain.TrackingRecord `json:"items"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Use(Authenticate(h.Verifier))
		r.Post("/compare", h.compare)
		r.Post("/extract", h.extract)
		r.Post("/trackings", h.createTracking)
		r.Get("/trackings", h.listTrackings)
		r.Get("/trackings/{id}", h.getTracking)
		r.Delete("/trackings/{id}", h.deleteTracking)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeProblem(w, http.StatusBadRequest, "Invalid request", ve.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "hourly comparison quota exhausted")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "tracking not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", "the comparison did not finish in time")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func decodeBooking(w http.ResponseWriter, r *http.Request) (domain.BookingSnapshot, bool) {
	var b domain.BookingSnapshot
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&b); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a booking JSON object")
		return b, false
	}
	// reject before the quota is charged
	if err := b.Validate(); err != nil {
		writeError(w, r, err)
		return b, false
	}
	return b, true
}

// allow spends one unit of the caller's hourly quota. A broken limiter lets
// the request through.
func (h *Handlers) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.Quota == nil || h.QuotaPerHour <= 0 {
		return true
	}
	key := SubjectFrom(r.Context())
	if key == AnonymousSubject {
		key = "ip:" + peerAddr(r)
	}
	ok, err := h.Quota.Allow(r.Context(), key, h.QuotaPerHour, time.Hour)
	if err != nil {
		log.Warn().Err(err).Msg("quota check failed; allowing request")
		return true
	}
	if !ok {
		w.Header().Set("Retry-After", strconv.Itoa(secondsToNextHour(time.Now())))
		writeError(w, r, domain.ErrQuotaExceeded)
		return false
	}
	return true
}

func secondsToNextHour(now time.Time) int {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return int(next.Sub(now).Seconds()) + 1
}

func (h *Handlers) compare(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeBooking(w, r)
	if !ok || !h.allow(w, r) {
		return
	}
	res, err := h.Compare.Compare(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) extract(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Document too large", "documents are limited to 10 MiB")
			return
		}
		writeProblem(w, http.StatusBadRequest, "Invalid body", "could not read document")
		return
	}
	f, err := h.Extract.Extract(r.Context(), body, r.Header.Get("Content-Type"))
	if err != nil {
		var ve domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, r, err)
			return
		}
		log.Error().Err(err).Msg("document analysis failed")
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", "document analysis is unavailable")
		return
	}
	out := extractResponse{Fields: f}
	if b, err := f.Snapshot(); err == nil {
		out.Booking = &b
	} else {
		out.Incomplete = err.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createTracking(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeBooking(w, r)
	if !ok || !h.allow(w, r) {
		return
	}
	rec, res, err := h.Tracking.Track(r.Context(), SubjectFrom(r.Context()), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/trackings/"+rec.ID)
	writeJSON(w, http.StatusCreated, trackingCreated{Tracking: rec, Result: res})
}

func (h *Handlers) listTrackings(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}
	items, err := h.Tracking.List(r.Context(), SubjectFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.TrackingRecord{}
	}
	writeCached(w, r, trackingList{Items: items})
}

func (h *Handlers) getTracking(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Tracking.Get(r.Context(), SubjectFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, rec)
}

func (h *Handlers) deleteTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracking.Stop(r.Context(), SubjectFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
