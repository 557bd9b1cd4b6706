// Package handlers provides HTTP handlers for the holdings API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// UploadSuccessMessage is returned by a successful upload
const UploadSuccessMessage = "Files uploaded and processed successfully"

// Handler handles holdings HTTP requests
type Handler struct {
	service        *holdings.Service
	defaultTopN    int
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewHandler creates a new holdings handler
func NewHandler(service *holdings.Service, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		service:        service,
		defaultTopN:    cfg.DefaultTopN,
		maxUploadBytes: cfg.MaxUploadBytes,
		log:            log.With().Str("handler", "holdings").Logger(),
	}
}

// HandleUploadProcess accepts the weights and prices files and replaces the snapshot
func (h *Handler) HandleUploadProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			h.writeError(w, http.StatusUnprocessableEntity, "weights_file and prices_file are required")
			return
		}
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads := make(map[string]*ingest.Upload, 2)
	for _, field := range []string{"weights_file", "prices_file"} {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			h.writeError(w, http.StatusUnprocessableEntity, field+" is required")
			return
		}
		if err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", field, err))
			return
		}
		defer file.Close()
		uploads[field] = &ingest.Upload{Filename: header.Filename, Body: file}
	}

	snap, err := h.service.Upload(uploads["weights_file"], uploads["prices_file"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   UploadSuccessMessage,
		"upload_id": snap.UploadID,
		"holdings":  len(snap.Rows),
	})
}

// HandleGetComposition returns the holdings table
func (h *Handler) HandleGetComposition(w http.ResponseWriter, r *http.Request) {
	var cfg *domain.SortConfig
	if key := r.URL.Query().Get("sort"); key != "" {
		sortKey, err := domain.ParseSortKey(key)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		direction := domain.Ascending
		if d := r.URL.Query().Get("direction"); d != "" {
			if direction, err = domain.ParseDirection(d); err != nil {
				h.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		cfg = &domain.SortConfig{Key: sortKey, Direction: direction}
	}

	rows := h.service.Composition(cfg)
	result := make([]domain.HoldingRow, len(rows))
	for i, row := range rows {
		result[i] = domain.HoldingRow{
			Name:        row.Name,
			Weight:      round3(row.Weight),
			LatestPrice: round3(row.LatestPrice),
		}
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetPerformance returns the fund value series
func (h *Handler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	var timeRange *domain.TimeRange
	if s := r.URL.Query().Get("range"); s != "" {
		tr, err := domain.ParseTimeRange(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		timeRange = &tr
	}

	series := h.service.Performance(timeRange)
	result := make(domain.PerformanceSeries, len(series))
	for i, p := range series {
		result[i] = domain.PerformancePoint{Date: p.Date, Value: round3(p.Value)}
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetTopHoldings returns the N most valuable holdings at a date
func (h *Handler) HandleGetTopHoldings(w http.ResponseWriter, r *http.Request) {
	n := h.defaultTopN
	if s := r.URL.Query().Get("n"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 || parsed > config.MaxTopN {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("n must be an integer between 1 and %d", config.MaxTopN))
			return
		}
		n = parsed
	}

	date, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	ranked, err := h.service.TopHoldings(n, date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result := make([]domain.RankedHolding, len(ranked))
	for i, rh := range ranked {
		result[i] = domain.RankedHolding{Name: rh.Name, HoldingValue: round3(rh.HoldingValue)}
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetPriceChanges returns each holding's direction at a date
func (h *Handler) HandleGetPriceChanges(w http.ResponseWriter, r *http.Request) {
	date, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	changes := h.service.PriceChanges(date)
	for i, c := range changes {
		if c.ChangeAmount != nil {
			amount := round3(*c.ChangeAmount)
			changes[i].ChangeAmount = &amount
		}
	}
	h.writeJSON(w, http.StatusOK, changes)
}

// HandleGetPrices returns the full price history
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.PriceHistory())
}

// HandleGetSnapshot returns metadata about the current snapshot
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded":   !snap.Empty(),
		"snapshot": snap.Info(),
	})
}

func (h *Handler) parseDate(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	s := r.URL.Query().Get("date")
	if s == "" {
		return nil, true
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &d, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingInput):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrMalformedInput), errors.Is(err, domain.ErrInvalidArgument):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func round3(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
