package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"VCPScanner/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
}

// scanRequest mirrors the POST /api/vcp/scan body. Absent fields take
// the configured defaults.
type scanRequest struct {
	Symbols           []string `json:"symbols"`
	MinVolume         *float64 `json:"minVolume"`
	MinPrice          *float64 `json:"minPrice"`
	MaxPrice          *float64 `json:"maxPrice"`
	ContractionPeriod *float64 `json:"contractionPeriod"`
	VolumeThreshold   *float64 `json:"volumeThreshold"`
}

func (req scanRequest) params(defaults model.ScanParameters) (model.ScanParameters, error) {
	p := defaults
	if req.MinVolume != nil {
		p.MinVolume = *req.MinVolume
	}
	if req.MinPrice != nil {
		p.MinPrice = *req.MinPrice
	}
	if req.MaxPrice != nil {
		p.MaxPrice = *req.MaxPrice
	}
	if req.VolumeThreshold != nil {
		p.VolumeThreshold = *req.VolumeThreshold
	}
	if req.ContractionPeriod != nil {
		n, err := wholeNumber("contractionPeriod", *req.ContractionPeriod)
		if err != nil {
			return p, err
		}
		p.ContractionPeriod = n
	}
	return p, nil
}

func wholeNumber(name string, v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s must be a whole number", model.ErrInvalidParameters, name)
	}
	return int(v), nil
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the VCP scanner API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if s.health != nil {
		for k, v := range s.health() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("%w: malformed body: %v", model.ErrInvalidParameters, err))
		return
	}
	params, err := req.params(s.config.Defaults)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := s.analyzer.Scan(r.Context(), req.Symbols, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bars, err := s.analyzer.Historical(r.Context(), mux.Vars(r)["symbol"], q.Get("period"), q.Get("interval"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bars)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := queryParams(q, s.config.Defaults)
	if err != nil {
		writeError(w, err)
		return
	}
	analysis, err := s.analyzer.Analyze(r.Context(), mux.Vars(r)["symbol"], q.Get("period"), q.Get("interval"), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// queryParams overlays numeric query values on defaults.
func queryParams(q url.Values, defaults model.ScanParameters) (model.ScanParameters, error) {
	p := defaults
	floats := []struct {
		name string
		dst  *float64
	}{
		{"minVolume", &p.MinVolume},
		{"minPrice", &p.MinPrice},
		{"maxPrice", &p.MaxPrice},
		{"volumeThreshold", &p.VolumeThreshold},
	}
	for _, f := range floats {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("%w: %s=%q is not a number", model.ErrInvalidParameters, f.name, raw)
		}
		*f.dst = v
	}
	if raw := q.Get("contractionPeriod"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%w: contractionPeriod=%q is not an integer", model.ErrInvalidParameters, raw)
		}
		p.ContractionPeriod = n
	}
	return p, nil
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidParameters):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, model.ErrArithmeticFault), errors.Is(err, model.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
