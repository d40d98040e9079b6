package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/traderlab/optionscan/internal/config"
	"github.com/traderlab/optionscan/internal/marketdata"
	"github.com/traderlab/optionscan/internal/metrics"
	"github.com/traderlab/optionscan/internal/pricing"
	"github.com/traderlab/optionscan/internal/screener"
)

type Server struct {
	scanner *screener.Scanner
	symbols []string
	config  *config.ServerConfig
	logger  *zap.Logger
}

func NewServer(scanner *screener.Scanner, symbols []string, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		scanner: scanner,
		symbols: symbols,
		config:  cfg,
		logger:  logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// scanRequest is the POST /v1/scan body. Criteria symbols default to
// the configured universe when absent.
type scanRequest struct {
	Mode     string            `json:"mode"`
	Criteria screener.Criteria `json:"criteria"`
}

type expectedMoveRequest struct {
	SpotPrice    float64 `json:"spotPrice"`
	Volatility   float64 `json:"volatility"`
	DaysToExpiry int     `json:"daysToExpiry"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var req pricing.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	quote, err := pricing.Price(&req)
	if err != nil {
		metrics.PricingRequests.WithLabelValues("rejected").Inc()
		s.writeMappedError(w, err)
		return
	}

	metrics.PricingRequests.WithLabelValues("priced").Inc()
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleExpectedMove(w http.ResponseWriter, r *http.Request) {
	var req expectedMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	move, err := pricing.ComputeExpectedMove(req.SpotPrice, req.Volatility, req.DaysToExpiry)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, move)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	mode, err := screener.ParseMode(req.Mode)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	if len(req.Criteria.Symbols) == 0 {
		req.Criteria.Symbols = s.symbols
	}

	start := time.Now()
	report, err := s.scanner.Scan(r.Context(), mode, &req.Criteria)
	if err != nil {
		metrics.RecordScan(string(mode), false, err, time.Since(start), 0)
		s.writeMappedError(w, err)
		return
	}
	metrics.RecordScan(string(mode), report.Synthetic, nil, report.Duration, len(report.Skipped))

	s.logger.Info("scan completed",
		zap.String("scanId", report.ScanID),
		zap.String("mode", string(report.Mode)),
		zap.Bool("synthetic", report.Synthetic),
		zap.Int("results", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
	)

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": s.symbols,
		"count":   len(s.symbols),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"streaming": s.config.WSEnabled,
	})
}

// writeMappedError translates domain errors into HTTP statuses:
// validation problems are the caller's fault, provider throttling is
// surfaced as 429 so clients can back off, everything else is a 500.
func (s *Server) writeMappedError(w http.ResponseWriter, err error) {
	var verr *pricing.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, errorResponse{
			Error: verr.Msg,
			Field: verr.Field,
			Kind:  string(verr.Kind),
		})
	case errors.Is(err, screener.ErrInvalidCriteria):
		writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, marketdata.ErrRateLimited), errors.Is(err, marketdata.ErrQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.Is(err, marketdata.ErrAuthFailed):
		writeError(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp errorResponse) {
	writeJSON(w, status, resp)
}
