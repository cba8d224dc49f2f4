package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
	"retailanalytics/internal/service/pipeline"
)

// SourceController is the part of the pipeline coordinator the API drives.
type SourceController interface {
	AddSource(spec models.SourceSpec) error
	RemoveSource(name string) error
	StartProcessing(name string) error
	StopProcessing(name string) error
	Sources() []models.SourceInfo
	Stats() pipeline.Stats
	LatestRecord(name string) (*models.AnalyticsRecord, error)
	Heatmap(name string, threshold float64, maxHotspots int) (*pipeline.HeatmapView, error)
	ResetHeatmap(name string) error
	SetCashierROI(name string, roi models.BBox) error
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError maps coordinator errors onto HTTP statuses.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case isNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrSourceExists), errors.Is(err, pipeline.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, pipeline.ErrSourceOpen):
		status = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrStopTimeout):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	writeJSON(w, logger, status, map[string]string{"error": err.Error()})
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate validates a "2006-01-02" query value; empty means today.
func parseDate(v string, now func() time.Time) (string, bool) {
	if v == "" {
		return now().Format(models.DateLayout), true
	}
	if _, err := time.Parse(models.DateLayout, v); err != nil {
		return "", false
	}
	return v, true
}

func isNotFound(err error) bool {
	return errors.Is(err, pipeline.ErrSourceNotFound)
}
