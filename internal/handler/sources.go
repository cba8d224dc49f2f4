package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
)

const (
	defaultHotspotThreshold = 0.7
	defaultMaxHotspots      = 20
)

// SourcesHandler lists sources (GET) or registers and starts a new one (POST).
func SourcesHandler(controller SourceController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}

		if r.Method == http.MethodGet {
			writeJSON(w, logger, http.StatusOK, controller.Sources())
			return
		}

		var spec models.SourceSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			http.Error(w, "Invalid source: "+err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := models.ParseSourceKind(string(spec.Kind)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := models.ParseRole(string(spec.Role)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := controller.AddSource(spec); err != nil {
			writeError(w, logger, err)
			return
		}
		logger.Info("Added %s source %s (%s)", spec.Role, spec.Name, spec.Origin)

		if r.URL.Query().Get("start") != "false" {
			if err := controller.StartProcessing(spec.Name); err != nil {
				writeError(w, logger, err)
				return
			}
		}
		writeJSON(w, logger, http.StatusCreated, spec)
	}
}

// SourceHandler serves /api/sources/{name} and its sub-resources:
// start, stop, heatmap, heatmap/reset and roi.
func SourceHandler(controller SourceController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		name, action, _ := strings.Cut(rest, "/")
		if name == "" {
			http.Error(w, "Source name required", http.StatusBadRequest)
			return
		}

		switch action {
		case "":
			if !allowMethods(w, r, http.MethodGet, http.MethodDelete) {
				return
			}
			if r.Method == http.MethodDelete {
				if err := controller.RemoveSource(name); err != nil {
					writeError(w, logger, err)
					return
				}
				logger.Info("Removed source %s", name)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			rec, err := controller.LatestRecord(name)
			if err != nil {
				writeError(w, logger, err)
				return
			}
			if rec == nil {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writeJSON(w, logger, http.StatusOK, rec)

		case "start", "stop":
			if !allowMethods(w, r, http.MethodPost) {
				return
			}
			var err error
			if action == "start" {
				err = controller.StartProcessing(name)
			} else {
				err = controller.StopProcessing(name)
			}
			if err != nil {
				writeError(w, logger, err)
				return
			}
			writeJSON(w, logger, http.StatusOK, map[string]string{"status": action, "source": name})

		case "heatmap":
			if !allowMethods(w, r, http.MethodGet) {
				return
			}
			threshold := defaultHotspotThreshold
			if v, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64); err == nil && v >= 0 && v <= 1 {
				threshold = v
			}
			limit := atoiDefault(r.URL.Query().Get("limit"), defaultMaxHotspots)
			view, err := controller.Heatmap(name, threshold, limit)
			if err != nil {
				writeError(w, logger, err)
				return
			}
			writeJSON(w, logger, http.StatusOK, view)

		case "heatmap/reset":
			if !allowMethods(w, r, http.MethodPost) {
				return
			}
			if err := controller.ResetHeatmap(name); err != nil {
				writeError(w, logger, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case "roi":
			if !allowMethods(w, r, http.MethodPost, http.MethodPut) {
				return
			}
			var roi models.BBox
			if err := json.NewDecoder(r.Body).Decode(&roi); err != nil {
				http.Error(w, "Invalid ROI: "+err.Error(), http.StatusBadRequest)
				return
			}
			if err := controller.SetCashierROI(name, roi); err != nil {
				// źle podane ROI albo nie-kasowe źródło
				if isNotFound(err) {
					writeError(w, logger, err)
					return
				}
				writeJSON(w, logger, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, logger, http.StatusOK, roi)

		default:
			http.NotFound(w, r)
		}
	}
}

// StatsHandler returns live statistics across all sources.
func StatsHandler(controller SourceController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, logger, http.StatusOK, controller.Stats())
	}
}
