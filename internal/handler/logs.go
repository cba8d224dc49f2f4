package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"retailanalytics/internal/config"
	"retailanalytics/internal/logger"
)

var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// LogsHandler serves /logs/{level} as text/plain and truncates the file on
// /logs/{level}/clear.
func LogsHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/logs/"), "/")
		filename, ok := logFiles[level]
		if !ok {
			http.NotFound(w, r)
			return
		}

		switch action {
		case "":
			serveLogFile(w, r, cfg.LogDirectory, filename)
		case "clear":
			logger.CleanLogs(filename)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}
