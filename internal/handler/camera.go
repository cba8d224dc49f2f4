package handler

import (
	"net/http"
	"strings"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/service/stream"
)

// VideoFeedHandler serves /api/video_feed/{source} as a multipart MJPEG stream
// of the annotated frames.
func VideoFeedHandler(relay *stream.MJPEGRelay, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/video_feed/")
		if name == "" {
			http.Error(w, "Source name required", http.StatusBadRequest)
			return
		}

		handler, ok := relay.Handler(name)
		if !ok {
			http.Error(w, "No frames for source "+name, http.StatusNotFound)
			return
		}

		logger.Info("MJPEG viewer connected to %s", name)
		handler.ServeHTTP(w, r)
		logger.Info("MJPEG viewer of %s disconnected", name)
	}
}

// SnapshotHandler serves the latest annotated frame of /api/snapshot/{source} as a JPEG.
func SnapshotHandler(publisher *stream.FramePublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/snapshot/")
		frame, ok := publisher.Latest(name)
		if !ok {
			http.Error(w, "No frames for source "+name, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(frame)
	}
}
