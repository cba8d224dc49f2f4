package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"retailanalytics/internal/config"
	"retailanalytics/internal/handler"
	"retailanalytics/internal/logger"
	"retailanalytics/internal/middleware"
	"retailanalytics/internal/repository"
	"retailanalytics/internal/service/report"
	"retailanalytics/internal/service/stream"
)

// Services are the long-lived components the routes dispatch to.
type Services struct {
	Controller handler.SourceController
	Query      repository.AnalyticsQuerier
	Aggregator *report.Aggregator
	Publisher  *stream.FramePublisher
	Hub        *stream.HubService
	MJPEG      *stream.MJPEGRelay
	Now        func() time.Time
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", path+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(s Services, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	mux.HandleFunc("/health", handler.HealthHandler)

	// Live video
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(s.Hub, logger))
	mux.HandleFunc("/api/video_feed/", handler.VideoFeedHandler(s.MJPEG, logger))
	mux.HandleFunc("/api/snapshot/", handler.SnapshotHandler(s.Publisher))

	// Sources
	mux.HandleFunc("/api/sources", handler.SourcesHandler(s.Controller, logger))
	mux.HandleFunc("/api/sources/", handler.SourceHandler(s.Controller, logger))
	mux.HandleFunc("/api/stats", handler.StatsHandler(s.Controller, logger))

	// Uploaded videos
	upload := handler.UploadVideoHandler(s.Controller, cfg, logger, s.Now)
	list := handler.ListVideosHandler(cfg, logger)
	mux.HandleFunc("/api/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			upload(w, r)
			return
		}
		list(w, r)
	})
	mux.HandleFunc("/api/videos/", handler.DeleteVideoHandler(cfg, logger))

	// Historical analytics
	mux.HandleFunc("/api/analytics/", handler.AnalyticsHandler(s.Query, s.Aggregator, s.Now, logger))

	// Log endpoints: /logs/{info,warning,error}[/clear]
	mux.HandleFunc("/logs/", handler.LogsHandler(cfg, logger))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
