package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"retailanalytics/internal/config"
	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
)

// VideoInfo describes an uploaded video file.
type VideoInfo struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	SizeMB   float64   `json:"size_mb"`
	Modified time.Time `json:"modified"`
}

var videoExtensions = map[string]bool{".mp4": true, ".avi": true, ".mov": true}

// UploadVideoHandler stores a multipart "file" in the video directory as
// {role}_{section}_{timestamp}{ext} and, unless start=false, registers it as a
// looping video source and starts processing it.
func UploadVideoHandler(controller SourceController, cfg *config.Config, logger *logger.Logger, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "Invalid upload: "+err.Error(), http.StatusBadRequest)
			return
		}

		role, err := models.ParseRole(r.FormValue("role"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "File required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !videoExtensions[ext] {
			http.Error(w, "File must be a .mp4, .avi or .mov video", http.StatusBadRequest)
			return
		}

		section := strings.ReplaceAll(strings.TrimSpace(r.FormValue("section_name")), "_", " ")
		stamp := now().Format("20060102_150405")
		filename := fmt.Sprintf("%s_%s%s", role, stamp, ext)
		if role == models.RoleSection && section != "" {
			filename = fmt.Sprintf("%s_%s_%s%s", role, section, stamp, ext)
		}

		if err := os.MkdirAll(cfg.VideoDir, 0755); err != nil {
			logger.Error("Failed to create video directory: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		path := filepath.Join(cfg.VideoDir, filename)
		if err := saveUpload(path, file); err != nil {
			logger.Error("Failed to save video %s: %v", filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		logger.Info("Video uploaded: %s", filename)

		spec := models.SourceSpec{
			Origin: path,
			Kind:   models.KindVideo,
			Name:   strings.TrimSuffix(filename, ext),
			Role:   role,
		}
		if section != "" && role == models.RoleSection {
			spec.Name = section
		}
		if name := strings.TrimSpace(r.FormValue("name")); name != "" {
			spec.Name = name
		}

		if r.FormValue("start") != "false" {
			if err := controller.AddSource(spec); err != nil {
				writeError(w, logger, err)
				return
			}
			if err := controller.StartProcessing(spec.Name); err != nil {
				writeError(w, logger, err)
				return
			}
		}

		writeJSON(w, logger, http.StatusCreated, map[string]any{
			"success":  true,
			"filename": filename,
			"source":   spec,
		})
	}
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// ListVideosHandler lists the videos in the video directory.
func ListVideosHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}

		videos := []VideoInfo{}
		entries, err := os.ReadDir(cfg.VideoDir)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading video directory: %v", err)
			http.Error(w, "Unable to read video directory", http.StatusInternalServerError)
			return
		}

		for _, entry := range entries {
			if entry.IsDir() || !videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				logger.Warning("Failed to stat %s: %v", entry.Name(), err)
				continue
			}
			videos = append(videos, VideoInfo{
				Filename: entry.Name(),
				Path:     filepath.Join(cfg.VideoDir, entry.Name()),
				SizeMB:   float64(int64(float64(info.Size())/(1024*1024)*100+0.5)) / 100,
				Modified: info.ModTime(),
			})
		}
		sort.Slice(videos, func(i, j int) bool { return videos[i].Filename < videos[j].Filename })

		writeJSON(w, logger, http.StatusOK, map[string]any{"success": true, "count": len(videos), "data": videos})
	}
}

// DeleteVideoHandler removes /api/videos/{filename} from disk. A source still
// reading the file keeps its open capture until it is removed.
func DeleteVideoHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodDelete) {
			return
		}

		filename := strings.TrimPrefix(r.URL.Path, "/api/videos/")
		if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}

		path := filepath.Join(cfg.VideoDir, filename)
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				http.Error(w, "Video not found", http.StatusNotFound)
				return
			}
			logger.Error("Failed to delete video %s: %v", path, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Video deleted: %s", filename)
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "filename": filename})
	}
}
