package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"retailanalytics/internal/models"
)

var videoExtensions = map[string]bool{".mp4": true, ".avi": true, ".mov": true}

// ParseSources parses "origin|kind|name|role" entries separated by ';'.
// Empty entries are skipped.
func ParseSources(s string) ([]models.SourceSpec, error) {
	var specs []models.SourceSpec
	seen := make(map[string]bool)

	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, "|")
		if len(parts) != 4 {
			return nil, fmt.Errorf("source %q: expected origin|kind|name|role", entry)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		kind, err := models.ParseSourceKind(parts[1])
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", entry, err)
		}
		role, err := models.ParseRole(parts[3])
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", entry, err)
		}
		if parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("source %q: origin and name are required", entry)
		}
		if seen[parts[2]] {
			return nil, fmt.Errorf("source %q: duplicate name %s", entry, parts[2])
		}
		seen[parts[2]] = true

		specs = append(specs, models.SourceSpec{Origin: parts[0], Kind: kind, Name: parts[2], Role: role})
	}
	return specs, nil
}

// DefaultSources is the bootstrap used when SOURCES is empty: the webcam as
// the entrance camera plus every video found in VideoDir.
func (c *Config) DefaultSources() ([]models.SourceSpec, error) {
	specs := []models.SourceSpec{{
		Origin: strconv.Itoa(c.WebcamIndex),
		Kind:   models.KindWebcam,
		Name:   "Entrance Camera",
		Role:   models.RoleEntrance,
	}}

	videos, err := DiscoverVideos(c.VideoDir)
	if err != nil {
		return specs, err
	}
	return append(specs, videos...), nil
}

// DiscoverVideos lists .mp4/.avi/.mov files of dir as video sources, sorted by
// file name. A missing directory yields no sources.
func DiscoverVideos(dir string) ([]models.SourceSpec, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read video directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	specs := make([]models.SourceSpec, 0, len(files))
	used := map[string]int{"Entrance Camera": 1}
	for _, file := range files {
		role, name := InferRole(file)
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s %d", name, n)
		}
		specs = append(specs, models.SourceSpec{
			Origin: filepath.Join(dir, file),
			Kind:   models.KindVideo,
			Name:   name,
			Role:   role,
		})
	}
	return specs, nil
}

// InferRole derives role and display name from a video file name:
// "*entrance*" and "*cashier*" pick those roles, anything else is a section
// named after the second '_'-separated token ("section_Electronics.mp4").
func InferRole(filename string) (models.Role, string) {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "entrance"):
		return models.RoleEntrance, "Entrance Video"
	case strings.Contains(lower, "cashier"):
		return models.RoleCashier, "Cashier Video"
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) > 1 && parts[1] != "" {
		return models.RoleSection, parts[1]
	}
	return models.RoleSection, "Section Video"
}
