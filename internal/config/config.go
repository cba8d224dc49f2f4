package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	Password     string
	LogDirectory string
	LogLevel     string

	DBDriver string // sqlite3 albo postgres
	DBDSN    string

	ModelPath          string
	ConfigPath         string
	GenderModelPath    string
	GenderConfigPath   string
	DetectionThreshold float64
	DetectClasses      []int // COCO ids przepuszczane przez detektor
	TrackerMaxAge      int   // Ile klatek track przeżywa bez detekcji

	SaveInterval   int           // Co którą klatkę zapisywać analitykę do bazy
	FrameInterval  time.Duration // Przerwa między klatkami (~30 fps)
	StopTimeout    time.Duration
	StreamInterval time.Duration

	DwellDropout   time.Duration
	MinDwell       time.Duration
	AvgServiceTime time.Duration
	BusyThreshold  int
	QueueHistory   int
	CashierROI     [4]float64 // x1, y1, x2, y2 jako ułamki szerokości/wysokości

	HeatmapDecay   float64
	HeatmapRadius  int // Promień przy szerokości 640 px
	HeatmapZones   int
	HeatmapOverlay bool

	Sources     string // origin|kind|name|role;...
	WebcamIndex int
	VideoDir    string

	MQTTBroker string
	MQTTTopic  string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnvAsInt("PORT", 8080),
		Password:     getEnv("PASSWORD", "sienkiewicza2"),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		DBDriver: getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:    getEnv("DB_DSN", filepath.Join(".", "data", "analytics.db")),

		ModelPath:          getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:         getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		GenderModelPath:    getEnv("GENDER_MODEL_PATH", ""),
		GenderConfigPath:   getEnv("GENDER_CONFIG_PATH", ""),
		DetectionThreshold: getEnvAsFloat("DETECTION_THRESHOLD", 0.5),
		DetectClasses:      getEnvAsIntList("DETECT_CLASSES", []int{1, 62, 77}), // osoba, krzesło, telefon
		TrackerMaxAge:      getEnvAsInt("TRACKER_MAX_AGE", 15),

		SaveInterval:   getEnvAsInt("SAVE_INTERVAL", 30),
		FrameInterval:  getEnvAsDuration("FRAME_INTERVAL", 33*time.Millisecond),
		StopTimeout:    getEnvAsDuration("STOP_TIMEOUT", 5*time.Second),
		StreamInterval: getEnvAsDuration("STREAM_INTERVAL", 40*time.Millisecond),

		DwellDropout:   getEnvAsDuration("DWELL_DROPOUT", 5*time.Second),
		MinDwell:       getEnvAsDuration("MIN_DWELL", 3*time.Second),
		AvgServiceTime: getEnvAsDuration("AVG_SERVICE_TIME", 120*time.Second),
		BusyThreshold:  getEnvAsInt("BUSY_THRESHOLD", 3),
		QueueHistory:   getEnvAsInt("QUEUE_HISTORY", 30),
		CashierROI:     getEnvAsROI("CASHIER_ROI", [4]float64{0.25, 0.25, 0.75, 0.75}),

		HeatmapDecay:   getEnvAsFloat("HEATMAP_DECAY", 0.95),
		HeatmapRadius:  getEnvAsInt("HEATMAP_RADIUS", 30),
		HeatmapZones:   getEnvAsInt("HEATMAP_ZONES", 9),
		HeatmapOverlay: getEnvAsBool("HEATMAP_OVERLAY", false),

		Sources:     getEnv("SOURCES", ""),
		WebcamIndex: getEnvAsInt("WEBCAM_INDEX", 0),
		VideoDir:    getEnv("VIDEO_DIR", filepath.Join(".", "uploads", "videos")),

		MQTTBroker: getEnv("MQTT_BROKER", ""),
		MQTTTopic:  getEnv("MQTT_TOPIC", "retail/analytics"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s", "33ms") or plain seconds ("5", "0.5").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}

func getEnvAsIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

func getEnvAsROI(key string, defaultValue [4]float64) [4]float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return defaultValue
	}
	var roi [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || f < 0 || f > 1 {
			return defaultValue
		}
		roi[i] = f
	}
	if roi[0] >= roi[2] || roi[1] >= roi[3] {
		return defaultValue
	}
	return roi
}
