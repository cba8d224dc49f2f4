package models

import "time"

// QueueAnalytics is the cashier queue snapshot for one frame.
type QueueAnalytics struct {
	CurrentLength         int     `json:"current_queue_length"`
	AverageLength         float64 `json:"average_queue_length"`
	EstimatedWaitSeconds  float64 `json:"estimated_wait_time"`
	IsBusy                bool    `json:"is_busy"`
	EstimatedTransactions int     `json:"estimated_transactions"`
}

// AnalyticsRecord is the per-frame synthesis of one source.
type AnalyticsRecord struct {
	SourceName   string          `json:"source_name"`
	Role         Role            `json:"role"`
	Count        int             `json:"count"`
	ObjectCounts map[string]int  `json:"object_counts"`
	Gender       GenderCount     `json:"gender"`
	HeatmapZones map[string]int  `json:"heatmap_zones"`
	Queue        *QueueAnalytics `json:"queue,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Date         string          `json:"date"`
	Hour         int             `json:"hour"`
	Detections   []Detection     `json:"-"`
}

// DateLayout is the format of date buckets.
const DateLayout = "2006-01-02"

// Bucket returns the date/hour bucket of a timestamp.
func Bucket(t time.Time) (string, int) {
	return t.Format(DateLayout), t.Hour()
}
