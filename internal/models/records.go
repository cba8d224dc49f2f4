package models

import "time"

// VisitorRecord is a persisted entrance sample.
type VisitorRecord struct {
	ID        int64     `json:"id"`
	Count     int       `json:"visitor_count"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	Hour      int       `json:"hour"`
}

// SectionRecord is a persisted section sample.
type SectionRecord struct {
	ID           int64          `json:"id"`
	SectionName  string         `json:"section_name"`
	Count        int            `json:"visitor_count"`
	Male         int            `json:"male_count"`
	Female       int            `json:"female_count"`
	HeatmapZones map[string]int `json:"heatmap_data"`
	ObjectCounts map[string]int `json:"object_counts"`
	Timestamp    time.Time      `json:"timestamp"`
	Date         string         `json:"date"`
	Hour         int            `json:"hour"`
}

// CashierRecord is a persisted cashier sample.
type CashierRecord struct {
	ID           int64     `json:"id"`
	QueueLength  int       `json:"queue_length"`
	WaitSeconds  float64   `json:"estimated_wait_time"`
	IsBusy       bool      `json:"is_busy"`
	Transactions int       `json:"estimated_transactions"`
	Timestamp    time.Time `json:"timestamp"`
	Date         string    `json:"date"`
	Hour         int       `json:"hour"`
}

// DwellRecord is one finished customer presence in a section.
type DwellRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	TrackID     int       `json:"track_id"`
	SectionName string    `json:"section_name"`
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	Duration    float64   `json:"duration_seconds"`
	Date        string    `json:"date"`
	Hour        int       `json:"hour"`
}

// DailySummary aggregates one day of samples.
type DailySummary struct {
	Date            string  `json:"date"`
	TotalVisitors   int     `json:"total_visitors"`
	AvgDwellSeconds float64 `json:"avg_dwell_seconds"`
	DwellSessions   int     `json:"dwell_sessions"`
	Transactions    int     `json:"total_transactions"`
	PeakQueueLength int     `json:"peak_queue_length"`
	AvgWaitSeconds  float64 `json:"avg_wait_time"`
	ConversionRate  float64 `json:"conversion_rate"`
}

// HourCount is a visitor total for one hour.
type HourCount struct {
	Hour     int `json:"hour"`
	Visitors int `json:"total_visitors"`
}

// SectionPerformance summarizes one section over a day.
type SectionPerformance struct {
	SectionName     string  `json:"section_name"`
	AvgVisitors     float64 `json:"avg_visitors"`
	PeakVisitors    int     `json:"peak_visitors"`
	TotalMale       int     `json:"total_male"`
	TotalFemale     int     `json:"total_female"`
	AvgDwellSeconds float64 `json:"avg_dwell_seconds"`
}

// DwellStats summarizes finished dwell sessions of one section.
type DwellStats struct {
	SectionName string  `json:"section_name"`
	Sessions    int     `json:"sessions"`
	AvgSeconds  float64 `json:"avg_dwell_seconds"`
	MaxSeconds  float64 `json:"max_dwell_seconds"`
}

// CashierPerformance summarizes a day of cashier samples.
type CashierPerformance struct {
	Date           string  `json:"date"`
	Transactions   int     `json:"total_transactions"`
	AvgQueueLength float64 `json:"average_queue_length"`
	MaxQueueLength int     `json:"max_queue_length"`
	BusyPeriods    int     `json:"busy_periods"`
	Records        int     `json:"total_records"`
}
