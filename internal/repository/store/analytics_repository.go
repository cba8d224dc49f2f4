package store

import (
	"encoding/json"
	"fmt"

	"retailanalytics/internal/models"
)

// AnalyticsRepository implements repository.AnalyticsSink on top of DB.
type AnalyticsRepository struct {
	db *DB
}

// NewAnalyticsRepository creates a new analytics repository.
func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// insert runs an INSERT ... RETURNING id and returns the new id.
func (r *AnalyticsRepository) insert(query string, args ...any) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var id int64
	if err := r.db.Conn().QueryRow(r.db.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertVisitor stores an entrance sample.
func (r *AnalyticsRepository) InsertVisitor(rec *models.VisitorRecord) error {
	id, err := r.insert(`
		INSERT INTO visitors (visitor_count, timestamp, date, hour)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, rec.Count, rec.Timestamp, rec.Date, rec.Hour)
	if err != nil {
		return fmt.Errorf("failed to insert visitor data: %w", err)
	}
	rec.ID = id
	return nil
}

// InsertSection stores a section sample with its heatmap zones and object counts as JSON.
func (r *AnalyticsRepository) InsertSection(rec *models.SectionRecord) error {
	zones, err := json.Marshal(rec.HeatmapZones)
	if err != nil {
		return fmt.Errorf("failed to encode heatmap data: %w", err)
	}
	objects, err := json.Marshal(rec.ObjectCounts)
	if err != nil {
		return fmt.Errorf("failed to encode object counts: %w", err)
	}

	id, err := r.insert(`
		INSERT INTO section_analytics
			(section_name, visitor_count, male_count, female_count, heatmap_data, object_counts, timestamp, date, hour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, rec.SectionName, rec.Count, rec.Male, rec.Female, string(zones), string(objects), rec.Timestamp, rec.Date, rec.Hour)
	if err != nil {
		return fmt.Errorf("failed to insert section analytics: %w", err)
	}
	rec.ID = id
	return nil
}

// InsertCashier stores a cashier sample.
func (r *AnalyticsRepository) InsertCashier(rec *models.CashierRecord) error {
	id, err := r.insert(`
		INSERT INTO cashier_analytics
			(queue_length, estimated_wait_time, is_busy, estimated_transactions, timestamp, date, hour)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, rec.QueueLength, rec.WaitSeconds, rec.IsBusy, rec.Transactions, rec.Timestamp, rec.Date, rec.Hour)
	if err != nil {
		return fmt.Errorf("failed to insert cashier analytics: %w", err)
	}
	rec.ID = id
	return nil
}

// InsertDwell stores one finished dwell session.
func (r *AnalyticsRepository) InsertDwell(rec *models.DwellRecord) error {
	id, err := r.insert(`
		INSERT INTO customer_dwell_time
			(session_id, track_id, section_name, entry_time, exit_time, duration_seconds, date, hour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, rec.SessionID, rec.TrackID, rec.SectionName, rec.EntryTime, rec.ExitTime, rec.Duration, rec.Date, rec.Hour)
	if err != nil {
		return fmt.Errorf("failed to insert dwell session: %w", err)
	}
	rec.ID = id
	return nil
}
