package store

import (
	"database/sql"
	"fmt"

	"retailanalytics/internal/models"
)

// QueryRepository implements repository.AnalyticsQuerier: historical reads over the stored samples.
type QueryRepository struct {
	db *DB
}

// NewQueryRepository creates a new query repository.
func NewQueryRepository(db *DB) *QueryRepository {
	return &QueryRepository{db: db}
}

// TotalVisitors sums entrance counts for a date.
func (r *QueryRepository) TotalVisitors(date string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var total int
	err := r.db.Conn().QueryRow(r.db.Rebind(
		`SELECT COALESCE(SUM(visitor_count), 0) FROM visitors WHERE date = ?`,
	), date).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count visitors: %w", err)
	}
	return total, nil
}

// DailySummary aggregates visitors, dwell sessions and cashier samples of one date.
// Transactions are a running count per estimator, so the day's value is the maximum.
func (r *QueryRepository) DailySummary(date string) (*models.DailySummary, error) {
	total, err := r.TotalVisitors(date)
	if err != nil {
		return nil, err
	}

	r.db.RLock()
	defer r.db.RUnlock()

	summary := &models.DailySummary{Date: date, TotalVisitors: total}

	err = r.db.Conn().QueryRow(r.db.Rebind(`
		SELECT COUNT(*), COALESCE(AVG(duration_seconds), 0)
		FROM customer_dwell_time WHERE date = ?
	`), date).Scan(&summary.DwellSessions, &summary.AvgDwellSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize dwell time: %w", err)
	}

	err = r.db.Conn().QueryRow(r.db.Rebind(`
		SELECT COALESCE(MAX(estimated_transactions), 0),
		       COALESCE(MAX(queue_length), 0),
		       COALESCE(AVG(estimated_wait_time), 0)
		FROM cashier_analytics WHERE date = ?
	`), date).Scan(&summary.Transactions, &summary.PeakQueueLength, &summary.AvgWaitSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize cashier analytics: %w", err)
	}

	summary.ConversionRate = conversion(summary.Transactions, summary.TotalVisitors)
	return summary, nil
}

// PeakHours returns the busiest hours of a date by summed visitor count, busiest first.
func (r *QueryRepository) PeakHours(date string, limit int) ([]models.HourCount, error) {
	if limit <= 0 {
		limit = 5
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(r.db.Rebind(`
		SELECT hour, SUM(visitor_count) AS total_visitors
		FROM visitors
		WHERE date = ?
		GROUP BY hour
		ORDER BY total_visitors DESC, hour ASC
		LIMIT ?
	`), date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query peak hours: %w", err)
	}
	defer rows.Close()

	hours := []models.HourCount{}
	for rows.Next() {
		var h models.HourCount
		if err := rows.Scan(&h.Hour, &h.Visitors); err != nil {
			return nil, fmt.Errorf("failed to scan peak hour: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// SectionPerformance summarizes every section seen on a date, ordered by name.
func (r *QueryRepository) SectionPerformance(date string) ([]models.SectionPerformance, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(r.db.Rebind(`
		SELECT s.section_name,
		       AVG(s.visitor_count),
		       MAX(s.visitor_count),
		       SUM(s.male_count),
		       SUM(s.female_count),
		       COALESCE((SELECT AVG(d.duration_seconds) FROM customer_dwell_time d
		                 WHERE d.date = ? AND d.section_name = s.section_name), 0)
		FROM section_analytics s
		WHERE s.date = ?
		GROUP BY s.section_name
		ORDER BY s.section_name
	`), date, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query section performance: %w", err)
	}
	defer rows.Close()

	sections := []models.SectionPerformance{}
	for rows.Next() {
		var s models.SectionPerformance
		if err := rows.Scan(&s.SectionName, &s.AvgVisitors, &s.PeakVisitors, &s.TotalMale, &s.TotalFemale, &s.AvgDwellSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan section performance: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// CurrentCashierStatus returns the newest cashier sample, or nil when none exist.
func (r *QueryRepository) CurrentCashierStatus() (*models.CashierRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var c models.CashierRecord
	err := r.db.Conn().QueryRow(`
		SELECT id, queue_length, estimated_wait_time, is_busy, estimated_transactions, timestamp, date, hour
		FROM cashier_analytics
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`).Scan(&c.ID, &c.QueueLength, &c.WaitSeconds, &c.IsBusy, &c.Transactions, &c.Timestamp, &c.Date, &c.Hour)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cashier status: %w", err)
	}
	return &c, nil
}

// CashierPerformance aggregates the cashier samples of a date. A busy period is
// one sample taken while the queue was over the busy threshold.
func (r *QueryRepository) CashierPerformance(date string) (*models.CashierPerformance, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	perf := &models.CashierPerformance{Date: date}
	err := r.db.Conn().QueryRow(r.db.Rebind(`
		SELECT COUNT(*),
		       COALESCE(MAX(estimated_transactions), 0),
		       COALESCE(AVG(queue_length), 0),
		       COALESCE(MAX(queue_length), 0),
		       COALESCE(SUM(CASE WHEN is_busy THEN 1 ELSE 0 END), 0)
		FROM cashier_analytics WHERE date = ?
	`), date).Scan(&perf.Records, &perf.Transactions, &perf.AvgQueueLength, &perf.MaxQueueLength, &perf.BusyPeriods)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize cashier performance: %w", err)
	}
	return perf, nil
}

// ConversionRate is transactions divided by visitors for a date, 0 without visitors.
func (r *QueryRepository) ConversionRate(date string) (float64, error) {
	summary, err := r.DailySummary(date)
	if err != nil {
		return 0, err
	}
	return summary.ConversionRate, nil
}

// DwellSummary returns dwell statistics per section for a date.
func (r *QueryRepository) DwellSummary(date string) ([]models.DwellStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(r.db.Rebind(`
		SELECT section_name, COUNT(*), AVG(duration_seconds), MAX(duration_seconds)
		FROM customer_dwell_time
		WHERE date = ?
		GROUP BY section_name
		ORDER BY section_name
	`), date)
	if err != nil {
		return nil, fmt.Errorf("failed to query dwell summary: %w", err)
	}
	defer rows.Close()

	stats := []models.DwellStats{}
	for rows.Next() {
		var s models.DwellStats
		if err := rows.Scan(&s.SectionName, &s.Sessions, &s.AvgSeconds, &s.MaxSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan dwell summary: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func conversion(transactions, visitors int) float64 {
	if visitors <= 0 {
		return 0
	}
	return float64(transactions) / float64(visitors)
}
