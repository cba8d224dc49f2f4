// Package report builds dashboard views on top of the stored analytics.
package report

import (
	"fmt"
	"sort"
	"time"

	"retailanalytics/internal/models"
	"retailanalytics/internal/repository"
)

// UnderperformingFraction: sections below this share of the mean are reported.
const UnderperformingFraction = 0.3

// LiveSummary is the store status shown on the dashboard.
type LiveSummary struct {
	TotalVisitors   int       `json:"total_visitors"`
	QueueLength     int       `json:"current_queue_length"`
	IsCashierBusy   bool      `json:"is_cashier_busy"`
	WaitSeconds     float64   `json:"estimated_wait_time"`
	PeakHour        int       `json:"peak_hour"`
	BusiestSection  string    `json:"busiest_section"`
	ConversionRate  float64   `json:"conversion_rate"` // w procentach
	AvgDwellSeconds float64   `json:"avg_dwell_time_sec"`
	Timestamp       time.Time `json:"timestamp"`
}

// Aggregator combines querier results into report views.
type Aggregator struct {
	query repository.AnalyticsQuerier
	now   func() time.Time
}

func NewAggregator(query repository.AnalyticsQuerier, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{query: query, now: now}
}

// Live summarizes today.
func (a *Aggregator) Live() (*LiveSummary, error) {
	now := a.now()
	date := now.Format(models.DateLayout)

	summary, err := a.query.DailySummary(date)
	if err != nil {
		return nil, err
	}
	live := &LiveSummary{
		TotalVisitors:   summary.TotalVisitors,
		PeakHour:        now.Hour(),
		BusiestSection:  "N/A",
		ConversionRate:  percent(summary.ConversionRate),
		AvgDwellSeconds: summary.AvgDwellSeconds,
		Timestamp:       now,
	}

	status, err := a.query.CurrentCashierStatus()
	if err != nil {
		return nil, err
	}
	if status != nil {
		live.QueueLength = status.QueueLength
		live.IsCashierBusy = status.IsBusy
		live.WaitSeconds = status.WaitSeconds
	}

	hours, err := a.query.PeakHours(date, 1)
	if err != nil {
		return nil, err
	}
	if len(hours) > 0 {
		live.PeakHour = hours[0].Hour
	}

	sections, err := a.query.SectionPerformance(date)
	if err != nil {
		return nil, err
	}
	best := 0.0
	for _, s := range sections {
		if s.AvgVisitors > best {
			best = s.AvgVisitors
			live.BusiestSection = s.SectionName
		}
	}
	return live, nil
}

// Hourly returns visitor totals of every hour with samples, in hour order.
func (a *Aggregator) Hourly(date string) ([]models.HourCount, error) {
	hours, err := a.query.PeakHours(date, 24)
	if err != nil {
		return nil, err
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Hour < hours[j].Hour })
	return hours, nil
}

// Timeline returns the daily summaries of the last days (today included), oldest first.
func (a *Aggregator) Timeline(days int) ([]models.DailySummary, error) {
	if days < 1 || days > 30 {
		return nil, fmt.Errorf("days must be between 1 and 30, got %d", days)
	}

	now := a.now()
	timeline := make([]models.DailySummary, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(models.DateLayout)
		summary, err := a.query.DailySummary(date)
		if err != nil {
			return nil, err
		}
		timeline = append(timeline, *summary)
	}
	return timeline, nil
}

// Underperforming lists sections of a date whose average traffic is below
// UnderperformingFraction of the mean over all sections.
func (a *Aggregator) Underperforming(date string) ([]string, error) {
	sections, err := a.query.SectionPerformance(date)
	if err != nil {
		return nil, err
	}

	names := []string{}
	if len(sections) == 0 {
		return names, nil
	}

	total := 0.0
	for _, s := range sections {
		total += s.AvgVisitors
	}
	threshold := total / float64(len(sections)) * UnderperformingFraction

	for _, s := range sections {
		if s.AvgVisitors < threshold {
			names = append(names, s.SectionName)
		}
	}
	return names, nil
}

// ConversionPercent is the conversion rate of a date in percent, two decimals.
func (a *Aggregator) ConversionPercent(date string) (float64, error) {
	rate, err := a.query.ConversionRate(date)
	if err != nil {
		return 0, err
	}
	return percent(rate), nil
}

func percent(rate float64) float64 {
	return float64(int64(rate*10000+0.5)) / 100
}
