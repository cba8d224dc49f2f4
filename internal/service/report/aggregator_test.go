package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailanalytics/internal/models"
)

type stubQuerier struct {
	summaries map[string]models.DailySummary
	hours     []models.HourCount
	sections  []models.SectionPerformance
	cashier   *models.CashierRecord
	rate      float64
	err       error
	limits    []int
}

func (s *stubQuerier) TotalVisitors(date string) (int, error) {
	return s.summaries[date].TotalVisitors, s.err
}

func (s *stubQuerier) DailySummary(date string) (*models.DailySummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	summary := s.summaries[date]
	summary.Date = date
	return &summary, nil
}

func (s *stubQuerier) PeakHours(date string, limit int) ([]models.HourCount, error) {
	s.limits = append(s.limits, limit)
	hours := append([]models.HourCount(nil), s.hours...)
	if len(hours) > limit {
		hours = hours[:limit]
	}
	return hours, s.err
}

func (s *stubQuerier) SectionPerformance(date string) ([]models.SectionPerformance, error) {
	return s.sections, s.err
}

func (s *stubQuerier) CurrentCashierStatus() (*models.CashierRecord, error) {
	return s.cashier, s.err
}

func (s *stubQuerier) CashierPerformance(date string) (*models.CashierPerformance, error) {
	return &models.CashierPerformance{Date: date}, s.err
}

func (s *stubQuerier) ConversionRate(date string) (float64, error) {
	return s.rate, s.err
}

func (s *stubQuerier) DwellSummary(date string) ([]models.DwellStats, error) {
	return nil, s.err
}

var fixedNow = time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestLive(t *testing.T) {
	q := &stubQuerier{
		summaries: map[string]models.DailySummary{
			"2025-06-15": {TotalVisitors: 40, ConversionRate: 0.125, AvgDwellSeconds: 42.5},
		},
		hours: []models.HourCount{{Hour: 11, Visitors: 20}, {Hour: 9, Visitors: 5}},
		sections: []models.SectionPerformance{
			{SectionName: "Grocery", AvgVisitors: 2},
			{SectionName: "Electronics", AvgVisitors: 6},
		},
		cashier: &models.CashierRecord{QueueLength: 4, IsBusy: true, WaitSeconds: 480},
	}

	live, err := NewAggregator(q, clock).Live()
	require.NoError(t, err)

	assert.Equal(t, 40, live.TotalVisitors)
	assert.Equal(t, 11, live.PeakHour)
	assert.Equal(t, "Electronics", live.BusiestSection)
	assert.Equal(t, 12.5, live.ConversionRate)
	assert.Equal(t, 4, live.QueueLength)
	assert.True(t, live.IsCashierBusy)
	assert.Equal(t, 480.0, live.WaitSeconds)
	assert.Equal(t, fixedNow, live.Timestamp)
}

func TestLive_EmptyStore(t *testing.T) {
	live, err := NewAggregator(&stubQuerier{}, clock).Live()
	require.NoError(t, err)

	assert.Equal(t, 13, live.PeakHour, "falls back to the current hour")
	assert.Equal(t, "N/A", live.BusiestSection)
	assert.Zero(t, live.QueueLength)
}

func TestLive_PropagatesErrors(t *testing.T) {
	_, err := NewAggregator(&stubQuerier{err: errors.New("db down")}, clock).Live()
	assert.Error(t, err)
}

func TestHourly_SortedByHour(t *testing.T) {
	q := &stubQuerier{hours: []models.HourCount{{Hour: 14, Visitors: 9}, {Hour: 9, Visitors: 3}, {Hour: 10, Visitors: 10}}}

	hours, err := NewAggregator(q, clock).Hourly("2025-06-15")
	require.NoError(t, err)

	assert.Equal(t, []int{24}, q.limits)
	require.Len(t, hours, 3)
	assert.Equal(t, 9, hours[0].Hour)
	assert.Equal(t, 14, hours[2].Hour)
}

func TestTimeline_OldestFirst(t *testing.T) {
	q := &stubQuerier{summaries: map[string]models.DailySummary{
		"2025-06-13": {TotalVisitors: 1},
		"2025-06-15": {TotalVisitors: 3},
	}}

	timeline, err := NewAggregator(q, clock).Timeline(3)
	require.NoError(t, err)

	require.Len(t, timeline, 3)
	assert.Equal(t, "2025-06-13", timeline[0].Date)
	assert.Equal(t, 1, timeline[0].TotalVisitors)
	assert.Equal(t, "2025-06-14", timeline[1].Date)
	assert.Zero(t, timeline[1].TotalVisitors)
	assert.Equal(t, "2025-06-15", timeline[2].Date)
}

func TestTimeline_RejectsRange(t *testing.T) {
	a := NewAggregator(&stubQuerier{}, clock)
	_, err := a.Timeline(0)
	assert.Error(t, err)
	_, err = a.Timeline(31)
	assert.Error(t, err)
}

func TestUnderperforming(t *testing.T) {
	q := &stubQuerier{sections: []models.SectionPerformance{
		{SectionName: "Electronics", AvgVisitors: 10},
		{SectionName: "Grocery", AvgVisitors: 9},
		{SectionName: "Garden", AvgVisitors: 2},
	}}

	// średnia 7, próg 2.1
	names, err := NewAggregator(q, clock).Underperforming("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"Garden"}, names)
}

func TestUnderperforming_NoSections(t *testing.T) {
	names, err := NewAggregator(&stubQuerier{}, clock).Underperforming("2025-06-15")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestConversionPercent(t *testing.T) {
	pct, err := NewAggregator(&stubQuerier{rate: 0.23456}, clock).ConversionPercent("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, 23.46, pct)
}
