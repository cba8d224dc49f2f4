package repository

import (
	"retailanalytics/internal/models"
)

// AnalyticsSink receives analytics rows from the processing loops.
// Implementations must be safe for concurrent use by several loops.
type AnalyticsSink interface {
	InsertVisitor(rec *models.VisitorRecord) error
	InsertSection(rec *models.SectionRecord) error
	InsertCashier(rec *models.CashierRecord) error
	InsertDwell(rec *models.DwellRecord) error
}

// AnalyticsQuerier defines the historical reads behind the analytics API.
type AnalyticsQuerier interface {
	TotalVisitors(date string) (int, error)
	DailySummary(date string) (*models.DailySummary, error)
	PeakHours(date string, limit int) ([]models.HourCount, error)
	SectionPerformance(date string) ([]models.SectionPerformance, error)
	CurrentCashierStatus() (*models.CashierRecord, error)
	CashierPerformance(date string) (*models.CashierPerformance, error)
	ConversionRate(date string) (float64, error)
	DwellSummary(date string) ([]models.DwellStats, error)
}
