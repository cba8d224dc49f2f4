package repository

import (
	"errors"

	"retailanalytics/internal/models"
)

// FanOut forwards every row to each sink in order. A failing sink does not stop
// the others; their errors are joined.
type FanOut []AnalyticsSink

func (f FanOut) InsertVisitor(rec *models.VisitorRecord) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.InsertVisitor(rec))
	}
	return errors.Join(errs...)
}

func (f FanOut) InsertSection(rec *models.SectionRecord) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.InsertSection(rec))
	}
	return errors.Join(errs...)
}

func (f FanOut) InsertCashier(rec *models.CashierRecord) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.InsertCashier(rec))
	}
	return errors.Join(errs...)
}

func (f FanOut) InsertDwell(rec *models.DwellRecord) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.InsertDwell(rec))
	}
	return errors.Join(errs...)
}
