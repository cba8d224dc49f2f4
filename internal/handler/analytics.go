package handler

import (
	"net/http"
	"strings"
	"time"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/repository"
	"retailanalytics/internal/service/report"
)

// analyticsResponse is the envelope of every /api/analytics reply.
type analyticsResponse struct {
	Success bool   `json:"success"`
	Date    string `json:"date,omitempty"`
	Days    int    `json:"days,omitempty"`
	Data    any    `json:"data"`
}

// AnalyticsHandler serves the historical views under /api/analytics/:
// live, summary, hourly, peak-hours, sections, cashier, dwell, timeline,
// underperforming and conversion-rate. Date-scoped views take ?date=YYYY-MM-DD
// and default to today.
func AnalyticsHandler(query repository.AnalyticsQuerier, aggregator *report.Aggregator, now func() time.Time, logger *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}

		view := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/analytics"), "/")

		date, ok := parseDate(r.URL.Query().Get("date"), now)
		if !ok {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		resp := analyticsResponse{Success: true, Date: date}
		var err error

		switch view {
		case "live":
			resp.Date = ""
			resp.Data, err = aggregator.Live()
		case "summary":
			resp.Data, err = query.DailySummary(date)
		case "hourly":
			resp.Data, err = aggregator.Hourly(date)
		case "peak-hours":
			resp.Data, err = query.PeakHours(date, atoiDefault(r.URL.Query().Get("limit"), 5))
		case "sections":
			resp.Data, err = query.SectionPerformance(date)
		case "cashier":
			resp.Data, err = cashierView(query, date)
		case "dwell":
			resp.Data, err = query.DwellSummary(date)
		case "timeline":
			resp.Date = ""
			resp.Days = atoiDefault(r.URL.Query().Get("days"), 7)
			if resp.Days > 30 {
				http.Error(w, "days must be between 1 and 30", http.StatusBadRequest)
				return
			}
			resp.Data, err = aggregator.Timeline(resp.Days)
		case "underperforming":
			resp.Data, err = aggregator.Underperforming(date)
		case "conversion-rate":
			resp.Data, err = aggregator.ConversionPercent(date)
		default:
			http.NotFound(w, r)
			return
		}

		if err != nil {
			logger.Error("Analytics view %s failed: %v", view, err)
			writeJSON(w, logger, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}

func cashierView(query repository.AnalyticsQuerier, date string) (any, error) {
	perf, err := query.CashierPerformance(date)
	if err != nil {
		return nil, err
	}
	current, err := query.CurrentCashierStatus()
	if err != nil {
		return nil, err
	}
	return map[string]any{"performance": perf, "current": current}, nil
}
