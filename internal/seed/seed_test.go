package seed

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailanalytics/internal/repository/store"
)

func TestGenerate_FillsStore(t *testing.T) {
	db, err := store.New(store.DriverSQLite, filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer db.Close()

	// sobota
	now := time.Date(2025, 6, 14, 15, 0, 0, 0, time.UTC)
	counts, err := Generate(store.NewAnalyticsRepository(db), now, 2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 24, counts.Visitors)
	assert.Equal(t, 24, counts.Cashier)
	assert.Equal(t, 24*len(Sections), counts.Sections)

	query := store.NewQueryRepository(db)
	for _, date := range []string{"2025-06-13", "2025-06-14"} {
		summary, err := query.DailySummary(date)
		require.NoError(t, err)
		assert.Greater(t, summary.TotalVisitors, 12*10-1, date)
		assert.Greater(t, summary.Transactions, 0, date)
		assert.Greater(t, summary.ConversionRate, 0.0, date)
		assert.LessOrEqual(t, summary.ConversionRate, 1.0, date)
	}

	hours, err := query.PeakHours("2025-06-14", 24)
	require.NoError(t, err)
	assert.Len(t, hours, 12)

	sections, err := query.SectionPerformance("2025-06-14")
	require.NoError(t, err)
	assert.Len(t, sections, len(Sections))
}

func TestGenerate_RejectsDays(t *testing.T) {
	_, err := Generate(nil, time.Now(), 0, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
