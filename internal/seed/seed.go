// Package seed generates demo analytics for an empty store.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"retailanalytics/internal/models"
	"retailanalytics/internal/repository"

	"github.com/google/uuid"
)

var (
	Sections = []string{"Men's Clothing", "Women's Clothing", "Electronics", "Home & Garden", "Sports"}
	objects  = []string{"cell phone", "handbag", "backpack", "suitcase", "chair"}
)

const (
	openHour  = 9
	closeHour = 21 // bez tej godziny
)

// Counts reports how many rows of each kind were written.
type Counts struct {
	Visitors int
	Sections int
	Cashier  int
	Dwell    int
}

// Generate writes one sample per store hour (9:00-20:00) for the last days
// (today included): visitors, every section, the cashier and a few finished
// dwell sessions per section. Weekends and 17-19 h are busier.
func Generate(sink repository.AnalyticsSink, now time.Time, days int, rng *rand.Rand) (Counts, error) {
	var c Counts
	if days < 1 {
		return c, fmt.Errorf("days must be positive, got %d", days)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for d := days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		date, _ := models.Bucket(day)
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday
		transactions := 0

		for hour := openHour; hour < closeHour; hour++ {
			ts := day.Add(time.Duration(hour) * time.Hour)

			visitors := 10 + rng.Intn(21)
			if weekend {
				visitors = 20 + rng.Intn(31)
			}
			if hour >= 17 && hour <= 19 {
				visitors = visitors * 3 / 2
			}
			if err := sink.InsertVisitor(&models.VisitorRecord{Count: visitors, Timestamp: ts, Date: date, Hour: hour}); err != nil {
				return c, err
			}
			c.Visitors++

			for _, section := range Sections {
				rec := sectionSample(section, visitors, rng)
				rec.Timestamp, rec.Date, rec.Hour = ts, date, hour
				if err := sink.InsertSection(&rec); err != nil {
					return c, err
				}
				c.Sections++

				for i := rng.Intn(3); i > 0; i-- {
					dwell := dwellSample(section, ts, rng)
					if err := sink.InsertDwell(&dwell); err != nil {
						return c, err
					}
					c.Dwell++
				}
			}

			// licznik transakcji rośnie w ciągu dnia
			transactions += int(float64(visitors) * (0.3 + rng.Float64()*0.4))
			queue := rng.Intn(9)
			if err := sink.InsertCashier(&models.CashierRecord{
				QueueLength:  queue,
				WaitSeconds:  float64(queue) * (90 + rng.Float64()*90),
				IsBusy:       queue > 4,
				Transactions: transactions,
				Timestamp:    ts,
				Date:         date,
				Hour:         hour,
			}); err != nil {
				return c, err
			}
			c.Cashier++
		}
	}
	return c, nil
}

func sectionSample(section string, visitors int, rng *rand.Rand) models.SectionRecord {
	count := int(float64(visitors) * (0.1 + rng.Float64()*0.3))
	male := int(float64(count) * (0.4 + rng.Float64()*0.2))

	counts := map[string]int{models.PersonLabel: count}
	for _, i := range rng.Perm(len(objects))[:2] {
		counts[objects[i]] = rng.Intn(6)
	}

	zones := make(map[string]int, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			zones[fmt.Sprintf("zone_%d_%d", i, j)] = rng.Intn(100)
		}
	}

	return models.SectionRecord{
		SectionName:  section,
		Count:        count,
		Male:         male,
		Female:       count - male,
		HeatmapZones: zones,
		ObjectCounts: counts,
	}
}

func dwellSample(section string, hourStart time.Time, rng *rand.Rand) models.DwellRecord {
	entry := hourStart.Add(time.Duration(rng.Intn(3000)) * time.Second)
	duration := 5 + rng.Float64()*300
	exit := entry.Add(time.Duration(duration * float64(time.Second)))
	date, hour := models.Bucket(exit)

	return models.DwellRecord{
		SessionID:   uuid.NewString(),
		TrackID:     1 + rng.Intn(500),
		SectionName: section,
		EntryTime:   entry,
		ExitTime:    exit,
		Duration:    duration,
		Date:        date,
		Hour:        hour,
	}
}
