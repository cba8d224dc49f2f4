package dwell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailanalytics/internal/models"
)

var t0 = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

func person(track int) models.Detection {
	return models.Detection{Label: models.PersonLabel, TrackID: track, Confidence: 0.9}
}

func at(frame int) time.Time {
	return t0.Add(time.Duration(frame) * 100 * time.Millisecond)
}

func TestUpdate_IgnoresNonPersonsAndUntracked(t *testing.T) {
	tr := NewTracker("Electronics", 0, 0)

	tr.Update([]models.Detection{
		{Label: "chair", TrackID: 4},
		person(models.UntrackedID),
	}, t0)

	assert.Zero(t, tr.Active())
}

func TestUpdate_SessionClosesAfterDropout(t *testing.T) {
	tr := NewTracker("Electronics", 5*time.Second, 3*time.Second)

	// present frames 1..50 (4.9s), then absent
	for f := 1; f <= 50; f++ {
		assert.Empty(t, tr.Update([]models.Detection{person(1)}, at(f)))
	}

	var records []models.DwellRecord
	closedAt := 0
	for f := 51; f <= 200 && len(records) == 0; f++ {
		records = tr.Update(nil, at(f))
		closedAt = f
	}

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, 1, rec.TrackID)
	assert.Equal(t, "Electronics", rec.SectionName)
	assert.Equal(t, at(1), rec.EntryTime)
	assert.Equal(t, at(50), rec.ExitTime)
	assert.InDelta(t, 4.9, rec.Duration, 0.1)
	assert.NotEmpty(t, rec.SessionID)
	assert.Equal(t, "2025-06-15", rec.Date)
	assert.Equal(t, 14, rec.Hour)

	// closes on the first frame strictly past the dropout
	assert.Equal(t, 101, closedAt)
	assert.Zero(t, tr.Active())
}

func TestUpdate_NotClosedAtExactDropout(t *testing.T) {
	tr := NewTracker("A", 5*time.Second, time.Second)
	tr.Update([]models.Detection{person(7)}, t0)
	tr.Update([]models.Detection{person(7)}, t0.Add(2*time.Second))

	assert.Empty(t, tr.Update(nil, t0.Add(7*time.Second)))
	assert.Equal(t, 1, tr.Active())

	records := tr.Update(nil, t0.Add(7*time.Second+time.Millisecond))
	require.Len(t, records, 1)
	assert.InDelta(t, 2.0, records[0].Duration, 1e-9)
}

func TestUpdate_ShortSessionDiscarded(t *testing.T) {
	tr := NewTracker("A", 5*time.Second, 3*time.Second)

	for f := 1; f <= 10; f++ { // 0.9s of presence
		tr.Update([]models.Detection{person(2)}, at(f))
	}

	for f := 11; f <= 200; f++ {
		assert.Empty(t, tr.Update(nil, at(f)))
	}
	assert.Zero(t, tr.Active())
}

func TestUpdate_ExactMinDwellIsKept(t *testing.T) {
	tr := NewTracker("A", time.Second, 3*time.Second)
	tr.Update([]models.Detection{person(3)}, t0)
	tr.Update([]models.Detection{person(3)}, t0.Add(3*time.Second))

	records := tr.Update(nil, t0.Add(5*time.Second))
	require.Len(t, records, 1)
	assert.InDelta(t, 3.0, records[0].Duration, 1e-9)
}

func TestUpdate_BriefOcclusionKeepsSession(t *testing.T) {
	tr := NewTracker("A", 5*time.Second, 3*time.Second)

	var all []models.DwellRecord
	for f := 1; f <= 30; f++ {
		all = append(all, tr.Update([]models.Detection{person(9)}, at(f))...)
	}
	// occluded for 4s
	for f := 31; f <= 70; f++ {
		all = append(all, tr.Update(nil, at(f))...)
	}
	for f := 71; f <= 100; f++ {
		all = append(all, tr.Update([]models.Detection{person(9)}, at(f))...)
	}
	for f := 101; f <= 200; f++ {
		all = append(all, tr.Update(nil, at(f))...)
	}

	require.Len(t, all, 1, "one continuous session")
	assert.Equal(t, at(1), all[0].EntryTime)
	assert.Equal(t, at(100), all[0].ExitTime)
}

func TestUpdate_IndependentTracks(t *testing.T) {
	tr := NewTracker("A", time.Second, time.Second)

	tr.Update([]models.Detection{person(1), person(2)}, t0)
	tr.Update([]models.Detection{person(1), person(2)}, t0.Add(2*time.Second))
	tr.Update([]models.Detection{person(2)}, t0.Add(4*time.Second))

	assert.Equal(t, 1, tr.Active())

	records := tr.Update(nil, t0.Add(10*time.Second))
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].TrackID)
	assert.InDelta(t, 4.0, records[0].Duration, 1e-9)
}

func TestFlush_ClosesOpenSessions(t *testing.T) {
	tr := NewTracker("A", 5*time.Second, 3*time.Second)
	tr.Update([]models.Detection{person(1), person(2)}, t0)
	tr.Update([]models.Detection{person(2)}, t0.Add(time.Second))
	tr.Update([]models.Detection{person(1)}, t0.Add(4*time.Second))

	records := tr.Flush(t0.Add(4 * time.Second))

	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].TrackID)
	assert.Zero(t, tr.Active())
}
