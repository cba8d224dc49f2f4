// Package dwell turns per-frame person tracks into finished dwell sessions.
package dwell

import (
	"time"

	"retailanalytics/internal/models"

	"github.com/google/uuid"
)

const (
	// DefaultDropout is how long a track may be unseen before its session closes.
	DefaultDropout = 5 * time.Second
	// DefaultMinDwell is the shortest session that is reported.
	DefaultMinDwell = 3 * time.Second
)

type session struct {
	id       string
	entry    time.Time
	lastSeen time.Time
}

// Tracker keeps one session per track id for a single section source.
// It is owned by that source's processing loop and is not safe for concurrent use.
type Tracker struct {
	section  string
	dropout  time.Duration
	minDwell time.Duration
	sessions map[int]*session
}

// NewTracker creates a tracker for a section. Non-positive durations fall back to defaults.
func NewTracker(section string, dropout, minDwell time.Duration) *Tracker {
	if dropout <= 0 {
		dropout = DefaultDropout
	}
	if minDwell <= 0 {
		minDwell = DefaultMinDwell
	}
	return &Tracker{
		section:  section,
		dropout:  dropout,
		minDwell: minDwell,
		sessions: make(map[int]*session),
	}
}

// Active returns the number of open sessions.
func (t *Tracker) Active() int { return len(t.sessions) }

// Update opens or refreshes sessions for tracked persons in the frame and closes
// sessions whose track has been absent for longer than the dropout. Closed
// sessions at least minDwell long are returned; shorter ones are discarded.
func (t *Tracker) Update(detections []models.Detection, now time.Time) []models.DwellRecord {
	seen := make(map[int]struct{}, len(detections))

	for _, d := range detections {
		if !d.IsPerson() || d.TrackID == models.UntrackedID {
			continue
		}
		seen[d.TrackID] = struct{}{}

		if s, ok := t.sessions[d.TrackID]; ok {
			s.lastSeen = now
			continue
		}
		t.sessions[d.TrackID] = &session{id: uuid.NewString(), entry: now, lastSeen: now}
	}

	var closed []models.DwellRecord
	for id, s := range t.sessions {
		if _, ok := seen[id]; ok {
			continue
		}
		if now.Sub(s.lastSeen) <= t.dropout {
			continue
		}
		if rec, ok := t.finalize(id, s, now); ok {
			closed = append(closed, rec)
		}
		delete(t.sessions, id)
	}
	return closed
}

// Flush closes every open session, e.g. when the source stops.
func (t *Tracker) Flush(now time.Time) []models.DwellRecord {
	var closed []models.DwellRecord
	for id, s := range t.sessions {
		if rec, ok := t.finalize(id, s, now); ok {
			closed = append(closed, rec)
		}
		delete(t.sessions, id)
	}
	return closed
}

func (t *Tracker) finalize(trackID int, s *session, now time.Time) (models.DwellRecord, bool) {
	duration := s.lastSeen.Sub(s.entry)
	if duration < t.minDwell {
		return models.DwellRecord{}, false
	}

	date, hour := models.Bucket(now)
	return models.DwellRecord{
		SessionID:   s.id,
		TrackID:     trackID,
		SectionName: t.section,
		EntryTime:   s.entry,
		ExitTime:    s.lastSeen,
		Duration:    duration.Seconds(),
		Date:        date,
		Hour:        hour,
	}, true
}
