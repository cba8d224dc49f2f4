package pipeline

import (
	"context"
	"time"

	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
)

// heatAlpha is the blend weight of the heatmap overlay.
const heatAlpha = 0.4

// run is the processing loop of one source. It checks for cancellation once per
// frame; a frame that has been read is always processed to the end.
func (p *VideoProcessor) run(ctx context.Context, e *sourceEntry, done chan struct{}) {
	defer close(done)

	log := p.logger.With("source", e.spec.Name)
	saveInterval := p.config.SaveInterval
	if saveInterval <= 0 {
		saveInterval = 30
	}

	frameCount := 0
	for ctx.Err() == nil {
		frame, ok := e.source.Read()
		if !ok {
			if e.spec.Kind != models.KindVideo {
				log.Warning("Failed to read frame from %s, stopping", e.spec.Name)
				break
			}
			// plik się skończył - od początku
			if err := e.source.Rewind(); err != nil {
				log.Error("Failed to rewind %s: %v", e.spec.Name, err)
				break
			}
			if r, ok := e.detector.(TrackResetter); ok {
				r.ResetTracks()
			}
			if !sleep(ctx, p.config.FrameInterval) {
				break
			}
			continue
		}

		frameCount++
		rec := p.processFrame(e, frame, log)
		frame.Close()

		if frameCount%saveInterval == 0 {
			p.persist(e.spec, rec, log)
		}

		if !sleep(ctx, p.config.FrameInterval) {
			break
		}
	}

	now := p.deps.Now()
	e.mu.Lock()
	records := e.dwell.Flush(now)
	e.mu.Unlock()
	p.persistDwell(records, log)

	log.Info("Processing loop of %s finished after %d frames", e.spec.Name, frameCount)
}

// sleep waits d or until ctx is done; it reports whether the loop should go on.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// processFrame runs detection and the analytics stages on one frame, publishes
// the annotated frame and returns the analytics record.
func (p *VideoProcessor) processFrame(e *sourceEntry, frame Frame, log *logger.Logger) models.AnalyticsRecord {
	detections, err := e.detector.Detect(frame)
	switch {
	case err != nil:
		// ten sam błąd co klatkę logujemy raz
		if msg := err.Error(); msg != e.detectErr {
			log.Error("Detection failed on %s: %v", e.spec.Name, err)
			e.detectErr = msg
		}
		detections = nil
	case e.detectErr != "":
		log.Info("Detection recovered on %s", e.spec.Name)
		e.detectErr = ""
	}

	boxes := models.PersonBoxes(detections)

	var gender models.GenderCount
	if p.deps.Gender != nil && len(boxes) > 0 {
		if gender, err = p.deps.Gender.Classify(frame, boxes); err != nil {
			log.Error("Gender classification failed on %s: %v", e.spec.Name, err)
			gender = models.GenderCount{}
		}
	}

	now := p.deps.Now()
	date, hour := models.Bucket(now)
	rec := models.AnalyticsRecord{
		SourceName:   e.spec.Name,
		Role:         e.spec.Role,
		Count:        len(boxes),
		ObjectCounts: countObjects(detections),
		Gender:       gender,
		Timestamp:    now,
		Date:         date,
		Hour:         hour,
		Detections:   detections,
	}

	annotation := Annotation{Detections: detections, People: len(boxes)}

	e.mu.Lock()
	e.heatmap.Update(models.Centers(boxes))
	rec.HeatmapZones = e.heatmap.ZoneDensities(p.config.HeatmapZones)
	if e.queue != nil {
		// licznik transakcji jest dzienny
		if e.day != "" && e.day != date {
			e.queue.ResetTransactions()
		}
		e.day = date
		length := e.queue.DetectQueue(boxes)
		qa := e.queue.Analytics(length)
		rec.Queue = &qa
		annotation.ROI = e.queue.ROI()
	}
	if p.config.HeatmapOverlay {
		annotation.Heat = e.heatmap.Normalized()
		annotation.HeatWidth, annotation.HeatHeight = e.heatmap.Size()
		annotation.HeatAlpha = heatAlpha
	}
	closed := e.dwell.Update(detections, now)
	e.frames++
	last := rec
	e.last = &last
	e.mu.Unlock()

	p.persistDwell(closed, log)

	if p.deps.Renderer != nil {
		encoded, err := p.deps.Renderer.Render(frame, annotation)
		if err != nil {
			log.Error("Failed to render frame of %s: %v", e.spec.Name, err)
		} else {
			p.deps.Publisher.Publish(e.spec.Name, encoded)
		}
	}

	return rec
}

func countObjects(detections []models.Detection) map[string]int {
	counts := make(map[string]int)
	for _, d := range detections {
		counts[d.Label]++
	}
	return counts
}

// persist writes the record as the row type of the source role. Failures are
// logged and the sample is dropped.
func (p *VideoProcessor) persist(spec models.SourceSpec, rec models.AnalyticsRecord, log *logger.Logger) {
	if p.deps.Sink == nil {
		return
	}

	var err error
	switch spec.Role {
	case models.RoleEntrance:
		err = p.deps.Sink.InsertVisitor(&models.VisitorRecord{
			Count:     rec.Count,
			Timestamp: rec.Timestamp,
			Date:      rec.Date,
			Hour:      rec.Hour,
		})
	case models.RoleSection:
		err = p.deps.Sink.InsertSection(&models.SectionRecord{
			SectionName:  spec.Name,
			Count:        rec.Count,
			Male:         rec.Gender.Male,
			Female:       rec.Gender.Female,
			HeatmapZones: rec.HeatmapZones,
			ObjectCounts: rec.ObjectCounts,
			Timestamp:    rec.Timestamp,
			Date:         rec.Date,
			Hour:         rec.Hour,
		})
	case models.RoleCashier:
		if rec.Queue == nil {
			return
		}
		err = p.deps.Sink.InsertCashier(&models.CashierRecord{
			QueueLength:  rec.Queue.CurrentLength,
			WaitSeconds:  rec.Queue.EstimatedWaitSeconds,
			IsBusy:       rec.Queue.IsBusy,
			Transactions: rec.Queue.EstimatedTransactions,
			Timestamp:    rec.Timestamp,
			Date:         rec.Date,
			Hour:         rec.Hour,
		})
	}
	if err != nil {
		log.Error("Failed to persist %s analytics of %s: %v", spec.Role, spec.Name, err)
	}
}

func (p *VideoProcessor) persistDwell(records []models.DwellRecord, log *logger.Logger) {
	if p.deps.Sink == nil {
		return
	}
	for i := range records {
		if err := p.deps.Sink.InsertDwell(&records[i]); err != nil {
			log.Error("Failed to persist dwell session %s: %v", records[i].SessionID, err)
		}
	}
}
