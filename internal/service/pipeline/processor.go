// Package pipeline runs one processing loop per video source and keeps the source registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"retailanalytics/internal/config"
	"retailanalytics/internal/logger"
	"retailanalytics/internal/models"
	"retailanalytics/internal/repository"
	"retailanalytics/internal/service/analytics/dwell"
	"retailanalytics/internal/service/analytics/heatmap"
	"retailanalytics/internal/service/analytics/queue"
	"retailanalytics/internal/service/stream"
)

// Deps are the collaborators of the VideoProcessor. Gender and Renderer are optional.
type Deps struct {
	Open      Opener
	Detectors DetectorFactory
	Gender    GenderClassifier
	Renderer  Renderer
	Sink      repository.AnalyticsSink
	Publisher *stream.FramePublisher
	Now       func() time.Time
}

// sourceEntry is one registered source with the analytics state owned by its loop.
type sourceEntry struct {
	spec          models.SourceSpec
	source        Source
	detector      Detector
	width, height int
	detectErr     string // last logged detection error, loop only

	// mu guards the analytics state against readers outside the loop
	mu      sync.Mutex
	heatmap *heatmap.Accumulator
	queue   *queue.Estimator // cashier only
	day     string           // date of the last cashier sample
	dwell   *dwell.Tracker
	last    *models.AnalyticsRecord
	frames  int64

	cancel context.CancelFunc
	done   chan struct{}
}

// release stops the source and closes the detector once the loop is gone.
// A loop that did not stop in time releases them when it exits.
func (e *sourceEntry) release() {
	free := func() {
		e.source.Stop()
		if c, ok := e.detector.(io.Closer); ok {
			c.Close()
		}
	}
	if !e.running() {
		free()
		return
	}
	go func(done <-chan struct{}) {
		<-done
		free()
	}(e.done)
}

func (e *sourceEntry) running() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// VideoProcessor owns the source registry and the per-source processing loops.
type VideoProcessor struct {
	deps   Deps
	config *config.Config
	logger *logger.Logger

	sources map[string]*sourceEntry
	mutex   sync.Mutex
}

func NewVideoProcessor(deps Deps, config *config.Config, logger *logger.Logger) *VideoProcessor {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = stream.NewFramePublisher()
	}
	return &VideoProcessor{
		deps:    deps,
		config:  config,
		logger:  logger,
		sources: make(map[string]*sourceEntry),
	}
}

// Publisher returns the frame publisher the loops write to.
func (p *VideoProcessor) Publisher() *stream.FramePublisher {
	return p.deps.Publisher
}

// AddSource opens a source and allocates its analytics state. A source that
// fails to open is not registered; the error wraps ErrSourceOpen.
func (p *VideoProcessor) AddSource(spec models.SourceSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if !spec.Role.IsValid() {
		return fmt.Errorf("source %s: unknown role %q", spec.Name, spec.Role)
	}

	p.mutex.Lock()
	_, exists := p.sources[spec.Name]
	p.mutex.Unlock()
	if exists {
		return fmt.Errorf("%w: %s", ErrSourceExists, spec.Name)
	}

	src, err := p.deps.Open(spec)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrSourceOpen, spec.Name, err)
	}
	if err := src.Start(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrSourceOpen, spec.Name, err)
	}

	entry, err := p.newEntry(spec, src)
	if err != nil {
		src.Stop()
		return err
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()
	if _, exists := p.sources[spec.Name]; exists {
		entry.release()
		return fmt.Errorf("%w: %s", ErrSourceExists, spec.Name)
	}
	p.sources[spec.Name] = entry

	p.logger.Info("Added source %s (%s, %s) %dx%d", spec.Name, spec.Kind, spec.Role, entry.width, entry.height)
	return nil
}

func (p *VideoProcessor) newEntry(spec models.SourceSpec, src Source) (*sourceEntry, error) {
	width, height := src.FrameSize()

	hm, err := heatmap.New(width, height, p.config.HeatmapDecay, p.config.HeatmapRadius)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", spec.Name, err)
	}

	detector, err := p.deps.Detectors(spec.Name)
	if err != nil {
		return nil, fmt.Errorf("source %s: failed to create detector: %w", spec.Name, err)
	}

	entry := &sourceEntry{
		spec:     spec,
		source:   src,
		detector: detector,
		width:    width,
		height:   height,
		heatmap:  hm,
		dwell:    dwell.NewTracker(spec.Name, p.config.DwellDropout, p.config.MinDwell),
	}

	if spec.Role == models.RoleCashier {
		roi := RelativeROI(p.config.CashierROI, width, height)
		entry.queue = queue.NewEstimator(queue.Options{
			ROI:           &roi,
			ServiceTime:   p.config.AvgServiceTime,
			BusyThreshold: p.config.BusyThreshold,
			HistorySize:   p.config.QueueHistory,
			Now:           p.deps.Now,
		})
	}

	return entry, nil
}

// RelativeROI turns x1,y1,x2,y2 fractions into a pixel box of a frame.
func RelativeROI(fractions [4]float64, width, height int) models.BBox {
	return models.BBox{
		X1: int(fractions[0] * float64(width)),
		Y1: int(fractions[1] * float64(height)),
		X2: int(fractions[2] * float64(width)),
		Y2: int(fractions[3] * float64(height)),
	}
}

func (p *VideoProcessor) lookup(name string) (*sourceEntry, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	entry, ok := p.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return entry, nil
}

// RemoveSource stops the loop of a source, releases it and forgets its state.
func (p *VideoProcessor) RemoveSource(name string) error {
	if _, err := p.lookup(name); err != nil {
		return err
	}

	stopErr := p.StopProcessing(name)

	p.mutex.Lock()
	entry, ok := p.sources[name]
	delete(p.sources, name)
	p.mutex.Unlock()

	if ok {
		entry.release()
	}
	p.deps.Publisher.Remove(name)
	p.logger.Info("Removed source %s", name)
	return stopErr
}

// StartProcessing spawns the processing loop of a source.
func (p *VideoProcessor) StartProcessing(name string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	entry, ok := p.sources[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	if entry.running() {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry.cancel = cancel
	entry.done = make(chan struct{})

	go p.run(ctx, entry, entry.done)

	p.logger.Info("Started processing %s", name)
	return nil
}

// StopProcessing signals the loop of a source and waits for it up to the stop timeout.
// Stopping a source that is not processing is a no-op.
func (p *VideoProcessor) StopProcessing(name string) error {
	p.mutex.Lock()
	entry, ok := p.sources[name]
	if !ok {
		p.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	// done zostaje, dopóki pętla faktycznie nie wyjdzie
	cancel, done := entry.cancel, entry.done
	entry.cancel = nil
	p.mutex.Unlock()

	if done == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	timeout := p.config.StopTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	select {
	case <-done:
		p.logger.Info("Stopped processing %s", name)
		return nil
	case <-time.After(timeout):
		p.logger.Warning("Processing loop of %s did not stop within %s", name, timeout)
		return fmt.Errorf("%w: %s", ErrStopTimeout, name)
	}
}

// StopAll halts every loop and releases every source. It is safe to call more
// than once and with sources whose loop never started.
func (p *VideoProcessor) StopAll() error {
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs []error

	for _, name := range p.names() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := p.StopProcessing(name); err != nil && !errors.Is(err, ErrSourceNotFound) {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}(name)
	}
	wg.Wait()

	p.mutex.Lock()
	entries := p.sources
	p.sources = make(map[string]*sourceEntry)
	p.mutex.Unlock()

	for name, entry := range entries {
		entry.release()
		p.deps.Publisher.Remove(name)
	}
	if len(entries) > 0 {
		p.logger.Info("Stopped %d source(s)", len(entries))
	}
	return errors.Join(errs...)
}

func (p *VideoProcessor) names() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	names := make([]string, 0, len(p.sources))
	for name := range p.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LatestFrame returns the last published frame of a source.
func (p *VideoProcessor) LatestFrame(name string) ([]byte, bool) {
	return p.deps.Publisher.Latest(name)
}

// LatestRecord returns the analytics record of the last processed frame.
func (p *VideoProcessor) LatestRecord(name string) (*models.AnalyticsRecord, error) {
	entry, err := p.lookup(name)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.last == nil {
		return nil, nil
	}
	rec := *entry.last
	return &rec, nil
}

// Sources lists the registered sources, sorted by name.
func (p *VideoProcessor) Sources() []models.SourceInfo {
	p.mutex.Lock()
	entries := make([]*sourceEntry, 0, len(p.sources))
	running := make(map[*sourceEntry]bool, len(p.sources))
	for _, e := range p.sources {
		entries = append(entries, e)
		running[e] = e.running()
	}
	p.mutex.Unlock()

	infos := make([]models.SourceInfo, 0, len(entries))
	for _, e := range entries {
		info := models.SourceInfo{
			Name:       e.spec.Name,
			Origin:     e.spec.Origin,
			Kind:       e.spec.Kind,
			Role:       e.spec.Role,
			Width:      e.width,
			Height:     e.height,
			Processing: running[e],
		}
		e.mu.Lock()
		info.Frames = e.frames
		if e.last != nil {
			info.People = e.last.Count
		}
		e.mu.Unlock()
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Stats aggregates the latest records of all sources.
type Stats struct {
	Sources       []models.SourceInfo    `json:"sources"`
	ActiveSources int                    `json:"active_sources"`
	TotalPeople   int                    `json:"total_people"`
	Gender        models.GenderCount     `json:"gender"`
	Queue         *models.QueueAnalytics `json:"queue,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Stats returns cross-source statistics.
func (p *VideoProcessor) Stats() Stats {
	stats := Stats{Sources: p.Sources(), Timestamp: p.deps.Now()}

	for _, info := range stats.Sources {
		if info.Processing {
			stats.ActiveSources++
		}
		stats.TotalPeople += info.People

		rec, err := p.LatestRecord(info.Name)
		if err != nil || rec == nil {
			continue
		}
		stats.Gender.Male += rec.Gender.Male
		stats.Gender.Female += rec.Gender.Female
		if rec.Queue != nil && stats.Queue == nil {
			q := *rec.Queue
			stats.Queue = &q
		}
	}
	return stats
}

// HeatmapView is a read-only snapshot of a source's heatmap.
type HeatmapView struct {
	Source   string         `json:"source"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Zones    map[string]int `json:"zones"`
	Hotspots []models.Point `json:"hotspots"`
}

// Heatmap returns zone densities and the hottest maxHotspots hotspots of a
// source. maxHotspots <= 0 returns all.
func (p *VideoProcessor) Heatmap(name string, threshold float64, maxHotspots int) (*HeatmapView, error) {
	entry, err := p.lookup(name)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	zones := entry.heatmap.ZoneDensities(p.config.HeatmapZones)
	hot := entry.heatmap.Hotspots(threshold) // najgorętsze pierwsze
	entry.mu.Unlock()

	if hot == nil {
		hot = []models.Point{}
	}
	if maxHotspots > 0 && len(hot) > maxHotspots {
		hot = hot[:maxHotspots]
	}
	return &HeatmapView{Source: name, Width: entry.width, Height: entry.height, Zones: zones, Hotspots: hot}, nil
}

// ResetHeatmap zeroes the heatmap of a source.
func (p *VideoProcessor) ResetHeatmap(name string) error {
	entry, err := p.lookup(name)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	entry.heatmap.Reset()
	entry.mu.Unlock()
	return nil
}

// SetCashierROI replaces the queue region of a cashier source.
func (p *VideoProcessor) SetCashierROI(name string, roi models.BBox) error {
	entry, err := p.lookup(name)
	if err != nil {
		return err
	}
	if entry.queue == nil {
		return fmt.Errorf("source %s is not a cashier source", name)
	}
	if roi.X1 >= roi.X2 || roi.Y1 >= roi.Y2 {
		return fmt.Errorf("invalid ROI %+v", roi)
	}

	entry.mu.Lock()
	entry.queue.SetROI(&roi)
	entry.mu.Unlock()

	p.logger.Info("Cashier ROI of %s set to %+v", name, roi)
	return nil
}
