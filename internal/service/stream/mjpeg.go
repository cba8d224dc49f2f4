package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"retailanalytics/internal/logger"

	"github.com/hybridgroup/mjpeg"
)

// MJPEGRelay serves one multipart MJPEG stream per source, fed from the FramePublisher.
type MJPEGRelay struct {
	publisher *FramePublisher
	interval  time.Duration
	logger    *logger.Logger

	streams map[string]*mjpeg.Stream
	sent    map[string]uint64 // sequence of the last frame copied per stream
	mutex   sync.Mutex
}

func NewMJPEGRelay(publisher *FramePublisher, interval time.Duration, logger *logger.Logger) *MJPEGRelay {
	if interval <= 0 {
		interval = 40 * time.Millisecond
	}
	return &MJPEGRelay{
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		streams:   make(map[string]*mjpeg.Stream),
		sent:      make(map[string]uint64),
	}
}

// stream returns the stream of a source, creating it on first use.
func (r *MJPEGRelay) stream(name string) *mjpeg.Stream {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.streams[name]
	if !ok {
		s = mjpeg.NewStream()
		r.streams[name] = s
	}
	return s
}

// Handler returns the stream of one source, false while the source has no frame yet.
func (r *MJPEGRelay) Handler(name string) (http.Handler, bool) {
	if _, ok := r.publisher.Latest(name); !ok {
		return nil, false
	}
	return r.stream(name), true
}

// Run copies new frames into the per-source streams until ctx is done.
func (r *MJPEGRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.relay()
		}
	}
}

// relay copies the newest frame of every open stream once.
func (r *MJPEGRelay) relay() {
	r.mutex.Lock()
	names := make([]string, 0, len(r.streams))
	for name := range r.streams {
		names = append(names, name)
	}
	r.mutex.Unlock()

	for _, name := range names {
		frame, seq, ok := r.publisher.LatestSeq(name)
		if !ok {
			r.drop(name)
			continue
		}

		r.mutex.Lock()
		s, open := r.streams[name]
		fresh := open && r.sent[name] != seq
		if fresh {
			r.sent[name] = seq
		}
		r.mutex.Unlock()

		if fresh {
			s.UpdateJPEG(frame)
		}
	}
}

// drop forgets the stream of a removed source and what was sent to it.
func (r *MJPEGRelay) drop(name string) {
	r.mutex.Lock()
	delete(r.sent, name)
	if _, ok := r.streams[name]; ok {
		delete(r.streams, name)
		r.logger.Info("MJPEG stream closed for %s", name)
	}
	r.mutex.Unlock()
}
