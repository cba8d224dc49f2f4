// Package stream holds the latest annotated frame per source and relays it to viewers.
package stream

import (
	"sort"
	"sync"
)

// FramePublisher keeps only the most recent encoded frame for each source.
// Older frames are overwritten, never queued.
type FramePublisher struct {
	frames map[string][]byte
	seq    map[string]uint64
	mutex  sync.RWMutex
}

func NewFramePublisher() *FramePublisher {
	return &FramePublisher{
		frames: make(map[string][]byte),
		seq:    make(map[string]uint64),
	}
}

// Publish replaces the latest frame of a source. The slice is copied.
func (p *FramePublisher) Publish(name string, frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	p.mutex.Lock()
	p.frames[name] = buf
	p.seq[name]++
	p.mutex.Unlock()
}

// Latest returns the most recent frame of a source. Callers must not modify it.
func (p *FramePublisher) Latest(name string) ([]byte, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	frame, ok := p.frames[name]
	return frame, ok
}

// LatestSeq is Latest plus a counter that grows with every publish, so pollers
// can skip frames they already sent.
func (p *FramePublisher) LatestSeq(name string) ([]byte, uint64, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	frame, ok := p.frames[name]
	return frame, p.seq[name], ok
}

// Remove forgets a source.
func (p *FramePublisher) Remove(name string) {
	p.mutex.Lock()
	delete(p.frames, name)
	delete(p.seq, name)
	p.mutex.Unlock()
}

// Names returns the sources that have published at least once, sorted.
func (p *FramePublisher) Names() []string {
	p.mutex.RLock()
	names := make([]string, 0, len(p.frames))
	for name := range p.frames {
		names = append(names, name)
	}
	p.mutex.RUnlock()
	sort.Strings(names)
	return names
}
