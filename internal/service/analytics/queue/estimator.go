// Package queue estimates cashier queue length, wait time and completed transactions.
package queue

import (
	"time"

	"retailanalytics/internal/models"
)

const (
	// DefaultHistorySize is the rolling window of queue samples.
	DefaultHistorySize = 30
	// DefaultServiceTime is the assumed average service time per customer.
	DefaultServiceTime = 120 * time.Second
	// DefaultBusyThreshold is the queue length at which the cashier counts as busy.
	DefaultBusyThreshold = 3
)

// Options configures an Estimator. Zero values fall back to the defaults.
type Options struct {
	ROI           *models.BBox // nil counts every person
	ServiceTime   time.Duration
	BusyThreshold int
	HistorySize   int
	Now           func() time.Time
}

// Estimator counts people inside the cashier ROI and infers transactions from
// queue shrinkage. It is owned by one processing loop and is not safe for concurrent use.
type Estimator struct {
	roi           *models.BBox
	serviceTime   time.Duration
	busyThreshold int
	now           func() time.Time

	history []int // ring buffer
	start   int
	size    int

	samples         uint64 // total samples ever taken
	evaluated       uint64 // samples already considered for transactions
	transactions    int
	lastTransaction time.Time
}

// NewEstimator creates an Estimator.
func NewEstimator(opts Options) *Estimator {
	if opts.ServiceTime <= 0 {
		opts.ServiceTime = DefaultServiceTime
	}
	if opts.BusyThreshold <= 0 {
		opts.BusyThreshold = DefaultBusyThreshold
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Estimator{
		serviceTime:   opts.ServiceTime,
		busyThreshold: opts.BusyThreshold,
		now:           opts.Now,
		history:       make([]int, opts.HistorySize),
	}
	e.SetROI(opts.ROI)
	e.lastTransaction = e.now()
	return e
}

// SetROI replaces the region of interest; nil counts every person.
func (e *Estimator) SetROI(roi *models.BBox) {
	if roi == nil {
		e.roi = nil
		return
	}
	r := *roi
	e.roi = &r
}

// ROI returns a copy of the current region of interest, or nil.
func (e *Estimator) ROI() *models.BBox {
	if e.roi == nil {
		return nil
	}
	r := *e.roi
	return &r
}

// DetectQueue counts the person boxes whose center lies inside the ROI and
// appends the count to the rolling history.
func (e *Estimator) DetectQueue(boxes []models.BBox) int {
	count := 0
	for _, b := range boxes {
		if e.roi == nil || e.roi.Contains(b.Center()) {
			count++
		}
	}
	e.push(count)
	return count
}

func (e *Estimator) push(v int) {
	capacity := len(e.history)
	if e.size < capacity {
		e.history[(e.start+e.size)%capacity] = v
		e.size++
	} else {
		e.history[e.start] = v
		e.start = (e.start + 1) % capacity
	}
	e.samples++
}

// History returns the samples oldest first.
func (e *Estimator) History() []int {
	out := make([]int, e.size)
	for i := 0; i < e.size; i++ {
		out[i] = e.history[(e.start+i)%len(e.history)]
	}
	return out
}

func (e *Estimator) last(n int) int {
	return e.history[(e.start+e.size-1-n)%len(e.history)]
}

// EstimateWaitTime is a linear model: queue length times average service time.
func (e *Estimator) EstimateWaitTime(queueLength int) time.Duration {
	return time.Duration(queueLength) * e.serviceTime
}

// IsBusy reports whether the queue reaches the busy threshold.
func (e *Estimator) IsBusy(queueLength int) bool {
	return queueLength >= e.busyThreshold
}

// AverageQueueLength is the mean of the history, 0 when empty.
func (e *Estimator) AverageQueueLength() float64 {
	if e.size == 0 {
		return 0.0
	}
	sum := 0
	for i := 0; i < e.size; i++ {
		sum += e.history[i]
	}
	return float64(sum) / float64(e.size)
}

// EstimateTransactions increments the running count when the newest sample is
// smaller than the one before it and at least half a service time has passed
// since the previous increment. Each sample is considered at most once.
func (e *Estimator) EstimateTransactions() int {
	if e.samples == e.evaluated {
		return e.transactions
	}
	e.evaluated = e.samples

	if e.size < 2 {
		return e.transactions
	}

	if e.last(0) < e.last(1) {
		now := e.now()
		if now.Sub(e.lastTransaction) >= e.serviceTime/2 {
			e.transactions++
			e.lastTransaction = now
		}
	}
	return e.transactions
}

// ResetTransactions zeroes the transaction counter.
func (e *Estimator) ResetTransactions() {
	e.transactions = 0
	e.lastTransaction = e.now()
}

// Analytics bundles the queue state for one frame.
func (e *Estimator) Analytics(queueLength int) models.QueueAnalytics {
	return models.QueueAnalytics{
		CurrentLength:         queueLength,
		AverageLength:         e.AverageQueueLength(),
		EstimatedWaitSeconds:  e.EstimateWaitTime(queueLength).Seconds(),
		IsBusy:                e.IsBusy(queueLength),
		EstimatedTransactions: e.EstimateTransactions(),
	}
}
