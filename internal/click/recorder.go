// Package click captures and aggregates analytics for resolved short
// links. Recording is best-effort: it must never block or fail the
// redirect that triggered it.
package click

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linklite/linklite/internal/geo"
	"github.com/linklite/linklite/internal/idgen"
	"github.com/linklite/linklite/internal/metrics"
)

const (
	DefaultQueueSize     = 1024
	DefaultWorkers       = 4
	DefaultShutdownGrace = 5 * time.Second

	lookupTimeout = 2 * time.Second
	insertTimeout = 5 * time.Second
)

// RecorderConfig holds configuration for the recorder.
type RecorderConfig struct {
	QueueSize     int
	Workers       int
	ShutdownGrace time.Duration
	Locator       geo.Locator
	IDGenerator   idgen.Generator
	Logger        *slog.Logger
}

// Recorder accepts click metadata from the redirect path and persists
// enriched events in the background. Record never blocks: when the
// queue is full the event is dropped and counted.
type Recorder struct {
	queue   chan RequestMeta
	quit    chan struct{}
	store   Store
	locator geo.Locator
	ids     idgen.Generator
	logger  *slog.Logger
	grace   time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewRecorder creates a Recorder and starts its worker goroutines.
func NewRecorder(store Store, config *RecorderConfig) *Recorder {
	if config == nil {
		config = &RecorderConfig{}
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	workers := config.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	grace := config.ShutdownGrace
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}
	locator := config.Locator
	if locator == nil {
		locator = geo.NoopLocator{}
	}
	ids := config.IDGenerator
	if ids == nil {
		ids = idgen.NewV7(idgen.WithRetries(1))
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		queue:   make(chan RequestMeta, queueSize),
		quit:    make(chan struct{}),
		store:   store,
		locator: locator,
		ids:     ids,
		logger:  logger,
		grace:   grace,
	}

	r.wg.Add(workers)
	for range workers {
		go r.worker()
	}

	return r
}

// Record enqueues one click for background persistence. It is
// fire-and-forget: a full queue drops the event rather than blocking
// the caller, and a closed recorder silently discards it.
func (r *Recorder) Record(meta RequestMeta) {
	if r.closed.Load() {
		metrics.ClicksDropped.Inc()
		return
	}

	select {
	case r.queue <- meta:
		metrics.ClicksEnqueued.Inc()
	default:
		metrics.ClicksDropped.Inc()
		r.logger.Warn("click queue full, dropping event",
			"link_id", meta.LinkID.String(),
		)
	}
}

// Close stops accepting new events and waits for the workers to drain
// the queue, up to the configured grace period.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.quit)
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.grace):
		r.logger.Warn("click recorder shutdown grace exceeded, abandoning queued events")
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case meta := <-r.queue:
			r.process(meta)
		case <-r.quit:
			// Drain whatever is already queued, then exit.
			for {
				select {
				case meta := <-r.queue:
					r.process(meta)
				default:
					return
				}
			}
		}
	}
}

// process enriches and persists one click. All contexts here derive
// from Background: the originating request has already been answered
// and its cancellation must not cancel the recording.
func (r *Recorder) process(meta RequestMeta) {
	id, err := r.ids.Generate()
	if err != nil {
		metrics.ClickRecordFailures.Inc()
		r.logger.Error("failed to generate click event id", "error", err.Error())
		return
	}

	occurredAt := meta.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	event := Event{
		ID:             id,
		LinkID:         meta.LinkID,
		OccurredAt:     occurredAt,
		DeviceCategory: ClassifyDevice(meta.UserAgent),
	}

	lookupCtx, cancelLookup := context.WithTimeout(context.Background(), lookupTimeout)
	loc, err := r.locator.Locate(lookupCtx, meta.RemoteIP)
	cancelLookup()
	if err == nil {
		if loc.City != "" {
			event.GeoCity = &loc.City
		}
		if loc.Country != "" {
			event.GeoCountry = &loc.Country
		}
	}

	insertCtx, cancelInsert := context.WithTimeout(context.Background(), insertTimeout)
	defer cancelInsert()

	if err := r.store.Insert(insertCtx, event); err != nil {
		metrics.ClickRecordFailures.Inc()
		r.logger.Error("failed to record click",
			"link_id", meta.LinkID.String(),
			"error", err.Error(),
		)
		return
	}

	metrics.ClicksRecorded.Inc()
}
