// Monitor keeps the realtime fan-out stats of Wishful and flushes them into the DB.

package metrics

import (
	"Wishful/internal/entity"
	"Wishful/pkg/log"
	"context"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
)

// Number of recent publishes the averages are computed over.
const averageWindow = 20

// Monitor implements room.Observer.
type Monitor struct {
	sync.Mutex
	// Counters gathered since the last flush
	pending    entity.Metrics
	publishDur *movingaverage.MovingAverage
	fanOut     *movingaverage.MovingAverage

	repo     Repository
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   log.Logger
}

func NewMonitor(repo Repository, interval time.Duration, logger log.Logger) *Monitor {
	return &Monitor{
		pending:    entity.Metrics{EventsByKind: map[string]int64{}},
		publishDur: movingaverage.New(averageWindow),
		fanOut:     movingaverage.New(averageWindow),
		repo:       repo,
		interval:   interval,
		logger:     logger,
	}
}

// Published records one registry publish.
func (m *Monitor) Published(room string, kind entity.EventKind, delivered, dropped int, took time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.pending.EventsPublished++
	m.pending.EventsByKind[string(kind)]++
	m.pending.Deliveries += int64(delivered)
	m.pending.Drops += int64(dropped)
	m.publishDur.Add(float64(took/time.Microsecond) / 1000.0)
	m.fanOut.Add(float64(delivered + dropped))
}

// Pending returns the counters which were not flushed yet.
func (m *Monitor) Pending() entity.Metrics {
	m.Lock()
	defer m.Unlock()

	snapshot := m.pending
	snapshot.EventsByKind = make(map[string]int64, len(m.pending.EventsByKind))
	for kind, count := range m.pending.EventsByKind {
		snapshot.EventsByKind[kind] = count
	}
	snapshot.AvgPublishMillis = m.publishDur.Avg()
	snapshot.AvgFanOut = m.fanOut.Avg()
	return snapshot
}

// Flush adds the pending counters to the stored ones. On failure they are kept for the next flush.
func (m *Monitor) Flush(ctx context.Context) error {
	delta := m.Pending()
	delta.FlushedAt = time.Now().UnixMilli()
	if err := m.repo.AddMetrics(ctx, m.logger, delta); err != nil {
		return err
	}

	m.Lock()
	defer m.Unlock()
	// Publishes which happened during the write stay pending
	m.pending.EventsPublished -= delta.EventsPublished
	m.pending.Deliveries -= delta.Deliveries
	m.pending.Drops -= delta.Drops
	for kind, count := range delta.EventsByKind {
		m.pending.EventsByKind[kind] -= count
		if m.pending.EventsByKind[kind] == 0 {
			delete(m.pending.EventsByKind, kind)
		}
	}
	return nil
}

// Start launches the flush worker.
func (m *Monitor) Start(ctx context.Context) {
	if m.stopCh != nil {
		return
	}
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.worker(ctx)
	m.logger.WithCtx(ctx).Info().Dur("Interval", m.interval).Msg("Launched metrics Monitor")
}

// Stop stops the flush worker and flushes one last time.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.stopCh == nil {
		return nil
	}
	close(m.stopCh)
	<-m.doneCh
	m.stopCh = nil
	return m.Flush(ctx)
}

// worker does the actual job.
func (m *Monitor) worker(ctx context.Context) {
	defer close(m.doneCh)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			// Stop the monitor
			return
		case <-ticker.C:
			if err := m.Flush(ctx); err != nil {
				m.logger.WithCtx(ctx).Warn().Err(err).Msg("Couldn't flush metrics, keeping them for the next tick")
			}
		}
	}
}
