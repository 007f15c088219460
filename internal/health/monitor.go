// Package health runs periodic ledger connectivity probes.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/pramaanvault/certvault/internal/canonical"
	"github.com/pramaanvault/certvault/internal/ledger"
	"go.uber.org/zap"
)

// Config holds monitor configuration.
type Config struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(success bool)

// Monitor periodically checks that the ledger node still answers read
// queries. It is informational: requests keep failing individually per the
// error taxonomy; the monitor only gives operators an early, aggregated
// signal.
type Monitor struct {
	ledger    ledger.Client
	cfg       Config
	onMetrics MetricsRecordFunc

	mu       sync.Mutex
	failures int

	logger *zap.Logger
}

// New creates a Monitor with sane defaults for any zero config values.
func New(client ledger.Client, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.ProbeInterval == 0 {
		cfg.ProbeInterval = time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Monitor{ledger: client, cfg: cfg, logger: logger}
}

// SetMetricsRecord configures the probe metrics callback.
func (m *Monitor) SetMetricsRecord(fn MetricsRecordFunc) {
	m.onMetrics = fn
}

// Run probes the ledger on a fixed interval until ctx is cancelled.
// It is meant to be started in its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probeOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// probeOnce performs a single read-only lookup of the zero hash, which is
// never recorded and exercises the full node round trip.
func (m *Monitor) probeOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, m.cfg.ProbeTimeout)
	defer cancel()

	_, err := m.ledger.Lookup(ctx, canonical.Hash{})

	if m.onMetrics != nil {
		m.onMetrics(err == nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		if m.failures >= m.cfg.FailThreshold {
			m.logger.Info("ledger connectivity restored")
		}
		m.failures = 0
		return
	}

	m.failures++
	if m.failures == m.cfg.FailThreshold {
		m.logger.Warn("ledger unreachable",
			zap.Int("consecutive_failures", m.failures),
			zap.Error(err),
		)
	}
}
