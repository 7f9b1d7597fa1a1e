package ai

import (
	"context"
	"sync"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
)

// Monitor polls remote model backends and keeps their readiness current
type Monitor struct {
	*service.ServiceBase

	probes   []Prober
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	state  map[string]bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a readiness monitor for probes
func NewMonitor(interval time.Duration, log *logger.Logger, probes ...Prober) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := interval
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}

	return &Monitor{
		ServiceBase: service.NewServiceBase("model-monitor", log),
		probes:      probes,
		interval:    interval,
		timeout:     timeout,
		state:       make(map[string]bool, len(probes)),
	}
}

// Start runs a first check synchronously and then polls in the background
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.GetStatus().SetStatus(service.StatusStarting)
	m.CheckNow(ctx)

	go m.run(runCtx)

	m.GetStatus().SetStatus(service.StatusRunning)
	m.LogInfo("Model monitor started", "models", len(m.probes), "interval", m.interval)
	return nil
}

// Stop stops polling
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}

	m.GetStatus().SetStatus(service.StatusStopping)
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.GetStatus().SetStatus(service.StatusStopped)
	m.LogInfo("Model monitor stopped")
	return nil
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow probes every backend once and publishes readiness transitions
func (m *Monitor) CheckNow(ctx context.Context) {
	for _, p := range m.probes {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := p.HealthCheck(checkCtx)
		cancel()

		ready := err == nil
		p.SetReady(ready)

		m.mu.Lock()
		prev, seen := m.state[p.Name()]
		m.state[p.Name()] = ready
		m.mu.Unlock()

		if seen && prev == ready {
			continue
		}

		if ready {
			m.LogInfo("Model ready", "model", p.Name())
			m.PublishEvent(service.EventTypeModelReady, map[string]interface{}{"model": p.Name()})
		} else {
			m.LogWarn("Model not ready", "model", p.Name(), "error", err)
			m.PublishEvent(service.EventTypeModelUnready, map[string]interface{}{
				"model": p.Name(),
				"error": err.Error(),
			})
		}
	}
}

// States returns the last observed readiness per model
func (m *Monitor) States() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[string]bool, len(m.state))
	for k, v := range m.state {
		states[k] = v
	}
	return states
}
