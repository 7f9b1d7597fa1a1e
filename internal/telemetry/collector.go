package telemetry

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
)

// RouteMetrics aggregates requests for one route
type RouteMetrics struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	totalLatencyMs float64
}

// InferenceMetrics aggregates model calls
type InferenceMetrics struct {
	Calls   int64   `json:"calls"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	totalMs float64
}

// DetectionMetrics counts detection results served
type DetectionMetrics struct {
	Frames     int64 `json:"frames"`
	Detections int64 `json:"detections"`
	Persons    int64 `json:"persons"`
}

// SpeechMetrics counts synthesized prompts
type SpeechMetrics struct {
	Synthesized int64 `json:"synthesized"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
}

// RuntimeMetrics are Go runtime statistics sampled at snapshot time
type RuntimeMetrics struct {
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGC          uint32 `json:"num_gc"`
}

// Metrics is a point-in-time view of the collected metrics
type Metrics struct {
	Timestamp   time.Time                   `json:"timestamp"`
	Uptime      string                      `json:"uptime"`
	Routes      map[string]RouteMetrics     `json:"routes"`
	Inference   map[string]InferenceMetrics `json:"inference"`
	Detection   DetectionMetrics            `json:"detection"`
	Currency    int64                       `json:"currency_classifications"`
	Speech      SpeechMetrics               `json:"speech"`
	ModelEvents map[string]int64            `json:"model_events"`
	Runtime     RuntimeMetrics              `json:"runtime"`
}

// Collector aggregates application events into metrics
type Collector struct {
	*service.ServiceBase

	enabled   bool
	startTime time.Time

	mu          sync.RWMutex
	routes      map[string]*RouteMetrics
	inference   map[string]*InferenceMetrics
	detection   DetectionMetrics
	currency    int64
	speech      SpeechMetrics
	modelEvents map[string]int64

	events <-chan service.Event
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCollector creates a new telemetry collector
func NewCollector(enabled bool, log *logger.Logger) *Collector {
	return &Collector{
		ServiceBase: service.NewServiceBase("telemetry-collector", log),
		enabled:     enabled,
		startTime:   time.Now(),
		routes:      make(map[string]*RouteMetrics),
		inference:   make(map[string]*InferenceMetrics),
		modelEvents: make(map[string]int64),
	}
}

// Start subscribes to the event bus and aggregates events in the background
func (c *Collector) Start(ctx context.Context) error {
	c.GetStatus().SetStatus(service.StatusRunning)

	if !c.enabled {
		c.LogInfo("Telemetry collection is disabled")
		return nil
	}

	bus := c.GetEventBus()
	if bus == nil {
		c.LogWarn("No event bus attached, telemetry will stay empty")
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.events = bus.SubscribeAll()
	c.cancel = cancel
	c.done = make(chan struct{})
	events, done := c.events, c.done
	c.mu.Unlock()

	go c.consume(runCtx, events, done)

	c.LogInfo("Telemetry collector started")
	return nil
}

// Stop stops the telemetry collector service
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done, events := c.cancel, c.done, c.events
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
		if bus := c.GetEventBus(); bus != nil {
			bus.Unsubscribe(events)
		}
	}

	c.LogInfo("Telemetry collector stopped")
	c.GetStatus().SetStatus(service.StatusStopped)
	return nil
}

func (c *Collector) consume(ctx context.Context, events <-chan service.Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Record(ev)
		}
	}
}

// Record folds a single event into the metrics
func (c *Collector) Record(ev service.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case service.EventTypeRequestCompleted:
		route := stringField(ev.Data, "route")
		rm := c.routes[route]
		if rm == nil {
			rm = &RouteMetrics{}
			c.routes[route] = rm
		}
		latency := numberField(ev.Data, "latency_ms")
		rm.Requests++
		if numberField(ev.Data, "status") >= 400 {
			rm.Errors++
		}
		rm.totalLatencyMs += latency
		rm.AvgLatencyMs = rm.totalLatencyMs / float64(rm.Requests)
		if latency > rm.MaxLatencyMs {
			rm.MaxLatencyMs = latency
		}

	case service.EventTypeInference:
		model := stringField(ev.Data, "model")
		im := c.inference[model]
		if im == nil {
			im = &InferenceMetrics{}
			c.inference[model] = im
		}
		d := numberField(ev.Data, "duration_ms")
		im.Calls++
		im.totalMs += d
		im.AvgMs = im.totalMs / float64(im.Calls)
		if d > im.MaxMs {
			im.MaxMs = d
		}

	case service.EventTypeDetection:
		c.detection.Frames++
		c.detection.Detections += int64(numberField(ev.Data, "detections"))
		c.detection.Persons += int64(numberField(ev.Data, "persons"))

	case service.EventTypeCurrencyResult:
		c.currency++

	case service.EventTypeSpeechSynthesized:
		c.speech.Synthesized++
		if hit, _ := ev.Data["cache_hit"].(bool); hit {
			c.speech.CacheHits++
		} else {
			c.speech.CacheMisses++
		}

	case service.EventTypeModelReady, service.EventTypeModelUnready:
		c.modelEvents[string(ev.Type)]++
	}
}

// Snapshot returns the current metrics together with runtime statistics
func (c *Collector) Snapshot() Metrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.mu.RLock()
	defer c.mu.RUnlock()

	routes := make(map[string]RouteMetrics, len(c.routes))
	for k, v := range c.routes {
		routes[k] = *v
	}
	inference := make(map[string]InferenceMetrics, len(c.inference))
	for k, v := range c.inference {
		inference[k] = *v
	}
	modelEvents := make(map[string]int64, len(c.modelEvents))
	for k, v := range c.modelEvents {
		modelEvents[k] = v
	}

	return Metrics{
		Timestamp:   time.Now(),
		Uptime:      time.Since(c.startTime).Truncate(time.Second).String(),
		Routes:      routes,
		Inference:   inference,
		Detection:   c.detection,
		Currency:    c.currency,
		Speech:      c.speech,
		ModelEvents: modelEvents,
		Runtime: RuntimeMetrics{
			Goroutines:     runtime.NumGoroutine(),
			HeapAllocBytes: mem.HeapAlloc,
			SysBytes:       mem.Sys,
			NumGC:          mem.NumGC,
		},
	}
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func numberField(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	}
	return 0
}
