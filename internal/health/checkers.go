package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"
)

// SystemChecker reports Go runtime resource usage
type SystemChecker struct {
	// MaxGoroutines degrades the check when exceeded; zero disables it
	MaxGoroutines int
}

func (c *SystemChecker) Name() string {
	return "system"
}

func (c *SystemChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()

	check.Details["goroutines"] = goroutines
	check.Details["heap_alloc_bytes"] = mem.HeapAlloc
	check.Details["sys_bytes"] = mem.Sys
	check.Details["num_gc"] = mem.NumGC

	if c.MaxGoroutines > 0 && goroutines > c.MaxGoroutines {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Goroutine count %d exceeds %d", goroutines, c.MaxGoroutines)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "System resources OK"
	return check
}

// Pinger is a database connection that can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker checks database connectivity
type DatabaseChecker struct {
	name string
	db   Pinger
}

func NewDatabaseChecker(name string, db Pinger) *DatabaseChecker {
	if name == "" {
		name = "database"
	}
	return &DatabaseChecker{name: name, db: db}
}

func (c *DatabaseChecker) Name() string {
	return c.name
}

func (c *DatabaseChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
	}

	if c.db == nil {
		check.Status = StatusDegraded
		check.Message = "Database not configured"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		// The cache is optional, requests still succeed without it
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Database ping failed: %v", err)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "Database connection OK"
	return check
}

// Model is anything whose readiness can be reported
type Model interface {
	Name() string
	IsReady() bool
}

// ModelChecker reports whether a model is loaded. An unready model degrades
// the service; endpoints answer with empty results until it loads.
type ModelChecker struct {
	model Model
}

func NewModelChecker(model Model) *ModelChecker {
	return &ModelChecker{model: model}
}

func (c *ModelChecker) Name() string {
	return "model:" + c.model.Name()
}

func (c *ModelChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   map[string]interface{}{"ready": c.model.IsReady()},
	}

	if !c.model.IsReady() {
		check.Status = StatusDegraded
		check.Message = "Model is not ready"
		return check
	}

	check.Status = StatusHealthy
	check.Message = "Model is ready"
	return check
}

// AIServiceChecker checks connectivity to a remote inference service
type AIServiceChecker struct {
	name       string
	serviceURL string
	client     *http.Client
}

func NewAIServiceChecker(name, serviceURL string) *AIServiceChecker {
	if name == "" {
		name = "ai_service"
	}
	return &AIServiceChecker{
		name:       name,
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

func (c *AIServiceChecker) Name() string {
	return c.name
}

func (c *AIServiceChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   map[string]interface{}{"url": c.serviceURL},
	}

	if c.serviceURL == "" {
		check.Status = StatusDegraded
		check.Message = "Service URL not configured"
		return check
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serviceURL+"/health/ready", nil)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Failed to create request: %v", err)
		return check
	}

	resp, err := c.client.Do(req)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Service unreachable: %v", err)
		return check
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	check.Details["status_code"] = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Service returned status %d", resp.StatusCode)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "Service is reachable"
	return check
}

// StorageChecker checks that data directories exist and are writable
type StorageChecker struct {
	dirs []string
}

func NewStorageChecker(dirs ...string) *StorageChecker {
	return &StorageChecker{dirs: dirs}
}

func (c *StorageChecker) Name() string {
	return "storage"
}

func (c *StorageChecker) Check(ctx context.Context) Check {
	check := Check{
		Name:      c.Name(),
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}

	for _, dir := range c.dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("Failed to create directory %s: %v", dir, err)
			return check
		}
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("Directory %s is not writable: %v", dir, err)
			return check
		}
		f.Close()
		os.Remove(f.Name())
		check.Details[dir] = "writable"
	}

	check.Status = StatusHealthy
	check.Message = "Storage directories accessible"
	return check
}
