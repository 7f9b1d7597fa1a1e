package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a health check
type Check struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status    Status                      `json:"status"`
	Timestamp time.Time                   `json:"timestamp"`
	Uptime    string                      `json:"uptime"`
	Checks    map[string]Check            `json:"checks"`
	Services  map[string]service.Snapshot `json:"services,omitempty"`
}

// Checker is an interface for health checkers
type Checker interface {
	Name() string
	Check(ctx context.Context) Check
}

// Manager runs health checks and serves them over HTTP
type Manager struct {
	logger     *logger.Logger
	checkers   []Checker
	svcManager *service.Manager
	startTime  time.Time
	addr       string
	mu         sync.RWMutex
	httpServer *http.Server
	httpMux    *http.ServeMux
}

// NewManager creates a health manager that will listen on addr
func NewManager(addr string, log *logger.Logger, svcManager *service.Manager) *Manager {
	m := &Manager{
		logger:     log,
		checkers:   make([]Checker, 0),
		svcManager: svcManager,
		startTime:  time.Now(),
		addr:       addr,
		httpMux:    http.NewServeMux(),
	}

	m.httpMux.HandleFunc("/health", m.handleHealth)
	m.httpMux.HandleFunc("/health/live", m.handleLiveness)
	m.httpMux.HandleFunc("/health/ready", m.handleReadiness)
	m.httpMux.HandleFunc("/health/services", m.handleServices)

	return m
}

// Name returns the service name
func (m *Manager) Name() string {
	return "health"
}

// RegisterChecker registers a health checker
func (m *Manager) RegisterChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// Handler returns the health HTTP handler
func (m *Manager) Handler() http.Handler {
	return m.httpMux
}

// Start binds the listener and serves health endpoints in the background
func (m *Manager) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.addr, err)
	}

	srv := &http.Server{
		Handler:      m.httpMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	m.mu.Lock()
	m.httpServer = srv
	m.mu.Unlock()

	go func() {
		m.logger.Info("Health check server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Health check server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the health check HTTP server
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.RLock()
	srv := m.httpServer
	m.mu.RUnlock()

	if srv != nil {
		m.logger.Info("Stopping health check server")
		return srv.Shutdown(ctx)
	}
	return nil
}

// Check performs all health checks
func (m *Manager) Check(ctx context.Context) HealthReport {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	checks := make(map[string]Check, len(checkers))
	overallStatus := StatusHealthy

	for _, checker := range checkers {
		check := checker.Check(ctx)
		checks[check.Name] = check

		if check.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		} else if check.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return HealthReport{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Uptime:    time.Since(m.startTime).Round(time.Second).String(),
		Checks:    checks,
		Services:  m.serviceSnapshots(),
	}
}

func (m *Manager) serviceSnapshots() map[string]service.Snapshot {
	services := make(map[string]service.Snapshot)
	if m.svcManager != nil {
		for name, status := range m.svcManager.GetAllStatuses() {
			services[name] = status.Snapshot()
		}
	}
	return services
}

// handleHealth handles the /health endpoint. Degraded still answers 200.
func (m *Manager) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := m.Check(r.Context())

	statusCode := http.StatusOK
	if report.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, report)
}

// handleLiveness handles the /health/live endpoint (liveness probe)
func (m *Manager) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// handleReadiness handles the /health/ready endpoint (readiness probe)
func (m *Manager) handleReadiness(w http.ResponseWriter, r *http.Request) {
	report := m.Check(r.Context())

	statusCode := http.StatusOK
	if report.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]interface{}{
		"status":    report.Status,
		"timestamp": report.Timestamp,
		"ready":     report.Status != StatusUnhealthy,
	})
}

// handleServices handles the /health/services endpoint
func (m *Manager) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"services":  m.serviceSnapshots(),
		"timestamp": time.Now(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
