package service

import (
	"sync"
	"time"
)

// Status represents the state of a service
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// ServiceStatus tracks the status of a service
type ServiceStatus struct {
	Name      string
	Status    Status
	StartedAt time.Time
	Error     error
	mu        sync.RWMutex
}

// NewServiceStatus creates a new service status tracker
func NewServiceStatus(name string) *ServiceStatus {
	return &ServiceStatus{
		Name:   name,
		Status: StatusStopped,
	}
}

// SetStatus sets the service status. Entering StatusRunning records the
// start time and clears any previous error.
func (ss *ServiceStatus) SetStatus(status Status) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.Status = status
	if status == StatusRunning {
		ss.StartedAt = time.Now()
		ss.Error = nil
	}
}

// SetError sets the service error status
func (ss *ServiceStatus) SetError(err error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.Status = StatusError
	ss.Error = err
}

func (ss *ServiceStatus) GetStatus() Status {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.Status
}

func (ss *ServiceStatus) GetError() error {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.Error
}

// IsRunning returns true if the service is running
func (ss *ServiceStatus) IsRunning() bool {
	return ss.GetStatus() == StatusRunning
}

// GetUptime returns how long the service has been running, zero otherwise
func (ss *ServiceStatus) GetUptime() time.Duration {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if ss.Status == StatusRunning && !ss.StartedAt.IsZero() {
		return time.Since(ss.StartedAt)
	}
	return 0
}

// Snapshot is a JSON friendly copy of a status
type Snapshot struct {
	Status Status `json:"status"`
	Uptime string `json:"uptime"`
	Error  string `json:"error,omitempty"`
}

// Snapshot returns a point-in-time copy of the status
func (ss *ServiceStatus) Snapshot() Snapshot {
	snap := Snapshot{
		Status: ss.GetStatus(),
		Uptime: ss.GetUptime().Truncate(time.Second).String(),
	}
	if err := ss.GetError(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}
