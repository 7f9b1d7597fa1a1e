package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
)

type mockService struct {
	name       string
	startError error
	stopError  error

	mu      sync.Mutex
	started bool
	stopped bool
	order   *[]string
}

func (m *mockService) Name() string { return m.name }

func (m *mockService) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startError != nil {
		return m.startError
	}
	m.started = true
	return nil
}

func (m *mockService) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	return m.stopError
}

type mockServiceWithEvents struct {
	mockService
	eventBus *EventBus
}

func (m *mockServiceWithEvents) SetEventBus(bus *EventBus) {
	m.eventBus = bus
}

func TestNewManager(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	if mgr.GetServiceCount() != 0 {
		t.Errorf("Expected 0 services, got %d", mgr.GetServiceCount())
	}
	if mgr.GetEventBus() == nil {
		t.Error("Event bus should be initialized")
	}
}

func TestManager_Register(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	mgr.Register(&mockService{name: "test-service"})

	if mgr.GetServiceCount() != 1 {
		t.Errorf("Expected 1 service, got %d", mgr.GetServiceCount())
	}

	status := mgr.GetServiceStatus("test-service")
	if status == nil {
		t.Fatal("Service status should be created")
	}
	if status.GetStatus() != StatusStopped {
		t.Errorf("Expected status %s, got %s", StatusStopped, status.GetStatus())
	}
}

func TestManager_Register_WithEvents(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	svc := &mockServiceWithEvents{mockService: mockService{name: "event-service"}}
	mgr.Register(svc)

	if svc.eventBus == nil {
		t.Error("Event bus should be set for service with events")
	}
}

func TestManager_Start(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	svc := &mockService{name: "test-service"}
	mgr.Register(svc)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !svc.started {
		t.Error("Service should have been started")
	}
	if !mgr.GetServiceStatus("test-service").IsRunning() {
		t.Error("Service should be running")
	}
}

func TestManager_Start_ServiceError(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	mgr.Register(&mockService{name: "failing-service", startError: errors.New("start failed")})
	healthy := &mockService{name: "healthy-service"}
	mgr.Register(healthy)

	err := mgr.Start(context.Background())
	if err == nil {
		t.Fatal("Expected start error to be reported")
	}

	status := mgr.GetServiceStatus("failing-service")
	if status.GetStatus() != StatusError {
		t.Errorf("Expected status %s, got %s", StatusError, status.GetStatus())
	}
	if status.GetError() == nil {
		t.Error("Service should have an error")
	}
	if !healthy.started {
		t.Error("Remaining services should still be started")
	}
}

func TestManager_Shutdown_ReverseOrder(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		mgr.Register(&mockService{name: name, order: &order})
	}

	ctx := context.Background()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("Expected %d stops, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Stop %d: expected %s, got %s", i, want[i], order[i])
		}
	}

	if mgr.GetServiceStatus("first").GetStatus() != StatusStopped {
		t.Error("Service should be stopped after shutdown")
	}
}

func TestManager_Shutdown_StopError(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	mgr.Register(&mockService{name: "stubborn", stopError: errors.New("stop failed")})

	ctx := context.Background()
	_ = mgr.Start(ctx)

	if err := mgr.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown should not fail on service stop error: %v", err)
	}
	if mgr.GetServiceStatus("stubborn").GetStatus() != StatusError {
		t.Error("Service stop error should be recorded")
	}
}

func TestManager_GetAllStatuses(t *testing.T) {
	mgr := NewManager(logger.NewNopLogger())
	mgr.Register(&mockService{name: "a"})
	mgr.Register(&mockService{name: "b"})

	statuses := mgr.GetAllStatuses()
	if len(statuses) != 2 {
		t.Errorf("Expected 2 statuses, got %d", len(statuses))
	}
}
