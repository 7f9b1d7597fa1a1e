package service

import (
	"errors"
	"testing"
)

func TestNewServiceStatus(t *testing.T) {
	status := NewServiceStatus("test-service")

	if status.Name != "test-service" {
		t.Errorf("Expected name 'test-service', got %s", status.Name)
	}
	if status.GetStatus() != StatusStopped {
		t.Errorf("Expected initial status %s, got %s", StatusStopped, status.GetStatus())
	}
	if status.GetUptime() != 0 {
		t.Error("Stopped service should have zero uptime")
	}
}

func TestServiceStatus_RunningClearsError(t *testing.T) {
	status := NewServiceStatus("test-service")

	status.SetError(errors.New("boom"))
	if status.GetStatus() != StatusError {
		t.Errorf("Expected status %s, got %s", StatusError, status.GetStatus())
	}

	status.SetStatus(StatusRunning)
	if status.GetError() != nil {
		t.Error("Error should be cleared when status is Running")
	}
	if status.StartedAt.IsZero() {
		t.Error("StartedAt should be set when status is Running")
	}
}

func TestServiceStatus_Snapshot(t *testing.T) {
	status := NewServiceStatus("test-service")
	status.SetError(errors.New("model missing"))

	snap := status.Snapshot()
	if snap.Status != StatusError {
		t.Errorf("Expected status %s, got %s", StatusError, snap.Status)
	}
	if snap.Error != "model missing" {
		t.Errorf("Expected error message, got %q", snap.Error)
	}
}
