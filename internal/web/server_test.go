package web

import (
	"context"
	"testing"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/config"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
)

func TestServer_NewServer(t *testing.T) {
	server := NewServer(&config.WebConfig{Enabled: true}, logger.NewNopLogger())
	if server == nil {
		t.Fatal("NewServer returned nil")
	}
	if server.Name() != "web-server" {
		t.Errorf("Expected service name 'web-server', got '%s'", server.Name())
	}
}

func TestServer_StartStop(t *testing.T) {
	server := NewServer(&config.WebConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    0, // random port
	}, logger.NewNopLogger())

	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if server.GetStatus().GetStatus() != service.StatusRunning {
		t.Errorf("Expected running status, got %s", server.GetStatus().GetStatus())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := server.Stop(stopCtx); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestServer_Start_Disabled(t *testing.T) {
	server := NewServer(&config.WebConfig{Enabled: false}, logger.NewNopLogger())

	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("Start should not fail when disabled: %v", err)
	}
	if err := server.Stop(context.Background()); err != nil {
		t.Fatalf("Stop should not fail when never started: %v", err)
	}
}
