// Package ai connects the service to its detection and classification
// models. Models live behind the Detector and CurrencyClassifier contracts;
// the HTTP clients here reach a remote inference service and the onnx
// subpackage runs a model in-process.
package ai

import (
	"context"
	"errors"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/video"
)

// ErrModelNotReady is returned when a model is asked to run before it is loaded
var ErrModelNotReady = errors.New("model not ready")

// Detector runs an object detection model over a frame
type Detector interface {
	// Infer returns the raw detections for frame in model order
	Infer(ctx context.Context, frame *video.Frame) ([]detection.Detection, error)
	IsReady() bool
	Name() string
}

// CurrencyClassifier recognises the denomination of a banknote in a frame
type CurrencyClassifier interface {
	Classify(ctx context.Context, frame *video.Frame) (string, error)
	IsReady() bool
	Name() string
}

// Prober is a backend whose readiness is polled by a Monitor
type Prober interface {
	Name() string
	HealthCheck(ctx context.Context) error
	SetReady(ready bool)
}

// Models groups the models served by the API
type Models struct {
	Person   Detector
	Objects  Detector
	Currency CurrencyClassifier
}

// Statuses reports readiness per model name. Unconfigured models are omitted.
func (m *Models) Statuses() map[string]bool {
	statuses := make(map[string]bool, 3)
	if m.Person != nil {
		statuses[m.Person.Name()] = m.Person.IsReady()
	}
	if m.Objects != nil {
		statuses[m.Objects.Name()] = m.Objects.IsReady()
	}
	if m.Currency != nil {
		statuses[m.Currency.Name()] = m.Currency.IsReady()
	}
	return statuses
}

// Ready reports whether every configured model is ready
func (m *Models) Ready() bool {
	statuses := m.Statuses()
	if len(statuses) == 0 {
		return false
	}
	for _, ready := range statuses {
		if !ready {
			return false
		}
	}
	return true
}
