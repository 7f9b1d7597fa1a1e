package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/video"
)

// DefaultCurrencyValue is reported by the static classifier when no value is
// configured
const DefaultCurrencyValue = "10"

// CurrencyClient classifies banknotes through a remote classification service
type CurrencyClient struct {
	name       string
	serviceURL string
	httpClient *http.Client
	logger     *logger.Logger
	ready      atomic.Bool
}

// NewCurrencyClient creates a currency classification client
func NewCurrencyClient(name, serviceURL string, timeout time.Duration, log *logger.Logger) *CurrencyClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if name == "" {
		name = "currency-classifier"
	}
	return &CurrencyClient{
		name:       name,
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

func (c *CurrencyClient) Name() string { return c.name }

func (c *CurrencyClient) IsReady() bool { return c.ready.Load() }

func (c *CurrencyClient) SetReady(ready bool) { c.ready.Store(ready) }

// HealthCheck checks if the classification service is ready to serve
func (c *CurrencyClient) HealthCheck(ctx context.Context) error {
	return checkReady(ctx, c.httpClient, c.serviceURL)
}

// Classify returns the denomination label for the banknote in frame
func (c *CurrencyClient) Classify(ctx context.Context, frame *video.Frame) (string, error) {
	if !c.IsReady() {
		return "", ErrModelNotReady
	}

	image, err := encodeFrame(frame)
	if err != nil {
		return "", err
	}

	var resp ClassifyResponse
	if err := postJSON(ctx, c.httpClient, c.serviceURL+"/api/v1/classify", ClassifyRequest{Image: image}, &resp); err != nil {
		c.logger.Warn("Currency classification failed", "model", c.name, "error", err)
		return "", err
	}
	if resp.Label == "" {
		return "", fmt.Errorf("classification service returned an empty label")
	}

	c.logger.Debug("Currency classified", "model", c.name, "label", resp.Label, "confidence", resp.Confidence)
	return resp.Label, nil
}

// StaticCurrencyClassifier reports a fixed denomination for every frame.
// It stands in until a real classifier is deployed.
type StaticCurrencyClassifier struct {
	value string
}

// NewStaticCurrencyClassifier creates a classifier that always returns value
func NewStaticCurrencyClassifier(value string) *StaticCurrencyClassifier {
	if value == "" {
		value = DefaultCurrencyValue
	}
	return &StaticCurrencyClassifier{value: value}
}

func (s *StaticCurrencyClassifier) Name() string { return "currency-classifier" }

func (s *StaticCurrencyClassifier) IsReady() bool { return true }

func (s *StaticCurrencyClassifier) Classify(ctx context.Context, frame *video.Frame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.value, nil
}
