package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/video"
)

// Client is an HTTP client for a remote inference service
type Client struct {
	name                  string
	serviceURL            string
	httpClient            *http.Client
	logger                *logger.Logger
	defaultConfidence     float64
	defaultEnabledClasses []string
	ready                 atomic.Bool
}

// ClientConfig contains configuration for the inference client
type ClientConfig struct {
	Name                string
	ServiceURL          string
	Timeout             time.Duration
	ConfidenceThreshold float64
	EnabledClasses      []string
}

// NewClient creates a new inference service client. The client reports not
// ready until a Monitor, or the caller, marks it ready.
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Name == "" {
		config.Name = "inference-client"
	}

	return &Client{
		name:       config.Name,
		serviceURL: strings.TrimRight(config.ServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:                log,
		defaultConfidence:     config.ConfidenceThreshold,
		defaultEnabledClasses: config.EnabledClasses,
	}
}

// Name returns the model name
func (c *Client) Name() string {
	return c.name
}

// IsReady reports whether the last readiness check passed
func (c *Client) IsReady() bool {
	return c.ready.Load()
}

// SetReady records the readiness of the remote model
func (c *Client) SetReady(ready bool) {
	c.ready.Store(ready)
}

// Infer runs detection on a single frame and returns the detections in
// model order
func (c *Client) Infer(ctx context.Context, frame *video.Frame) ([]detection.Detection, error) {
	if !c.IsReady() {
		return nil, ErrModelNotReady
	}

	resp, err := c.InferWithOptions(ctx, frame, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Detections(), nil
}

// InferWithOptions performs inference with custom options
func (c *Client) InferWithOptions(
	ctx context.Context,
	frame *video.Frame,
	confidenceThreshold *float64,
	enabledClasses []string,
) (*InferenceResponse, error) {
	imageBase64, err := encodeFrame(frame)
	if err != nil {
		return nil, err
	}

	req := InferenceRequest{
		Image: imageBase64,
	}

	// Use provided options or defaults
	if confidenceThreshold != nil {
		req.ConfidenceThreshold = confidenceThreshold
	} else if c.defaultConfidence > 0 {
		threshold := c.defaultConfidence
		req.ConfidenceThreshold = &threshold
	}

	if len(enabledClasses) > 0 {
		req.EnabledClasses = enabledClasses
	} else if len(c.defaultEnabledClasses) > 0 {
		req.EnabledClasses = c.defaultEnabledClasses
	}

	return c.inferRequest(ctx, req)
}

// InferBatch performs batch inference on multiple frames
func (c *Client) InferBatch(ctx context.Context, frames []*video.Frame) (*BatchInferenceResponse, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames provided")
	}

	images := make([]string, len(frames))
	for i, frame := range frames {
		encoded, err := encodeFrame(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		images[i] = encoded
	}

	req := BatchInferenceRequest{
		Images: images,
	}
	if c.defaultConfidence > 0 {
		threshold := c.defaultConfidence
		req.ConfidenceThreshold = &threshold
	}
	if len(c.defaultEnabledClasses) > 0 {
		req.EnabledClasses = c.defaultEnabledClasses
	}

	url := c.serviceURL + "/api/v1/inference/batch"
	c.logger.Debug("Sending batch inference request", "url", url, "frame_count", len(frames))

	var batchResp BatchInferenceResponse
	if err := c.postJSON(ctx, url, req, &batchResp); err != nil {
		return nil, err
	}

	c.logger.Debug(
		"Batch inference completed",
		"frame_count", len(frames),
		"total_time_ms", batchResp.TotalInferenceTimeMs,
		"avg_time_ms", batchResp.AverageInferenceTimeMs,
	)

	return &batchResp, nil
}

// inferRequest performs a single inference request
func (c *Client) inferRequest(ctx context.Context, req InferenceRequest) (*InferenceResponse, error) {
	url := c.serviceURL + "/api/v1/inference"
	c.logger.Debug("Sending inference request", "model", c.name, "url", url)

	startTime := time.Now()
	var inferenceResp InferenceResponse
	if err := c.postJSON(ctx, url, req, &inferenceResp); err != nil {
		c.logger.Warn("Inference request failed", "model", c.name, "error", err)
		return nil, err
	}

	c.logger.Debug(
		"Inference completed",
		"model", c.name,
		"detection_count", inferenceResp.DetectionCount,
		"inference_time_ms", inferenceResp.InferenceTimeMs,
		"request_duration_ms", time.Since(startTime).Milliseconds(),
	)

	return &inferenceResp, nil
}

// InferWithRetry performs inference with retry logic
func (c *Client) InferWithRetry(
	ctx context.Context,
	frame *video.Frame,
	maxRetries int,
	retryDelay time.Duration,
) (*InferenceResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying inference", "attempt", attempt, "max_retries", maxRetries)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		resp, err := c.InferWithOptions(ctx, frame, nil, nil)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		c.logger.Warn("Inference attempt failed", "attempt", attempt+1, "error", err)
	}

	return nil, fmt.Errorf("inference failed after %d retries: %w", maxRetries, lastErr)
}

// GetStats retrieves inference statistics from the service
func (c *Client) GetStats(ctx context.Context) (*InferenceStats, error) {
	var stats InferenceStats
	if err := c.getJSON(ctx, c.serviceURL+"/api/v1/inference/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// HealthCheck checks if the inference service is ready to serve
func (c *Client) HealthCheck(ctx context.Context) error {
	return checkReady(ctx, c.httpClient, c.serviceURL)
}

// SetConfidenceThreshold updates the default confidence threshold
func (c *Client) SetConfidenceThreshold(threshold float64) {
	c.defaultConfidence = threshold
}

// SetEnabledClasses updates the default enabled classes
func (c *Client) SetEnabledClasses(classes []string) {
	c.defaultEnabledClasses = classes
}

func (c *Client) postJSON(ctx context.Context, url string, in, out interface{}) error {
	return postJSON(ctx, c.httpClient, url, in, out)
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return doJSON(c.httpClient, httpReq, out)
}

func encodeFrame(frame *video.Frame) (string, error) {
	if frame == nil {
		return "", fmt.Errorf("nil frame")
	}
	data, err := frame.JPEG(0)
	if err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out interface{}) error {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return doJSON(client, httpReq, out)
}

func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func checkReady(ctx context.Context, client *http.Client, serviceURL string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL+"/health/ready", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model service health check failed: status %d", resp.StatusCode)
	}
	return nil
}
