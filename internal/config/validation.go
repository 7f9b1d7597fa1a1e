package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate validates the configuration with detailed error messages
func (c *Config) Validate() error {
	var errors []string

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, fmt.Sprintf("invalid log.level: %s (must be: debug, info, warn, error, fatal)", c.Log.Level))
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log.format: %s (must be: text or json)", c.Log.Format))
	}

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		errors = append(errors, fmt.Sprintf("web.port must be between 0 and 65535, got: %d", c.Web.Port))
	}
	if c.Health.Enabled && (c.Health.Port < 0 || c.Health.Port > 65535) {
		errors = append(errors, fmt.Sprintf("health.port must be between 0 and 65535, got: %d", c.Health.Port))
	}
	if c.Web.Enabled && c.Health.Enabled && c.Web.Port != 0 && c.Web.Port == c.Health.Port && c.Web.Host == c.Health.Host {
		errors = append(errors, fmt.Sprintf("web.port and health.port must differ, both are %d", c.Web.Port))
	}
	if c.Web.MaxUploadBytes < 0 {
		errors = append(errors, fmt.Sprintf("web.max_upload_bytes must be >= 0, got: %d", c.Web.MaxUploadBytes))
	}

	errors = append(errors, validateDetector("models.person", c.Models.Person)...)
	errors = append(errors, validateDetector("models.objects", c.Models.Objects)...)

	switch c.Models.Currency.Backend {
	case BackendStatic:
	case BackendHTTP:
		if err := validateURL(c.Models.Currency.ServiceURL); err != nil {
			errors = append(errors, fmt.Sprintf("models.currency.service_url: %v", err))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid models.currency.backend: %s (must be: http or static)", c.Models.Currency.Backend))
	}

	if c.Models.ReadinessInterval <= 0 {
		errors = append(errors, fmt.Sprintf("models.readiness_interval must be > 0, got: %v", c.Models.ReadinessInterval))
	}
	if c.Models.ONNX.PoolSize <= 0 {
		errors = append(errors, fmt.Sprintf("models.onnx.pool_size must be > 0, got: %d", c.Models.ONNX.PoolSize))
	}

	if c.Detection.PersonClassID != nil && *c.Detection.PersonClassID < 0 {
		errors = append(errors, fmt.Sprintf("detection.person_class_id must be >= 0, got: %d", *c.Detection.PersonClassID))
	}
	if c.Detection.PersonThreshold < 0 || c.Detection.PersonThreshold > 1 {
		errors = append(errors, fmt.Sprintf("detection.person_threshold must be between 0 and 1, got: %.2f", c.Detection.PersonThreshold))
	}
	if c.Detection.ObjectThreshold < 0 || c.Detection.ObjectThreshold > 1 {
		errors = append(errors, fmt.Sprintf("detection.object_threshold must be between 0 and 1, got: %.2f", c.Detection.ObjectThreshold))
	}
	if c.Detection.ReferenceHeightM <= 0 {
		errors = append(errors, fmt.Sprintf("detection.reference_height_m must be > 0, got: %.2f", c.Detection.ReferenceHeightM))
	}

	if err := validateURL(c.Speech.BaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("speech.base_url: %v", err))
	}
	if c.Speech.Cache.Enabled && c.Speech.Cache.Path == "" {
		errors = append(errors, "speech.cache.path is required when the cache is enabled")
	}
	if c.Speech.Cache.TTL < 0 {
		errors = append(errors, fmt.Sprintf("speech.cache.ttl must be >= 0, got: %v", c.Speech.Cache.TTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateDetector(section string, d DetectorConfig) []string {
	var errors []string

	switch d.Backend {
	case BackendHTTP:
		if err := validateURL(d.ServiceURL); err != nil {
			errors = append(errors, fmt.Sprintf("%s.service_url: %v", section, err))
		}
		if d.Timeout <= 0 {
			errors = append(errors, fmt.Sprintf("%s.timeout must be > 0, got: %v", section, d.Timeout))
		}
	case BackendONNX:
		if d.ModelPath == "" {
			errors = append(errors, fmt.Sprintf("%s.model_path is required for the onnx backend", section))
		}
		if d.InputSize <= 0 || d.InputSize%32 != 0 {
			errors = append(errors, fmt.Sprintf("%s.input_size must be a positive multiple of 32, got: %d", section, d.InputSize))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid %s.backend: %s (must be: http or onnx)", section, d.Backend))
	}

	if d.ScoreThreshold < 0 || d.ScoreThreshold > 1 {
		errors = append(errors, fmt.Sprintf("%s.score_threshold must be between 0 and 1, got: %.2f", section, d.ScoreThreshold))
	}

	return errors
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
