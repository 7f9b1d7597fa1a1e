package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by the models section
const (
	BackendHTTP   = "http"
	BackendONNX   = "onnx"
	BackendStatic = "static"
)

// Config represents the application configuration
type Config struct {
	Web       WebConfig       `yaml:"web"`
	Health    HealthConfig    `yaml:"health"`
	Models    ModelsConfig    `yaml:"models"`
	Detection DetectionConfig `yaml:"detection"`
	Speech    SpeechConfig    `yaml:"speech"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log,omitempty"`
}

// WebConfig contains the public API server configuration
type WebConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// HealthConfig contains the health probe server configuration
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// ModelsConfig selects and configures the external model backends
type ModelsConfig struct {
	Person   DetectorConfig `yaml:"person"`
	Objects  DetectorConfig `yaml:"objects"`
	Currency CurrencyConfig `yaml:"currency"`
	// ReadinessInterval is how often HTTP backends are polled for readiness
	ReadinessInterval time.Duration `yaml:"readiness_interval"`
	ONNX              ONNXConfig    `yaml:"onnx"`
}

// DetectorConfig configures one detection model
type DetectorConfig struct {
	Backend    string        `yaml:"backend"` // http or onnx
	ServiceURL string        `yaml:"service_url"`
	Timeout    time.Duration `yaml:"timeout"`
	ModelPath  string        `yaml:"model_path"`
	InputSize  int           `yaml:"input_size"`
	// ScoreThreshold is the backend-side cut applied before post-processing
	ScoreThreshold float64  `yaml:"score_threshold"`
	EnabledClasses []string `yaml:"enabled_classes"`
}

// CurrencyConfig configures the currency classifier
type CurrencyConfig struct {
	Backend     string        `yaml:"backend"` // http or static
	ServiceURL  string        `yaml:"service_url"`
	Timeout     time.Duration `yaml:"timeout"`
	StaticValue string        `yaml:"static_value"`
}

// ONNXConfig contains settings shared by local ONNX runtime backends
type ONNXConfig struct {
	SharedLibraryPath string `yaml:"shared_library_path"`
	PoolSize          int    `yaml:"pool_size"`
	IntraOpThreads    int    `yaml:"intra_op_threads"`
}

// DetectionConfig contains the post-processing parameters
type DetectionConfig struct {
	PersonClass string `yaml:"person_class"`
	// PersonClassID matches backends that report only class ids
	PersonClassID    *int    `yaml:"person_class_id"`
	PersonThreshold  float64 `yaml:"person_threshold"`
	ObjectThreshold  float64 `yaml:"object_threshold"`
	ReferenceHeightM float64 `yaml:"reference_height_m"`
}

// SpeechConfig contains text-to-speech configuration
type SpeechConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	DefaultLanguage string        `yaml:"default_language"`
	Cache           SpeechCache   `yaml:"cache"`
}

// SpeechCache contains the synthesized audio cache configuration
type SpeechCache struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

// TelemetryConfig contains metrics collection configuration
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. An empty path falls back to
// $VISION_CONFIG and then to the default search locations; when no file is
// found at all the built-in defaults are used.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv("VISION_CONFIG")
	}
	if configPath == "" {
		configPath = getDefaultConfigPath()
	}

	var cfg Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	} else {
		cfg.Web.Enabled = true
		cfg.Health.Enabled = true
		cfg.Telemetry.Enabled = true
	}

	cfg.applyEnv()
	cfg.setDefaults()

	return &cfg, nil
}

// getDefaultConfigPath returns the first existing default location or ""
func getDefaultConfigPath() string {
	paths := []string{
		"./config/config.dev.yaml",
		"./config/config.yaml",
		"../config/config.yaml",
		"/etc/vision-assistant/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnv applies environment overrides
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Web.Port = p
		}
	}
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 5000
	}
	if c.Web.ReadTimeout == 0 {
		c.Web.ReadTimeout = 30 * time.Second
	}
	if c.Web.WriteTimeout == 0 {
		c.Web.WriteTimeout = 60 * time.Second
	}
	if c.Web.MaxUploadBytes == 0 {
		c.Web.MaxUploadBytes = 16 << 20
	}

	if c.Health.Host == "" {
		c.Health.Host = "0.0.0.0"
	}
	if c.Health.Port == 0 {
		c.Health.Port = 5001
	}

	setDetectorDefaults(&c.Models.Person, 640)
	setDetectorDefaults(&c.Models.Objects, 640)
	if c.Models.Currency.Backend == "" {
		c.Models.Currency.Backend = BackendStatic
	}
	if c.Models.Currency.StaticValue == "" {
		c.Models.Currency.StaticValue = "10"
	}
	if c.Models.Currency.Timeout == 0 {
		c.Models.Currency.Timeout = 30 * time.Second
	}
	if c.Models.ReadinessInterval == 0 {
		c.Models.ReadinessInterval = 10 * time.Second
	}
	if c.Models.ONNX.PoolSize == 0 {
		c.Models.ONNX.PoolSize = 2
	}

	if c.Detection.PersonClass == "" {
		c.Detection.PersonClass = "person"
	}
	if c.Detection.PersonThreshold == 0 {
		c.Detection.PersonThreshold = 0.6
	}
	if c.Detection.ReferenceHeightM == 0 {
		c.Detection.ReferenceHeightM = 1.7
	}

	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = "https://translate.google.com"
	}
	if c.Speech.Timeout == 0 {
		c.Speech.Timeout = 15 * time.Second
	}
	if c.Speech.DefaultLanguage == "" {
		c.Speech.DefaultLanguage = "en"
	}
	if c.Speech.Cache.Path == "" {
		c.Speech.Cache.Path = filepath.Join("data", "speech-cache.db")
	}
	if c.Speech.Cache.TTL == 0 {
		c.Speech.Cache.TTL = 7 * 24 * time.Hour
	}
}

func setDetectorDefaults(d *DetectorConfig, inputSize int) {
	if d.Backend == "" {
		d.Backend = BackendHTTP
	}
	if d.ServiceURL == "" {
		d.ServiceURL = "http://localhost:8000"
	}
	if d.Timeout == 0 {
		d.Timeout = 30 * time.Second
	}
	if d.InputSize == 0 {
		d.InputSize = inputSize
	}
}
