package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("VISION_CONFIG", "")
	t.Setenv("PORT", "")

	path := writeConfig(t, "web:\n  enabled: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5000, cfg.Web.Port)
	assert.Equal(t, BackendHTTP, cfg.Models.Person.Backend)
	assert.Equal(t, BackendStatic, cfg.Models.Currency.Backend)
	assert.Equal(t, "10", cfg.Models.Currency.StaticValue)
	assert.Equal(t, "person", cfg.Detection.PersonClass)
	assert.Equal(t, 0.6, cfg.Detection.PersonThreshold)
	assert.Equal(t, 1.7, cfg.Detection.ReferenceHeightM)
	assert.Equal(t, 0.0, cfg.Detection.ObjectThreshold)
	assert.Nil(t, cfg.Detection.PersonClassID)
	assert.Equal(t, "en", cfg.Speech.DefaultLanguage)
	assert.Equal(t, 7*24*time.Hour, cfg.Speech.Cache.TTL)

	require.NoError(t, cfg.Validate())
}

func TestLoad_ParsesSections(t *testing.T) {
	t.Setenv("PORT", "")

	path := writeConfig(t, `
log:
  level: debug
  format: json
web:
  enabled: true
  port: 9000
models:
  person:
    backend: onnx
    model_path: /models/yolov8n.onnx
    input_size: 320
  objects:
    backend: http
    service_url: http://inference:8000
    timeout: 5s
  currency:
    backend: http
    service_url: http://currency:9000
detection:
  person_threshold: 0.75
  person_class_id: 0
speech:
  cache:
    enabled: true
    ttl: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, BackendONNX, cfg.Models.Person.Backend)
	assert.Equal(t, 320, cfg.Models.Person.InputSize)
	assert.Equal(t, 5*time.Second, cfg.Models.Objects.Timeout)
	assert.Equal(t, "http://currency:9000", cfg.Models.Currency.ServiceURL)
	assert.Equal(t, 0.75, cfg.Detection.PersonThreshold)
	require.NotNil(t, cfg.Detection.PersonClassID)
	assert.Equal(t, 0, *cfg.Detection.PersonClassID)
	assert.True(t, cfg.Speech.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Speech.Cache.TTL)

	require.NoError(t, cfg.Validate())
}

func TestLoad_PortFromEnv(t *testing.T) {
	t.Setenv("PORT", "8088")

	cfg, err := Load(writeConfig(t, "web:\n  port: 7000\n"))
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Web.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "web: [unterminated"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	cfg.Log.Level = "loud"
	cfg.Models.Person.Backend = "tensorflow"
	cfg.Models.Objects.Backend = BackendONNX
	cfg.Models.Objects.InputSize = 100
	cfg.Detection.PersonThreshold = 1.5
	negative := -1
	cfg.Detection.PersonClassID = &negative
	cfg.Speech.BaseURL = "ftp://example.com"

	err = cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"invalid log.level",
		"invalid models.person.backend",
		"models.objects.model_path is required",
		"models.objects.input_size",
		"detection.person_threshold",
		"detection.person_class_id",
		"speech.base_url",
	} {
		assert.True(t, strings.Contains(msg, want), "expected %q in %q", want, msg)
	}
}

func TestValidate_PortClash(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := Load(writeConfig(t, "web:\n  enabled: true\n  port: 6000\nhealth:\n  enabled: true\n  port: 6000\n"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}
