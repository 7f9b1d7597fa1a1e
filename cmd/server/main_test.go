package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/ai"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/ai/onnx"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/config"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/health"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
)

func loadConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	t.Setenv("PORT", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func setupWiring(t *testing.T, content string) (*ai.Models, *service.Manager) {
	t.Helper()
	cfg := loadConfig(t, content)
	log := logger.NewNopLogger()
	svcMgr := service.NewManager(log)
	healthMgr := health.NewManager("127.0.0.1:0", log, svcMgr)

	models, err := buildModels(cfg, log, svcMgr, healthMgr)
	require.NoError(t, err)
	return models, svcMgr
}

func TestBuildModels_SharedONNXModelKeepsEndpointFilters(t *testing.T) {
	models, svcMgr := setupWiring(t, `
models:
  person:
    backend: onnx
    model_path: yolov8n.onnx
    score_threshold: 0.4
    enabled_classes: ["person"]
  objects:
    backend: onnx
    model_path: yolov8n.onnx
`)

	person, ok := models.Person.(*onnx.View)
	require.True(t, ok)
	objects, ok := models.Objects.(*onnx.View)
	require.True(t, ok)

	assert.Equal(t, "person-detector", person.Name())
	assert.Equal(t, "object-detector", objects.Name())
	assert.Same(t, person.Model(), objects.Model(), "one loaded model serves both endpoints")

	assert.Equal(t, []string{"person"}, person.EnabledClasses())
	assert.Empty(t, objects.EnabledClasses(), "object detection keeps every class")
	assert.Equal(t, 0.4, person.ScoreThreshold())
	assert.Equal(t, onnx.DefaultScoreThreshold, objects.ScoreThreshold())

	// One model service; static currency needs no readiness monitor
	assert.Equal(t, 1, svcMgr.GetServiceCount())
	assert.NotNil(t, svcMgr.GetServiceStatus("onnx:yolov8n.onnx"))
}

func TestBuildModels_SeparateONNXModels(t *testing.T) {
	models, svcMgr := setupWiring(t, `
models:
  person:
    backend: onnx
    model_path: person.onnx
  objects:
    backend: onnx
    model_path: coco.onnx
    input_size: 320
`)

	person := models.Person.(*onnx.View)
	objects := models.Objects.(*onnx.View)
	assert.NotSame(t, person.Model(), objects.Model())
	assert.Equal(t, 2, svcMgr.GetServiceCount())
}

func TestBuildModels_HTTPBackends(t *testing.T) {
	models, svcMgr := setupWiring(t, `
models:
  person:
    backend: http
    service_url: http://inference:8000
  objects:
    backend: http
    service_url: http://inference:8000
  currency:
    backend: http
    service_url: http://currency:9000
`)

	assert.IsType(t, &ai.Client{}, models.Person)
	assert.Equal(t, "person-detector", models.Person.Name())
	assert.Equal(t, "object-detector", models.Objects.Name())
	assert.IsType(t, &ai.CurrencyClient{}, models.Currency)

	// Only the readiness monitor is a service
	assert.Equal(t, 1, svcMgr.GetServiceCount())
	assert.NotNil(t, svcMgr.GetServiceStatus("model-monitor"))
	assert.False(t, models.Ready(), "remote models start unready")
}
