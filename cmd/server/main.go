package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/ai"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/ai/onnx"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/config"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/health"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/speech"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/telemetry"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/web"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (short)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.LogConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "vision-assistant",
		Version: version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting vision assistant",
		"version", version,
		"build_time", buildTime,
		"git_commit", gitCommit,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svcMgr := service.NewManager(log)
	healthMgr := health.NewManager(
		net.JoinHostPort(cfg.Health.Host, strconv.Itoa(cfg.Health.Port)), log, svcMgr)
	healthMgr.RegisterChecker(&health.SystemChecker{})

	// Telemetry first so it sees every later event
	collector := telemetry.NewCollector(cfg.Telemetry.Enabled, log)
	svcMgr.Register(collector)

	models, err := buildModels(cfg, log, svcMgr, healthMgr)
	if err != nil {
		log.Error("Failed to configure models", "error", err)
		os.Exit(1)
	}

	synth, err := buildSpeech(cfg, log, svcMgr, healthMgr)
	if err != nil {
		log.Error("Failed to configure speech synthesis", "error", err)
		os.Exit(1)
	}

	webServer := web.NewServer(&cfg.Web, log)
	webServer.SetVersion(version)
	webServer.SetModels(models, detection.PersonFilter{
		ClassName:  cfg.Detection.PersonClass,
		ClassID:    cfg.Detection.PersonClassID,
		Threshold:  cfg.Detection.PersonThreshold,
		RealHeight: cfg.Detection.ReferenceHeightM,
	}, cfg.Detection.ObjectThreshold)
	webServer.SetSpeech(synth, cfg.Speech.DefaultLanguage)
	webServer.SetServiceManager(svcMgr)
	if cfg.Telemetry.Enabled {
		webServer.SetTelemetryDependency(collector)
	}
	svcMgr.Register(webServer)

	if cfg.Health.Enabled {
		if err := healthMgr.Start(ctx); err != nil {
			log.Error("Failed to start health check server", "error", err)
			os.Exit(1)
		}
	}

	// A model that fails to load leaves its endpoints answering "not ready";
	// only the API server itself is required.
	if err := svcMgr.Start(ctx); err != nil {
		if st := svcMgr.GetServiceStatus(webServer.Name()); st != nil && st.GetError() != nil {
			log.Error("Failed to start web server", "error", st.GetError())
			os.Exit(1)
		}
		log.Warn("Some services failed to start", "error", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received shutdown signal", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	err = multierr.Combine(
		healthMgr.Stop(shutdownCtx),
		svcMgr.Shutdown(shutdownCtx),
	)
	if err != nil {
		log.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Shutdown complete")
}

// buildModels creates the configured backends, registers the ones that are
// services and adds a readiness monitor for the remote ones
func buildModels(cfg *config.Config, log *logger.Logger, svcMgr *service.Manager, healthMgr *health.Manager) (*ai.Models, error) {
	var (
		probes []ai.Prober
		shared = make(map[string]*onnx.Detector)
	)

	newDetector := func(name string, dc config.DetectorConfig) (ai.Detector, error) {
		switch dc.Backend {
		case config.BackendONNX:
			// Endpoints on the same model file share one loaded model; each
			// keeps its own score threshold and class filter.
			key := fmt.Sprintf("%s@%d", dc.ModelPath, dc.InputSize)
			d, ok := shared[key]
			if !ok {
				var err error
				d, err = onnx.NewDetector(onnx.Config{
					Name:              "onnx:" + dc.ModelPath,
					ModelPath:         dc.ModelPath,
					SharedLibraryPath: cfg.Models.ONNX.SharedLibraryPath,
					InputSize:         dc.InputSize,
					PoolSize:          cfg.Models.ONNX.PoolSize,
					IntraOpThreads:    cfg.Models.ONNX.IntraOpThreads,
				}, log.Named("onnx"))
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				shared[key] = d
				svcMgr.Register(d)
			}
			return d.View(name, dc.ScoreThreshold, dc.EnabledClasses), nil
		default:
			c := ai.NewClient(ai.ClientConfig{
				Name:                name,
				ServiceURL:          dc.ServiceURL,
				Timeout:             dc.Timeout,
				ConfidenceThreshold: dc.ScoreThreshold,
				EnabledClasses:      dc.EnabledClasses,
			}, log.Named(name))
			probes = append(probes, c)
			healthMgr.RegisterChecker(health.NewAIServiceChecker(name, dc.ServiceURL))
			return c, nil
		}
	}

	person, err := newDetector("person-detector", cfg.Models.Person)
	if err != nil {
		return nil, err
	}
	objects, err := newDetector("object-detector", cfg.Models.Objects)
	if err != nil {
		return nil, err
	}

	var currency ai.CurrencyClassifier
	switch cfg.Models.Currency.Backend {
	case config.BackendHTTP:
		c := ai.NewCurrencyClient("currency-classifier", cfg.Models.Currency.ServiceURL,
			cfg.Models.Currency.Timeout, log.Named("currency-classifier"))
		probes = append(probes, c)
		currency = c
	default:
		currency = ai.NewStaticCurrencyClassifier(cfg.Models.Currency.StaticValue)
	}

	models := &ai.Models{Person: person, Objects: objects, Currency: currency}
	healthMgr.RegisterChecker(health.NewModelChecker(person))
	healthMgr.RegisterChecker(health.NewModelChecker(objects))
	healthMgr.RegisterChecker(health.NewModelChecker(currency))

	if len(probes) > 0 {
		svcMgr.Register(ai.NewMonitor(cfg.Models.ReadinessInterval, log, probes...))
	}

	return models, nil
}

// buildSpeech creates the TTS backend, fronted by the audio cache when enabled
func buildSpeech(cfg *config.Config, log *logger.Logger, svcMgr *service.Manager, healthMgr *health.Manager) (speech.Synthesizer, error) {
	tts := speech.NewGoogleTTS(speech.GoogleTTSConfig{
		BaseURL: cfg.Speech.BaseURL,
		Timeout: cfg.Speech.Timeout,
	}, log.Named("tts"))

	var cache *speech.Cache
	if cfg.Speech.Cache.Enabled {
		dir := filepath.Dir(cfg.Speech.Cache.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}

		c, err := speech.NewCache(cfg.Speech.Cache.Path, cfg.Speech.Cache.TTL, log)
		if err != nil {
			// Synthesis still works uncached
			log.Warn("Speech cache unavailable", "error", err)
		} else {
			cache = c
			svcMgr.Register(cache)
			healthMgr.RegisterChecker(health.NewDatabaseChecker("speech-cache", cache))
			healthMgr.RegisterChecker(health.NewStorageChecker(dir))
		}
	}

	synth := speech.NewCachedSynthesizer(tts, cache, log)
	synth.SetEventBus(svcMgr.GetEventBus())
	return synth, nil
}
