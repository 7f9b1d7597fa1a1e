package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/ai"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/config"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/speech"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/telemetry"
)

const requestIDHeader = "X-Request-ID"

// Server represents the web server service
type Server struct {
	*service.ServiceBase
	config     *config.WebConfig
	logger     *logger.Logger
	httpServer *http.Server
	router     *gin.Engine
	routesOnce sync.Once

	models          *ai.Models
	personFilter    detection.PersonFilter
	objectThreshold float64

	synth           speech.Synthesizer
	defaultLanguage string

	telemetryCollector TelemetryCollector // Optional telemetry collector for metrics
	svcManager         *service.Manager   // Optional, for service statuses
	version            string
	startTime          time.Time
}

// TelemetryCollector interface for accessing telemetry data
type TelemetryCollector interface {
	Snapshot() telemetry.Metrics
}

// NewServer creates a new web server service
func NewServer(cfg *config.WebConfig, log *logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		ServiceBase:     service.NewServiceBase("web-server", log),
		config:          cfg,
		logger:          log,
		models:          &ai.Models{},
		personFilter:    detection.DefaultPersonFilter(),
		defaultLanguage: "en",
		version:         "dev",
		startTime:       time.Now(),
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(s.ginLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	if cfg.MaxUploadBytes > 0 {
		router.Use(bodyLimit(cfg.MaxUploadBytes))
	}
	s.router = router

	return s
}

// SetVersion sets the application version
func (s *Server) SetVersion(version string) {
	s.version = version
}

// SetModels sets the models behind the detection endpoints and the
// post-processing parameters applied to their output
func (s *Server) SetModels(models *ai.Models, filter detection.PersonFilter, objectThreshold float64) {
	if models == nil {
		models = &ai.Models{}
	}
	s.models = models
	s.personFilter = filter
	s.objectThreshold = objectThreshold
}

// SetSpeech sets the synthesizer behind /speak
func (s *Server) SetSpeech(synth speech.Synthesizer, defaultLanguage string) {
	s.synth = synth
	if defaultLanguage != "" {
		s.defaultLanguage = defaultLanguage
	}
}

// SetTelemetryDependency sets dependency for the metrics API
func (s *Server) SetTelemetryDependency(collector TelemetryCollector) {
	s.telemetryCollector = collector
}

// SetServiceManager exposes service statuses on /api/status
func (s *Server) SetServiceManager(mgr *service.Manager) {
	s.svcManager = mgr
}

// Handler returns the router with all routes registered
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(s.setupRoutes)
	return s.router
}

// Start starts the web server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.LogInfo("Web server is disabled")
		s.GetStatus().SetStatus(service.StatusStopped)
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.LogError("Web server error", err, "address", addr)
		}
	}()

	s.GetStatus().SetStatus(service.StatusRunning)
	s.LogInfo("Web server started", "address", ln.Addr().String())
	return nil
}

// Stop stops the web server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.LogInfo("Stopping web server")
	err := s.httpServer.Shutdown(ctx)
	s.GetStatus().SetStatus(service.StatusStopped)
	return err
}

// setupRoutes sets up all routes
func (s *Server) setupRoutes() {
	s.router.POST("/detect_frame", s.handleDetectPersons)
	s.router.POST("/detect_persons", s.handleDetectPersons)
	s.router.POST("/detect_objects", s.handleDetectObjects)
	s.router.POST("/detect_currency", s.handleDetectCurrency)
	s.router.POST("/speak", s.handleSpeak)
	s.router.GET("/models_status", s.handleModelsStatus)

	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/status", s.handleStatus)
		api.GET("/metrics", s.handleMetrics)
		api.GET("/languages", s.handleLanguages)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// requestID tags every request with an id, reusing the caller's when given
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// ginLogger logs each request and reports it to the event bus
func (s *Server) ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		s.logger.ForRequest(c.GetString("request_id")).Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
		)

		route := c.FullPath()
		if route == "" || c.Request.Method == http.MethodOptions {
			return
		}
		s.PublishEvent(service.EventTypeRequestCompleted, map[string]interface{}{
			"route":      route,
			"method":     c.Request.Method,
			"status":     status,
			"latency_ms": float64(latency.Microseconds()) / 1000,
		})
	}
}

// corsMiddleware allows any origin; the browser client is served elsewhere
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
