package web

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/ai"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/speech"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/video"
)

type frameRequest struct {
	Frame string `json:"frame"`
}

type speakRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type personsResponse struct {
	Persons      []detection.PersonDetection `json:"persons"`
	PersonCount  int                         `json:"person_count"`
	FrameHeight  int                         `json:"frame_height"`
	FrameWidth   int                         `json:"frame_width"`
	Objects      []detection.PersonDetection `json:"objects"`
	IsModelReady bool                        `json:"is_model_ready"`
}

type objectsResponse struct {
	Objects      []detection.ObjectDetection `json:"objects"`
	FrameHeight  int                         `json:"frame_height"`
	FrameWidth   int                         `json:"frame_width"`
	IsModelReady bool                        `json:"is_model_ready"`
}

type currencyResponse struct {
	CurrencyValue *string `json:"currency_value"`
	IsModelReady  bool    `json:"is_model_ready"`
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "web-server",
	})
}

// handleStatus handles the system status endpoint
func (s *Server) handleStatus(c *gin.Context) {
	uptime := time.Since(s.startTime)

	health := "healthy"
	if s.GetStatus().GetStatus() != service.StatusRunning {
		health = "unhealthy"
	} else if !s.models.Ready() {
		health = "degraded"
	}

	services := make(map[string]service.Snapshot)
	if s.svcManager != nil {
		for name, st := range s.svcManager.GetAllStatuses() {
			services[name] = st.Snapshot()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         health,
		"uptime":         uptime.String(),
		"uptime_seconds": int64(uptime.Seconds()),
		"version":        s.version,
		"models":         s.models.Statuses(),
		"services":       services,
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles the metrics endpoint
func (s *Server) handleMetrics(c *gin.Context) {
	if s.telemetryCollector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Telemetry collector not available",
		})
		return
	}
	c.JSON(http.StatusOK, s.telemetryCollector.Snapshot())
}

// handleLanguages lists the languages /speak accepts
func (s *Server) handleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":   s.defaultLanguage,
		"languages": speech.Languages(),
	})
}

// handleModelsStatus reports whether the models have finished loading
func (s *Server) handleModelsStatus(c *gin.Context) {
	ready := s.models.Ready()
	message := "Models ready"
	if !ready {
		message = "Models are being prepared..."
	}

	c.JSON(http.StatusOK, gin.H{
		"ready":   ready,
		"message": message,
		"models":  s.models.Statuses(),
	})
}

// handleDetectPersons serves /detect_frame and /detect_persons
func (s *Server) handleDetectPersons(c *gin.Context) {
	start := time.Now()
	route := c.FullPath()

	frame, ok := s.bindFrame(c)
	if !ok {
		return
	}

	resp := personsResponse{
		Persons:     []detection.PersonDetection{},
		Objects:     []detection.PersonDetection{},
		FrameHeight: frame.Height,
		FrameWidth:  frame.Width,
	}

	dets, ok := s.infer(c, s.models.Person, frame)
	if !ok {
		return
	}
	if dets == nil {
		s.logger.Debug("Person model not ready", "route", route)
		c.JSON(http.StatusOK, resp)
		return
	}

	summary := detection.AnnotatePersons(dets, frame.Width, s.personFilter)
	resp.Persons = summary.Persons
	resp.PersonCount = summary.Count
	resp.Objects = summary.Persons
	resp.IsModelReady = true

	s.PublishEvent(service.EventTypeDetection, map[string]interface{}{
		"route":      route,
		"model":      s.models.Person.Name(),
		"detections": len(dets),
		"persons":    summary.Count,
	})

	if summary.Skipped > 0 {
		s.logger.Debug("Skipped degenerate person boxes", "count", summary.Skipped)
	}
	s.logger.ForRequest(c.GetString("request_id")).Info("Frame processed",
		"route", route,
		"processing_time", time.Since(start).Round(time.Millisecond).String(),
		"person_count", summary.Count,
	)

	c.JSON(http.StatusOK, resp)
}

// handleDetectObjects serves /detect_objects
func (s *Server) handleDetectObjects(c *gin.Context) {
	frame, ok := s.bindFrame(c)
	if !ok {
		return
	}

	resp := objectsResponse{
		Objects:     []detection.ObjectDetection{},
		FrameHeight: frame.Height,
		FrameWidth:  frame.Width,
	}

	dets, ok := s.infer(c, s.models.Objects, frame)
	if !ok {
		return
	}
	if dets == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Objects = detection.AnnotateObjects(dets, frame.Width, s.objectThreshold)
	resp.IsModelReady = true

	s.PublishEvent(service.EventTypeDetection, map[string]interface{}{
		"route":      c.FullPath(),
		"model":      s.models.Objects.Name(),
		"detections": len(resp.Objects),
	})

	c.JSON(http.StatusOK, resp)
}

// handleDetectCurrency serves /detect_currency for a multipart "image" upload
func (s *Server) handleDetectCurrency(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		s.badRequest(c, "No image provided", err)
		return
	}

	f, err := file.Open()
	if err != nil {
		s.serverError(c, "Failed to read image", err)
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		s.serverError(c, "Failed to read image", err)
		return
	}

	frame, err := video.DecodeFrame(data)
	if err != nil {
		s.serverError(c, err.Error(), err)
		return
	}

	classifier := s.models.Currency
	if classifier == nil || !classifier.IsReady() {
		c.JSON(http.StatusOK, currencyResponse{})
		return
	}

	start := time.Now()
	label, err := classifier.Classify(c.Request.Context(), frame)
	if errors.Is(err, ai.ErrModelNotReady) {
		c.JSON(http.StatusOK, currencyResponse{})
		return
	}
	if err != nil {
		s.serverError(c, err.Error(), err)
		return
	}

	s.PublishEvent(service.EventTypeInference, map[string]interface{}{
		"model":       classifier.Name(),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
	})
	s.PublishEvent(service.EventTypeCurrencyResult, map[string]interface{}{"label": label})

	c.JSON(http.StatusOK, currencyResponse{CurrencyValue: &label, IsModelReady: true})
}

// handleSpeak serves /speak with MP3 audio
func (s *Server) handleSpeak(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.badRequest(c, "No text provided", speech.ErrEmptyText)
		return
	}
	if req.Language == "" {
		req.Language = s.defaultLanguage
	}

	if s.synth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Speech synthesis not available"})
		return
	}

	audio, err := s.synth.Synthesize(c.Request.Context(), req.Text, req.Language)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyText) || errors.Is(err, speech.ErrUnsupportedLanguage) {
			s.badRequest(c, err.Error(), err)
			return
		}
		s.serverError(c, err.Error(), err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=speech.mp3")
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

// bindFrame parses and decodes the JSON frame payload. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) bindFrame(c *gin.Context) (*video.Frame, bool) {
	var req frameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "Invalid request body", err)
		return nil, false
	}
	if req.Frame == "" {
		s.badRequest(c, "No frame data provided", nil)
		return nil, false
	}

	frame, err := video.DecodeDataURL(req.Frame)
	if err != nil {
		if errors.Is(err, video.ErrMalformedFrame) {
			s.badRequest(c, err.Error(), err)
		} else {
			s.serverError(c, err.Error(), err)
		}
		return nil, false
	}
	return frame, true
}

// infer runs detector over frame. A nil result with ok set means the model
// is not ready and the caller should answer with an empty result.
func (s *Server) infer(c *gin.Context, detector ai.Detector, frame *video.Frame) ([]detection.Detection, bool) {
	if detector == nil || !detector.IsReady() {
		return nil, true
	}

	start := time.Now()
	dets, err := detector.Infer(c.Request.Context(), frame)
	if errors.Is(err, ai.ErrModelNotReady) {
		return nil, true
	}
	if err != nil {
		s.serverError(c, err.Error(), err)
		return nil, false
	}

	s.PublishEvent(service.EventTypeInference, map[string]interface{}{
		"model":       detector.Name(),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
	})

	if dets == nil {
		dets = []detection.Detection{}
	}
	return dets, true
}

func (s *Server) badRequest(c *gin.Context, msg string, err error) {
	s.logger.ForRequest(c.GetString("request_id")).Warn("Bad request",
		"route", c.FullPath(),
		"message", msg,
		"error", err,
	)
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (s *Server) serverError(c *gin.Context, msg string, err error) {
	s.logger.ForRequest(c.GetString("request_id")).Error("Request failed",
		"route", c.FullPath(),
		"error", err,
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
