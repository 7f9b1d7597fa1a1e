package onnx

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/ai"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/logger"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/service"
	"github.com/DivyaMaddipati/currency-vision-assistant/internal/video"
)

// DefaultScoreThreshold is the candidate score cut used when none is set
const DefaultScoreThreshold = 0.25

// Config contains configuration for a local ONNX detector
type Config struct {
	Name              string
	ModelPath         string
	SharedLibraryPath string
	InputSize         int
	PoolSize          int
	IntraOpThreads    int
	AcquireTimeout    time.Duration
	ScoreThreshold    float64
	EnabledClasses    []string
	// Labels maps class ids to names; COCO when empty
	Labels []string
}

// Detector runs a YOLO model locally. The model is loaded when the service
// starts and released when it stops.
type Detector struct {
	*service.ServiceBase

	cfg     Config
	enabled map[string]bool

	mu    sync.RWMutex
	pool  *pool
	ready atomic.Bool
}

// NewDetector creates a detector service for cfg
func NewDetector(cfg Config, log *logger.Logger) (*Detector, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if cfg.InputSize%32 != 0 {
		return nil, fmt.Errorf("input size %d is not a multiple of 32", cfg.InputSize)
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = DefaultScoreThreshold
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = COCOClasses
	}
	if cfg.Name == "" {
		cfg.Name = "onnx-detector"
	}

	return &Detector{
		ServiceBase: service.NewServiceBase(cfg.Name, log),
		cfg:         cfg,
		enabled:     classSet(cfg.EnabledClasses),
	}, nil
}

// Start loads the model into the session pool
func (d *Detector) Start(ctx context.Context) error {
	d.GetStatus().SetStatus(service.StatusStarting)

	if err := acquireEnvironment(d.cfg.SharedLibraryPath); err != nil {
		d.GetStatus().SetError(err)
		return err
	}

	sc := sessionConfig{
		modelPath:  d.cfg.ModelPath,
		inputSize:  d.cfg.InputSize,
		numClasses: len(d.cfg.Labels),
		threads:    d.cfg.IntraOpThreads,
	}
	p, err := newPool(d.cfg.PoolSize, d.cfg.AcquireTimeout, func() (*session, error) {
		return newSession(sc)
	})
	if err != nil {
		_ = releaseEnvironment()
		d.GetStatus().SetError(err)
		return fmt.Errorf("failed to load model %s: %w", d.cfg.ModelPath, err)
	}

	d.mu.Lock()
	d.pool = p
	d.mu.Unlock()
	d.ready.Store(true)

	d.GetStatus().SetStatus(service.StatusRunning)
	d.LogInfo("ONNX model loaded",
		"model_path", d.cfg.ModelPath,
		"input_size", d.cfg.InputSize,
		"pool_size", p.size,
	)
	d.PublishEvent(service.EventTypeModelReady, map[string]interface{}{"model": d.Name()})
	return nil
}

// Stop releases the sessions and the runtime environment. Requests still
// holding a session are waited for until ctx is done; the environment is
// only destroyed once all sessions are gone.
func (d *Detector) Stop(ctx context.Context) error {
	d.ready.Store(false)

	d.mu.Lock()
	p := d.pool
	d.pool = nil
	d.mu.Unlock()

	if p == nil {
		return nil
	}

	d.GetStatus().SetStatus(service.StatusStopping)
	if err := p.close(ctx); err != nil {
		d.GetStatus().SetError(err)
		return fmt.Errorf("failed to drain sessions: %w", err)
	}
	err := releaseEnvironment()
	d.GetStatus().SetStatus(service.StatusStopped)
	d.LogInfo("ONNX model unloaded")
	d.PublishEvent(service.EventTypeModelUnready, map[string]interface{}{"model": d.Name()})
	return err
}

// IsReady reports whether the model is loaded
func (d *Detector) IsReady() bool {
	return d.ready.Load()
}

// Metrics returns the session pool metrics
func (d *Detector) Metrics() PoolMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pool == nil {
		return PoolMetrics{}
	}
	return d.pool.getMetrics()
}

// Infer runs the model over frame and returns detections in descending
// confidence order
func (d *Detector) Infer(ctx context.Context, frame *video.Frame) ([]detection.Detection, error) {
	return d.infer(ctx, frame, d.cfg.ScoreThreshold, d.enabled)
}

// View returns a detector named name that shares d's loaded model and
// session pool but applies its own score threshold and class filter
func (d *Detector) View(name string, scoreThreshold float64, enabledClasses []string) *View {
	if scoreThreshold <= 0 {
		scoreThreshold = DefaultScoreThreshold
	}
	return &View{
		model:    d,
		name:     name,
		minScore: scoreThreshold,
		classes:  enabledClasses,
		enabled:  classSet(enabledClasses),
	}
}

func (d *Detector) infer(ctx context.Context, frame *video.Frame, minScore float64, enabled map[string]bool) ([]detection.Detection, error) {
	d.mu.RLock()
	p := d.pool
	d.mu.RUnlock()
	if p == nil || !d.IsReady() {
		return nil, ai.ErrModelNotReady
	}
	if frame == nil || frame.Image == nil {
		return nil, fmt.Errorf("frame has no decoded image")
	}

	s, err := p.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session: %w", err)
	}
	defer p.release(s)

	start := time.Now()
	fillInput(frame.Image, d.cfg.InputSize, s.input.GetData())

	if err := s.run.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	cands, err := decodeOutput(s.output.GetData(), len(d.cfg.Labels), numAnchors(d.cfg.InputSize), float32(minScore))
	if err != nil {
		return nil, err
	}
	dets := toDetections(nms(cands, IouThreshold), d.cfg.InputSize, frame.Width, frame.Height, d.cfg.Labels)
	dets = filterClasses(dets, enabled)

	d.LogDebug("Local inference completed",
		"detections", len(dets),
		"inference_time_ms", time.Since(start).Milliseconds(),
	)
	return dets, nil
}

// View is one endpoint's filtered window onto a shared Detector
type View struct {
	model    *Detector
	name     string
	minScore float64
	classes  []string
	enabled  map[string]bool
}

func (v *View) Name() string { return v.name }

func (v *View) IsReady() bool { return v.model.IsReady() }

// Infer runs the shared model with the view's filtering
func (v *View) Infer(ctx context.Context, frame *video.Frame) ([]detection.Detection, error) {
	return v.model.infer(ctx, frame, v.minScore, v.enabled)
}

// Model returns the detector the view runs on
func (v *View) Model() *Detector { return v.model }

// ScoreThreshold returns the candidate score cut applied by the view
func (v *View) ScoreThreshold() float64 { return v.minScore }

// EnabledClasses returns the classes the view keeps; empty keeps all
func (v *View) EnabledClasses() []string { return v.classes }

func classSet(classes []string) map[string]bool {
	if len(classes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(classes))
	for _, c := range classes {
		set[strings.ToLower(c)] = true
	}
	return set
}

func filterClasses(dets []detection.Detection, enabled map[string]bool) []detection.Detection {
	if enabled == nil {
		return dets
	}
	kept := dets[:0]
	for _, det := range dets {
		if enabled[strings.ToLower(det.ClassName)] {
			kept = append(kept, det)
		}
	}
	return kept
}

// fillInput resizes img to size x size and writes it into dst as
// normalized CHW RGB
func fillInput(img image.Image, size int, dst []float32) {
	resized := imaging.Resize(img, size, size, imaging.Linear)
	channel := size * size

	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < size; x++ {
			i := y*size + x
			px := row[x*4:]
			dst[i] = float32(px[0]) / 255.0
			dst[channel+i] = float32(px[1]) / 255.0
			dst[2*channel+i] = float32(px[2]) / 255.0
		}
	}
}
