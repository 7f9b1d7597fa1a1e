package ai

import (
	"math"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
)

// InferenceRequest represents a request to the inference service
type InferenceRequest struct {
	Image               string   `json:"image"`                          // Base64-encoded JPEG image
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"` // Optional override
	EnabledClasses      []string `json:"enabled_classes,omitempty"`      // Optional filter
}

// BoundingBox is a detection as reported by the inference service
type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
}

// Detection converts the wire box to a detection in whole pixels.
// Coordinates are truncated toward zero.
func (b BoundingBox) Detection() detection.Detection {
	return detection.Detection{
		Box: detection.BoundingBox{
			X1: int(math.Trunc(b.X1)),
			Y1: int(math.Trunc(b.Y1)),
			X2: int(math.Trunc(b.X2)),
			Y2: int(math.Trunc(b.Y2)),
		},
		ClassID:    b.ClassID,
		ClassName:  b.ClassName,
		Confidence: b.Confidence,
	}
}

// InferenceResponse represents the response from the inference service
type InferenceResponse struct {
	BoundingBoxes   []BoundingBox `json:"bounding_boxes"`
	InferenceTimeMs float64       `json:"inference_time_ms"`
	FrameShape      []int         `json:"frame_shape"`       // [height, width]
	ModelInputShape []int         `json:"model_input_shape"` // [height, width]
	DetectionCount  int           `json:"detection_count"`
}

// Detections returns the response boxes in model order
func (r *InferenceResponse) Detections() []detection.Detection {
	dets := make([]detection.Detection, 0, len(r.BoundingBoxes))
	for _, b := range r.BoundingBoxes {
		dets = append(dets, b.Detection())
	}
	return dets
}

// BatchInferenceRequest represents a batch inference request
type BatchInferenceRequest struct {
	Images              []string `json:"images"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	EnabledClasses      []string `json:"enabled_classes,omitempty"`
}

// BatchInferenceResponse represents a batch inference response
type BatchInferenceResponse struct {
	Results                []InferenceResponse `json:"results"`
	TotalInferenceTimeMs   float64             `json:"total_inference_time_ms"`
	AverageInferenceTimeMs float64             `json:"average_inference_time_ms"`
}

// InferenceStats represents inference statistics
type InferenceStats struct {
	TotalInferences int     `json:"total_inferences"`
	TotalTimeMs     float64 `json:"total_time_ms"`
	AverageTimeMs   float64 `json:"average_time_ms"`
}

// ClassifyRequest is sent to a currency classification service
type ClassifyRequest struct {
	Image string `json:"image"`
}

// ClassifyResponse is returned by a currency classification service
type ClassifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence,omitempty"`
}
