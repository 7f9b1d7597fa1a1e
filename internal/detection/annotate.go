package detection

import (
	"fmt"
	"strings"
)

// DefaultPersonThreshold is the confidence a person detection must exceed
const DefaultPersonThreshold = 0.6

// Detection is a single raw result from a detection model
type Detection struct {
	Box        BoundingBox `json:"box"`
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
}

// PersonDetection is a person annotated with position and distance
type PersonDetection struct {
	Label      string      `json:"label"`
	Distance   string      `json:"distance"`
	DistanceM  float64     `json:"distance_m"`
	Confidence float64     `json:"confidence"`
	Position   Position    `json:"position"`
	Box        BoundingBox `json:"box"`
}

// ObjectDetection is any detection annotated with its position
type ObjectDetection struct {
	ClassID    int         `json:"class_id"`
	ClassName  string      `json:"class_name,omitempty"`
	Confidence float64     `json:"confidence"`
	Position   Position    `json:"position"`
	Box        BoundingBox `json:"box"`
}

// PersonFilter selects and annotates person detections
type PersonFilter struct {
	ClassName string
	// ClassID matches detections that carry no class name. Nil disables it.
	ClassID    *int
	Threshold  float64
	RealHeight float64
}

// DefaultPersonFilter returns the filter used by the person endpoints
func DefaultPersonFilter() PersonFilter {
	return PersonFilter{
		ClassName:  "person",
		Threshold:  DefaultPersonThreshold,
		RealHeight: DefaultRealHeight,
	}
}

// Matches reports whether d is of the filter's class with a confidence
// strictly above the threshold. Unnamed detections fall back to ClassID.
func (f PersonFilter) Matches(d Detection) bool {
	if d.Confidence <= f.Threshold {
		return false
	}
	if d.ClassName == "" {
		return f.ClassID != nil && d.ClassID == *f.ClassID
	}
	return strings.EqualFold(d.ClassName, f.ClassName)
}

// PersonSummary is the annotated result of one person detection pass
type PersonSummary struct {
	Persons []PersonDetection
	Count   int
	// Skipped counts matching detections dropped for a degenerate box
	Skipped int
}

// AnnotatePersons keeps the detections accepted by filter and annotates
// them in model order. Labels run "Person 1", "Person 2", ... over the kept
// detections only; boxes without a positive height are dropped.
func AnnotatePersons(dets []Detection, frameWidth int, filter PersonFilter) PersonSummary {
	realHeight := filter.RealHeight
	if realHeight <= 0 {
		realHeight = DefaultRealHeight
	}

	summary := PersonSummary{Persons: make([]PersonDetection, 0, len(dets))}
	for _, d := range dets {
		if !filter.Matches(d) {
			continue
		}

		distance, err := EstimateDistance(d.Box.Height(), realHeight)
		if err != nil {
			summary.Skipped++
			continue
		}

		summary.Count++
		summary.Persons = append(summary.Persons, PersonDetection{
			Label:      fmt.Sprintf("Person %d", summary.Count),
			Distance:   FormatDistance(distance),
			DistanceM:  distance,
			Confidence: d.Confidence,
			Position:   PositionOf(d.Box, frameWidth),
			Box:        d.Box,
		})
	}

	return summary
}

// AnnotateObjects annotates every detection at or above minConfidence with
// its position. A zero minConfidence keeps everything.
func AnnotateObjects(dets []Detection, frameWidth int, minConfidence float64) []ObjectDetection {
	objects := make([]ObjectDetection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence < minConfidence {
			continue
		}
		objects = append(objects, ObjectDetection{
			ClassID:    d.ClassID,
			ClassName:  d.ClassName,
			Confidence: d.Confidence,
			Position:   PositionOf(d.Box, frameWidth),
			Box:        d.Box,
		})
	}
	return objects
}
