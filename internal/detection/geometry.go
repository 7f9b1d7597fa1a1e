// Package detection turns raw model detections into annotated records:
// a coarse left/center/right position and, for people, an estimated
// distance from the camera.
package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	// FocalLength is the pixel focal length used by the pinhole distance
	// model. It is not calibrated for any particular camera.
	FocalLength = 615.0

	// DefaultRealHeight is the assumed real-world height of a person in metres
	DefaultRealHeight = 1.7
)

// ErrInvalidBoxHeight is returned when a box has no positive pixel height
var ErrInvalidBoxHeight = errors.New("bounding box height must be positive")

// Position is a coarse horizontal location within the frame
type Position string

const (
	PositionLeft   Position = "left"
	PositionCenter Position = "center"
	PositionRight  Position = "right"
)

// BoundingBox is an axis-aligned box in pixel coordinates with the origin at
// the top-left corner of the frame
type BoundingBox struct {
	X1, Y1, X2, Y2 int
}

// Height returns the pixel height of the box
func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

// Width returns the pixel width of the box
func (b BoundingBox) Width() int {
	return b.X2 - b.X1
}

// CenterX returns the real-valued horizontal center of the box
func (b BoundingBox) CenterX() float64 {
	return float64(b.X1+b.X2) / 2
}

// MarshalJSON encodes the box as [x1, y1, x2, y2]
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes a box from [x1, y1, x2, y2]
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bounding box: %w", err)
	}
	b.X1, b.Y1, b.X2, b.Y2 = v[0], v[1], v[2], v[3]
	return nil
}

// PositionOf buckets a box into thirds of the frame width by its center.
// A center exactly on W/3 is center, exactly on 2W/3 is right.
func PositionOf(box BoundingBox, frameWidth int) Position {
	cx := box.CenterX()
	w := float64(frameWidth)

	switch {
	case cx < w/3:
		return PositionLeft
	case cx < 2*w/3:
		return PositionCenter
	default:
		return PositionRight
	}
}

// EstimateDistance approximates the distance in metres to an object of known
// real height from its pixel height using similar triangles:
//
//	distance = realHeight * FocalLength / pixelHeight
//
// The result is only as good as the assumed height and the uncalibrated
// focal length.
func EstimateDistance(pixelHeight int, realHeight float64) (float64, error) {
	if pixelHeight <= 0 {
		return 0, ErrInvalidBoxHeight
	}
	return realHeight * FocalLength / float64(pixelHeight), nil
}

// FormatDistance renders a distance with one decimal place and an "m" suffix
func FormatDistance(meters float64) string {
	return strconv.FormatFloat(meters, 'f', 1, 64) + "m"
}
