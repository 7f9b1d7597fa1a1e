package detection

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestPositionOf(t *testing.T) {
	tests := []struct {
		name  string
		box   BoundingBox
		width int
		want  Position
	}{
		{"left third", BoundingBox{X1: 40, X2: 60}, 300, PositionLeft},
		{"middle third", BoundingBox{X1: 140, X2: 160}, 300, PositionCenter},
		{"right third", BoundingBox{X1: 240, X2: 260}, 300, PositionRight},
		{"exactly one third is center", BoundingBox{X1: 90, X2: 110}, 300, PositionCenter},
		{"exactly two thirds is right", BoundingBox{X1: 190, X2: 210}, 300, PositionRight},
		{"just below one third", BoundingBox{X1: 99, X2: 100}, 300, PositionLeft},
		{"just below two thirds", BoundingBox{X1: 199, X2: 200}, 300, PositionCenter},
		{"half pixel center stays real valued", BoundingBox{X1: 0, X2: 1}, 2, PositionLeft},
		{"non integer boundary", BoundingBox{X1: 66, X2: 67}, 200, PositionLeft},
		{"non integer boundary upper", BoundingBox{X1: 66, X2: 68}, 200, PositionCenter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PositionOf(tt.box, tt.width); got != tt.want {
				t.Errorf("PositionOf(%+v, %d) = %s, want %s", tt.box, tt.width, got, tt.want)
			}
		})
	}
}

func TestEstimateDistance(t *testing.T) {
	d, err := EstimateDistance(205, DefaultRealHeight)
	if err != nil {
		t.Fatalf("EstimateDistance failed: %v", err)
	}
	if math.Abs(d-5.1) > 1e-9 {
		t.Errorf("Expected 5.1, got %v", d)
	}

	d, err = EstimateDistance(100, 1.7)
	if err != nil {
		t.Fatalf("EstimateDistance failed: %v", err)
	}
	if math.Abs(d-1.7*615/100) > 1e-9 {
		t.Errorf("Expected %v, got %v", 1.7*615/100, d)
	}
}

func TestEstimateDistance_InvalidHeight(t *testing.T) {
	for _, h := range []int{0, -5} {
		if _, err := EstimateDistance(h, DefaultRealHeight); !errors.Is(err, ErrInvalidBoxHeight) {
			t.Errorf("Height %d: expected ErrInvalidBoxHeight, got %v", h, err)
		}
	}
}

func TestFormatDistance(t *testing.T) {
	tests := map[float64]string{
		5.1:    "5.1m",
		3.44:   "3.4m",
		10.0:   "10.0m",
		1045.5: "1045.5m",
		0.04:   "0.0m",
		2.96:   "3.0m",
	}
	for in, want := range tests {
		if got := FormatDistance(in); got != want {
			t.Errorf("FormatDistance(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestBoundingBox_JSON(t *testing.T) {
	box := BoundingBox{X1: 1, Y1: 2, X2: 30, Y2: 40}

	data, err := json.Marshal(box)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "[1,2,30,40]" {
		t.Errorf("Unexpected encoding: %s", data)
	}

	var decoded BoundingBox
	if err := json.Unmarshal([]byte("[5,6,7,8]"), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != (BoundingBox{5, 6, 7, 8}) {
		t.Errorf("Unexpected decode: %+v", decoded)
	}

	if err := json.Unmarshal([]byte(`{"x1":1}`), &decoded); err == nil {
		t.Error("Expected error for object form")
	}
}
