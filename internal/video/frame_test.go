package video

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("Failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestParseDataURL(t *testing.T) {
	payload := []byte("hello frame")
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)

	data, err := ParseDataURL(url)
	if err != nil {
		t.Fatalf("ParseDataURL failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Expected %q, got %q", payload, data)
	}
}

func TestParseDataURL_SplitsOnFirstComma(t *testing.T) {
	// a second comma is part of the payload and makes it invalid base64
	url := "data:image/png;base64,aGVsbG8=,extra"
	_, err := ParseDataURL(url)
	if !errors.Is(err, ErrDecodeFrame) {
		t.Errorf("Expected ErrDecodeFrame, got %v", err)
	}
}

func TestParseDataURL_Unpadded(t *testing.T) {
	data, err := ParseDataURL("data:,aGVsbG8")
	if err != nil {
		t.Fatalf("ParseDataURL failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected hello, got %q", data)
	}
}

func TestParseDataURL_MissingComma(t *testing.T) {
	_, err := ParseDataURL("aGVsbG8=")
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Expected ErrMalformedFrame, got %v", err)
	}
}

func TestParseDataURL_InvalidBase64(t *testing.T) {
	_, err := ParseDataURL("data:image/jpeg;base64,!!!not-base64!!!")
	if !errors.Is(err, ErrDecodeFrame) {
		t.Errorf("Expected ErrDecodeFrame, got %v", err)
	}
}

func TestDecodeFrame_PNG(t *testing.T) {
	frame, err := DecodeFrame(encodePNG(t, 300, 120))
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if frame.Width != 300 || frame.Height != 120 {
		t.Errorf("Expected 300x120, got %dx%d", frame.Width, frame.Height)
	}
	if frame.Format != "png" {
		t.Errorf("Expected png format, got %s", frame.Format)
	}
	if frame.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not an image")} {
		if _, err := DecodeFrame(data); !errors.Is(err, ErrDecodeFrame) {
			t.Errorf("Expected ErrDecodeFrame for %q, got %v", data, err)
		}
	}
}

func TestDecodeDataURL(t *testing.T) {
	url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(encodeJPEG(t, 64, 48))

	frame, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL failed: %v", err)
	}
	if frame.Width != 64 || frame.Height != 48 {
		t.Errorf("Expected 64x48, got %dx%d", frame.Width, frame.Height)
	}
}

func TestFrame_JPEG(t *testing.T) {
	src := encodeJPEG(t, 32, 32)
	frame, err := DecodeFrame(src)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}

	data, err := frame.JPEG(0)
	if err != nil {
		t.Fatalf("JPEG failed: %v", err)
	}
	if !bytes.Equal(data, src) {
		t.Error("JPEG frames should be passed through unchanged")
	}

	pngFrame, err := DecodeFrame(encodePNG(t, 16, 16))
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	data, err = pngFrame.JPEG(90)
	if err != nil {
		t.Fatalf("JPEG failed: %v", err)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err != nil || format != "jpeg" {
		t.Errorf("Expected re-encoded jpeg, got %s (%v)", format, err)
	}
}
