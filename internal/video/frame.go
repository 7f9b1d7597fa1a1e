package video

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

var (
	// ErrMalformedFrame is returned for payloads that are not data URLs
	ErrMalformedFrame = errors.New("malformed frame payload")
	// ErrDecodeFrame is returned when the payload does not decode to an image
	ErrDecodeFrame = errors.New("failed to decode frame")
)

// Frame represents a single decoded camera frame
type Frame struct {
	Data      []byte      // Encoded image bytes as received
	Image     image.Image // Decoded raster, orientation applied
	Format    string      // Encoding reported by the decoder (jpeg, png, gif)
	Width     int
	Height    int
	Timestamp time.Time
}

// ParseDataURL extracts the base64 payload from a data URL of the form
// "data:image/jpeg;base64,<payload>" by splitting on the first comma and
// decodes it
func ParseDataURL(s string) ([]byte, error) {
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing ',' separator", ErrMalformedFrame)
	}

	payload := strings.TrimSpace(s[idx+1:])
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients strip padding
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecodeFrame, err)
	}
	return data, nil
}

// DecodeFrame decodes encoded image bytes into a Frame, applying EXIF
// orientation so phone photos come out upright
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecodeFrame)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFrame, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFrame, err)
	}

	bounds := img.Bounds()
	return &Frame{
		Data:      data,
		Image:     img,
		Format:    format,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Timestamp: time.Now(),
	}, nil
}

// DecodeDataURL parses and decodes a data URL frame in one step
func DecodeDataURL(s string) (*Frame, error) {
	data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(data)
}

// JPEG returns the frame as JPEG bytes. JPEG payloads are passed through
// untouched, anything else is re-encoded from the decoded image.
func (f *Frame) JPEG(quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	if f.Format == "jpeg" && len(f.Data) > 0 {
		return f.Data, nil
	}
	if f.Image == nil {
		return nil, fmt.Errorf("frame has no image")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
