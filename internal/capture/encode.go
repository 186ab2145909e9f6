package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

const (
	ThumbnailWidth   = 320
	FullQuality      = 85
	ThumbnailQuality = 60
)

// EncodeFull renders the frame at full resolution, tuned for legibility.
func EncodeFull(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: FullQuality}); err != nil {
		return nil, fmt.Errorf("encode full image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeThumbnail scales the frame to ThumbnailWidth keeping the aspect
// ratio, tuned for size.
func EncodeThumbnail(img image.Image) ([]byte, error) {
	thumb := resize.Resize(ThumbnailWidth, 0, img, resize.Bilinear)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeOCRInput produces a lossless frame for recognition.
func encodeOCRInput(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode ocr input: %w", err)
	}
	return buf.Bytes(), nil
}
