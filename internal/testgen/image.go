package testgen

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

// GenerateImage returns a 100x100 solid color image encoded as mimeType
// ("image/jpeg", "image/gif" or "image/png").
func GenerateImage(t *testing.T, mimeType string) []byte {
	t.Helper()
	return GenerateImageSize(t, mimeType, 100, 100)
}

// GenerateImageSize returns a solid color image of the given size.
func GenerateImageSize(t *testing.T, mimeType string, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	blue := color.RGBA{0, 100, 200, 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, blue)
		}
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			t.Fatalf("failed to encode JPEG: %v", err)
		}
	case "image/gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			t.Fatalf("failed to encode GIF: %v", err)
		}
	default: // image/png
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("failed to encode PNG: %v", err)
		}
	}

	return buf.Bytes()
}
