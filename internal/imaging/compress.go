package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// Compress re-encodes raw image bytes as JPEG, bounding the longer edge to
// maxDim. It exists purely to bound the memory and disk footprint of stored
// uploads before the pipeline runs.
func Compress(data []byte, maxDim, quality int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if maxDim > 0 {
		img = boundHighQuality(img, maxDim)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveCompressed compresses raw image bytes and writes them to path,
// creating parent directories as needed.
func SaveCompressed(data []byte, path string, maxDim, quality int) error {
	out, err := Compress(data, maxDim, quality)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}

// boundHighQuality is Bound with a slower, higher-quality scaler. Stored
// uploads are scaled once, so the extra cost does not matter.
func boundHighQuality(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var newW, newH int
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
