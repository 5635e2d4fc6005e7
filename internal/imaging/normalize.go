package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// Sentinel errors surfaced by the normalizer.
var (
	// ErrInvalidImage indicates the input bytes could not be decoded.
	ErrInvalidImage = errors.New("invalid image")
	// ErrEmptyImage indicates a decoded image with zero area.
	ErrEmptyImage = errors.New("empty image")
)

// Pair holds two grayscale buffers of identical dimensions, ready for
// comparison. It is transient state for a single pipeline run.
type Pair struct {
	Before *Grayscale
	After  *Grayscale
}

// Decode decodes raw PNG/JPEG/TIFF bytes into an image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// NormalizePair decodes both inputs and produces two grayscale buffers of
// identical dimensions. Images are first bounded so their longer edge does
// not exceed maxDim; a dimension mismatch between the pair is resolved by
// resampling the after image to the before image's dimensions.
func NormalizePair(beforeData, afterData []byte, maxDim int) (*Pair, error) {
	beforeImg, err := Decode(beforeData)
	if err != nil {
		return nil, fmt.Errorf("before image: %w", err)
	}
	afterImg, err := Decode(afterData)
	if err != nil {
		return nil, fmt.Errorf("after image: %w", err)
	}

	if maxDim > 0 {
		beforeImg = Bound(beforeImg, maxDim)
		afterImg = Bound(afterImg, maxDim)
	}

	before := FromImage(beforeImg)

	// Recoverable mismatch: resample after to match before.
	ab := afterImg.Bounds()
	if ab.Dx() != before.Width || ab.Dy() != before.Height {
		afterImg = Resize(afterImg, before.Width, before.Height)
	}
	after := FromImage(afterImg)

	return &Pair{Before: before, After: after}, nil
}

// Resize resamples an image to the exact target dimensions.
func Resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Bound scales an image down so its longer edge does not exceed maxDim,
// preserving aspect ratio. Images already within the bound are returned
// unchanged.
func Bound(img image.Image, maxDim int) image.Image {
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
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	return Resize(img, newW, newH)
}
