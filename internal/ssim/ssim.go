// Package ssim computes the structural similarity index between two
// grayscale images, producing a scalar score and a per-pixel
// dissimilarity map.
package ssim

import (
	"fmt"
	"math"

	"rackdiff/internal/imaging"

	"gonum.org/v1/gonum/stat"
)

// Stabilization constants from the SSIM definition, for 8-bit dynamic range.
const (
	c1 = (0.01 * 255) * (0.01 * 255)
	c2 = (0.03 * 255) * (0.03 * 255)
)

// DefaultWindowSize is the sliding window edge length.
const DefaultWindowSize = 7

// Result holds the outcome of one similarity computation. It is immutable
// once returned.
type Result struct {
	// Score is the mean structural similarity in [0, 1]; 1 means the
	// images are identical.
	Score float64
	// DiffMap holds per-pixel dissimilarity scaled to 0-255, with 0 for
	// locally identical pixels. It has the same dimensions as the inputs.
	DiffMap *imaging.Grayscale
}

// Compare computes the windowed structural similarity between two
// equal-dimension grayscale buffers. Windows are centered on each pixel
// and clamped at the image border, so the diff map keeps the full input
// layout. The score is exactly 1.0 for identical inputs, and the diff map
// is uniformly zero in that case.
func Compare(before, after *imaging.Grayscale) (*Result, error) {
	if before.Empty() || after.Empty() {
		return nil, fmt.Errorf("cannot compare empty image buffers")
	}
	if before.Width != after.Width || before.Height != after.Height {
		return nil, fmt.Errorf("dimension mismatch: %dx%d vs %dx%d",
			before.Width, before.Height, after.Width, after.Height)
	}

	w, h := before.Width, before.Height

	win := DefaultWindowSize
	if w < win {
		win = w
	}
	if h < win {
		win = h
	}
	half := win / 2

	diff := imaging.NewGrayscale(w, h)
	a := make([]float64, 0, win*win)
	b := make([]float64, 0, win*win)

	var sum float64
	for y := 0; y < h; y++ {
		y0 := max(0, y-half)
		y1 := min(h-1, y+half)
		for x := 0; x < w; x++ {
			x0 := max(0, x-half)
			x1 := min(w-1, x+half)

			a = a[:0]
			b = b[:0]
			for wy := y0; wy <= y1; wy++ {
				row := wy * w
				for wx := x0; wx <= x1; wx++ {
					a = append(a, float64(before.Pix[row+wx]))
					b = append(b, float64(after.Pix[row+wx]))
				}
			}

			s := windowSSIM(a, b)
			sum += s

			d := math.Round(255 * (1 - s))
			if d < 0 {
				d = 0
			} else if d > 255 {
				d = 255
			}
			diff.Pix[y*w+x] = uint8(d)
		}
	}

	score := sum / float64(w*h)
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}

	return &Result{Score: score, DiffMap: diff}, nil
}

// windowSSIM computes the SSIM value for one pair of sample windows.
func windowSSIM(a, b []float64) float64 {
	var mu1, mu2, var1, var2, cov float64
	if len(a) < 2 {
		mu1 = a[0]
		mu2 = b[0]
	} else {
		mu1, var1 = stat.MeanVariance(a, nil)
		mu2, var2 = stat.MeanVariance(b, nil)
		cov = stat.Covariance(a, b, nil)
	}

	num := (2*mu1*mu2 + c1) * (2*cov + c2)
	den := (mu1*mu1 + mu2*mu2 + c1) * (var1 + var2 + c2)
	return num / den
}
