// Package imaging provides image decoding, grayscale normalization, and
// resizing for the change-detection pipeline.
package imaging

import (
	"fmt"
	"image"

	"rackdiff/pkg/geometry"

	"gocv.io/x/gocv"
)

// Grayscale is an 8-bit single-channel raster buffer. Pix is stored
// row-major, one byte per pixel.
type Grayscale struct {
	Pix    []uint8
	Width  int
	Height int
}

// NewGrayscale allocates a zeroed grayscale buffer.
func NewGrayscale(width, height int) *Grayscale {
	return &Grayscale{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// FromImage converts a decoded image to grayscale using ITU-R BT.601
// luminance weights, the same conversion OpenCV applies.
func FromImage(img image.Image) *Grayscale {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	g := NewGrayscale(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gr, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(gr>>8) + 0.114*float64(b>>8)
			g.Pix[y*w+x] = uint8(lum + 0.5)
		}
	}
	return g
}

// Empty returns true if the buffer has no pixels.
func (g *Grayscale) Empty() bool {
	return g == nil || g.Width <= 0 || g.Height <= 0 || len(g.Pix) == 0
}

// Area returns the pixel count of the buffer.
func (g *Grayscale) Area() int {
	if g.Empty() {
		return 0
	}
	return g.Width * g.Height
}

// At returns the intensity at (x, y). Callers must stay in bounds.
func (g *Grayscale) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Clone returns a deep copy of the buffer.
func (g *Grayscale) Clone() *Grayscale {
	out := NewGrayscale(g.Width, g.Height)
	copy(out.Pix, g.Pix)
	return out
}

// MeanRect returns the mean intensity inside the rectangle, clipped to the
// buffer extent. An empty clipped rectangle yields 0.
func (g *Grayscale) MeanRect(r geometry.RectInt) float64 {
	clipped := r.Clip(g.Width, g.Height)
	if clipped.Empty() {
		return 0
	}

	var sum float64
	for y := clipped.Y; y < clipped.Y+clipped.Height; y++ {
		row := g.Pix[y*g.Width : (y+1)*g.Width]
		for x := clipped.X; x < clipped.X+clipped.Width; x++ {
			sum += float64(row[x])
		}
	}
	return sum / float64(clipped.Area())
}

// Crop returns a copy of the buffer restricted to the rectangle, clipped
// to the buffer extent. A fully clipped rectangle yields an empty buffer.
func (g *Grayscale) Crop(r geometry.RectInt) *Grayscale {
	clipped := r.Clip(g.Width, g.Height)
	if clipped.Empty() {
		return &Grayscale{}
	}

	out := NewGrayscale(clipped.Width, clipped.Height)
	for y := 0; y < clipped.Height; y++ {
		src := (clipped.Y+y)*g.Width + clipped.X
		copy(out.Pix[y*clipped.Width:(y+1)*clipped.Width], g.Pix[src:src+clipped.Width])
	}
	return out
}

// Mat converts the buffer to a single-channel gocv Mat. The caller owns
// the returned Mat and must Close it.
func (g *Grayscale) Mat() (gocv.Mat, error) {
	if g.Empty() {
		return gocv.NewMat(), fmt.Errorf("cannot convert empty grayscale buffer to Mat")
	}
	return gocv.NewMatFromBytes(g.Height, g.Width, gocv.MatTypeCV8U, g.Pix)
}

// FromMat copies a single-channel Mat into a Grayscale buffer.
func FromMat(m gocv.Mat) (*Grayscale, error) {
	if m.Empty() {
		return nil, fmt.Errorf("cannot convert empty Mat to grayscale buffer")
	}
	if m.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("expected single-channel 8-bit Mat, got type %d", m.Type())
	}

	data, err := m.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read Mat bytes: %w", err)
	}

	g := &Grayscale{
		Pix:    make([]uint8, len(data)),
		Width:  m.Cols(),
		Height: m.Rows(),
	}
	copy(g.Pix, data)
	return g, nil
}
