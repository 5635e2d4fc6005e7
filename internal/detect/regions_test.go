package detect

import (
	"testing"

	"rackdiff/internal/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diffMap(w, h int) *imaging.Grayscale {
	return imaging.NewGrayscale(w, h)
}

func fillBlock(g *imaging.Grayscale, x, y, w, h int, v uint8) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			g.Pix[yy*g.Width+xx] = v
		}
	}
}

func TestExtractRegionsUniformZeroMapYieldsNone(t *testing.T) {
	regions, err := ExtractRegions(diffMap(200, 200), 100)
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestExtractRegionsSingleBlock(t *testing.T) {
	diff := diffMap(200, 200)
	fillBlock(diff, 50, 60, 60, 60, 255)

	regions, err := ExtractRegions(diff, 100)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	r := regions[0]
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, 50, r.Bounds.X)
	assert.Equal(t, 60, r.Bounds.Y)
	assert.Equal(t, 60, r.Bounds.Width)
	assert.Equal(t, 60, r.Bounds.Height)
	assert.Greater(t, r.Area, 100)
	assert.Equal(t, 80, r.Center.X)
	assert.Equal(t, 90, r.Center.Y)
}

func TestExtractRegionsMinAreaIsStrict(t *testing.T) {
	diff := diffMap(200, 200)
	// Contour area of an 11x11 block is 100: not strictly greater.
	fillBlock(diff, 20, 20, 11, 11, 255)
	// Contour area of a 12x12 block is 121.
	fillBlock(diff, 100, 100, 12, 12, 255)

	regions, err := ExtractRegions(diff, 100)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, 100, regions[0].Bounds.X)

	for _, r := range regions {
		assert.Greater(t, r.Area, 100)
	}
}

func TestExtractRegionsDiagonalTouchMerges(t *testing.T) {
	diff := diffMap(200, 200)
	// Two blocks sharing only the corner pixel at (80,80): 8-connected
	// border following treats them as one region.
	fillBlock(diff, 40, 40, 40, 40, 255)
	fillBlock(diff, 80, 80, 40, 40, 255)

	regions, err := ExtractRegions(diff, 100)
	require.NoError(t, err)
	assert.Len(t, regions, 1)
}

func TestExtractRegionsDeterministicOrder(t *testing.T) {
	diff := diffMap(300, 300)
	fillBlock(diff, 150, 200, 40, 40, 255)
	fillBlock(diff, 20, 30, 40, 40, 255)
	fillBlock(diff, 200, 30, 40, 40, 255)

	regions, err := ExtractRegions(diff, 100)
	require.NoError(t, err)
	require.Len(t, regions, 3)

	// Top-to-bottom, then left-to-right
	assert.Equal(t, 30, regions[0].Bounds.Y)
	assert.Equal(t, 20, regions[0].Bounds.X)
	assert.Equal(t, 30, regions[1].Bounds.Y)
	assert.Equal(t, 200, regions[1].Bounds.X)
	assert.Equal(t, 200, regions[2].Bounds.Y)

	for i, r := range regions {
		assert.Equal(t, i+1, r.ID)
	}

	// Same input, same output
	again, err := ExtractRegions(diff, 100)
	require.NoError(t, err)
	assert.Equal(t, regions, again)
}

func TestExtractRegionsBoundsClipped(t *testing.T) {
	diff := diffMap(100, 100)
	// Block flush against the border
	fillBlock(diff, 80, 80, 20, 20, 255)

	regions, err := ExtractRegions(diff, 100)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	b := regions[0].Bounds
	assert.LessOrEqual(t, b.X+b.Width, 100)
	assert.LessOrEqual(t, b.Y+b.Height, 100)
	assert.GreaterOrEqual(t, b.X, 0)
	assert.GreaterOrEqual(t, b.Y, 0)
}
