package detect

import (
	"fmt"
	"math"
	"sort"

	"rackdiff/internal/imaging"
	"rackdiff/pkg/geometry"

	"gocv.io/x/gocv"
)

// ExtractRegions thresholds a dissimilarity map into a binary change mask
// using Otsu's method (more-dissimilar pixels become foreground) and
// returns the connected foreground regions whose contour area strictly
// exceeds minContourArea. Contour following is 8-connected, so regions
// touching only diagonally merge into one.
//
// Regions are ordered top-to-bottom, then left-to-right, with larger areas
// first on exact ties, and ids are assigned after ordering, so a given map
// always yields the same result.
func ExtractRegions(diff *imaging.Grayscale, minContourArea int) ([]ChangeRegion, error) {
	mat, err := diff.Mat()
	if err != nil {
		return nil, fmt.Errorf("failed to build diff matrix: %w", err)
	}
	defer mat.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(mat, &mask, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []ChangeRegion
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)

		area := gocv.ContourArea(contour)
		if area <= float64(minContourArea) {
			continue
		}

		r := gocv.BoundingRect(contour)
		bounds := geometry.RectInt{
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
		}.Clip(diff.Width, diff.Height)
		if bounds.Empty() {
			continue
		}

		regions = append(regions, ChangeRegion{
			Bounds: bounds,
			Area:   int(math.Round(area)),
			Center: bounds.Center(),
		})
	}

	sort.Slice(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.Bounds.Y != b.Bounds.Y {
			return a.Bounds.Y < b.Bounds.Y
		}
		if a.Bounds.X != b.Bounds.X {
			return a.Bounds.X < b.Bounds.X
		}
		return a.Area > b.Area
	})
	for i := range regions {
		regions[i].ID = i + 1
	}

	return regions, nil
}
