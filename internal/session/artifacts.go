package session

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"rackdiff/internal/detect"

	"gocv.io/x/gocv"
)

// SaveArtifacts renders the visual diff and change mask for a comparison
// into the session directory. The visual diff is the after image with
// change regions outlined in red; the mask is the binarized dissimilarity
// map.
func (s *Store) SaveArtifacts(cmp *detect.Comparison) error {
	if cmp == nil || cmp.Set == nil {
		return fmt.Errorf("session: nil comparison")
	}

	dir, err := s.Dir(cmp.Set.SessionID)
	if err != nil {
		return err
	}

	if err := saveVisualDiff(filepath.Join(dir, VisualDiffFile), cmp); err != nil {
		return err
	}
	return saveMask(filepath.Join(dir, MaskFile), cmp)
}

func saveVisualDiff(path string, cmp *detect.Comparison) error {
	gray, err := cmp.After.Mat()
	if err != nil {
		return err
	}
	defer gray.Close()

	canvas := gocv.NewMat()
	defer canvas.Close()
	gocv.CvtColor(gray, &canvas, gocv.ColorGrayToBGR)

	red := color.RGBA{R: 255, A: 255}
	for _, change := range cmp.Set.Changes {
		b := change.Region.Bounds
		rect := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		gocv.Rectangle(&canvas, rect, red, 2)
	}

	if ok := gocv.IMWrite(path, canvas); !ok {
		return fmt.Errorf("failed to write visual diff %s", path)
	}
	return nil
}

func saveMask(path string, cmp *detect.Comparison) error {
	diff, err := cmp.DiffMap.Mat()
	if err != nil {
		return err
	}
	defer diff.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	if ok := gocv.IMWrite(path, mask); !ok {
		return fmt.Errorf("failed to write change mask %s", path)
	}
	return nil
}
