// Package ocr provides best-effort text extraction from change regions,
// recovering asset tags and serial numbers when they are legible.
package ocr

import (
	"fmt"
	"sync"

	"rackdiff/internal/imaging"
	"rackdiff/pkg/geometry"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// AssetTagChars is the character set for asset-tag OCR. Excludes
// lowercase to reduce confusion (0/O, 1/I, etc.)
const AssetTagChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-"

// Engine performs OCR using Tesseract. It satisfies the pipeline's
// TextAnnotator contract.
type Engine struct {
	mu           sync.Mutex
	client       *gosseract.Client
	assetTagMode bool
}

// NewEngine creates a new OCR engine.
func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Disable dictionary-based word correction - asset tags and serial
	// numbers aren't English words
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0")
	_ = client.SetVariable("language_model_penalty_non_freq_dict_word", "0")

	return &Engine{
		client:       client,
		assetTagMode: true,
	}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}

// SetAssetTagMode enables/disables the asset-tag character restriction.
func (e *Engine) SetAssetTagMode(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assetTagMode = enabled
}

// ExtractText runs OCR over the change region in the after image, falling
// back to the before image when nothing is recognized (removed hardware
// leaves its label in the before shot). The engine serializes calls;
// Tesseract clients are not safe for concurrent use.
func (e *Engine) ExtractText(before, after *imaging.Grayscale, region geometry.RectInt) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return "", fmt.Errorf("OCR engine is closed")
	}

	text, err := e.recognize(after, region)
	if err != nil {
		return "", err
	}
	if text == "" {
		return e.recognize(before, region)
	}
	return text, nil
}

// recognize runs OCR over one cropped, binarized region.
func (e *Engine) recognize(img *imaging.Grayscale, region geometry.RectInt) (string, error) {
	crop := img.Crop(region)
	if crop.Empty() {
		return "", fmt.Errorf("region outside image bounds")
	}

	buf, err := preprocess(crop)
	if err != nil {
		return "", err
	}

	// PSM 6 = assume a single uniform block of text
	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	if e.assetTagMode {
		if err := e.client.SetWhitelist(AssetTagChars); err != nil {
			return "", fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	if err := e.client.SetImageFromBytes(buf); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// preprocess binarizes a cropped region with Otsu's threshold and encodes
// it as PNG for Tesseract.
func preprocess(crop *imaging.Grayscale) ([]byte, error) {
	mat, err := crop.Mat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(mat, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
