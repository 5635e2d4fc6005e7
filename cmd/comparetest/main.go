// Command comparetest runs the change-detection pipeline on two image
// files and prints the classified changes.
package main

import (
	"flag"
	"fmt"
	"os"

	"rackdiff/internal/detect"
	"rackdiff/internal/session"
)

func main() {
	before := flag.String("before", "", "Path to the before image")
	after := flag.String("after", "", "Path to the after image")
	minArea := flag.Int("minarea", 100, "Minimum contour area for a change region")
	maxDim := flag.Int("maxdim", 1920, "Longer-edge bound applied before comparison")
	units := flag.Int("units", 42, "Total rack units for position estimation")
	outDir := flag.String("out", "", "Write changes.json and artifacts to this directory")
	flag.Parse()

	if *before == "" || *after == "" {
		fmt.Println("Usage: comparetest -before <image> -after <image> [-minarea N] [-maxdim N] [-units N] [-out <dir>]")
		os.Exit(1)
	}

	beforeData, err := os.ReadFile(*before)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read before image: %v\n", err)
		os.Exit(1)
	}
	afterData, err := os.ReadFile(*after)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read after image: %v\n", err)
		os.Exit(1)
	}

	opts := detect.DefaultOptions()
	opts.MinContourArea = *minArea
	opts.MaxDimension = *maxDim
	opts.TotalRackUnits = *units

	detector := detect.New(opts)
	cmp, err := detector.Compare("comparetest", beforeData, afterData)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Comparison failed: %v\n", err)
		os.Exit(1)
	}

	set := cmp.Set
	fmt.Printf("=== Comparison result ===\n")
	fmt.Printf("Similarity score: %.4f\n", set.Score)
	fmt.Printf("Changes: %d\n", len(set.Changes))
	for _, c := range set.Changes {
		fmt.Printf("  #%d %-13s RU %-3d conf %.2f  bounds (%d,%d %dx%d) area %d",
			c.ID, c.Type, c.EstimatedRU, c.Confidence,
			c.Region.Bounds.X, c.Region.Bounds.Y,
			c.Region.Bounds.Width, c.Region.Bounds.Height, c.Region.Area)
		if c.ExtractedText != "" {
			fmt.Printf("  text %q", c.ExtractedText)
		}
		fmt.Println()
	}

	if *outDir != "" {
		store, err := session.NewStore(*outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
			os.Exit(1)
		}
		if err := store.SaveChanges(set); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save changes: %v\n", err)
			os.Exit(1)
		}
		if err := store.SaveArtifacts(cmp); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save artifacts: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nResults written to %s/comparetest\n", *outDir)
	}
}
