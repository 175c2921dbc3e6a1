package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/extraction"
	"github.com/kozaktomas/face-compare/internal/imagestore"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract DIR",
	Short: "Extract landmark points for every image in a directory",
	Long: `Extract runs automatic landmark extraction over every supported image in
DIR and writes <name>.points.json next to each image. Existing point files
are skipped unless --overwrite is set.

Examples:
  # Default feature types with 4 parallel workers
  face-compare extract ./faces

  # Only eyes and nose, two points each, stricter confidence
  face-compare extract ./faces --types right_eye,left_eye,nose --points 2 --threshold 0.8`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of parallel workers")
	extractCmd.Flags().StringSlice("types", nil, "Feature types to extract (default: the landmark table defaults)")
	extractCmd.Flags().Int("points", 0, "Points per feature type (0 = table default)")
	extractCmd.Flags().Float64("threshold", -1, "Minimum landmark confidence (default: table value)")
	extractCmd.Flags().Bool("overwrite", false, "Replace existing point files")
}

// extractParams builds extraction parameters from the command flags.
func extractParams(types []string, points int, threshold float64) extraction.Params {
	p := extraction.Params{FeatureTypes: types}
	if points > 0 && len(types) > 0 {
		p.PointsPerType = make(map[string]int, len(types))
		for _, t := range types {
			p.PointsPerType[t] = points
		}
	}
	if threshold >= 0 {
		p.ConfidenceThreshold = &threshold
	}
	return p
}

// pointFilePath returns the point file written next to an image.
func pointFilePath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".points.json"
}

// listImages returns the supported images directly inside dir, sorted.
func listImages(dir string, allowed []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	ok := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		ok[ext] = true
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !ok[imagestore.Extension(e.Name())] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)
	overwrite := mustGetBool(cmd, "overwrite")
	params := extractParams(
		mustGetStringSlice(cmd, "types"),
		mustGetInt(cmd, "points"),
		mustGetFloat64(cmd, "threshold"),
	)

	cfg := config.Load()
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if v := eng.extractor.Validate(params); !v.Valid {
		return v.Err()
	}

	allImages, err := listImages(args[0], cfg.Upload.AllowedExtensions)
	if err != nil {
		return err
	}

	var toProcess []string
	for _, path := range allImages {
		if !overwrite {
			if _, err := os.Stat(pointFilePath(path)); err == nil {
				continue
			}
		}
		toProcess = append(toProcess, path)
	}

	if len(toProcess) == 0 {
		fmt.Println("All images already have point files!")
		return nil
	}

	fmt.Printf("Images to process: %d (skipping %d with existing point files)\n\n",
		len(toProcess), len(allImages)-len(toProcess))

	bar := progressbar.NewOptions(len(toProcess),
		progressbar.OptionSetDescription("Extracting landmarks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	ctx := context.Background()
	var successCount, degradedCount int
	var failures []string
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, path := range toProcess {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			fail := func(err error) {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				mu.Unlock()
			}

			img, err := imaging.Open(path, imaging.AutoOrientation(true))
			if err != nil {
				fail(err)
				return
			}

			result, err := eng.extractor.Extract(ctx, img, params)
			if err != nil {
				fail(err)
				return
			}
			if result.Degraded {
				mu.Lock()
				degradedCount++
				mu.Unlock()
				return
			}

			if err := writePointFile(pointFilePath(path), filepath.Base(path), result.Points); err != nil {
				fail(err)
				return
			}

			mu.Lock()
			successCount++
			mu.Unlock()
		}(path)
	}

	wg.Wait()
	fmt.Println()

	sort.Strings(failures)
	for _, f := range failures {
		fmt.Printf("  error: %s\n", f)
	}
	fmt.Printf("\nCompleted: %d written, %d without a detectable face, %d errors\n",
		successCount, degradedCount, len(failures))
	return nil
}
