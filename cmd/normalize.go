package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/facealign"
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize IMAGE",
	Short: "Detect, crop and level the most confident face in an image",
	Long: `Normalize finds the most confident face, crops it with a margin and rotates
the crop so the eye line is horizontal. The output format follows the
extension of --output (jpg or png).

Examples:
  face-compare normalize portrait.jpg -o face.jpg

  # Tighter crop, print the normalization parameters
  face-compare normalize portrait.jpg -o face.png --margin 0.1 --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringP("output", "o", "", "Output image path (default: <name>_face.jpg)")
	normalizeCmd.Flags().Float64("margin", -1, "Crop margin as a fraction of the face box (defaults to FACE_MARGIN)")
	normalizeCmd.Flags().Bool("verbose", false, "Print normalization parameters as JSON")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if margin := mustGetFloat64(cmd, "margin"); margin >= 0 {
		cfg.Normalizer.Margin = margin
	}

	input := args[0]
	output := mustGetString(cmd, "output")
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "_face.jpg"
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}

	result, face, err := eng.normalizer.DetectAndNormalize(context.Background(), eng.faces, img)
	if err != nil {
		return err
	}

	if err := facealign.Save(result.Image, output); err != nil {
		return err
	}

	width, height := result.Size()
	fmt.Printf("Face at %s (confidence %.2f, %d faces found)\n", face.Box, face.Confidence, face.FacesCount)
	if result.Degraded {
		fmt.Printf("Alignment skipped: %s\n", result.Reason)
	} else {
		fmt.Printf("Rotated by %.2f degrees\n", result.AngleDegrees)
	}
	fmt.Printf("Saved %dx%d face to %s\n", width, height, output)

	if mustGetBool(cmd, "verbose") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return nil
}
