package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kozaktomas/face-compare/internal/config"
	"github.com/kozaktomas/face-compare/internal/landmark"
	"github.com/kozaktomas/face-compare/internal/scoring"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare REFERENCE CANDIDATE_A CANDIDATE_B",
	Short: "Compare two candidate point sets against a reference",
	Long: `Compare reads three point files and reports which candidate is closer to the
reference after optimal uniform scaling. A point file is either a JSON array
of points or an object with a "points" array, as written by the extract command.

Examples:
  # Human readable summary
  face-compare compare ref.points.json a.points.json b.points.json

  # Full result as JSON with a narrower scale range
  face-compare compare ref.json a.json b.json --json --lambda-max 10`,
	Args: cobra.ExactArgs(3),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64("lambda-min", -1, "Lower scale bound (defaults to LAMBDA_MIN)")
	compareCmd.Flags().Float64("lambda-max", -1, "Upper scale bound (defaults to LAMBDA_MAX)")
	compareCmd.Flags().Bool("json", false, "Print the full result as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	lambdaMin, lambdaMax := cfg.Scoring.LambdaMin, cfg.Scoring.LambdaMax
	if v := mustGetFloat64(cmd, "lambda-min"); v >= 0 {
		lambdaMin = v
	}
	if v := mustGetFloat64(cmd, "lambda-max"); v >= 0 {
		lambdaMax = v
	}

	scorer, err := scoring.NewScorer(lambdaMin, lambdaMax)
	if err != nil {
		return err
	}

	sets := make([][]landmark.Point, len(args))
	for i, path := range args {
		if sets[i], err = readPointFile(path); err != nil {
			return err
		}
	}

	result, err := scorer.Compare(sets[0], sets[1], sets[2])
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	names := map[scoring.Closer]string{scoring.CandidateA: args[1], scoring.CandidateB: args[2]}
	fmt.Printf("Reference:   %s (%d points)\n", args[0], len(sets[0]))
	fmt.Printf("Candidate A: %s  score %.4f  scale %.4f\n", args[1], result.ScoreA, result.LambdaA)
	fmt.Printf("Candidate B: %s  score %.4f  scale %.4f\n", args[2], result.ScoreB, result.LambdaB)
	fmt.Printf("Similarity ratio: %.4f\n", result.Diagnostics.SimilarityRatio)
	fmt.Printf("\nCloser: %s (%s)\n", result.Closer, names[result.Closer])
	return nil
}
