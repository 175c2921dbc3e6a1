package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-compare",
	Short: "Landmark based face similarity scoring",
	Long: `Face Compare decides which of two candidate faces is geometrically closer
to a reference face. Faces are described by ordered landmark point sets,
placed by hand or extracted automatically from a dense face mesh, and
compared after an optimal uniform scaling.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
