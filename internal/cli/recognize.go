package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/app"
)

const cliClientIP = "cli"

func newRecognizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recognize FILE",
		Short: "Match the faces in a photo against the gallery",
		Long: `Detect every face in FILE and print the ranked candidates for each one.
The best match is set only when it reaches the configured threshold.

Examples:
  facectl recognize door-cam.jpg
  facectl recognize --threshold 0.8 --top-k 3 door-cam.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: runRecognize,
	}
	cmd.Flags().Float64("threshold", 0, "Override FACE_COS_THRESHOLD for this call")
	cmd.Flags().Int("top-k", 0, "Override FACE_TOP_K for this call")
	return cmd
}

func runRecognize(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read probe: %w", err)
	}

	return withEngine(cmd, func(ctx context.Context, engine *app.Engine) error {
		if cmd.Flags().Changed("threshold") {
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			if threshold < -1 || threshold > 1 {
				return fmt.Errorf("threshold must be in [-1,1], got %v", threshold)
			}
			engine.Matcher.WithThreshold(threshold)
		}
		if cmd.Flags().Changed("top-k") {
			topK, _ := cmd.Flags().GetInt("top-k")
			engine.Matcher.WithTopK(topK)
		}

		result, err := engine.Service.Recognize(ctx, raw, cliClientIP)
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), result)
	})
}
