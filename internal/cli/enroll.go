package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/app"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/domain"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/service"
)

func newEnrollCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enroll --user USER_ID FILE...",
		Short: "Enroll one or more photos for a user",
		Long: `Enroll every file as a separate face of the same user. A file that cannot
be read or holds no face is reported and skipped; the rest are still enrolled.

Examples:
  facectl enroll --user U_0001 front.jpg left.jpg right.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEnroll,
	}
	cmd.Flags().StringP("user", "u", "", "User id the faces belong to (required)")
	cmd.Flags().Bool("no-progress", false, "Do not draw a progress bar")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runEnroll(cmd *cobra.Command, files []string) error {
	owner, err := domain.NormalizeOwnerID(mustGetString(cmd, "user"))
	if err != nil {
		return err
	}

	return withEngine(cmd, func(ctx context.Context, engine *app.Engine) error {
		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetVisibility(!mustGetBool(cmd, "no-progress")),
		)

		result := &domain.BatchResult{
			OwnerID: owner,
			Total:   len(files),
			Results: make([]domain.ItemResult, 0, len(files)),
		}

		for i, file := range files {
			if ctx.Err() != nil {
				result.Results = append(result.Results, service.CanceledItems(i, len(files))...)
				break
			}
			result.Results = append(result.Results, enrollFile(ctx, engine.Service, owner, i, file))
			if result.Results[i].Status == domain.ItemStatusOK {
				result.Added++
			}
			_ = bar.Add(1)
		}
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())

		if err := outputJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if result.Added == 0 {
			return errors.New("no face was enrolled")
		}
		return nil
	})
}

func enrollFile(ctx context.Context, svc *service.FaceService, owner string, index int, file string) domain.ItemResult {
	raw, err := os.ReadFile(file)
	if err != nil {
		return service.ItemError(index, domain.ErrInvalidImage.WithError(err))
	}

	enrolled, err := svc.Enroll(ctx, owner, raw)
	if err != nil {
		return service.ItemError(index, err)
	}
	return service.ItemOK(index, enrolled)
}
