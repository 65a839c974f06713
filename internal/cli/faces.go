package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/app"
)

func newFacesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faces",
		Short: "List and delete enrolled faces",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List enrolled faces, newest first",
		Args:  cobra.NoArgs,
		RunE:  runFacesList,
	}
	list.Flags().StringP("user", "u", "", "Only faces of this user")
	list.Flags().Bool("json", false, "Output as JSON")

	del := &cobra.Command{
		Use:   "delete FACE_ID",
		Short: "Delete one face and its image",
		Args:  cobra.ExactArgs(1),
		RunE:  runFacesDelete,
	}

	delUser := &cobra.Command{
		Use:   "delete-user USER_ID",
		Short: "Delete every face of a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runFacesDeleteUser,
	}

	cmd.AddCommand(list, del, delUser)
	return cmd
}

func runFacesList(cmd *cobra.Command, _ []string) error {
	return withEngine(cmd, func(ctx context.Context, engine *app.Engine) error {
		faces, err := engine.Service.ListFaces(ctx, mustGetString(cmd, "user"))
		if err != nil {
			return err
		}
		if mustGetBool(cmd, "json") {
			return outputJSON(cmd.OutOrStdout(), faces)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FACE_ID\tUSER_ID\tQUALITY\tCREATED_AT")
		for _, f := range faces {
			quality := "-"
			if f.Quality != nil {
				quality = fmt.Sprintf("%.0f", *f.Quality)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.FaceID, f.OwnerID, quality, f.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	})
}

func runFacesDelete(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(ctx context.Context, engine *app.Engine) error {
		n, err := engine.Service.DeleteFace(ctx, args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("face %s not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	})
}

func runFacesDeleteUser(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, func(ctx context.Context, engine *app.Engine) error {
		deletion, err := engine.Service.DeleteFacesByOwner(ctx, args[0])
		if err != nil {
			return err
		}
		return outputJSON(cmd.OutOrStdout(), deletion)
	})
}
