// Package cli implements facectl, the operator command line for the face
// gallery. Commands run the same services as the HTTP API, in-process.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/app"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/config"
)

// NewRootCommand builds the facectl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "facectl",
		Short: "Manage the face gallery of a locker site",
		Long: `facectl enrolls, lists, deletes and recognizes faces against the same
database and image store the API server uses. Configuration comes from the
environment, optionally seeded from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnv(mustGetString(cmd, "env-file"))
		},
	}

	root.PersistentFlags().String("env-file", "", "Load environment from this file instead of ./.env")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log engine activity to stderr")

	root.AddCommand(
		newEnrollCommand(),
		newRecognizeCommand(),
		newFacesCommand(),
		newMigrateCommand(),
	)
	return root
}

// loadEnv reads an explicit env file strictly; the default ./.env is optional.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		return nil
	}
	_ = godotenv.Load()
	return nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if mustGetBool(cmd, "verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// openEngine loads configuration and wires the engine. Recognition events are
// not published from the command line.
func openEngine(ctx context.Context, cmd *cobra.Command) (*app.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg, newLogger(cmd), app.Options{SkipNotifier: true})
}

// withEngine runs fn against a freshly opened engine and closes it afterwards.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, engine *app.Engine) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := openEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	return fn(ctx, engine)
}
