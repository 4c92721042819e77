package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/remedy/internal/core/config"
	"github.com/vietddude/remedy/internal/infra/storage/postgres"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Mark all unresolved errors as resolved",
	Run:   runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	n, err := postgres.NewErrorRepo(db).MarkAllResolved(ctx)
	if err != nil {
		slog.Error("Failed to resolve errors", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully resolved %d error(s)\n", n)
}
