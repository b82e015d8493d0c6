package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	badgeradapter "github.com/corkboard-dev/corkboard/pkg/adapters/badger"
	"github.com/corkboard-dev/corkboard/pkg/adapters/fs"
	lifecycleadapter "github.com/corkboard-dev/corkboard/pkg/adapters/lifecycle"
	"github.com/corkboard-dev/corkboard/pkg/core"
)

var watchPattern string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print storage change events until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, err := buildWatchRepo()
		if err != nil {
			fatal("Failed to open vault", err)
		}
		defer repo.Close()
		if err := repo.Initialize(ctx); err != nil {
			fatal("Failed to initialize vault", err)
		}

		watchable, ok := repo.(core.Watchable)
		if !ok {
			fatal("Adapter does not support watching", fmt.Errorf("adapter %q", adapter))
		}
		events, err := watchable.Watch(ctx, watchPattern)
		if err != nil {
			fatal("Failed to watch vault", err)
		}

		src := lifecycleadapter.NewSource(events)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start event source", err)
		}

		fmt.Printf("Watching %s (pattern %q). Ctrl-C to stop.\n", resolveVault(), watchPattern)
		for e := range src.Events() {
			fmt.Printf("%s  %s\n", time.Now().Format(time.RFC3339), e.String())
		}
	},
}

func buildWatchRepo() (core.Repository, error) {
	path := resolveVault()
	switch adapter {
	case "badger":
		cfg := badgeradapter.DefaultConfig(path)
		cfg.Logger = slog.Default()
		return badgeradapter.NewRepository(cfg), nil
	default:
		return fs.NewRepository(fs.Config{Path: path, Logger: slog.Default()}), nil
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "**", "Doublestar pattern over record paths")
}
