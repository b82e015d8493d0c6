package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corkboard-dev/corkboard"
	"github.com/corkboard-dev/corkboard/pkg/board"
)

var (
	verbose   bool
	vaultPath string
	adapter   string
	boardID   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "corkboard",
	Short: "A spatial board of notes, chats and reminders with undo and settings sync",
	Long: `Corkboard keeps boards of canvas entries, chat threads and reminders in a
local vault, with bounded undo/redo, reminder scheduling and reconciliation
between per-board and global settings.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		loadConfig()
	},
}

// loadConfig reads corkboard.yaml from the vault or the working directory.
// Flags override config values; config overrides defaults.
func loadConfig() {
	viper.SetDefault("adapter", "fs")
	viper.SetDefault("poll_interval", "30s")
	viper.SetDefault("autosave_interval", "5s")
	viper.SetConfigName("corkboard")
	viper.SetEnvPrefix("CORKBOARD")
	viper.AutomaticEnv()

	if vaultPath != "" {
		viper.AddConfigPath(vaultPath)
	}
	viper.AddConfigPath("./")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fatal("Failed to read config file", err)
		}
	}

	if adapter == "" {
		adapter = viper.GetString("adapter")
	}
}

// resolveVault picks the vault path: the --vault flag, then the nearest
// vault root above the working directory, then the working directory itself.
func resolveVault() string {
	if vaultPath != "" {
		return vaultPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get working directory", err)
	}
	if root, err := corkboard.FindVaultRoot(cwd); err == nil {
		return root
	}
	return cwd
}

// openStore opens the store and, when --board is set, activates that board.
func openStore(ctx context.Context) *board.Store {
	store, err := corkboard.Open(ctx, resolveVault(),
		corkboard.WithAdapter(adapter),
		corkboard.WithLogger(slog.Default()),
		corkboard.WithPollInterval(viper.GetDuration("poll_interval")),
		corkboard.WithAutosaveInterval(viper.GetDuration("autosave_interval")),
	)
	if err != nil {
		fatal("Failed to open vault", err)
	}

	if boardID != "" {
		if err := store.SwitchBoard(ctx, boardID); err != nil {
			_ = store.Close(ctx)
			fatal("Failed to open board", err)
		}
	}
	return store
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault path (default: nearest vault root)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Storage adapter: fs or badger")
	rootCmd.PersistentFlags().StringVarP(&boardID, "board", "b", "", "Board to operate on")
}
