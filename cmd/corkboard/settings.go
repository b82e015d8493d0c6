package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corkboard-dev/corkboard/pkg/core"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect reconciled settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the global settings record, or a board's settings with --board",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close(ctx)

		var out any
		if boardID != "" {
			b, err := store.CurrentBoard()
			if err != nil {
				fatal("Failed to load board", err)
			}
			out = b.Settings
		} else {
			out = store.GlobalSettings()
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			fatal("Failed to encode JSON", err)
		}
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a settings field on a board; reconciliation propagates it",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if boardID == "" {
			fmt.Println("Error: --board is required")
			cmd.Usage()
			os.Exit(1)
		}

		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close(ctx)

		field, value := args[0], args[1]
		err := store.Mutate("settings:"+field, func(b *core.Board) {
			switch field {
			case "userName":
				b.Settings.UserName = value
			case "notes":
				b.Settings.Notes = value
			case "voicePreference":
				b.Settings.VoicePreference = value
			default:
				fmt.Fprintf(os.Stderr, "unknown field %q (userName, notes, voicePreference)\n", field)
				os.Exit(1)
			}
		})
		if err != nil {
			fatal("Failed to update settings", err)
		}
		if err := store.Flush(ctx); err != nil {
			fatal("Failed to save", err)
		}
		fmt.Printf("Set %s on board %s.\n", field, boardID)
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}
