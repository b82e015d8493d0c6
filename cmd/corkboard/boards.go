package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var boardsJSON bool

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List all boards in the vault",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openStore(ctx)
		defer store.Close(ctx)

		ids, err := store.ListBoards(ctx)
		if err != nil {
			fatal("Failed to list boards", err)
		}

		if boardsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(ids); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	},
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	boardsCmd.Flags().BoolVar(&boardsJSON, "json", false, "Output in JSON format")
}
