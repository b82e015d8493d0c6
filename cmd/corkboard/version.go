package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corkboard-dev/corkboard"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of corkboard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("corkboard version %s\n", corkboard.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
