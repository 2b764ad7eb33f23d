package main

import (
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push every member into the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Members.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("indexed %d members\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
