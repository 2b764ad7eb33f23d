package main

import (
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Ensure a SUPER_ADMIN account exists",
	Long:  "Promote or create BOOTSTRAP_ADMIN_EMAIL as SUPER_ADMIN unless one already exists.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Migrate(cmd.Context()); err != nil {
			return err
		}
		res, err := a.Bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("bootstrap: %s\n", res)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
}
