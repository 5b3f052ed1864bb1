package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema",
	Long:  `Create the PostGIS tables and indexes. Idempotent; safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dbClient.InitSchema(context.Background()); err != nil {
			return err
		}
		fmt.Println("Schema initialized.")
		return nil
	},
}
