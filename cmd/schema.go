package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/datagrid/app"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create tables and document collections for configured entities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if err := svc.CreateSchema(ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "schema ready for %d classes\n", len(svc.Mapping.Classes()))
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
