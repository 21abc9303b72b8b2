package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/quickreceipt/storage/database"
)

var dryRunFunc = database.DryRunMigrate // mockable

func (cli *commandLine) newMigrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date, then run the data migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				stmts, err := dryRunFunc(cmd.Context(), cli.db)
				if err != nil {
					return err
				}
				if len(stmts) == 0 {
					cmd.Println("schema is up to date")
				}
				for _, stmt := range stmts {
					cmd.Println(stmt + ";")
				}
				return nil
			}
			if err := database.Migrate(cmd.Context(), cli.db, cli.logger); err != nil {
				return err
			}
			cmd.Println("database migrated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the schema statements without executing them")
	cmd.AddCommand(cli.newMigrateStatusCmd())
	return cmd
}

func (cli *commandLine) newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the data migrations and whether they were applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := database.NewMigrationProvider(cli.db)
			if err != nil {
				return err
			}
			statuses, err := provider.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, st := range statuses {
				applied := "pending"
				if !st.AppliedAt.IsZero() {
					applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
				}
				cmd.Printf("%-40s %s\n", st.Source.Path, applied)
			}
			return nil
		},
	}
}
