package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncup/syncup/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			m := database.NewMigrator(cfg.DatabaseURL)
			switch args[0] {
			case "up":
				return m.Up(cmd.Context())
			case "down":
				return m.Down(cmd.Context())
			case "status":
				return m.Status(cmd.Context())
			}
			return fmt.Errorf("unknown migrate action %q", args[0])
		},
	}
}
