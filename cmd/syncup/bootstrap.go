package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syncup/syncup/internal/auth"
	"github.com/syncup/syncup/internal/database"
)

func newBootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first company and admin on an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.New(cmd.Context(), cfg.DatabaseURL, database.Options{MaxConns: 2})
			if err != nil {
				return err
			}
			defer db.Close()

			authService := auth.NewService(auth.NewRepository(db.Pool()), cfg.JWTSecret, cfg.JWTExpiration, cfg.BcryptCost)
			password, err := authService.Bootstrap(cmd.Context(), cfg.BootstrapCompany, cfg.BootstrapAdminEmail)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if password == "" {
				fmt.Fprintln(out, "users already exist; nothing to do")
				return nil
			}
			fmt.Fprintf(out, "created admin %s\npassword: %s\nThe password is shown only once.\n", cfg.BootstrapAdminEmail, password)
			return nil
		},
	}
}
