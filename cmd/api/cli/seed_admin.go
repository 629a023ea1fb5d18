package cli

import (
	"fmt"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/observability"
	"github.com/geocoder89/pricetracker/internal/repo/postgres"
	"github.com/geocoder89/pricetracker/internal/security"
	"github.com/geocoder89/pricetracker/internal/service"
	"github.com/spf13/cobra"
)

func newSeedAdminCmd() *cobra.Command {
	var (
		email    string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:     "seed-admin",
		Short:   "Create the bootstrap admin account if it does not exist",
		Example: `  pricetracker seed-admin --email admin@example.com --password change-me`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// flags override ADMIN_* variables
			if email == "" {
				email = cfg.AdminEmail
			}
			if username == "" {
				username = cfg.AdminUsername
			}
			if password == "" {
				password = cfg.AdminPassword
			}
			if email == "" || password == "" {
				return fmt.Errorf("admin email and password are required (flags or ADMIN_EMAIL/ADMIN_PASSWORD)")
			}

			pool, err := openPool(cmd.Context(), cfg, "pricetracker-seed-admin")
			if err != nil {
				return err
			}
			defer pool.Close()

			log := observability.NewLogger(cfg.Env)
			authSvc := service.NewAuthService(
				postgres.NewUsersRepo(pool, nil),
				security.NewHasher(cfg.BcryptCost),
				auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
				log,
			)

			created, err := authSvc.EnsureAdmin(cmd.Context(), email, username, password)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address")
	cmd.Flags().StringVar(&username, "username", "", "Admin username")
	cmd.Flags().StringVar(&password, "password", "", "Admin password")

	return cmd
}
