package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smeaudit/internal/config"
	"smeaudit/internal/core"
	"smeaudit/internal/db"
	"smeaudit/internal/logger"
	"smeaudit/migrations"
)

// withDatabase loads the config, connects and runs fn. Commands using it talk to
// Postgres directly instead of going through the API.
func (g *globalFlags) withDatabase(ctx context.Context, fn func(pool *pgxpool.Pool, logger *zap.Logger) error) error {
	cfg, _, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	zl, err := logger.New(cfg.Application, cfg.Logger.Level)
	if err != nil {
		return err
	}
	defer func() {
		_ = zl.Sync()
	}()

	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool, zl)
}

func newMigrateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withDatabase(cmd.Context(), func(pool *pgxpool.Pool, zl *zap.Logger) error {
				if err := migrations.Apply(cmd.Context(), pool, zl); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
				return nil
			})
		},
	}
}

func newUserCommand(g *globalFlags) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage login accounts",
	}

	var companyID int
	var email, role string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user; the password is read from SME_PASSWORD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("SME_PASSWORD")
			if password == "" {
				return errors.New("set SME_PASSWORD to the new user's password")
			}
			return g.withDatabase(cmd.Context(), func(pool *pgxpool.Pool, _ *zap.Logger) error {
				users := core.NewUserService(pool)
				company, err := users.GetCompany(cmd.Context(), companyID)
				if err != nil {
					return err
				}
				u, err := users.Create(cmd.Context(), company.ID, args[0], email, password, role)
				if err != nil {
					var ve *core.ValidationErrors
					if errors.As(err, &ve) {
						for field, msg := range ve.Fields {
							fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
						}
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d, %s) in %s %s\n",
					u.Username, u.ID, u.Role, company.CompanyCode, company.Name)
				return nil
			})
		},
	}
	create.Flags().IntVar(&companyID, "company", 1, "company id")
	create.Flags().StringVar(&email, "email", "", "email address")
	create.Flags().StringVar(&role, "role", "accountant", "role")

	user.AddCommand(create)
	return user
}
