package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"clinicdesk.org/internal/audit"
	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/identity"
	"clinicdesk.org/internal/migrate"
	"clinicdesk.org/internal/obs"
	"clinicdesk.org/internal/store/pg"
)

var env = newEnv()

// newEnv reads the settings the commands need straight from the environment.
// The API's full config is not loaded: the CLI never issues tokens, so
// JWT_SECRET and the server settings are not required here.
func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("AUDIT_WRITE_TIMEOUT", "5s")
	return v
}

type seedSettings struct {
	DatabaseURL  string
	LogLevel     string
	BcryptCost   int
	AuditTimeout time.Duration
}

func loadSeedSettings(v *viper.Viper) (seedSettings, error) {
	s := seedSettings{
		DatabaseURL:  v.GetString("DATABASE_URL"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		BcryptCost:   v.GetInt("BCRYPT_COST"),
		AuditTimeout: v.GetDuration("AUDIT_WRITE_TIMEOUT"),
	}
	if s.DatabaseURL == "" {
		return s, errors.New("DATABASE_URL is not set")
	}
	if s.BcryptCost < bcrypt.MinCost || s.BcryptCost > bcrypt.MaxCost {
		return s, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if s.AuditTimeout <= 0 {
		return s, errors.New("AUDIT_WRITE_TIMEOUT must be positive")
	}
	return s, nil
}

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the clinic database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withRunner(func(cmd *cobra.Command, r *migrate.Runner) error {
		if err := r.Up(); err != nil {
			return err
		}
		return printVersion(cmd, r)
	}),
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: withRunner(func(cmd *cobra.Command, r *migrate.Runner) error {
		if err := r.Down(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			return err
		}
		return printVersion(cmd, r)
	}),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE:  withRunner(printVersion),
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the first administrator account",
	Long: `Create an administrator through the identity service so the creation
lands in the activity log like any other registration.

The password is read from --password or SEED_ADMIN_PASSWORD.`,
	RunE: runSeedAdmin,
}

func init() {
	rootCmd.PersistentFlags().String("dsn", "", "Postgres DSN (default $DATABASE_URL)")
	_ = env.BindPFlag("DATABASE_URL", rootCmd.PersistentFlags().Lookup("dsn"))

	seedAdminCmd.Flags().String("username", "admin", "administrator username")
	seedAdminCmd.Flags().String("email", "", "administrator email (required)")
	seedAdminCmd.Flags().String("password", "", "administrator password")
	seedAdminCmd.Flags().String("first-name", "System", "first name")
	seedAdminCmd.Flags().String("last-name", "Administrator", "last name")
	_ = env.BindPFlag("SEED_ADMIN_PASSWORD", seedAdminCmd.Flags().Lookup("password"))

	rootCmd.AddCommand(upCmd, downCmd, versionCmd, seedAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func withRunner(fn func(*cobra.Command, *migrate.Runner) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		r, err := migrate.New(env.GetString("DATABASE_URL"))
		if err != nil {
			return err
		}
		defer r.Close()
		return fn(cmd, r)
	}
}

func printVersion(cmd *cobra.Command, r *migrate.Runner) error {
	v, dirty, err := r.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", v, dirty)
	return nil
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSeedSettings(env)
	if err != nil {
		return err
	}

	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	first, _ := cmd.Flags().GetString("first-name")
	last, _ := cmd.Flags().GetString("last-name")
	password := env.GetString("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return errors.New("--email and a password are required")
	}

	logger := obs.NewLogger(cfg.LogLevel, os.Stderr)
	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	recorder := audit.NewRecorder(store, audit.WithLogger(logger), audit.WithWriteTimeout(cfg.AuditTimeout))
	users := identity.NewService(store, nil, recorder, identity.WithBcryptCost(cfg.BcryptCost))

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	u, err := users.Register(ctx, identity.RegisterInput{
		Username:  username,
		Password:  password,
		Email:     email,
		Role:      string(auth.RoleAdministrator),
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		return err
	}
	if err := recorder.Close(ctx); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created administrator %q (id %d)\n", u.Username, u.ID)
	return nil
}
