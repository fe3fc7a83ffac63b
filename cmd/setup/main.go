// Command setup installs the database schema, seeds the roles, settings and
// the first administrator, then writes the configuration file. It refuses
// to run twice.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"notary-service/internal/config"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/repository/postgres"
	"notary-service/internal/service/setup"

	"go.uber.org/zap"
)

func main() {
	var in setup.Input
	configPath := flag.String("config", config.DefaultPath, "where to write the configuration file")
	flag.StringVar(&in.DBHost, "db-host", "localhost", "database host")
	flag.IntVar(&in.DBPort, "db-port", 5432, "database port")
	flag.StringVar(&in.DBName, "db-name", "notary", "database name")
	flag.StringVar(&in.DBUser, "db-user", "postgres", "database user")
	flag.BoolVar(&in.CreateDatabase, "create-db", false, "create the database when it does not exist")
	flag.StringVar(&in.SystemName, "system-name", "", "name shown in the page header")
	flag.StringVar(&in.DefaultLanguage, "language", "en", "default interface language")
	flag.StringVar(&in.Timezone, "timezone", "UTC", "IANA time zone used by scheduled jobs")
	flag.StringVar(&in.BaseURL, "base-url", "", "public URL used in emailed links")
	flag.StringVar(&in.HTTPAddr, "http-addr", ":8000", "listen address")
	flag.StringVar(&in.RedisAddr, "redis-addr", "", "Redis address for sessions, empty keeps them in memory")
	flag.StringVar(&in.AdminUsername, "admin-username", "admin", "administrator username")
	flag.StringVar(&in.AdminEmail, "admin-email", "", "administrator email")
	flag.StringVar(&in.AdminFullName, "admin-name", "System Administrator", "administrator full name")
	flag.Parse()

	// Secrets come from the environment so they stay out of shell history.
	in.DBPassword = os.Getenv("SETUP_DB_PASSWORD")
	in.AdminPassword = os.Getenv("SETUP_ADMIN_PASSWORD")

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	wizard := setup.NewWizard(*configPath, postgres.Open, 0, logger)
	cfg, err := wizard.Run(ctx, &in)
	if err != nil {
		report(err)
		os.Exit(1)
	}
	fmt.Printf("Installation complete. Configuration written to %s\n", *configPath)
	fmt.Printf("Start the server and sign in at %s/login as %q.\n", cfg.BaseURL, in.AdminUsername)
}

func report(err error) {
	if xerrors.Is(err, xerrors.ErrAlreadyConfigured) {
		fmt.Fprintln(os.Stderr, "The system is already installed. Remove the configuration file to reinstall.")
		return
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		fmt.Fprintln(os.Stderr, "Setup cannot continue:")
		for _, e := range joined.Unwrap() {
			fmt.Fprintf(os.Stderr, "  - %s\n", xerrors.PublicMessage(e, e.Error()))
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
}
