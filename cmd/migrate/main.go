// migrate applies the embedded schema migrations without starting the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/lokeshkumarbalu/jira-assistant/internal/adapter/postgres"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		databaseURL string
		statusOnly  bool
		timeout     time.Duration
		logLevel    string
	)

	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL (or set DATABASE_URL)")
	flagSet.BoolVar(&statusOnly, "status", false, "print the schema version and exit")
	flagSet.DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if databaseURL == "" {
		return errors.New("database URL required (--database-url or DATABASE_URL)")
	}

	logging.InitLogger(logLevel, "text")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if !statusOnly {
		if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
			return err
		}
	}

	status, err := postgres.Status(ctx, pool)
	if err != nil {
		return err
	}
	slog.Info("Schema status", "current", status.Current, "latest", status.Latest, "up_to_date", status.UpToDate())
	if statusOnly && !status.UpToDate() {
		return fmt.Errorf("schema at version %d, latest is %d", status.Current, status.Latest)
	}
	return nil
}
