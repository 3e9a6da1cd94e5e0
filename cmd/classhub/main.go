package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classhub/internal/app"
	"classhub/internal/config"
	"classhub/internal/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "classhub:", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down gracefully
func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet("classhub", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", os.Getenv(config.EnvPrefix+"CONFIG_FILE"), "path to a JSON config file")
	envPath := flags.String("env", ".env", "path to a .env file (ignored when missing)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfigWithPrecedence(*envPath, *configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	if err := application.Start(ctx); err != nil {
		return errors.Join(err, application.Stop(context.Background()))
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
