package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/config"
	"github.com/ifuryst/affpress/internal/server"
	"github.com/ifuryst/affpress/internal/service"
	"github.com/ifuryst/affpress/pkg/logger"
)

var (
	configPath string
	topic      string
	account    string
	version    = "0.1.0"
	gitCommit  = "unknown"
	buildTime  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "affpress",
	Short: "Affpress - Affiliate content generation and publishing pipeline",
	Long:  `Affpress generates commercial articles, publishes the ones carrying affiliate links and records every decision for audit.`,
	RunE:  runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Affpress %s\n", version)
		fmt.Printf("Git commit: %s\n", gitCommit)
		fmt.Printf("Build time: %s\n", buildTime)
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Run the pipeline once and print the result",
	RunE:  runTrigger,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the earnings CSV to stdout",
	RunE:  runExport,
}

var totpCmd = &cobra.Command{
	Use:   "totp-secret",
	Short: "Generate a TOTP secret for admin login",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, url, err := service.GenerateSecret(account)
		if err != nil {
			return err
		}
		fmt.Printf("Secret: %s\n", secret)
		fmt.Printf("URL: %s\n", url)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "config file path")
	triggerCmd.Flags().StringVarP(&topic, "topic", "t", "", "topic to write about")
	totpCmd.Flags().StringVar(&account, "account", "admin", "account name shown in the authenticator app")
	rootCmd.AddCommand(versionCmd, triggerCmd, exportCmd, totpCmd)
}

func setup() (*config.Config, *zap.Logger, error) {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, appLogger, nil
}

// withControl opens the database for a one-shot command and closes it afterwards.
func withControl(fn func(ctx context.Context, control *service.ControlService) error) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer service.CloseDatabase(db)

	control, err := service.NewControlService(cfg, db, appLogger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, control)
}

func runTrigger(*cobra.Command, []string) error {
	return withControl(func(ctx context.Context, control *service.ControlService) error {
		result, err := control.TriggerOnce(ctx, topic)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
		return err
	})
}

func runExport(*cobra.Command, []string) error {
	return withControl(func(ctx context.Context, control *service.ControlService) error {
		return control.ExportEarnings(ctx, os.Stdout)
	})
}

func runServer(*cobra.Command, []string) error {
	cfg, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Affpress server", zap.String("version", version))

	// Create server
	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil {
			appLogger.Error("Server failed to start", zap.Error(err))
			cancel()
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		appLogger.Info("Shutting down server...")
	case <-ctx.Done():
		appLogger.Info("Server context cancelled")
	}

	// Graceful shutdown
	if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	appLogger.Info("Server exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
