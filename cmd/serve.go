package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/config"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the test generation service",
	Long: `Run the HTTP service used by the dashboard and the client commands.

The first interrupt shuts the server down gracefully; a second one forces exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

// RunServer loads configuration and serves until SIGINT or SIGTERM
func RunServer() error {
	if logger == nil {
		if err := initConfig(); err != nil {
			return err
		}
	}

	logger.Step("Starting testgen server...")
	logger.Debug("Debug mode: %v", debug)

	pid := pidFile()
	if _, err := os.Stat(pid); err == nil {
		return fmt.Errorf("server is already running (remove %s if it is not)", pid)
	}

	logger.Step("Validating environment...")
	env, err := config.Load(logger, config.Options{EnvFile: envFile, ConfigFile: cfgFile})
	if err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}
	if servePort != "" {
		env.Port = servePort
	}
	logger.Success("Environment validated")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := buildServer(ctx, logger, env)
	if err != nil {
		return err
	}
	logger.Success("Server initialized")

	if err := os.MkdirAll(stateDir(), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(pid, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to save PID: %w", err)
	}
	defer os.Remove(pid)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shuttingDown := make(chan struct{}, 1)
	go func() {
		for sig := range sigCh {
			select {
			case <-shuttingDown:
				logger.Error("Force stopping...")
				os.Remove(pid)
				os.Exit(1)
			default:
				logger.Info("Received signal: %v", sig)
				logger.Info("Press Ctrl+C again to force stop")
				shuttingDown <- struct{}{}
				cancel()
			}
		}
	}()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Success("Server shutdown complete")
	return nil
}
