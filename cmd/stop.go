package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/client"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a server started with `testgen serve`",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func stopServer(ctx context.Context) error {
	logger.Step("Stopping testgen server...")

	data, err := os.ReadFile(pidFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no server running")
		}
		return err
	}

	var pid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pid); err != nil {
		return fmt.Errorf("invalid PID file")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		os.Remove(pidFile())
		return fmt.Errorf("failed to signal server process %d: %w", pid, err)
	}

	// Verify the server stopped answering
	logger.Step("Verifying server is stopped...")
	c := client.New(resolveServer(), client.Options{Timeout: time.Second})
	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if err := c.Health(ctx); err != nil {
			logger.Success("Server stopped")
			return nil
		}
	}

	return fmt.Errorf("server is still running at %s", c.BaseURL())
}
