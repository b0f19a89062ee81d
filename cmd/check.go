package cmd

import (
	"fmt"
	"time"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/client"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the testgen service is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base := resolveServer()
		c := client.New(base, client.Options{Timeout: 5 * time.Second})
		if err := c.Health(cmd.Context()); err != nil {
			return fmt.Errorf("server is not running at %s: %w", base, err)
		}

		logger.Success("Server is running at %s", base)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
