package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/client"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/config"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Shared by every command, set up in PersistentPreRunE
var (
	logger *log.Logger

	debug       bool
	cfgFile     string
	envFile     string
	serverURL   string
	sessionPath string
)

var rootCmd = &cobra.Command{
	Use:   "testgen",
	Short: "Generate test cases for GitHub repositories and open PRs with them",
	Long: `testgen runs the test generation service and drives it from the terminal.

The service signs users in with GitHub, lists the code files of a repository,
asks an AI model for a test case summary and runnable test code, and commits
the result to a branch with a pull request.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute is the main entry point called from main.go
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = log.New(debug)
		}
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file with the same keys as the environment")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "testgen service URL (default from session, then localhost)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", client.DefaultSessionPath(), "Session file written by login")
}

func initConfig() error {
	debug = debug || strings.EqualFold(os.Getenv("DEBUG"), "true")
	logger = log.New(debug)

	if err := config.LoadDotEnv(logger, envFile); err != nil {
		return err
	}

	config.SetDefaults(viper.GetViper())
	viper.AutomaticEnv()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}
	return nil
}

// stateDir is ~/.testgen, home of the session, port and PID files
func stateDir() string {
	return filepath.Dir(server.DefaultPortFile())
}

func pidFile() string {
	return filepath.Join(stateDir(), "testgen.pid")
}

// resolveServer picks the service URL: --server, then the logged-in
// session, then the port written by `testgen serve`, then PORT
func resolveServer() string {
	if serverURL != "" {
		return strings.TrimSuffix(serverURL, "/")
	}
	if s, err := client.LoadSession(sessionPath); err == nil && s.Server != "" {
		return s.Server
	}
	if raw, err := os.ReadFile(server.DefaultPortFile()); err == nil {
		if port := strings.TrimSpace(string(raw)); port != "" {
			return "http://localhost:" + port
		}
	}
	return "http://localhost:" + viper.GetString("port")
}

// newClient returns a client carrying the saved session
func newClient() (*client.Client, error) {
	s, err := client.LoadSession(sessionPath)
	if err != nil {
		return nil, err
	}

	base := s.Server
	if serverURL != "" || base == "" {
		base = resolveServer()
	}
	return client.New(base, client.Options{
		CookieName: viper.GetString("cookie_name"),
		Token:      s.Token,
	}), nil
}
