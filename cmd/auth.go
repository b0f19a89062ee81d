package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/client"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/github"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login [code]",
	Short: "Sign in with a GitHub OAuth code",
	Long: `Exchange a GitHub OAuth authorization code for a testgen session.

Without a code, the GitHub authorize URL is printed (CLIENT_ID must be set)
and the code is read from stdin once GitHub redirects back with it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := ""
		if len(args) == 1 {
			code = args[0]
		} else {
			var err error
			if code, err = promptForCode(); err != nil {
				return err
			}
		}

		base := resolveServer()
		c := client.New(base, client.Options{CookieName: viper.GetString("cookie_name")})
		token, err := c.Login(cmd.Context(), code)
		if err != nil {
			return err
		}

		if err := client.SaveSession(sessionPath, client.Session{Server: base, Token: token}); err != nil {
			return err
		}
		logger.Success("Logged in to %s", base)
		logger.Debug("Session saved to %s", sessionPath)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if c, err := newClient(); err == nil {
			if err := c.Logout(cmd.Context()); err != nil {
				logger.Warning("Server logout failed: %v", err)
			}
		}
		if err := client.ClearSession(sessionPath); err != nil {
			return err
		}
		logger.Success("Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func promptForCode() (string, error) {
	clientID := viper.GetString("client_id")
	if clientID == "" {
		return "", fmt.Errorf("pass the OAuth code as an argument or set CLIENT_ID to print the authorize URL")
	}

	gh, err := github.New(logger, github.Options{ClientID: clientID})
	if err != nil {
		return "", err
	}

	logger.Info("Open this URL and authorize the app:")
	fmt.Println(gh.AuthCodeURL(uuid.NewString()))
	fmt.Print("Paste the code from the redirect URL: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", fmt.Errorf("no code entered")
	}
	return code, nil
}
