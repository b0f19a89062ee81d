package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		repos, err := c.Repos(cmd.Context())
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			logger.Info("No repositories found")
			return nil
		}

		table := newTable(stdout, []string{"Repository", "Default Branch", "Visibility", "Language"})
		for _, r := range repos {
			visibility := "public"
			if r.GetPrivate() {
				visibility = "private"
			}
			_ = table.Append([]string{r.GetFullName(), r.GetDefaultBranch(), visibility, r.GetLanguage()})
		}
		return table.Render()
	},
}

var filesCmd = &cobra.Command{
	Use:   "files <owner/repo>",
	Short: "List code files on the default branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, err := parseRepo(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		entries, err := c.Files(cmd.Context(), owner, repo)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			logger.Info("No code files in %s/%s", owner, repo)
			return nil
		}

		table := newTable(stdout, []string{"Path", "Size"})
		for _, e := range entries {
			_ = table.Append([]string{e.GetPath(), strconv.Itoa(e.GetSize())})
		}
		if err := table.Render(); err != nil {
			return err
		}
		logger.Info("%d code file(s)", len(entries))
		return nil
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <owner/repo> <path>",
	Short: "Print a file from the default branch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, err := parseRepo(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		f, err := c.FileContent(cmd.Context(), owner, repo, args[1])
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, f.Content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reposCmd, filesCmd, catCmd)
}
