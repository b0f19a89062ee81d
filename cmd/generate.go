package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/ai"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/client"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/pullrequest"
	"github.com/spf13/cobra"
)

var (
	outPath     string
	framework   string
	summaryPath string
	prFiles     []string
	branchName  string
	prTitle     string
	prBody      string
	commitPath  string
)

var summaryCmd = &cobra.Command{
	Use:   "summary <owner/repo> [pattern...]",
	Short: "Generate a test case summary for selected files",
	Long: `Generate a high-level test case summary for the code files of a repository.

Patterns are globs (matched against the path and the file name) or directory
prefixes. Without patterns every code file is sent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, files, err := fetchSelection(cmd.Context(), args)
		if err != nil {
			return err
		}

		logger.AI("Generating test summary for %d file(s)...", len(files))
		summary, err := c.Summary(cmd.Context(), files)
		if err != nil {
			return err
		}
		return writeOutput(outPath, "Test Summary", summary)
	},
}

var codeCmd = &cobra.Command{
	Use:   "code <owner/repo> [pattern...]",
	Short: "Turn a test summary into runnable test code",
	Long: `Convert a summary produced by "testgen summary" into test code.

Files selected by patterns are attached as reference sources.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if summaryPath == "" {
			return apperr.Validation("--summary is required (use - for stdin)", apperr.ErrMissingSummary)
		}
		summary, err := readInput(summaryPath)
		if err != nil {
			return err
		}

		var c *client.Client
		var files []ai.File
		if len(args) > 1 {
			c, files, err = fetchSelection(cmd.Context(), args)
		} else {
			c, err = newClient()
		}
		if err != nil {
			return err
		}

		logger.AI("Generating %s test code...", frameworkName())
		code, err := c.FullCode(cmd.Context(), summary, framework, files)
		if err != nil {
			return err
		}
		return writeOutput(outPath, "Test Code", code)
	},
}

var prCmd = &cobra.Command{
	Use:   "pr <owner/repo>",
	Short: "Commit local files to a branch and open a pull request",
	Long: `Commit files to a branch off the default branch and open a pull request.

Each --file is repo/path=local/path, or a single path used for both. Reusing
--branch updates the same branch and its open pull request.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, err := parseRepo(args[0])
		if err != nil {
			return err
		}

		files, err := parseFileArgs(prFiles, readInput)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		res, err := c.RaisePR(cmd.Context(), client.PRRequest{
			Owner:      owner,
			Repo:       repo,
			BranchName: branchName,
			Files:      files,
			Title:      prTitle,
			Body:       prBody,
		})
		if err != nil {
			return err
		}
		reportPR(res)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <owner/repo> [pattern...]",
	Short: "Run the whole flow: select files, summarize, generate code, open a PR",
	Long: `Run every step of the dashboard in sequence.

With --commit-to the generated code is committed to that path and a pull
request is raised; otherwise the code is only printed or written to --out.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, repo, err := parseRepo(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		res, err := c.Generate(cmd.Context(), logger, client.GenerateRequest{
			Owner:      owner,
			Repo:       repo,
			Patterns:   args[1:],
			Framework:  framework,
			OutputPath: commitPath,
			BranchName: branchName,
			Title:      prTitle,
			Body:       prBody,
		})
		if err != nil {
			return err
		}

		if err := writeOutput("", "Test Summary", res.Summary); err != nil {
			return err
		}
		if err := writeOutput(outPath, "Test Code", res.Code); err != nil {
			return err
		}
		if res.PR != nil {
			reportPR(res.PR)
		}
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the summary to a file instead of stdout")

	codeCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the code to a file instead of stdout")
	codeCmd.Flags().StringVarP(&summaryPath, "summary", "s", "", "Summary file, - for stdin")
	codeCmd.Flags().StringVarP(&framework, "framework", "f", "", "Test framework (default Jest)")

	prCmd.Flags().StringArrayVar(&prFiles, "file", nil, "repo/path=local/path to commit (repeatable)")
	addPRFlags(prCmd)

	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the code to a file instead of stdout")
	generateCmd.Flags().StringVarP(&framework, "framework", "f", "", "Test framework (default Jest)")
	generateCmd.Flags().StringVar(&commitPath, "commit-to", "", "Repository path to commit the code to and raise a PR")
	addPRFlags(generateCmd)

	rootCmd.AddCommand(summaryCmd, codeCmd, prCmd, generateCmd)
}

func addPRFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&branchName, "branch", "b", "", "Branch name (default auto-test-<millis>)")
	cmd.Flags().StringVar(&prTitle, "title", "", "Pull request title")
	cmd.Flags().StringVar(&prBody, "body", "", "Pull request body")
}

func frameworkName() string {
	if framework == "" {
		return ai.DefaultFramework
	}
	return framework
}

// fetchSelection resolves args[0] and fetches the files matching args[1:]
func fetchSelection(ctx context.Context, args []string) (*client.Client, []ai.File, error) {
	owner, repo, err := parseRepo(args[0])
	if err != nil {
		return nil, nil, err
	}
	c, err := newClient()
	if err != nil {
		return nil, nil, err
	}

	entries, err := c.Files(ctx, owner, repo)
	if err != nil {
		return nil, nil, err
	}

	var files []ai.File
	for _, e := range entries {
		if !client.Matches(e.GetPath(), args[1:]) {
			continue
		}
		f, err := c.FileContent(ctx, owner, repo, e.GetPath())
		if err != nil {
			return nil, nil, err
		}
		logger.File("Fetched %s", f.Path)
		files = append(files, ai.File{Path: f.Path, Content: f.Content})
	}
	if len(files) == 0 {
		return nil, nil, apperr.Validation("No files matched the selection", apperr.ErrEmptyInput)
	}
	return c, files, nil
}

// parseFileArgs turns repo=local pairs into files using read for contents
func parseFileArgs(args []string, read func(string) (string, error)) ([]pullrequest.File, error) {
	if len(args) == 0 {
		return nil, apperr.Validation("at least one --file is required", apperr.ErrEmptyInput)
	}

	files := make([]pullrequest.File, 0, len(args))
	for _, arg := range args {
		repoPath, localPath, found := strings.Cut(arg, "=")
		if !found {
			localPath = repoPath
		}
		repoPath = strings.TrimPrefix(strings.TrimSpace(repoPath), "/")
		if repoPath == "" || localPath == "" {
			return nil, apperr.Validation(fmt.Sprintf("invalid --file %q", arg), nil)
		}

		content, err := read(localPath)
		if err != nil {
			return nil, err
		}
		files = append(files, pullrequest.File{Path: repoPath, Content: content})
	}
	return files, nil
}

func reportPR(res *pullrequest.Result) {
	if res.Reused {
		logger.PR("Updated existing PR #%d on %s", res.PRNumber, res.BranchName)
	} else {
		logger.Success("Created PR #%d", res.PRNumber)
		logger.Branch("Branch: %s", res.BranchName)
	}
	logger.PR("URL: %s", res.PRURL)
}
