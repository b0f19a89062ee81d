package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/github"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var stdout io.Writer = os.Stdout

// newTable creates a borderless, left-aligned table
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// parseRepo accepts owner/repo or any GitHub repository URL
func parseRepo(arg string) (owner, repo string, err error) {
	owner, repo, err = github.ParseRepoURL(arg)
	if err != nil {
		return "", "", fmt.Errorf("%q is not a repository: %w", arg, err)
	}
	return owner, repo, nil
}

// writeOutput prints text to stdout or saves it to path
func writeOutput(path, title, text string) error {
	if path == "" || path == "-" {
		color.New(color.FgCyan, color.Bold).Fprintf(stdout, "── %s ──\n", title)
		fmt.Fprintln(stdout, strings.TrimRight(text, "\n"))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.File("Wrote %s to %s", strings.ToLower(title), path)
	return nil
}

// readInput reads path, or stdin for "-"
func readInput(path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		return string(raw), err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(raw), nil
}
