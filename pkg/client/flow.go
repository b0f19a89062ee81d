package client

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/ai"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/pullrequest"
)

// GenerateRequest selects files of a repository and what to do with the
// generated tests
type GenerateRequest struct {
	Owner string
	Repo  string
	// Patterns are path.Match globs or plain prefixes; empty selects all
	Patterns  []string
	Framework string

	// OutputPath is where the test code is committed; empty skips the PR
	OutputPath string
	BranchName string
	Title      string
	Body       string
}

// GenerateResult collects the artifacts of one run
type GenerateResult struct {
	Files    []ai.File
	Summary  string
	Code     string
	PR       *pullrequest.Result
	Selected []string
}

// Generate runs the dashboard sequence: list files, fetch the selected
// ones, summarize, generate code and optionally raise a PR. Each step runs
// only after the previous one succeeded.
func (c *Client) Generate(ctx context.Context, logger *log.Logger, req GenerateRequest) (*GenerateResult, error) {
	logger.Step("Listing code files of %s/%s...", req.Owner, req.Repo)
	entries, err := c.Files(ctx, req.Owner, req.Repo)
	if err != nil {
		return nil, err
	}

	res := &GenerateResult{}
	for _, e := range entries {
		if Matches(e.GetPath(), req.Patterns) {
			res.Selected = append(res.Selected, e.GetPath())
		}
	}
	if len(res.Selected) == 0 {
		return nil, apperr.Validation("No files matched the selection", apperr.ErrEmptyInput)
	}
	logger.Info("Selected %d of %d file(s)", len(res.Selected), len(entries))

	for _, p := range res.Selected {
		f, err := c.FileContent(ctx, req.Owner, req.Repo, p)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", p, err)
		}
		logger.File("Fetched %s (%d bytes)", p, len(f.Content))
		res.Files = append(res.Files, ai.File{Path: f.Path, Content: f.Content})
	}

	logger.AI("Generating test summary...")
	if res.Summary, err = c.Summary(ctx, res.Files); err != nil {
		return nil, err
	}

	logger.AI("Generating test code...")
	if res.Code, err = c.FullCode(ctx, res.Summary, req.Framework, res.Files); err != nil {
		return nil, err
	}

	if req.OutputPath == "" {
		return res, nil
	}

	logger.Step("Raising pull request...")
	res.PR, err = c.RaisePR(ctx, PRRequest{
		Owner:      req.Owner,
		Repo:       req.Repo,
		BranchName: req.BranchName,
		Files:      []pullrequest.File{{Path: req.OutputPath, Content: res.Code}},
		Title:      req.Title,
		Body:       req.Body,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Matches reports whether p is selected by any pattern. A pattern selects p
// when it glob-matches p or its base name, or is a directory prefix of p.
func Matches(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if pat == p {
			return true
		}
		if ok, _ := path.Match(pat, p); ok {
			return true
		}
		if ok, _ := path.Match(pat, path.Base(p)); ok {
			return true
		}
		if strings.HasPrefix(p, strings.TrimSuffix(pat, "/")+"/") {
			return true
		}
	}
	return false
}
