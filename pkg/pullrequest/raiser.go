// Package pullrequest commits generated files to a branch and opens (or
// reuses) a pull request for them.
package pullrequest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
)

const (
	DefaultTitle  = "Auto-generated code updates"
	DefaultBody   = "This PR contains automatically generated code updates."
	BranchPrefix  = "auto-test-"
	reuseMessage  = "Files updated in existing PR"
	createMessage = "Pull request created"
)

// GitHubClient is the subset of the repository host used to raise a PR
type GitHubClient interface {
	GetDefaultBranch(ctx context.Context, token, owner, repo string) (string, error)
	GetBranchSHA(ctx context.Context, token, owner, repo, branch string) (string, error)
	EnsureBranch(ctx context.Context, token, owner, repo, branch, baseSHA string) (bool, error)
	UpsertFile(ctx context.Context, token, owner, repo, path, content, branch string) (bool, error)
	FindOpenPR(ctx context.Context, token, owner, repo, branch string) (*github.PullRequest, error)
	CreatePR(ctx context.Context, token, owner, repo, title, body, head, base string) (*github.PullRequest, error)
}

// File is a path and the content to commit there
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Request describes the files to commit and the PR to open
type Request struct {
	Owner      string
	Repo       string
	BranchName string
	Files      []File
	Title      string
	Body       string
}

// Result is the outcome of a successful Raise
type Result struct {
	Success    bool   `json:"success"`
	PRURL      string `json:"prUrl"`
	PRNumber   int    `json:"prNumber"`
	BranchName string `json:"branchName"`
	Reused     bool   `json:"reused,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Raiser runs the branch, commit, pull request sequence
type Raiser struct {
	logger *log.Logger
	github GitHubClient
	now    func() time.Time
}

// New creates a new Raiser
func New(logger *log.Logger, gh GitHubClient) *Raiser {
	return &Raiser{
		logger: logger,
		github: gh,
		now:    time.Now,
	}
}

// CommitError reports a failure after some files were already committed.
// Re-running with the same branch name resumes from the current state.
type CommitError struct {
	Branch    string
	Committed []string
	Err       error
}

func (e *CommitError) Error() string {
	if len(e.Committed) == 0 {
		return fmt.Sprintf("branch %s: %v", e.Branch, e.Err)
	}
	return fmt.Sprintf("branch %s (committed %s): %v", e.Branch, strings.Join(e.Committed, ", "), e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Raise commits req.Files to a branch off the default branch and returns the
// open pull request for that branch, creating it when none exists
func (r *Raiser) Raise(ctx context.Context, token string, req Request) (*Result, error) {
	if token == "" {
		return nil, apperr.Auth("Unauthorized", apperr.ErrNoCredential)
	}
	if req.Owner == "" || req.Repo == "" {
		return nil, apperr.Validation("Owner and repo are required", nil)
	}
	if len(req.Files) == 0 {
		return nil, apperr.Validation("No files provided", apperr.ErrEmptyInput)
	}

	r.logger.Step("Fetching repository info...")
	base, err := r.github.GetDefaultBranch(ctx, token, req.Owner, req.Repo)
	if err != nil {
		return nil, err
	}
	baseSHA, err := r.github.GetBranchSHA(ctx, token, req.Owner, req.Repo, base)
	if err != nil {
		return nil, err
	}
	r.logger.Branch("Default branch: %s @ %s", base, baseSHA)

	branch := req.BranchName
	if branch == "" {
		branch = fmt.Sprintf("%s%d", BranchPrefix, r.now().UnixMilli())
	}

	created, err := r.github.EnsureBranch(ctx, token, req.Owner, req.Repo, branch, baseSHA)
	if err != nil {
		return nil, &CommitError{Branch: branch, Err: err}
	}
	if created {
		r.logger.Branch("Created branch %s", branch)
	} else {
		r.logger.Branch("Using existing branch %s", branch)
	}

	var committed []string
	for _, f := range req.Files {
		if _, err := r.github.UpsertFile(ctx, token, req.Owner, req.Repo, f.Path, f.Content, branch); err != nil {
			r.logger.Error("Failed to commit %s: %v", f.Path, err)
			return nil, &CommitError{Branch: branch, Committed: committed, Err: err}
		}
		committed = append(committed, f.Path)
		r.logger.File("Committed %s", f.Path)
	}

	existing, err := r.github.FindOpenPR(ctx, token, req.Owner, req.Repo, branch)
	if err != nil {
		return nil, &CommitError{Branch: branch, Committed: committed, Err: err}
	}
	if existing != nil {
		r.logger.PR("Updated existing PR #%d", existing.GetNumber())
		return &Result{
			Success:    true,
			PRURL:      existing.GetHTMLURL(),
			PRNumber:   existing.GetNumber(),
			BranchName: branch,
			Reused:     true,
			Message:    reuseMessage,
		}, nil
	}

	title := req.Title
	if title == "" {
		title = DefaultTitle
	}
	body := req.Body
	if body == "" {
		body = DefaultBody
	}

	r.logger.Step("Creating pull request...")
	pr, err := r.github.CreatePR(ctx, token, req.Owner, req.Repo, title, body, branch, base)
	if err != nil {
		return nil, &CommitError{Branch: branch, Committed: committed, Err: err}
	}

	r.logger.Success("Created PR #%d", pr.GetNumber())
	r.logger.PR("URL: %s", pr.GetHTMLURL())

	return &Result{
		Success:    true,
		PRURL:      pr.GetHTMLURL(),
		PRNumber:   pr.GetNumber(),
		BranchName: branch,
		Message:    createMessage,
	}, nil
}
