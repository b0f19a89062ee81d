package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
)

// Client handles GitHub operations on behalf of a caller-supplied token.
// It holds no per-user state; every method takes the token explicitly.
type Client struct {
	logger     *log.Logger
	oauth      *oauth2.Config
	baseURL    *url.URL
	httpClient *http.Client
}

// Options configures the OAuth app and optional endpoint overrides
type Options struct {
	ClientID     string
	ClientSecret string
	// APIURL overrides https://api.github.com/ (GitHub Enterprise, tests)
	APIURL string
	// AuthURL and TokenURL override the github.com OAuth endpoint
	AuthURL  string
	TokenURL string
	// HTTPClient is the transport used beneath the token source
	HTTPClient *http.Client
}

// New creates a new GitHub client
func New(logger *log.Logger, opts Options) (*Client, error) {
	endpoint := oauthgithub.Endpoint
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	c := &Client{
		logger: logger,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{"repo"},
		},
		httpClient: opts.HTTPClient,
	}

	if opts.APIURL != "" {
		u, err := url.Parse(opts.APIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.baseURL = u
	}

	return c, nil
}

func (c *Client) ctx(ctx context.Context) context.Context {
	if c.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	return ctx
}

// forToken builds a go-github client authorized with token
func (c *Client) forToken(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(c.ctx(ctx), ts)

	gh := github.NewClient(tc)
	if c.baseURL != nil {
		gh.BaseURL = c.baseURL
	}
	return gh
}

// AuthCodeURL returns the GitHub authorize URL for the OAuth app
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an OAuth authorization code for an access token
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", apperr.Validation("Code is required", nil)
	}

	tok, err := c.oauth.Exchange(c.ctx(ctx), code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode >= 500 {
			return "", apperr.Upstream(re.Response.StatusCode, "Failed to get access token", string(re.Body), err)
		}
		return "", apperr.Auth("Failed to get access token", err)
	}
	if tok.AccessToken == "" {
		return "", apperr.Auth("Failed to get access token", errors.New("empty access token"))
	}

	return tok.AccessToken, nil
}

// ListRepositories returns every repository visible to the token's user
func (c *Client) ListRepositories(ctx context.Context, token string) ([]*github.Repository, error) {
	gh := c.forToken(ctx, token)

	var all []*github.Repository
	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	for {
		repos, resp, err := gh.Repositories.List(ctx, "", opts)
		if err != nil {
			return nil, classify(err, "Failed to fetch repos")
		}

		all = append(all, repos...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetDefaultBranch gets the default branch for a repository
func (c *Client) GetDefaultBranch(ctx context.Context, token, owner, repo string) (string, error) {
	repository, _, err := c.forToken(ctx, token).Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", classify(err, "failed to get repository")
	}

	return repository.GetDefaultBranch(), nil
}

// GetBranchSHA returns the commit SHA at the tip of branch
func (c *Client) GetBranchSHA(ctx context.Context, token, owner, repo, branch string) (string, error) {
	ref, _, err := c.forToken(ctx, token).Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
	if err != nil {
		return "", classify(err, fmt.Sprintf("failed to read branch %s", branch))
	}

	return ref.GetObject().GetSHA(), nil
}

// ListTree returns the recursive tree of the default branch
func (c *Client) ListTree(ctx context.Context, token, owner, repo string) ([]*github.TreeEntry, error) {
	branch, err := c.GetDefaultBranch(ctx, token, owner, repo)
	if err != nil {
		return nil, err
	}

	tree, _, err := c.forToken(ctx, token).Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("failed to list tree of %s", branch))
	}
	if tree.GetTruncated() {
		c.logger.Warning("Tree of %s/%s@%s was truncated by GitHub", owner, repo, branch)
	}

	return tree.Entries, nil
}

// ListCodeFiles returns the default branch's source files after filtering
func (c *Client) ListCodeFiles(ctx context.Context, token, owner, repo string) ([]*github.TreeEntry, error) {
	entries, err := c.ListTree(ctx, token, owner, repo)
	if err != nil {
		return nil, err
	}

	files := FilterCodeFiles(entries)
	c.logger.Debug("%s/%s: %d of %d tree entries are code files", owner, repo, len(files), len(entries))
	return files, nil
}

// GetFileContent fetches a file from the default branch and decodes it
func (c *Client) GetFileContent(ctx context.Context, token, owner, repo, path string) (*File, error) {
	file, _, _, err := c.forToken(ctx, token).Repositories.GetContents(
		ctx,
		owner,
		repo,
		path,
		&github.RepositoryContentGetOptions{},
	)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("failed to fetch %s", path))
	}
	if file == nil {
		return nil, apperr.Validation(fmt.Sprintf("%s is a directory", path), nil)
	}

	decoded, err := file.GetContent()
	if err != nil {
		return nil, apperr.Upstream(0, fmt.Sprintf("failed to decode %s", path), nil, err)
	}

	return &File{
		Name:    file.GetName(),
		Path:    file.GetPath(),
		Content: decoded,
		Size:    file.GetSize(),
	}, nil
}

// EnsureBranch creates branch at baseSHA unless it already exists. It
// reports whether the branch was created.
func (c *Client) EnsureBranch(ctx context.Context, token, owner, repo, branch, baseSHA string) (bool, error) {
	gh := c.forToken(ctx, token)

	_, _, err := gh.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
	if err == nil {
		return false, nil
	}

	err = classify(err, fmt.Sprintf("failed to read branch %s", branch))
	if !apperr.Is(err, apperr.KindNotFound) {
		return false, err
	}

	_, _, err = gh.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(baseSHA)},
	})
	if err != nil {
		return false, classify(err, fmt.Sprintf("failed to create branch %s", branch))
	}

	return true, nil
}

// UpsertFile writes content to path on branch, updating the file when it
// already exists there. It reports whether the file was created.
func (c *Client) UpsertFile(ctx context.Context, token, owner, repo, path, content, branch string) (bool, error) {
	gh := c.forToken(ctx, token)

	var currentSHA string
	existing, _, _, err := gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: branch,
	})
	switch {
	case err == nil && existing != nil:
		currentSHA = existing.GetSHA()
	case err != nil:
		err = classify(err, fmt.Sprintf("failed to read %s", path))
		if !apperr.Is(err, apperr.KindNotFound) {
			return false, err
		}
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String("Update " + path),
		Content: []byte(content),
		Branch:  github.String(branch),
	}

	if currentSHA == "" {
		_, _, err = gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	} else {
		opts.SHA = github.String(currentSHA)
		_, _, err = gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	}
	if err != nil {
		return false, classify(err, fmt.Sprintf("failed to write %s", path))
	}

	return currentSHA == "", nil
}

// FindOpenPR returns the open pull request whose head is branch, or nil
func (c *Client) FindOpenPR(ctx context.Context, token, owner, repo, branch string) (*github.PullRequest, error) {
	prs, _, err := c.forToken(ctx, token).PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + branch,
		ListOptions: github.ListOptions{
			PerPage: 1,
		},
	})
	if err != nil {
		return nil, classify(err, "failed to list pull requests")
	}
	if len(prs) == 0 {
		return nil, nil
	}

	return prs[0], nil
}

// CreatePR creates a new pull request
func (c *Client) CreatePR(ctx context.Context, token, owner, repo, title, body, head, base string) (*github.PullRequest, error) {
	pr, _, err := c.forToken(ctx, token).PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, classify(err, "failed to create PR")
	}

	return pr, nil
}

// ParseRepoURL parses a GitHub URL or owner/repo pair into owner and repo
func (c *Client) ParseRepoURL(repoURL string) (owner, repo string, err error) {
	return ParseRepoURL(repoURL)
}

// ParseRepoURL parses a GitHub URL or owner/repo pair into owner and repo
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	// Handle different URL formats
	repoURL = strings.TrimSuffix(repoURL, ".git")

	// Handle SSH URLs (git@github.com:owner/repo)
	if strings.HasPrefix(repoURL, "git@github.com:") {
		parts := strings.Split(strings.TrimPrefix(repoURL, "git@github.com:"), "/")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("invalid SSH repository URL format")
		}
		return parts[0], parts[1], nil
	}

	// Handle HTTPS URLs and bare owner/repo
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository URL format")
	}

	return parts[0], parts[1], nil
}

// classify maps go-github failures onto the error taxonomy
func classify(err error, msg string) error {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		detail := map[string]any{"message": er.Message}
		if len(er.Errors) > 0 {
			detail["errors"] = er.Errors
		}
		if er.DocumentationURL != "" {
			detail["documentation_url"] = er.DocumentationURL
		}

		switch er.Response.StatusCode {
		case http.StatusNotFound:
			return &apperr.Error{Kind: apperr.KindNotFound, Status: http.StatusNotFound, Message: msg, Detail: detail, Err: err}
		case http.StatusUnauthorized:
			return &apperr.Error{Kind: apperr.KindAuth, Status: http.StatusUnauthorized, Message: msg, Detail: detail, Err: err}
		default:
			return apperr.Upstream(er.Response.StatusCode, msg, detail, err)
		}
	}

	var rl *github.RateLimitError
	if errors.As(err, &rl) {
		return apperr.Upstream(http.StatusForbidden, msg, map[string]any{"message": rl.Message}, err)
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return apperr.Upstream(http.StatusForbidden, msg, map[string]any{"message": abuse.Message}, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Upstream(http.StatusGatewayTimeout, msg, nil, err)
	}

	return apperr.Upstream(0, msg, nil, err)
}
