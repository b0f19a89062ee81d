// Package client drives the testgen service the way the web dashboard does:
// log in, browse repositories, generate tests and raise a pull request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/ai"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	gh "github.com/mauli-16/GitHub-TestCaseGen/pkg/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/pullrequest"
)

// DefaultCookieName matches the service default
const DefaultCookieName = "gh_token"

// Options configures a Client
type Options struct {
	CookieName string
	Token      string
	Timeout    time.Duration
}

// Client talks to a running testgen service with a session token
type Client struct {
	baseURL    string
	cookieName string
	token      string
	http       *http.Client
}

// New creates a client for the service at baseURL
func New(baseURL string, opts Options) *Client {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Timeout == 0 {
		opts.Timeout = 3 * time.Minute
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		cookieName: opts.CookieName,
		token:      opts.Token,
		http: &http.Client{
			Timeout: opts.Timeout,
			// The OAuth callback answers with a redirect carrying the cookie
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Token returns the current session token
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the service address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PRRequest is the body of /raisePR
type PRRequest struct {
	Owner      string             `json:"owner"`
	Repo       string             `json:"repo"`
	BranchName string             `json:"branchName,omitempty"`
	Files      []pullrequest.File `json:"files"`
	Title      string             `json:"prTitle,omitempty"`
	Body       string             `json:"prBody,omitempty"`
}

// Health checks that the service is up
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Login exchanges an OAuth code for a session and keeps its token
func (c *Client) Login(ctx context.Context, code string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getAccessToken?code="+url.QueryEscape(code), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", decodeError(resp)
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName && ck.Value != "" {
			c.token = ck.Value
			return c.token, nil
		}
	}
	return "", apperr.Auth("Login did not return a session", apperr.ErrNoCredential)
}

// Logout clears the session on the service and locally
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/logout", nil, nil)
	c.token = ""
	return err
}

// Repos lists the user's repositories
func (c *Client) Repos(ctx context.Context) ([]*github.Repository, error) {
	var repos []*github.Repository
	if err := c.do(ctx, http.MethodGet, "/getRepos", nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// Files lists the code files on the repository's default branch
func (c *Client) Files(ctx context.Context, owner, repo string) ([]*github.TreeEntry, error) {
	var entries []*github.TreeEntry
	path := "/getAllRepoFiles/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// FileContent fetches one decoded file
func (c *Client) FileContent(ctx context.Context, owner, repo, path string) (*gh.File, error) {
	var file gh.File
	target := "/getFileContent/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "?path=" + url.QueryEscape(path)
	if err := c.do(ctx, http.MethodGet, target, nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Summary asks for a test case summary of files
func (c *Client) Summary(ctx context.Context, files []ai.File) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.do(ctx, http.MethodPost, "/generateTestSummary", map[string]any{"files": files}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// FullCode turns a summary into framework test code
func (c *Client) FullCode(ctx context.Context, summary, framework string, files []ai.File) (string, error) {
	body := map[string]any{
		"testSummary": summary,
		"files":       files,
	}
	if framework != "" {
		body["framework"] = framework
	}

	var out struct {
		FullCode string `json:"fullCode"`
	}
	if err := c.do(ctx, http.MethodPost, "/generateFullTestCode", body, &out); err != nil {
		return "", err
	}
	return out.FullCode, nil
}

// RaisePR commits files and opens or reuses a pull request
func (c *Client) RaisePR(ctx context.Context, req PRRequest) (*pullrequest.Result, error) {
	var res pullrequest.Result
	if err := c.do(ctx, http.MethodPost, "/raisePR", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.token})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// decodeError rebuilds the service's {"error", "details"} body as an
// *apperr.Error carrying the response status
func decodeError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = resp.Status
		}
	}

	e := &apperr.Error{
		Status:  resp.StatusCode,
		Message: body.Error,
		Detail:  body.Details,
		Err:     errors.New(resp.Status),
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.Kind = apperr.KindAuth
	case http.StatusBadRequest:
		e.Kind = apperr.KindValidation
	case http.StatusNotFound:
		e.Kind = apperr.KindNotFound
	case http.StatusTooManyRequests:
		e.Kind = apperr.KindRateLimit
	default:
		e.Kind = apperr.KindUpstream
	}
	return e
}
