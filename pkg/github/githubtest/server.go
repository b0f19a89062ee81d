// Package githubtest provides an in-memory stand-in for the subset of the
// GitHub REST API used by testgen.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// File is a blob stored on a branch
type File struct {
	Content string
	SHA     string
}

// PullRequest is an opened pull request
type PullRequest struct {
	Number int
	Head   string
	Base   string
	Title  string
	Body   string
	State  string
}

// Repo holds branches, files and pull requests of one repository
type Repo struct {
	Owner         string
	Name          string
	DefaultBranch string
	Branches      map[string]string
	Files         map[string]map[string]File
	PRs           []*PullRequest
}

// Server is a fake GitHub API backed by httptest
type Server struct {
	*httptest.Server

	mu    sync.Mutex
	repos map[string]*Repo
	prSeq int
	calls []string

	// Token, when set, must be presented as a bearer credential
	Token string
	// Codes maps OAuth authorization codes to access tokens
	Codes map[string]string
	// FailOn forces a status for "METHOD /path" requests
	FailOn map[string]int
}

// NewServer starts a fake GitHub API closed at test cleanup
func NewServer(t testing.TB) *Server {
	s := &Server{
		repos:  map[string]*Repo{},
		Codes:  map[string]string{},
		FailOn: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", s.handleToken)
	mux.HandleFunc("GET /user/repos", s.auth(s.handleListRepos))
	mux.HandleFunc("GET /repos/{owner}/{repo}", s.auth(s.handleGetRepo))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/trees/{sha}", s.auth(s.handleGetTree))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/heads/{branch...}", s.auth(s.handleGetRef))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/refs/heads/{branch...}", s.auth(s.handleGetRef))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/refs", s.auth(s.handleCreateRef))
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", s.auth(s.handleGetContents))
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", s.auth(s.handlePutContents))
	mux.HandleFunc("GET /repos/{owner}/{repo}/pulls", s.auth(s.handleListPulls))
	mux.HandleFunc("POST /repos/{owner}/{repo}/pulls", s.auth(s.handleCreatePull))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// APIURL is the base URL to hand to go-github
func (s *Server) APIURL() string {
	return s.URL + "/"
}

// TokenURL is the OAuth token endpoint
func (s *Server) TokenURL() string {
	return s.URL + "/login/oauth/access_token"
}

// AddRepo registers a repository whose default branch points at sha
func (s *Server) AddRepo(owner, name, defaultBranch, sha string) *Repo {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Repo{
		Owner:         owner,
		Name:          name,
		DefaultBranch: defaultBranch,
		Branches:      map[string]string{defaultBranch: sha},
		Files:         map[string]map[string]File{defaultBranch: {}},
	}
	s.repos[owner+"/"+name] = r
	return r
}

// PutFile stores content on branch without recording a call
func (s *Server) PutFile(owner, name, branch, path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.repos[owner+"/"+name]
	if r.Files[branch] == nil {
		r.Files[branch] = map[string]File{}
	}
	r.Files[branch][path] = File{Content: content, SHA: blobSHA(content)}
}

// Repo returns a snapshot of a repository's branch names and open PRs
func (s *Server) Repo(owner, name string) Repo {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.repos[owner+"/"+name]
	out := Repo{
		Owner:         r.Owner,
		Name:          r.Name,
		DefaultBranch: r.DefaultBranch,
		Branches:      map[string]string{},
		Files:         map[string]map[string]File{},
	}
	for k, v := range r.Branches {
		out.Branches[k] = v
	}
	for b, files := range r.Files {
		out.Files[b] = map[string]File{}
		for p, f := range files {
			out.Files[b][p] = f
		}
	}
	for _, pr := range r.PRs {
		cp := *pr
		out.PRs = append(out.PRs, &cp)
	}
	return out
}

// OpenPRs returns open pull requests of a repository
func (s *Server) OpenPRs(owner, name string) []PullRequest {
	var open []PullRequest
	for _, pr := range s.Repo(owner, name).PRs {
		if pr.State == "open" {
			open = append(open, *pr)
		}
	}
	return open
}

// Calls returns every "METHOD /path" handled so far
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CountCalls counts handled requests with the given prefix
func (s *Server) CountCalls(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) auth(next func(w http.ResponseWriter, r *http.Request, repo *Repo)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		call := r.Method + " " + r.URL.Path
		s.calls = append(s.calls, call)

		if status, ok := s.FailOn[call]; ok {
			writeJSON(w, status, map[string]any{"message": "forced failure"})
			return
		}

		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})
			return
		}

		var repo *Repo
		if owner := r.PathValue("owner"); owner != "" {
			repo = s.repos[owner+"/"+r.PathValue("repo")]
			if repo == nil {
				notFound(w)
				return
			}
		}
		next(w, r, repo)
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "bad_request"})
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, r.Method+" "+r.URL.Path)
	token, ok := s.Codes[r.Form.Get("code")]
	s.mu.Unlock()

	if !ok {
		// GitHub answers a rejected code with 200 and an error body
		writeJSON(w, http.StatusOK, map[string]any{
			"error":             "bad_verification_code",
			"error_description": "The code passed is incorrect or expired.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"scope":        "repo",
	})
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request, _ *Repo) {
	keys := make([]string, 0, len(s.repos))
	for k := range s.repos {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, repoJSON(s.URL, s.repos[k]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRepo(w http.ResponseWriter, r *http.Request, repo *Repo) {
	writeJSON(w, http.StatusOK, repoJSON(s.URL, repo))
}

func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request, repo *Repo) {
	branch := r.PathValue("sha")
	files, ok := repo.Files[branch]
	if !ok {
		notFound(w)
		return
	}

	paths := make([]string, 0, len(files))
	dirs := map[string]bool{}
	for p := range files {
		paths = append(paths, p)
		parts := strings.Split(p, "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}
	sort.Strings(paths)

	var entries []map[string]any
	for d := range dirs {
		entries = append(entries, map[string]any{"path": d, "type": "tree", "mode": "040000", "sha": blobSHA(d)})
	}
	for _, p := range paths {
		f := files[p]
		entries = append(entries, map[string]any{
			"path": p, "type": "blob", "mode": "100644", "sha": f.SHA, "size": len(f.Content),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i]["path"].(string) < entries[j]["path"].(string)
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"sha":       repo.Branches[branch],
		"tree":      entries,
		"truncated": false,
	})
}

func (s *Server) handleGetRef(w http.ResponseWriter, r *http.Request, repo *Repo) {
	branch := r.PathValue("branch")
	sha, ok := repo.Branches[branch]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, refJSON(branch, sha))
}

func (s *Server) handleCreateRef(w http.ResponseWriter, r *http.Request, repo *Repo) {
	var req struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Problems parsing JSON"})
		return
	}

	branch := strings.TrimPrefix(req.Ref, "refs/heads/")
	if _, exists := repo.Branches[branch]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "Reference already exists"})
		return
	}

	// A new branch starts with the files of whichever branch sits at sha
	files := map[string]File{}
	for name, sha := range repo.Branches {
		if sha == req.SHA {
			for p, f := range repo.Files[name] {
				files[p] = f
			}
			break
		}
	}
	repo.Branches[branch] = req.SHA
	repo.Files[branch] = files

	writeJSON(w, http.StatusCreated, refJSON(branch, req.SHA))
}

func (s *Server) handleGetContents(w http.ResponseWriter, r *http.Request, repo *Repo) {
	branch := r.URL.Query().Get("ref")
	if branch == "" {
		branch = repo.DefaultBranch
	}
	path := r.PathValue("path")

	f, ok := repo.Files[branch][path]
	if !ok {
		notFound(w)
		return
	}

	name := path[strings.LastIndex(path, "/")+1:]
	writeJSON(w, http.StatusOK, map[string]any{
		"type":     "file",
		"encoding": "base64",
		"name":     name,
		"path":     path,
		"sha":      f.SHA,
		"size":     len(f.Content),
		"content":  wrapBase64(base64.StdEncoding.EncodeToString([]byte(f.Content))),
	})
}

func (s *Server) handlePutContents(w http.ResponseWriter, r *http.Request, repo *Repo) {
	var req struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Problems parsing JSON"})
		return
	}

	branch := req.Branch
	if branch == "" {
		branch = repo.DefaultBranch
	}
	files, ok := repo.Files[branch]
	if !ok {
		notFound(w)
		return
	}

	path := r.PathValue("path")
	existing, exists := files[path]
	switch {
	case exists && req.SHA == "":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "Invalid request.\n\n\"sha\" wasn't supplied."})
		return
	case exists && req.SHA != existing.SHA:
		writeJSON(w, http.StatusConflict, map[string]any{"message": fmt.Sprintf("%s does not match %s", path, req.SHA)})
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "content is not valid Base64"})
		return
	}

	f := File{Content: string(content), SHA: blobSHA(string(content))}
	files[path] = f
	repo.Branches[branch] = blobSHA(branch + f.SHA + repo.Branches[branch])

	status := http.StatusCreated
	if exists {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"content": map[string]any{"path": path, "sha": f.SHA},
		"commit":  map[string]any{"sha": repo.Branches[branch], "message": req.Message},
	})
}

func (s *Server) handleListPulls(w http.ResponseWriter, r *http.Request, repo *Repo) {
	state := r.URL.Query().Get("state")
	head := r.URL.Query().Get("head")

	out := []any{}
	for _, pr := range repo.PRs {
		if state != "" && state != "all" && pr.State != state {
			continue
		}
		if head != "" && head != repo.Owner+":"+pr.Head {
			continue
		}
		out = append(out, pullJSON(s.URL, repo, pr))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePull(w http.ResponseWriter, r *http.Request, repo *Repo) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Head  string `json:"head"`
		Base  string `json:"base"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Problems parsing JSON"})
		return
	}

	if _, ok := repo.Branches[req.Head]; !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "Validation Failed", "errors": []any{map[string]any{"field": "head", "code": "invalid"}}})
		return
	}
	for _, pr := range repo.PRs {
		if pr.State == "open" && pr.Head == req.Head && pr.Base == req.Base {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "A pull request already exists for " + repo.Owner + ":" + req.Head + "."})
			return
		}
	}

	s.prSeq++
	pr := &PullRequest{Number: s.prSeq, Head: req.Head, Base: req.Base, Title: req.Title, Body: req.Body, State: "open"}
	repo.PRs = append(repo.PRs, pr)

	writeJSON(w, http.StatusCreated, pullJSON(s.URL, repo, pr))
}

func repoJSON(base string, r *Repo) map[string]any {
	return map[string]any{
		"name":           r.Name,
		"full_name":      r.Owner + "/" + r.Name,
		"owner":          map[string]any{"login": r.Owner},
		"default_branch": r.DefaultBranch,
		"private":        false,
		"html_url":       base + "/" + r.Owner + "/" + r.Name,
	}
}

func refJSON(branch, sha string) map[string]any {
	return map[string]any{
		"ref":    "refs/heads/" + branch,
		"object": map[string]any{"sha": sha, "type": "commit"},
	}
}

func pullJSON(base string, r *Repo, pr *PullRequest) map[string]any {
	return map[string]any{
		"number":   pr.Number,
		"state":    pr.State,
		"title":    pr.Title,
		"body":     pr.Body,
		"html_url": fmt.Sprintf("%s/%s/%s/pull/%d", base, r.Owner, r.Name, pr.Number),
		"head":     map[string]any{"ref": pr.Head},
		"base":     map[string]any{"ref": pr.Base},
	}
}

func blobSHA(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// wrapBase64 breaks encoded content into 60-column lines as GitHub does
func wrapBase64(s string) string {
	var b strings.Builder
	for len(s) > 60 {
		b.WriteString(s[:60])
		b.WriteByte('\n')
		s = s[60:]
	}
	b.WriteString(s)
	return b.String()
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
