package pullrequest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/github/githubtest"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "gho_test"

func setup(t *testing.T) (*Raiser, *githubtest.Server) {
	t.Helper()

	srv := githubtest.NewServer(t)
	srv.Token = token
	srv.AddRepo("acme", "widgets", "main", "abc123")
	srv.PutFile("acme", "widgets", "main", "src/add.js", "module.exports = (a, b) => a + b")

	logger := log.NewWithWriter(io.Discard, true)
	gh, err := github.New(logger, github.Options{APIURL: srv.APIURL()})
	require.NoError(t, err)

	r := New(logger, gh)
	clock := time.UnixMilli(1700000000000)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r, srv
}

func testFiles() []File {
	return []File{
		{Path: "tests/add.test.js", Content: "test('adds', () => expect(add(1, 2)).toBe(3))"},
	}
}

func TestRaiseCreatesBranchAndPR(t *testing.T) {
	r, srv := setup(t)

	res, err := r.Raise(context.Background(), token, Request{
		Owner:      "acme",
		Repo:       "widgets",
		BranchName: "tests-1",
		Files:      testFiles(),
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.False(t, res.Reused)
	assert.Equal(t, "tests-1", res.BranchName)
	assert.Equal(t, 1, res.PRNumber)
	assert.Equal(t, srv.URL+"/acme/widgets/pull/1", res.PRURL)

	repo := srv.Repo("acme", "widgets")
	assert.Contains(t, repo.Branches, "tests-1")
	assert.Equal(t, "abc123", repo.Branches["main"])
	assert.Equal(t, testFiles()[0].Content, repo.Files["tests-1"]["tests/add.test.js"].Content)
	assert.NotContains(t, repo.Files["main"], "tests/add.test.js")

	prs := srv.OpenPRs("acme", "widgets")
	require.Len(t, prs, 1)
	assert.Equal(t, DefaultTitle, prs[0].Title)
	assert.Equal(t, DefaultBody, prs[0].Body)
	assert.Equal(t, "tests-1", prs[0].Head)
	assert.Equal(t, "main", prs[0].Base)
}

func TestRaiseSameBranchReusesPR(t *testing.T) {
	r, srv := setup(t)

	req := Request{
		Owner:      "acme",
		Repo:       "widgets",
		BranchName: "tests-1",
		Files:      testFiles(),
		Title:      "Add tests",
		Body:       "Generated",
	}
	first, err := r.Raise(context.Background(), token, req)
	require.NoError(t, err)

	req.Files[0].Content = "test('still adds', () => {})"
	second, err := r.Raise(context.Background(), token, req)
	require.NoError(t, err)

	assert.Equal(t, first.PRNumber, second.PRNumber)
	assert.Equal(t, first.PRURL, second.PRURL)
	assert.True(t, second.Reused)
	assert.Equal(t, "Files updated in existing PR", second.Message)

	assert.Len(t, srv.OpenPRs("acme", "widgets"), 1)
	assert.Equal(t, 1, srv.CountCalls("POST /repos/acme/widgets/git/refs"))
	assert.Equal(t, "test('still adds', () => {})", srv.Repo("acme", "widgets").Files["tests-1"]["tests/add.test.js"].Content)
}

func TestRaiseGeneratedBranchNames(t *testing.T) {
	r, srv := setup(t)

	req := Request{Owner: "acme", Repo: "widgets", Files: testFiles()}
	first, err := r.Raise(context.Background(), token, req)
	require.NoError(t, err)
	second, err := r.Raise(context.Background(), token, req)
	require.NoError(t, err)

	assert.Equal(t, "auto-test-1700000001000", first.BranchName)
	assert.Equal(t, "auto-test-1700000002000", second.BranchName)
	assert.NotEqual(t, first.PRNumber, second.PRNumber)
	assert.Len(t, srv.OpenPRs("acme", "widgets"), 2)
}

func TestRaiseValidation(t *testing.T) {
	r, srv := setup(t)

	tests := []struct {
		name       string
		token      string
		req        Request
		wantStatus int
	}{
		{"missing token", "", Request{Owner: "acme", Repo: "widgets", Files: testFiles()}, http.StatusUnauthorized},
		{"missing owner", token, Request{Repo: "widgets", Files: testFiles()}, http.StatusBadRequest},
		{"missing repo", token, Request{Owner: "acme", Files: testFiles()}, http.StatusBadRequest},
		{"no files", token, Request{Owner: "acme", Repo: "widgets"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Raise(context.Background(), tt.token, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, apperr.StatusCode(err))
		})
	}
	assert.Empty(t, srv.Calls())
}

func TestRaiseUnknownRepo(t *testing.T) {
	r, _ := setup(t)

	_, err := r.Raise(context.Background(), token, Request{Owner: "acme", Repo: "gadgets", Files: testFiles()})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.StatusCode(err))
}

func TestRaisePartialFailure(t *testing.T) {
	r, srv := setup(t)
	srv.FailOn["PUT /repos/acme/widgets/contents/tests/b.test.js"] = http.StatusInternalServerError

	_, err := r.Raise(context.Background(), token, Request{
		Owner:      "acme",
		Repo:       "widgets",
		BranchName: "tests-2",
		Files: []File{
			{Path: "tests/a.test.js", Content: "a"},
			{Path: "tests/b.test.js", Content: "b"},
			{Path: "tests/c.test.js", Content: "c"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusCode(err))

	var ce *CommitError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "tests-2", ce.Branch)
	assert.Equal(t, []string{"tests/a.test.js"}, ce.Committed)
	assert.Contains(t, err.Error(), "committed tests/a.test.js")

	files := srv.Repo("acme", "widgets").Files["tests-2"]
	assert.Contains(t, files, "tests/a.test.js")
	assert.NotContains(t, files, "tests/c.test.js")
	assert.Empty(t, srv.OpenPRs("acme", "widgets"))

	// Resuming with the same branch finishes the job
	delete(srv.FailOn, "PUT /repos/acme/widgets/contents/tests/b.test.js")
	res, err := r.Raise(context.Background(), token, Request{
		Owner:      "acme",
		Repo:       "widgets",
		BranchName: "tests-2",
		Files: []File{
			{Path: "tests/a.test.js", Content: "a"},
			{Path: "tests/b.test.js", Content: "b"},
			{Path: "tests/c.test.js", Content: "c"},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.Reused)
	assert.Len(t, srv.Repo("acme", "widgets").Files["tests-2"], 4)
}
