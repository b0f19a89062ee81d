package github

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/github/githubtest"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "gho_test"

func setupClient(t *testing.T) (*Client, *githubtest.Server) {
	t.Helper()

	fake := githubtest.NewServer(t)
	fake.Token = testToken

	client, err := New(log.NewWithWriter(io.Discard, true), Options{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		APIURL:       fake.APIURL(),
		TokenURL:     fake.TokenURL(),
	})
	require.NoError(t, err)
	return client, fake
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantError bool
	}{
		{
			name:      "HTTPS URL",
			url:       "https://github.com/owner/repo.git",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "SSH URL",
			url:       "git@github.com:owner/repo.git",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "Simple URL",
			url:       "https://github.com/owner/repo",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "Owner and repo",
			url:       "acme/widgets",
			wantOwner: "acme",
			wantRepo:  "widgets",
		},
		{
			name:      "Invalid URL",
			url:       "not-a-url",
			wantError: true,
		},
		{
			name:      "Invalid Path",
			url:       "https://github.com/invalid",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)

			if tt.wantError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestExchangeCode(t *testing.T) {
	client, fake := setupClient(t)
	fake.Codes["good-code"] = testToken

	token, err := client.ExchangeCode(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, testToken, token)

	_, err = client.ExchangeCode(context.Background(), "bad-code")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuth))

	_, err = client.ExchangeCode(context.Background(), "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListRepositories(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")
	fake.AddRepo("acme", "gadgets", "trunk", "def456")

	repos, err := client.ListRepositories(context.Background(), testToken)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "acme/gadgets", repos[0].GetFullName())
	assert.Equal(t, "widgets", repos[1].GetName())
}

func TestListRepositoriesBadToken(t *testing.T) {
	client, _ := setupClient(t)

	_, err := client.ListRepositories(context.Background(), "wrong")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuth))
	assert.Equal(t, http.StatusUnauthorized, apperr.StatusCode(err))
}

func TestListCodeFiles(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")
	fake.PutFile("acme", "widgets", "main", "src/app.py", "print('hi')")
	fake.PutFile("acme", "widgets", "main", "src/index.js", "export {}")
	fake.PutFile("acme", "widgets", "main", "node_modules/lib/index.js", "x")
	fake.PutFile("acme", "widgets", "main", "README.md", "# widgets")

	entries, err := client.ListTree(context.Background(), testToken, "acme", "widgets")
	require.NoError(t, err)
	assert.Greater(t, len(entries), 4, "tree includes directory entries")

	files, err := client.ListCodeFiles(context.Background(), testToken, "acme", "widgets")
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.GetPath())
	}
	assert.Equal(t, []string{"src/app.py", "src/index.js"}, paths)
}

func TestListTreeMissingRepo(t *testing.T) {
	client, _ := setupClient(t)

	_, err := client.ListTree(context.Background(), testToken, "acme", "nope")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGetFileContentRoundTrip(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")

	original := "héllo, wörld ✓\n" + "const answer = 42; // long enough to wrap the base64 body across lines"
	fake.PutFile("acme", "widgets", "main", "src/unicode.js", original)

	file, err := client.GetFileContent(context.Background(), testToken, "acme", "widgets", "src/unicode.js")
	require.NoError(t, err)
	assert.Equal(t, original, file.Content)
	assert.Equal(t, "unicode.js", file.Name)
	assert.Equal(t, "src/unicode.js", file.Path)
	assert.Equal(t, len(original), file.Size)
}

func TestGetFileContentMissing(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")

	_, err := client.GetFileContent(context.Background(), testToken, "acme", "widgets", "missing.go")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEnsureBranchIsIdempotent(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")
	ctx := context.Background()

	created, err := client.EnsureBranch(ctx, testToken, "acme", "widgets", "tests", "abc123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = client.EnsureBranch(ctx, testToken, "acme", "widgets", "tests", "abc123")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, fake.CountCalls("POST /repos/acme/widgets/git/refs"))
	assert.Equal(t, "abc123", fake.Repo("acme", "widgets").Branches["tests"])
}

func TestEnsureBranchPropagatesOtherFailures(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")
	fake.FailOn["GET /repos/acme/widgets/git/ref/heads/tests"] = http.StatusInternalServerError

	_, err := client.EnsureBranch(context.Background(), testToken, "acme", "widgets", "tests", "abc123")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusCode(err))
	assert.Zero(t, fake.CountCalls("POST /repos/acme/widgets/git/refs"))
}

func TestUpsertFileCreatesThenUpdates(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")
	ctx := context.Background()

	created, err := client.UpsertFile(ctx, testToken, "acme", "widgets", "test/a.test.js", "v1", "main")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = client.UpsertFile(ctx, testToken, "acme", "widgets", "test/a.test.js", "v2", "main")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, "v2", fake.Repo("acme", "widgets").Files["main"]["test/a.test.js"].Content)
}

func TestPullRequests(t *testing.T) {
	client, fake := setupClient(t)
	fake.AddRepo("acme", "widgets", "main", "abc123")
	ctx := context.Background()

	_, err := client.EnsureBranch(ctx, testToken, "acme", "widgets", "tests", "abc123")
	require.NoError(t, err)

	existing, err := client.FindOpenPR(ctx, testToken, "acme", "widgets", "tests")
	require.NoError(t, err)
	assert.Nil(t, existing)

	pr, err := client.CreatePR(ctx, testToken, "acme", "widgets", "Add tests", "body", "tests", "main")
	require.NoError(t, err)
	assert.Equal(t, 1, pr.GetNumber())
	assert.Contains(t, pr.GetHTMLURL(), "/acme/widgets/pull/1")

	existing, err = client.FindOpenPR(ctx, testToken, "acme", "widgets", "tests")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, pr.GetNumber(), existing.GetNumber())

	_, err = client.CreatePR(ctx, testToken, "acme", "widgets", "Again", "", "tests", "main")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apperr.StatusCode(err))
}

func TestNewRejectsBadAPIURL(t *testing.T) {
	_, err := New(log.NewWithWriter(io.Discard, false), Options{APIURL: "://bad"})
	assert.Error(t, err)
}
