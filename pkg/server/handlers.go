package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/ai"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/apperr"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/pullrequest"
)

const (
	rateLimitError   = "Rate limit exceeded. Please try again later."
	rateLimitDetails = "Too many requests to AI service. Please wait a few minutes."
)

type summaryRequest struct {
	Files []ai.File `json:"files"`
}

type fullCodeRequest struct {
	Files       []ai.File `json:"files"`
	TestSummary string    `json:"testSummary"`
	Framework   string    `json:"framework"`
}

type raisePRRequest struct {
	Owner      string             `json:"owner"`
	Repo       string             `json:"repo"`
	BranchName string             `json:"branchName"`
	Files      []pullrequest.File `json:"files"`
	PRTitle    string             `json:"prTitle"`
	PRBody     string             `json:"prBody"`
}

// fail writes err as {"error", "details"}. Validation failures carry their
// own message; everything else uses msg and the upstream detail.
func (s *Server) fail(c *gin.Context, err error, msg string) {
	status := apperr.StatusCode(err)

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		e, _ := apperr.As(err)
		c.JSON(status, gin.H{"error": e.Message})
	case apperr.KindRateLimit:
		c.JSON(status, gin.H{"error": rateLimitError, "details": rateLimitDetails})
	default:
		c.JSON(status, gin.H{"error": msg, "details": apperr.DetailOf(err)})
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAccessToken(c *gin.Context) {
	logger := requestLogger(c, s.logger)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code is required"})
		return
	}

	token, err := s.github.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		logger.Error("OAuth exchange failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get access token", "details": apperr.DetailOf(err)})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, token, 0, "/", "", s.cfg.CookieSecure, true)
	logger.Success("Session established")
	c.Redirect(http.StatusFound, strings.TrimSuffix(s.cfg.FrontendURL, "/")+"/dashboard")
}

func (s *Server) handleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cfg.CookieName, "", -1, "/", "", s.cfg.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleRepos(c *gin.Context) {
	repos, err := s.github.ListRepositories(c.Request.Context(), sessionToken(c))
	if err != nil {
		s.fail(c, err, "Failed to fetch repos")
		return
	}
	c.JSON(http.StatusOK, repos)
}

func (s *Server) handleRepoFiles(c *gin.Context) {
	files, err := s.github.ListCodeFiles(c.Request.Context(), sessionToken(c), c.Param("owner"), c.Param("repo"))
	if err != nil {
		s.fail(c, err, "Failed to fetch code files")
		return
	}
	c.JSON(http.StatusOK, files)
}

func (s *Server) handleFileContent(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File path is required"})
		return
	}

	file, err := s.github.GetFileContent(c.Request.Context(), sessionToken(c), c.Param("owner"), c.Param("repo"), path)
	if err != nil {
		s.fail(c, err, "Failed to fetch file content")
		return
	}
	c.JSON(http.StatusOK, file)
}

func (s *Server) handleTestSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	summary, err := s.ai.GenerateTestSummary(c.Request.Context(), req.Files)
	if err != nil {
		s.metrics.aiFailed("summary", apperr.StatusCode(err))
		s.fail(c, err, "Failed to generate test summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleFullTestCode(c *gin.Context) {
	var req fullCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	code, err := s.ai.GenerateFullTestCode(c.Request.Context(), req.TestSummary, req.Framework, req.Files)
	if err != nil {
		s.metrics.aiFailed("full_code", apperr.StatusCode(err))
		s.fail(c, err, "Failed to generate test code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"fullCode": code})
}

func (s *Server) handleRaisePR(c *gin.Context) {
	var req raisePRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	res, err := s.prs.Raise(c.Request.Context(), sessionToken(c), pullrequest.Request{
		Owner:      req.Owner,
		Repo:       req.Repo,
		BranchName: req.BranchName,
		Files:      req.Files,
		Title:      req.PRTitle,
		Body:       req.PRBody,
	})
	if err != nil {
		s.metrics.prRaised("failed")
		s.fail(c, err, "Failed to create PR")
		return
	}

	if res.Reused {
		s.metrics.prRaised("reused")
	} else {
		s.metrics.prRaised("created")
	}
	c.JSON(http.StatusOK, res)
}
