package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v57/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/ai"
	gh "github.com/mauli-16/GitHub-TestCaseGen/pkg/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/pullrequest"
)

// RepoHost is the repository host as seen by the HTTP handlers
type RepoHost interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	ListRepositories(ctx context.Context, token string) ([]*github.Repository, error)
	ListCodeFiles(ctx context.Context, token, owner, repo string) ([]*github.TreeEntry, error)
	GetFileContent(ctx context.Context, token, owner, repo, path string) (*gh.File, error)
}

// TestGenerator produces test summaries and test code
type TestGenerator interface {
	GenerateTestSummary(ctx context.Context, files []ai.File) (string, error)
	GenerateFullTestCode(ctx context.Context, summary, framework string, files []ai.File) (string, error)
}

// PRRaiser commits files and opens a pull request
type PRRaiser interface {
	Raise(ctx context.Context, token string, req pullrequest.Request) (*pullrequest.Result, error)
}

// Config holds the HTTP-facing settings
type Config struct {
	Port         string
	FrontendURL  string
	CookieName   string
	CookieSecure bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PortFile receives the bound port so `testgen check` can find the server
	PortFile string
}

// DefaultPortFile is ~/.testgen/port
func DefaultPortFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".testgen", "port")
}

// Server exposes the OAuth, repository, generation and PR endpoints
type Server struct {
	logger  *log.Logger
	cfg     Config
	github  RepoHost
	ai      TestGenerator
	prs     PRRaiser
	metrics *Metrics
	engine  *gin.Engine
	srv     *http.Server
	mu      sync.RWMutex
}

// New creates a new server instance
func New(logger *log.Logger, cfg Config, host RepoHost, gen TestGenerator, prs PRRaiser) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if host == nil {
		return nil, fmt.Errorf("github client is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("ai generator is required")
	}
	if prs == nil {
		return nil, fmt.Errorf("pr raiser is required")
	}

	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "gh_token"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}

	if logger.IsDebug() {
		logger.Info("Initializing server with components:")
		logger.Info("- GitHub Client: ✓")
		logger.Info("- AI Generator: ✓")
		logger.Info("- PR Raiser: ✓")
	}

	s := &Server{
		logger:  logger,
		cfg:     cfg,
		github:  host,
		ai:      gen,
		prs:     prs,
		metrics: NewMetrics(),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if !s.logger.IsDebug() && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestID())
	r.Use(s.accessLog())
	r.Use(s.metrics.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.GET("/getAccessToken", s.handleAccessToken)
	r.GET("/logout", s.handleLogout)

	authed := r.Group("/", s.session(true))
	authed.GET("/getRepos", s.handleRepos)
	authed.GET("/getAllRepoFiles/:owner/:repo", s.handleRepoFiles)
	authed.GET("/getFileContent/:owner/:repo", s.handleFileContent)
	authed.POST("/raisePR", s.handleRaisePR)

	r.POST("/generateTestSummary", s.handleTestSummary)
	r.POST("/generateFullTestCode", s.handleFullTestCode)

	return r
}

// Start serves until ctx is cancelled, then shuts down
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.logger.IsDebug() {
		s.logger.Info("Starting server initialization...")
		s.logger.Info("Using port: %s", s.cfg.Port)
	}

	listener, err := s.findAvailablePort(s.cfg.Port)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to find available port: %w", err)
	}
	actualPort := listener.Addr().(*net.TCPAddr).Port

	if s.cfg.PortFile != "" {
		if err := os.MkdirAll(filepath.Dir(s.cfg.PortFile), 0755); err != nil {
			listener.Close()
			s.mu.Unlock()
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(s.cfg.PortFile, []byte(fmt.Sprintf("%d", actualPort)), 0644); err != nil {
			listener.Close()
			s.mu.Unlock()
			return fmt.Errorf("failed to save port: %w", err)
		}
	}

	s.srv = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error: %v", err)
			errCh <- err
		}
	}()
	s.mu.Unlock()

	s.logger.Success("Server is running on port %d", actualPort)
	if s.logger.IsDebug() {
		s.logger.Info("OAuth callback: http://localhost:%d/getAccessToken", actualPort)
		s.logger.Info("Frontend origin: %s", s.cfg.FrontendURL)
		s.logger.Info("Press Ctrl+C to stop")
	}

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		_ = s.Stop()
		return fmt.Errorf("server failed: %w", err)
	}
}

// findAvailablePort tries the given port first, then any free port
func (s *Server) findAvailablePort(startPort string) (net.Listener, error) {
	listener, err := net.Listen("tcp", ":"+startPort)
	if err == nil {
		return listener, nil
	}

	s.logger.Warning("Port %s is in use, searching for available port...", startPort)

	listener, err = net.Listen("tcp", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	return listener, nil
}

// Stop stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to stop server: %v", err)
			return fmt.Errorf("failed to stop server: %w", err)
		}
		s.srv = nil
		if s.cfg.PortFile != "" {
			_ = os.Remove(s.cfg.PortFile)
		}
		s.logger.Success("Server stopped")
	}

	return nil
}
