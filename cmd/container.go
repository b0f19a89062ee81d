package cmd

import (
	"context"
	"fmt"

	"github.com/mauli-16/GitHub-TestCaseGen/pkg/ai"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/config"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/github"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/log"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/pullrequest"
	"github.com/mauli-16/GitHub-TestCaseGen/pkg/server"
	"go.uber.org/dig"
)

// registerProviders wires the service components bottom-up: config,
// github client, AI model and generator, PR raiser, HTTP server
func registerProviders(container *dig.Container, ctx context.Context, l *log.Logger, env *config.Environment) error {
	providers := []any{
		func() context.Context { return ctx },
		func() *log.Logger { return l },
		func() *config.Environment { return env },
		newGitHubClient,
		newModel,
		newGenerator,
		newRaiser,
		newServerConfig,
		newServer,
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

func newGitHubClient(l *log.Logger, env *config.Environment) (*github.Client, error) {
	return github.New(l, github.Options{
		ClientID:     env.ClientID,
		ClientSecret: env.ClientSecret,
		APIURL:       env.GitHubAPIURL,
	})
}

func newModel(ctx context.Context, env *config.Environment) (ai.Model, error) {
	return ai.NewModel(ctx, ai.ProviderConfig{
		Provider: env.AIProvider,
		APIKey:   env.APIKey(),
		Model:    env.AIModel,
	})
}

func newGenerator(l *log.Logger, model ai.Model, env *config.Environment) *ai.Generator {
	return ai.New(l, model, ai.Options{
		RatePerMinute:    env.AIRatePerMinute,
		DefaultFramework: env.DefaultFramework,
	})
}

func newRaiser(l *log.Logger, gh *github.Client) *pullrequest.Raiser {
	return pullrequest.New(l, gh)
}

func newServerConfig(env *config.Environment) server.Config {
	return server.Config{
		Port:         env.Port,
		FrontendURL:  env.FrontendURL,
		CookieName:   env.CookieName,
		CookieSecure: env.CookieSecure,
		ReadTimeout:  env.ReadTimeout,
		WriteTimeout: env.WriteTimeout,
		PortFile:     server.DefaultPortFile(),
	}
}

func newServer(l *log.Logger, cfg server.Config, gh *github.Client, gen *ai.Generator, prs *pullrequest.Raiser) (*server.Server, error) {
	l.Info("AI model: %s", gen)
	return server.New(l, cfg, gh, gen, prs)
}

// buildServer resolves a ready *server.Server from a fresh container
func buildServer(ctx context.Context, l *log.Logger, env *config.Environment) (*server.Server, error) {
	container := dig.New()
	if err := registerProviders(container, ctx, l, env); err != nil {
		return nil, fmt.Errorf("failed to register components: %w", err)
	}

	var srv *server.Server
	if err := container.Invoke(func(s *server.Server) {
		srv = s
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}
	return srv, nil
}
