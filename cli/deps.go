package cli

import (
	"context"

	"github.com/santiagomed/chef/backend"
	"github.com/santiagomed/chef/config"
	"github.com/santiagomed/chef/core"
	"github.com/santiagomed/chef/llm"
	"github.com/santiagomed/chef/logger"
	"github.com/santiagomed/chef/server"
)

// newImageEngine wires the image client, runner, retry policy and pipeline
// state described by cfg.
func newImageEngine(cfg *config.Config, pub core.ProgressPublisher, l logger.Logger) (*core.Engine, error) {
	reveal, err := core.ParseRevealMode(cfg.Reveal)
	if err != nil {
		return nil, err
	}

	client := backend.NewImageClient(cfg.BackendURL, cfg.RequestTimeout, l)
	runner := core.NewRunner(client, cfg.StepDelay, l)

	backoff := core.DefaultBackoff()
	backoff.InitialDelay = cfg.RetryDelay
	retry := core.NewRetryPolicy(cfg.MaxAttempts, backoff, l)

	return core.NewEngine(runner, retry, core.NewPipelineState(reveal), pub, l), nil
}

func newCompletionClient(cfg *config.Config, l logger.Logger) (llm.LlmClient, error) {
	llmCfg := llm.LlmConfig{
		ModelName: cfg.ModelName,
		BatchID:   llm.EnsureBatchID(""),
		TellmURL:  cfg.TellmURL,
	}
	switch cfg.Provider {
	case config.ProviderAnthropic:
		llmCfg.APIKey = cfg.AnthropicAPIKey
		return llm.NewAnthropicClient(&llmCfg, l)
	default:
		llmCfg.APIKey = cfg.LlmAPIKey
		llmCfg.BaseURL = cfg.LlmBaseURL
		return llm.NewOpenAIClient(&llmCfg, l)
	}
}

// newServer builds the HTTP service. The returned cleanup closes the image
// cache connection, if any.
func newServer(ctx context.Context, cfg *config.Config, l logger.Logger) (*server.Server, func(), error) {
	recipes, err := newCompletionClient(cfg, l)
	if err != nil {
		return nil, nil, err
	}

	var images llm.ImageGenerator
	if cfg.OpenAIAPIKey != "" {
		images, err = llm.NewOpenAIImageClient(&llm.ImageConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.ImageModel,
			Size:   cfg.ImageSize,
		}, l)
		if err != nil {
			return nil, nil, err
		}
	} else {
		l.Warn("OPENAI_API_KEY is not set, /generate-image will fail")
	}

	cleanup := func() {}
	var cache server.ImageCache = server.NewMemoryCache(cfg.ImageCacheTTL)
	if cfg.RedisAddr != "" {
		rc, err := server.NewRedisCache(ctx, cfg.RedisAddr, cfg.ImageCacheTTL)
		if err != nil {
			return nil, nil, err
		}
		cache = rc
		cleanup = func() { _ = rc.Close() }
	}

	s := server.New(server.Options{
		Recipes:      recipes,
		Images:       images,
		Cache:        cache,
		ImageTimeout: cfg.ImageTimeout,
		Logger:       l,
	})
	return s, cleanup, nil
}
