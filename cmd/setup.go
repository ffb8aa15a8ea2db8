package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extraction-eval/internal/eval"
	"github.com/sells-group/extraction-eval/internal/model"
	"github.com/sells-group/extraction-eval/internal/provider"
	"github.com/sells-group/extraction-eval/internal/store"
	anthropicpkg "github.com/sells-group/extraction-eval/pkg/anthropic"
	"github.com/sells-group/extraction-eval/pkg/jina"
)

// initStore opens the configured results backend. SQLite is the default for
// single-binary use; Postgres for shared deployments.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// buildEngine wires the comparison engine over the class spec registry.
// External capabilities are optional: attributes needing a missing one are
// reported as contained comparator failures rather than aborting the run.
func buildEngine(registry *model.SpecRegistry) *eval.Engine {
	var embedder provider.EmbeddingProvider
	if cfg.Jina.Key != "" {
		jinaClient := jina.NewClient(cfg.Jina.Key,
			jina.WithBaseURL(cfg.Jina.BaseURL),
			jina.WithModel(cfg.Jina.Model),
		)
		embedder = provider.NewJinaEmbedder(jinaClient, provider.NewGate("jina", cfg.External))
	} else {
		zap.L().Warn("no jina key configured, semantic comparisons will fail closed")
	}

	var judge provider.ReasoningProvider
	if cfg.Anthropic.Key != "" {
		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		judge = provider.NewAnthropicJudge(
			anthropicClient,
			provider.NewGate("anthropic", cfg.External),
			cfg.Anthropic.Model,
			int64(cfg.Anthropic.MaxTokens),
		)
	} else {
		zap.L().Warn("no anthropic key configured, llm comparisons will fail closed")
	}

	evaluator := eval.NewEvaluator(embedder, judge, eval.Thresholds{
		Fuzzy:    cfg.Eval.FuzzyThreshold,
		Semantic: cfg.Eval.SemanticThreshold,
		LLM:      cfg.Eval.LLMThreshold,
		ListItem: cfg.Eval.ListItemThreshold,
	})

	return eval.NewEngine(evaluator, registry, cfg.Eval.MaxConcurrentSections, cfg.Eval.MaxConcurrentAttrs)
}
