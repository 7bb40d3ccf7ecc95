// Package app wires configuration, embeddings, the vector store, the
// tool layer, and the generation orchestrator into a ready RAG system.
//
// Setup is plain constructor injection: every component is built
// explicitly and handed its dependencies, so the wiring reads top to
// bottom and tests can swap the network-facing pieces through options.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/philippgille/chromem-go"

	"github.com/paulantoine/coursemate/internal/config"
	"github.com/paulantoine/coursemate/internal/course"
	"github.com/paulantoine/coursemate/internal/generation"
	"github.com/paulantoine/coursemate/internal/log"
	"github.com/paulantoine/coursemate/internal/rag"
	"github.com/paulantoine/coursemate/internal/session"
	"github.com/paulantoine/coursemate/internal/tools"
	"github.com/paulantoine/coursemate/internal/vectorstore"
)

// App is the assembled application container.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    *vectorstore.Store
	Tools    *tools.Manager
	Sessions *session.Store
	RAG      *rag.System
}

// Option overrides a default wiring choice. Production code uses none;
// tests substitute the two network-facing components.
type Option func(*options)

type options struct {
	embed chromem.EmbeddingFunc
	model generation.Model
}

// WithEmbeddingFunc replaces the Gemini embedder with a local
// embedding function, skipping Genkit initialization entirely.
func WithEmbeddingFunc(f chromem.EmbeddingFunc) Option {
	return func(o *options) { o.embed = f }
}

// WithModel replaces the Anthropic generation model.
func WithModel(m generation.Model) Option {
	return func(o *options) { o.model = m }
}

// Setup builds the full application from configuration. The Anthropic
// key is not checked here; commands that talk to the model call
// Config.RequireAPIKey before issuing queries.
func Setup(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	embed := o.embed
	if embed == nil {
		var err error
		embed, err = provideEmbedding(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	store, err := vectorstore.New(cfg.StorePath, embed,
		vectorstore.WithMaxResults(cfg.MaxResults),
		vectorstore.WithMinResolveSimilarity(cfg.MinResolveSimilarity),
		vectorstore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	manager := tools.NewManager(logger,
		tools.NewCourseSearchTool(store),
		tools.NewCourseOutlineTool(store),
	)

	model := o.model
	if model == nil {
		model = generation.NewAnthropicModel(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxTokens, logger)
	}

	orchestrator := generation.NewOrchestrator(model,
		generation.WithMaxToolRounds(cfg.MaxToolRounds),
		generation.WithOrchestratorLogger(logger),
	)

	sessions := session.NewStore(cfg.MaxHistory, logger)
	processor := course.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)

	system := rag.New(processor, store, manager, orchestrator, sessions, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Tools:    manager,
		Sessions: sessions,
		RAG:      system,
	}, nil
}

// provideEmbedding initializes Genkit with the Gemini plugin and wraps
// the configured embedder for the vector store. The googlegenai plugin
// reads GEMINI_API_KEY from the environment.
func provideEmbedding(ctx context.Context, cfg *config.Config) (chromem.EmbeddingFunc, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	return vectorstore.NewEmbeddingFunc(embedder), nil
}
