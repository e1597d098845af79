// Package app assembles the retrieval service from configuration. Both the
// server and the CLI build their dependencies here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rossirpaulo/agihouse-hackathon/internal/auth"
	"github.com/rossirpaulo/agihouse-hackathon/internal/config"
	"github.com/rossirpaulo/agihouse-hackathon/internal/embedder"
	"github.com/rossirpaulo/agihouse-hackathon/internal/llm"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository"
	"github.com/rossirpaulo/agihouse-hackathon/internal/repository/postgres"
	"github.com/rossirpaulo/agihouse-hackathon/internal/reranker"
	"github.com/rossirpaulo/agihouse-hackathon/internal/service"
	"github.com/rossirpaulo/agihouse-hackathon/internal/vectorstore"
	"github.com/rossirpaulo/agihouse-hackathon/internal/voyage"
)

// App holds the wired service and the resources it owns.
type App struct {
	Config    *config.Config
	DB        *postgres.DB
	Retrieval *service.RetrievalService

	closers []func() error
}

// New checks provider credentials, connects to the database, applies
// migrations and wires the providers and document store selected by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.ValidateProviders(); err != nil {
		return nil, err
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a := &App{Config: cfg, DB: db}
	a.closers = append(a.closers, func() error { db.Close(); return nil })
	logger.Info("connected to PostgreSQL")

	if err := db.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store, err := a.newStore(db, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	emb, err := NewEmbedder(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	rr, err := NewReranker(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Retrieval = service.NewRetrievalService(emb, store, rr,
		service.WithChunkMaxSize(cfg.ChunkMaxSize),
		service.WithLogger(logger),
	)
	return a, nil
}

// Close releases everything New opened, most recent first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) newStore(db *postgres.DB, logger *slog.Logger) (repository.DocumentStore, error) {
	switch a.Config.VectorBackend {
	case config.BackendQdrant:
		index, err := vectorstore.NewQdrantIndex(a.Config.QdrantGRPCURL, a.Config.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		a.closers = append(a.closers, index.Close)
		logger.Info("using Qdrant vector index", "collection", a.Config.QdrantCollection)
		return vectorstore.NewStore(postgres.NewDocumentRepo(db), index, logger), nil
	default:
		logger.Info("using pgvector vector index")
		return postgres.NewStore(db, logger), nil
	}
}

// NewEmbedder builds the embedding client for the configured provider.
func NewEmbedder(cfg *config.Config, logger *slog.Logger) (*embedder.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var provider embedder.Provider

	switch cfg.EmbeddingProvider {
	case config.ProviderOllama:
		provider = embedder.NewOllamaProvider(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
			Timeout: cfg.ProviderTimeout,
		})
	case config.ProviderVoyage:
		client, err := newVoyageClient(cfg)
		if err != nil {
			return nil, err
		}
		vp, err := embedder.NewVoyageProvider(client, cfg.VoyageEmbeddingModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create voyage embedder: %w", err)
		}
		provider = vp
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalid, cfg.EmbeddingProvider)
	}

	logger.Info("initialized embedder", "provider", cfg.EmbeddingProvider, "model", provider.ModelName())

	return embedder.NewClient(provider,
		embedder.WithBatchSize(cfg.EmbedBatchSize),
		embedder.WithAlignedBatches(cfg.EmbedAlignFailedBatches),
		embedder.WithLogger(logger),
	), nil
}

// NewReranker builds the reranker for the configured provider.
func NewReranker(cfg *config.Config) (reranker.Reranker, error) {
	switch cfg.RerankerProvider {
	case config.ProviderLLM:
		client := llm.NewOllamaClient(
			llm.WithBaseURL(cfg.OllamaURL),
			llm.WithModel(cfg.OllamaLLMModel),
			llm.WithTimeout(cfg.ProviderTimeout),
		)
		return reranker.NewLLMReranker(client, reranker.WithModel(cfg.OllamaLLMModel)), nil
	case config.ProviderVoyage:
		client, err := newVoyageClient(cfg)
		if err != nil {
			return nil, err
		}
		rr, err := reranker.NewVoyageReranker(client, cfg.VoyageRerankModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create voyage reranker: %w", err)
		}
		return rr, nil
	default:
		return nil, fmt.Errorf("%w: unknown reranker provider %q", config.ErrInvalid, cfg.RerankerProvider)
	}
}

// NewAuthenticator builds the /search guard. Bearer tokens are accepted only
// when a JWT secret is configured.
func NewAuthenticator(cfg *config.Config, logger *slog.Logger) (*auth.Authenticator, error) {
	tokens, err := NewTokenManager(cfg)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(cfg.APIKey, tokens, logger), nil
}

// NewTokenManager returns nil without error when no JWT secret is set.
func NewTokenManager(cfg *config.Config) (*auth.TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	return tokens, nil
}

func newVoyageClient(cfg *config.Config) (*voyage.Client, error) {
	client, err := voyage.NewClient(voyage.Config{
		BaseURL: cfg.VoyageBaseURL,
		APIKey:  cfg.VoyageAPIKey,
		Timeout: cfg.ProviderTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create voyage client: %w", err)
	}
	return client, nil
}
