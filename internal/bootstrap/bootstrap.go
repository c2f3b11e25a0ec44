package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/antonvlasov/metapilot/internal/config"
	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/match"
	"github.com/antonvlasov/metapilot/internal/core/usecase"
	"github.com/antonvlasov/metapilot/internal/infrastructure/boxapi"
	"github.com/antonvlasov/metapilot/internal/infrastructure/queue/nats"
	"github.com/antonvlasov/metapilot/internal/infrastructure/repository/postgres"
	"github.com/antonvlasov/metapilot/internal/infrastructure/resilience"
	"github.com/antonvlasov/metapilot/internal/infrastructure/templatecache"
)

type App struct {
	Config config.Config

	Queue *nats.Queue
	Store *postgres.RunRepository

	TemplatesUC *usecase.RefreshTemplatesUseCase
	ClassifyUC  *usecase.ClassifyFilesUseCase
	SubmitUC    *usecase.SubmitBatchUseCase
	RunnerUC    *usecase.RunBatchUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewRunRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		ThrottleInterval: cfg.ThrottleInterval,
		ThrottleBurst:    cfg.ThrottleBurst,
		BreakerEnabled:   true,
	})

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	boxClient := boxapi.New(cfg.BoxAPIURL, cfg.BoxAccessToken, cfg.BoxAIModel, boxapi.Options{
		ResilienceExecutor: executor,
	})
	templateSource := boxapi.NewTemplates(boxClient)
	classifier := boxapi.NewClassifier(boxClient)
	extractor := boxapi.NewExtractor(boxClient)
	writer := boxapi.NewWriter(boxClient)

	cache := templatecache.New()

	table := match.DefaultTable()
	if cfg.KeywordTable != "" {
		loaded, err := match.LoadTable(cfg.KeywordTable)
		if err != nil {
			slog.Warn("keyword_table_load_failed", "path", cfg.KeywordTable, "error", err)
		} else {
			table = loaded
		}
	}
	matcher := match.NewMatcher(table, cfg.MatchMinScore)

	batchDefaults := domain.BatchOptions{
		BatchSize:          cfg.BatchSize,
		MaxRetries:         cfg.MaxRetries,
		RetryDelay:         cfg.RetryDelay,
		OperationTimeout:   cfg.OperationTimeout,
		NormalizeKeys:      domain.BoolRef(cfg.NormalizeKeys),
		FilterPlaceholders: domain.BoolRef(cfg.FilterPlaceholders),
	}

	templatesUC := usecase.NewRefreshTemplatesUseCase(templateSource, cache, cfg.TemplateScopes)
	classifyUC := usecase.NewClassifyFilesUseCase(classifier, cache, matcher)
	submitUC := usecase.NewSubmitBatchUseCase(store, queue, batchDefaults)
	runnerUC := usecase.NewRunBatchUseCase(store, extractor, usecase.NewApplyMetadataUseCase(writer))

	return &App{
		Config: cfg,
		Queue:  queue,
		Store:  store,

		TemplatesUC: templatesUC,
		ClassifyUC:  classifyUC,
		SubmitUC:    submitUC,
		RunnerUC:    runnerUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
