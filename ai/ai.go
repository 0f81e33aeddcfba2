// Package ai wires the tutoring pipeline together: model client, routing,
// generation, validation, mastery, and the per-turn orchestrator.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mentora/mentora/ai/agent/registry"
	"github.com/mentora/mentora/ai/core/llm"
	"github.com/mentora/mentora/ai/enrichment"
	"github.com/mentora/mentora/ai/evidence"
	"github.com/mentora/mentora/ai/gen"
	"github.com/mentora/mentora/ai/mastery"
	"github.com/mentora/mentora/ai/metrics"
	"github.com/mentora/mentora/ai/orchestrator"
	"github.com/mentora/mentora/ai/promptcache"
	"github.com/mentora/mentora/ai/routing"
	"github.com/mentora/mentora/ai/validator"
	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

// Services holds the assembled pipeline.
type Services struct {
	LLM          llm.Service
	Registry     *registry.Registry
	Prompts      *promptcache.Manager
	Router       *routing.Service
	Gen          *gen.Client
	Validator    *validator.Validator
	Mastery      *mastery.Engine
	Extractor    *evidence.Extractor
	Enricher     *enrichment.Enricher
	Metrics      *metrics.Collector
	Orchestrator *orchestrator.Orchestrator
}

// NewServices builds the pipeline from runtime configuration.
func NewServices(p *profile.Profile, s *store.Store, reg prometheus.Registerer) (*Services, error) {
	llmService, err := llm.NewService(&llm.Config{
		Provider:          p.LLMProvider,
		Model:             p.LLMModel,
		APIKey:            p.LLMAPIKey,
		BaseURL:           p.LLMBaseURL,
		Timeout:           p.LLMTimeout,
		RequestsPerSecond: p.LLMRequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create llm service: %w", err)
	}

	agentRegistry := registry.New(s, &registry.Config{
		TTL: time.Duration(p.RegistryTTLSeconds) * time.Second,
	})

	collector := metrics.NewCollector(reg)

	promptCfg := promptcache.DefaultConfig()
	promptCfg.OnEvent = func(event string) {
		collector.CacheEvents.WithLabelValues("prompt", event).Inc()
	}
	prompts := promptcache.NewManager(orchestrator.NewPromptBuilder(agentRegistry, s), promptCfg)

	router := routing.NewService(llmService, s)
	genClient := gen.NewClient(llmService, prompts)
	val := validator.New(llmService, s, &validator.Config{
		Timeout: time.Duration(p.ValidatorTimeout) * time.Second,
	})
	engine := mastery.NewEngine(s)
	extractor := evidence.NewExtractor(llmService, s)
	enricher := enrichment.New(s, &enrichment.Config{
		Window:             p.EnricherWindow,
		ClusterThreshold:   p.EnricherThreshold,
		LowQualityBelow:    enrichment.DefaultConfig().LowQualityBelow,
		HighQualityAtLeast: enrichment.DefaultConfig().HighQualityAtLeast,
	})

	orch := orchestrator.New(s, agentRegistry, prompts, router, genClient, val, engine, extractor, enricher, collector)

	return &Services{
		LLM:          llmService,
		Registry:     agentRegistry,
		Prompts:      prompts,
		Router:       router,
		Gen:          genClient,
		Validator:    val,
		Mastery:      engine,
		Extractor:    extractor,
		Enricher:     enricher,
		Metrics:      collector,
		Orchestrator: orch,
	}, nil
}

// Start loads the agent registry and warms the model connection.
func (s *Services) Start(ctx context.Context) error {
	if err := s.Registry.Load(ctx); err != nil {
		return fmt.Errorf("ai: load agent registry: %w", err)
	}
	go s.LLM.Warmup(ctx)
	slog.Info("ai: services started")
	return nil
}

// Shutdown drains background work.
func (s *Services) Shutdown(ctx context.Context) error {
	return s.Orchestrator.Shutdown(ctx)
}
