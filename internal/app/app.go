// Package app assembles the long-lived object graph: configuration in,
// provider plus caches plus processors out. Everything is constructed
// explicitly and handed down; there are no package-level singletons.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/typify/typify/cache"
	"github.com/typify/typify/internal/config"
	"github.com/typify/typify/internal/llm"
	"github.com/typify/typify/internal/opcache"
	"github.com/typify/typify/internal/processor"
)

// Options override pieces of the default assembly. All fields are
// optional.
type Options struct {
	Logger *zap.Logger

	// Provider replaces the llama-server client built from the config;
	// used by tests and embedders with their own inference backend.
	Provider llm.Provider

	// Metrics receives processing outcomes; CacheMetrics is consulted
	// once per cache partition name.
	Metrics      processor.Metrics
	CacheMetrics func(partition string) cache.Metrics
}

// App owns the assembled processors and their shared collaborators.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	provider llm.Provider
	caches   *opcache.Service

	grammar *processor.GrammarCorrector
	summary *processor.Summarizer
	tone    *processor.ToneChanger
}

// New builds the object graph. No network traffic happens until Load.
func New(cfg *config.Config, opts Options) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	provider := opts.Provider
	if provider == nil {
		provider = llm.NewClient(llm.ClientOptions{
			URL:            cfg.Server.URL,
			RequestTimeout: cfg.Server.RequestTimeout,
			HealthTimeout:  cfg.Server.HealthTimeout,
			LoadRetries:    cfg.Server.LoadRetries,
			LoadRetryDelay: cfg.Server.LoadRetryDelay,
			Logger:         log.Named("llm"),
		})
	}

	caches := opcache.New(opcache.Options{
		MaxSize:      cfg.Cache.MaxSize,
		CleanupBatch: cfg.Cache.CleanupBatch,
		Metrics:      opts.CacheMetrics,
		Logger:       log.Named("cache"),
	})

	deps := processor.Deps{
		Provider: provider,
		Cache:    caches,
		Metrics:  opts.Metrics,
		Logger:   log,
	}

	gen := cfg.Generation
	return &App{
		cfg:      cfg,
		log:      log,
		provider: provider,
		caches:   caches,
		grammar:  processor.NewGrammarCorrector(deps, opParams(gen.Grammar, gen.Stop.Default)),
		summary:  processor.NewSummarizer(deps, opParams(gen.Summary, gen.Stop.Summarize)),
		tone:     processor.NewToneChanger(deps, opParams(gen.Tone, gen.Stop.ToneChange)),
	}
}

// opParams converts a config block into processor sampling params.
func opParams(p config.OpParams, stop []string) processor.Params {
	return processor.Params{
		MinTokens:      p.MinTokens,
		MaxTokens:      p.MaxTokens,
		PerCharTokens:  p.PerCharTokens,
		Temperature:    p.Temperature,
		TopP:           p.TopP,
		TopK:           p.TopK,
		RepeatPenalty:  p.RepeatPenalty,
		MinOutputRatio: p.MinOutputRatio,
		Stop:           stop,
	}
}

// loader is implemented by providers that need a startup probe. The
// llama-server client does; injected test doubles usually do not.
type loader interface {
	Load(ctx context.Context) error
}

// Load readies the provider and reports per-processor availability.
func (a *App) Load(ctx context.Context) error {
	if l, ok := a.provider.(loader); ok {
		if err := l.Load(ctx); err != nil {
			return err
		}
	}
	for _, p := range a.Processors() {
		a.log.Info("processor ready",
			zap.String("op", p.Kind().String()),
			zap.Bool("available", p.Available()))
	}
	return nil
}

// Grammar returns the grammar corrector.
func (a *App) Grammar() *processor.GrammarCorrector { return a.grammar }

// Summarizer returns the summarizer.
func (a *App) Summarizer() *processor.Summarizer { return a.summary }

// Tone returns the tone changer.
func (a *App) Tone() *processor.ToneChanger { return a.tone }

// Caches exposes the cache service, mainly for stats.
func (a *App) Caches() *opcache.Service { return a.caches }

// Processors lists the three operations behind the common interface.
func (a *App) Processors() []processor.Processor {
	return []processor.Processor{a.grammar, a.summary, a.tone}
}

// Status is a point-in-time health snapshot.
type Status struct {
	ModelLoaded bool            `json:"model_loaded"`
	ServerURL   string          `json:"server_url"`
	Processors  map[string]bool `json:"processors"`
	Caches      opcache.Stats   `json:"caches"`
}

// Status reports provider and processor availability plus cache stats.
func (a *App) Status() Status {
	st := Status{
		ModelLoaded: a.provider.Loaded(),
		ServerURL:   a.cfg.Server.URL,
		Processors:  make(map[string]bool, 3),
		Caches:      a.caches.Stats(),
	}
	for _, p := range a.Processors() {
		st.Processors[p.Kind().String()] = p.Available()
	}
	return st
}

// Shutdown logs final cache occupancy and clears the caches. Call once
// at process exit.
func (a *App) Shutdown() {
	st := a.caches.Stats()
	a.log.Info("shutting down",
		zap.Int("grammar_cache_size", st.Grammar.Size),
		zap.Int("summary_cache_size", st.Summary.Size),
		zap.Int("tone_cache_size", st.Tone.Size))
	a.caches.ClearAll()
}
