package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/automation"
	"github.com/sells-group/leadpilot/internal/credit"
	"github.com/sells-group/leadpilot/internal/intel"
	"github.com/sells-group/leadpilot/internal/leadstore"
	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/pipeline"
	"github.com/sells-group/leadpilot/internal/resilience"
	"github.com/sells-group/leadpilot/internal/store"
	anthropicpkg "github.com/sells-group/leadpilot/pkg/anthropic"
	"github.com/sells-group/leadpilot/pkg/google"
	"github.com/sells-group/leadpilot/pkg/jina"
	"github.com/sells-group/leadpilot/pkg/perplexity"
)

const closeFlushTimeout = 5 * time.Second

// appEnv holds the session state and, for pipeline commands, the wired
// orchestrator.
type appEnv struct {
	Store   store.Store
	Leads   *leadstore.Store
	Credits *credit.Meter
	Syncer  *store.Syncer

	// profile is the session profile for state-only commands. Once the
	// orchestrator exists it owns the profile.
	profile model.Profile

	Pipeline *pipeline.Orchestrator // nil for state-only commands
	Webhook  *automation.Webhook    // nil for state-only commands
}

// Profile returns the current session profile.
func (e *appEnv) Profile() model.Profile {
	if e.Pipeline != nil {
		return e.Pipeline.Profile()
	}
	return e.profile
}

// SetProfile validates and replaces the session profile.
func (e *appEnv) SetProfile(p model.Profile) error {
	if e.Pipeline != nil {
		return e.Pipeline.SetProfile(p)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	e.profile = p
	return nil
}

// Close waits for in-flight webhook deliveries, flushes the session and
// releases the store.
func (e *appEnv) Close() {
	if e.Webhook != nil {
		e.Webhook.Wait()
	}
	if e.Syncer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
		if _, err := e.Syncer.Flush(ctx); err != nil {
			zap.L().Error("final session flush failed", zap.Error(err))
		}
		cancel()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initState opens the store and rehydrates leads, credits and profile.
// Callers should defer env.Close().
func initState(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate("state"); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	env := &appEnv{
		Store:   st,
		Leads:   leadstore.New(),
		Credits: credit.NewMeter(0),
		profile: cfg.Profile,
	}

	stored, err := store.Rehydrate(ctx, st, env.Leads, env.Credits, cfg.Credit.InitialBalance)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if stored != nil {
		env.profile = cfg.Profile.Merge(*stored)
	}

	env.Syncer = store.NewSyncer(st, store.Session{
		Leads:   env.Leads,
		Credits: env.Credits,
		Profile: env.Profile,
	}, cfg.Store.SyncInterval)
	return env, nil
}

// initApp builds the full pipeline on top of the session state. mode selects
// which configuration keys are required.
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env, err := initState(ctx)
	if err != nil {
		return nil, err
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Pipeline.RetryAttempts + 1

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))

	// Perplexity also serves as the research fallback when a site cannot be
	// read, so it is wired whenever a key is present.
	var perplexityClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		perplexityClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	}

	extractor, err := newExtractor(perplexityClient, retry)
	if err != nil {
		env.Close()
		return nil, err
	}

	researcher := intel.NewResearcher(intel.ResearcherConfig{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Retry:     retry,
	}, jinaClient, perplexityClient, anthropicClient)

	env.Webhook = automation.New(automation.Config{
		FallbackURL:      cfg.Automation.WebhookURL,
		Timeout:          cfg.Automation.Timeout,
		RateLimit:        cfg.Automation.RateLimit,
		FailureThreshold: cfg.Automation.FailureThreshold,
		ResetTimeout:     cfg.Automation.ResetTimeout,
	}, env.Leads)

	env.Pipeline = pipeline.New(pipeline.Config{
		DefaultLimit:        cfg.Pipeline.Limit,
		DefaultLocation:     cfg.Discovery.DefaultLocation,
		Throttle:            cfg.Pipeline.Throttle,
		LookupTimeout:       cfg.Pipeline.LookupTimeout,
		DiscoveryTimeout:    cfg.Pipeline.DiscoveryTimeout,
		StopWhenOutOfCredit: cfg.Pipeline.StopWhenOutOfCredit,
	}, extractor, researcher, env.Webhook, env.Leads, env.Credits)

	if err := env.Pipeline.SetProfile(env.profile); err != nil {
		zap.L().Warn("stored profile is invalid, starting with an empty profile", zap.Error(err))
	}

	zap.L().Info("pipeline ready",
		zap.String("discovery_source", cfg.Discovery.Source),
		zap.Int("leads", env.Leads.Len()),
		zap.Int("credits", env.Credits.Balance()),
	)
	return env, nil
}

// newExtractor builds the discovery source named by discovery.source.
func newExtractor(pplx perplexity.Client, retry resilience.RetryConfig) (pipeline.Extractor, error) {
	switch cfg.Discovery.Source {
	case "perplexity":
		if pplx == nil {
			return nil, eris.New("perplexity discovery requires perplexity.key")
		}
		return intel.NewSearchExtractor(pplx, retry), nil
	case "places":
		client := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
		return intel.NewPlacesExtractor(client, cfg.Google.RateLimit, cfg.Google.LanguageCode, retry), nil
	default:
		return nil, eris.Errorf("unsupported discovery source %q", cfg.Discovery.Source)
	}
}
