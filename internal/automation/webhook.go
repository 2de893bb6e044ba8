// Package automation delivers completed leads to an external automation
// endpoint (an n8n, Zapier or Make webhook) without blocking the pipeline.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/resilience"
)

// StatusWriter records the delivery outcome on the stored lead.
type StatusWriter interface {
	SetAutomationStatus(id string, status model.AutomationStatus) error
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Lead   model.Lead    `json:"lead"`
	Sender model.Profile `json:"sender"`
}

// Config configures a Webhook.
type Config struct {
	// FallbackURL is used when the sender profile has no webhook URL.
	FallbackURL      string
	Timeout          time.Duration
	RateLimit        float64
	FailureThreshold int
	ResetTimeout     time.Duration
}

// Webhook posts leads to the configured endpoint. Each Dispatch runs on its
// own goroutine; Wait blocks until every in-flight delivery has finished.
type Webhook struct {
	cfg     Config
	http    *http.Client
	status  StatusWriter
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	wg      sync.WaitGroup
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(w *Webhook) {
		w.http = hc
	}
}

// New creates a Webhook that writes delivery outcomes through status.
func New(cfg Config, status StatusWriter, opts ...Option) *Webhook {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("automation-webhook")
	if cfg.FailureThreshold > 0 {
		breakerCfg.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeout > 0 {
		breakerCfg.ResetTimeout = cfg.ResetTimeout
	}

	w := &Webhook{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		status:  status,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.NewCircuitBreaker(breakerCfg),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Endpoint resolves the webhook URL for a sender: the profile's own URL
// wins over the configured fallback. Empty means automation is not set up.
func (w *Webhook) Endpoint(sender model.Profile) string {
	if u := strings.TrimSpace(sender.WebhookURL); u != "" {
		return u
	}
	return strings.TrimSpace(w.cfg.FallbackURL)
}

// Dispatch delivers lead in the background. It never blocks on the network
// and never reports failure to the caller; a 2xx response marks the lead
// sent, anything else is logged and leaves the status unchanged.
func (w *Webhook) Dispatch(lead model.Lead, sender model.Profile) {
	lead = lead.Clone()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
		defer cancel()

		if err := w.Send(ctx, lead, sender); err != nil {
			zap.L().Warn("automation: webhook delivery failed",
				zap.String("lead_id", lead.ID),
				zap.String("lead", lead.Name),
				zap.Error(err),
			)
			return
		}
		if err := w.status.SetAutomationStatus(lead.ID, model.AutomationSent); err != nil {
			// Lead was cleared while the request was in flight.
			zap.L().Debug("automation: lead gone after delivery",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("automation: lead delivered",
			zap.String("lead_id", lead.ID),
			zap.String("lead", lead.Name),
		)
	}()
}

// Send posts lead synchronously.
func (w *Webhook) Send(ctx context.Context, lead model.Lead, sender model.Profile) error {
	endpoint := w.Endpoint(sender)
	if endpoint == "" {
		return eris.New("automation: no webhook endpoint configured")
	}

	payload, err := json.Marshal(Payload{Lead: lead, Sender: sender})
	if err != nil {
		return eris.Wrap(err, "automation: marshal payload")
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "automation: rate limit wait")
	}

	return w.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "automation: create request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "automation: request failed")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return eris.Errorf("automation: webhook returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil
	})
}

// Wait blocks until all background deliveries have finished.
func (w *Webhook) Wait() {
	w.wg.Wait()
}
