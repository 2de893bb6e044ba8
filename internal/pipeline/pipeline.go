// Package pipeline runs lead discovery followed by sequential enrichment,
// metering credit per enriched lead and optionally handing completed leads
// to an automation dispatcher.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/credit"
	"github.com/sells-group/leadpilot/internal/leadstore"
	"github.com/sells-group/leadpilot/internal/model"
)

// ExtractRequest asks a discovery source for candidate companies.
type ExtractRequest struct {
	Query        string
	SectorID     string
	Location     string
	ExcludeNames []string
	Limit        int
}

// LookupRequest asks an intelligence source about one company.
type LookupRequest struct {
	Name     string
	Website  string
	SectorID string
	Profile  model.Profile
}

// Extractor produces the initial candidate list for a run.
type Extractor interface {
	ExtractCandidates(ctx context.Context, req ExtractRequest) ([]model.Candidate, error)
}

// Lookup enriches a single lead. Nil fields in the returned Intel leave the
// lead untouched.
type Lookup interface {
	LookupIntel(ctx context.Context, req LookupRequest) (*model.Intel, error)
}

// Dispatcher forwards completed leads to the automation endpoint. Dispatch
// must not block; delivery outcomes are recorded by the dispatcher itself.
type Dispatcher interface {
	Endpoint(sender model.Profile) string
	Dispatch(lead model.Lead, sender model.Profile)
}

// Status is the coarse run state.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusDiscovering Status = "discovering"
	StatusEnriching   Status = "enriching"
)

// Outcome summarises how a run ended.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeNoResults       Outcome = "no_results"
	OutcomeOutOfCredit     Outcome = "out_of_credit"
	OutcomeDiscoveryFailed Outcome = "discovery_failed"
)

// Progress is the single-slot observable run state. Each update replaces
// the previous message.
type Progress struct {
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	RunID       string    `json:"run_id,omitempty"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	LastOutcome Outcome   `json:"last_outcome,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Params are the inputs of one run.
type Params struct {
	Query     string `json:"query" validate:"max=300"`
	SectorID  string `json:"sector" validate:"required"`
	Location  string `json:"location" validate:"max=120"`
	Limit     int    `json:"limit" validate:"gte=0,lte=100"`
	Autopilot bool   `json:"autopilot"`
}

// RunReport describes a finished run.
type RunReport struct {
	RunID       string    `json:"run_id"`
	Params      Params    `json:"params"`
	Outcome     Outcome   `json:"outcome"`
	Discovered  int       `json:"discovered"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	CreditsUsed int       `json:"credits_used"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Config tunes the orchestrator.
type Config struct {
	DefaultLimit        int
	DefaultLocation     string
	Throttle            time.Duration
	LookupTimeout       time.Duration
	DiscoveryTimeout    time.Duration
	StopWhenOutOfCredit bool
}

var validate = validator.New()

// Orchestrator owns one run at a time. The run goroutine is the only writer
// of lead status and the only consumer of credit; the dispatcher writes
// automation status concurrently.
type Orchestrator struct {
	cfg        Config
	extractor  Extractor
	lookup     Lookup
	dispatcher Dispatcher
	leads      *leadstore.Store
	credits    *credit.Meter

	running   atomic.Bool
	cancelled atomic.Bool
	wg        sync.WaitGroup

	mu       sync.Mutex
	progress Progress
	profile  model.Profile

	// Replaced in tests.
	sleep   func(ctx context.Context, d time.Duration) error
	newID   func() string
	nowFunc func() time.Time
}

// New creates an idle orchestrator.
func New(cfg Config, extractor Extractor, lookup Lookup, dispatcher Dispatcher, leads *leadstore.Store, credits *credit.Meter) *Orchestrator {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	o := &Orchestrator{
		cfg:        cfg,
		extractor:  extractor,
		lookup:     lookup,
		dispatcher: dispatcher,
		leads:      leads,
		credits:    credits,
		sleep:      sleepCtx,
		newID:      uuid.NewString,
		nowFunc:    time.Now,
	}
	o.progress = Progress{Status: StatusIdle, UpdatedAt: o.nowFunc().UTC()}
	return o
}

// Start validates params and checks preconditions, then runs the pipeline on
// a background goroutine bound to ctx. Pass a process-lifetime context, not
// a request context.
func (o *Orchestrator) Start(ctx context.Context, params Params) (string, error) {
	params, sector, profile, err := o.prepare(params)
	if err != nil {
		return "", err
	}

	runID := o.newID()
	o.begin(runID, sector)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		report, err := o.execute(ctx, runID, params, sector, profile)
		if err != nil {
			zap.L().Warn("pipeline: run ended with error", zap.String("run_id", runID), zap.Error(err))
			return
		}
		zap.L().Info("pipeline: run finished",
			zap.String("run_id", runID),
			zap.String("outcome", string(report.Outcome)),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
		)
	}()
	return runID, nil
}

// Run is the synchronous form of Start.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*RunReport, error) {
	params, sector, profile, err := o.prepare(params)
	if err != nil {
		return nil, err
	}
	runID := o.newID()
	o.begin(runID, sector)
	return o.execute(ctx, runID, params, sector, profile)
}

// Stop asks the active run to finish after the current item and reports idle
// immediately. The in-flight lookup is not interrupted.
func (o *Orchestrator) Stop() {
	o.cancelled.Store(true)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.Status = StatusIdle
	o.progress.Message = "Stopped"
	o.progress.UpdatedAt = o.nowFunc().UTC()
}

// Wait blocks until any background run has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Running reports whether a run goroutine is still active, including one
// draining after Stop.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Progress returns the current run state.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Leads returns a snapshot of the lead collection.
func (o *Orchestrator) Leads() []model.Lead {
	return o.leads.Snapshot()
}

// Lead returns one lead by id.
func (o *Orchestrator) Lead(id string) (model.Lead, error) {
	l, ok := o.leads.Get(id)
	if !ok {
		return model.Lead{}, eris.Wrapf(ErrLeadNotFound, "pipeline: lead %s", id)
	}
	return l, nil
}

// Clear empties the lead collection. It is rejected while a run is active.
func (o *Orchestrator) Clear() error {
	if o.running.Load() {
		return ErrRunActive
	}
	o.leads.Clear()
	return nil
}

// Profile returns the caller profile used for outreach and as webhook sender.
func (o *Orchestrator) Profile() model.Profile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profile
}

// SetProfile validates and replaces the caller profile. Runs already in
// progress keep the profile they started with.
func (o *Orchestrator) SetProfile(p model.Profile) error {
	if err := p.Validate(); err != nil {
		return eris.Wrap(ErrInvalidParams, err.Error())
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.profile = p
	return nil
}

// Dispatch manually forwards one completed lead to the automation endpoint.
func (o *Orchestrator) Dispatch(ctx context.Context, leadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lead, err := o.Lead(leadID)
	if err != nil {
		return err
	}
	if lead.Status != model.LeadStatusCompleted {
		return eris.Wrapf(ErrInvalidParams, "pipeline: lead %s is %s, not completed", leadID, lead.Status)
	}
	if !model.PlausibleEmail(lead.Email) {
		return eris.Wrapf(ErrInvalidParams, "pipeline: lead %s has no deliverable email", leadID)
	}
	profile := o.Profile()
	if o.dispatcher == nil || o.dispatcher.Endpoint(profile) == "" {
		return ErrConfigurationRequired
	}
	o.dispatcher.Dispatch(lead, profile)
	return nil
}

// prepare checks the start preconditions in order and claims the run slot.
func (o *Orchestrator) prepare(params Params) (Params, model.Sector, model.Profile, error) {
	params.Query = strings.TrimSpace(params.Query)
	params.Location = strings.TrimSpace(params.Location)
	params.SectorID = strings.TrimSpace(params.SectorID)

	if err := validate.Struct(params); err != nil {
		return params, model.Sector{}, model.Profile{}, eris.Wrap(ErrInvalidParams, err.Error())
	}
	sector, ok := model.LookupSector(params.SectorID)
	if !ok {
		return params, model.Sector{}, model.Profile{}, eris.Wrapf(ErrInvalidParams, "pipeline: unknown sector %q", params.SectorID)
	}
	if params.Limit == 0 {
		params.Limit = o.cfg.DefaultLimit
	}
	if params.Location == "" {
		params.Location = o.cfg.DefaultLocation
	}

	if !o.running.CompareAndSwap(false, true) {
		return params, sector, model.Profile{}, ErrRunActive
	}

	profile := o.Profile()
	var err error
	switch {
	case o.credits.Balance() < 1:
		err = ErrInsufficientCredit
	case params.Autopilot && (o.dispatcher == nil || o.dispatcher.Endpoint(profile) == ""):
		err = ErrConfigurationRequired
	}
	if err != nil {
		o.running.Store(false)
		return params, sector, profile, err
	}

	o.cancelled.Store(false)
	return params, sector, profile, nil
}

// begin resets progress for a freshly claimed run.
func (o *Orchestrator) begin(runID string, sector model.Sector) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = Progress{
		Status:    StatusDiscovering,
		Message:   "Searching for " + sector.Label + " companies",
		RunID:     runID,
		UpdatedAt: o.nowFunc().UTC(),
	}
}

// execute runs discovery then enrichment. The run slot must already be
// claimed; it is released and the status forced to idle on every path.
func (o *Orchestrator) execute(ctx context.Context, runID string, params Params, sector model.Sector, profile model.Profile) (*RunReport, error) {
	report := &RunReport{
		RunID:     runID,
		Params:    params,
		StartedAt: o.nowFunc().UTC(),
	}
	defer func() {
		report.FinishedAt = o.nowFunc().UTC()
		o.mu.Lock()
		o.progress.Status = StatusIdle
		o.progress.LastOutcome = report.Outcome
		o.progress.UpdatedAt = report.FinishedAt
		o.mu.Unlock()
		o.running.Store(false)
	}()

	log := zap.L().With(zap.String("run_id", runID), zap.String("sector", sector.ID))
	log.Info("pipeline: run started",
		zap.String("location", params.Location),
		zap.Int("limit", params.Limit),
		zap.Bool("autopilot", params.Autopilot),
	)

	leads, err := o.discover(ctx, params, sector)
	if err != nil {
		report.Outcome = OutcomeDiscoveryFailed
		o.setMessage("Discovery failed")
		log.Error("pipeline: discovery failed", zap.Error(err))
		return report, err
	}
	report.Discovered = len(leads)
	if len(leads) == 0 {
		report.Outcome = OutcomeNoResults
		o.setMessage("No results found")
		log.Info("pipeline: no results found")
		return report, nil
	}

	if !o.cancelled.Load() {
		o.mu.Lock()
		o.progress.Status = StatusEnriching
		o.progress.Total = len(leads)
		o.progress.Message = "Found companies, starting analysis"
		o.progress.UpdatedAt = o.nowFunc().UTC()
		o.mu.Unlock()
	}

	o.enrich(ctx, params, profile, leads, report)

	switch report.Outcome {
	case OutcomeCompleted:
		o.setMessage("Analysis completed")
	case OutcomeOutOfCredit:
		o.setMessage("Out of credit")
	}
	return report, nil
}

// setMessage overwrites the progress line unless the run was stopped, in
// which case the stop message stays visible.
func (o *Orchestrator) setMessage(msg string) {
	if o.cancelled.Load() {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.Message = msg
	o.progress.UpdatedAt = o.nowFunc().UTC()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
