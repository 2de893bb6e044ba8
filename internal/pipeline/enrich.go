package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/resilience"
)

// enrich looks up each discovered lead in order. A failed lookup marks only
// that lead failed. Cancellation is observed between items, never during a
// lookup.
func (o *Orchestrator) enrich(ctx context.Context, params Params, profile model.Profile, leads []model.Lead, report *RunReport) {
	report.Outcome = OutcomeCompleted
	log := zap.L().With(zap.String("run_id", report.RunID))

	for i, lead := range leads {
		// A stop during discovery skips every item.
		if o.cancelled.Load() {
			report.Outcome = OutcomeCancelled
			report.Skipped = len(leads) - i
			log.Info("pipeline: run stopped", zap.Int("skipped", report.Skipped))
			return
		}
		if i > 0 && o.cfg.StopWhenOutOfCredit && o.credits.Balance() == 0 {
			report.Outcome = OutcomeOutOfCredit
			report.Skipped = len(leads) - i
			log.Info("pipeline: out of credit", zap.Int("skipped", report.Skipped))
			return
		}

		o.setMessage(fmt.Sprintf("Analysing %s (%d/%d)", lead.Name, i+1, len(leads)))

		if err := o.sleep(ctx, o.cfg.Throttle); err != nil {
			report.Outcome = OutcomeCancelled
			report.Skipped = len(leads) - i
			return
		}

		intel, err := resilience.WithDeadline(ctx, o.cfg.LookupTimeout, func(ctx context.Context) (*model.Intel, error) {
			return o.lookup.LookupIntel(ctx, LookupRequest{
				Name:     lead.Name,
				Website:  lead.Website,
				SectorID: params.SectorID,
				Profile:  profile,
			})
		})
		if ctx.Err() != nil {
			// Shutdown, not a lookup failure: leave the lead pending.
			report.Outcome = OutcomeCancelled
			report.Skipped = len(leads) - i
			return
		}
		if err == nil && intel == nil {
			err = eris.New("pipeline: lookup returned no intel")
		}

		if err != nil {
			if _, uerr := o.leads.Update(lead.ID, func(l *model.Lead) {
				l.Status = model.LeadStatusFailed
			}); uerr != nil {
				log.Warn("pipeline: lead vanished before failure write", zap.String("lead_id", lead.ID), zap.Error(uerr))
			}
			report.Failed++
			o.recordItem(false)
			log.Warn("pipeline: enrichment failed",
				zap.String("lead_id", lead.ID),
				zap.String("lead", lead.Name),
				zap.Error(err),
			)
			continue
		}

		updated, err := o.leads.Update(lead.ID, func(l *model.Lead) {
			*l = l.Merge(*intel).ClearPlaceholders()
			l.Status = model.LeadStatusCompleted
		})
		if err != nil {
			log.Warn("pipeline: lead vanished before merge", zap.String("lead_id", lead.ID), zap.Error(err))
			continue
		}
		report.CreditsUsed += o.credits.Consume(1)
		report.Completed++
		o.recordItem(true)

		if params.Autopilot && o.dispatcher != nil && model.PlausibleEmail(updated.Email) {
			o.dispatcher.Dispatch(updated, profile)
		}
	}
}

func (o *Orchestrator) recordItem(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.Processed++
	if ok {
		o.progress.Completed++
	} else {
		o.progress.Failed++
	}
	o.progress.UpdatedAt = o.nowFunc().UTC()
}
