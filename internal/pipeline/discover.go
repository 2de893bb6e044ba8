package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/leadstore"
	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/resilience"
)

// SynthesizeQuery builds the discovery query used when the caller gave none.
func SynthesizeQuery(sectorLabel, location string) string {
	if location == "" {
		return fmt.Sprintf("%s companies", sectorLabel)
	}
	return fmt.Sprintf("%s companies in %s", sectorLabel, location)
}

// discover asks the extractor for candidates once and prepends them to the
// store as pending leads. Nothing is inserted when the call fails.
func (o *Orchestrator) discover(ctx context.Context, params Params, sector model.Sector) ([]model.Lead, error) {
	query := params.Query
	if query == "" {
		query = SynthesizeQuery(sector.Label, params.Location)
	}
	known := o.leads.Names()

	candidates, err := resilience.WithDeadline(ctx, o.cfg.DiscoveryTimeout, func(ctx context.Context) ([]model.Candidate, error) {
		return o.extractor.ExtractCandidates(ctx, ExtractRequest{
			Query:        query,
			SectorID:     sector.ID,
			Location:     params.Location,
			ExcludeNames: known,
			Limit:        params.Limit,
		})
	})
	if err != nil {
		return nil, eris.Wrapf(ErrDiscoveryFailed, "pipeline: extract candidates: %v", err)
	}

	candidates = filterCandidates(candidates, known, params.Limit)
	if len(candidates) == 0 {
		return nil, nil
	}

	now := o.nowFunc().UTC()
	leads := make([]model.Lead, 0, len(candidates))
	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			name = model.DefaultLeadName
		}
		location := strings.TrimSpace(c.Location)
		if location == "" {
			location = params.Location
		}
		leads = append(leads, model.Lead{
			ID:               o.newID(),
			Name:             name,
			Website:          strings.TrimSpace(c.Website),
			Industry:         sector.Label,
			Location:         location,
			Email:            model.PlaceholderEmail,
			Phone:            model.PlaceholderPhone,
			Status:           model.LeadStatusPending,
			AutomationStatus: model.AutomationIdle,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}

	if err := o.leads.Prepend(leads); err != nil {
		return nil, eris.Wrap(err, "pipeline: store discovered leads")
	}
	zap.L().Info("pipeline: leads discovered",
		zap.String("query", query),
		zap.Int("count", len(leads)),
	)
	return leads, nil
}

// filterCandidates drops names already in the store or repeated within the
// batch, then truncates to limit. Unnamed candidates are never deduplicated.
func filterCandidates(in []model.Candidate, known []string, limit int) []model.Candidate {
	seen := make(map[string]bool, len(known)+len(in))
	for _, n := range known {
		seen[leadstore.FoldName(n)] = true
	}
	out := make([]model.Candidate, 0, len(in))
	for _, c := range in {
		if limit > 0 && len(out) >= limit {
			break
		}
		if key := leadstore.FoldName(c.Name); key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, c)
	}
	return out
}
