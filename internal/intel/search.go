// Package intel implements candidate discovery and per-lead enrichment on top
// of the Perplexity, Google Places, Jina Reader and Anthropic clients.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/pipeline"
	"github.com/sells-group/leadpilot/internal/resilience"
	"github.com/sells-group/leadpilot/pkg/perplexity"
)

const searchPrompt = `Find up to %d real, currently operating businesses for this search: %q.
Sector: %s. Location: %s.
%sReturn ONLY a JSON array. Each element must be an object with the keys "name", "website" and "location". Use an empty string when the website is unknown. Do not invent companies.`

var candidateSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string"},
			"website":  map[string]any{"type": "string"},
			"location": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	},
}

// SearchExtractor discovers candidates with a web-grounded Perplexity query.
type SearchExtractor struct {
	client perplexity.Client
	retry  resilience.RetryConfig
}

// NewSearchExtractor creates a SearchExtractor.
func NewSearchExtractor(client perplexity.Client, retry resilience.RetryConfig) *SearchExtractor {
	retry.OnRetry = resilience.RetryLogger("perplexity", "extract_candidates")
	return &SearchExtractor{client: client, retry: retry}
}

// ExtractCandidates implements pipeline.Extractor.
func (e *SearchExtractor) ExtractCandidates(ctx context.Context, req pipeline.ExtractRequest) ([]model.Candidate, error) {
	sectorLabel := req.SectorID
	if s, ok := model.LookupSector(req.SectorID); ok {
		sectorLabel = s.Label
	}
	exclude := ""
	if len(req.ExcludeNames) > 0 {
		exclude = "Exclude these companies, which are already known: " + strings.Join(req.ExcludeNames, ", ") + ".\n"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	temp := 0.1
	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return e.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "system", Content: "You are a B2B lead researcher. You answer with strict JSON only."},
				{Role: "user", Content: fmt.Sprintf(searchPrompt, limit, req.Query, sectorLabel, req.Location, exclude)},
			},
			Temperature: &temp,
			ResponseFormat: &perplexity.ResponseFormat{
				Type:       "json_schema",
				JSONSchema: &perplexity.JSONSchema{Schema: candidateSchema},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "intel: search candidates")
	}

	candidates, err := parseCandidates(resp.Content())
	if err != nil {
		return nil, err
	}
	zap.L().Debug("intel: search candidates",
		zap.String("query", req.Query),
		zap.Int("count", len(candidates)),
		zap.Int("citations", len(resp.Citations)),
	)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// parseCandidates accepts a bare array or an object wrapping one under
// "companies" or "results".
func parseCandidates(text string) ([]model.Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var out []model.Candidate
	if err := json.Unmarshal([]byte(cleanJSONArray(text)), &out); err != nil {
		var wrapped struct {
			Companies []model.Candidate `json:"companies"`
			Results   []model.Candidate `json:"results"`
		}
		if werr := json.Unmarshal([]byte(cleanJSON(text)), &wrapped); werr != nil {
			return nil, eris.Wrap(err, "intel: parse candidates")
		}
		out = append(wrapped.Companies, wrapped.Results...)
	}

	filtered := out[:0]
	for _, c := range out {
		c.Name = strings.TrimSpace(c.Name)
		c.Website = normalizeWebsite(c.Website)
		c.Location = strings.TrimSpace(c.Location)
		if c.Name == "" && c.Website == "" {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered, nil
}

// normalizeWebsite adds a scheme to bare domains and drops placeholders.
func normalizeWebsite(raw string) string {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "n/a", "na", "none", "unknown", "-":
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return strings.TrimRight(raw, "/")
}
