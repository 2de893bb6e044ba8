package intel

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadpilot/internal/leadstore"
	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/pipeline"
	"github.com/sells-group/leadpilot/internal/resilience"
	"github.com/sells-group/leadpilot/pkg/google"
)

// Text Search serves at most 20 places per page and 60 per query.
const (
	placesPageSize = 20
	placesMaxPages = 3
)

// PlacesExtractor discovers candidates with Google Places Text Search.
type PlacesExtractor struct {
	client       google.Client
	limiter      *rate.Limiter
	languageCode string
	retry        resilience.RetryConfig
}

// NewPlacesExtractor creates a PlacesExtractor limited to ratePerSec page
// requests per second. A non-positive rate disables limiting.
func NewPlacesExtractor(client google.Client, ratePerSec float64, languageCode string, retry resilience.RetryConfig) *PlacesExtractor {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	retry.OnRetry = resilience.RetryLogger("google_places", "text_search")
	return &PlacesExtractor{
		client:       client,
		limiter:      rate.NewLimiter(limit, 1),
		languageCode: languageCode,
		retry:        retry,
	}
}

// ExtractCandidates implements pipeline.Extractor. Places already known by
// name and places marked closed are skipped.
func (e *PlacesExtractor) ExtractCandidates(ctx context.Context, req pipeline.ExtractRequest) ([]model.Candidate, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	exclude := make(map[string]bool, len(req.ExcludeNames))
	for _, n := range req.ExcludeNames {
		exclude[leadstore.FoldName(n)] = true
	}

	var out []model.Candidate
	pageToken := ""
	for page := 0; page < placesMaxPages && len(out) < limit; page++ {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "intel: places rate limit wait")
		}

		search := google.TextSearchRequest{
			TextQuery:    req.Query,
			LanguageCode: e.languageCode,
			PageSize:     placesPageSize,
			PageToken:    pageToken,
		}
		resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*google.TextSearchResponse, error) {
			return e.client.TextSearch(ctx, search)
		})
		if err != nil {
			if page > 0 && len(out) > 0 {
				zap.L().Warn("intel: places pagination stopped early", zap.Int("page", page), zap.Error(err))
				break
			}
			return nil, eris.Wrap(err, "intel: places text search")
		}

		for _, p := range resp.Places {
			name := strings.TrimSpace(p.DisplayName.Text)
			if !p.Operational() || exclude[leadstore.FoldName(name)] {
				continue
			}
			out = append(out, model.Candidate{
				Name:     name,
				Website:  normalizeWebsite(p.WebsiteURI),
				Location: p.FormattedAddress,
			})
			if len(out) >= limit {
				break
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}
