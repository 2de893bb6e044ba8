package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpilot/internal/model"
	"github.com/sells-group/leadpilot/internal/pipeline"
	"github.com/sells-group/leadpilot/internal/resilience"
	"github.com/sells-group/leadpilot/pkg/anthropic"
	"github.com/sells-group/leadpilot/pkg/jina"
	"github.com/sells-group/leadpilot/pkg/perplexity"
)

// maxPageChars bounds how much website text is sent to the model.
const maxPageChars = 12000

// Domains that are never a company's own website.
var directoryHosts = []string{
	"linkedin.com", "facebook.com", "instagram.com", "twitter.com", "x.com",
	"youtube.com", "wikipedia.org", "yelp.com", "tripadvisor.", "google.",
}

const outreachSystemPrompt = `You are a senior B2B sales researcher writing first-touch outreach on behalf of the sender below.
Write in the language of the prospect's website. Never invent contact details that are not in the source material.

Sender:
- Name: %s
- Company: %s
- Website: %s
- About: %s
- Phone: %s
- Authorized person: %s`

const outreachUserPrompt = `Prospect: %s
Sector: %s
Website: %s

Contact details found on the website:
- Emails: %s
- Phones: %s
- LinkedIn: %s
- Instagram: %s
- Twitter/X: %s

Source material:
"""
%s
"""

Return ONLY a JSON object with these keys:
"email": best contact email from the material or "",
"phone": best contact phone from the material or "",
"description": two sentences on what the prospect does,
"email_subject": a short subject line,
"email_draft": a personalised outreach email from the sender,
"icebreaker": one opening line referencing something specific,
"competitors": up to three competitor names,
"health_score": 0-100 estimate of how active and reachable the business is,
"is_verified": true only if the material clearly belongs to the prospect.`

const perplexityFallbackPrompt = `Summarise the company %q (%s) in the %s sector: what it does, its official website, contact email, phone number and social media profiles. Only report details you can cite.`

// ResearcherConfig configures a Researcher.
type ResearcherConfig struct {
	Model     string
	MaxTokens int64
	Retry     resilience.RetryConfig
}

// Researcher enriches one lead: it reads the company website, harvests
// contact details, and asks Claude for outreach copy and an assessment.
type Researcher struct {
	cfg    ResearcherConfig
	reader jina.Client
	pplx   perplexity.Client
	ai     anthropic.Client
}

// NewResearcher creates a Researcher. pplx is optional and only used when
// the website cannot be read.
func NewResearcher(cfg ResearcherConfig, reader jina.Client, pplx perplexity.Client, ai anthropic.Client) *Researcher {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Researcher{cfg: cfg, reader: reader, pplx: pplx, ai: ai}
}

type outreach struct {
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Description  string   `json:"description"`
	EmailSubject string   `json:"email_subject"`
	EmailDraft   string   `json:"email_draft"`
	Icebreaker   string   `json:"icebreaker"`
	Competitors  []string `json:"competitors"`
	HealthScore  *int     `json:"health_score"`
	IsVerified   *bool    `json:"is_verified"`
}

// LookupIntel implements pipeline.Lookup.
func (r *Researcher) LookupIntel(ctx context.Context, req pipeline.LookupRequest) (*model.Intel, error) {
	log := zap.L().With(zap.String("company", req.Name))
	sectorLabel := req.SectorID
	if s, ok := model.LookupSector(req.SectorID); ok {
		sectorLabel = s.Label
	}

	website := req.Website
	if website == "" {
		website = r.findWebsite(ctx, req.Name, sectorLabel)
	}

	var (
		source   string
		contacts Contacts
		siteRead bool
	)
	if website != "" {
		page, err := r.read(ctx, website)
		if err != nil {
			log.Debug("intel: website read failed", zap.String("website", website), zap.Error(err))
		} else {
			source = page.Data.Content
			contacts = HarvestContacts(page.Data.Content, page.Data.Links)
			siteRead = strings.TrimSpace(source) != ""
		}
	}

	if !siteRead && r.pplx != nil {
		text, err := r.searchFallback(ctx, req.Name, website, sectorLabel)
		if err != nil {
			log.Debug("intel: perplexity fallback failed", zap.Error(err))
		} else {
			source = text
			contacts = HarvestContacts(text, nil)
		}
	}

	if strings.TrimSpace(source) == "" {
		return nil, eris.Errorf("intel: no source material for %s", req.Name)
	}

	out, err := r.writeOutreach(ctx, req, sectorLabel, website, source, contacts)
	if err != nil {
		return nil, err
	}
	return buildIntel(out, contacts, siteRead), nil
}

func (r *Researcher) read(ctx context.Context, website string) (*jina.ReadResponse, error) {
	cfg := r.cfg.Retry
	cfg.OnRetry = resilience.RetryLogger("jina", "read")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*jina.ReadResponse, error) {
		return r.reader.Read(ctx, website, jina.WithLinks())
	})
}

// findWebsite searches for the company's own site, skipping directories and
// social networks.
func (r *Researcher) findWebsite(ctx context.Context, name, sectorLabel string) string {
	resp, err := r.reader.Search(ctx, fmt.Sprintf("%s %s official website", name, sectorLabel))
	if err != nil {
		zap.L().Debug("intel: website search failed", zap.String("company", name), zap.Error(err))
		return ""
	}
	for _, res := range resp.Data {
		u, err := url.Parse(res.URL)
		if err != nil || u.Host == "" {
			continue
		}
		if isDirectoryHost(u.Host) {
			continue
		}
		return u.Scheme + "://" + u.Host
	}
	return ""
}

func isDirectoryHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range directoryHosts {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

func (r *Researcher) searchFallback(ctx context.Context, name, website, sectorLabel string) (string, error) {
	temp := 0.2
	cfg := r.cfg.Retry
	cfg.OnRetry = resilience.RetryLogger("perplexity", "company_summary")
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return r.pplx.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Messages: []perplexity.Message{
				{Role: "user", Content: fmt.Sprintf(perplexityFallbackPrompt, name, website, sectorLabel)},
			},
			Temperature: &temp,
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "intel: perplexity summary")
	}
	return resp.Content(), nil
}

func (r *Researcher) writeOutreach(ctx context.Context, req pipeline.LookupRequest, sectorLabel, website, source string, c Contacts) (*outreach, error) {
	source = truncateUTF8(source, maxPageChars)
	p := req.Profile
	phone := p.FixedPhone
	if phone == "" {
		phone = p.MobilePhone
	}
	system := fmt.Sprintf(outreachSystemPrompt,
		orDash(p.Name), orDash(p.CompanyName), orDash(p.CompanyWebsite),
		orDash(p.CompanyDescription), orDash(phone), orDash(p.AuthorizedPerson))
	user := fmt.Sprintf(outreachUserPrompt,
		req.Name, sectorLabel, orDash(website),
		orDash(strings.Join(c.Emails, ", ")), orDash(strings.Join(c.Phones, ", ")),
		orDash(c.LinkedIn), orDash(c.Instagram), orDash(c.Twitter),
		source)

	cfg := r.cfg.Retry
	cfg.OnRetry = resilience.RetryLogger("anthropic", "outreach")
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return r.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     r.cfg.Model,
			MaxTokens: r.cfg.MaxTokens,
			System: []anthropic.SystemBlock{
				{Text: system, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
			},
			Messages: []anthropic.Message{
				{Role: "user", Content: user},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "intel: outreach message")
	}
	resp.Usage.LogUsage(resp.Model, "outreach")

	var out outreach
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &out); err != nil {
		return nil, eris.Wrap(err, "intel: parse outreach json")
	}
	return &out, nil
}

// buildIntel merges harvested contacts with the model's answer. Contacts
// found on the page win over model output; empty strings are left unset so
// they do not overwrite the lead.
func buildIntel(out *outreach, c Contacts, siteRead bool) *model.Intel {
	in := &model.Intel{}
	set := func(v string) *string {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return &v
	}

	email := c.BestEmail()
	if email == "" && model.PlausibleEmail(out.Email) {
		email = strings.ToLower(strings.TrimSpace(out.Email))
	}
	phone := c.BestPhone()
	if phone == "" {
		phone = out.Phone
	}

	in.Email = set(email)
	in.Phone = set(phone)
	in.LinkedIn = set(c.LinkedIn)
	in.Instagram = set(c.Instagram)
	in.Twitter = set(c.Twitter)
	in.Description = set(out.Description)
	in.EmailSubject = set(out.EmailSubject)
	in.EmailDraft = set(out.EmailDraft)
	in.Icebreaker = set(out.Icebreaker)

	if len(out.Competitors) > 0 {
		comps := make([]string, 0, len(out.Competitors))
		for _, name := range out.Competitors {
			if name = strings.TrimSpace(name); name != "" {
				comps = append(comps, name)
			}
		}
		if len(comps) > 3 {
			comps = comps[:3]
		}
		in.Competitors = comps
	}

	if out.HealthScore != nil {
		score := min(max(*out.HealthScore, 0), 100)
		in.HealthScore = &score
	}

	verified := siteRead && out.IsVerified != nil && *out.IsVerified
	in.IsVerified = &verified
	return in
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
