package intel

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Contacts are the contact details found on a company's own pages.
type Contacts struct {
	Emails    []string
	Phones    []string
	LinkedIn  string
	Instagram string
	Twitter   string
}

var (
	mailtoRe = regexp.MustCompile(`(?i)mailto:([a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,})`)
	emailRe  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	telRe    = regexp.MustCompile(`(?i)tel:(\+?[\d\s().\-]{7,20})`)
	// International or local numbers with at least 9 digits, optionally
	// grouped by spaces, dots, dashes or parentheses.
	phoneRe = regexp.MustCompile(`\+?\(?\d{1,4}\)?(?:[\s.\-]?\(?\d{2,4}\)?){2,5}`)

	linkedInRe  = regexp.MustCompile(`(?i)https?://(?:[a-z]{2,3}\.)?linkedin\.com/(?:company|in|school)/[A-Za-z0-9_\-%.]+`)
	instagramRe = regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[A-Za-z0-9_.]+`)
	twitterRe   = regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter|x)\.com/[A-Za-z0-9_]+`)
)

// Asset names that look like addresses (logo@2x.png) but are not.
var emailAssetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".css", ".js"}

// Generic mailbox prefixes ranked ahead of personal addresses for outreach.
var preferredMailboxes = []string{"info", "sales", "contact", "hello", "iletisim", "bilgi", "office"}

var socialReserved = map[string]bool{
	"share": true, "sharer": true, "intent": true, "home": true, "login": true, "p": true, "explore": true,
}

// HarvestContacts scans page markdown and link targets for emails, phone
// numbers and social profiles.
func HarvestContacts(content string, links map[string]string) Contacts {
	var sb strings.Builder
	sb.WriteString(content)
	targets := make([]string, 0, len(links))
	for _, href := range links {
		targets = append(targets, href)
	}
	sort.Strings(targets)
	for _, href := range targets {
		sb.WriteByte('\n')
		sb.WriteString(href)
	}
	text := sb.String()

	var c Contacts
	c.Emails = harvestEmails(text)
	c.Phones = harvestPhones(text)
	c.LinkedIn = firstSocial(linkedInRe, text)
	c.Instagram = firstSocial(instagramRe, text)
	c.Twitter = firstSocial(twitterRe, text)
	return c
}

// BestEmail returns the address most suited for company outreach.
func (c Contacts) BestEmail() string {
	for _, prefix := range preferredMailboxes {
		for _, e := range c.Emails {
			if strings.HasPrefix(e, prefix+"@") {
				return e
			}
		}
	}
	if len(c.Emails) > 0 {
		return c.Emails[0]
	}
	return ""
}

// BestPhone returns the first phone number found, or "".
func (c Contacts) BestPhone() string {
	if len(c.Phones) > 0 {
		return c.Phones[0]
	}
	return ""
}

func harvestEmails(text string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(e string) {
		e = strings.ToLower(strings.Trim(e, ".,;:"))
		for _, suf := range emailAssetSuffixes {
			if strings.HasSuffix(e, suf) {
				return
			}
		}
		if strings.Contains(e, "example.") || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}
	for _, m := range mailtoRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range emailRe.FindAllString(text, -1) {
		add(m)
	}
	return out
}

func harvestPhones(text string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(raw string) {
		p := strings.Join(strings.Fields(strings.TrimSpace(raw)), " ")
		digits := digitsOnly(p)
		if len(digits) < 9 || len(digits) > 15 || seen[digits] {
			return
		}
		seen[digits] = true
		out = append(out, p)
	}
	// tel: links are the most reliable source.
	for _, m := range telRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range phoneRe.FindAllString(text, 20) {
		if looksLikeDateOrID(m) {
			continue
		}
		add(m)
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// looksLikeDateOrID rejects runs like 2024.01.15 or 1234567890123 that have
// no phone-style grouping.
func looksLikeDateOrID(s string) bool {
	if strings.Count(s, ".") >= 2 && !strings.ContainsAny(s, " ()+-") {
		return true
	}
	return !strings.ContainsAny(s, " .()+-")
}

func firstSocial(re *regexp.Regexp, text string) string {
	for _, m := range re.FindAllString(text, -1) {
		u, err := url.Parse(m)
		if err != nil {
			continue
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		handle := strings.ToLower(parts[len(parts)-1])
		if handle == "" || socialReserved[handle] {
			continue
		}
		return strings.TrimRight(m, "/.")
	}
	return ""
}
