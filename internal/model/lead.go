// Package model defines the lead, profile and sector types shared by the
// discovery and enrichment pipeline.
package model

import (
	"strings"
	"time"
)

// LeadStatus is the enrichment lifecycle of a lead.
type LeadStatus string

const (
	LeadStatusPending LeadStatus = "pending"
	// LeadStatusProcessing is reserved; enrichment is all-or-nothing per lead
	// so the pipeline never assigns it.
	LeadStatusProcessing LeadStatus = "processing"
	LeadStatusCompleted  LeadStatus = "completed"
	LeadStatusFailed     LeadStatus = "failed"
)

// AutomationStatus is the webhook delivery lifecycle of a lead. It is only
// written by the automation dispatcher.
type AutomationStatus string

const (
	AutomationIdle   AutomationStatus = "idle"
	AutomationQueued AutomationStatus = "queued"
	AutomationSent   AutomationStatus = "sent"
	AutomationFailed AutomationStatus = "failed"
)

// Placeholders written at discovery time for contact fields that enrichment
// has not filled yet.
const (
	PlaceholderEmail = "searching..."
	PlaceholderPhone = "..."

	// DefaultLeadName is used when a candidate comes back without a name.
	DefaultLeadName = "Company"
)

// Lead is a discovered business tracked through discovery and enrichment.
type Lead struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Website  string `json:"website"`
	Industry string `json:"industry,omitempty"`
	Location string `json:"location,omitempty"`

	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	LinkedIn     string   `json:"linkedin,omitempty"`
	Instagram    string   `json:"instagram,omitempty"`
	Twitter      string   `json:"twitter,omitempty"`
	Description  string   `json:"description,omitempty"`
	EmailSubject string   `json:"email_subject,omitempty"`
	EmailDraft   string   `json:"email_draft,omitempty"`
	Icebreaker   string   `json:"icebreaker,omitempty"`
	Competitors  []string `json:"competitors,omitempty"`
	HealthScore  *int     `json:"health_score,omitempty"`
	IsVerified   *bool    `json:"is_verified,omitempty"`

	Status           LeadStatus       `json:"status"`
	AutomationStatus AutomationStatus `json:"automation_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Candidate is a raw discovery result before it becomes a Lead.
type Candidate struct {
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	Location string `json:"location,omitempty"`
}

// Intel is the partial result of an intelligence lookup. Nil fields were not
// returned by the remote call and leave the lead untouched when merged.
type Intel struct {
	Email        *string  `json:"email,omitempty"`
	Phone        *string  `json:"phone,omitempty"`
	LinkedIn     *string  `json:"linkedin,omitempty"`
	Instagram    *string  `json:"instagram,omitempty"`
	Twitter      *string  `json:"twitter,omitempty"`
	Description  *string  `json:"description,omitempty"`
	EmailSubject *string  `json:"email_subject,omitempty"`
	EmailDraft   *string  `json:"email_draft,omitempty"`
	Icebreaker   *string  `json:"icebreaker,omitempty"`
	Competitors  []string `json:"competitors,omitempty"`
	HealthScore  *int     `json:"health_score,omitempty"`
	IsVerified   *bool    `json:"is_verified,omitempty"`
}

// Merge returns a copy of l with every non-nil field of in applied on top.
func (l Lead) Merge(in Intel) Lead {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&l.Email, in.Email)
	set(&l.Phone, in.Phone)
	set(&l.LinkedIn, in.LinkedIn)
	set(&l.Instagram, in.Instagram)
	set(&l.Twitter, in.Twitter)
	set(&l.Description, in.Description)
	set(&l.EmailSubject, in.EmailSubject)
	set(&l.EmailDraft, in.EmailDraft)
	set(&l.Icebreaker, in.Icebreaker)
	if in.Competitors != nil {
		l.Competitors = append([]string(nil), in.Competitors...)
	}
	if in.HealthScore != nil {
		v := *in.HealthScore
		l.HealthScore = &v
	}
	if in.IsVerified != nil {
		v := *in.IsVerified
		l.IsVerified = &v
	}
	return l
}

// ClearPlaceholders blanks contact fields that still hold discovery-time
// placeholders.
func (l Lead) ClearPlaceholders() Lead {
	if l.Email == PlaceholderEmail {
		l.Email = ""
	}
	if l.Phone == PlaceholderPhone {
		l.Phone = ""
	}
	return l
}

// HasPlaceholders reports whether any contact field still holds a
// discovery-time placeholder.
func (l Lead) HasPlaceholders() bool {
	return l.Email == PlaceholderEmail || l.Phone == PlaceholderPhone
}

// Clone returns a deep copy of the lead.
func (l Lead) Clone() Lead {
	if l.Competitors != nil {
		l.Competitors = append([]string(nil), l.Competitors...)
	}
	if l.HealthScore != nil {
		v := *l.HealthScore
		l.HealthScore = &v
	}
	if l.IsVerified != nil {
		v := *l.IsVerified
		l.IsVerified = &v
	}
	return l
}

// PlausibleEmail reports whether s looks like an email address: a non-empty
// local part, an @, and a dotted domain.
func PlausibleEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
