package model

import (
	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

var validate = validator.New()

// Profile is the operator's identity. Enrichment uses it to personalise
// outreach text and the automation webhook sends it as the lead's sender.
type Profile struct {
	Name               string `json:"name" yaml:"name" mapstructure:"name"`
	Email              string `json:"email,omitempty" yaml:"email" mapstructure:"email" validate:"omitempty,email"`
	CompanyName        string `json:"company_name,omitempty" yaml:"company_name" mapstructure:"company_name"`
	CompanyWebsite     string `json:"company_website,omitempty" yaml:"company_website" mapstructure:"company_website" validate:"omitempty,url"`
	CompanyDescription string `json:"company_description,omitempty" yaml:"company_description" mapstructure:"company_description"`
	FixedPhone         string `json:"fixed_phone,omitempty" yaml:"fixed_phone" mapstructure:"fixed_phone"`
	MobilePhone        string `json:"mobile_phone,omitempty" yaml:"mobile_phone" mapstructure:"mobile_phone"`
	Address            string `json:"address,omitempty" yaml:"address" mapstructure:"address"`
	AuthorizedPerson   string `json:"authorized_person,omitempty" yaml:"authorized_person" mapstructure:"authorized_person"`
	WebhookURL         string `json:"webhook_url,omitempty" yaml:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`
	IsPro              bool   `json:"is_pro" yaml:"is_pro" mapstructure:"is_pro"`
}

// Validate checks the profile's email and URL fields.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return eris.Wrap(err, "profile: validate")
	}
	return nil
}

// Merge returns p with every non-empty field of other applied on top.
// IsPro is only ever raised, never cleared.
func (p Profile) Merge(other Profile) Profile {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&p.Name, other.Name)
	set(&p.Email, other.Email)
	set(&p.CompanyName, other.CompanyName)
	set(&p.CompanyWebsite, other.CompanyWebsite)
	set(&p.CompanyDescription, other.CompanyDescription)
	set(&p.FixedPhone, other.FixedPhone)
	set(&p.MobilePhone, other.MobilePhone)
	set(&p.Address, other.Address)
	set(&p.AuthorizedPerson, other.AuthorizedPerson)
	set(&p.WebhookURL, other.WebhookURL)
	if other.IsPro {
		p.IsPro = true
	}
	return p
}
