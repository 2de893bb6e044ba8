package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileValidate(t *testing.T) {
	p := Profile{Name: "Deniz", Email: "deniz@example.com", WebhookURL: "https://n8n.example.com/webhook/abc"}
	assert.NoError(t, p.Validate())

	p.Email = "not-an-email"
	assert.Error(t, p.Validate())

	p = Profile{WebhookURL: "no scheme"}
	assert.Error(t, p.Validate())
}

func TestProfileMerge(t *testing.T) {
	base := Profile{Name: "Deniz", CompanyName: "DV", IsPro: true}
	out := base.Merge(Profile{CompanyName: "DeepVera", WebhookURL: "https://hook.example.com"})
	assert.Equal(t, "Deniz", out.Name)
	assert.Equal(t, "DeepVera", out.CompanyName)
	assert.Equal(t, "https://hook.example.com", out.WebhookURL)
	assert.True(t, out.IsPro)
}

func TestProfileMerge_EmptyOtherKeepsBase(t *testing.T) {
	base := Profile{Name: "Deniz", Email: "deniz@example.com"}
	assert.Equal(t, base, base.Merge(Profile{}))
}
