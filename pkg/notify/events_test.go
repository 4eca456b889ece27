package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPriority(t *testing.T) {
	tests := map[string]Priority{
		"critical":      PriorityUrgent,
		"CRITICAL":      PriorityUrgent,
		"urgent":        PriorityUrgent,
		"high":          PriorityHigh,
		"medium":        PriorityMedium,
		"low":           PriorityLow,
		"unknown-value": PriorityLow,
		"":              PriorityLow,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, MapPriority(in))
		})
	}
}

func TestMapImpactLevel(t *testing.T) {
	assert.Equal(t, PriorityUrgent, MapImpactLevel("Critical"))
	assert.Equal(t, PriorityHigh, MapImpactLevel("high"))
	assert.Equal(t, PriorityMedium, MapImpactLevel("medium"))
	assert.Equal(t, PriorityLow, MapImpactLevel("urgent"), "urgent is not an impact level")
	assert.Equal(t, PriorityLow, MapImpactLevel("negligible"))
}

func TestTemplate_Render(t *testing.T) {
	tpl := Template{
		Subject: "Update: {{title}}",
		HTML:    "<p>{{summary}}</p><a href=\"{{url}}\">x</a>",
		Text:    "{{title}} from {{source}}",
	}

	got := tpl.Render(map[string]string{"title": "MDR", "summary": "<b>raw</b>", "url": "https://x/1"})
	assert.Equal(t, "Update: MDR", got.Subject)
	assert.Equal(t, "<p><b>raw</b></p><a href=\"https://x/1\">x</a>", got.HTML, "values are substituted without escaping")
	assert.Equal(t, "MDR from {{source}}", got.Text, "missing variables stay literal")
}

func TestDefaultTemplates_CoverEveryCategory(t *testing.T) {
	templates := DefaultTemplates()
	for _, c := range Categories() {
		tpl, ok := templates[c]
		require.True(t, ok, "category %s has no template", c)
		assert.NotEmpty(t, tpl.Subject)
		assert.NotEmpty(t, tpl.HTML)
		assert.NotEmpty(t, tpl.Text)
	}

	templates[CategorySystem] = Template{}
	assert.NotEmpty(t, DefaultTemplates()[CategorySystem].Subject, "callers get a copy")
}

func TestNotifyRegulatoryUpdate(t *testing.T) {
	f := newFixture(t)
	update := RegulatoryUpdate{
		ID:           "ru-42",
		Title:        "FDA cybersecurity guidance",
		Summary:      "Premarket cybersecurity expectations.",
		SourceID:     "fda",
		Jurisdiction: "US",
		Priority:     "critical",
	}

	res := f.disp.NotifyRegulatoryUpdate(context.Background(), update, []string{"u-1", "u-2"}, "t-1")
	assert.Equal(t, BulkResult{Success: 2}, res)

	stored := f.stored(t, "u-1")
	require.Len(t, stored, 1)
	n := stored[0]
	assert.Equal(t, PriorityUrgent, n.Priority)
	assert.Equal(t, "Premarket cybersecurity expectations.", n.Body, "summary is used when description is empty")
	assert.Equal(t, "ru-42", n.Payload["updateId"])
	assert.Equal(t, "US", n.Payload["region"])

	require.Equal(t, 2, f.email.count())
	msg := f.email.sent[0].msg
	assert.Equal(t, "New regulatory update: FDA cybersecurity guidance", msg.Subject)
	assert.Contains(t, msg.Text, "Link: https://app.helix.example/regulatory-updates/ru-42")
	assert.Contains(t, msg.Text, "Priority: critical")
	assert.NotContains(t, msg.HTML, "{{")
}

func TestNotifyLegalCase(t *testing.T) {
	f := newFixture(t)
	lc := LegalCase{
		ID:          "lc-7",
		Title:       "Smith v. DeviceCo",
		Summary:     "Liability for software defects.",
		Court:       "9th Cir.",
		ImpactLevel: "high",
	}

	res := f.disp.NotifyLegalCase(context.Background(), lc, []string{"u-1"}, "t-1")
	assert.Equal(t, BulkResult{Success: 1}, res)

	stored := f.stored(t, "u-1")
	require.Len(t, stored, 1)
	assert.Equal(t, PriorityHigh, stored[0].Priority)
	assert.Equal(t, "lc-7", stored[0].Payload["caseId"])

	require.Equal(t, 1, f.email.count())
	msg := f.email.sent[0].msg
	assert.Contains(t, msg.Text, "https://app.helix.example/legal-cases/lc-7")
	assert.Contains(t, msg.Text, "Decision date: \n", "empty values are substituted, not left as placeholders")
}

func TestNotifySecurityAlert(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SavePreferences(context.Background(), systemRecipient, Preferences{
		Email: true, Frequency: FrequencyImmediate, Categories: []Category{CategoryNewsletter},
	}))

	ok, err := f.disp.NotifySecurityAlert(context.Background(), SecurityAlert{
		Title:   "Repeated failed logins",
		Message: "Five failed attempts in one minute.",
	}, "t-1")
	require.NoError(t, err)
	assert.True(t, ok)

	stored := f.stored(t, systemRecipient)
	require.Len(t, stored, 1)
	assert.Equal(t, PriorityUrgent, stored[0].Priority)
	assert.Equal(t, CategorySecurity, stored[0].Category)

	require.Equal(t, 1, f.email.count(), "urgent alerts bypass the category filter")
	msg := f.email.sent[0].msg
	assert.Equal(t, "Security alert: Repeated failed logins", msg.Subject)
	assert.Contains(t, msg.Text, "IP address: unknown")
	assert.Contains(t, msg.Text, "User agent: unknown")
	assert.Contains(t, msg.Text, "Time: 2026-04-02T08:00:00.000Z")
}

func TestNotifySecurityAlert_NamedUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.disp.NotifySecurityAlert(context.Background(), SecurityAlert{
		Title: "New device", Message: "Login from a new device.", UserID: "u-9", IPAddress: "203.0.113.7",
	}, "t-1")
	require.NoError(t, err)

	assert.Len(t, f.stored(t, "u-9"), 1)
	assert.Contains(t, f.email.sent[0].msg.HTML, "203.0.113.7")
}

func TestLink(t *testing.T) {
	d := NewDispatcher(NewMemoryStore(), nil, nil, Config{FrontendURL: "https://app.example/base/"})
	assert.Equal(t, "https://app.example/base/legal-cases/a%20b", d.link("legal-cases", "a b"))

	d = NewDispatcher(NewMemoryStore(), nil, nil, Config{})
	assert.Equal(t, "regulatory-updates/1", d.link("regulatory-updates", "1"))
}
