package notify

import (
	"io"
	"maps"

	"github.com/valyala/fasttemplate"
)

const (
	tagStart = "{{"
	tagEnd   = "}}"
)

// Template is the subject and bodies used for one category.
type Template struct {
	Subject string
	HTML    string
	Text    string
}

// Rendered is a template with its variables substituted.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Render substitutes {{name}} placeholders from vars. Placeholders with no
// matching variable are left in the output unchanged.
func (t Template) Render(vars map[string]string) Rendered {
	return Rendered{
		Subject: substitute(t.Subject, vars),
		HTML:    substitute(t.HTML, vars),
		Text:    substitute(t.Text, vars),
	}
}

func substitute(tpl string, vars map[string]string) string {
	return fasttemplate.ExecuteFuncString(tpl, tagStart, tagEnd, func(w io.Writer, tag string) (int, error) {
		if v, ok := vars[tag]; ok {
			return w.Write([]byte(v))
		}
		return w.Write([]byte(tagStart + tag + tagEnd))
	})
}

// Templates maps each category to its template.
type Templates map[Category]Template

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() Templates {
	return maps.Clone(defaultTemplates)
}

var defaultTemplates = Templates{
	CategoryRegulatoryUpdate: {
		Subject: "New regulatory update: {{title}}",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb;">New regulatory update</h2>
  <h3>{{title}}</h3>
  <p><strong>Source:</strong> {{source}}</p>
  <p><strong>Region:</strong> {{region}}</p>
  <p><strong>Priority:</strong> {{priority}}</p>
  <p>{{summary}}</p>
  <a href="{{url}}">View update</a>
</div>`,
		Text: `New regulatory update: {{title}}

Source: {{source}}
Region: {{region}}
Priority: {{priority}}

{{summary}}

Link: {{url}}`,
	},
	CategoryLegalCase: {
		Subject: "New legal case: {{title}}",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #dc2626;">New legal case</h2>
  <h3>{{title}}</h3>
  <p><strong>Court:</strong> {{court}}</p>
  <p><strong>Jurisdiction:</strong> {{jurisdiction}}</p>
  <p><strong>Decision date:</strong> {{decisionDate}}</p>
  <p><strong>Impact level:</strong> {{impactLevel}}</p>
  <p>{{summary}}</p>
  <a href="{{url}}">View case</a>
</div>`,
		Text: `New legal case: {{title}}

Court: {{court}}
Jurisdiction: {{jurisdiction}}
Decision date: {{decisionDate}}
Impact level: {{impactLevel}}

{{summary}}

Link: {{url}}`,
	},
	CategorySecurity: {
		Subject: "Security alert: {{title}}",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; border: 2px solid #dc2626; padding: 20px;">
  <h2 style="color: #dc2626;">SECURITY ALERT</h2>
  <h3>{{title}}</h3>
  <p><strong>Time:</strong> {{timestamp}}</p>
  <p><strong>IP address:</strong> {{ipAddress}}</p>
  <p><strong>User agent:</strong> {{userAgent}}</p>
  <p>{{message}}</p>
  <p style="color: #dc2626; font-weight: bold;">Please review your security settings immediately.</p>
</div>`,
		Text: `SECURITY ALERT: {{title}}

Time: {{timestamp}}
IP address: {{ipAddress}}
User agent: {{userAgent}}

{{message}}

Please review your security settings immediately.`,
	},
	CategorySystem: {
		Subject: "{{title}}",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h3>{{title}}</h3>
  <p>{{message}}</p>
</div>`,
		Text: `{{title}}

{{message}}`,
	},
	CategoryNewsletter: {
		Subject: "Newsletter: {{title}}",
		HTML: `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{title}}</h2>
  <p>{{message}}</p>
  <a href="{{url}}">Read online</a>
</div>`,
		Text: `{{title}}

{{message}}

Read online: {{url}}`,
	},
}
