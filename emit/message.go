package emit

import (
	"strings"
	"text/template"

	"github.com/odpch/pkgcheck/core"
)

// per-error message bodies, one template per checker; selected by the
// finding's Template field
var errorTemplates = template.Must(template.New("errors").Parse(`
{{- define "link" -}}
Dataset: {{.DatasetTitle}} ({{.DatasetURL}})
{{- if .ResourceURL}}
Resource: {{.ResourceURL}}
{{- end}}
Check: {{.TestTitle}}
URL: {{.TestURL}}
Error: {{.ErrorMessage}}
{{- end -}}

{{- define "shacl" -}}
Dataset: {{.DatasetTitle}} ({{.DatasetURL}})
Serialized as: {{.DatasetRDF}} / {{.DatasetTTL}}
Node: {{.Node}}
Property: {{.Property}}
{{- if .Value}}
Value: {{.Value}}
{{- end}}
Severity: {{.Severity}}
Error: {{.Msg}}
{{- end -}}
`))

// renders the message body for one failed link check
func LinkMessage(row core.LinkRow) (string, error) {
	var body strings.Builder
	if err := errorTemplates.ExecuteTemplate(&body, core.TemplateLink, row); err != nil {
		return "", err
	}
	return body.String(), nil
}

// renders the message body for one constraint violation
func ShaclMessage(row core.ShaclRow) (string, error) {
	var body strings.Builder
	if err := errorTemplates.ExecuteTemplate(&body, core.TemplateShacl, row); err != nil {
		return "", err
	}
	return body.String(), nil
}
