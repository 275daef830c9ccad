package core

// templates selecting the per-error message body built for a finding
const (
	TemplateLink  = "link"
	TemplateShacl = "shacl"
)

// one failed link check for a package, produced only on failure; reachable
// URLs leave no trace
type CheckResult struct {
	// the id of the resource the URL belongs to, if any
	ResourceId string
	// the URL that was tested
	Item string
	// a human-readable description of the failure
	Msg string
	// the check category, from the fixed vocabulary in checkers/link.go
	TestTitle string
}

func (r CheckResult) Message() string { return r.Msg }

// one constraint violation reported by the shape validation engine
type ShaclResult struct {
	// the focus node the violation was reported for
	Node string
	// the violated property as a qualified name
	Property string
	// the offending value (literal, or a resolved nested value)
	Value string
	// the human message attached to the constraint
	Msg string
	// the severity reported by the engine
	Severity string
}

func (r ShaclResult) Message() string { return r.Msg }

// one emitted link-checker row: a CheckResult attributed to one contact,
// carrying every field downstream grouping depends on
type LinkRow struct {
	ContactEmail string
	ContactName  string
	Organization string
	PkgType      string
	TestURL      string
	ErrorMessage string
	TestTitle    string
	DatasetTitle string
	DatasetURL   string
	ResourceURL  string
	Template     string
}

// one emitted shape-checker row: a ShaclResult attributed to one contact
type ShaclRow struct {
	ContactEmail string
	ContactName  string
	Organization string
	PkgType      string
	DatasetTitle string
	DatasetURL   string
	DatasetRDF   string
	DatasetTTL   string
	Node         string
	Property     string
	Value        string
	Msg          string
	Severity     string
	Template     string
}

// one row of the per-contact message file consumed by the mail builder
type MessageRow struct {
	ContactEmail string
	ContactName  string
	PkgType      string
	CheckerType  string
	Msg          string
}
