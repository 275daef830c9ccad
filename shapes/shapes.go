// Copyright (c) 2024 The Open Data Package Checker Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// This package evaluates a dataset graph against a shape ruleset and
// reports constraint violations. Consumers only rely on the violation
// contract (focus node, result path, value, message, severity), not on
// the rule-evaluation internals, so the ruleset format is a plain YAML
// resource rather than a shape graph.
package shapes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odpch/pkgcheck/rdf"
)

// severity levels carried by shapes; Violation is the default
const (
	SeverityViolation = "Violation"
	SeverityWarning   = "Warning"
	SeverityInfo      = "Info"
)

// one declarative constraint on a property of a target class
type Constraint struct {
	// the class whose instances this constraint targets, as a qualified
	// name ("dcat:Dataset")
	TargetClass string `yaml:"target_class"`
	// the constrained property, as a qualified name ("dct:title")
	Property string `yaml:"property"`
	// the human message attached to reported violations
	Message string `yaml:"message"`
	// the severity attached to reported violations (default "Violation")
	Severity string `yaml:"severity"`

	// facets; a constraint must carry at least one
	MinCount     *int     `yaml:"min_count"`
	MaxCount     *int     `yaml:"max_count"`
	NodeKind     string   `yaml:"node_kind"` // "IRI" or "Literal"
	Datatype     string   `yaml:"datatype"`
	In           []string `yaml:"in"`
	InVocabulary string   `yaml:"in_vocabulary"` // a concept scheme IRI

	// resolved IRIs, filled in during loading
	targetClassIRI string
	propertyIRI    string
	datatypeIRI    string
}

// a shape ruleset, loaded once at checker construction time
type Ruleset struct {
	Shapes []Constraint `yaml:"shapes"`
}

// one reported constraint violation
type Violation struct {
	// the node the violation was reported for
	FocusNode string
	// the violated property as a qualified name
	Path string
	// the offending value; zero for cardinality violations
	Value rdf.Term
	// the constraint's human message
	Message string
	// the constraint's severity
	Severity string
}

// LoadRuleset reads and validates a YAML shape ruleset. A ruleset that
// cannot be loaded is a fatal configuration error for the checker that
// requires it.
func LoadRuleset(path string) (*Ruleset, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRuleset(bytes)
}

// ParseRuleset parses a YAML shape ruleset from bytes.
func ParseRuleset(bytes []byte) (*Ruleset, error) {
	var ruleset Ruleset
	err := yaml.Unmarshal(bytes, &ruleset)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse shape ruleset: %s", err.Error())
	}
	if len(ruleset.Shapes) == 0 {
		return nil, fmt.Errorf("shape ruleset contains no shapes")
	}
	for i := range ruleset.Shapes {
		if err := ruleset.Shapes[i].resolve(); err != nil {
			return nil, fmt.Errorf("shape %d: %s", i+1, err.Error())
		}
	}
	return &ruleset, nil
}

// resolves a constraint's qualified names and checks its facets
func (c *Constraint) resolve() error {
	var ok bool
	if c.targetClassIRI, ok = rdf.ExpandQName(c.TargetClass); !ok {
		return fmt.Errorf("invalid target class %q", c.TargetClass)
	}
	if c.propertyIRI, ok = rdf.ExpandQName(c.Property); !ok {
		return fmt.Errorf("invalid property %q", c.Property)
	}
	if c.Datatype != "" {
		if c.datatypeIRI, ok = rdf.ExpandQName(c.Datatype); !ok {
			return fmt.Errorf("invalid datatype %q", c.Datatype)
		}
	}
	switch c.NodeKind {
	case "", "IRI", "Literal":
	default:
		return fmt.Errorf("invalid node kind %q (must be IRI or Literal)", c.NodeKind)
	}
	if c.MinCount == nil && c.MaxCount == nil && c.NodeKind == "" &&
		c.Datatype == "" && len(c.In) == 0 && c.InVocabulary == "" {
		return fmt.Errorf("constraint on %s carries no facets", c.Property)
	}
	if c.Severity == "" {
		c.Severity = SeverityViolation
	}
	if c.Message == "" {
		c.Message = fmt.Sprintf("Value does not conform to the constraints on %s", c.Property)
	}
	return nil
}

// Validate evaluates the ruleset against a dataset graph, using the given
// controlled-vocabulary graph for membership facets (it may be nil, in
// which case membership facets always fail closed with a violation).
// It returns whether the graph conforms, plus the violation list.
func (r *Ruleset) Validate(data, vocabularies *rdf.Graph) (bool, []Violation) {
	var violations []Violation
	for i := range r.Shapes {
		constraint := &r.Shapes[i]
		targets := data.SubjectsWith(rdf.RDFType, rdf.NewIRI(constraint.targetClassIRI))
		for _, target := range targets {
			violations = append(violations, constraint.check(data, vocabularies, target)...)
		}
	}
	return len(violations) == 0, violations
}

// checks one focus node against one constraint
func (c *Constraint) check(data, vocabularies *rdf.Graph, focus rdf.Term) []Violation {
	var violations []Violation
	report := func(value rdf.Term) {
		violations = append(violations, Violation{
			FocusNode: focus.String(),
			Path:      rdf.QName(c.propertyIRI),
			Value:     value,
			Message:   c.Message,
			Severity:  c.Severity,
		})
	}

	values := data.Objects(focus, rdf.NewIRI(c.propertyIRI))
	if c.MinCount != nil && len(values) < *c.MinCount {
		report(rdf.Term{})
		return violations
	}
	if c.MaxCount != nil && len(values) > *c.MaxCount {
		report(values[*c.MaxCount])
	}

	for _, value := range values {
		switch {
		case c.NodeKind == "IRI" && value.Kind != rdf.IRI:
			report(value)
		case c.NodeKind == "Literal" && value.Kind != rdf.Literal:
			report(value)
		case c.datatypeIRI != "" && value.Datatype != c.datatypeIRI:
			report(value)
		case len(c.In) > 0 && !contains(c.In, value.Value):
			report(value)
		case c.InVocabulary != "" && !inVocabulary(vocabularies, value, c.InVocabulary):
			report(value)
		}
	}
	return violations
}

func contains(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}

// reports whether a value is a member of the given concept scheme in the
// vocabulary graph; membership means the value appears as a subject with
// skos:inScheme pointing at the scheme, or carries rdf:type skos:Concept
// when the scheme matches the value's namespace
func inVocabulary(vocabularies *rdf.Graph, value rdf.Term, scheme string) bool {
	if vocabularies == nil || value.Kind != rdf.IRI {
		return false
	}
	for _, object := range vocabularies.Objects(value, rdf.SKOSInScheme) {
		if object.Value == scheme {
			return true
		}
	}
	for _, object := range vocabularies.Objects(value, rdf.RDFType) {
		if object.Value == rdf.SKOSNS+"Concept" && hasPrefix(value.Value, scheme) {
			return true
		}
	}
	return false
}

func hasPrefix(value, prefix string) bool {
	return len(value) >= len(prefix) && value[:len(prefix)] == prefix
}

// Dedup collapses structurally identical violations (same focus node,
// path, value, message, and severity) into one, keeping first-occurrence
// order. Deduplication is idempotent.
func Dedup(violations []Violation) []Violation {
	seen := make(map[Violation]bool)
	deduped := make([]Violation, 0, len(violations))
	for _, violation := range violations {
		if !seen[violation] {
			seen[violation] = true
			deduped = append(deduped, violation)
		}
	}
	return deduped
}

// LoadVocabularies reads one or more RDF/XML controlled-vocabulary
// resources into a single merged graph.
func LoadVocabularies(paths []string) (*rdf.Graph, error) {
	merged := rdf.NewGraph()
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		graph, err := rdf.Decode(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("vocabulary %s: %s", path, err.Error())
		}
		for _, triple := range graph.Triples() {
			merged.Add(triple)
		}
	}
	return merged, nil
}
