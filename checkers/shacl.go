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

package checkers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/core"
	"github.com/odpch/pkgcheck/emit"
	"github.com/odpch/pkgcheck/rdf"
	"github.com/odpch/pkgcheck/shapes"
	"github.com/odpch/pkgcheck/stats"
)

// ShaclChecker validates each package's semantic graph against a constraint
// ruleset. The graph comes from the package's harvest source when one is
// configured, otherwise from the catalog's own RDF serialization endpoint;
// a package whose graph cannot be obtained either way is skipped, not
// failed.
type ShaclChecker struct {
	run           *core.RunContext
	client        *http.Client
	ruleset       *shapes.Ruleset
	importRuleset *shapes.Ruleset
	vocabularies  *rdf.Graph
	harvesterURLs map[string]string
	// harvest-source graphs by source id; nil records a failed fetch so it
	// is not repeated
	sources map[string]*rdf.Graph

	csv       *emit.ShaclWriter
	frequency *stats.Frequency
	rows      []stats.ContactRow

	// overridable by tests to count resolution calls
	resolve func(*core.Package) []core.Contact
}

func NewShaclChecker() *ShaclChecker {
	return &ShaclChecker{}
}

// loads the constraint rulesets and vocabulary graphs and opens the result
// sink. The main ruleset and the vocabularies are required: a load failure
// is fatal. The import-side ruleset is optional and its absence only costs
// that check pass.
func (c *ShaclChecker) Initialize(run *core.RunContext) error {
	c.run = run
	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.resolve == nil {
		c.resolve = run.ResolveContacts
	}
	c.harvesterURLs = config.ShaclChecker.Harvesters
	c.sources = make(map[string]*rdf.Graph)
	c.frequency = stats.NewFrequency()

	var err error
	if c.ruleset == nil {
		c.ruleset, err = shapes.LoadRuleset(config.ShaclChecker.Shapes)
		if err != nil {
			return fmt.Errorf("Couldn't load shapes from %s: %s",
				config.ShaclChecker.Shapes, err.Error())
		}
	}
	if c.importRuleset == nil && config.ShaclChecker.ImportShapes != "" {
		c.importRuleset, err = shapes.LoadRuleset(config.ShaclChecker.ImportShapes)
		if err != nil {
			run.LogAndEchoError(fmt.Sprintf(
				"Skipping import shapes %s: %s", config.ShaclChecker.ImportShapes, err.Error()))
			c.importRuleset = nil
		}
	}
	if c.vocabularies == nil {
		c.vocabularies, err = shapes.LoadVocabularies(config.ShaclChecker.Vocabularies)
		if err != nil {
			return fmt.Errorf("Couldn't load vocabularies: %s", err.Error())
		}
	}

	c.csv, err = emit.NewShaclWriter(
		filepath.Join(core.CsvDir(run.RunDir), config.ShaclChecker.Csvfile))
	return err
}

// validates one package's graph; structurally identical violations collapse
// before anything is emitted, and a package with no violations never has
// its contacts resolved
func (c *ShaclChecker) CheckPackage(pkg *core.Package) error {
	graph := c.datasetGraph(pkg)
	if graph == nil {
		return nil
	}

	_, violations := c.ruleset.Validate(graph, c.vocabularies)
	if c.importRuleset != nil {
		_, importViolations := c.importRuleset.Validate(graph, c.vocabularies)
		violations = append(violations, importViolations...)
	}
	violations = shapes.Dedup(violations)

	for _, violation := range violations {
		value := ""
		if violation.Value != (rdf.Term{}) {
			expanded, ok := graph.ExpandValue(violation.Value)
			if !ok {
				c.run.Logger.Error("couldn't expand violation value",
					"node", violation.FocusNode, "value", violation.Value.String())
			}
			value = expanded
		}
		result := core.ShaclResult{
			Node:     violation.FocusNode,
			Property: violation.Path,
			Value:    value,
			Msg:      violation.Message,
			Severity: violation.Severity,
		}
		c.run.LogAndEchoError(fmt.Sprintf(
			"Shaclchecker Error: node %s property %s msg %s",
			result.Node, result.Property, result.Msg))
		if err := c.WriteResult(pkg, result); err != nil {
			return err
		}
	}
	return nil
}

// obtains the package's semantic graph, preferring the configured harvest
// source and falling back to the catalog's serialization endpoint
func (c *ShaclChecker) datasetGraph(pkg *core.Package) *rdf.Graph {
	if sourceId := pkg.HarvestSourceId(); sourceId != "" {
		if url, configured := c.harvesterURLs[sourceId]; configured {
			if source := c.harvestSource(sourceId, url); source != nil {
				if graph := rdf.DatasetGraphFromSource(source, pkg.Identifier); graph != nil {
					return graph
				}
				c.run.Logger.Info("package not found in its harvest source",
					"package", pkg.Name, "identifier", pkg.Identifier,
					"harvest_source", sourceId)
			}
		}
	}

	rdfURL := core.DatasetRDFURL(c.run.SiteURL, pkg.Name)
	graph, err := rdf.Fetch(c.client, rdfURL)
	if err != nil {
		c.run.LogAndEchoError(fmt.Sprintf(
			"Skipping %s: couldn't fetch graph from %s: %s",
			pkg.Name, rdfURL, err.Error()))
		return nil
	}
	return graph
}

// fetches a harvest source's graph once per run; failures are cached so a
// dead source costs one request, not one per package
func (c *ShaclChecker) harvestSource(sourceId, url string) *rdf.Graph {
	if source, fetched := c.sources[sourceId]; fetched {
		return source
	}
	source, err := rdf.Fetch(c.client, url)
	if err != nil {
		c.run.LogAndEchoError(fmt.Sprintf(
			"Couldn't fetch harvest source %s from %s: %s", sourceId, url, err.Error()))
		source = nil
	}
	c.sources[sourceId] = source
	return source
}

// fans one violation out to the package's contacts
func (c *ShaclChecker) WriteResult(pkg *core.Package, finding core.Finding) error {
	result, ok := finding.(core.ShaclResult)
	if !ok {
		return fmt.Errorf("Unexpected finding type for shacl checker: %T", finding)
	}
	c.frequency.Count(fmt.Sprintf("%s: %s", result.Property, result.Msg))

	title := pkg.Title.InOneLanguage(pkg.Name)
	for _, contact := range c.resolve(pkg) {
		row := core.ShaclRow{
			ContactEmail: contact.Email,
			ContactName:  contact.Name,
			Organization: pkg.Organization.Name,
			PkgType:      pkg.PkgType,
			DatasetTitle: title,
			DatasetURL:   core.DatasetURL(c.run.SiteURL, pkg.Name),
			DatasetRDF:   core.DatasetRDFURL(c.run.SiteURL, pkg.Name),
			DatasetTTL:   core.DatasetTTLURL(c.run.SiteURL, pkg.Name),
			Node:         result.Node,
			Property:     result.Property,
			Value:        result.Value,
			Msg:          result.Msg,
			Severity:     result.Severity,
			Template:     core.TemplateShacl,
		}
		if err := c.csv.Write(row); err != nil {
			return err
		}
		body, err := emit.ShaclMessage(row)
		if err != nil {
			return err
		}
		err = c.run.Messages.Write(core.MessageRow{
			ContactEmail: contact.Email,
			ContactName:  contact.Name,
			PkgType:      pkg.PkgType,
			CheckerType:  core.ModeShacl,
			Msg:          body,
		})
		if err != nil {
			return err
		}
		c.rows = append(c.rows, stats.ContactRow{
			Organization: pkg.Organization.Name,
			PkgType:      pkg.PkgType,
			ContactEmail: contact.Email,
		})
	}
	return nil
}

// the number of result rows emitted so far
func (c *ShaclChecker) NumRows() int {
	return len(c.rows)
}

// writes the end-of-run statistics and closes the result sink. The
// statistics files are named after the configured result csv.
func (c *ShaclChecker) Finish() error {
	csvdir := core.CsvDir(c.run.RunDir)
	stem := strings.TrimSuffix(config.ShaclChecker.Csvfile,
		filepath.Ext(config.ShaclChecker.Csvfile))
	if err := c.frequency.WriteCSV(filepath.Join(csvdir, stem+"-frequency.csv")); err != nil {
		return err
	}
	contactStats := stats.AggregateContacts(c.rows)
	if err := stats.WriteContactStats(
		filepath.Join(csvdir, stem+"-contacts.csv"), contactStats); err != nil {
		return err
	}
	return c.csv.Close()
}
