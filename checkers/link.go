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
	"path/filepath"
	"strings"
	"time"

	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/core"
	"github.com/odpch/pkgcheck/emit"
	"github.com/odpch/pkgcheck/probe"
	"github.com/odpch/pkgcheck/stats"
)

// the fixed vocabulary of link check categories; statistics and downstream
// reports key on these names, so they must not change
const (
	CategoryAccessURL            = "access_url"
	CategoryDownloadURL          = "download_url"
	CategoryLandingPageURL       = "landing_page_url"
	CategoryPublisherURL         = "publisher_url"
	CategoryRelationsURL         = "relations_url"
	CategoryQualifiedRelationURL = "qualified_relations_url"
	CategoryConformsToURL        = "conforms_to_url"
	CategoryDocumentationURL     = "documentation_url"
	CategoryAccessServiceURL     = "access_service_url"
)

var linkCategories = []string{
	CategoryAccessURL,
	CategoryDownloadURL,
	CategoryLandingPageURL,
	CategoryPublisherURL,
	CategoryRelationsURL,
	CategoryQualifiedRelationURL,
	CategoryConformsToURL,
	CategoryDocumentationURL,
	CategoryAccessServiceURL,
}

// LinkChecker probes every URL a package references and records one finding
// per unreachable URL. Reachable URLs leave no trace, and a package without
// findings never has its contacts resolved.
type LinkChecker struct {
	run       *core.RunContext
	prober    *probe.Prober
	csv       *emit.LinkWriter
	frequency *stats.Frequency
	rows      []stats.ContactRow

	// overridable by tests to count resolution calls
	resolve func(*core.Package) []core.Contact
}

func NewLinkChecker() *LinkChecker {
	return &LinkChecker{}
}

// brings up the checker's prober and result sink; the path and the probe
// timeout come from the linkchecker config section. Message rows go to
// the run's shared sink.
func (c *LinkChecker) Initialize(run *core.RunContext) error {
	c.run = run
	if c.prober == nil {
		c.prober = probe.New(time.Duration(config.LinkChecker.Timeout) * time.Second)
	}
	if c.resolve == nil {
		c.resolve = run.ResolveContacts
	}
	c.frequency = stats.NewFrequency(linkCategories...)

	var err error
	c.csv, err = emit.NewLinkWriter(
		filepath.Join(core.CsvDir(run.RunDir), config.LinkChecker.Csvfile))
	return err
}

// probes every URL the package references; findings accumulate and are
// written only if at least one URL turned out broken
func (c *LinkChecker) CheckPackage(pkg *core.Package) error {
	var results []core.CheckResult

	check := func(category, url, resourceId string) {
		if url == "" {
			return
		}
		if msg := c.prober.Probe(url); msg != "" {
			result := core.CheckResult{
				ResourceId: resourceId,
				Item:       url,
				Msg:        msg,
				TestTitle:  category,
			}
			c.run.LogAndEchoError(fmt.Sprintf(
				"Linkchecker Error: %s url %s msg %s", category, url, msg))
			results = append(results, result)
		}
	}

	check(CategoryLandingPageURL, pkg.URL, "")
	if publisher, err := core.DecodePublisher(pkg.Publisher); err != nil {
		// a decode failure means there is no publisher URL to check
		c.run.Logger.Error("publisher field could not be decoded",
			"package", pkg.Name, "error", err.Error())
	} else {
		check(CategoryPublisherURL, publisher.URL, "")
	}
	for _, relation := range pkg.Relations {
		check(CategoryRelationsURL, relation.URL, "")
	}
	for _, relation := range pkg.QualifiedRelations {
		check(CategoryQualifiedRelationURL, relation.Relation, "")
	}
	for _, url := range pkg.ConformsTo {
		check(CategoryConformsToURL, url, "")
	}
	for _, url := range pkg.Documentation {
		check(CategoryDocumentationURL, url, "")
	}
	for _, resource := range pkg.Resources {
		c.run.Logger.Info("checking resource",
			"resource", resource.DisplayName.InOneLanguage(resource.Id))
		check(CategoryAccessURL, resource.URL, resource.Id)
		if resource.DownloadURL != resource.URL {
			check(CategoryDownloadURL, resource.DownloadURL, resource.Id)
		}
		for _, url := range resource.Documentation {
			check(CategoryDocumentationURL, url, resource.Id)
		}
		for _, url := range resource.AccessServices {
			check(CategoryAccessServiceURL, url, resource.Id)
		}
	}

	// packages with no broken links emit nothing at all
	for _, result := range results {
		if err := c.WriteResult(pkg, result); err != nil {
			return err
		}
	}
	return nil
}

// fans one finding out to the package's contacts: one result row and one
// message row per contact
func (c *LinkChecker) WriteResult(pkg *core.Package, finding core.Finding) error {
	result, ok := finding.(core.CheckResult)
	if !ok {
		return fmt.Errorf("Unexpected finding type for link checker: %T", finding)
	}
	c.frequency.Count(result.TestTitle)

	title := pkg.Title.InOneLanguage(pkg.Name)
	datasetURL := core.DatasetURL(c.run.SiteURL, pkg.Name)
	resourceURL := ""
	if result.ResourceId != "" {
		resourceURL = core.ResourceURL(c.run.SiteURL, pkg.Name, result.ResourceId)
	}

	for _, contact := range c.resolve(pkg) {
		row := core.LinkRow{
			ContactEmail: contact.Email,
			ContactName:  contact.Name,
			Organization: pkg.Organization.Name,
			PkgType:      pkg.PkgType,
			TestURL:      result.Item,
			ErrorMessage: result.Msg,
			TestTitle:    result.TestTitle,
			DatasetTitle: title,
			DatasetURL:   datasetURL,
			ResourceURL:  resourceURL,
			Template:     core.TemplateLink,
		}
		if err := c.csv.Write(row); err != nil {
			return err
		}
		body, err := emit.LinkMessage(row)
		if err != nil {
			return err
		}
		err = c.run.Messages.Write(core.MessageRow{
			ContactEmail: contact.Email,
			ContactName:  contact.Name,
			PkgType:      pkg.PkgType,
			CheckerType:  core.ModeLink,
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
func (c *LinkChecker) NumRows() int {
	return len(c.rows)
}

// writes the end-of-run statistics and closes the result sink. The
// statistics files are named after the configured result csv.
func (c *LinkChecker) Finish() error {
	csvdir := core.CsvDir(c.run.RunDir)
	stem := strings.TrimSuffix(config.LinkChecker.Csvfile,
		filepath.Ext(config.LinkChecker.Csvfile))
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
