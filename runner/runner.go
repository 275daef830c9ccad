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

// package runner orchestrates one checker run: it selects the packages in
// scope, builds the contact table, feeds each package through the active
// checkers with per-package failure isolation, and records the finished run
// in the journal with a manifest of its output files.
package runner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odpch/pkgcheck/catalog"
	"github.com/odpch/pkgcheck/checkers"
	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/contacts"
	"github.com/odpch/pkgcheck/core"
	"github.com/odpch/pkgcheck/emit"
	"github.com/odpch/pkgcheck/journal"
	"github.com/odpch/pkgcheck/manifest"
)

// the scope of a run: exactly one package, one organization's packages, or
// the whole catalog (optionally truncated)
type Options struct {
	Pkg   string
	Org   string
	Limit int
}

// what the runner needs from the catalog
type Catalog interface {
	contacts.HierarchySource
	PackageShow(id string) (*core.Package, error)
	PackageList() ([]string, error)
	PackageSearch(fq, field string) ([]string, error)
	GeocatPackageIds() ([]string, error)
}

// checkers that can report how many rows they emitted
type rowCounter interface {
	NumRows() int
}

// A Runner executes one checker run over the configured catalog.
type Runner struct {
	catalog Catalog
	options Options
	echo    io.Writer
}

func New(catalog Catalog, options Options, echo io.Writer) *Runner {
	return &Runner{catalog: catalog, options: options, echo: echo}
}

// Execute performs the run: one pass over every package in scope, per
// package and per checker, followed by the end-of-run statistics, the
// output manifest, and a journal record.
func (r *Runner) Execute() error {
	startTime := time.Now()
	runName := r.runName(startTime)
	runDir := filepath.Join(config.Output.Directory, runName)
	for _, dir := range []string{core.CsvDir(runDir), core.MailDir(runDir), core.LogDir(runDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	logger, logFile, err := openLogger(runDir)
	if err != nil {
		return err
	}
	defer logFile.Close()

	run := &core.RunContext{
		Logger:  logger,
		Echo:    r.echo,
		SiteURL: config.Site.URL,
		RunDir:  runDir,
		Default: core.Contact{
			Name:  config.Contacts.DefaultName,
			Email: config.Contacts.DefaultEmail,
		},
	}
	run.LogAndEcho(fmt.Sprintf("Starting run %s", runName))

	table, err := contacts.BuildTable(r.catalog, config.Contacts.Csvfile,
		config.Contacts.DefaultEmail, run)
	if err != nil {
		return err
	}
	run.Contacts = table

	// one message file for the whole run; the active checkers share it
	messages, err := emit.NewMessageWriter(
		filepath.Join(core.MailDir(runDir), config.Messages.Msgfile))
	if err != nil {
		return err
	}
	run.Messages = messages

	var active []core.Checker
	for _, kind := range config.Checkers.Active {
		checker, err := checkers.NewChecker(kind)
		if err != nil {
			return err
		}
		if err := checker.Initialize(run); err != nil {
			return err
		}
		active = append(active, checker)
	}

	ids, err := r.packageIds()
	if err != nil {
		return err
	}
	geocatIds, err := r.catalog.GeocatPackageIds()
	if err != nil {
		run.LogAndEchoError(fmt.Sprintf("Couldn't discover geocat packages: %s", err.Error()))
	}
	geocat := make(map[string]bool)
	for _, id := range geocatIds {
		geocat[id] = true
	}
	run.LogAndEcho(fmt.Sprintf("Checking %d packages with checkers: %s",
		len(ids), strings.Join(config.Checkers.Active, ", ")))

	failed := false
	for i, id := range ids {
		run.LogAndEcho(fmt.Sprintf("(%d/%d) DATASET %s", i+1, len(ids), id))
		r.checkOne(run, active, id, geocat)
	}
	for _, checker := range active {
		if err := checker.Finish(); err != nil {
			run.LogAndEchoError(fmt.Sprintf("Couldn't finish checker: %s", err.Error()))
			failed = true
		}
	}
	if err := messages.Close(); err != nil {
		run.LogAndEchoError(fmt.Sprintf("Couldn't close message file: %s", err.Error()))
		failed = true
	}

	numRows := 0
	for _, checker := range active {
		if counter, ok := checker.(rowCounter); ok {
			numRows += counter.NumRows()
		}
	}

	if _, err := manifest.Write(runDir, runName, r.mode()); err != nil {
		run.LogAndEchoError(fmt.Sprintf("Couldn't write run manifest: %s", err.Error()))
	}
	if err := r.recordRun(runName, startTime, len(ids), numRows, failed); err != nil {
		run.LogAndEchoError(fmt.Sprintf("Couldn't record run in journal: %s", err.Error()))
	}
	run.LogAndEcho(fmt.Sprintf("Finished run %s: %d packages, %d result rows",
		runName, len(ids), numRows))
	return nil
}

// checks one package with every active checker; a failure (or panic) in one
// package never aborts the run
func (r *Runner) checkOne(run *core.RunContext, active []core.Checker,
	id string, geocat map[string]bool) {
	defer func() {
		if p := recover(); p != nil {
			run.LogAndEchoError(fmt.Sprintf("check_package failed for %s: %v", id, p))
		}
	}()

	pkg, err := r.catalog.PackageShow(id)
	if err != nil {
		var notFound catalog.NotFoundError
		if errors.As(err, &notFound) {
			run.LogAndEchoError(notFound.Error())
		} else {
			run.LogAndEchoError(fmt.Sprintf("Couldn't fetch %s: %s", id, err.Error()))
		}
		return
	}
	if pkg.Type != "dataset" {
		run.Logger.Info("skipping non-dataset package", "package", id, "type", pkg.Type)
		return
	}

	r.enrich(pkg, geocat, run.Contacts)
	for _, checker := range active {
		if err := checker.CheckPackage(pkg); err != nil {
			run.LogAndEchoError(fmt.Sprintf("check_package failed for %s: %s", id, err.Error()))
		}
	}
}

// classifies the package and redirects geocat packages to the admin pool
// that owns their harvest pipeline
func (r *Runner) enrich(pkg *core.Package, geocat map[string]bool, table core.ContactTable) {
	if geocat[pkg.Name] {
		pkg.PkgType = core.GEOCAT
		key := core.ContactKey{Organization: pkg.Organization.Name, PkgType: core.GEOCAT}
		if emails, found := table[key]; found {
			pkg.SendTo = emails
		}
	} else {
		pkg.PkgType = core.DCAT
	}
}

// resolves the run's scope to a list of package ids
func (r *Runner) packageIds() ([]string, error) {
	if r.options.Pkg != "" {
		return []string{r.options.Pkg}, nil
	}
	if r.options.Org != "" {
		return r.catalog.PackageSearch("organization:"+r.options.Org, "name")
	}
	names, err := r.catalog.PackageList()
	if err != nil {
		return nil, err
	}
	public := make([]string, 0, len(names))
	for _, name := range names {
		// names with a double-underscore prefix are internal to the catalog
		if !strings.HasPrefix(name, "__") {
			public = append(public, name)
		}
	}
	if r.options.Limit > 0 && r.options.Limit < len(public) {
		public = public[:r.options.Limit]
	}
	return public, nil
}

// builds the run's name from its start time and scope
func (r *Runner) runName(startTime time.Time) string {
	parts := []string{startTime.Format("2006-01-02-1504"), r.mode()}
	if r.options.Org != "" {
		parts = append(parts, "org-"+truncate(r.options.Org, 10))
	}
	if r.options.Pkg != "" {
		parts = append(parts, "pkg-"+truncate(r.options.Pkg, 10))
	}
	if r.options.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit-%d", r.options.Limit))
	}
	return strings.Join(parts, "-")
}

func (r *Runner) mode() string {
	return strings.Join(config.Checkers.Active, "-")
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// records the finished run in the journal, if one is configured
func (r *Runner) recordRun(runName string, startTime time.Time,
	numPackages, numRows int, failed bool) error {
	if config.Output.Journal == "" {
		return nil
	}
	j, err := journal.Open(config.Output.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	status := "succeeded"
	if failed {
		status = "failed"
	}
	return j.RecordRun(journal.Record{
		Id:          uuid.New(),
		Name:        runName,
		Mode:        r.mode(),
		StartTime:   startTime,
		StopTime:    time.Now(),
		NumPackages: numPackages,
		NumRows:     numRows,
		Status:      status,
	})
}

// opens the run's structured log under logs/, at the configured level
func openLogger(runDir string) (*slog.Logger, *os.File, error) {
	file, err := os.Create(filepath.Join(core.LogDir(runDir), "run.log"))
	if err != nil {
		return nil, nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	return logger, file, nil
}
