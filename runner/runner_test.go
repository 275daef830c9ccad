package runner

// Tests for the run orchestrator, driven by a stub catalog.

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/odpch/pkgcheck/catalog"
	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/core"
	"github.com/odpch/pkgcheck/journal"
)

// a stub catalog serving a fixed set of packages
type stubCatalog struct {
	packages map[string]*core.Package
	geocat   []string
}

func (s *stubCatalog) PackageShow(id string) (*core.Package, error) {
	pkg, found := s.packages[id]
	if !found {
		return nil, catalog.NotFoundError{Id: id}
	}
	return pkg, nil
}

func (s *stubCatalog) PackageList() ([]string, error) {
	names := make([]string, 0, len(s.packages))
	for name := range s.packages {
		names = append(names, name)
	}
	return names, nil
}

func (s *stubCatalog) PackageSearch(fq, field string) ([]string, error) {
	return nil, nil
}

func (s *stubCatalog) GeocatPackageIds() ([]string, error) {
	return s.geocat, nil
}

func (s *stubCatalog) OrganizationsWithParents() (map[string][]string, error) {
	return map[string][]string{"some-office": {}}, nil
}

func (s *stubCatalog) OrganizationAdminIds(organization string) ([]string, error) {
	return []string{"admin-1"}, nil
}

func (s *stubCatalog) UserEmail(userId string) (string, error) {
	return "admin@example.org", nil
}

// initializes the config package over a temporary output directory
func initTestConfig(t *testing.T) string {
	outDir := t.TempDir()
	yaml := fmt.Sprintf(`
site:
  url: https://opendata.example.org
checkers:
  active: [link]
output:
  directory: %s
  journal: %s
contacts:
  default_name: Opendata Support
  default_email: support@example.org
`, outDir, filepath.Join(outDir, "journal.db"))
	assert.Nil(t, config.Init([]byte(yaml)))
	return outDir
}

// a package with no URLs at all, so the link checker probes nothing
func quietPackage(name string) *core.Package {
	return &core.Package{
		Id:           name,
		Name:         name,
		Type:         "dataset",
		Title:        core.MultiLanguageField{"en": "A Dataset"},
		Organization: core.Organization{Name: "some-office"},
	}
}

// the single run directory created under the output directory
func findRunDir(t *testing.T, outDir string) string {
	entries, err := os.ReadDir(outDir)
	assert.Nil(t, err)
	for _, entry := range entries {
		if entry.IsDir() {
			return filepath.Join(outDir, entry.Name())
		}
	}
	t.Fatal("no run directory created")
	return ""
}

func TestExecute(t *testing.T) {
	assert := assert.New(t)
	outDir := initTestConfig(t)
	cat := &stubCatalog{packages: map[string]*core.Package{
		"first-dataset":  quietPackage("first-dataset"),
		"second-dataset": quietPackage("second-dataset"),
	}}

	runner := New(cat, Options{}, io.Discard)
	assert.Nil(runner.Execute())

	runDir := findRunDir(t, outDir)
	// the run directory has the csv/mails/logs layout with the checker's files
	assert.FileExists(filepath.Join(core.CsvDir(runDir), "linkchecker.csv"))
	assert.FileExists(filepath.Join(core.CsvDir(runDir), "linkchecker-frequency.csv"))
	assert.FileExists(filepath.Join(core.MailDir(runDir), "messages.csv"))
	assert.FileExists(filepath.Join(core.LogDir(runDir), "run.log"))
	assert.FileExists(filepath.Join(runDir, "datapackage.json"))

	// no findings: the result file holds only its header
	file, err := os.Open(filepath.Join(core.CsvDir(runDir), "linkchecker.csv"))
	assert.Nil(err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	assert.Nil(err)
	assert.Equal(1, len(records))

	// the run was recorded in the journal
	j, err := journal.Open(config.Output.Journal)
	assert.Nil(err)
	defer j.Close()
	runs, err := j.Records(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assert.Nil(err)
	assert.Equal(1, len(runs))
	assert.Equal("link", runs[0].Mode)
	assert.Equal(2, runs[0].NumPackages)
	assert.Equal(0, runs[0].NumRows)
	assert.Equal("succeeded", runs[0].Status)
}

// a run with both checkers active shares one message file and records the
// joined mode in the journal
func TestExecuteWithMultipleCheckers(t *testing.T) {
	assert := assert.New(t)
	// the shape checker's graph fetches all miss, so every package is skipped
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
	defer server.Close()

	outDir := t.TempDir()
	shapesFile := filepath.Join(outDir, "shapes.yaml")
	assert.Nil(os.WriteFile(shapesFile, []byte(`
shapes:
  - target_class: dcat:Dataset
    property: dct:title
    message: A title is required
    min_count: 1
`), 0644))
	yaml := fmt.Sprintf(`
site:
  url: %s
checkers:
  active: [link, shacl]
output:
  directory: %s
  journal: %s
shaclchecker:
  shapes: %s
contacts:
  default_name: Opendata Support
  default_email: support@example.org
`, server.URL, outDir, filepath.Join(outDir, "journal.db"), shapesFile)
	assert.Nil(config.Init([]byte(yaml)))
	cat := &stubCatalog{packages: map[string]*core.Package{
		"first-dataset": quietPackage("first-dataset"),
	}}

	runner := New(cat, Options{}, io.Discard)
	assert.Nil(runner.Execute())

	runDir := findRunDir(t, outDir)
	assert.FileExists(filepath.Join(core.CsvDir(runDir), "linkchecker-frequency.csv"))
	assert.FileExists(filepath.Join(core.CsvDir(runDir), "shaclchecker-frequency.csv"))

	// exactly one message file header: both checkers wrote to the same sink
	file, err := os.Open(filepath.Join(core.MailDir(runDir), "messages.csv"))
	assert.Nil(err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	assert.Nil(err)
	assert.Equal(1, len(records))

	j, err := journal.Open(config.Output.Journal)
	assert.Nil(err)
	defer j.Close()
	runs, err := j.Records(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assert.Nil(err)
	assert.Equal(1, len(runs))
	assert.Equal("link-shacl", runs[0].Mode)
}

func TestExecuteSkipsMissingAndNonDatasetPackages(t *testing.T) {
	assert := assert.New(t)
	outDir := initTestConfig(t)
	harvester := quietPackage("a-harvester")
	harvester.Type = "harvest"
	cat := &stubCatalog{packages: map[string]*core.Package{
		"a-harvester": harvester,
	}}

	runner := New(cat, Options{Pkg: "no-such-dataset"}, io.Discard)
	assert.Nil(runner.Execute())
	runner = New(cat, Options{Pkg: "a-harvester"}, io.Discard)
	assert.Nil(runner.Execute())

	// both runs completed despite checking nothing
	entries, err := os.ReadDir(outDir)
	assert.Nil(err)
	dirs := 0
	for _, entry := range entries {
		if entry.IsDir() {
			dirs++
		}
	}
	assert.Equal(2, dirs)
}

func TestPackageIdsScopes(t *testing.T) {
	assert := assert.New(t)
	initTestConfig(t)
	cat := &stubCatalog{packages: map[string]*core.Package{
		"__internal":     quietPackage("__internal"),
		"first-dataset":  quietPackage("first-dataset"),
		"second-dataset": quietPackage("second-dataset"),
	}}

	// a single package short-circuits discovery
	runner := New(cat, Options{Pkg: "first-dataset"}, io.Discard)
	ids, err := runner.packageIds()
	assert.Nil(err)
	assert.Equal([]string{"first-dataset"}, ids)

	// the full catalog excludes internal names
	runner = New(cat, Options{}, io.Discard)
	ids, err = runner.packageIds()
	assert.Nil(err)
	assert.ElementsMatch([]string{"first-dataset", "second-dataset"}, ids)

	// a limit truncates the list
	runner = New(cat, Options{Limit: 1}, io.Discard)
	ids, err = runner.packageIds()
	assert.Nil(err)
	assert.Equal(1, len(ids))
}

func TestEnrich(t *testing.T) {
	assert := assert.New(t)
	initTestConfig(t)
	runner := New(&stubCatalog{}, Options{}, io.Discard)
	table := core.ContactTable{
		{Organization: "some-office", PkgType: core.GEOCAT}: {"geocat-admin@example.org"},
	}

	pkg := quietPackage("geo-dataset")
	runner.enrich(pkg, map[string]bool{"geo-dataset": true}, table)
	assert.Equal(core.GEOCAT, pkg.PkgType)
	assert.Equal([]string{"geocat-admin@example.org"}, pkg.SendTo)

	pkg = quietPackage("plain-dataset")
	runner.enrich(pkg, map[string]bool{"geo-dataset": true}, table)
	assert.Equal(core.DCAT, pkg.PkgType)
	assert.Empty(pkg.SendTo)
}

func TestRunName(t *testing.T) {
	assert := assert.New(t)
	initTestConfig(t)
	when := time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC)

	runner := New(&stubCatalog{}, Options{}, io.Discard)
	assert.Equal("2024-06-01-0400-link", runner.runName(when))

	runner = New(&stubCatalog{}, Options{Org: "a-very-long-office-name"}, io.Discard)
	assert.Equal("2024-06-01-0400-link-org-a-very-lon", runner.runName(when))

	runner = New(&stubCatalog{}, Options{Pkg: "some-dataset", Limit: 5}, io.Discard)
	assert.Equal("2024-06-01-0400-link-pkg-some-datas-limit-5", runner.runName(when))
}
