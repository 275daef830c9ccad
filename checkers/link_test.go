package checkers

// Tests for the link checker, driven by a stubbed probe transport.

import (
	"encoding/csv"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/core"
	"github.com/odpch/pkgcheck/probe"
)

// a transport that 404s the listed URLs and 200s everything else
type stubTransport struct {
	dead map[string]bool
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	status := http.StatusOK
	if s.dead[req.URL.String()] {
		status = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: status,
		Body:       http.NoBody,
		Request:    req,
	}, nil
}

// builds an initialized link checker whose prober fails for the given URLs,
// with a counter wrapped around contact resolution
func testLinkChecker(t *testing.T, run *core.RunContext, dead ...string) (*LinkChecker, *int) {
	deadSet := make(map[string]bool)
	for _, url := range dead {
		deadSet[url] = true
	}
	client := &http.Client{Transport: &stubTransport{dead: deadSet}}
	checker := NewLinkChecker()
	checker.prober = probe.NewWithClient(client, time.Millisecond)

	resolutions := 0
	checker.resolve = func(pkg *core.Package) []core.Contact {
		resolutions++
		return run.ResolveContacts(pkg)
	}
	assert.Nil(t, checker.Initialize(run))
	return checker, &resolutions
}

func readCsv(t *testing.T, path string) [][]string {
	file, err := os.Open(path)
	assert.Nil(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	assert.Nil(t, err)
	return records
}

// a record with a single dead resource URL produces exactly one finding in
// the access_url category, fanned out to each declared contact
func TestLinkCheckerDeadResource(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	checker, resolutions := testLinkChecker(t, run, "http://dead.example")

	pkg := testPackage()
	assert.Nil(checker.CheckPackage(pkg))
	assert.Nil(checker.Finish())
	assert.Equal(1, *resolutions)

	records := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker.csv"))
	assert.Equal(3, len(records)) // header + one row per contact
	header, rows := records[0], records[1:]
	assert.Equal("first@example.org", rows[0][0])
	assert.Equal("second@example.org", rows[1][0])
	for _, row := range rows {
		assert.Equal("http://dead.example", row[indexOf(header, "test_url")])
		assert.Equal("access_url", row[indexOf(header, "test_title")])
		assert.Contains(row[indexOf(header, "error_message")], "404")
		assert.Equal("Ein Datensatz", row[indexOf(header, "dataset_title")])
		assert.Equal("https://opendata.example.org/dataset/some-dataset/resource/r1",
			row[indexOf(header, "resource_url")])
	}

	messages := readCsv(t, filepath.Join(core.MailDir(run.RunDir), "messages.csv"))
	assert.Equal(3, len(messages))
	assert.Contains(messages[1][4], "Check: access_url")
}

func indexOf(header []string, name string) int {
	for i, field := range header {
		if field == name {
			return i
		}
	}
	return -1
}

// a record with no broken links emits nothing and never resolves contacts
func TestLinkCheckerNoFindings(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	checker, resolutions := testLinkChecker(t, run)

	pkg := testPackage()
	pkg.URL = "https://example.org/landing"
	assert.Nil(checker.CheckPackage(pkg))
	assert.Nil(checker.Finish())

	assert.Equal(0, *resolutions)
	records := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker.csv"))
	assert.Equal(1, len(records)) // header only
}

// the walk covers dataset-level URLs and every per-resource URL kind
func TestLinkCheckerFullWalk(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	dead := []string{
		"https://example.org/landing",
		"https://example.org/publisher",
		"https://example.org/relation",
		"https://example.org/qualified",
		"https://example.org/conforms",
		"https://example.org/record-docs",
		"https://example.org/access",
		"https://example.org/download",
		"https://example.org/resource-docs",
		"https://example.org/service",
	}
	checker, _ := testLinkChecker(t, run, dead...)

	pkg := testPackage()
	pkg.URL = "https://example.org/landing"
	pkg.Publisher = `{"name": "Publisher", "url": "https://example.org/publisher"}`
	pkg.Relations = []core.Relation{{URL: "https://example.org/relation"}}
	pkg.QualifiedRelations = []core.QualifiedRelation{{Relation: "https://example.org/qualified"}}
	pkg.ConformsTo = []string{"https://example.org/conforms"}
	pkg.Documentation = []string{"https://example.org/record-docs"}
	pkg.Resources = []core.Resource{{
		Id:             "r1",
		URL:            "https://example.org/access",
		DownloadURL:    "https://example.org/download",
		Documentation:  []string{"https://example.org/resource-docs"},
		AccessServices: []string{"https://example.org/service"},
	}}
	assert.Nil(checker.CheckPackage(pkg))
	assert.Nil(checker.Finish())

	records := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker.csv"))
	header, rows := records[0], records[1:]
	assert.Equal(len(dead)*2, len(rows)) // two contacts per finding

	categories := make(map[string]bool)
	for _, row := range rows {
		categories[row[indexOf(header, "test_title")]] = true
	}
	for _, category := range linkCategories {
		assert.True(categories[category], "missing category %s", category)
	}
}

// a download URL identical to the access URL is probed once, not twice
func TestLinkCheckerSkipsDuplicateDownloadURL(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	checker, _ := testLinkChecker(t, run, "http://dead.example")

	pkg := testPackage()
	pkg.Resources[0].DownloadURL = pkg.Resources[0].URL
	assert.Nil(checker.CheckPackage(pkg))
	assert.Nil(checker.Finish())

	records := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker.csv"))
	header, rows := records[0], records[1:]
	assert.Equal(2, len(rows))
	for _, row := range rows {
		assert.Equal("access_url", row[indexOf(header, "test_title")])
	}
}

// a malformed publisher field costs only the publisher check
func TestLinkCheckerToleratesBadPublisher(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	checker, _ := testLinkChecker(t, run, "http://dead.example")

	pkg := testPackage()
	pkg.Publisher = "not json at all"
	assert.Nil(checker.CheckPackage(pkg))
	assert.Nil(checker.Finish())

	records := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker.csv"))
	assert.Equal(3, len(records))
}

// the frequency table carries every category, zero-filled
func TestLinkCheckerFrequencyStatistics(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	checker, _ := testLinkChecker(t, run, "http://dead.example")

	assert.Nil(checker.CheckPackage(testPackage()))
	assert.Nil(checker.Finish())

	records := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker-frequency.csv"))
	assert.Equal(len(linkCategories)+1, len(records))
	counts := make(map[string]string)
	for _, record := range records[1:] {
		counts[record[0]] = record[1]
	}
	assert.Equal("1", counts["access_url"])
	assert.Equal("0", counts["landing_page_url"])

	contacts := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker-contacts.csv"))
	assert.Equal(2, len(contacts))
	assert.Equal("some-office", contacts[1][0])
	assert.Equal("2", contacts[1][2])
	emails := strings.Fields(contacts[1][3])
	assert.ElementsMatch([]string{"first@example.org", "second@example.org"}, emails)
}

// the statistics files are named after the configured result csv
func TestLinkCheckerStatisticsFollowCsvfileName(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	assert.Nil(config.Init([]byte(TEST_CONFIG + `
linkchecker:
  csvfile: audit.csv
`)))
	checker, _ := testLinkChecker(t, run, "http://dead.example")

	assert.Nil(checker.CheckPackage(testPackage()))
	assert.Nil(checker.Finish())

	csvdir := core.CsvDir(run.RunDir)
	assert.FileExists(filepath.Join(csvdir, "audit.csv"))
	assert.FileExists(filepath.Join(csvdir, "audit-frequency.csv"))
	assert.FileExists(filepath.Join(csvdir, "audit-contacts.csv"))
}

// the send_to override redirects both result and message rows
func TestLinkCheckerSendToOverride(t *testing.T) {
	assert := assert.New(t)
	run := testRun(t)
	checker, _ := testLinkChecker(t, run, "http://dead.example")

	pkg := testPackage()
	pkg.SendTo = []string{"geocat-admin@example.org"}
	assert.Nil(checker.CheckPackage(pkg))
	assert.Nil(checker.Finish())

	records := readCsv(t, filepath.Join(core.CsvDir(run.RunDir), "linkchecker.csv"))
	assert.Equal(2, len(records))
	assert.Equal("geocat-admin@example.org", records[1][0])
}
