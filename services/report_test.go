package services

// This file defines a unit test setup for the report service. The tests run
// against a real service instance backed by a seeded run journal and a run
// directory with summary statistics tables.
import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/odpch/pkgcheck/checkertest"
	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/core"
	"github.com/odpch/pkgcheck/journal"
	"github.com/odpch/pkgcheck/stats"
)

// temporary testing directory
var TESTING_DIR string

// report service URLs
var (
	baseUrl   = "http://localhost:8082/"
	apiPrefix = "api/v1/"
)

// service instance
var service ReportService

// Fernet encryption/decryption key
var testKey fernet.Key

// access token accepted by the service
var testAccessToken string

// seeded run records
var (
	linkRun  journal.Record
	shaclRun journal.Record
)

const reportConfig string = `
site:
  url: https://catalog.example.org
service:
  port: 8082
  max_connections: 100
  fernet_key: FERNET_KEY
checkers:
  active: [link]
output:
  directory: TESTING_DIR
  journal: TESTING_DIR/journal.db
contacts:
  default_email: contact@example.org
`

// performs testing setup
func setup() {
	checkertest.EnableDebugLogging()

	log.Print("Creating testing directory...\n")
	var err error
	TESTING_DIR, err = os.MkdirTemp(os.TempDir(), "pkgcheck-report-tests-")
	if err != nil {
		log.Panicf("Couldn't create testing directory: %s", err)
	}

	err = testKey.Generate()
	if err != nil {
		log.Panicf("Couldn't generate encryption key: %s", err)
	}
	token, err := fernet.EncryptAndSign([]byte("report-reader"), &testKey)
	if err != nil {
		log.Panicf("Couldn't create test access token: %s", err)
	}
	testAccessToken = string(token)

	// read in the config file with TESTING_DIR and FERNET_KEY replaced
	myConfig := strings.ReplaceAll(reportConfig, "TESTING_DIR", TESTING_DIR)
	myConfig = strings.ReplaceAll(myConfig, "FERNET_KEY", testKey.Encode())
	err = config.Init([]byte(myConfig))
	if err != nil {
		log.Panicf("Couldn't initialize configuration: %s", err)
	}

	// seed the run journal with two completed runs
	linkRun = journal.Record{
		Id:          uuid.New(),
		Name:        "2024-06-01-0400-link",
		Mode:        "link",
		StartTime:   time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC),
		StopTime:    time.Date(2024, 6, 1, 4, 30, 0, 0, time.UTC),
		NumPackages: 120,
		NumRows:     17,
		Status:      "succeeded",
	}
	shaclRun = journal.Record{
		Id:          uuid.New(),
		Name:        "2024-05-01-0400-shacl",
		Mode:        "shacl",
		StartTime:   time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC),
		StopTime:    time.Date(2024, 5, 1, 4, 45, 0, 0, time.UTC),
		NumPackages: 115,
		NumRows:     42,
		Status:      "failed",
	}
	j, err := journal.Open(config.Output.Journal)
	if err != nil {
		log.Panicf("Couldn't open the run journal: %s", err)
	}
	for _, record := range []journal.Record{linkRun, shaclRun} {
		err = j.RecordRun(record)
		if err != nil {
			log.Panicf("Couldn't seed the run journal: %s", err)
		}
	}
	j.Close()

	// give the link run an output directory with a frequency table
	runDir := filepath.Join(TESTING_DIR, linkRun.Name)
	err = os.MkdirAll(core.CsvDir(runDir), 0755)
	if err != nil {
		log.Panicf("Couldn't create run directory: %s", err)
	}
	frequency := stats.NewFrequency("access_url", "download_url")
	frequency.Count("download_url")
	err = frequency.WriteCSV(filepath.Join(core.CsvDir(runDir), "linkchecker-frequency.csv"))
	if err != nil {
		log.Panicf("Couldn't write frequency table: %s", err)
	}

	// Start the service.
	log.Print("Starting test report service...\n")
	go func() {
		service, err = NewReportService()
		if err != nil {
			log.Panicf("Couldn't construct the service: %s", err.Error())
		}
		err = service.Start(config.Service.Port)
		if err != nil {
			log.Panicf("Couldn't start report service: %s", err.Error())
		}
	}()

	// Give the service time to start up.
	time.Sleep(100 * time.Millisecond)
}

// Performs testing breakdown.
func breakdown() {

	if service != nil {
		// Gracefully shut the service down when it finishes its work.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		service.Shutdown(ctx)
	}

	if TESTING_DIR != "" {
		// Remove the testing directory and its contents.
		log.Printf("Deleting testing directory %s...\n", TESTING_DIR)
		os.RemoveAll(TESTING_DIR)
	}
}

// sends a GET query with well-formed headers
func get(resource string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, resource, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", testAccessToken))
	return http.DefaultClient.Do(req)
}

// queries the service's root endpoint
func TestQueryRoot(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl)
	assert.Nil(err)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var root ServiceInfoResponse
	err = json.Unmarshal(respBody, &root)
	assert.Nil(err)
	assert.Equal("pkgcheck report", root.Name)
	assert.Equal(version, root.Version)
}

// lists all recorded runs
func TestListRuns(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "runs")
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var list RunListResponse
	err = json.Unmarshal(respBody, &list)
	assert.Nil(err)
	assert.Equal(2, len(list.Runs))

	// runs come back ordered by start time
	assert.Equal(shaclRun.Id, list.Runs[0].Id)
	assert.Equal(linkRun.Id, list.Runs[1].Id)
	assert.Equal("link", list.Runs[1].Mode)
	assert.Equal(120, list.Runs[1].NumPackages)
	assert.Equal("failed", list.Runs[0].Status)
}

// lists only the runs started within a given time window
func TestListRunsWithinWindow(t *testing.T) {
	assert := assert.New(t)

	start := url.QueryEscape(time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC).Format(time.RFC3339))
	resp, err := get(baseUrl + apiPrefix + "runs?start=" + start)
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var list RunListResponse
	err = json.Unmarshal(respBody, &list)
	assert.Nil(err)
	assert.Equal(1, len(list.Runs))
	assert.Equal(linkRun.Id, list.Runs[0].Id)
}

// queries a specific (valid) run
func TestQueryValidRun(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "runs/" + linkRun.Id.String())
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var record journal.Record
	err = json.Unmarshal(respBody, &record)
	assert.Nil(err)
	assert.Equal(linkRun.Id, record.Id)
	assert.Equal(linkRun.Name, record.Name)
	assert.Equal(17, record.NumRows)
	assert.Equal("succeeded", record.Status)
}

// queries a run that doesn't exist
func TestQueryInvalidRun(t *testing.T) {
	assert := assert.New(t)

	// try an ill-formed run ID
	resp, err := get(baseUrl + apiPrefix + "runs/xyzzy")
	assert.Nil(err)
	assert.Equal(http.StatusUnprocessableEntity, resp.StatusCode)

	// I bet this one doesn't exist!!
	resp, err = get(baseUrl + apiPrefix + "runs/3f0f9563-e1f8-4b9c-9308-36988e25df0b")
	assert.Nil(err)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
}

// queries a run's summary statistics
func TestQueryRunStatistics(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "runs/" + linkRun.Id.String() + "/statistics")
	assert.Nil(err)
	assert.Equal(http.StatusOK, resp.StatusCode)

	respBody, err := io.ReadAll(resp.Body)
	assert.Nil(err)
	defer resp.Body.Close()

	var statistics RunStatisticsResponse
	err = json.Unmarshal(respBody, &statistics)
	assert.Nil(err)
	assert.Equal(linkRun.Id.String(), statistics.Id)
	assert.Equal(linkRun.Name, statistics.Name)
	assert.Equal([]stats.FrequencyItem{
		{Category: "access_url", Count: 0},
		{Category: "download_url", Count: 1},
	}, statistics.Frequencies["linkchecker"])
}

// queries statistics for a run whose output directory is gone
func TestQueryStatisticsWithoutTables(t *testing.T) {
	assert := assert.New(t)

	resp, err := get(baseUrl + apiPrefix + "runs/" + shaclRun.Id.String() + "/statistics")
	assert.Nil(err)
	assert.Equal(http.StatusNotFound, resp.StatusCode)
}

// sends requests with a missing and with a forged access token
func TestRejectsInvalidTokens(t *testing.T) {
	assert := assert.New(t)

	req, err := http.NewRequest(http.MethodGet, baseUrl+apiPrefix+"runs", http.NoBody)
	assert.Nil(err)
	resp, err := http.DefaultClient.Do(req)
	assert.Nil(err)
	assert.Equal(http.StatusUnauthorized, resp.StatusCode)

	var forgedKey fernet.Key
	assert.Nil(forgedKey.Generate())
	forged, err := fernet.EncryptAndSign([]byte("intruder"), &forgedKey)
	assert.Nil(err)
	req, err = http.NewRequest(http.MethodGet, baseUrl+apiPrefix+"runs", http.NoBody)
	assert.Nil(err)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", string(forged)))
	resp, err = http.DefaultClient.Do(req)
	assert.Nil(err)
	assert.Equal(http.StatusUnauthorized, resp.StatusCode)
}

// runs setup, runs all tests, and does breakdown
func TestMain(m *testing.M) {
	var status int
	setup()
	if TESTING_DIR != "" {
		status = m.Run()
	}
	breakdown()
	os.Exit(status)
}
