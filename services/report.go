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

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/core"
	"github.com/odpch/pkgcheck/journal"
	"github.com/odpch/pkgcheck/stats"
)

// Version numbers
var majorVersion = 0
var minorVersion = 1
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// This type implements the ReportService interface, publishing the run
// journal and each run's summary statistics over a small REST API.
type report struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server.
	Server *http.Server

	// fernet keys accepted for access tokens
	keys []*fernet.Key
}

// authorizes a client request, returning the client name carried in the
// access token and an error describing any issue encountered
func (service *report) authorize(authorizationHeader string) (string, error) {
	if !strings.Contains(authorizationHeader, "Bearer") {
		return "", huma.Error401Unauthorized("Invalid authorization header")
	}
	token := strings.TrimSpace(authorizationHeader[len("Bearer "):])

	// the token is a fernet message whose payload names the client
	client := fernet.VerifyAndDecrypt([]byte(token), 0, service.keys)
	if client == nil {
		return "", huma.Error401Unauthorized("Invalid access token")
	}
	return string(client), nil
}

// opens the configured run journal for the duration of a request
func (service *report) openJournal() (*journal.Journal, error) {
	return journal.Open(config.Output.Journal)
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root (no authorization needed for this one)
func (service *report) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	slog.Info("Querying root endpoint...")
	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:    service.Name,
			Version: service.Version,
			Uptime:  int(service.uptime()),
		},
	}, nil
}

type RunListOutput struct {
	Body RunListResponse `doc:"A list of recorded runs"`
}

// handler method for listing recorded runs, optionally within a time window
func (service *report) getRuns(ctx context.Context,
	input *struct {
		Authorization string    `header:"authorization" doc:"Authorization header with fernet access token"`
		Start         time.Time `query:"start" doc:"(Optional) Include only runs started at or after this time"`
		Stop          time.Time `query:"stop" doc:"(Optional) Include only runs started at or before this time"`
	}) (*RunListOutput, error) {

	client, err := service.authorize(input.Authorization)
	if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Listing runs for %s...", client))
	j, err := service.openJournal()
	if err != nil {
		return nil, err
	}
	defer j.Close()

	stop := input.Stop
	if stop.IsZero() {
		stop = time.Now()
	}
	runs, err := j.Records(input.Start, stop)
	if err != nil {
		return nil, err
	}
	return &RunListOutput{
		Body: RunListResponse{
			Runs: runs,
		},
	}, nil
}

type RunOutput struct {
	Body journal.Record `doc:"The record for the run with the given ID"`
}

// handler method for querying a single run record
func (service *report) getRun(ctx context.Context,
	input *struct {
		Authorization string    `header:"authorization" doc:"Authorization header with fernet access token"`
		Id            uuid.UUID `path:"id" example:"de9a2d6a-f5c9-4322-b8a7-8121d83fdfc2" doc:"the UUID for the requested run"`
	}) (*RunOutput, error) {

	_, err := service.authorize(input.Authorization)
	if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Querying run %s...", input.Id.String()))
	j, err := service.openJournal()
	if err != nil {
		return nil, err
	}
	defer j.Close()

	record, err := j.Record(input.Id)
	if err != nil {
		var notFound *journal.RecordNotFoundError
		if errors.As(err, &notFound) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, err
	}
	return &RunOutput{Body: record}, nil
}

type RunStatisticsOutput struct {
	Body RunStatisticsResponse `doc:"Summary statistics for the run with the given ID"`
}

// handler method for querying a run's summary statistics, read back from the
// frequency tables its checkers wrote
func (service *report) getRunStatistics(ctx context.Context,
	input *struct {
		Authorization string    `header:"authorization" doc:"Authorization header with fernet access token"`
		Id            uuid.UUID `path:"id" example:"de9a2d6a-f5c9-4322-b8a7-8121d83fdfc2" doc:"the UUID for the requested run"`
	}) (*RunStatisticsOutput, error) {

	_, err := service.authorize(input.Authorization)
	if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Querying statistics for run %s...", input.Id.String()))
	j, err := service.openJournal()
	if err != nil {
		return nil, err
	}
	record, err := j.Record(input.Id)
	j.Close()
	if err != nil {
		var notFound *journal.RecordNotFoundError
		if errors.As(err, &notFound) {
			return nil, huma.Error404NotFound(err.Error())
		}
		return nil, err
	}

	// each checker leaves a <name>-frequency.csv table in the run's csv
	// directory
	runDir := filepath.Join(config.Output.Directory, record.Name)
	tables, err := filepath.Glob(filepath.Join(core.CsvDir(runDir), "*-frequency.csv"))
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, huma.Error404NotFound(
			fmt.Sprintf("No statistics found for run %s", input.Id.String()))
	}
	frequencies := make(map[string][]stats.FrequencyItem)
	for _, table := range tables {
		checker := strings.TrimSuffix(filepath.Base(table), "-frequency.csv")
		items, err := stats.ReadFrequencyCSV(table)
		if err != nil {
			return nil, err
		}
		frequencies[checker] = items
	}
	return &RunStatisticsOutput{
		Body: RunStatisticsResponse{
			Id:          record.Id.String(),
			Name:        record.Name,
			Frequencies: frequencies,
		},
	}, nil
}

// returns the uptime for the service in seconds
func (service *report) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// constructs a run report service given our configuration
func NewReportService() (ReportService, error) {

	// validate our configuration
	if config.Output.Journal == "" {
		return nil, fmt.Errorf("No run journal was specified.")
	}
	if config.Service.FernetKey == "" {
		return nil, fmt.Errorf("No fernet key was specified.")
	}
	keys, err := fernet.DecodeKeys(config.Service.FernetKey)
	if err != nil {
		return nil, fmt.Errorf("Invalid fernet key: %s", err.Error())
	}

	service := new(report)
	service.Name = "pkgcheck report"
	service.Version = version
	service.Port = -1
	service.keys = keys

	// set up routing
	service.Router = mux.NewRouter()
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	huma.Get(api, "/", service.getRoot)

	// API v1
	huma.Get(api, "/api/v1/runs", service.getRuns)
	huma.Get(api, "/api/v1/runs/{id}", service.getRun)
	huma.Get(api, "/api/v1/runs/{id}/statistics", service.getRunStatistics)

	return service, nil
}

// starts the run report service
func (service *report) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", config.Service.MaxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, config.Service.MaxConnections)

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *report) Shutdown(ctx context.Context) error {
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *report) Close() {
	if service.Server != nil {
		service.Server.Close()
	}
}
