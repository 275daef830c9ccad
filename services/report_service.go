package services

import (
	"context"

	"github.com/odpch/pkgcheck/journal"
	"github.com/odpch/pkgcheck/stats"
)

// this type encodes a JSON object for responding to root queries
type ServiceInfoResponse struct {
	Name    string `json:"name" example:"pkgcheck" doc:"The name of the service API"`
	Version string `json:"version" example:"1.0.0" doc:"The version string (major.minor.patch)"`
	Uptime  int    `json:"uptime" example:"345600" doc:"The time the service has been up (seconds)"`
}

// a response listing the recorded runs (GET)
type RunListResponse struct {
	// run records in order of their start time
	Runs []journal.Record `json:"runs" doc:"run records ordered by start time"`
}

// a response carrying a single run's summary statistics (GET)
type RunStatisticsResponse struct {
	// UUID of the run
	Id string `json:"id"`
	// the run's name, which is also its output directory
	Name string `json:"name"`
	// per-checker failure counts keyed by checker name
	Frequencies map[string][]stats.FrequencyItem `json:"frequencies" doc:"per-checker failure counts by check category"`
}

// ReportService defines the interface for the run report service.
type ReportService interface {
	// Starts the service on the selected port, returning an error that indicates
	// success or failure.
	Start(port int) error
	// Gracefully shuts down the service without interrupting active connections.
	Shutdown(ctx context.Context) error
	// Closes down the service, freeing all resources.
	Close()
}
