package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/services"
)

// newReportService builds the production report service. Tests substitute
// their own factory.
var newReportService = services.NewReportService

// shutdownTimeout bounds the wait for open connections on shutdown.
const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve recorded run reports over HTTP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			service, err := newReportService()
			if err != nil {
				return err
			}

			// run the service until it fails or our context is canceled
			errs := make(chan error, 1)
			go func() {
				errs <- service.Start(config.Service.Port)
			}()
			select {
			case err := <-errs:
				return err
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return service.Shutdown(ctx)
			}
		},
	}
	return cmd
}
