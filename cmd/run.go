package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/odpch/pkgcheck/catalog"
	"github.com/odpch/pkgcheck/config"
	"github.com/odpch/pkgcheck/runner"
)

// AuditRunner defines the interface for running a configured catalog audit.
type AuditRunner interface {
	Execute() error
}

// newAuditRunner builds the production audit runner from the loaded
// configuration. Tests substitute their own factory.
var newAuditRunner = func(options runner.Options, echo io.Writer) (AuditRunner, error) {
	client, err := catalog.NewClient(config.Site.URL, config.Site.APIKey)
	if err != nil {
		return nil, err
	}
	return runner.New(client, options, echo), nil
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var pkg string
	var org string
	var limit int

	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Run the configured checkers over the catalog",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			audit, err := newAuditRunner(runner.Options{
				Pkg:   pkg,
				Org:   org,
				Limit: limit,
			}, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return audit.Execute()
		},
	}

	cmd.Flags().StringVar(&pkg, "pkg", "", "Check only the package with this name")
	cmd.Flags().StringVar(&org, "org", "", "Check only the packages of this organization")
	cmd.Flags().IntVar(&limit, "limit", 0, "Check at most this many packages")

	return cmd
}
