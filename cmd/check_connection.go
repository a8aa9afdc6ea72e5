// File: cmd/check_connection.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/observability"
)

func newCheckConnectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-connection",
		Short: "Check credentials, organization and application without judging the build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}

			gate, err := newGate(cfg, observability.GetLogger())
			if err != nil {
				return err
			}

			appID, err := gate.CheckConnection(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connection OK, application ID %s\n", appID)
			return nil
		},
	}
}
