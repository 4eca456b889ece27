// Package cli implements the helixctl commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	server string
	token  string
	apiKey string
}

// NewRootCmd builds the helixctl command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "helixctl",
		Short:         "Operate a helix server",
		Long:          "Watch tenant permissions live, manage the database schema, and send test notifications.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.server, "server", "s", envOr("HELIX_SERVER", "http://localhost:8080"), "Helix server base URL ($HELIX_SERVER)")
	flags.StringVar(&opts.token, "token", os.Getenv("HELIX_TOKEN"), "Bearer token ($HELIX_TOKEN)")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("HELIX_API_KEY"), "Service API key ($HELIX_API_KEY)")

	root.AddCommand(
		newWatchCmd(opts),
		newMigrateCmd(),
		newNotifyCmd(opts),
		newAPIKeyCmd(),
		newTokenCmd(),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
