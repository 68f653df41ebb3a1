package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/matheuskafuri/feedview/internal/update"
	"github.com/spf13/cobra"
)

var flagCheckUpdate bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, versionString())
		if !flagCheckUpdate {
			return nil
		}

		res, err := update.Check(cmd.Context(), &http.Client{Timeout: 5 * time.Second}, update.DefaultReleasesURL, version)
		if err != nil {
			return fmt.Errorf("checking for updates: %w", err)
		}
		if res.Newer {
			fmt.Fprintf(out, "Update available: v%s\n", res.LatestVersion)
		} else {
			fmt.Fprintln(out, "Up to date.")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&flagCheckUpdate, "check", false, "check GitHub for a newer release")
}
