// Package cmd provides the Cobra commands of the now-next CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var RootCommand = &cobra.Command{
	Use:          "now-next",
	Short:        "Build Next.js projects into per-page lambdas and static files",
	SilenceUsage: true,
}
