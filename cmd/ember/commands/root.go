// Package commands provides the CLI commands for ember.
package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "ember - file-routed request handlers for Go",
	Long: `ember turns a directory of handler files into an ordered route table.
Every file marked "// ember:api" or "// ember:ui" becomes a route, and its
GET, POST, ... functions become the handlers for that route.

Quick Start:
  ember init           Write an ember.yaml for this project
  ember routes         List the route table in match order
  ember resolve GET /users/42
  ember generate       Generate handler registration code
  ember dev            Generate, run and reload on changes

Documentation: https://github.com/abdul-hamid-achik/ember`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// projectDir is the global --dir flag
var projectDir string

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for automation and LLM agents)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory")
	rootCmd.SetVersionTemplate(version.String() + "\n")
}

// exitWithError reports err in the active output mode and exits.
func exitWithError(err error) {
	if jsonOutput {
		printJSONError(err)
	} else {
		fmt.Fprintf(os.Stderr, "  %s %v\n\n", color.RedString("Error:"), err)
	}
	os.Exit(1)
}
