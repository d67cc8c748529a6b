package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

var addCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Create a handler file",
	Long: `Create a handler file under the route root with a stub function per
method. Dynamic segments are written in brackets.

Examples:
  ember add users
  ember add users/[id] --methods GET,PUT,DELETE
  ember add docs/intro --ui`,
	Args: cobra.ExactArgs(1),
	Run:  runAdd,
}

var (
	addMethods string
	addUI      bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addMethods, "methods", "m", "GET", "Comma-separated HTTP methods")
	addCmd.Flags().BoolVar(&addUI, "ui", false, "Mark the file as a ui route instead of api")
}

func runAdd(cmd *cobra.Command, args []string) {
	result, err := addRoute(projectDir, args[0], addMethods, addUI)
	if err != nil {
		exitWithError(err)
	}
	if jsonOutput {
		printSuccess(result)
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("  %s Created %s (%s %s)\n", green("✓"), result.File, strings.Join(result.Methods, ","), result.Pattern)
	fmt.Printf("  Run \"ember generate\" to register it\n")
}

// addRoute scaffolds a handler file under the route root of dir.
func addRoute(dir, path, methods string, ui bool) (*scanner.ScaffoldResult, error) {
	cfg, err := ember.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	kind := scanner.KindAPI
	if ui {
		kind = scanner.KindUI
	}
	return scanner.Scaffold(scanner.ScaffoldConfig{
		Root:    cfg.RouteRoot(dir),
		Path:    path,
		Methods: strings.Split(methods, ","),
		Kind:    kind,
	})
}
