package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the route table in match order",
	Long: `Scan the route root and print every route table entry in the order
requests are matched against them. The first matching entry wins, so
overlapping routes are reported with the file that shadows the other.

Examples:
  ember routes
  ember routes --dir ./myapp
  ember routes --json`,
	Run: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) {
	out, err := collectRoutes(projectDir)
	if err != nil {
		exitWithError(err)
	}
	if jsonOutput {
		printSuccess(out)
		return
	}
	printRoutes(out)
}

// collectRoutes builds the route table of the project in dir without
// registered handlers.
func collectRoutes(dir string) (*RoutesOutput, error) {
	project, err := ember.LoadProject(dir)
	if err != nil {
		return nil, err
	}

	out := &RoutesOutput{Root: project.Root, Routes: []RouteOutput{}}
	for _, e := range project.Table.Entries() {
		out.Routes = append(out.Routes, newRouteOutput(&e))
	}
	for _, f := range project.Table.Files() {
		if len(f.Handlers) == 0 {
			out.RawFiles = append(out.RawFiles, f.RelativePath)
		}
	}
	for _, o := range project.Table.Overlaps() {
		out.Overlaps = append(out.Overlaps, OverlapOutput{
			Method:   o.Method,
			Pattern:  o.Pattern,
			Winner:   o.First,
			Shadowed: o.Second,
		})
	}
	for _, w := range project.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	out.TotalRoutes = len(out.Routes)
	return out, nil
}

func newRouteOutput(e *ember.RouteEntry) RouteOutput {
	return RouteOutput{
		Method:  e.Method,
		Pattern: e.Pattern,
		File:    e.File,
		Kind:    e.Kind.String(),
		Handler: e.Name,
		Shape:   e.Signature.String(),
	}
}

func printRoutes(out *RoutesOutput) {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Printf("\n  %s Routes %s\n\n", cyan("ember"), dim("("+out.Root+")"))

	if len(out.Routes) == 0 {
		fmt.Printf("  No routes found\n\n")
	}

	width := 0
	for _, r := range out.Routes {
		width = max(width, len(r.Pattern))
	}
	for _, r := range out.Routes {
		fmt.Printf("  %s %s  %s %s\n",
			methodColor(r.Method)(fmt.Sprintf("%-7s", r.Method)),
			r.Pattern+strings.Repeat(" ", width-len(r.Pattern)),
			r.File,
			dim(r.Shape))
	}

	if len(out.RawFiles) > 0 {
		fmt.Printf("\n  %s\n", dim("Served as raw files:"))
		for _, f := range out.RawFiles {
			fmt.Printf("    %s\n", f)
		}
	}

	if len(out.Warnings) > 0 {
		fmt.Println()
	}
	for _, w := range out.Warnings {
		fmt.Printf("  %s %s\n", yellow("Warning:"), w)
	}

	fmt.Printf("\n  %d routes\n\n", out.TotalRoutes)
}

func methodColor(method string) func(a ...any) string {
	switch method {
	case "GET":
		return color.New(color.FgGreen).SprintFunc()
	case "POST":
		return color.New(color.FgBlue).SprintFunc()
	case "PUT", "PATCH":
		return color.New(color.FgYellow).SprintFunc()
	case "DELETE":
		return color.New(color.FgRed).SprintFunc()
	default:
		return color.New(color.FgWhite).SprintFunc()
	}
}
