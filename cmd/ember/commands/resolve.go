package commands

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve METHOD PATH",
	Short: "Show which route answers a request",
	Long: `Normalize PATH the way the server does and print the first route table
entry matching METHOD and PATH, with the extracted parameters.

Examples:
  ember resolve GET /users/42
  ember resolve delete /posts/1/comments/7 --json`,
	Args: cobra.ExactArgs(2),
	Run:  runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	out, err := resolveRoute(projectDir, args[0], args[1])
	if err != nil {
		exitWithError(err)
	}
	if jsonOutput {
		printSuccess(out)
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Printf("\n  %s %s %s\n", out.Method, out.Normalized, dim("(from "+out.Path+")"))
	switch {
	case out.Matched:
		fmt.Printf("  %s %s  %s\n", green("→"), out.Route.Pattern, out.Route.File)
		for _, name := range sortedKeys(out.Params) {
			fmt.Printf("    %s = %s\n", name, out.Params[name])
		}
	case out.Fallback != "":
		fmt.Printf("  %s raw file %s\n", green("→"), out.Fallback)
	default:
		fmt.Printf("  no match\n")
	}
	fmt.Println()
}

// resolveRoute resolves method and path against the project in dir.
func resolveRoute(dir, method, path string) (*ResolveOutput, error) {
	project, err := ember.LoadProject(dir)
	if err != nil {
		return nil, err
	}

	method = strings.ToUpper(method)
	normalized := ember.NormalizePath(path)
	out := &ResolveOutput{
		Method:     method,
		Path:       path,
		Normalized: normalized.String(),
	}

	if m, ok := project.Dispatcher().Resolve(method, path); ok {
		r := newRouteOutput(m.Entry)
		out.Matched = true
		out.Route = &r
		out.Params = m.Params.Map()
		return out, nil
	}

	if project.Config.RawFallback && method == http.MethodGet {
		if f, _ := project.Table.Find(normalized.Segments); f != nil {
			out.Fallback = f.RelativePath
		}
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
