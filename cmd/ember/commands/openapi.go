package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Generate an OpenAPI specification",
	Long: `Generate an OpenAPI 3 document describing the route table: one operation
per method and pattern, with path parameters, documented from the doc
comments of the verb functions.

Examples:
  ember openapi
  ember openapi --format yaml --output api.yaml
  ember openapi --output - --title "My API"`,
	Run: runOpenAPI,
}

// Flags
var (
	openapiOutput    string
	openapiFormat    string
	openapiTitle     string
	openapiVersion   string
	openapiDesc      string
	openapiServerURL string
)

func init() {
	rootCmd.AddCommand(openapiCmd)
	openapiCmd.Flags().StringVarP(&openapiOutput, "output", "o", "openapi.json", "Output file path (- for stdout)")
	openapiCmd.Flags().StringVarP(&openapiFormat, "format", "f", "json", "Output format (json|yaml)")
	openapiCmd.Flags().StringVar(&openapiTitle, "title", "", "API title (defaults to project name)")
	openapiCmd.Flags().StringVar(&openapiVersion, "version", "1.0.0", "API version")
	openapiCmd.Flags().StringVar(&openapiDesc, "description", "", "API description")
	openapiCmd.Flags().StringVar(&openapiServerURL, "server", "", "Server URL (e.g., http://localhost:5000)")
}

func runOpenAPI(cmd *cobra.Command, args []string) {
	green := color.New(color.FgGreen).SprintFunc()

	config := ember.OpenAPIConfig{
		Title:       openapiTitle,
		Version:     openapiVersion,
		Description: openapiDesc,
	}
	if config.Title == "" {
		config.Title = projectTitle(projectDir)
	}
	if openapiServerURL != "" {
		config.Servers = []string{openapiServerURL}
	}

	data, paths, err := buildOpenAPI(projectDir, config, openapiFormat)
	if err != nil {
		exitWithError(err)
	}

	if openapiOutput == "-" {
		_, _ = os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(openapiOutput, data, 0644); err != nil {
		exitWithError(fmt.Errorf("failed to write %s: %w", openapiOutput, err))
	}

	if jsonOutput {
		printSuccess(OpenAPIOutput{Output: openapiOutput, Format: openapiFormat, Paths: paths})
		return
	}
	fmt.Printf("  %s OpenAPI spec written to %s (%d paths)\n", green("✓"), openapiOutput, paths)
}

// buildOpenAPI renders the OpenAPI document of the project in dir.
func buildOpenAPI(dir string, config ember.OpenAPIConfig, format string) ([]byte, int, error) {
	project, err := ember.LoadProject(dir)
	if err != nil {
		return nil, 0, err
	}
	doc := ember.BuildOpenAPI(project.Table, config)
	data, err := ember.MarshalOpenAPI(doc, format)
	if err != nil {
		return nil, 0, err
	}
	return data, doc.Paths.Len(), nil
}

// projectTitle names the API after the module's last path element.
func projectTitle(dir string) string {
	if module, err := scanner.GetModuleName(dir); err == nil {
		return module[strings.LastIndex(module, "/")+1:]
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return filepath.Base(abs)
	}
	return "API"
}
