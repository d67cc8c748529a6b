package commands

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"g", "gen"},
	Short:   "Generate handler registration code",
	Long: `Scan the route root and generate a package that registers every handler
with an ember.Registry. Handler files carry a "//go:build ember" constraint,
so the generated copies are what your binary actually compiles.

Use it from main.go:

  reg, err := generated.NewRegistry()
  app := ember.New(ember.WithRegistry(reg))

Examples:
  ember generate
  ember generate --out internal/routes`,
	Run: runGenerate,
}

var (
	generateOut     string
	generateVerbose bool
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Output directory (default: generated_dir from ember.yaml)")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print every generated file")
}

func runGenerate(cmd *cobra.Command, args []string) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	if !jsonOutput {
		fmt.Printf("  %s Generating handler registrations...\n", yellow("→"))
	}

	out, err := generate(projectDir, generateOut, generateVerbose && !jsonOutput)
	if err != nil {
		exitWithError(err)
	}
	if jsonOutput {
		printSuccess(out)
		return
	}

	for _, w := range out.Warnings {
		fmt.Printf("  %s %s\n", yellow("Warning:"), w)
	}
	fmt.Printf("  %s %d handlers registered in %s\n", green("✓"), out.Handlers, out.OutputDir)
}

// generate writes the registration packages for the project in dir.
func generate(dir, outDir string, verbose bool) (*GenerateOutput, error) {
	cfg, err := ember.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	module, err := scanner.GetModuleName(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot determine module name: %w", err)
	}

	if outDir == "" {
		outDir = cfg.GeneratedDir
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(dir, outDir)
	}

	gen := scanner.NewGenerator(scanner.GeneratorConfig{
		ModuleName: module,
		ProjectDir: dir,
		RouteRoot:  cfg.RouteRoot(dir),
		OutputDir:  outDir,
		Verbose:    verbose,
	})
	result, err := gen.Generate()
	if err != nil {
		return nil, err
	}

	out := &GenerateOutput{
		Module:    module,
		OutputDir: outDir,
		Files:     result.GeneratedFiles,
		Handlers:  result.ScanResult.HandlerCount(),
	}
	for _, w := range result.ScanResult.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	for _, o := range result.ScanResult.Overlaps {
		out.Warnings = append(out.Warnings, o.Message)
	}
	return out, nil
}
