package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an ember.yaml for this project",
	Long: `Create ember.yaml in the project directory. In a terminal the values are
asked for interactively; flags fill them in otherwise.

Examples:
  ember init
  ember init --root routes --port 8080 --yes`,
	Run: runInit,
}

var (
	initRoot  string
	initPort  int
	initYes   bool
	initForce bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initRoot, "root", "routes", "Route root, relative to the project directory")
	initCmd.Flags().IntVarP(&initPort, "port", "p", 5000, "Port to listen on")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Use the flag values without prompting")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing ember.yaml")
}

// initConfig is the part of ember.Config written by init. Settings left
// out keep their defaults, including hot_reload which follows dev.
type initConfig struct {
	ParentFolder string                 `yaml:"parent_folder"`
	Port         int                    `yaml:"port"`
	RawFallback  bool                   `yaml:"raw_fallback"`
	MatchCache   ember.MatchCacheConfig `yaml:"match_cache"`
	GeneratedDir string                 `yaml:"generated_dir"`
}

func newInitConfig(root string, port int) initConfig {
	defaults := ember.DefaultConfig()
	return initConfig{
		ParentFolder: root,
		Port:         port,
		RawFallback:  defaults.RawFallback,
		MatchCache:   defaults.MatchCache,
		GeneratedDir: defaults.GeneratedDir,
	}
}

func runInit(cmd *cobra.Command, args []string) {
	green := color.New(color.FgGreen).SprintFunc()

	cfg := newInitConfig(initRoot, initPort)
	interactive := !initYes && !jsonOutput && isatty.IsTerminal(os.Stdin.Fd())
	if interactive {
		if err := promptInitConfig(&cfg); err != nil {
			exitWithError(err)
		}
	}

	path, err := writeInitConfig(projectDir, cfg, initForce)
	if err != nil {
		exitWithError(err)
	}

	next := []string{
		fmt.Sprintf("Add handler files under %s, starting with \"// ember:api\"", cfg.ParentFolder),
		"ember generate",
		"ember dev",
	}
	if jsonOutput {
		printSuccess(InitOutput{Config: path, ParentFolder: cfg.ParentFolder, Port: cfg.Port, NextSteps: next})
		return
	}

	fmt.Printf("\n  %s Created %s\n\n  Next steps:\n", green("✓"), path)
	for _, step := range next {
		fmt.Printf("    %s\n", step)
	}
	fmt.Println()
}

func promptInitConfig(cfg *initConfig) error {
	port := strconv.Itoa(cfg.Port)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Route root").
				Description("Directory holding your handler files").
				Value(&cfg.ParentFolder),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 0 || n > 65535 {
						return errors.New("enter a port between 0 and 65535")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Serve handler files as text when no handler answers?").
				Value(&cfg.RawFallback),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Port, _ = strconv.Atoi(port)
	return nil
}

// writeInitConfig writes cfg as ember.yaml in dir and returns its path.
func writeInitConfig(dir string, cfg initConfig, force bool) (string, error) {
	path := filepath.Join(dir, ember.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if cfg.ParentFolder == "" {
		return "", fmt.Errorf("route root must not be empty")
	}

	var buf bytes.Buffer
	buf.WriteString("# ember project configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(dir, cfg.ParentFolder), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", err
	}
	return path, nil
}
