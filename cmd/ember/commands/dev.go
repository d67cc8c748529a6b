package commands

import (
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/pkg/ember"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Start development server with hot reload",
	Long: `Generate handler registrations, run the project with "go run ." and
regenerate and restart it whenever a file under the route root changes.

Example:
  ember dev
  ember dev --port 8080 --open`,
	Run: runDev,
}

var (
	devPort int
	devOpen bool
)

const devDebounce = 100 * time.Millisecond

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.Flags().IntVarP(&devPort, "port", "p", 0, "Port to run the server on (default: port from ember.yaml)")
	devCmd.Flags().BoolVar(&devOpen, "open", false, "Open the app in a browser once it is up")
}

func runDev(cmd *cobra.Command, args []string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\n  %s Development Server\n\n", cyan("ember"))

	if _, err := os.Stat(filepath.Join(projectDir, "main.go")); os.IsNotExist(err) {
		fmt.Printf("  %s No main.go found in %s\n", red("Error:"), projectDir)
		fmt.Printf("  Run this command from your project root\n\n")
		os.Exit(1)
	}

	// The app and the config loaded below both run in development mode.
	_ = os.Setenv("EMBER_DEV", "1")
	cfg, err := ember.LoadConfig(projectDir)
	if err != nil {
		fmt.Printf("  %s %v\n", red("Error:"), err)
		os.Exit(1)
	}
	port := cfg.Port
	if devPort != 0 {
		port = devPort
	}
	root := cfg.RouteRoot(projectDir)
	genDir := generatedDir(projectDir, cfg)

	regenerate := func() bool {
		out, err := generate(projectDir, "", false)
		if err != nil {
			fmt.Printf("  %s route generation failed: %v\n", red("✗"), err)
			return false
		}
		for _, w := range out.Warnings {
			fmt.Printf("  %s %s\n", yellow("Warning:"), w)
		}
		fmt.Printf("  %s %d handlers registered\n", green("✓"), out.Handlers)
		return true
	}

	fmt.Printf("  %s Generating routes...\n", yellow("→"))
	if !regenerate() {
		os.Exit(1)
	}

	var mu sync.Mutex
	serverProcess := startDevServer(projectDir, port)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Printf("  %s Failed to create file watcher: %v\n", red("Error:"), err)
		os.Exit(1)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, root, genDir); err != nil {
		fmt.Printf("  %s Failed to watch %s: %v\n", red("Error:"), root, err)
		os.Exit(1)
	}

	url := fmt.Sprintf("http://localhost:%d", port)
	fmt.Printf("  %s Watching %s\n", green("✓"), root)
	fmt.Printf("\n  ➜ Local:   %s\n", cyan(url))
	fmt.Printf("  ➜ Network: %s\n\n", cyan(fmt.Sprintf("http://%s", net.JoinHostPort(cfg.Host, strconv.Itoa(port)))))

	if devOpen {
		go openWhenReady(url, port)
	}

	var debounceTimer *time.Timer
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// New directories are watched as they appear.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, event.Name, genDir)
				}
			}
			if !shouldRegenerate(event, genDir) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(devDebounce, func() {
				timestamp := time.Now().Format("15:04:05")
				fmt.Printf("  [%s] %s Regenerating routes...\n", timestamp, yellow("→"))
				if !regenerate() || !cfg.HotReload {
					return
				}

				fmt.Printf("  [%s] %s Restarting...\n", timestamp, yellow("→"))
				mu.Lock()
				stopDevServer(serverProcess)
				serverProcess = startDevServer(projectDir, port)
				mu.Unlock()
				fmt.Printf("  [%s] %s Ready\n", timestamp, green("✓"))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Printf("  %s Watcher error: %v\n", yellow("Warning:"), err)

		case <-signals:
			fmt.Println("\n  Shutting down...")
			mu.Lock()
			stopDevServer(serverProcess)
			os.Exit(0)
		}
	}
}

// generatedDir resolves where "ember generate" writes for the project in dir.
func generatedDir(dir string, cfg *ember.Config) string {
	if filepath.IsAbs(cfg.GeneratedDir) {
		return filepath.Clean(cfg.GeneratedDir)
	}
	return filepath.Join(dir, cfg.GeneratedDir)
}

// shouldRegenerate reports whether a file event can change the route table.
// Events under genDir come from regeneration itself.
func shouldRegenerate(event fsnotify.Event, genDir string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if genDir != "" && scanner.IsWithin(event.Name, genDir) {
		return false
	}
	name := filepath.Base(event.Name)
	return scanner.IsEligibleFile(name) && !strings.HasPrefix(name, ".")
}

// watchTree adds dir and its non-private subdirectories to the watcher,
// leaving out genDir.
func watchTree(watcher *fsnotify.Watcher, dir, genDir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && scanner.IsPrivateFolder(d.Name()) {
			return filepath.SkipDir
		}
		if genDir != "" && scanner.IsWithin(path, genDir) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func startDevServer(dir string, port int) *exec.Cmd {
	cmd := exec.Command("go", "run", ".")
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), fmt.Sprintf("PORT=%d", port))

	if err := cmd.Start(); err != nil {
		fmt.Printf("  %s Failed to start server: %v\n", color.RedString("Error:"), err)
		return nil
	}
	return cmd
}

func stopDevServer(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscall.SIGTERM)
	_ = cmd.Wait()
}

// openWhenReady opens url once the port accepts connections. It gives up
// after the first build had half a minute.
func openWhenReady(url string, port int) {
	addr := net.JoinHostPort("localhost", strconv.Itoa(port))
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
			if err := browser.OpenURL(url); err != nil {
				fmt.Printf("  %s Could not open browser. Please visit %s\n", color.YellowString("!"), url)
			}
			return
		}
		time.Sleep(250 * time.Millisecond)
	}
}
