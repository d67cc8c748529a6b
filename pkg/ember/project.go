package ember

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

// Project is the static route view of a project directory: its config,
// its scan result and the table built without registered handlers.
// Tooling uses it to inspect routes without compiling the project.
type Project struct {
	Dir      string
	Config   *Config
	Root     string
	Scan     *scanner.ScanResult
	Table    *Table
	Warnings []Warning
}

// LoadProject reads the config in dir and scans its route root. Config
// and scan problems become warnings; only unexpected scan failures are
// returned as errors.
func LoadProject(dir string) (*Project, error) {
	p := &Project{Dir: dir}

	cfg, err := LoadConfig(dir)
	if err != nil {
		p.Warnings = append(p.Warnings, Warning{FilePath: filepath.Join(dir, ConfigFileName), Message: err.Error()})
	}
	p.Config = cfg
	p.Root = cfg.RouteRoot(dir)

	table, result, warnings, err := buildTable(p.Root, nil)
	if err != nil {
		return nil, err
	}
	p.Table = table
	p.Scan = result
	p.Warnings = append(p.Warnings, warnings...)
	return p, nil
}

// Dispatcher returns a dispatcher over the project table configured like
// the running app's, without metrics.
func (p *Project) Dispatcher() *Dispatcher {
	return NewDispatcher(p.Table, dispatcherOptions(p.Config)...)
}

// buildTable scans root and builds its table. A missing root falls back
// to the registry alone.
func buildTable(root string, reg *Registry) (*Table, *scanner.ScanResult, []Warning, error) {
	result, err := scanner.NewScanner(root).Scan()
	switch {
	case err == nil:
		table, warnings := Build(result.Files, reg)
		warnings = append(append(result.Warnings, warnings...), overlapWarnings(result.Overlaps)...)
		return table, result, warnings, nil
	case errors.Is(err, scanner.ErrRootNotFound):
		if reg != nil && reg.Len() > 0 {
			table := FromRegistry(reg)
			return table, result, overlapWarnings(table.Overlaps()), nil
		}
		table, _ := Build(nil, nil)
		return table, result, []Warning{{FilePath: root, Message: err.Error()}}, nil
	default:
		return nil, nil, nil, fmt.Errorf("failed to scan routes: %w", err)
	}
}

func overlapWarnings(overlaps []scanner.Overlap) []Warning {
	out := make([]Warning, 0, len(overlaps))
	for _, o := range overlaps {
		out = append(out, Warning{FilePath: o.Second, Message: o.Message})
	}
	return out
}

func dispatcherOptions(cfg *Config) []DispatcherOption {
	opts := []DispatcherOption{
		WithRawFallback(cfg.RawFallback),
		WithDevMode(cfg.Dev),
		WithMaxBodyBytes(cfg.MaxBodyBytes),
	}
	if cfg.MatchCache.Enabled {
		opts = append(opts, WithMatchCache(NewMatchCache(cfg.MatchCache.MaxEntries)))
	}
	return opts
}
