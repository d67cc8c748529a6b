package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/abdul-hamid-achik/ember/internal/version"
	"github.com/abdul-hamid-achik/ember/pkg/ember"
	"github.com/abdul-hamid-achik/ember/pkg/route"
	"github.com/abdul-hamid-achik/ember/pkg/scanner"
)

type routeInfo struct {
	Method  string            `json:"method"`
	Pattern string            `json:"pattern"`
	File    string            `json:"file"`
	Kind    string            `json:"kind"`
	Handler string            `json:"handler"`
	Shape   string            `json:"shape"`
	Params  []string          `json:"params,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
}

func newRouteInfo(e *ember.RouteEntry) routeInfo {
	return routeInfo{
		Method:  e.Method,
		Pattern: e.Pattern,
		File:    e.File,
		Kind:    e.Kind.String(),
		Handler: e.Name,
		Shape:   e.Signature.String(),
		Params:  e.ParamNames(),
	}
}

func (s *Server) handleListRoutes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := ember.LoadProject(s.dir())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	method := strings.ToUpper(req.GetString("method", ""))
	routes := make([]routeInfo, 0, project.Table.Len())
	for _, e := range project.Table.Entries() {
		if method != "" && e.Method != method {
			continue
		}
		routes = append(routes, newRouteInfo(&e))
	}

	return jsonResult(map[string]any{
		"success":  true,
		"root":     project.Root,
		"routes":   routes,
		"total":    len(routes),
		"warnings": warningStrings(project.Warnings),
	})
}

func (s *Server) handleResolveRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil || path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	method := strings.ToUpper(req.GetString("method", "GET"))

	project, err := ember.LoadProject(s.dir())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	normalized := ember.NormalizePath(path)
	out := map[string]any{
		"success":    true,
		"method":     method,
		"path":       path,
		"normalized": normalized.String(),
		"matched":    false,
	}

	if m, ok := project.Dispatcher().Resolve(method, path); ok {
		info := newRouteInfo(m.Entry)
		info.Values = m.Params.Map()
		out["matched"] = true
		out["route"] = info
		return jsonResult(out)
	}

	if project.Config.RawFallback && method == "GET" {
		if f, _ := project.Table.Find(normalized.Segments); f != nil {
			out["fallback"] = f.RelativePath
		}
	}
	return jsonResult(out)
}

func (s *Server) handleScanWarnings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := ember.LoadProject(s.dir())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	overlaps := make([]map[string]string, 0)
	if project.Scan != nil {
		for _, o := range project.Scan.Overlaps {
			overlaps = append(overlaps, map[string]string{
				"method":   o.Method,
				"pattern":  o.Pattern,
				"winner":   o.First,
				"shadowed": o.Second,
			})
		}
	}

	warnings := warningStrings(project.Warnings)
	return jsonResult(map[string]any{
		"success":  true,
		"warnings": warnings,
		"overlaps": overlaps,
		"clean":    len(warnings) == 0,
	})
}

func (s *Server) handleGenerateRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path is required"), nil
	}

	cfg, err := ember.LoadConfig(s.dir())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind := scanner.KindAPI
	if req.GetBool("ui", false) {
		kind = scanner.KindUI
	}

	result, err := scanner.Scaffold(scanner.ScaffoldConfig{
		Root:    cfg.RouteRoot(s.dir()),
		Path:    path,
		Methods: strings.Split(req.GetString("methods", "GET"), ","),
		Kind:    kind,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(map[string]any{
		"success":   true,
		"file":      result.File,
		"pattern":   result.Pattern,
		"methods":   result.Methods,
		"next_step": "run ember generate to register the handlers",
	})
}

func (s *Server) handleInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := s.dir()
	info := map[string]any{
		"success":    true,
		"version":    version.GetVersion(),
		"has_config": fileExists(filepath.Join(dir, ember.ConfigFileName)),
		"has_go_mod": fileExists(filepath.Join(dir, "go.mod")),
	}
	if module, err := scanner.GetModuleName(dir); err == nil {
		info["module"] = module
	}

	project, err := ember.LoadProject(dir)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info["route_root"] = project.Root
	info["routes"] = project.Table.Len()
	if project.Scan != nil {
		info["files"] = len(project.Scan.Files)
		info["handlers"] = project.Scan.HandlerCount()
	}
	info["methods"] = methodCounts(project.Table)

	return jsonResult(info)
}

func (s *Server) dir() string {
	if s.workdir == "" {
		return "."
	}
	return s.workdir
}

func methodCounts(t *ember.Table) map[string]int {
	counts := make(map[string]int)
	for _, e := range t.Entries() {
		if route.IsVerb(e.Method) {
			counts[e.Method]++
		}
	}
	return counts
}

func warningStrings(warnings []ember.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
