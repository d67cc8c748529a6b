package commands

import (
	"encoding/json"
	"fmt"
	"os"
)

// jsonOutput is the global flag for JSON output mode
var jsonOutput bool

// JSONResponse is the standard response wrapper for JSON output
type JSONResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RoutesOutput represents the JSON output for the routes command
type RoutesOutput struct {
	Root        string          `json:"root"`
	Routes      []RouteOutput   `json:"routes"`
	RawFiles    []string        `json:"raw_files,omitempty"`
	Overlaps    []OverlapOutput `json:"overlaps,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	TotalRoutes int             `json:"total_routes"`
}

// RouteOutput represents a single route table entry in JSON output
type RouteOutput struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Handler string `json:"handler"`
	Shape   string `json:"shape"`
}

// OverlapOutput represents two routes matching the same requests
type OverlapOutput struct {
	Method   string `json:"method"`
	Pattern  string `json:"pattern"`
	Winner   string `json:"winner"`
	Shadowed string `json:"shadowed"`
}

// ResolveOutput represents the JSON output for the resolve command
type ResolveOutput struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Normalized string            `json:"normalized"`
	Matched    bool              `json:"matched"`
	Route      *RouteOutput      `json:"route,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
	Fallback   string            `json:"fallback,omitempty"`
}

// GenerateOutput represents the JSON output for the generate command
type GenerateOutput struct {
	Module    string   `json:"module"`
	OutputDir string   `json:"output_dir"`
	Files     []string `json:"files"`
	Handlers  int      `json:"handlers"`
	Warnings  []string `json:"warnings,omitempty"`
}

// DevOutput represents the JSON output for the dev command
type DevOutput struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OpenAPIOutput represents the JSON output for the openapi command
type OpenAPIOutput struct {
	Output string `json:"output"`
	Format string `json:"format"`
	Paths  int    `json:"paths"`
}

// InitOutput represents the JSON output for the init command
type InitOutput struct {
	Config       string   `json:"config"`
	ParentFolder string   `json:"parent_folder"`
	Port         int      `json:"port"`
	NextSteps    []string `json:"next_steps"`
}

// VersionOutput represents the JSON output for the version command
type VersionOutput struct {
	Version       string `json:"version"`
	SchemaVersion int    `json:"generator_schema_version"`
}

// printJSON outputs data as formatted JSON to stdout
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

// printSuccess outputs a successful JSON response
func printSuccess(data any) {
	printJSON(JSONResponse{Success: true, Data: data})
}

// printJSONError outputs an error as JSON
func printJSONError(err error) {
	printJSON(JSONResponse{Success: false, Error: err.Error()})
}
