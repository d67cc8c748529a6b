// Package version provides version information for the ember CLI.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is set via ldflags during build.
var Version = "dev"

// GeneratorSchemaVersion is bumped when the generated registration code
// changes shape; generated files carry it in their header.
const GeneratorSchemaVersion = 1

// GetVersion returns the current version string. Binaries installed with
// "go install module@version" report the module version instead of "dev".
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}

// GetGeneratorSchemaVersion returns the current generator schema version.
func GetGeneratorSchemaVersion() int {
	return GeneratorSchemaVersion
}

// String returns the version line printed by "ember version".
func String() string {
	return fmt.Sprintf("ember %s (generator schema %d)", GetVersion(), GeneratorSchemaVersion)
}
