package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/ember/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ember version",
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			printSuccess(VersionOutput{
				Version:       version.GetVersion(),
				SchemaVersion: version.GetGeneratorSchemaVersion(),
			})
			return
		}
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
