package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
		return nil
	},
}

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List packaging engines and formats for this host",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		for _, name := range build.All() {
			marker := " "
			if name == cfg.Backend.Engine {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s\n", marker, name)
		}
		formats := build.SupportedFormats(runtime.GOOS)
		names := make([]string, len(formats))
		for i, f := range formats {
			names[i] = string(f)
		}
		fmt.Fprintf(w, "\nformats on %s: %s\n", runtime.GOOS, strings.Join(names, ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, enginesCmd)
}
