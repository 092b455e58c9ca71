package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/deps"
)

var (
	reqOutput string
	reqStdout bool
)

var requirementsCmd = &cobra.Command{
	Use:   "requirements [project-dir]",
	Short: "Generate requirements.txt from imports and manifests",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootArg(args)
		set, _, err := newAnalyzer(cfg).Analyze(commandContext(cmd), root)
		if err != nil {
			return err
		}
		if reqStdout {
			return deps.WriteRequirements(cmd.OutOrStdout(), set)
		}
		path := reqOutput
		if path == "" {
			path = filepath.Join(root, "requirements.txt")
		}
		if err := deps.GenerateRequirementsFile(path, set); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  requirements → %s (%d packages)\n", path, len(set.Merged))
		return nil
	},
}

func init() {
	requirementsCmd.Flags().StringVarP(&reqOutput, "output", "o", "", "output path (default: <project>/requirements.txt)")
	requirementsCmd.Flags().BoolVar(&reqStdout, "stdout", false, "write to stdout instead of a file")

	rootCmd.AddCommand(requirementsCmd)
}
