package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/output"
	"github.com/sofmeright/packwright/src/structure"
)

var validateEntry string

var validateCmd = &cobra.Command{
	Use:   "validate [project-dir]",
	Short: "Check project layout and entry point",
	Long: `Score the project against the structure checklist and scan it for
committed secrets. With --entry, check a single entry file instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateEntry, "entry", "", "validate this entry file only")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	v := newStructureValidator(cfg)
	var (
		rep   *structure.Report
		title = "Structure"
	)
	if validateEntry != "" {
		rep = v.ValidateEntryPoint(validateEntry)
		title = "Entry point"
	} else {
		rep = v.Validate(rootArg(args))
	}
	output.SectionStructure(cmd.OutOrStdout(), title, rep, output.UseColor())
	if !rep.Valid {
		return fmt.Errorf("validation failed: %d error(s)", len(rep.Errors))
	}
	return nil
}
