package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/badge"
	"github.com/sofmeright/packwright/src/deps"
	"github.com/sofmeright/packwright/src/output"
	"github.com/sofmeright/packwright/src/pipeline"
)

var (
	analyzeText  bool
	analyzeBadge bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [project-dir]",
	Short: "Assess whether a project is ready to package",
	Long: `Validate the project layout, analyze its dependencies and print an
overall readiness score with optimization advice. Nothing is built.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeText, "text", false, "print the plain-text report instead of sections")
	analyzeCmd.Flags().BoolVar(&analyzeBadge, "badge", false, "write a readiness badge")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root := rootArg(args)
	p := newPipeline(cfg, nil)
	rep, err := p.Analyze(commandContext(cmd), root)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if analyzeText {
		fmt.Fprint(w, rep.Text())
	} else {
		printProjectReport(cmd, rep)
	}

	if analyzeBadge {
		if err := writeBadge("readiness", badge.ForScore(rep.Score)); err != nil {
			return err
		}
	}
	if !rep.Ready() {
		return fmt.Errorf("%s", rep.Readiness)
	}
	return nil
}

func printProjectReport(cmd *cobra.Command, rep *pipeline.ProjectReport) {
	w := cmd.OutOrStdout()
	color := output.UseColor()
	output.SectionStructure(w, "Structure", rep.Structure, color)
	output.SectionDependencies(w, rep.Dependencies, rep.Analysis, rep.Validation, color)
	output.SectionReadiness(w, rep, color)
}

var reportCmd = &cobra.Command{
	Use:   "report [project-dir]",
	Short: "Print the dependency report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, rep, err := newAnalyzer(cfg).Analyze(commandContext(cmd), rootArg(args))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), deps.FormatReport(set, rep, deps.Validate(set, rep.Installed)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
