package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/badge"
	"github.com/sofmeright/packwright/src/batch"
	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/output"
)

var (
	batchFormat      string
	batchEngine      string
	batchConcurrency int
	batchRecursive   bool
	batchBadge       bool
	batchJUnit       bool
	batchOutDir      string
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir | file.py...> [-- backend-args...]",
	Short: "Build many scripts in parallel",
	Long: `Build every Python script in a directory, or each listed file, with a
bounded pool of backend processes. One failing build never stops the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "", "output format: exe, app or binary (default: from config)")
	batchCmd.Flags().StringVar(&batchEngine, "engine", "", "packaging engine (default: from config)")
	batchCmd.Flags().IntVarP(&batchConcurrency, "max-concurrency", "j", 0, "concurrent builds (default: from config)")
	batchCmd.Flags().BoolVarP(&batchRecursive, "recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().BoolVar(&batchBadge, "badge", false, "write a batch status badge")
	batchCmd.Flags().BoolVar(&batchJUnit, "junit", false, "write a JUnit report (always on in CI)")
	batchCmd.Flags().StringVarP(&batchOutDir, "output-dir", "o", "", "artifact directory (default: from config)")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	positional, extra := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		positional, extra = args[:dash], args[dash:]
	}
	if len(positional) == 0 {
		return fmt.Errorf("no inputs given")
	}
	if batchOutDir != "" {
		cfg.Build.OutputDir = batchOutDir
	}
	format := cfg.Build.Format
	if batchFormat != "" {
		format = batchFormat
	}
	f, err := build.ParseFormat(format)
	if err != nil {
		return err
	}
	concurrency := cfg.Batch.MaxConcurrency
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}
	extra = append(append([]string(nil), cfg.Build.ExtraArgs...), extra...)
	opts := []build.JobOption{build.WithExtraArgs(extra...), build.WithTimeout(cfg.Build.Timeout)}

	jobs, err := collectJobs(positional, f, batchRecursive || cfg.Batch.Recursive, opts)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, batchEngine)
	if err != nil {
		return err
	}
	orch := newOrchestrator(cfg, newRunnerFactory(cfg, eng, liveOutput()))
	ctx := commandContext(cmd)
	log := slog.Default()

	w := cmd.OutOrStdout()
	color := output.UseColor()
	printHeader(w, eng, color,
		output.KV{Key: "format", Value: string(f)},
		output.KV{Key: "jobs", Value: strconv.Itoa(len(jobs))},
		output.KV{Key: "workers", Value: strconv.Itoa(concurrency)},
		output.KV{Key: "output", Value: cfg.Build.OutputDir},
	)
	res, err := orch.RunAll(ctx, jobs, concurrency, func(path string, completed, total int) {
		log.Info("progress", "file", path, "completed", completed, "total", total)
	})
	if err != nil {
		return err
	}
	output.SectionBatch(w, res, color)

	if batchJUnit || output.IsCI() {
		path, err := output.WriteBatchJUnit(output.ReportDir, res)
		if err != nil {
			log.Warn("junit report not written", "error", err)
		} else {
			log.Info("junit report written", "path", path)
		}
	}
	if batchBadge {
		if err := writeBadge("batch", badge.ForBatch(res)); err != nil {
			return err
		}
	}

	switch {
	case res.Total == 0:
		return fmt.Errorf("batch: %s", res.Status)
	case res.Failed > 0:
		return fmt.Errorf("batch %s", res.Status)
	}
	return nil
}

// collectJobs expands directories into their scripts and keeps files as given.
func collectJobs(inputs []string, f build.Format, recursive bool, opts []build.JobOption) ([]build.BuildJob, error) {
	var jobs []build.BuildJob
	for _, in := range inputs {
		if !isDir(in) {
			jobs = append(jobs, build.NewJob(in, f, opts...))
			continue
		}
		found, err := batch.JobsFromDirectory(in, f, recursive, opts...)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", in, err)
		}
		jobs = append(jobs, found...)
	}
	return jobs, nil
}
