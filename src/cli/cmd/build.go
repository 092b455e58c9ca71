package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/packwright/src/badge"
	"github.com/sofmeright/packwright/src/build"
	"github.com/sofmeright/packwright/src/output"
	"github.com/sofmeright/packwright/src/version"
)

var (
	buildFormat  string
	buildEngine  string
	buildSpec    string
	buildHidden  []string
	buildTimeout string
	buildProject bool
	buildShowLog bool
	buildBadge   bool
	buildOutDir  string
)

var buildCmd = &cobra.Command{
	Use:   "build <source.py|project-dir> [-- backend-args...]",
	Short: "Package a script or a project into an executable",
	Long: `Package a single Python script, or a whole project directory, into a
standalone executable.

A directory (or --project) runs the full pipeline: structure validation,
dependency analysis, argument optimization, then the build. Arguments after
"--" are passed to the backend.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", "", "output format: exe, app or binary (default: from config)")
	buildCmd.Flags().StringVar(&buildEngine, "engine", "", "packaging engine (default: from config)")
	buildCmd.Flags().StringVar(&buildSpec, "spec", "", "build from this spec file instead of the source")
	buildCmd.Flags().StringSliceVar(&buildHidden, "hidden-import", nil, "module to add to the spec's hiddenimports (repeatable)")
	buildCmd.Flags().StringVar(&buildTimeout, "timeout", "", "build timeout, e.g. 15m (default: from config)")
	buildCmd.Flags().BoolVar(&buildProject, "project", false, "treat the argument as a project directory")
	buildCmd.Flags().BoolVar(&buildShowLog, "log", false, "print the captured build log")
	buildCmd.Flags().BoolVar(&buildBadge, "badge", false, "write a build status badge")
	buildCmd.Flags().StringVarP(&buildOutDir, "output-dir", "o", "", "artifact directory (default: from config)")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	target, extra := splitDashArgs(cmd, args)
	if buildOutDir != "" {
		cfg.Build.OutputDir = buildOutDir
	}
	format := cfg.Build.Format
	if buildFormat != "" {
		format = buildFormat
	}
	timeout, err := parseTimeout(buildTimeout, cfg.Build.Timeout)
	if err != nil {
		return err
	}
	cfg.Build.Timeout = timeout
	extra = append(append([]string(nil), cfg.Build.ExtraArgs...), extra...)

	eng, err := newEngine(cfg, buildEngine)
	if err != nil {
		return err
	}
	runners := newRunnerFactory(cfg, eng, liveOutput())
	ctx := commandContext(cmd)
	w := cmd.OutOrStdout()
	color := output.UseColor()
	printHeader(w, eng, color, output.KV{Key: "format", Value: format}, output.KV{Key: "output", Value: cfg.Build.OutputDir})

	var res *build.BuildResult
	if buildProject || isDir(target) {
		res = newPipeline(cfg, runners).BuildWithValidation(ctx, target, format, extra)
	} else {
		f, err := build.ParseFormat(format)
		if err != nil {
			return err
		}
		opts := []build.JobOption{build.WithExtraArgs(extra...), build.WithTimeout(timeout)}
		if buildSpec != "" {
			opts = append(opts, build.WithSpecFile(buildSpec), build.WithHiddenImports(buildHidden...))
		}
		res = runners().Run(ctx, build.NewJob(target, f, opts...))
	}

	if buildShowLog || (!res.Success && verbose) {
		output.SectionStart(w, "pw_build_log", "Build log")
		fmt.Fprintln(w, res.Log)
		output.SectionEnd(w, "pw_build_log")
	}
	output.SectionBuild(w, res, color)

	if buildBadge {
		if err := writeBadge("build", badge.ForBuild(res)); err != nil {
			return err
		}
	}
	if !res.Success {
		return fmt.Errorf("build failed (%s)", res.Kind)
	}
	return nil
}

// splitDashArgs separates positional args from those after "--".
func splitDashArgs(cmd *cobra.Command, args []string) (string, []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args[0], args[1:]
	}
	return args[0], args[dash:]
}

// parseTimeout reads a flag duration, falling back to def when unset.
func parseTimeout(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid --timeout %q", s)
	}
	return d, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// printHeader writes the banner, CI context and run parameters.
func printHeader(w io.Writer, eng build.Engine, color bool, kv ...output.KV) {
	output.Banner(w, output.BannerInfo{
		Version: version.Version,
		Commit:  version.Commit,
		Backend: backendPath(cfg, eng),
		Engine:  eng.Name(),
	}, color)
	output.CIHeader(w)
	output.ContextBlock(w, kv)
}

func writeBadge(name string, b badge.Badge) error {
	eng, err := newBadgeEngine(cfg.Badges)
	if err != nil {
		return err
	}
	path, err := eng.WriteFile(cfg.Badges.Output, name, b)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  badge → %s\n", path)
	return nil
}
