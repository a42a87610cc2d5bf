package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"audioqc/internal/pipeline"
	"audioqc/internal/report"
	"audioqc/internal/scoring"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		profileFlag  string
		noCache      bool
		timeoutSecs  int
		maxProcesses int
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze an audio file or directory tree",
		Long: `Analyze measures loudness, dynamics, spectral content, and clipping for
every audio file under the given path, scores each file against the
selected profile, and writes the configured report documents.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger()
			if err != nil {
				return err
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			profileName := strings.TrimSpace(profileFlag)
			if profileName == "" {
				profileName = cfg.Scoring.Profile
			}
			profile, err := scoring.ParseProfile(profileName)
			if err != nil {
				return err
			}

			// Flag overrides apply to this invocation only.
			runCfg := *cfg
			if timeoutSecs > 0 {
				runCfg.Analysis.TimeoutSeconds = timeoutSecs
			}
			if maxProcesses > 0 {
				runCfg.Analysis.MaxProcesses = maxProcesses
			}

			runner := pipeline.NewRunner(&runCfg, log)
			outcome, err := runner.Run(cmd.Context(), pipeline.Options{
				Root:    root,
				Profile: profile,
				NoCache: noCache,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, outcome)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Summary(outcome.Analyses))
			for _, skipped := range outcome.SkippedFiles {
				fmt.Fprintf(out, "Skipped: %s\n", skipped)
			}
			for _, path := range outcome.ReportPaths {
				fmt.Fprintf(out, "Report written: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileFlag, "profile", "p", "", "Scoring profile (pop, broadcast, archive)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Re-analyze every file, ignoring the cache")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Per-process timeout in seconds (overrides config)")
	cmd.Flags().IntVar(&maxProcesses, "max-procs", 0, "Maximum concurrent analysis processes (overrides config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full run outcome as JSON")

	return cmd
}
