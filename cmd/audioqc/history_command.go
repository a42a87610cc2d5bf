package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"audioqc/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent analysis runs",
		Long: `History lists recent runs recorded in the run-history database.
With a run id it shows the per-file results of that run instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.Paths.HistoryPath)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(args) == 1 {
				return showRunResults(cmd, store, args[0], jsonOutput)
			}
			return showRecentRuns(cmd, store, limit, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit history as JSON")
	return cmd
}

func showRecentRuns(cmd *cobra.Command, store *history.Store, limit int, jsonOutput bool) error {
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if jsonOutput {
		return writeJSON(cmd, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.ID,
			run.Root,
			run.Profile,
			strconv.Itoa(run.FileCount),
			strconv.Itoa(run.CacheHits),
			fmt.Sprintf("%.1f", run.MeanScore),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Started", "Run ID", "Root", "Profile", "Files", "Hits", "Mean"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}

func showRunResults(cmd *cobra.Command, store *history.Store, runID string, jsonOutput bool) error {
	results, err := store.ResultsForRun(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	if jsonOutput {
		return writeJSON(cmd, results)
	}
	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No results recorded for run %s.\n", runID)
		return nil
	}

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			strconv.Itoa(result.Score),
			result.Status,
			fmt.Sprintf("%.2f", result.Confidence),
			yesNo(result.CacheHit),
			result.FilePath,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Score", "Status", "Confidence", "Cached", "File"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
