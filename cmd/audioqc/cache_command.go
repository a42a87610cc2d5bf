package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"audioqc/internal/analysiscache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Analysis cache utilities",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

type cacheStats struct {
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
	Version   int    `json:"version"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"sizeBytes"`
	Modified  string `json:"modified,omitempty"`
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show analysis cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger()
			if err != nil {
				return err
			}

			path := cfg.Paths.CachePath
			stats := cacheStats{Path: path, Version: analysiscache.Version}
			if info, err := os.Stat(path); err == nil {
				stats.Exists = true
				stats.SizeBytes = info.Size()
				stats.Modified = info.ModTime().UTC().Format(time.RFC3339)
			}
			cache := analysiscache.Load(path, log)
			stats.Version = cache.Version
			stats.Entries = cache.Len()

			if jsonOutput {
				return writeJSON(cmd, stats)
			}

			rows := [][]string{
				{"Path", stats.Path},
				{"Exists", yesNo(stats.Exists)},
				{"Version", strconv.Itoa(stats.Version)},
				{"Entries", strconv.Itoa(stats.Entries)},
				{"Size (bytes)", strconv.FormatInt(stats.SizeBytes, 10)},
				{"Modified", stats.Modified},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit statistics as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the analysis cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.Paths.CachePath
			if err := os.Remove(path); err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "Cache already empty: %s\n", path)
					return nil
				}
				return fmt.Errorf("remove cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cache: %s\n", path)
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
