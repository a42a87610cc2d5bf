package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audioqc/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external binary dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			requirements := []deps.Requirement{
				{
					Name:        "ffmpeg",
					Command:     firstNonEmpty(cfg.Analysis.FFmpegBinary, "ffmpeg"),
					Description: "Runs the loudness, statistics, and spectral measurements",
				},
				{
					Name:        "ffprobe",
					Command:     firstNonEmpty(cfg.Analysis.FFprobeBinary, "ffprobe"),
					Description: "Reads codec, bitrate, and container metadata",
					Optional:    true,
				},
			}
			statuses := deps.CheckBinaries(requirements)

			if jsonOutput {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					state := "ok"
					if !status.Available {
						state = "missing"
						if status.Optional {
							state = "missing (optional)"
						}
					}
					detail := status.Detail
					if detail == "" {
						detail = status.Command
					}
					rows = append(rows, []string{status.Name, state, detail, status.Description})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Dependency", "State", "Detail", "Purpose"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
			}

			for _, status := range statuses {
				if !status.Available && !status.Optional {
					return fmt.Errorf("required dependency missing: %s", status.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit dependency status as JSON")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
