package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audioqc/internal/scoring"
)

func newProfilesCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "profiles",
		Short:       "List scoring profiles and their thresholds",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				configs := make([]scoring.Config, 0, len(scoring.Profiles()))
				for _, profile := range scoring.Profiles() {
					configs = append(configs, scoring.ConfigFor(profile))
				}
				return writeJSON(cmd, configs)
			}

			rows := make([][]string, 0, len(scoring.Profiles()))
			for _, profile := range scoring.Profiles() {
				pc := scoring.ConfigFor(profile)
				rows = append(rows, []string{
					string(pc.Name),
					fmt.Sprintf("%.1f LUFS", pc.TargetLoudnessLufs),
					fmt.Sprintf("[%.1f, %.1f]", pc.LoudnessSoftMin, pc.LoudnessSoftMax),
					fmt.Sprintf("%.1f / %.1f dBTP", pc.TruePeakWarnDbtp, pc.TruePeakCriticalDbtp),
					fmt.Sprintf("[%.0f, %.0f] LU", pc.LraExcellentMin, pc.LraExcellentMax),
					fmt.Sprintf("%d / %d kbps", pc.BitrateLowKbps, pc.BitrateHighKbps),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Profile", "Target", "Soft range", "TP warn/crit", "LRA sweet spot", "Bitrate low/high"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit profile thresholds as JSON")
	return cmd
}
