package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"audioqc/internal/scoring"
)

const topRankingCount = 10

// Summary renders the console digest of a run: status distribution, the
// top-ranked files, and score statistics.
func Summary(analyses []scoring.Analysis) string {
	if len(analyses) == 0 {
		return "No analysis results to display."
	}

	var b strings.Builder
	b.WriteString("Quality analysis summary\n\n")
	b.WriteString(statusDistribution(analyses))
	b.WriteString("\n\n")
	b.WriteString(topRanking(analyses, topRankingCount))
	b.WriteString("\n\n")
	b.WriteString(scoreStatistics(analyses))
	b.WriteString("\n")
	return b.String()
}

func statusDistribution(analyses []scoring.Analysis) string {
	counts := make(map[scoring.Status]int)
	for _, a := range analyses {
		counts[a.Status]++
	}
	statuses := make([]scoring.Status, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if counts[statuses[i]] != counts[statuses[j]] {
			return counts[statuses[i]] > counts[statuses[j]]
		}
		return statuses[i] < statuses[j]
	})

	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		count := counts[status]
		pct := float64(count) / float64(len(analyses)) * 100
		rows = append(rows, []string{
			string(status),
			status.Label(),
			strconv.Itoa(count),
			fmt.Sprintf("%.1f%%", pct),
		})
	}
	return renderTable(
		[]string{"Status", "Meaning", "Files", "Share"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func topRanking(analyses []scoring.Analysis, n int) string {
	ranked := sortedByScore(analyses)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	rows := make([][]string, 0, len(ranked))
	for i, a := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(a.QualityScore),
			string(a.Status),
			baseName(a.FilePath),
		})
	}
	return renderTable(
		[]string{"#", "Score", "Status", "File"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	)
}

func scoreStatistics(analyses []scoring.Analysis) string {
	minScore, maxScore, sum := analyses[0].QualityScore, analyses[0].QualityScore, 0
	cacheHits := 0
	for _, a := range analyses {
		if a.QualityScore < minScore {
			minScore = a.QualityScore
		}
		if a.QualityScore > maxScore {
			maxScore = a.QualityScore
		}
		sum += a.QualityScore
		if a.CacheHit {
			cacheHits++
		}
	}
	mean := float64(sum) / float64(len(analyses))

	rows := [][]string{
		{"Files analyzed", strconv.Itoa(len(analyses))},
		{"Cache hits", strconv.Itoa(cacheHits)},
		{"Mean score", fmt.Sprintf("%.1f", mean)},
		{"Best score", strconv.Itoa(maxScore)},
		{"Worst score", strconv.Itoa(minScore)},
	}
	return renderTable(
		[]string{"Metric", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
