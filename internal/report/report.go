// Package report renders scored analyses into the run's output documents:
// a CSV ranking, a JSONL stream, a SARIF document for code-review style
// tooling, the raw metrics array, and a console summary.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"audioqc/internal/metrics"
	"audioqc/internal/safeio"
	"audioqc/internal/scoring"
)

// File names written into the report directory.
const (
	CSVFileName     = "quality_report.csv"
	JSONLFileName   = "quality_report.jsonl"
	SARIFFileName   = "quality_report.sarif"
	RawJSONFileName = "analysis_data.json"
)

var csvHeader = []string{
	"quality_score", "status", "profile", "confidence", "file_path", "notes",
	"integrated_lufs", "true_peak_dbtp", "lra_lu", "peak_db", "overall_rms_db",
	"rms_db_above_16k", "rms_db_above_18k", "rms_db_above_20k",
	"sample_rate_hz", "bitrate_kbps", "channels",
	"file_size_bytes", "processing_time_ms", "cache_hit", "error_codes",
}

// sortedByScore returns a copy ordered best-first.
func sortedByScore(analyses []scoring.Analysis) []scoring.Analysis {
	out := make([]scoring.Analysis, len(analyses))
	copy(out, analyses)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QualityScore > out[j].QualityScore
	})
	return out
}

// WriteCSV writes the score-descending CSV ranking.
func WriteCSV(analyses []scoring.Analysis, path string, safeMode bool) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range sortedByScore(analyses) {
		row := []string{
			strconv.Itoa(a.QualityScore),
			string(a.Status),
			string(a.Profile),
			strconv.FormatFloat(a.Confidence, 'f', 2, 64),
			a.FilePath,
			a.Notes,
			fmtFloat(a.IntegratedLoudnessLufs),
			fmtFloat(a.TruePeakDbtp),
			fmtFloat(a.Lra),
			fmtFloat(a.PeakAmplitudeDb),
			fmtFloat(a.OverallRmsDb),
			fmtFloat(a.RmsDbAbove16k),
			fmtFloat(a.RmsDbAbove18k),
			fmtFloat(a.RmsDbAbove20k),
			fmtUint32(a.SampleRateHz),
			fmtUint32(a.BitrateKbps),
			fmtUint32(a.Channels),
			strconv.FormatUint(a.FileSizeBytes, 10),
			strconv.FormatUint(a.ProcessingTimeMs, 10),
			strconv.FormatBool(a.CacheHit),
			joinCodes(a.ErrorCodes),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return safeio.AtomicWriteFile(path, buf.Bytes(), safeMode)
}

// WriteJSONL writes one analysis per line, score-descending.
func WriteJSONL(analyses []scoring.Analysis, path string, safeMode bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range sortedByScore(analyses) {
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("encode analysis for %s: %w", a.FilePath, err)
		}
	}
	return safeio.AtomicWriteFile(path, buf.Bytes(), safeMode)
}

// WriteRawMetrics writes the measurement records as one JSON array, the
// same document shape the cache stores.
func WriteRawMetrics(records []metrics.FileMetrics, path string, safeMode bool) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode raw metrics: %w", err)
	}
	return safeio.AtomicWriteFile(path, data, safeMode)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func fmtUint32(v *uint32) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func joinCodes(codes []string) string {
	var buf bytes.Buffer
	for i, code := range codes {
		if i > 0 {
			buf.WriteByte(';')
		}
		buf.WriteString(code)
	}
	return buf.String()
}

// baseName trims the directory for display.
func baseName(path string) string {
	return filepath.Base(path)
}
