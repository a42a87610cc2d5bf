// Package extract runs the per-file measurement fan-out: one loudness
// invocation, one overall statistics invocation, three band-limited RMS
// invocations, and a metadata probe, all concurrent, all isolated. A
// failed branch leaves its fields absent and contributes an error code;
// it never aborts the file.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"audioqc/internal/extproc"
	"audioqc/internal/logging"
	"audioqc/internal/media/ffprobe"
	"audioqc/internal/metrics"
)

// Error codes attached to a metrics record when a branch fails. E_TIMEOUT
// comes embedded in runner errors; the rest are per-branch fallbacks.
const (
	CodeParseLRA      = "E_PARSE_LRA"
	CodeParseLoudness = "E_PARSE_IL"
	CodeParseTruePeak = "E_PARSE_TP"
	CodeParseStats    = "E_PARSE_STATS"
	CodeParseRMS16k   = "E_PARSE_RMS16K"
	CodeParseRMS18k   = "E_PARSE_RMS18K"
	CodeParseRMS20k   = "E_PARSE_RMS20K"
	CodeProbe         = "E_PROBE"
)

var (
	lraStreamingRe   = regexp.MustCompile(`LRA:\s*([0-9.-]+)`)
	lraSummaryRe     = regexp.MustCompile(`(?m)^LRA:\s*([0-9.-]+)\s*LU\s*$`)
	integratedRe     = regexp.MustCompile(`I:\s*([-+]?(?:[0-9.]+|inf|nan))\s*LUFS`)
	truePeakRe       = regexp.MustCompile(`Peak:\s*([-+]?(?:[0-9.]+|inf|nan))\s*dBFS`)
	truePeakStreamRe = regexp.MustCompile(`TPK:\s*([-+]?(?:[0-9.]+|inf|nan))`)
	overallStatsRe   = regexp.MustCompile(`(?s)\[Parsed_astats_0 @ [^]]+\] Overall.*?Peak level dB:\s*([-+]?(?:[0-9.]+|inf|nan)).*?RMS level dB:\s*([-+]?(?:[0-9.]+|inf|nan))`)
	highpassRMSRe    = regexp.MustCompile(`(?s)\[Parsed_astats_1 @ [^]]+\] Overall.*?RMS level dB:\s*([-+]?(?:[0-9.]+|inf|nan))`)
	errorCodeRe      = regexp.MustCompile(`E_[A-Z0-9_]+`)
)

// Extractor measures audio files by driving external ffmpeg/ffprobe
// processes under a shared concurrency bound.
type Extractor struct {
	FFmpeg  string
	FFprobe string
	Timeout time.Duration
	Limiter *extproc.Limiter
	Logger  *slog.Logger
}

type loudnessResult struct {
	lra      *float64
	loudness *float64
	truePeak *float64
	codes    []string
}

type statsResult struct {
	stats metrics.AudioStats
	codes []string
}

type bandResult struct {
	rms   *float64
	codes []string
}

type probeResult struct {
	meta  ffprobe.Metadata
	codes []string
}

// ProcessFile measures one file. The only fatal failure is being unable to
// stat the file itself; every analysis branch degrades to absent fields
// plus error codes.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (metrics.FileMetrics, error) {
	log := e.Logger
	if log == nil {
		log = logging.NewNop()
	}
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return metrics.FileMetrics{}, fmt.Errorf("stat %s: %w", path, err)
	}

	var (
		wg       sync.WaitGroup
		loudness loudnessResult
		stats    statsResult
		bands    [3]bandResult
		probe    probeResult
	)
	bandFreqs := [3]uint32{16000, 18000, 20000}
	bandCodes := [3]string{CodeParseRMS16k, CodeParseRMS18k, CodeParseRMS20k}

	wg.Add(6)
	go func() {
		defer wg.Done()
		loudness = e.measureLoudness(ctx, path)
	}()
	go func() {
		defer wg.Done()
		stats = e.measureOverallStats(ctx, path)
	}()
	for i := range bands {
		go func(i int) {
			defer wg.Done()
			bands[i] = e.measureBandRMS(ctx, path, bandFreqs[i], bandCodes[i])
		}(i)
	}
	go func() {
		defer wg.Done()
		probe = e.probeMetadata(ctx, path)
	}()
	wg.Wait()

	record := metrics.FileMetrics{
		FilePath:               path,
		FileSizeBytes:          uint64(info.Size()),
		Lra:                    loudness.lra,
		IntegratedLoudnessLufs: loudness.loudness,
		TruePeakDbtp:           loudness.truePeak,
		PeakAmplitudeDb:        stats.stats.PeakDb,
		OverallRmsDb:           stats.stats.RmsDb,
		RmsDbAbove16k:          bands[0].rms,
		RmsDbAbove18k:          bands[1].rms,
		RmsDbAbove20k:          bands[2].rms,
		SampleRateHz:           probe.meta.SampleRateHz,
		BitrateKbps:            probe.meta.BitrateKbps,
		Channels:               probe.meta.Channels,
		CodecName:              probe.meta.CodecName,
		ContainerFormat:        probe.meta.ContainerFormat,
		DurationSeconds:        probe.meta.DurationSeconds,
		ProcessingTimeMs:       uint64(time.Since(start).Milliseconds()),
	}

	var codes []string
	codes = append(codes, loudness.codes...)
	codes = append(codes, stats.codes...)
	for i := range bands {
		codes = append(codes, bands[i].codes...)
	}
	codes = append(codes, probe.codes...)
	record.ErrorCodes = dedupeSorted(codes)

	if len(record.ErrorCodes) > 0 {
		log.Warn("extraction degraded",
			logging.String("file", path),
			logging.Any("error_codes", record.ErrorCodes))
	}
	return record, nil
}

func (e *Extractor) measureLoudness(ctx context.Context, path string) loudnessResult {
	stderr, err := e.runFFmpeg(ctx, path, "-filter_complex", "ebur128=peak=true")
	if err != nil {
		return loudnessResult{codes: []string{errorCode(err, CodeParseLRA)}}
	}

	var out loudnessResult
	if v, ok := parseLRA(stderr); ok {
		out.lra = v
	} else {
		out.codes = append(out.codes, CodeParseLRA)
	}
	if v, ok := lastMatch(integratedRe, stderr); ok {
		out.loudness = v
	} else {
		out.codes = append(out.codes, CodeParseLoudness)
	}
	if v, ok := parseTruePeak(stderr); ok {
		out.truePeak = v
	} else {
		out.codes = append(out.codes, CodeParseTruePeak)
	}
	return out
}

func (e *Extractor) measureOverallStats(ctx context.Context, path string) statsResult {
	stderr, err := e.runFFmpeg(ctx, path, "-filter:a", "astats=metadata=1")
	if err != nil {
		return statsResult{codes: []string{errorCode(err, CodeParseStats)}}
	}
	caps := overallStatsRe.FindStringSubmatch(stderr)
	if caps == nil {
		return statsResult{codes: []string{CodeParseStats}}
	}
	return statsResult{stats: metrics.AudioStats{
		PeakDb: parseMetricToken(caps[1]),
		RmsDb:  parseMetricToken(caps[2]),
	}}
}

func (e *Extractor) measureBandRMS(ctx context.Context, path string, freq uint32, fallbackCode string) bandResult {
	filter := fmt.Sprintf("highpass=f=%d,astats=metadata=1", freq)
	stderr, err := e.runFFmpeg(ctx, path, "-filter:a", filter)
	if err != nil {
		return bandResult{codes: []string{errorCode(err, fallbackCode)}}
	}
	caps := highpassRMSRe.FindStringSubmatch(stderr)
	if caps == nil {
		return bandResult{codes: []string{fallbackCode}}
	}
	rms := parseMetricToken(caps[1])
	if rms == nil {
		return bandResult{codes: []string{fallbackCode}}
	}
	return bandResult{rms: rms}
}

func (e *Extractor) probeMetadata(ctx context.Context, path string) probeResult {
	client := &ffprobe.Client{Binary: e.FFprobe, Timeout: e.Timeout, Limiter: e.Limiter}
	meta, err := client.Probe(ctx, path)
	if err != nil {
		return probeResult{codes: []string{errorCode(err, CodeProbe)}}
	}
	return probeResult{meta: meta}
}

// runFFmpeg executes one analysis pass and returns the diagnostic stream,
// where every filter writes its report.
func (e *Extractor) runFFmpeg(ctx context.Context, path string, filterArgs ...string) (string, error) {
	if e.Limiter != nil {
		release := e.Limiter.Acquire()
		defer release()
	}
	args := append([]string{"-i", path}, filterArgs...)
	args = append(args, "-f", "null", "-")
	result, err := extproc.Run(ctx, extproc.Command{
		Binary:  e.FFmpeg,
		Args:    args,
		Timeout: e.Timeout,
	})
	if err != nil {
		return "", err
	}
	return result.Stderr, nil
}

// parseLRA prefers the end-of-run summary line and falls back to the last
// streaming value.
func parseLRA(stderr string) (*float64, bool) {
	if caps := lraSummaryRe.FindStringSubmatch(stderr); caps != nil {
		if v := parseMetricToken(caps[1]); v != nil {
			return v, true
		}
	}
	return lastMatch(lraStreamingRe, stderr)
}

func parseTruePeak(stderr string) (*float64, bool) {
	if v, ok := lastMatch(truePeakRe, stderr); ok {
		return v, true
	}
	return lastMatch(truePeakStreamRe, stderr)
}

// lastMatch returns the final parsable capture of re in text. Progress
// lines repeat throughout the run; the last one reflects the whole file.
func lastMatch(re *regexp.Regexp, text string) (*float64, bool) {
	var last *float64
	for _, caps := range re.FindAllStringSubmatch(text, -1) {
		if v := parseMetricToken(caps[1]); v != nil {
			last = v
		}
	}
	return last, last != nil
}

// parseMetricToken converts one numeric token. Infinities are valid
// measurements (silence reports infinite attenuation); a nan token means
// the filter had nothing to measure, so the field stays absent.
func parseMetricToken(token string) *float64 {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return metrics.Float64(v)
}

// errorCode pulls an embedded machine-readable code out of err, falling
// back to the branch's own code.
func errorCode(err error, fallback string) string {
	if code := errorCodeRe.FindString(err.Error()); code != "" {
		return code
	}
	return fallback
}

func dedupeSorted(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
