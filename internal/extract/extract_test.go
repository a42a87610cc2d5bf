package extract

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"audioqc/internal/extproc"
)

const ebur128Output = `[Parsed_ebur128_0 @ 0x55f] t: 1.0 TARGET:-23 LUFS M: -16.2 S: -15.9 I: -16.0 LUFS LRA: 1.8 LU FTPK: -4.1 -4.0 dBFS TPK: -2.2 -2.1 dBFS
[Parsed_ebur128_0 @ 0x55f] t: 2.0 TARGET:-23 LUFS M: -15.1 S: -14.9 I: -15.0 LUFS LRA: 2.4 LU FTPK: -3.4 -3.3 dBFS TPK: -1.3 -1.2 dBFS
[Parsed_ebur128_0 @ 0x55f] Summary:

  Integrated loudness:
I: -14.2 LUFS
    Threshold: -24.6 LUFS

  Loudness range:
LRA: 5.3 LU
    Threshold: -34.6 LUFS

  True peak:
Peak: -0.4 dBFS
`

const astatsOutput = `[Parsed_astats_0 @ 0x561] Overall
[Parsed_astats_0 @ 0x561] DC offset: 0.000001
[Parsed_astats_0 @ 0x561] Peak level dB: -0.300000
[Parsed_astats_0 @ 0x561] RMS level dB: -12.400000
[Parsed_astats_1 @ 0x562] Overall
[Parsed_astats_1 @ 0x562] Peak level dB: -31.100000
[Parsed_astats_1 @ 0x562] RMS level dB: -62.700000
`

func TestParseLRAPrefersSummary(t *testing.T) {
	v, ok := parseLRA(ebur128Output)
	if !ok || *v != 5.3 {
		t.Fatalf("expected summary LRA 5.3, got %v ok=%v", v, ok)
	}
}

func TestParseLRAFallsBackToLastStreamingValue(t *testing.T) {
	streaming := `[Parsed_ebur128_0] t: 1.0 I: -16.0 LUFS LRA: 1.8 LU
[Parsed_ebur128_0] t: 2.0 I: -15.0 LUFS LRA: 2.4 LU
`
	v, ok := parseLRA(streaming)
	if !ok || *v != 2.4 {
		t.Fatalf("expected last streaming LRA 2.4, got %v ok=%v", v, ok)
	}
}

func TestIntegratedLoudnessTakesLastValue(t *testing.T) {
	v, ok := lastMatch(integratedRe, ebur128Output)
	if !ok || *v != -14.2 {
		t.Fatalf("expected summary loudness -14.2, got %v ok=%v", v, ok)
	}
}

func TestTruePeakPrefersSummaryOverStreaming(t *testing.T) {
	v, ok := parseTruePeak(ebur128Output)
	if !ok || *v != -0.4 {
		t.Fatalf("expected summary peak -0.4, got %v ok=%v", v, ok)
	}

	streaming := "[Parsed_ebur128_0] t: 2.0 TPK: -1.3 -1.2 dBFS\n"
	v, ok = parseTruePeak(streaming)
	if !ok || *v != -1.3 {
		t.Fatalf("expected streaming TPK -1.3, got %v ok=%v", v, ok)
	}
}

func TestOverallStatsBlockParses(t *testing.T) {
	caps := overallStatsRe.FindStringSubmatch(astatsOutput)
	if caps == nil {
		t.Fatal("overall stats block did not match")
	}
	if peak := parseMetricToken(caps[1]); peak == nil || *peak != -0.3 {
		t.Fatalf("peak: %v", peak)
	}
	if rms := parseMetricToken(caps[2]); rms == nil || *rms != -12.4 {
		t.Fatalf("rms: %v", rms)
	}
}

func TestHighpassBlockParses(t *testing.T) {
	caps := highpassRMSRe.FindStringSubmatch(astatsOutput)
	if caps == nil {
		t.Fatal("highpass stats block did not match")
	}
	if rms := parseMetricToken(caps[1]); rms == nil || *rms != -62.7 {
		t.Fatalf("rms: %v", rms)
	}
}

func TestInfinityTokensAreValidValues(t *testing.T) {
	v := parseMetricToken("-inf")
	if v == nil || !math.IsInf(*v, -1) {
		t.Fatalf("-inf rejected: %v", v)
	}
	v = parseMetricToken("inf")
	if v == nil || !math.IsInf(*v, 1) {
		t.Fatalf("inf rejected: %v", v)
	}
}

func TestNanTokenIsAbsentNotError(t *testing.T) {
	if v := parseMetricToken("nan"); v != nil {
		t.Fatalf("nan must parse as absent, got %v", *v)
	}
}

func TestErrorCodeExtraction(t *testing.T) {
	err := errors.New("process killed: E_TIMEOUT after 10m0s")
	if code := errorCode(err, CodeParseStats); code != "E_TIMEOUT" {
		t.Fatalf("embedded code not extracted: %s", code)
	}
	err = errors.New("ffmpeg exited with exit status 1: boom")
	if code := errorCode(err, CodeParseStats); code != CodeParseStats {
		t.Fatalf("fallback code not applied: %s", code)
	}
}

func TestDedupeSorted(t *testing.T) {
	got := dedupeSorted([]string{"E_PROBE", "E_PARSE_LRA", "E_PROBE", "E_PARSE_IL"})
	want := []string{"E_PARSE_IL", "E_PARSE_LRA", "E_PROBE"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if dedupeSorted(nil) != nil {
		t.Fatal("empty input must stay nil")
	}
}

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

const probeJSON = `{"streams":[{"codec_name":"flac","sample_rate":"44100","channels":2,"bit_rate":"900000"}],"format":{"format_name":"flac","duration":"180.0","bit_rate":"910000"}}`

func TestProcessFileMergesAllBranches(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeStub(t, dir, "ffmpeg", "cat >&2 <<'REPORT'\n"+ebur128Output+astatsOutput+"REPORT\n")
	ffprobe := writeStub(t, dir, "ffprobe", "printf '%s' '"+probeJSON+"'\n")
	target := filepath.Join(dir, "song.flac")
	if err := os.WriteFile(target, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("seed target: %v", err)
	}

	extractor := &Extractor{FFmpeg: ffmpeg, FFprobe: ffprobe, Limiter: extproc.NewLimiter(4)}
	record, err := extractor.ProcessFile(context.Background(), target)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if record.Lra == nil || *record.Lra != 5.3 {
		t.Fatalf("lra: %v", record.Lra)
	}
	if record.IntegratedLoudnessLufs == nil || *record.IntegratedLoudnessLufs != -14.2 {
		t.Fatalf("loudness: %v", record.IntegratedLoudnessLufs)
	}
	if record.TruePeakDbtp == nil || *record.TruePeakDbtp != -0.4 {
		t.Fatalf("true peak: %v", record.TruePeakDbtp)
	}
	if record.PeakAmplitudeDb == nil || *record.PeakAmplitudeDb != -0.3 {
		t.Fatalf("peak amplitude: %v", record.PeakAmplitudeDb)
	}
	if record.OverallRmsDb == nil || *record.OverallRmsDb != -12.4 {
		t.Fatalf("overall rms: %v", record.OverallRmsDb)
	}
	for i, rms := range []*float64{record.RmsDbAbove16k, record.RmsDbAbove18k, record.RmsDbAbove20k} {
		if rms == nil || *rms != -62.7 {
			t.Fatalf("band %d rms: %v", i, rms)
		}
	}
	if record.BitrateKbps == nil || *record.BitrateKbps != 900 {
		t.Fatalf("bitrate: %v", record.BitrateKbps)
	}
	if record.FileSizeBytes != uint64(len("audio-bytes")) {
		t.Fatalf("size: %d", record.FileSizeBytes)
	}
	if len(record.ErrorCodes) != 0 {
		t.Fatalf("unexpected error codes: %v", record.ErrorCodes)
	}
}

func TestProcessFileIsolatesBranchFailures(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeStub(t, dir, "ffmpeg", "echo broken >&2\nexit 2\n")
	ffprobe := writeStub(t, dir, "ffprobe", "printf '%s' '"+probeJSON+"'\n")
	target := filepath.Join(dir, "song.flac")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed target: %v", err)
	}

	extractor := &Extractor{FFmpeg: ffmpeg, FFprobe: ffprobe, Limiter: extproc.NewLimiter(4)}
	record, err := extractor.ProcessFile(context.Background(), target)
	if err != nil {
		t.Fatalf("branch failures must not abort the file: %v", err)
	}

	if record.Lra != nil || record.OverallRmsDb != nil || record.RmsDbAbove18k != nil {
		t.Fatal("failed branches must leave fields absent")
	}
	if record.CodecName == nil || *record.CodecName != "flac" {
		t.Fatalf("probe branch should still succeed: %v", record.CodecName)
	}
	want := []string{CodeParseRMS16k, CodeParseRMS18k, CodeParseRMS20k, CodeParseLRA, CodeParseStats}
	got := record.ErrorCodes
	if len(got) != len(want) {
		t.Fatalf("error codes: %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("codes not sorted unique: %v", got)
		}
	}
}

func TestProcessFileSingleBandFailureLeavesRestIntact(t *testing.T) {
	dir := t.TempDir()
	// Only the 20 kHz band invocation fails; every other branch reports.
	ffmpeg := writeStub(t, dir, "ffmpeg",
		"case \"$*\" in\n"+
			"*20000*) echo broken >&2; exit 2;;\n"+
			"esac\n"+
			"cat >&2 <<'REPORT'\n"+ebur128Output+astatsOutput+"REPORT\n")
	ffprobe := writeStub(t, dir, "ffprobe", "printf '%s' '"+probeJSON+"'\n")
	target := filepath.Join(dir, "song.flac")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed target: %v", err)
	}

	extractor := &Extractor{FFmpeg: ffmpeg, FFprobe: ffprobe, Limiter: extproc.NewLimiter(4)}
	record, err := extractor.ProcessFile(context.Background(), target)
	if err != nil {
		t.Fatalf("a single failed band must not abort the file: %v", err)
	}

	if record.RmsDbAbove20k != nil {
		t.Fatalf("failed band must leave its field absent: %v", *record.RmsDbAbove20k)
	}
	if record.Lra == nil || *record.Lra != 5.3 {
		t.Fatalf("lra: %v", record.Lra)
	}
	if record.IntegratedLoudnessLufs == nil || *record.IntegratedLoudnessLufs != -14.2 {
		t.Fatalf("loudness: %v", record.IntegratedLoudnessLufs)
	}
	if record.OverallRmsDb == nil || *record.OverallRmsDb != -12.4 {
		t.Fatalf("overall rms: %v", record.OverallRmsDb)
	}
	if record.RmsDbAbove16k == nil || record.RmsDbAbove18k == nil {
		t.Fatal("surviving bands must stay populated")
	}
	if record.CodecName == nil || *record.CodecName != "flac" {
		t.Fatalf("probe branch should still succeed: %v", record.CodecName)
	}
	if !reflect.DeepEqual(record.ErrorCodes, []string{CodeParseRMS20k}) {
		t.Fatalf("expected exactly the 20k parse code, got %v", record.ErrorCodes)
	}
}

func TestProcessFileMissingTargetIsFatal(t *testing.T) {
	extractor := &Extractor{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
	if _, err := extractor.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "absent.flac")); err == nil {
		t.Fatal("expected stat failure to be fatal for the file")
	}
}
