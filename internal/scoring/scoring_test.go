package scoring

import (
	"math"
	"strings"
	"testing"

	"audioqc/internal/metrics"
)

// goodRecord returns a complete record that resolves to Good and lands
// inside the Pop profile's elite bands.
func goodRecord() metrics.FileMetrics {
	return metrics.FileMetrics{
		FilePath:               "/music/test.flac",
		FileSizeBytes:          1_000_000,
		Lra:                    metrics.Float64(9.5),
		PeakAmplitudeDb:        metrics.Float64(-3.0),
		OverallRmsDb:           metrics.Float64(-18.0),
		RmsDbAbove16k:          metrics.Float64(-58.0),
		RmsDbAbove18k:          metrics.Float64(-62.0),
		RmsDbAbove20k:          metrics.Float64(-80.0),
		IntegratedLoudnessLufs: metrics.Float64(-14.0),
		TruePeakDbtp:           metrics.Float64(-3.5),
		SampleRateHz:           metrics.Uint32(44100),
		BitrateKbps:            metrics.Uint32(900),
		Channels:               metrics.Uint32(2),
		CodecName:              metrics.String("flac"),
		ContainerFormat:        metrics.String("flac"),
		DurationSeconds:        metrics.Float64(60),
	}
}

func TestStatusGood(t *testing.T) {
	m := goodRecord()
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.Status != StatusGood {
		t.Fatalf("status: %s (%s)", analysis.Status, analysis.Notes)
	}
}

func TestStatusIncompleteWhenTwoCriticalFieldsMissing(t *testing.T) {
	m := goodRecord()
	m.Lra = nil
	m.RmsDbAbove18k = nil
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.Status != StatusIncomplete {
		t.Fatalf("status: %s", analysis.Status)
	}
	if analysis.QualityScore > 45 {
		t.Fatalf("Incomplete must cap at 45, got %d", analysis.QualityScore)
	}
}

func TestStatusSuspiciousForLosslessWithDeadHighBand(t *testing.T) {
	m := goodRecord()
	m.RmsDbAbove18k = metrics.Float64(-90.0)
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.Status != StatusSuspicious {
		t.Fatalf("status: %s", analysis.Status)
	}
	if analysis.QualityScore > 25 {
		t.Fatalf("Suspicious must cap at 25, got %d", analysis.QualityScore)
	}
}

func TestStatusProcessedBeatsLaterRules(t *testing.T) {
	m := goodRecord()
	m.FilePath = "/music/test.opus"
	m.CodecName = metrics.String("opus")
	m.ContainerFormat = metrics.String("ogg")
	m.RmsDbAbove18k = metrics.Float64(-82.0)
	m.BitrateKbps = metrics.Uint32(96)
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.Status != StatusProcessed {
		t.Fatalf("Processed must win over LowBitrate, got %s", analysis.Status)
	}
}

func TestStatusClippedFromTruePeak(t *testing.T) {
	m := goodRecord()
	m.TruePeakDbtp = metrics.Float64(0.2)
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.Status != StatusClipped {
		t.Fatalf("status: %s", analysis.Status)
	}
	if analysis.QualityScore > 85 {
		t.Fatalf("Clipped must cap at 85, got %d", analysis.QualityScore)
	}
}

func TestStatusClippedFallsBackToSamplePeak(t *testing.T) {
	m := goodRecord()
	m.TruePeakDbtp = nil
	m.PeakAmplitudeDb = metrics.Float64(0.0)
	if got := NewScorer(ProfilePop).Analyze(&m).Status; got != StatusClipped {
		t.Fatalf("status: %s", got)
	}
}

func TestStatusTruePeakRisk(t *testing.T) {
	m := goodRecord()
	m.TruePeakDbtp = metrics.Float64(-0.5)
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.Status != StatusTruePeakRisk {
		t.Fatalf("status: %s", analysis.Status)
	}
	if analysis.QualityScore > 92 {
		t.Fatalf("TruePeakRisk must cap at 92, got %d", analysis.QualityScore)
	}
}

func TestStatusLoudnessOffTarget(t *testing.T) {
	m := goodRecord()
	m.IntegratedLoudnessLufs = metrics.Float64(-25.0)
	if got := NewScorer(ProfilePop).Analyze(&m).Status; got != StatusLoudnessOffTarget {
		t.Fatalf("status: %s", got)
	}
}

func TestStatusLowBitrateForLossyUnderPop(t *testing.T) {
	m := goodRecord()
	m.FilePath = "/music/test.mp3"
	m.CodecName = metrics.String("mp3")
	m.ContainerFormat = metrics.String("mp3")
	m.BitrateKbps = metrics.Uint32(128)
	if got := NewScorer(ProfilePop).Analyze(&m).Status; got != StatusLowBitrate {
		t.Fatalf("status: %s", got)
	}
}

func TestStatusLowSampleRateAndMono(t *testing.T) {
	m := goodRecord()
	m.SampleRateHz = metrics.Uint32(22050)
	if got := NewScorer(ProfilePop).Analyze(&m).Status; got != StatusLowSampleRate {
		t.Fatalf("status: %s", got)
	}

	m = goodRecord()
	m.Channels = metrics.Uint32(1)
	if got := NewScorer(ProfilePop).Analyze(&m).Status; got != StatusMono {
		t.Fatalf("status: %s", got)
	}
}

func TestStatusDynamicsBands(t *testing.T) {
	m := goodRecord()
	m.Lra = metrics.Float64(2.0)
	if got := NewScorer(ProfilePop).Analyze(&m).Status; got != StatusSeverelyCompressed {
		t.Fatalf("status: %s", got)
	}

	m = goodRecord()
	m.Lra = metrics.Float64(4.5)
	if got := NewScorer(ProfilePop).Analyze(&m).Status; got != StatusLowDynamic {
		t.Fatalf("status: %s", got)
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	scorer := NewScorer(ProfilePop)
	inputs := []metrics.FileMetrics{
		goodRecord(),
		{FilePath: "/x.mp3"},
		{FilePath: "/x.flac", ErrorCodes: []string{"E_PROBE", "E_PARSE_LRA", "E_PARSE_STATS"}},
	}
	worst := goodRecord()
	worst.BitrateKbps = metrics.Uint32(32)
	worst.SampleRateHz = metrics.Uint32(8000)
	worst.Channels = metrics.Uint32(1)
	inputs = append(inputs, worst)

	for i := range inputs {
		score := scorer.Analyze(&inputs[i]).QualityScore
		if score < 0 || score > 99 {
			t.Fatalf("input %d: score %d outside [0, 99]", i, score)
		}
	}
}

func TestScoreNeverReachesHundred(t *testing.T) {
	m := goodRecord()
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.QualityScore > 99 {
		t.Fatalf("score %d", analysis.QualityScore)
	}
}

func TestEliteGatePassAllowsAbove90(t *testing.T) {
	m := goodRecord()
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.QualityScore <= 90 {
		t.Fatalf("elite record should score above 90, got %d (%s)", analysis.QualityScore, analysis.Notes)
	}
}

func TestEliteGateFailureCompressesInto85To89(t *testing.T) {
	// Lossy file otherwise elite: bitrate exactly at the high threshold
	// fails the lossy elite condition while the raw score stays above 90.
	m := goodRecord()
	m.FilePath = "/music/test.mp3"
	m.CodecName = metrics.String("mp3")
	m.ContainerFormat = metrics.String("mp3")
	m.BitrateKbps = metrics.Uint32(256)
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if analysis.Status != StatusGood {
		t.Fatalf("setup: expected Good, got %s", analysis.Status)
	}
	if analysis.QualityScore < 85 || analysis.QualityScore > 89 {
		t.Fatalf("gate-failing track must land in [85, 89], got %d", analysis.QualityScore)
	}
}

func TestCompressionBandIsExact(t *testing.T) {
	scorer := NewScorer(ProfilePop)
	m := goodRecord()
	for _, raw := range []float64{90.1, 92, 95, 99, 100} {
		compressed := scorer.compressNearElite(&m, raw)
		if compressed < 85 || compressed > 89 {
			t.Fatalf("raw %.1f compressed to %.1f, outside [85, 89]", raw, compressed)
		}
	}
}

func TestMapToScore(t *testing.T) {
	cases := []struct {
		value, inMin, inMax, outMin, outMax, want float64
	}{
		{5, 0, 10, 0, 100, 50},
		{0, 0, 10, 0, 100, 0},
		{10, 0, 10, 0, 100, 100},
		{-5, 0, 10, 0, 100, 0},   // clamps below
		{15, 0, 10, 0, 100, 100}, // clamps above
		{5, 5, 5, 0, 100, 0},     // degenerate range
		{-4.5, -6, -3, 15, 10, 12.5},
	}
	for _, c := range cases {
		got := mapToScore(c.value, c.inMin, c.inMax, c.outMin, c.outMax)
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("map(%v, %v, %v, %v, %v) = %v, want %v",
				c.value, c.inMin, c.inMax, c.outMin, c.outMax, got, c.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	m := goodRecord()
	if c := confidence(&m); c != 1.0 {
		t.Fatalf("complete record confidence %v", c)
	}

	m.Lra = nil
	m.ErrorCodes = []string{"E_PARSE_LRA"}
	if c := confidence(&m); math.Abs(c-(1.0-0.18-0.08)) > 1e-9 {
		t.Fatalf("confidence %v", c)
	}

	empty := metrics.FileMetrics{
		FilePath:   "/x.flac",
		ErrorCodes: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"},
	}
	if c := confidence(&empty); c != 0.1 {
		t.Fatalf("confidence floor %v", c)
	}
}

func TestClassification(t *testing.T) {
	m := metrics.FileMetrics{FilePath: "/a/b/track.FLAC"}
	if !isLossless(&m) || isLossy(&m) {
		t.Fatal("flac extension must classify lossless")
	}

	m = metrics.FileMetrics{FilePath: "/a/b/track.bin", CodecName: metrics.String("pcm_s16le")}
	if !isLossless(&m) {
		t.Fatal("pcm codec must classify lossless")
	}

	m = metrics.FileMetrics{FilePath: "/a/b/track.mp3"}
	if isLossless(&m) || !isLossy(&m) {
		t.Fatal("mp3 must classify lossy")
	}

	// m4a extension can hold alac; the lossless codec wins.
	m = metrics.FileMetrics{FilePath: "/a/b/track.m4a", CodecName: metrics.String("alac")}
	if !isLossless(&m) || isLossy(&m) {
		t.Fatal("alac in m4a must classify lossless")
	}
}

func TestNotesReferenceFields(t *testing.T) {
	m := goodRecord()
	m.FilePath = "/music/test.mp3"
	m.CodecName = metrics.String("mp3")
	m.ContainerFormat = metrics.String("mp3")
	m.BitrateKbps = metrics.Uint32(128)
	analysis := NewScorer(ProfilePop).Analyze(&m)
	if !strings.Contains(analysis.Notes, "128 kbps") {
		t.Fatalf("notes should cite the bitrate: %q", analysis.Notes)
	}
}

func TestParseProfile(t *testing.T) {
	if p, err := ParseProfile(" Broadcast "); err != nil || p != ProfileBroadcast {
		t.Fatalf("parse: %v %v", p, err)
	}
	if _, err := ParseProfile("club"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestProfileTableIsComplete(t *testing.T) {
	for _, p := range Profiles() {
		cfg := ConfigFor(p)
		if cfg.Name != p {
			t.Fatalf("profile %s config mislabeled as %s", p, cfg.Name)
		}
		if cfg.LraPoorMax >= cfg.LraLowMax || cfg.LraExcellentMin > cfg.LraExcellentMax {
			t.Fatalf("profile %s has inverted LRA bands", p)
		}
		if cfg.TruePeakWarnDbtp > cfg.TruePeakCriticalDbtp {
			t.Fatalf("profile %s warn ceiling above critical", p)
		}
		if cfg.BitrateLowKbps >= cfg.BitrateHighKbps {
			t.Fatalf("profile %s bitrate bands inverted", p)
		}
	}
}
