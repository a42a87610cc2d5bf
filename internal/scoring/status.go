package scoring

import (
	"audioqc/internal/metrics"
)

// Status is the single verdict attached to a scored file. The token is
// what reports carry; Label renders it for humans.
type Status string

const (
	StatusGood               Status = "Good"
	StatusIncomplete         Status = "Incomplete"
	StatusSuspicious         Status = "Suspicious"
	StatusProcessed          Status = "Processed"
	StatusClipped            Status = "Clipped"
	StatusTruePeakRisk       Status = "TruePeakRisk"
	StatusLoudnessOffTarget  Status = "LoudnessOffTarget"
	StatusLowBitrate         Status = "LowBitrate"
	StatusLowSampleRate      Status = "LowSampleRate"
	StatusMono               Status = "Mono"
	StatusSeverelyCompressed Status = "SeverelyCompressed"
	StatusLowDynamic         Status = "LowDynamic"
)

var statusLabels = map[Status]string{
	StatusGood:               "good quality",
	StatusIncomplete:         "incomplete data",
	StatusSuspicious:         "suspicious (likely fake lossless)",
	StatusProcessed:          "likely processed / transcoded",
	StatusClipped:            "clipped",
	StatusTruePeakRisk:       "true-peak overshoot risk",
	StatusLoudnessOffTarget:  "loudness off target",
	StatusLowBitrate:         "low bitrate",
	StatusLowSampleRate:      "low sample rate",
	StatusMono:               "mono",
	StatusSeverelyCompressed: "severely compressed dynamics",
	StatusLowDynamic:         "low dynamics",
}

// Label returns the human-readable rendering of s.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// statusRule pairs one predicate with its verdict. determineStatus walks
// the table top to bottom; the first matching rule wins, so ordering is
// part of the semantics.
type statusRule struct {
	status Status
	match  func(cfg Config, m *metrics.FileMetrics) bool
}

var statusRules = []statusRule{
	{StatusIncomplete, func(cfg Config, m *metrics.FileMetrics) bool {
		return countMissingCriticalFields(m) >= 2
	}},
	{StatusSuspicious, func(cfg Config, m *metrics.FileMetrics) bool {
		return m.RmsDbAbove18k != nil && isLossless(m) && *m.RmsDbAbove18k < cfg.SpectrumFakeDb
	}},
	{StatusProcessed, func(cfg Config, m *metrics.FileMetrics) bool {
		return m.RmsDbAbove18k != nil && *m.RmsDbAbove18k < cfg.SpectrumProcessedDb
	}},
	{StatusClipped, func(cfg Config, m *metrics.FileMetrics) bool {
		if m.TruePeakDbtp != nil {
			return *m.TruePeakDbtp >= cfg.TruePeakCriticalDbtp
		}
		return m.PeakAmplitudeDb != nil && *m.PeakAmplitudeDb >= samplePeakClippingDb
	}},
	{StatusTruePeakRisk, func(cfg Config, m *metrics.FileMetrics) bool {
		return m.TruePeakDbtp != nil && *m.TruePeakDbtp >= cfg.TruePeakWarnDbtp
	}},
	{StatusLoudnessOffTarget, func(cfg Config, m *metrics.FileMetrics) bool {
		if m.IntegratedLoudnessLufs == nil {
			return false
		}
		il := *m.IntegratedLoudnessLufs
		return il < cfg.LoudnessSoftMin || il > cfg.LoudnessSoftMax
	}},
	{StatusLowBitrate, func(cfg Config, m *metrics.FileMetrics) bool {
		return isLossy(m) && m.BitrateKbps != nil && *m.BitrateKbps < cfg.BitrateLowKbps
	}},
	{StatusLowSampleRate, func(cfg Config, m *metrics.FileMetrics) bool {
		return m.SampleRateHz != nil && *m.SampleRateHz < minFullBandSampleRate
	}},
	{StatusMono, func(cfg Config, m *metrics.FileMetrics) bool {
		return m.Channels != nil && *m.Channels < 2
	}},
	{StatusSeverelyCompressed, func(cfg Config, m *metrics.FileMetrics) bool {
		return m.Lra != nil && *m.Lra > 0 && *m.Lra < cfg.LraPoorMax
	}},
	{StatusLowDynamic, func(cfg Config, m *metrics.FileMetrics) bool {
		return m.Lra != nil && *m.Lra > 0 && *m.Lra < cfg.LraLowMax
	}},
}

func determineStatus(cfg Config, m *metrics.FileMetrics) Status {
	for _, rule := range statusRules {
		if rule.match(cfg, m) {
			return rule.status
		}
	}
	return StatusGood
}

// countMissingCriticalFields counts absences among the four fields the
// verdict depends on. True peak and sample peak back each other up, so
// they count as one slot.
func countMissingCriticalFields(m *metrics.FileMetrics) int {
	missing := 0
	if m.RmsDbAbove18k == nil {
		missing++
	}
	if m.Lra == nil {
		missing++
	}
	if m.IntegratedLoudnessLufs == nil {
		missing++
	}
	if m.TruePeakDbtp == nil && m.PeakAmplitudeDb == nil {
		missing++
	}
	return missing
}
