// Package scoring turns a measurement record into a quality verdict: a
// status from an ordered decision list, an integer score in [0, 99], a
// confidence estimate and explanatory notes. Scoring is a pure function of
// the record and the selected profile configuration.
package scoring

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"audioqc/internal/metrics"
)

const (
	samplePeakClippingDb  = -0.1
	minFullBandSampleRate = 44100

	// Headroom bands for the compliance sub-score.
	peakGoodDb   = -6.0
	peakMediumDb = -3.0

	// Flat deductions applied after the sub-scores are summed.
	deductLossyLowBitrate    = 20.0
	deductLossyFakeHighBit   = 15.0
	deductSubFullBandRate    = 10.0
	deductMono               = 5.0

	// Integrity sub-score penalties.
	integrityMissingPenalty = 2.5
	integrityErrorPenalty   = 1.5

	// Confidence penalties.
	confidenceMissingPenalty = 0.18
	confidenceErrorPenalty   = 0.08
)

// Analysis is the scored verdict for one file. The measurement record is
// embedded so serialized analyses are self-contained.
type Analysis struct {
	metrics.FileMetrics

	QualityScore int     `json:"qualityScore"`
	Status       Status  `json:"status"`
	Notes        string  `json:"notes"`
	Profile      Profile `json:"profile"`
	Confidence   float64 `json:"confidence"`
}

// Scorer evaluates measurement records against one profile.
type Scorer struct {
	cfg Config
}

// NewScorer builds a scorer for profile.
func NewScorer(profile Profile) *Scorer {
	return &Scorer{cfg: ConfigFor(profile)}
}

// Config exposes the threshold set in use.
func (s *Scorer) Config() Config { return s.cfg }

// Analyze scores one record.
func (s *Scorer) Analyze(m *metrics.FileMetrics) Analysis {
	status := determineStatus(s.cfg, m)
	return Analysis{
		FileMetrics:  *m,
		QualityScore: s.score(m, status),
		Status:       status,
		Notes:        s.notes(m, status),
		Profile:      s.cfg.Name,
		Confidence:   confidence(m),
	}
}

// AnalyzeAll scores a batch in input order.
func (s *Scorer) AnalyzeAll(records []metrics.FileMetrics) []Analysis {
	out := make([]Analysis, len(records))
	for i := range records {
		out[i] = s.Analyze(&records[i])
	}
	return out
}

func (s *Scorer) score(m *metrics.FileMetrics, status Status) int {
	total := s.complianceScore(m) +
		s.dynamicsScore(m) +
		s.spectrumScore(m) +
		s.authenticityScore(m) +
		integrityScore(m)

	if isLossy(m) && m.BitrateKbps != nil && *m.BitrateKbps < s.cfg.BitrateLowKbps {
		total -= deductLossyLowBitrate
	}
	if isLossy(m) && m.BitrateKbps != nil && *m.BitrateKbps > s.cfg.BitrateHighKbps &&
		m.RmsDbAbove18k != nil && *m.RmsDbAbove18k < s.cfg.SpectrumProcessedDb {
		total -= deductLossyFakeHighBit
	}
	if m.SampleRateHz != nil && *m.SampleRateHz < minFullBandSampleRate {
		total -= deductSubFullBandRate
	}
	if m.Channels != nil && *m.Channels < 2 {
		total -= deductMono
	}

	switch status {
	case StatusSuspicious:
		total = math.Min(total, 25)
	case StatusIncomplete:
		total = math.Min(total, 45)
	case StatusClipped:
		total = math.Min(total, 85)
	case StatusTruePeakRisk:
		total = math.Min(total, 92)
	}

	if total > eliteGateThreshold && !s.passesEliteGate(m, status) {
		total = s.compressNearElite(m, total)
	}

	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 99 {
		score = 99
	}
	return score
}

// complianceScore awards up to 35 points: 20 for integrated loudness close
// to the profile target, 15 for peak headroom.
func (s *Scorer) complianceScore(m *metrics.FileMetrics) float64 {
	var score float64

	if m.IntegratedLoudnessLufs != nil {
		dist := math.Abs(*m.IntegratedLoudnessLufs - s.cfg.TargetLoudnessLufs)
		maxDist := math.Max(s.cfg.TargetLoudnessLufs-s.cfg.LoudnessSoftMin,
			s.cfg.LoudnessSoftMax-s.cfg.TargetLoudnessLufs)
		score += mapToScore(dist, 0, maxDist, 20, 0)
	}

	peak := m.TruePeakDbtp
	if peak == nil {
		peak = m.PeakAmplitudeDb
	}
	if peak != nil {
		switch {
		case *peak <= peakGoodDb:
			score += 15
		case *peak <= peakMediumDb:
			score += mapToScore(*peak, peakGoodDb, peakMediumDb, 15, 10)
		case *peak <= s.cfg.TruePeakCriticalDbtp:
			score += mapToScore(*peak, peakMediumDb, s.cfg.TruePeakCriticalDbtp, 10, 3)
		}
	}
	return score
}

// dynamicsScore awards up to 20 points, full credit inside the excellent
// LRA band and tapering outside it.
func (s *Scorer) dynamicsScore(m *metrics.FileMetrics) float64 {
	if m.Lra == nil || *m.Lra <= 0 {
		return 0
	}
	lra := *m.Lra
	cfg := s.cfg
	switch {
	case lra >= cfg.LraExcellentMin && lra <= cfg.LraExcellentMax:
		return 20
	case lra >= cfg.LraLowMax && lra < cfg.LraExcellentMin:
		return mapToScore(lra, cfg.LraLowMax, cfg.LraExcellentMin, 13, 19)
	case lra > cfg.LraExcellentMax && lra <= cfg.LraAcceptableMax:
		return mapToScore(lra, cfg.LraExcellentMax, cfg.LraAcceptableMax, 19, 14)
	case lra >= cfg.LraPoorMax && lra < cfg.LraLowMax:
		return mapToScore(lra, cfg.LraPoorMax, cfg.LraLowMax, 6, 13)
	case lra < cfg.LraPoorMax:
		return mapToScore(lra, 0, cfg.LraPoorMax, 0, 6)
	default: // above the acceptable band
		return 12
	}
}

// spectrumScore awards up to 25 points from high-frequency energy, the
// 18 kHz band weighted heavier than the 16 kHz band.
func (s *Scorer) spectrumScore(m *metrics.FileMetrics) float64 {
	var score float64
	if m.RmsDbAbove16k != nil {
		score += 0.4 * mapToScore(*m.RmsDbAbove16k, -90, -55, 0, 25)
	}
	if m.RmsDbAbove18k != nil {
		score += 0.6 * mapToScore(*m.RmsDbAbove18k, s.cfg.SpectrumFakeDb, s.cfg.SpectrumGoodDb, 0, 25)
	}
	return score
}

// authenticityScore awards up to 10 points, docked when the spectral
// profile contradicts what the container claims.
func (s *Scorer) authenticityScore(m *metrics.FileMetrics) float64 {
	if m.RmsDbAbove18k == nil {
		return 10
	}
	rms18k := *m.RmsDbAbove18k
	if isLossless(m) {
		if rms18k < s.cfg.SpectrumFakeDb {
			return 0
		}
		if rms18k < s.cfg.SpectrumProcessedDb {
			return 4
		}
	}
	if isLossy(m) && m.BitrateKbps != nil && *m.BitrateKbps > s.cfg.BitrateHighKbps &&
		rms18k < s.cfg.SpectrumProcessedDb {
		return 2
	}
	return 10
}

// integrityScore awards up to 10 points, docked per missing critical field
// and per reported error code.
func integrityScore(m *metrics.FileMetrics) float64 {
	score := 10 -
		integrityMissingPenalty*float64(countMissingCriticalFields(m)) -
		integrityErrorPenalty*float64(len(m.ErrorCodes))
	return math.Max(score, 0)
}

// passesEliteGate reports whether a raw score above the gate threshold may
// stand. Every tracked field must be present and inside its tighter band.
func (s *Scorer) passesEliteGate(m *metrics.FileMetrics, status Status) bool {
	if status != StatusGood {
		return false
	}
	if m.IntegratedLoudnessLufs == nil || m.TruePeakDbtp == nil ||
		m.Lra == nil || m.RmsDbAbove18k == nil {
		return false
	}
	cfg := s.cfg
	if *m.IntegratedLoudnessLufs < cfg.EliteLoudnessMin || *m.IntegratedLoudnessLufs > cfg.EliteLoudnessMax {
		return false
	}
	if *m.TruePeakDbtp > cfg.EliteTruePeakMaxDbtp {
		return false
	}
	if *m.Lra < cfg.EliteLraMin || *m.Lra > cfg.EliteLraMax {
		return false
	}
	if *m.RmsDbAbove18k < cfg.EliteSpectrumFloorDb {
		return false
	}
	if isLossy(m) {
		if m.BitrateKbps == nil || *m.BitrateKbps <= cfg.BitrateHighKbps {
			return false
		}
	}
	return true
}

// compressNearElite maps a gate-failing raw score into [85, 89]. Half the
// placement comes from how far above the gate the raw score sits, half
// from how close the track's fields are to the elite bands, so near-elite
// tracks do not all collapse onto one value.
func (s *Scorer) compressNearElite(m *metrics.FileMetrics, raw float64) float64 {
	progress := clamp((raw-eliteGateThreshold)/(99-eliteGateThreshold), 0, 1)
	readiness := s.eliteReadiness(m)
	return compressionFloor + math.Round(compressionSpan*(0.5*progress+0.5*readiness))
}

// eliteReadiness estimates, in [0, 1], how close a record is to clearing
// the elite gate. Each field scores 1 inside its band and decays linearly
// over a slack margin outside; missing fields score 0.
func (s *Scorer) eliteReadiness(m *metrics.FileMetrics) float64 {
	cfg := s.cfg

	var loudness float64
	if m.IntegratedLoudnessLufs != nil {
		loudness = softBand(*m.IntegratedLoudnessLufs, cfg.EliteLoudnessMin, cfg.EliteLoudnessMax, readinessSlackLufs)
	}
	var truePeak float64
	if m.TruePeakDbtp != nil {
		truePeak = softBand(*m.TruePeakDbtp, math.Inf(-1), cfg.EliteTruePeakMaxDbtp, readinessSlackDbtp)
	}
	var lra float64
	if m.Lra != nil {
		lra = softBand(*m.Lra, cfg.EliteLraMin, cfg.EliteLraMax, readinessSlackLraLu)
	}
	var spectrum float64
	if m.RmsDbAbove18k != nil {
		spectrum = softBand(*m.RmsDbAbove18k, cfg.EliteSpectrumFloorDb, math.Inf(1), readinessSlackSpecDb)
	}
	bitrate := 1.0
	if isLossy(m) {
		bitrate = 0
		if m.BitrateKbps != nil {
			bitrate = clamp(
				(float64(*m.BitrateKbps)-float64(cfg.BitrateLowKbps))/
					(float64(cfg.BitrateHighKbps)-float64(cfg.BitrateLowKbps)), 0, 1)
		}
	}

	return readinessWtLoudness*loudness +
		readinessWtTruePeak*truePeak +
		readinessWtLra*lra +
		readinessWtSpectrum*spectrum +
		readinessWtBitrate*bitrate
}

// softBand returns 1 inside [lo, hi], decaying linearly to 0 over slack
// outside the band.
func softBand(v, lo, hi, slack float64) float64 {
	var dist float64
	switch {
	case v < lo:
		dist = lo - v
	case v > hi:
		dist = v - hi
	default:
		return 1
	}
	return clamp(1-dist/slack, 0, 1)
}

func confidence(m *metrics.FileMetrics) float64 {
	c := 1.0 -
		confidenceMissingPenalty*float64(countMissingCriticalFields(m)) -
		confidenceErrorPenalty*float64(len(m.ErrorCodes))
	return clamp(c, 0.1, 1.0)
}

func (s *Scorer) notes(m *metrics.FileMetrics, status Status) string {
	var notes []string
	switch status {
	case StatusIncomplete:
		notes = append(notes, "Critical measurements are missing; the verdict may be unreliable.")
	case StatusSuspicious:
		notes = append(notes, "Hard spectral cutoff near 18 kHz; likely upsampled or fake lossless.")
	case StatusProcessed:
		notes = append(notes, "Low energy above 18 kHz; a soft cutoff suggests prior lossy processing.")
	case StatusClipped:
		notes = append(notes, "Peak level at or above the clipping threshold.")
	case StatusTruePeakRisk:
		if m.TruePeakDbtp != nil {
			notes = append(notes, fmt.Sprintf("True peak %.2f dBTP exceeds the %.1f dBTP safety ceiling.", *m.TruePeakDbtp, s.cfg.TruePeakWarnDbtp))
		}
	case StatusLoudnessOffTarget:
		if m.IntegratedLoudnessLufs != nil {
			notes = append(notes, fmt.Sprintf("Integrated loudness %.1f LUFS is outside the %.1f to %.1f LUFS band.", *m.IntegratedLoudnessLufs, s.cfg.LoudnessSoftMin, s.cfg.LoudnessSoftMax))
		}
	case StatusLowBitrate:
		if m.BitrateKbps != nil {
			notes = append(notes, fmt.Sprintf("Bitrate %d kbps is below the %d kbps floor; detail loss is likely.", *m.BitrateKbps, s.cfg.BitrateLowKbps))
		}
	case StatusLowSampleRate:
		if m.SampleRateHz != nil {
			notes = append(notes, fmt.Sprintf("Sample rate %d Hz limits the upper frequency band.", *m.SampleRateHz))
		}
	case StatusMono:
		notes = append(notes, "Single channel audio.")
	case StatusSeverelyCompressed:
		if m.Lra != nil {
			notes = append(notes, fmt.Sprintf("Loudness range %.1f LU indicates heavy dynamic compression.", *m.Lra))
		}
	case StatusLowDynamic:
		if m.Lra != nil {
			notes = append(notes, fmt.Sprintf("Loudness range %.1f LU is low; the track may be over-compressed.", *m.Lra))
		}
	case StatusGood:
		if m.Lra != nil && *m.Lra > s.cfg.LraTooHigh {
			notes = append(notes, fmt.Sprintf("Loudness range %.1f LU is unusually wide; playback may need compression.", *m.Lra))
		}
	}
	if len(m.ErrorCodes) > 0 {
		notes = append(notes, fmt.Sprintf("Extraction reported: %s.", strings.Join(m.ErrorCodes, ", ")))
	}
	if len(notes) == 0 {
		return "No hard technical issues detected."
	}
	return strings.Join(notes, " | ")
}

// mapToScore clamps value to [inMin, inMax] then interpolates linearly to
// [outMin, outMax]. A degenerate input range yields outMin.
func mapToScore(value, inMin, inMax, outMin, outMax float64) float64 {
	if math.Abs(inMax-inMin) < 1e-12 {
		return outMin
	}
	v := clamp(value, inMin, inMax)
	return outMin + (v-inMin)*(outMax-outMin)/(inMax-inMin)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Lossless/lossy classification from extension, codec and container
// lookup sets. A file matching the lossless sets is never lossy.
var (
	losslessExtensions = map[string]struct{}{
		"flac": {}, "alac": {}, "wav": {}, "aiff": {}, "aif": {},
	}
	losslessCodecs = map[string]struct{}{
		"flac": {}, "alac": {}, "wavpack": {}, "ape": {},
	}
	lossyExtensions = map[string]struct{}{
		"mp3": {}, "aac": {}, "m4a": {}, "ogg": {}, "opus": {}, "wma": {},
	}
	lossyCodecs = map[string]struct{}{
		"mp3": {}, "aac": {}, "vorbis": {}, "opus": {}, "wmav2": {}, "mp2": {}, "ac3": {},
	}
)

func isLossless(m *metrics.FileMetrics) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(m.FilePath), "."))
	if _, ok := losslessExtensions[ext]; ok {
		return true
	}
	codec := strings.ToLower(deref(m.CodecName))
	if strings.HasPrefix(codec, "pcm_") {
		return true
	}
	if _, ok := losslessCodecs[codec]; ok {
		return true
	}
	container := strings.ToLower(deref(m.ContainerFormat))
	return strings.Contains(container, "flac") ||
		strings.Contains(container, "wav") ||
		strings.Contains(container, "aiff")
}

func isLossy(m *metrics.FileMetrics) bool {
	if isLossless(m) {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(m.FilePath), "."))
	if _, ok := lossyExtensions[ext]; ok {
		return true
	}
	codec := strings.ToLower(deref(m.CodecName))
	_, ok := lossyCodecs[codec]
	return ok
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
