// Package metrics defines the per-file measurement record shared by the
// extractor, the cache, the scorer, and the report writers.
package metrics

// AudioStats holds the pair of values one astats pass yields.
type AudioStats struct {
	PeakDb *float64
	RmsDb  *float64
}

// FileMetrics is the measurement record for one audio file. Every numeric
// field is a pointer because each one can independently fail to extract;
// absent and zero are different states. The JSON names are the on-disk
// contract for cache entries and raw report output.
type FileMetrics struct {
	FilePath      string `json:"filePath"`
	FileSizeBytes uint64 `json:"fileSizeBytes"`

	Lra                    *float64 `json:"lra"`
	PeakAmplitudeDb        *float64 `json:"peakAmplitudeDb"`
	OverallRmsDb           *float64 `json:"overallRmsDb"`
	RmsDbAbove16k          *float64 `json:"rmsDbAbove16k"`
	RmsDbAbove18k          *float64 `json:"rmsDbAbove18k"`
	RmsDbAbove20k          *float64 `json:"rmsDbAbove20k"`
	IntegratedLoudnessLufs *float64 `json:"integratedLoudnessLufs"`
	TruePeakDbtp           *float64 `json:"truePeakDbtp"`

	ProcessingTimeMs uint64 `json:"processingTimeMs"`

	SampleRateHz    *uint32  `json:"sampleRateHz"`
	BitrateKbps     *uint32  `json:"bitrateKbps"`
	Channels        *uint32  `json:"channels"`
	CodecName       *string  `json:"codecName"`
	ContainerFormat *string  `json:"containerFormat"`
	DurationSeconds *float64 `json:"durationSeconds"`

	CacheHit      bool     `json:"cacheHit"`
	ContentSha256 *string  `json:"contentSha256"`
	ErrorCodes    []string `json:"errorCodes"`
}

// Float64 returns a pointer to v. Shorthand for building records.
func Float64(v float64) *float64 { return &v }

// Uint32 returns a pointer to v.
func Uint32(v uint32) *uint32 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
