package scoring

import (
	"fmt"
	"strings"
)

// Profile selects the threshold set a run scores against.
type Profile string

const (
	ProfilePop       Profile = "pop"
	ProfileBroadcast Profile = "broadcast"
	ProfileArchive   Profile = "archive"
)

// ParseProfile validates a user-supplied profile name.
func ParseProfile(name string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(name))) {
	case ProfilePop:
		return ProfilePop, nil
	case ProfileBroadcast:
		return ProfileBroadcast, nil
	case ProfileArchive:
		return ProfileArchive, nil
	default:
		return "", fmt.Errorf("unknown scoring profile %q (choose pop, broadcast or archive)", name)
	}
}

// Profiles lists the selectable profiles in display order.
func Profiles() []Profile {
	return []Profile{ProfilePop, ProfileBroadcast, ProfileArchive}
}

// Config is one profile's complete threshold set. Instances are immutable;
// they come from the profile table only.
type Config struct {
	Name Profile

	// Loudness targeting.
	TargetLoudnessLufs float64
	LoudnessSoftMin    float64
	LoudnessSoftMax    float64

	// True-peak ceilings.
	TruePeakWarnDbtp     float64
	TruePeakCriticalDbtp float64

	// High-frequency energy bands (dB).
	SpectrumFakeDb      float64
	SpectrumProcessedDb float64
	SpectrumGoodDb      float64

	// Loudness-range bands (LU).
	LraPoorMax       float64
	LraLowMax        float64
	LraExcellentMin  float64
	LraExcellentMax  float64
	LraAcceptableMax float64
	LraTooHigh       float64

	// Bitrate bands for lossy material (kbps).
	BitrateLowKbps  uint32
	BitrateHighKbps uint32

	// Elite bands: the tighter windows a >90 score must sit inside.
	EliteLoudnessMin     float64
	EliteLoudnessMax     float64
	EliteTruePeakMaxDbtp float64
	EliteLraMin          float64
	EliteLraMax          float64
	EliteSpectrumFloorDb float64
}

// profileTable holds every selectable configuration; thresholds never
// appear as literals outside it.
var profileTable = map[Profile]Config{
	ProfilePop: {
		Name:                 ProfilePop,
		TargetLoudnessLufs:   -14.0,
		LoudnessSoftMin:      -18.0,
		LoudnessSoftMax:      -8.0,
		TruePeakWarnDbtp:     -1.0,
		TruePeakCriticalDbtp: -0.1,
		SpectrumFakeDb:       -85.0,
		SpectrumProcessedDb:  -80.0,
		SpectrumGoodDb:       -70.0,
		LraPoorMax:           3.0,
		LraLowMax:            6.0,
		LraExcellentMin:      8.0,
		LraExcellentMax:      12.0,
		LraAcceptableMax:     15.0,
		LraTooHigh:           20.0,
		BitrateLowKbps:       192,
		BitrateHighKbps:      256,
		EliteLoudnessMin:     -15.5,
		EliteLoudnessMax:     -12.5,
		EliteTruePeakMaxDbtp: -1.0,
		EliteLraMin:          8.0,
		EliteLraMax:          12.0,
		EliteSpectrumFloorDb: -65.0,
	},
	ProfileBroadcast: {
		Name:                 ProfileBroadcast,
		TargetLoudnessLufs:   -23.0,
		LoudnessSoftMin:      -24.5,
		LoudnessSoftMax:      -21.5,
		TruePeakWarnDbtp:     -2.0,
		TruePeakCriticalDbtp: -1.0,
		SpectrumFakeDb:       -85.0,
		SpectrumProcessedDb:  -80.0,
		SpectrumGoodDb:       -70.0,
		LraPoorMax:           3.0,
		LraLowMax:            5.0,
		LraExcellentMin:      6.0,
		LraExcellentMax:      18.0,
		LraAcceptableMax:     20.0,
		LraTooHigh:           25.0,
		BitrateLowKbps:       192,
		BitrateHighKbps:      256,
		EliteLoudnessMin:     -23.5,
		EliteLoudnessMax:     -22.5,
		EliteTruePeakMaxDbtp: -2.0,
		EliteLraMin:          6.0,
		EliteLraMax:          15.0,
		EliteSpectrumFloorDb: -70.0,
	},
	ProfileArchive: {
		Name:                 ProfileArchive,
		TargetLoudnessLufs:   -18.0,
		LoudnessSoftMin:      -26.0,
		LoudnessSoftMax:      -10.0,
		TruePeakWarnDbtp:     -1.0,
		TruePeakCriticalDbtp: -0.1,
		SpectrumFakeDb:       -90.0,
		SpectrumProcessedDb:  -85.0,
		SpectrumGoodDb:       -75.0,
		LraPoorMax:           3.0,
		LraLowMax:            6.0,
		LraExcellentMin:      8.0,
		LraExcellentMax:      16.0,
		LraAcceptableMax:     20.0,
		LraTooHigh:           25.0,
		BitrateLowKbps:       256,
		BitrateHighKbps:      320,
		EliteLoudnessMin:     -22.0,
		EliteLoudnessMax:     -12.0,
		EliteTruePeakMaxDbtp: -1.0,
		EliteLraMin:          8.0,
		EliteLraMax:          16.0,
		EliteSpectrumFloorDb: -70.0,
	},
}

// ConfigFor returns the threshold set for profile.
func ConfigFor(profile Profile) Config {
	cfg, ok := profileTable[profile]
	if !ok {
		return profileTable[ProfilePop]
	}
	return cfg
}

// Elite-gate tuning. The readiness weights and the compression band are
// heuristic constants; they are named here rather than derived.
const (
	eliteGateThreshold   = 90.0
	compressionFloor     = 85.0
	compressionSpan      = 4.0
	readinessWtLoudness  = 0.26
	readinessWtTruePeak  = 0.20
	readinessWtLra       = 0.22
	readinessWtSpectrum  = 0.20
	readinessWtBitrate   = 0.12
	readinessSlackLufs   = 3.0
	readinessSlackDbtp   = 1.0
	readinessSlackLraLu  = 3.0
	readinessSlackSpecDb = 10.0
)
