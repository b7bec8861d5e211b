package fingerprint

import (
	"math"
)

// Hash layout: [anchorFreq 9 bits | targetFreq 9 bits | deltaMs 14 bits].
const (
	MaxFreqBits  = 9
	MaxDeltaBits = 14
	FanOut       = 6
	MinDeltaMs   = 10
	MaxDeltaMs   = 15000

	freqMask  = uint32(1<<MaxFreqBits) - 1
	deltaMask = uint32(1<<MaxDeltaBits) - 1
)

// HashParts is the unpacked form of a fingerprint hash.
type HashParts struct {
	AnchorFreq uint32
	TargetFreq uint32
	DeltaMs    uint32
}

func msOf(seconds float64) uint32 {
	return uint32(math.Round(seconds * 1000.0))
}

// createAddress packs an anchor/target pair. It reports false when the
// pair does not fit the layout or the delta is outside [MinDeltaMs, MaxDeltaMs].
func createAddress(anchor, target Peak) (uint32, bool) {
	if target.Time < anchor.Time {
		return 0, false
	}
	deltaMs := msOf(target.Time - anchor.Time)
	if deltaMs < MinDeltaMs || deltaMs > MaxDeltaMs || deltaMs > deltaMask {
		return 0, false
	}
	af, tf := uint32(anchor.FreqIdx), uint32(target.FreqIdx)
	if anchor.FreqIdx < 0 || target.FreqIdx < 0 || af > freqMask || tf > freqMask {
		return 0, false
	}
	return PackHash(HashParts{AnchorFreq: af, TargetFreq: tf, DeltaMs: deltaMs}), true
}

func PackHash(p HashParts) uint32 {
	return (p.AnchorFreq&freqMask)<<(MaxDeltaBits+MaxFreqBits) |
		(p.TargetFreq&freqMask)<<MaxDeltaBits |
		(p.DeltaMs & deltaMask)
}

func UnpackHash(h uint32) HashParts {
	return HashParts{
		AnchorFreq: (h >> (MaxDeltaBits + MaxFreqBits)) & freqMask,
		TargetFreq: (h >> MaxDeltaBits) & freqMask,
		DeltaMs:    h & deltaMask,
	}
}

// IsValidHash is a cheap structural check for hashes sent by clients.
func IsValidHash(h uint32) bool {
	p := UnpackHash(h)
	return p.DeltaMs >= MinDeltaMs && p.DeltaMs <= MaxDeltaMs
}
