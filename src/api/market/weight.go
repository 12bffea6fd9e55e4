package market

import (
	"math"
	"math/big"
	"strings"
)

// MinStake is the smallest acceptable stake in native-token units.
const MinStake = 0.001

// weightScale fixes the combined multiplier to 6 decimal places so the
// planck-side weight is deterministic across platforms.
const weightScale = 1_000_000

// TierMultiplier maps a badge tier to its voting multiplier. Unknown tiers
// weigh the same as bronze.
func TierMultiplier(tier string) float64 {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "expert":
		return 1.0
	case "gold":
		return 0.8
	case "silver":
		return 0.6
	default: // bronze and unknown
		return 0.5
	}
}

// ComputeWeight converts a raw vote submission into its voting weight, both
// as a display float and as an exact planck string derived from stakePlanck.
// Evidence quality and truth score act as secondary modifiers in [0,1]; the
// modifier floor of 0.5 keeps weight strictly positive for any positive stake.
func ComputeWeight(stake float64, stakePlanck, badgeTier string, evidenceQuality, truthScore float64) (float64, string, error) {
	if stake < MinStake || math.IsNaN(stake) || math.IsInf(stake, 0) {
		return 0, "", ErrInvalidStake
	}
	stakeWei, ok := parsePlanck(stakePlanck)
	if !ok || stakeWei.Sign() <= 0 {
		return 0, "", ErrInvalidStake
	}

	modifier := 0.5 + 0.25*clamp01(evidenceQuality) + 0.25*clamp01(truthScore)
	multiplier := TierMultiplier(badgeTier) * modifier

	micro := int64(math.Round(multiplier * weightScale))
	if micro <= 0 {
		micro = 1
	}

	weightWei := new(big.Int).Mul(stakeWei, big.NewInt(micro))
	weightWei.Quo(weightWei, big.NewInt(weightScale))
	if weightWei.Sign() == 0 {
		// Tiny stakes truncating to zero would disenfranchise the vote.
		weightWei.SetInt64(1)
	}

	return stake * multiplier, weightWei.String(), nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
