package reward

import "math"

// ActivityType is the closed set of activity kinds the calculator knows how
// to score. Anything else falls through to the default rate.
type ActivityType string

const (
	Run         ActivityType = "Run"
	VirtualRun  ActivityType = "VirtualRun"
	Swim        ActivityType = "Swim"
	Ride        ActivityType = "Ride"
	VirtualRide ActivityType = "VirtualRide"
	Walk        ActivityType = "Walk"
	Hike        ActivityType = "Hike"
	Other       ActivityType = "Other"
)

// ParseActivityType maps an upstream type string onto the closed enum.
// Unknown strings map to Other so new upstream types degrade gracefully.
func ParseActivityType(s string) ActivityType {
	switch t := ActivityType(s); t {
	case Run, VirtualRun, Swim, Ride, VirtualRide, Walk, Hike:
		return t
	default:
		return Other
	}
}

// defaultRate applies to activity types without an explicit entry.
const defaultRate = 0.1

// rateFor returns stamina points per kilometre. Rates differ by an order of
// magnitude between types; swimming earns far more per kilometre than riding.
func rateFor(t ActivityType) float64 {
	switch t {
	case Run, VirtualRun:
		return 1.0
	case Swim:
		return 4.0
	case Ride, VirtualRide:
		return 0.3
	case Walk:
		return 0.7
	case Hike:
		return 0.8
	default:
		return defaultRate
	}
}

// PointsFor converts a single activity into stamina points. Fractions are
// always floored, never rounded up, so splitting one activity into smaller
// ones can only ever yield equal or fewer total points.
func PointsFor(t ActivityType, distanceKm float64) int64 {
	if distanceKm <= 0 {
		return 0
	}
	return int64(math.Floor(distanceKm * rateFor(t)))
}

// tierThresholds are cumulative point boundaries, ascending. Tier 0 is the
// floor for anything below the first threshold.
var tierThresholds = []int64{100, 300, 700, 1500, 3000, 6000}

// TierFor returns the highest tier whose threshold does not exceed points.
func TierFor(points int64) int {
	tier := 0
	for i, threshold := range tierThresholds {
		if points < threshold {
			break
		}
		tier = i + 1
	}
	return tier
}

// MaxTier is the highest reachable tier index.
func MaxTier() int {
	return len(tierThresholds)
}
