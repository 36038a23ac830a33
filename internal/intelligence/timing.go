package intelligence

import (
	"time"

	"sales-crm-workers/internal/models"
)

// Inactivity thresholds. These are fixed for every lead.
const (
	riskAfter      = 48 * time.Hour
	ghostedAfter   = 120 * time.Hour
	delayZoneAfter = 72 * time.Hour
	droppingAfter  = 168 * time.Hour
)

// Inactivity returns the time since the lead was last active. ok is false
// when the lead has never been active.
func Inactivity(lead *models.Lead, now time.Time) (time.Duration, bool) {
	if lead.LastActive == nil || lead.LastActive.IsZero() {
		return 0, false
	}
	return now.Sub(*lead.LastActive), true
}

// Ghosting reports whether the lead has stopped replying.
func Ghosting(lead *models.Lead, now time.Time) GhostingStatus {
	idle, ok := Inactivity(lead, now)
	switch {
	case !ok:
		return GhostingSafe
	case idle > ghostedAfter:
		return GhostingGhosted
	case idle > riskAfter:
		return GhostingRisk
	default:
		return GhostingSafe
	}
}

// Pressure labels how quickly the buyer is moving toward a decision.
func Pressure(lead *models.Lead, now time.Time) DecisionPressure {
	if lead.Responsiveness() == models.ResponsivenessFast {
		return PressureFastMover
	}
	idle, ok := Inactivity(lead, now)
	switch {
	case !ok:
		return PressureThinking
	case idle > droppingAfter:
		return PressureDropping
	case idle > delayZoneAfter:
		return PressureDelayZone
	default:
		return PressureThinking
	}
}
