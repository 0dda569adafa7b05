package metrics

import (
	"fmt"
	"math"

	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// Display slot ids written by Apply.
const (
	SlotSurvival    = "metric-survival"
	SlotSurvivalSub = "metric-survival-sub"
	SlotStaff       = "metric-staff"
	SlotStaffSub    = "metric-staff-sub"
	SlotTrust       = "metric-trust"
	SlotTrustSub    = "metric-trust-sub"
	SlotBeds        = "metric-beds"
	SlotBedsSub     = "metric-beds-sub"
)

// Display receives formatted text for a named slot.
type Display interface {
	SetText(slot, text string)
}

// Metric is one derived percentage and its supporting caption.
type Metric struct {
	Percent int
	Caption string
}

// Text returns the percentage as shown, e.g. "70%".
func (m Metric) Text() string {
	return fmt.Sprintf("%d%%", m.Percent)
}

// Panel is the view-model for the four analytics headline cards.
type Panel struct {
	Survival       Metric
	StaffImpact    Metric
	Trust          Metric
	BedUtilization Metric
}

// Compute derives the headline percentages from a summary. Treated counts are
// floored at 1; a non-positive bed pool reports 0% utilization.
func Compute(s triage.Summary) Panel {
	treated := float64(max(1, s.PatientsTreated))
	used := s.TotalBeds - s.AvailableBeds

	return Panel{
		Survival: Metric{
			Percent: roundPct(float64(s.Recovered) / treated),
			Caption: fmt.Sprintf("%d recovered / %d treated", s.Recovered, s.PatientsTreated),
		},
		StaffImpact: Metric{
			Percent: roundPct(float64(s.InfectedStaff) / treated),
			Caption: fmt.Sprintf("%d staff infections", s.InfectedStaff),
		},
		Trust: Metric{
			Percent: s.PublicTrust,
			Caption: fmt.Sprintf("%s outlook", s.Rating),
		},
		BedUtilization: Metric{
			Percent: ratioPct(used, s.TotalBeds),
			Caption: fmt.Sprintf("%d of %d occupied", used, s.TotalBeds),
		},
	}
}

// Apply writes every metric and caption into its slot.
func Apply(d Display, p Panel) {
	d.SetText(SlotSurvival, p.Survival.Text())
	d.SetText(SlotSurvivalSub, p.Survival.Caption)
	d.SetText(SlotStaff, p.StaffImpact.Text())
	d.SetText(SlotStaffSub, p.StaffImpact.Caption)
	d.SetText(SlotTrust, p.Trust.Text())
	d.SetText(SlotTrustSub, p.Trust.Caption)
	d.SetText(SlotBeds, p.BedUtilization.Text())
	d.SetText(SlotBedsSub, p.BedUtilization.Caption)
}

// UpdateMetrics computes and writes the panel in one step.
func UpdateMetrics(d Display, s triage.Summary) Panel {
	p := Compute(s)
	Apply(d, p)
	return p
}

// --- State bars ---

// Bars holds the two progress-bar widths of the game screen, in percent.
type Bars struct {
	BedsPct  int
	TrustPct int
}

// StateBars derives bar widths from a game state, clamped to [0, 100].
func StateBars(s triage.GameState) Bars {
	return Bars{
		BedsPct:  clampPct(ratioPct(s.AvailableBeds, s.TotalBeds)),
		TrustPct: clampPct(s.PublicTrust),
	}
}

// --- helpers ---

// roundPct converts a ratio to a whole percentage, rounding halves up.
func roundPct(ratio float64) int {
	return int(math.Floor(ratio*100 + 0.5))
}

func ratioPct(num, den int) int {
	if den <= 0 {
		return 0
	}
	return roundPct(float64(num) / float64(den))
}

func clampPct(v int) int {
	return min(100, max(0, v))
}
