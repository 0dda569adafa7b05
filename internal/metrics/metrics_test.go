package metrics

import (
	"testing"

	"github.com/Garsondee/Triage-Sense/internal/triage"
)

type slotDisplay map[string]string

func (d slotDisplay) SetText(slot, text string) { d[slot] = text }

func stableSummary() triage.Summary {
	return triage.Summary{
		PatientsTreated: 10,
		Recovered:       7,
		InfectedStaff:   2,
		PublicTrust:     64,
		Rating:          "Stable",
		TotalBeds:       20,
		AvailableBeds:   5,
	}
}

func TestUpdateMetrics_StableScenario(t *testing.T) {
	d := slotDisplay{}
	UpdateMetrics(d, stableSummary())

	want := map[string]string{
		SlotSurvival:    "70%",
		SlotSurvivalSub: "7 recovered / 10 treated",
		SlotStaff:       "20%",
		SlotStaffSub:    "2 staff infections",
		SlotTrust:       "64%",
		SlotTrustSub:    "Stable outlook",
		SlotBeds:        "75%",
		SlotBedsSub:     "15 of 20 occupied",
	}
	for slot, text := range want {
		if d[slot] != text {
			t.Fatalf("slot %s: expected %q, got %q", slot, text, d[slot])
		}
	}
}

func TestUpdateMetrics_Idempotent(t *testing.T) {
	first := slotDisplay{}
	UpdateMetrics(first, stableSummary())
	second := slotDisplay{}
	for k, v := range first {
		second[k] = v
	}
	UpdateMetrics(second, stableSummary())

	if len(first) != len(second) {
		t.Fatalf("slot count changed: %d vs %d", len(first), len(second))
	}
	for k, v := range first {
		if second[k] != v {
			t.Fatalf("slot %s changed on second call: %q -> %q", k, v, second[k])
		}
	}
	if Compute(stableSummary()) != Compute(stableSummary()) {
		t.Fatal("Compute should be deterministic")
	}
}

func TestCompute_ZeroTreatedIsGuarded(t *testing.T) {
	p := Compute(triage.Summary{Recovered: 0, InfectedStaff: 1, TotalBeds: 10, AvailableBeds: 10})
	if p.Survival.Percent != 0 {
		t.Fatalf("expected 0%% survival, got %d", p.Survival.Percent)
	}
	if p.StaffImpact.Percent != 100 {
		t.Fatalf("1 infection over floored 1 treated should be 100%%, got %d", p.StaffImpact.Percent)
	}
	if p.Survival.Caption != "0 recovered / 0 treated" {
		t.Fatalf("caption should show raw count, got %q", p.Survival.Caption)
	}
}

func TestCompute_EmptyBedPoolReportsZero(t *testing.T) {
	p := Compute(triage.Summary{PatientsTreated: 3})
	if p.BedUtilization.Percent != 0 {
		t.Fatalf("expected 0%% with no beds, got %d", p.BedUtilization.Percent)
	}
}

func TestCompute_RoundsHalfUp(t *testing.T) {
	// 1/8 = 12.5% -> 13
	p := Compute(triage.Summary{PatientsTreated: 8, Recovered: 1, TotalBeds: 8, AvailableBeds: 8})
	if p.Survival.Percent != 13 {
		t.Fatalf("expected 13, got %d", p.Survival.Percent)
	}
}

func TestStateBars_AlwaysWithinRange(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for avail := 0; avail <= total; avail++ {
			b := StateBars(triage.GameState{TotalBeds: total, AvailableBeds: avail, PublicTrust: 50})
			if b.BedsPct < 0 || b.BedsPct > 100 {
				t.Fatalf("beds %d/%d gave %d%%", avail, total, b.BedsPct)
			}
		}
	}
	full := StateBars(triage.GameState{TotalBeds: 10, AvailableBeds: 10})
	if full.BedsPct != 100 {
		t.Fatalf("all beds free should be 100%%, got %d", full.BedsPct)
	}
}

func TestStateBars_TrustClamped(t *testing.T) {
	if b := StateBars(triage.GameState{PublicTrust: 130}); b.TrustPct != 100 {
		t.Fatalf("expected trust clamped to 100, got %d", b.TrustPct)
	}
	if b := StateBars(triage.GameState{PublicTrust: -5}); b.TrustPct != 0 {
		t.Fatalf("expected trust clamped to 0, got %d", b.TrustPct)
	}
}
