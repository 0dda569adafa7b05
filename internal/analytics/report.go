package analytics

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/Garsondee/Triage-Sense/internal/metrics"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// DefaultReportWindow is the trailing number of days averaged by a Report.
const DefaultReportWindow = 5

// Report is a text summary of one game's analytics.
type Report struct {
	Summary triage.Summary
	Panel   metrics.Panel
	Days    int

	TrustStart int
	TrustEnd   int
	TrustLow   int
	TrustLowOn int // day of the lowest trust

	PeakBedsUsed int
	PeakBedsOn   int

	Window         int // days in the trailing window
	AvgTrustWindow float64
	AvgBedsWindow  float64
}

// NewReport summarises data over a trailing window of days.
func NewReport(data triage.AnalyticsData, window int) *Report {
	if window <= 0 {
		window = DefaultReportWindow
	}
	r := &Report{
		Summary: data.Summary,
		Panel:   metrics.Compute(data.Summary),
		Days:    len(data.History),
	}
	h := data.History
	if len(h) == 0 {
		return r
	}

	r.TrustStart = h[0].PublicTrust
	r.TrustEnd = h[len(h)-1].PublicTrust
	low := lo.MinBy(h, func(a, b triage.HistoryPoint) bool { return a.PublicTrust < b.PublicTrust })
	r.TrustLow, r.TrustLowOn = low.PublicTrust, low.Day
	peak := lo.MaxBy(h, func(a, b triage.HistoryPoint) bool { return a.BedsInUse() > b.BedsInUse() })
	r.PeakBedsUsed, r.PeakBedsOn = peak.BedsInUse(), peak.Day

	tail := h[max(0, len(h)-window):]
	n := float64(len(tail))
	r.Window = len(tail)
	r.AvgTrustWindow = float64(lo.SumBy(tail, func(p triage.HistoryPoint) int { return p.PublicTrust })) / n
	r.AvgBedsWindow = float64(lo.SumBy(tail, func(p triage.HistoryPoint) int { return p.BedsInUse() })) / n
	return r
}

// Trend describes the change in trust from the first to the last day.
func (r *Report) Trend() string {
	switch d := r.TrustEnd - r.TrustStart; {
	case r.Days < 2:
		return "flat"
	case d > 0:
		return fmt.Sprintf("up %d", d)
	case d < 0:
		return fmt.Sprintf("down %d", -d)
	default:
		return "flat"
	}
}

// Format returns a human-readable multi-line report.
func (r *Report) Format() string {
	if r == nil {
		return "No data collected yet.\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Analytics Report (%d days, rating %s) ===\n", r.Days, orDash(r.Summary.Rating))

	sb.WriteString("\n--- Metrics ---\n")
	fmt.Fprintf(&sb, "  %-16s %5s  %s\n", "Survival", r.Panel.Survival.Text(), r.Panel.Survival.Caption)
	fmt.Fprintf(&sb, "  %-16s %5s  %s\n", "Staff impact", r.Panel.StaffImpact.Text(), r.Panel.StaffImpact.Caption)
	fmt.Fprintf(&sb, "  %-16s %5s  %s\n", "Public trust", r.Panel.Trust.Text(), r.Panel.Trust.Caption)
	fmt.Fprintf(&sb, "  %-16s %5s  %s\n", "Bed utilization", r.Panel.BedUtilization.Text(), r.Panel.BedUtilization.Caption)

	if r.Days > 0 {
		sb.WriteString("\n--- History ---\n")
		fmt.Fprintf(&sb, "  Trust:     %d -> %d (%s), low %d on D%d\n",
			r.TrustStart, r.TrustEnd, r.Trend(), r.TrustLow, r.TrustLowOn)
		fmt.Fprintf(&sb, "  Beds used: peak %d on D%d\n", r.PeakBedsUsed, r.PeakBedsOn)
		fmt.Fprintf(&sb, "  Last %d days: avg trust %.1f%%, avg beds used %.1f\n",
			r.Window, r.AvgTrustWindow, r.AvgBedsWindow)
	}

	sb.WriteString("\n--- Outcomes ---\n")
	fmt.Fprintf(&sb, "  Treated=%d  Recovered=%d  Deaths=%d  Staff=%d\n",
		r.Summary.PatientsTreated, r.Summary.Recovered, r.Summary.Deaths, r.Summary.InfectedStaff)
	if r.Summary.Narrative != "" {
		fmt.Fprintf(&sb, "  %s\n", r.Summary.Narrative)
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
