package triage

import (
	"fmt"
	"strings"
)

// --- Risk ---

// Risk is the server-computed severity band of a patient.
type Risk string

const (
	RiskLow    Risk = "Low"
	RiskMedium Risk = "Medium"
	RiskHigh   Risk = "High"
)

// OrDefault returns RiskLow when the server omitted the risk.
func (r Risk) OrDefault() Risk {
	if r == "" {
		return RiskLow
	}
	return r
}

// BadgeClass returns the visual class of the risk badge, e.g. "badge high".
func (r Risk) BadgeClass() string {
	return "badge " + strings.ToLower(string(r.OrDefault()))
}

// --- Action ---

// Action is a triage decision the player sends to the server.
type Action string

const (
	ActionAdmit     Action = "Admit"
	ActionDischarge Action = "Discharge"
	ActionIsolate   Action = "Isolate"
)

// Actions lists every decision in button order.
var Actions = []Action{ActionAdmit, ActionDischarge, ActionIsolate}

// Valid reports whether a is one of the decisions the server understands.
func (a Action) Valid() bool {
	switch a {
	case ActionAdmit, ActionDischarge, ActionIsolate:
		return true
	default:
		return false
	}
}

// ParseAction accepts the action name in any letter case.
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if strings.EqualFold(string(a), strings.TrimSpace(s)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// --- Export format ---

// Format is a file type the export endpoint can produce.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FileName is the download name the browser client used for this format.
func (f Format) FileName() string {
	return "triage-summary." + string(f)
}

// ParseFormat accepts json, csv or xlsx in any letter case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (supported: json, csv, xlsx)", s)
	}
}

// --- Records ---

// Patient is the case presented for one turn. It is replaced by the next fetch.
type Patient struct {
	Age         int      `json:"age"`
	Symptoms    []string `json:"symptoms"`
	Exposure    bool     `json:"exposure"`
	Comorbidity string   `json:"comorbidity"`
	Risk        Risk     `json:"risk"`
}

// GameState is the server-authoritative hospital snapshot.
type GameState struct {
	Day             int `json:"day"`
	AvailableBeds   int `json:"available_beds"`
	TotalBeds       int `json:"total_beds"`
	PatientsTreated int `json:"patients_treated"`
	Deaths          int `json:"deaths"`
	Recovered       int `json:"recovered"`
	InfectedStaff   int `json:"infected_staff"`
	PublicTrust     int `json:"public_trust"` // 0-100
}

// BedsInUse returns total minus available beds.
func (s GameState) BedsInUse() int {
	return s.TotalBeds - s.AvailableBeds
}

// Summary is the aggregate shown on the analytics view.
type Summary struct {
	PatientsTreated int    `json:"patients_treated"`
	Recovered       int    `json:"recovered"`
	Deaths          int    `json:"deaths"`
	InfectedStaff   int    `json:"infected_staff"`
	PublicTrust     int    `json:"public_trust"`
	Rating          string `json:"rating"`
	Narrative       string `json:"narrative,omitempty"`
	Day             int    `json:"day,omitempty"`
	TotalBeds       int    `json:"total_beds"`
	AvailableBeds   int    `json:"available_beds"`
}

// HistoryPoint is one simulated day of the trust/bed time series.
type HistoryPoint struct {
	Day             int `json:"day"`
	PublicTrust     int `json:"public_trust"`
	TotalBeds       int `json:"total_beds"`
	AvailableBeds   int `json:"available_beds"`
	PatientsTreated int `json:"patients_treated,omitempty"`
	Deaths          int `json:"deaths,omitempty"`
	Recovered       int `json:"recovered,omitempty"`
	InfectedStaff   int `json:"infected_staff,omitempty"`
}

// BedsInUse returns total minus available beds for that day.
func (h HistoryPoint) BedsInUse() int {
	return h.TotalBeds - h.AvailableBeds
}

// FinalResult is the terminal outcome once the game ends.
type FinalResult struct {
	Rating        string `json:"rating"`
	Narrative     string `json:"narrative"`
	Day           int    `json:"day"`
	Recovered     int    `json:"recovered"`
	Deaths        int    `json:"deaths"`
	InfectedStaff int    `json:"infected_staff"`
	PublicTrust   int    `json:"public_trust"`
}

// Lines renders the final summary block, one paragraph per line.
func (f FinalResult) Lines() []string {
	return []string{
		"Rating: " + f.Rating,
		f.Narrative,
		fmt.Sprintf("Days: %d", f.Day),
		fmt.Sprintf("Recovered: %d - Deaths: %d", f.Recovered, f.Deaths),
		fmt.Sprintf("Infected staff: %d", f.InfectedStaff),
		fmt.Sprintf("Public trust: %d%%", f.PublicTrust),
	}
}

// Text joins Lines with newlines; used for the clipboard copy.
func (f FinalResult) Text() string {
	return strings.Join(f.Lines(), "\n") + "\n"
}

// --- Response envelopes ---

// NewPatientResponse is the body of GET /new_patient.
type NewPatientResponse struct {
	GameOver bool         `json:"game_over"`
	Final    *FinalResult `json:"final,omitempty"`
	Patient  *Patient     `json:"patient,omitempty"`
	State    *GameState   `json:"state,omitempty"`
}

// DecisionRequest is the body of POST /decision.
type DecisionRequest struct {
	Action Action `json:"action"`
}

// DecisionResponse is the body of POST /decision.
type DecisionResponse struct {
	GameOver bool         `json:"game_over"`
	Final    *FinalResult `json:"final,omitempty"`
	Message  string       `json:"message,omitempty"`
	State    *GameState   `json:"state,omitempty"`
	Patient  *Patient     `json:"patient,omitempty"`
}

// AvatarResponse is the body of GET /avatar.
type AvatarResponse struct {
	URL string `json:"url,omitempty"`
}

// AnalyticsData is the body of GET /analytics_data.
type AnalyticsData struct {
	History []HistoryPoint `json:"history"`
	Summary Summary        `json:"summary"`
}
