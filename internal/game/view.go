package game

import (
	"fmt"
	"image"
	"strings"

	"github.com/Garsondee/Triage-Sense/internal/metrics"
	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// PatientCard is the rendered patient panel.
type PatientCard struct {
	Age         string
	Symptoms    string
	Exposure    string
	Comorbidity string
	Risk        triage.Risk
	BadgeClass  string
}

// NewPatientCard formats a patient for display.
func NewPatientCard(p triage.Patient) PatientCard {
	exposure := "No"
	if p.Exposure {
		exposure = "Yes"
	}
	risk := p.Risk.OrDefault()
	return PatientCard{
		Age:         fmt.Sprint(p.Age),
		Symptoms:    strings.Join(p.Symptoms, ", "),
		Exposure:    exposure,
		Comorbidity: p.Comorbidity,
		Risk:        risk,
		BadgeClass:  risk.BadgeClass(),
	}
}

// StateView is the rendered hospital status strip.
type StateView struct {
	Day           string
	Beds          string
	Treated       string
	Deaths        string
	Recovered     string
	StaffInfected string
	Trust         string
	Bars          metrics.Bars
}

// NewStateView formats a game state for display.
func NewStateView(s triage.GameState) StateView {
	return StateView{
		Day:           fmt.Sprint(s.Day),
		Beds:          fmt.Sprintf("%d/%d", s.AvailableBeds, s.TotalBeds),
		Treated:       fmt.Sprint(s.PatientsTreated),
		Deaths:        fmt.Sprint(s.Deaths),
		Recovered:     fmt.Sprint(s.Recovered),
		StaffInfected: fmt.Sprint(s.InfectedStaff),
		Trust:         fmt.Sprintf("%d%%", s.PublicTrust),
		Bars:          metrics.StateBars(s),
	}
}

// FinalView is the terminal summary block.
type FinalView struct {
	Lines []string
	Text  string
}

// NewFinalView formats a final result.
func NewFinalView(f triage.FinalResult) FinalView {
	return FinalView{Lines: f.Lines(), Text: f.Text()}
}

// View is the display surface driven by the controller. Implementations must
// be safe to call from any goroutine.
type View interface {
	ShowLoading()
	ShowPatient(PatientCard)
	// ShowAvatar displays img, or the placeholder when img is nil.
	ShowAvatar(img image.Image)
	ShowState(StateView)
	ShowMessage(text string)
	ShowFinal(FinalView)
	HideFinal()
	ShowError(err error)
}

// Control is a button the controller can disable during a restart.
type Control interface {
	SetDisabled(disabled bool)
}

// NopView discards everything.
type NopView struct{}

func (NopView) ShowLoading() {}
func (NopView) ShowPatient(PatientCard) {}
func (NopView) ShowAvatar(image.Image) {}
func (NopView) ShowState(StateView) {}
func (NopView) ShowMessage(string) {}
func (NopView) ShowFinal(FinalView) {}
func (NopView) HideFinal() {}
func (NopView) ShowError(error) {}
