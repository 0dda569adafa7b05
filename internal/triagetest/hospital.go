package triagetest

import (
	"fmt"
	"slices"

	"github.com/Garsondee/Triage-Sense/internal/triage"
)

// DefaultDayLimit ends a game after this many decisions.
const DefaultDayLimit = 30

// Score reproduces the server's severity score for a patient.
func Score(p triage.Patient) int {
	score := 0
	if p.Age > 60 {
		score += 2
	}
	if slices.Contains(p.Symptoms, "fever") {
		score++
	}
	if slices.Contains(p.Symptoms, "breathlessness") {
		score += 3
	}
	if p.Exposure {
		score += 2
	}
	if p.Comorbidity != "" && p.Comorbidity != "none" {
		score++
	}
	return score
}

// RiskFor maps a score to its band: <=2 Low, 3-4 Medium, else High.
func RiskFor(p triage.Patient) triage.Risk {
	switch s := Score(p); {
	case s <= 2:
		return triage.RiskLow
	case s <= 4:
		return triage.RiskMedium
	default:
		return triage.RiskHigh
	}
}

// DefaultPatients is the cycle served when no script is given: one patient
// per risk band.
func DefaultPatients() []triage.Patient {
	return []triage.Patient{
		{Age: 34, Symptoms: []string{"cough"}, Comorbidity: "none", Risk: triage.RiskLow},
		{Age: 67, Symptoms: []string{"fever"}, Comorbidity: "none", Risk: triage.RiskMedium},
		{Age: 72, Symptoms: []string{"fever", "breathlessness"}, Exposure: true, Comorbidity: "diabetes", Risk: triage.RiskHigh},
	}
}

type inpatient struct {
	daysRemaining int
}

// hospital is one session's game. Decisions follow the server rules with the
// random length of stay replaced by a fixed 1,2,3 cycle.
type hospital struct {
	day       int
	dayLimit  int
	totalBeds int
	inpatient []inpatient
	treated   int
	deaths    int
	recovered int
	infected  int
	trust     int
	gameOver  bool
	history   []triage.HistoryPoint

	patients []triage.Patient
	next     int
	current  *triage.Patient
	stays    int
}

func newHospital(beds, dayLimit int, patients []triage.Patient) *hospital {
	h := &hospital{
		day:       1,
		dayLimit:  dayLimit,
		totalBeds: beds,
		trust:     100,
		patients:  patients,
	}
	h.record()
	return h
}

func (h *hospital) available() int {
	return max(0, h.totalBeds-len(h.inpatient))
}

func (h *hospital) state() triage.GameState {
	return triage.GameState{
		Day:             h.day,
		AvailableBeds:   h.available(),
		TotalBeds:       h.totalBeds,
		PatientsTreated: h.treated,
		Deaths:          h.deaths,
		Recovered:       h.recovered,
		InfectedStaff:   h.infected,
		PublicTrust:     h.trust,
	}
}

func (h *hospital) record() {
	s := h.state()
	if n := len(h.history); n > 0 && h.history[n-1].Day == s.Day {
		return
	}
	h.history = append(h.history, triage.HistoryPoint{
		Day:             s.Day,
		PublicTrust:     s.PublicTrust,
		TotalBeds:       s.TotalBeds,
		AvailableBeds:   s.AvailableBeds,
		PatientsTreated: s.PatientsTreated,
		Deaths:          s.Deaths,
		Recovered:       s.Recovered,
		InfectedStaff:   s.InfectedStaff,
	})
}

func (h *hospital) nextPatient() triage.Patient {
	p := h.patients[h.next%len(h.patients)]
	h.next++
	if p.Risk == "" {
		p.Risk = RiskFor(p)
	}
	h.current = &p
	return p
}

func (h *hospital) summary() triage.Summary {
	s := h.state()
	rating, narrative := Rate(s)
	return triage.Summary{
		PatientsTreated: s.PatientsTreated,
		Recovered:       s.Recovered,
		Deaths:          s.Deaths,
		InfectedStaff:   s.InfectedStaff,
		PublicTrust:     s.PublicTrust,
		Rating:          rating,
		Narrative:       narrative,
		Day:             s.Day,
		TotalBeds:       s.TotalBeds,
		AvailableBeds:   s.AvailableBeds,
	}
}

func (h *hospital) final() *triage.FinalResult {
	s := h.summary()
	return &triage.FinalResult{
		Rating:        s.Rating,
		Narrative:     s.Narrative,
		Day:           s.Day,
		Recovered:     s.Recovered,
		Deaths:        s.Deaths,
		InfectedStaff: s.InfectedStaff,
		PublicTrust:   s.PublicTrust,
	}
}

// Rate scores a finished game: recovered minus deaths minus staff infections.
func Rate(s triage.GameState) (rating, narrative string) {
	switch score := s.Recovered - s.Deaths - s.InfectedStaff; {
	case score > 10:
		return "Hero", "You managed scarce resources wisely and saved many lives."
	case score > 0:
		return "Mixed", "You made tough calls - some good outcomes, some losses."
	default:
		return "Disaster", "Resource strain and poor outcomes undermined public trust."
	}
}

func (h *hospital) decide(action triage.Action) string {
	if h.current == nil {
		return "No patient"
	}
	risk := h.current.Risk
	var msg string

	switch action {
	case triage.ActionAdmit:
		if h.available() > 0 {
			h.stays++
			stay := (h.stays-1)%3 + 1
			h.inpatient = append(h.inpatient, inpatient{daysRemaining: stay})
			msg = fmt.Sprintf("Patient admitted for %d day(s).", stay)
			if risk == triage.RiskHigh {
				h.infected++
			}
			break
		}
		switch risk {
		case triage.RiskHigh:
			h.deaths++
			h.trust -= 15
			h.infected++
			msg = "No beds available - high-risk patient died after being turned away."
		case triage.RiskMedium:
			h.deaths++
			h.trust -= 10
			msg = "No beds - medium-risk patient died after being turned away."
		default:
			h.trust -= 5
			h.recovered++
			h.treated++
			msg = "No beds - low-risk patient discharged safely but trust dipped."
		}

	case triage.ActionDischarge:
		switch risk {
		case triage.RiskLow:
			h.recovered++
			h.trust = min(100, h.trust+1)
			msg = "Patient discharged safely."
		case triage.RiskMedium:
			h.recovered++
			h.infected++
			h.trust -= 5
			msg = "Patient discharged - managed but caused staff strain."
		default:
			h.deaths++
			h.trust -= 20
			h.infected += 2
			msg = "High-risk patient discharged and died - significant consequences."
		}
		h.treated++

	case triage.ActionIsolate:
		h.recovered++
		switch risk {
		case triage.RiskHigh:
			h.trust = min(100, h.trust+2)
			msg = "High-risk patient isolated and treated successfully."
		case triage.RiskMedium:
			h.trust = min(100, h.trust+1)
			msg = "Patient isolated; outcome stable."
		default:
			h.trust = min(100, h.trust+1)
			msg = "Low-risk patient isolated (conservative), public felt reassured."
		}
		h.treated++
	}

	h.day++
	h.tick()
	h.trust = max(0, min(100, h.trust))
	if h.available() == 0 || h.trust == 0 || h.day > h.dayLimit {
		h.gameOver = true
	}
	h.record()
	return msg
}

// tick discharges inpatients whose stay has ended.
func (h *hospital) tick() {
	kept := h.inpatient[:0]
	for _, p := range h.inpatient {
		p.daysRemaining--
		if p.daysRemaining <= 0 {
			h.recovered++
			h.treated++
			continue
		}
		kept = append(kept, p)
	}
	h.inpatient = kept
}
