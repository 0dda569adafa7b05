package game

import (
	"fmt"
	"strings"
	"testing"
)

func TestMessageLog_RingOverwritesOldest(t *testing.T) {
	ml := NewMessageLog()
	for i := 0; i < MessageLogSize+5; i++ {
		ml.Add(i, "Admit", fmt.Sprintf("m%d", i))
	}
	got := ml.Recent()
	if len(got) != MessageLogSize {
		t.Fatalf("expected %d entries, got %d", MessageLogSize, len(got))
	}
	if got[0].Text != "m5" {
		t.Fatalf("expected oldest kept entry m5, got %s", got[0].Text)
	}
	if got[len(got)-1].Text != fmt.Sprintf("m%d", MessageLogSize+4) {
		t.Fatalf("expected newest last, got %s", got[len(got)-1].Text)
	}
	ml.Reset()
	if ml.Len() != 0 || len(ml.Recent()) != 0 {
		t.Fatal("reset should empty the log")
	}
}

func TestEventLog_FilterAndFormat(t *testing.T) {
	l := NewEventLog()
	l.Add(1, CatPhase, "enter", "loading", 0)
	l.Add(1, CatDecision, "sent", "Admit", 0)
	l.Add(2, CatDecision, "outcome", "Patient admitted for 1 day(s).", 0)

	if l.Count(CatDecision, "") != 2 {
		t.Fatalf("expected 2 decision events, got %d", l.Count(CatDecision, ""))
	}
	last, ok := l.LastOf(CatDecision, "")
	if !ok || last.Seq != 3 {
		t.Fatalf("expected last decision seq 3, got %+v", last)
	}
	if !l.HasEvent(CatDecision, "outcome", "admitted") {
		t.Fatal("expected outcome event to match substring")
	}
	if l.HasEvent(CatExport, "", "") {
		t.Fatal("no export events were recorded")
	}
	lines := strings.Split(strings.TrimSpace(l.Format()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "[#002 D=01] decision") {
		t.Fatalf("unexpected format output:\n%s", l.Format())
	}
}

func TestPhase_String(t *testing.T) {
	cases := map[Phase]string{
		PhaseLoading:      "loading",
		PhasePatientShown: "patient_shown",
		PhaseDecisionSent: "decision_sent",
		PhaseGameOver:     "game_over",
		Phase(42):         "unknown",
	}
	for p, want := range cases {
		if p.String() != want {
			t.Fatalf("expected %s, got %s", want, p.String())
		}
	}
	if !PhasePatientShown.AcceptsDecision() || PhaseDecisionSent.AcceptsDecision() {
		t.Fatal("only patient_shown accepts decisions")
	}
}
