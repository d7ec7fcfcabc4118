package domain

import "testing"

func TestPhaseOrder_Complete(t *testing.T) {
	if len(PhaseOrder) != 10 {
		t.Fatalf("PhaseOrder length = %d, want 10", len(PhaseOrder))
	}
	if PhaseOrder[0] != PhaseClubs {
		t.Errorf("First phase = %s, want clubs", PhaseOrder[0])
	}
	if PhaseOrder[len(PhaseOrder)-1] != PhaseAggregateStats {
		t.Errorf("Last phase = %s, want aggregate-statistics", PhaseOrder[len(PhaseOrder)-1])
	}
}

func TestPhaseIndex(t *testing.T) {
	idx, ok := PhaseIndex(PhaseTournaments)
	if !ok {
		t.Fatal("PhaseIndex(tournaments) not found")
	}
	if idx != 4 {
		t.Errorf("PhaseIndex(tournaments) = %d, want 4", idx)
	}

	if _, ok := PhaseIndex(Phase("openings")); ok {
		t.Error("PhaseIndex accepted unknown phase")
	}
}

func TestParsePhase_Invalid(t *testing.T) {
	if _, err := ParsePhase("not-a-phase"); err == nil {
		t.Error("ParsePhase accepted invalid name")
	}
	p, err := ParsePhase("club-members")
	if err != nil {
		t.Fatalf("ParsePhase(club-members) error: %v", err)
	}
	if p != PhaseClubMembers {
		t.Errorf("ParsePhase = %s, want club-members", p)
	}
}

func TestRunStatus_Terminal(t *testing.T) {
	terminal := []RunStatus{StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	active := []RunStatus{StatusPending, StatusRunning, StatusPaused, StatusCancelling}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}
