package domain

import "fmt"

// Phase identifies one stage of a full import
type Phase string

const (
	PhaseClubs             Phase = "clubs"
	PhasePlayers           Phase = "players"
	PhaseClubMembers       Phase = "club-members"
	PhaseYearStats         Phase = "year-stats"
	PhaseTournaments       Phase = "tournaments"
	PhaseChiefJudges       Phase = "chief-judges"
	PhaseTournamentResults Phase = "tournament-results"
	PhaseJudges            Phase = "judges"
	PhaseGames             Phase = "games"
	PhaseAggregateStats    Phase = "aggregate-statistics"
)

// PhaseOrder is the fixed dependency order of a full import.
// Phases are never reordered or skipped except by checkpoint resume.
var PhaseOrder = []Phase{
	PhaseClubs,
	PhasePlayers,
	PhaseClubMembers,
	PhaseYearStats,
	PhaseTournaments,
	PhaseChiefJudges,
	PhaseTournamentResults,
	PhaseJudges,
	PhaseGames,
	PhaseAggregateStats,
}

// PhaseIndex returns the position of p in the fixed order
func PhaseIndex(p Phase) (int, bool) {
	for i, known := range PhaseOrder {
		if known == p {
			return i, true
		}
	}
	return 0, false
}

// ParsePhase validates a phase name from user input or a stored checkpoint
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if _, ok := PhaseIndex(p); !ok {
		return "", fmt.Errorf("unknown phase: %q", s)
	}
	return p, nil
}
