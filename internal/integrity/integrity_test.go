package integrity

import (
	"strings"
	"testing"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/fedstats/fedsync/internal/syncstore"
)

func newTestStore(t *testing.T) *syncstore.Store {
	t.Helper()
	store, err := syncstore.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSummary_EmptyStorePasses(t *testing.T) {
	checker := New(newTestStore(t))

	report, err := checker.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != domain.IntegrityPass {
		t.Errorf("Status = %s, want pass", report.Status)
	}
	if report.FailedChecks != 0 {
		t.Errorf("FailedChecks = %d, want 0", report.FailedChecks)
	}
	if report.TotalChecks == 0 {
		t.Error("TotalChecks = 0, want the fixed check count")
	}
	if report.PassedChecks != report.TotalChecks {
		t.Errorf("PassedChecks = %d, want %d", report.PassedChecks, report.TotalChecks)
	}
}

func TestSummary_ConsistentDataPasses(t *testing.T) {
	store := newTestStore(t)

	if err := store.UpsertClub(&domain.Club{ID: "c1", Name: "Spartak"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertPlayer(&domain.Player{ID: "p1", Name: "Ivanov", ClubID: "c1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertTournament(&domain.Tournament{ID: "t1", Title: "Open 2025"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertGame(&domain.Game{ID: "g1", TournamentID: "t1", Round: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertGameParticipation(&domain.GameParticipation{ID: "gp1", GameID: "g1", PlayerID: "p1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertTournamentResult(&domain.TournamentResult{ID: "r1", TournamentID: "t1", PlayerID: "p1", Place: 1}); err != nil {
		t.Fatal(err)
	}

	report, err := New(store).Summary()
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != domain.IntegrityPass {
		t.Errorf("Status = %s, want pass; issues: %v", report.Status, report.Issues)
	}
}

func TestSummary_OrphanedParticipationFails(t *testing.T) {
	store := newTestStore(t)

	if err := store.UpsertTournament(&domain.Tournament{ID: "t1", Title: "Open 2025"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertGame(&domain.Game{ID: "g1", TournamentID: "t1"}); err != nil {
		t.Fatal(err)
	}
	// References a player that was never imported
	if err := store.UpsertGameParticipation(&domain.GameParticipation{ID: "gp1", GameID: "g1", PlayerID: "missing"}); err != nil {
		t.Fatal(err)
	}

	report, err := New(store).Summary()
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != domain.IntegrityFail {
		t.Errorf("Status = %s, want fail", report.Status)
	}
	if report.FailedChecks == 0 {
		t.Error("FailedChecks = 0, want at least 1")
	}

	found := false
	for _, issue := range report.Issues {
		if strings.Contains(issue, "game_participations.player_id") {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want one naming game_participations.player_id", report.Issues)
	}
	if report.PassedChecks+report.FailedChecks != report.TotalChecks {
		t.Errorf("passed(%d) + failed(%d) != total(%d)", report.PassedChecks, report.FailedChecks, report.TotalChecks)
	}
}
