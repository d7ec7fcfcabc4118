package integrity

import (
	"fmt"

	"github.com/fedstats/fedsync/internal/domain"
	"github.com/fedstats/fedsync/internal/syncstore"
)

// check is one referential-integrity assertion over the imported tables
type check struct {
	description string
	childTable  string
	fkColumn    string
	parentTable string
}

// checks is the fixed audit list. Each entry contributes one result to
// the report regardless of the others.
var checks = []check{
	{"game participations reference existing players", "game_participations", "player_id", "players"},
	{"game participations reference existing games", "game_participations", "game_id", "games"},
	{"tournament results reference existing tournaments", "tournament_results", "tournament_id", "tournaments"},
	{"tournament results reference existing players", "tournament_results", "player_id", "players"},
	{"club members reference existing clubs", "club_members", "club_id", "clubs"},
	{"club members reference existing players", "club_members", "player_id", "players"},
	{"games reference existing tournaments", "games", "tournament_id", "tournaments"},
	{"year stats reference existing players", "year_stats", "player_id", "players"},
	{"judges reference existing tournaments", "judges", "tournament_id", "tournaments"},
}

// Checker audits referential integrity of the persisted federation data.
// Read-only; it never mutates the store.
type Checker struct {
	store *syncstore.Store
}

// New creates a Checker over the given store
func New(store *syncstore.Store) *Checker {
	return &Checker{store: store}
}

// Summary runs every check and reports pass/fail counts. An empty store
// passes all checks: no rows means no dangling references.
func (c *Checker) Summary() (*domain.IntegrityReport, error) {
	report := &domain.IntegrityReport{Status: domain.IntegrityPass}

	for _, chk := range checks {
		report.TotalChecks++

		orphans, err := c.store.CountOrphans(chk.childTable, chk.fkColumn, chk.parentTable)
		if err != nil {
			return nil, fmt.Errorf("integrity check %q: %w", chk.description, err)
		}
		if orphans > 0 {
			report.FailedChecks++
			report.Issues = append(report.Issues,
				fmt.Sprintf("%s: %d orphaned row(s) in %s.%s", chk.description, orphans, chk.childTable, chk.fkColumn))
			continue
		}
		report.PassedChecks++
	}

	if report.FailedChecks > 0 {
		report.Status = domain.IntegrityFail
	}
	return report, nil
}
