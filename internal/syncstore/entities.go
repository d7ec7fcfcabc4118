package syncstore

import "github.com/fedstats/fedsync/internal/domain"

// Upserts for the imported federation tables. Keyed by external ids so
// replaying a batch after a crash is harmless.

func (s *Store) UpsertClub(c *domain.Club) error {
	_, err := s.db.Exec(`
		INSERT INTO clubs (id, name, region, owner_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, region = excluded.region
	`, c.ID, c.Name, c.Region, c.OwnerID)
	return err
}

func (s *Store) UpsertPlayer(p *domain.Player) error {
	_, err := s.db.Exec(`
		INSERT INTO players (id, name, club_id, owner_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, club_id = excluded.club_id
	`, p.ID, p.Name, p.ClubID, p.OwnerID)
	return err
}

func (s *Store) UpsertClubMember(m *domain.ClubMember) error {
	_, err := s.db.Exec(`
		INSERT INTO club_members (id, club_id, player_id, season) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET club_id = excluded.club_id, player_id = excluded.player_id, season = excluded.season
	`, m.ID, m.ClubID, m.PlayerID, m.Season)
	return err
}

func (s *Store) UpsertYearStat(y *domain.YearStat) error {
	_, err := s.db.Exec(`
		INSERT INTO year_stats (id, player_id, year, rating, games_played) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET rating = excluded.rating, games_played = excluded.games_played
	`, y.ID, y.PlayerID, y.Year, y.Rating, y.GamesPlayed)
	return err
}

func (s *Store) UpsertTournament(t *domain.Tournament) error {
	_, err := s.db.Exec(`
		INSERT INTO tournaments (id, title, year, location, owner_id) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, year = excluded.year, location = excluded.location
	`, t.ID, t.Title, t.Year, t.Location, t.OwnerID)
	return err
}

func (s *Store) UpsertJudge(j *domain.Judge) error {
	_, err := s.db.Exec(`
		INSERT INTO judges (id, name, tournament_id, is_chief) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, tournament_id = excluded.tournament_id, is_chief = excluded.is_chief
	`, j.ID, j.Name, j.TournamentID, j.IsChief)
	return err
}

func (s *Store) UpsertTournamentResult(r *domain.TournamentResult) error {
	_, err := s.db.Exec(`
		INSERT INTO tournament_results (id, tournament_id, player_id, place, points) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET place = excluded.place, points = excluded.points
	`, r.ID, r.TournamentID, r.PlayerID, r.Place, r.Points)
	return err
}

func (s *Store) UpsertGame(g *domain.Game) error {
	_, err := s.db.Exec(`
		INSERT INTO games (id, tournament_id, round, board) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET round = excluded.round, board = excluded.board
	`, g.ID, g.TournamentID, g.Round, g.Board)
	return err
}

func (s *Store) UpsertGameParticipation(p *domain.GameParticipation) error {
	_, err := s.db.Exec(`
		INSERT INTO game_participations (id, game_id, player_id, color, result) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET color = excluded.color, result = excluded.result
	`, p.ID, p.GameID, p.PlayerID, p.Color, p.Result)
	return err
}

func (s *Store) UpsertAggregateStat(a *domain.AggregateStat) error {
	_, err := s.db.Exec(`
		INSERT INTO aggregate_stats (id, scope, year, metric, value) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value
	`, a.ID, a.Scope, a.Year, a.Metric, a.Value)
	return err
}

// CountRows returns the number of rows in one of the imported tables.
// The table name comes from a fixed internal check list, never user input.
func (s *Store) CountRows(table string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
	return n, err
}

// CountOrphans returns the number of child rows whose foreign-key column
// references no existing parent row. Empty references do not count.
func (s *Store) CountOrphans(childTable, fkColumn, parentTable string) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM ` + childTable + ` c
		WHERE c.` + fkColumn + ` IS NOT NULL AND c.` + fkColumn + ` != ''
		AND NOT EXISTS (SELECT 1 FROM ` + parentTable + ` p WHERE p.id = c.` + fkColumn + `)
	`).Scan(&n)
	return n, err
}
