package domain

// Persisted federation entities, keyed by the external source's ids.
// Phase handlers upsert these; the integrity checker audits the
// references between them.

type Club struct {
	ID      string
	Name    string
	Region  string
	OwnerID string
}

type Player struct {
	ID      string
	Name    string
	ClubID  string
	OwnerID string
}

type ClubMember struct {
	ID       string
	ClubID   string
	PlayerID string
	Season   int
}

type YearStat struct {
	ID          string
	PlayerID    string
	Year        int
	Rating      int
	GamesPlayed int
}

type Tournament struct {
	ID       string
	Title    string
	Year     int
	Location string
	OwnerID  string
}

type Judge struct {
	ID           string
	Name         string
	TournamentID string
	IsChief      bool
}

type TournamentResult struct {
	ID           string
	TournamentID string
	PlayerID     string
	Place        int
	Points       float64
}

type Game struct {
	ID           string
	TournamentID string
	Round        int
	Board        int
}

type GameParticipation struct {
	ID       string
	GameID   string
	PlayerID string
	Color    string
	Result   string
}

type AggregateStat struct {
	ID     string
	Scope  string
	Year   int
	Metric string
	Value  float64
}
