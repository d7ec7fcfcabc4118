package syncstore

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    scope TEXT PRIMARY KEY,
    phase TEXT NOT NULL,
    batch INTEGER NOT NULL DEFAULT 0,
    progress REAL NOT NULL DEFAULT 0,
    is_paused BOOLEAN NOT NULL DEFAULT FALSE,
    cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_logs (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    status TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    records_processed INTEGER NOT NULL DEFAULT 0,
    errors TEXT,
    integrity TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_logs_status ON sync_logs(status);

CREATE TABLE IF NOT EXISTS sync_status (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    is_running BOOLEAN NOT NULL DEFAULT FALSE,
    status TEXT NOT NULL DEFAULT 'pending',
    progress REAL NOT NULL DEFAULT 0,
    processed_records INTEGER NOT NULL DEFAULT 0,
    total_records INTEGER NOT NULL DEFAULT 0,
    current_operation TEXT,
    last_error TEXT,
    valid_records INTEGER NOT NULL DEFAULT 0,
    invalid_records INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    is_system BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clubs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    region TEXT,
    owner_id TEXT
);

CREATE TABLE IF NOT EXISTS players (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    club_id TEXT,
    owner_id TEXT
);

CREATE TABLE IF NOT EXISTS club_members (
    id TEXT PRIMARY KEY,
    club_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    season INTEGER
);

CREATE TABLE IF NOT EXISTS year_stats (
    id TEXT PRIMARY KEY,
    player_id TEXT NOT NULL,
    year INTEGER NOT NULL,
    rating INTEGER,
    games_played INTEGER
);

CREATE TABLE IF NOT EXISTS tournaments (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    year INTEGER,
    location TEXT,
    owner_id TEXT
);

CREATE TABLE IF NOT EXISTS judges (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    tournament_id TEXT,
    is_chief BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS tournament_results (
    id TEXT PRIMARY KEY,
    tournament_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    place INTEGER,
    points REAL
);

CREATE TABLE IF NOT EXISTS games (
    id TEXT PRIMARY KEY,
    tournament_id TEXT NOT NULL,
    round INTEGER,
    board INTEGER
);

CREATE TABLE IF NOT EXISTS game_participations (
    id TEXT PRIMARY KEY,
    game_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    color TEXT,
    result TEXT
);

CREATE TABLE IF NOT EXISTS aggregate_stats (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    year INTEGER,
    metric TEXT NOT NULL,
    value REAL
);

CREATE INDEX IF NOT EXISTS idx_players_club ON players(club_id);
CREATE INDEX IF NOT EXISTS idx_club_members_club ON club_members(club_id);
CREATE INDEX IF NOT EXISTS idx_results_tournament ON tournament_results(tournament_id);
CREATE INDEX IF NOT EXISTS idx_participations_game ON game_participations(game_id);
`
