package scrape

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fedstats/fedsync/internal/domain"
	"github.com/fedstats/fedsync/internal/errlog"
	"github.com/fedstats/fedsync/internal/phase"
	"github.com/fedstats/fedsync/internal/syncstore"
)

// rowUpsert persists one parsed listing row. Upsert-by-external-id keeps
// batch replays harmless.
type rowUpsert func(id string, cells []string) error

// DefaultPageSize is the listing page size requested when none is configured
const DefaultPageSize = 50

// listHandler imports one entity type by paging through the source's
// listing tables. One page is one batch; an empty page ends the phase.
type listHandler struct {
	phase    domain.Phase
	client   *Client
	errors   *errlog.Log
	path     string
	pageSize int
	upsert   rowUpsert
}

func (h *listHandler) Name() domain.Phase { return h.phase }

func (h *listHandler) Run(ctx context.Context, offset int) (phase.Result, error) {
	doc, err := h.client.FetchDocument(ctx, fmt.Sprintf("%s?page=%d&limit=%d", h.path, offset, h.pageSize))
	if err != nil {
		return phase.Result{}, err
	}

	processed := 0
	rows := doc.Find("table.contenttable tr")
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		id, cells := parseRow(row)
		if id == "" {
			return
		}

		batch := offset
		_, ok := errlog.Guard(h.errors, domain.CodePersistFailed, domain.ErrorContext{
			BatchIndex: &batch,
			EntityID:   id,
			EntityType: string(h.phase),
			Operation:  "upsert",
		}, func() (struct{}, error) {
			return struct{}{}, h.upsert(id, cells)
		})
		if ok {
			processed++
		}
	})

	return phase.Result{
		ItemsProcessed: processed,
		NextOffset:     offset + 1,
		Done:           rows.Length() <= 1 || doc.Find("a.nextpage").Length() == 0,
	}, nil
}

// parseRow extracts the row's external id from its first link and the
// trimmed text of every cell.
func parseRow(row *goquery.Selection) (string, []string) {
	var cells []string
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})

	href, ok := row.Find("a").First().Attr("href")
	if !ok {
		return "", cells
	}
	return idFromHref(href), cells
}

// idFromHref pulls the id query parameter out of a listing link
func idFromHref(href string) string {
	_, query, ok := strings.Cut(href, "?")
	if !ok {
		return ""
	}
	for _, pair := range strings.Split(query, "&") {
		if value, found := strings.CutPrefix(pair, "id="); found {
			return value
		}
	}
	return ""
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func cellInt(cells []string, i int) int {
	n, _ := strconv.Atoi(cell(cells, i))
	return n
}

func cellFloat(cells []string, i int) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(cell(cells, i), ",", "."), 64)
	return f
}

// aggregateHandler is the final phase: it derives summary statistics from
// the rows the earlier phases imported. Single batch, no fetching.
type aggregateHandler struct {
	store *syncstore.Store
}

func (h *aggregateHandler) Name() domain.Phase { return domain.PhaseAggregateStats }

func (h *aggregateHandler) Run(ctx context.Context, offset int) (phase.Result, error) {
	tables := []string{"clubs", "players", "tournaments", "games", "tournament_results"}

	processed := 0
	for _, table := range tables {
		n, err := h.store.CountRows(table)
		if err != nil {
			return phase.Result{}, err
		}
		err = h.store.UpsertAggregateStat(&domain.AggregateStat{
			ID:     "total_" + table,
			Scope:  "federation",
			Metric: "total_" + table,
			Value:  float64(n),
		})
		if err != nil {
			return phase.Result{}, err
		}
		processed++
	}

	return phase.Result{ItemsProcessed: processed, Done: true}, nil
}

// Handlers builds the full ordered phase handler line-up backed by the
// scrape client and the store. The system user owns every created record;
// pageSize caps the rows requested per listing page.
func Handlers(client *Client, store *syncstore.Store, errors *errlog.Log, pageSize int) ([]phase.Handler, error) {
	owner, err := store.EnsureSystemUser()
	if err != nil {
		return nil, fmt.Errorf("provisioning system user: %w", err)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	list := func(p domain.Phase, path string, upsert rowUpsert) phase.Handler {
		return &listHandler{phase: p, client: client, errors: errors, path: path, pageSize: pageSize, upsert: upsert}
	}

	return []phase.Handler{
		list(domain.PhaseClubs, "/clubs", func(id string, cells []string) error {
			return store.UpsertClub(&domain.Club{ID: id, Name: cell(cells, 0), Region: cell(cells, 1), OwnerID: owner})
		}),
		list(domain.PhasePlayers, "/players", func(id string, cells []string) error {
			return store.UpsertPlayer(&domain.Player{ID: id, Name: cell(cells, 0), ClubID: cell(cells, 1), OwnerID: owner})
		}),
		list(domain.PhaseClubMembers, "/club-members", func(id string, cells []string) error {
			return store.UpsertClubMember(&domain.ClubMember{ID: id, ClubID: cell(cells, 0), PlayerID: cell(cells, 1), Season: cellInt(cells, 2)})
		}),
		list(domain.PhaseYearStats, "/year-stats", func(id string, cells []string) error {
			return store.UpsertYearStat(&domain.YearStat{ID: id, PlayerID: cell(cells, 0), Year: cellInt(cells, 1), Rating: cellInt(cells, 2), GamesPlayed: cellInt(cells, 3)})
		}),
		list(domain.PhaseTournaments, "/tournaments", func(id string, cells []string) error {
			return store.UpsertTournament(&domain.Tournament{ID: id, Title: cell(cells, 0), Year: cellInt(cells, 1), Location: cell(cells, 2), OwnerID: owner})
		}),
		list(domain.PhaseChiefJudges, "/chief-judges", func(id string, cells []string) error {
			return store.UpsertJudge(&domain.Judge{ID: id, Name: cell(cells, 0), TournamentID: cell(cells, 1), IsChief: true})
		}),
		list(domain.PhaseTournamentResults, "/results", func(id string, cells []string) error {
			return store.UpsertTournamentResult(&domain.TournamentResult{ID: id, TournamentID: cell(cells, 0), PlayerID: cell(cells, 1), Place: cellInt(cells, 2), Points: cellFloat(cells, 3)})
		}),
		list(domain.PhaseJudges, "/judges", func(id string, cells []string) error {
			return store.UpsertJudge(&domain.Judge{ID: id, Name: cell(cells, 0), TournamentID: cell(cells, 1)})
		}),
		list(domain.PhaseGames, "/games", func(id string, cells []string) error {
			if err := store.UpsertGame(&domain.Game{ID: id, TournamentID: cell(cells, 0), Round: cellInt(cells, 1), Board: cellInt(cells, 2)}); err != nil {
				return err
			}
			// Player columns carry the participation rows for the game
			for i, color := range []string{"white", "black"} {
				playerID := cell(cells, 3+i)
				if playerID == "" {
					continue
				}
				err := store.UpsertGameParticipation(&domain.GameParticipation{
					ID:       id + "-" + color,
					GameID:   id,
					PlayerID: playerID,
					Color:    color,
					Result:   cell(cells, 5),
				})
				if err != nil {
					return err
				}
			}
			return nil
		}),
		&aggregateHandler{store: store},
	}, nil
}
