// Package statsfeed seeds player pools from a season-stats source.
package statsfeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

// DefaultQuota is the number of players kept per roster position.
const DefaultQuota = 20

// Fetch retry defaults: three attempts, waiting 1s then 2s.
const (
	DefaultFetchAttempts = 3
	DefaultFetchBackoff  = time.Second
)

// StatRow is one player's season line as the feed reports it. Position is
// the feed's raw abbreviation (LF, SP, ...).
type StatRow struct {
	PlayerID int
	Name     string
	Team     string
	Position string
	Stats    models.Stats
}

// Source returns season stat lines, best players first.
type Source interface {
	SeasonStats(ctx context.Context, season int) ([]StatRow, error)
}

// BuildOptions controls pool construction.
type BuildOptions struct {
	PoolID string // generated when empty
	Season int
	Quota  int // per position; DefaultQuota when zero
	Now    func() time.Time

	// FetchAttempts bounds calls to the source. The wait before retry n
	// is FetchBackoff doubled n-1 times.
	FetchAttempts int
	FetchBackoff  time.Duration
}

// NormalizePosition maps a feed position onto a roster slot. Outfield
// sub-positions become OF and starters/relievers become P. Positions the
// roster has no slot for report false.
func NormalizePosition(raw string) (models.Position, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "C":
		return models.PositionCatcher, true
	case "1B":
		return models.PositionFirstBase, true
	case "OF", "LF", "CF", "RF":
		return models.PositionOutfield, true
	case "P", "SP", "RP":
		return models.PositionPitcher, true
	default:
		return "", false
	}
}

// BuildPool turns feed rows into a pool. Rows keep their order; unsupported
// positions and repeated player ids are dropped, and at most Quota players
// are kept per position.
func BuildPool(rows []StatRow, opts BuildOptions) (*models.PlayerPool, error) {
	quota := opts.Quota
	if quota <= 0 {
		quota = DefaultQuota
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	id := opts.PoolID
	if id == "" {
		id = uuid.NewString()
	}

	pool := &models.PlayerPool{
		ID:        strings.ToLower(id),
		Season:    opts.Season,
		CreatedAt: now().UTC(),
	}
	seen := make(map[int]bool, len(rows))
	perPos := make(map[models.Position]int, len(models.AllPositions))
	for _, r := range rows {
		pos, ok := NormalizePosition(r.Position)
		if !ok || seen[r.PlayerID] || perPos[pos] >= quota || strings.TrimSpace(r.Name) == "" {
			continue
		}
		seen[r.PlayerID] = true
		perPos[pos]++
		pool.Players = append(pool.Players, models.Player{
			ID:       r.PlayerID,
			Name:     strings.TrimSpace(r.Name),
			Team:     r.Team,
			Position: pos,
			Stats:    r.Stats,
		})
	}
	if len(pool.Players) == 0 {
		return nil, errors.New("stats feed produced no draftable players")
	}
	return pool, nil
}

// Seed fetches a season from src, retrying with exponential backoff, and
// builds a pool from it.
func Seed(ctx context.Context, src Source, opts BuildOptions) (*models.PlayerPool, error) {
	rows, err := fetch(ctx, src, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch season %d stats: %w", opts.Season, err)
	}
	return BuildPool(rows, opts)
}

func fetch(ctx context.Context, src Source, opts BuildOptions) ([]StatRow, error) {
	attempts := opts.FetchAttempts
	if attempts <= 0 {
		attempts = DefaultFetchAttempts
	}
	wait := opts.FetchBackoff
	if wait <= 0 {
		wait = DefaultFetchBackoff
	}

	for attempt := 1; ; attempt++ {
		rows, err := src.SeasonStats(ctx, opts.Season)
		if err == nil {
			return rows, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt == attempts {
			return nil, fmt.Errorf("after %d attempts: %w", attempts, err)
		}
		logger.Warn("Stats fetch failed, retrying", "season", opts.Season, "attempt", attempt, "wait", wait, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
}
