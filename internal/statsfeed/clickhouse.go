package statsfeed

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseSource reads season lines from a ClickHouse season_stats table.
type ClickHouseSource struct {
	conn driver.Conn
}

// NewClickHouseSource connects and pings ClickHouse.
func NewClickHouseSource(ctx context.Context, addr, database, username, password string) (*ClickHouseSource, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseSource{conn: conn}, nil
}

// seasonStatsQuery ranks hitters by OPS and pitchers by strikeouts so the
// per-position quota keeps the strongest players.
const seasonStatsQuery = `
	SELECT
		toInt64(player_id),
		name,
		team,
		position,
		toInt64(at_bats),
		toInt64(runs),
		toInt64(home_runs),
		toInt64(rbi),
		toInt64(stolen_bases),
		toFloat64(avg),
		toFloat64(obp),
		toFloat64(slg),
		toFloat64(innings_pitched),
		toInt64(wins),
		toInt64(strikeouts),
		toFloat64(era),
		toFloat64(whip),
		toInt64(saves)
	FROM season_stats
	WHERE season = ?
	ORDER BY
		position IN ('P', 'SP', 'RP') ASC,
		if(position IN ('P', 'SP', 'RP'), toFloat64(strikeouts), obp + slg) DESC,
		player_id ASC
`

func (c *ClickHouseSource) SeasonStats(ctx context.Context, season int) ([]StatRow, error) {
	rows, err := c.conn.Query(ctx, seasonStatsQuery, season)
	if err != nil {
		return nil, fmt.Errorf("query season_stats: %w", err)
	}
	defer rows.Close()

	var out []StatRow
	for rows.Next() {
		var (
			r                                         StatRow
			id, ab, runs, hr, rbi, sb, wins, k, saves int64
		)
		if err := rows.Scan(
			&id, &r.Name, &r.Team, &r.Position,
			&ab, &runs, &hr, &rbi, &sb,
			&r.Stats.Avg, &r.Stats.OBP, &r.Stats.SLG,
			&r.Stats.InningsPitched, &wins, &k,
			&r.Stats.ERA, &r.Stats.WHIP, &saves,
		); err != nil {
			return nil, err
		}
		r.PlayerID = int(id)
		r.Stats.AtBats = int(ab)
		r.Stats.Runs = int(runs)
		r.Stats.HomeRuns = int(hr)
		r.Stats.RBI = int(rbi)
		r.Stats.StolenBases = int(sb)
		r.Stats.Wins = int(wins)
		r.Stats.Strikeouts = int(k)
		r.Stats.Saves = int(saves)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping checks the connection.
func (c *ClickHouseSource) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *ClickHouseSource) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
