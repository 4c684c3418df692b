package statsfeed

import (
	"context"

	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

// FixtureSource serves a built-in season for development and simulations.
// It ignores the requested season.
type FixtureSource struct {
	Rows []StatRow
}

// NewFixtureSource returns the built-in fixture season.
func NewFixtureSource() *FixtureSource {
	return &FixtureSource{Rows: fixtureRows()}
}

func (f *FixtureSource) SeasonStats(ctx context.Context, season int) ([]StatRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]StatRow, len(f.Rows))
	copy(out, f.Rows)
	return out, nil
}

func hitter(id int, name, team, pos string, ab, r, hr, rbi, sb int, avg, obp, slg float64) StatRow {
	return StatRow{PlayerID: id, Name: name, Team: team, Position: pos, Stats: models.Stats{
		AtBats: ab, Runs: r, HomeRuns: hr, RBI: rbi, StolenBases: sb, Avg: avg, OBP: obp, SLG: slg,
	}}
}

func pitcher(id int, name, team, pos string, ip float64, w, k, s int, era, whip float64) StatRow {
	return StatRow{PlayerID: id, Name: name, Team: team, Position: pos, Stats: models.Stats{
		InningsPitched: ip, Wins: w, Strikeouts: k, Saves: s, ERA: era, WHIP: whip,
	}}
}

func fixtureRows() []StatRow {
	return []StatRow{
		hitter(101, "Marco Delgado", "SEA", "C", 520, 78, 31, 92, 4, .268, .341, .512),
		hitter(102, "Tyler Brandt", "CLE", "C", 498, 65, 22, 80, 2, .259, .330, .455),
		hitter(103, "Owen Matsuda", "ATL", "C", 470, 60, 18, 71, 6, .271, .335, .440),
		hitter(104, "Rafael Ortiz", "BAL", "C", 455, 58, 20, 69, 1, .245, .318, .437),
		hitter(105, "Jonah Pike", "MIN", "C", 430, 51, 14, 58, 3, .252, .325, .401),
		hitter(106, "Devin Ashby", "TEX", "C", 402, 44, 11, 49, 7, .247, .309, .388),

		hitter(201, "Caleb Hart", "LAD", "1B", 590, 104, 39, 118, 5, .291, .389, .580),
		hitter(202, "Ivan Petrov", "NYM", "1B", 575, 92, 33, 104, 3, .283, .371, .541),
		hitter(203, "Sam Whitaker", "HOU", "1B", 560, 88, 29, 97, 8, .276, .360, .510),
		hitter(204, "Luis Carmona", "SD", "1B", 548, 81, 27, 90, 2, .268, .349, .497),
		hitter(205, "Grant Ellison", "CHC", "1B", 530, 74, 24, 85, 1, .262, .338, .474),
		hitter(206, "Noah Brennan", "MIL", "1B", 512, 70, 21, 77, 4, .258, .331, .452),

		hitter(301, "Andre Wallace", "NYY", "RF", 600, 118, 44, 121, 12, .294, .402, .613),
		hitter(302, "Kenji Mori", "LAA", "CF", 610, 112, 26, 79, 41, .301, .381, .492),
		hitter(303, "Elias Romero", "PHI", "LF", 585, 99, 35, 105, 9, .279, .362, .538),
		hitter(304, "Darius Cole", "ARI", "CF", 592, 101, 19, 66, 48, .285, .360, .445),
		hitter(305, "Miles Thornton", "TOR", "OF", 570, 90, 30, 96, 15, .270, .348, .505),
		hitter(306, "Hector Vance", "BOS", "RF", 555, 84, 25, 88, 11, .266, .343, .480),

		pitcher(401, "Cole Ramsey", "LAD", "SP", 205.1, 17, 262, 0, 2.71, 0.98),
		pitcher(402, "Victor Lindqvist", "ATL", "SP", 198.0, 15, 241, 0, 2.95, 1.03),
		pitcher(403, "Brooks Adler", "HOU", "SP", 192.2, 14, 228, 0, 3.12, 1.07),
		pitcher(404, "Shane Okafor", "NYY", "RP", 68.0, 5, 98, 39, 2.14, 0.94),
		pitcher(405, "Garrett Lowe", "SEA", "P", 185.0, 13, 205, 0, 3.30, 1.11),
		pitcher(406, "Tomas Reyes", "SD", "RP", 64.1, 4, 85, 33, 2.48, 1.02),

		// Positions without a roster slot are dropped when building a pool.
		hitter(501, "Felix Navarro", "MIA", "SS", 580, 95, 20, 70, 25, .280, .340, .450),
		hitter(502, "Reid Caldwell", "KC", "2B", 560, 85, 15, 65, 18, .275, .333, .420),
	}
}
