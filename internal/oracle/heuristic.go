package oracle

import (
	"context"
	"fmt"
	"sort"

	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

// Strategy names understood by Heuristic.
const (
	StrategyEarlyAce      = "early_ace"
	StrategyBalanced      = "balanced"
	StrategyPowerHitting  = "power_hitting_focus"
	StrategySpeed         = "speed"
	StrategyHittersFirst  = "hitters_first"
	StrategyPitchingHeavy = "pitching_heavy"
)

// DefaultStrategies maps each strategy to a short description.
var DefaultStrategies = map[string]string{
	StrategyEarlyAce:      "Secure a top starting pitcher in the first round, then build a balanced lineup.",
	StrategyBalanced:      "Fill the scarcest position first with the best available player.",
	StrategyPowerHitting:  "Prioritise home runs, RBI and slugging at the corners and outfield.",
	StrategySpeed:         "Target stolen bases, runs and on-base skills.",
	StrategyHittersFirst:  "Complete the lineup before taking a pitcher.",
	StrategyPitchingHeavy: "Anchor the roster with the best strikeout pitcher available.",
}

// Heuristic is a deterministic local decider. It ranks needed positions by
// strategy and takes the best scoring candidate at the first position that
// has one.
type Heuristic struct{}

func (Heuristic) Select(ctx context.Context, req Request) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}

	byPos := make(map[models.Position][]models.Player)
	for _, p := range req.Candidates {
		if !p.IsDrafted && isNeeded(req.Needed, p.Position) {
			byPos[p.Position] = append(byPos[p.Position], p)
		}
	}

	for _, pos := range positionPreference(req, byPos) {
		players := byPos[pos]
		if len(players) == 0 {
			continue
		}
		best := players[0]
		for _, p := range players[1:] {
			if score(req.Strategy, p) > score(req.Strategy, best) {
				best = p
			}
		}
		return Selection{
			PlayerID:   best.ID,
			PlayerName: best.Name,
			Rationale:  rationale(req, best),
		}, nil
	}
	return Selection{}, fmt.Errorf("%w: team %s needs %v", ErrNoCandidates, req.Team, req.Needed)
}

// positionPreference orders the needed positions for a strategy. A valid
// Target always comes first.
func positionPreference(req Request, byPos map[models.Position][]models.Player) []models.Position {
	var order []models.Position
	switch req.Strategy {
	case StrategyPitchingHeavy:
		order = []models.Position{models.PositionPitcher, models.PositionOutfield, models.PositionFirstBase, models.PositionCatcher}
	case StrategyEarlyAce:
		if req.Round <= 1 {
			order = []models.Position{models.PositionPitcher}
		}
		order = append(order, scarcest(req.Needed, byPos)...)
	case StrategyHittersFirst:
		order = []models.Position{models.PositionCatcher, models.PositionFirstBase, models.PositionOutfield, models.PositionPitcher}
	case StrategyPowerHitting:
		order = []models.Position{models.PositionFirstBase, models.PositionOutfield, models.PositionCatcher, models.PositionPitcher}
	case StrategySpeed:
		order = []models.Position{models.PositionOutfield, models.PositionCatcher, models.PositionFirstBase, models.PositionPitcher}
	default:
		order = scarcest(req.Needed, byPos)
	}

	if req.Target != "" && isNeeded(req.Needed, req.Target) {
		order = append([]models.Position{req.Target}, order...)
	}

	out := make([]models.Position, 0, len(order))
	seen := make(map[models.Position]bool)
	for _, pos := range order {
		if !seen[pos] && isNeeded(req.Needed, pos) {
			seen[pos] = true
			out = append(out, pos)
		}
	}
	return out
}

// scarcest orders needed positions by fewest available candidates, then canonically.
func scarcest(needed []models.Position, byPos map[models.Position][]models.Player) []models.Position {
	order := append([]models.Position(nil), needed...)
	models.SortPositions(order)
	sort.SliceStable(order, func(i, j int) bool {
		return len(byPos[order[i]]) < len(byPos[order[j]])
	})
	return order
}

func score(strategy string, p models.Player) float64 {
	s := p.Stats
	if p.Position == models.PositionPitcher {
		v := float64(s.Strikeouts) + 5*float64(s.Wins) + 3*float64(s.Saves) + 0.5*s.InningsPitched
		v -= 20*s.ERA + 30*s.WHIP
		if strategy == StrategyPitchingHeavy || strategy == StrategyEarlyAce {
			v += float64(s.Strikeouts)
		}
		return v
	}
	switch strategy {
	case StrategyPowerHitting:
		return 3*float64(s.HomeRuns) + float64(s.RBI) + 100*s.SLG
	case StrategySpeed:
		return 3*float64(s.StolenBases) + float64(s.Runs) + 100*s.OBP
	default:
		return 2*float64(s.HomeRuns) + float64(s.Runs) + float64(s.RBI) + 2*float64(s.StolenBases) + 200*s.Avg
	}
}

func rationale(req Request, p models.Player) string {
	s := p.Stats
	var line string
	if p.Position == models.PositionPitcher {
		line = fmt.Sprintf("%d W, %d K, %.2f ERA, %.2f WHIP", s.Wins, s.Strikeouts, s.ERA, s.WHIP)
	} else {
		line = fmt.Sprintf("%.3f AVG, %d HR, %d RBI, %d SB", s.Avg, s.HomeRuns, s.RBI, s.StolenBases)
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyBalanced
	}
	return fmt.Sprintf("%s fills %s for %s under the %s strategy (%s).", p.Name, p.Position, req.Team, strategy, line)
}
