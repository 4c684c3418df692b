// Package draft implements snake-draft scheduling and the pick state machine.
package draft

import (
	"fmt"
	"slices"

	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

// OrderForRound returns the pick order for round. Odd rounds use the
// creation order, even rounds reverse it. teams is never modified.
func OrderForRound(teams []*models.Team, round int) []*models.Team {
	order := slices.Clone(teams)
	if round%2 == 0 {
		slices.Reverse(order)
	}
	return order
}

// FirstPickOfRound is the overall pick number that opens round.
func FirstPickOfRound(numTeams, round int) int {
	return (round-1)*numTeams + 1
}

// RoundOfPick is the round an overall pick number falls in.
func RoundOfPick(numTeams, pick int) int {
	if numTeams <= 0 || pick <= 0 {
		return 0
	}
	return (pick-1)/numTeams + 1
}

// TeamForPick resolves which team owns the overall pick number in round.
// It needs no history: the answer is derived from round, pick and team count.
func TeamForPick(teams []*models.Team, round, pick int) (*models.Team, error) {
	numTeams := len(teams)
	index := pick - FirstPickOfRound(numTeams, round)
	if round < 1 || index < 0 || index >= numTeams {
		return nil, fmt.Errorf("%w: round %d pick %d with %d teams", models.ErrInvalidPick, round, pick, numTeams)
	}
	return OrderForRound(teams, round)[index], nil
}

// TeamNames returns the names of teams in order.
func TeamNames(teams []*models.Team) []string {
	names := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.Name
	}
	return names
}
