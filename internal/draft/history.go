package draft

import "github.com/Billy-Davies-2/draft-oracle/internal/models"

// InitializeHistory pre-creates one empty item per pick slot in scheduling
// order. The sequence matches TeamForPick slot for slot.
func InitializeHistory(draftID string, teams []*models.Team, numRounds int) *models.DraftHistory {
	h := &models.DraftHistory{
		DraftID: draftID,
		Items:   make([]models.DraftHistoryItem, 0, len(teams)*numRounds),
	}
	pick := 1
	for round := 1; round <= numRounds; round++ {
		for _, team := range OrderForRound(teams, round) {
			h.Items = append(h.Items, models.DraftHistoryItem{
				Round: round,
				Pick:  pick,
				Team:  team.Name,
			})
			pick++
		}
	}
	return h
}
