package draft

import (
	"time"

	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

// TeamView is the external shape of a team.
type TeamView struct {
	Name     string                     `json:"name"`
	Strategy string                     `json:"strategy"`
	Roster   map[models.Position]string `json:"roster"`
	Needed   []models.Position          `json:"needed"`
	Drafted  []models.Player            `json:"drafted_players"`
}

// NewTeamView flattens t. Empty roster slots map to "".
func NewTeamView(t *models.Team) TeamView {
	roster := make(map[models.Position]string, len(models.AllPositions))
	for _, pos := range models.AllPositions {
		if p := t.Roster[pos]; p != nil {
			roster[pos] = p.Name
		} else {
			roster[pos] = ""
		}
	}
	drafted := t.DraftedPlayers
	if drafted == nil {
		drafted = []models.Player{}
	}
	return TeamView{
		Name:     t.Name,
		Strategy: t.Strategy,
		Roster:   roster,
		Needed:   t.NeededPositions(),
		Drafted:  append([]models.Player(nil), drafted...),
	}
}

// DraftView is the external shape of a draft and its history. The pool is
// summarised by its undrafted count.
type DraftView struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	PoolID       string                    `json:"pool_id"`
	NumRounds    int                       `json:"num_rounds"`
	CurrentRound int                       `json:"current_round"`
	CurrentPick  int                       `json:"current_pick"`
	TotalPicks   int                       `json:"total_picks"`
	IsComplete   bool                      `json:"is_complete"`
	Available    int                       `json:"available_players"`
	CreatedAt    time.Time                 `json:"created_at"`
	Teams        []TeamView                `json:"teams"`
	History      []models.DraftHistoryItem `json:"history,omitempty"`
}

// NewDraftView flattens d. h may be nil.
func NewDraftView(d *models.Draft, h *models.DraftHistory) DraftView {
	v := DraftView{
		ID:           d.ID,
		Name:         d.Name,
		PoolID:       d.PoolID,
		NumRounds:    d.NumRounds,
		CurrentRound: d.CurrentRound,
		CurrentPick:  d.CurrentPick,
		TotalPicks:   d.TotalPicks(),
		IsComplete:   d.IsComplete,
		CreatedAt:    d.CreatedAt,
		Teams:        make([]TeamView, len(d.Teams)),
	}
	if d.Pool != nil {
		v.Available = len(d.Pool.Undrafted())
	}
	for i, t := range d.Teams {
		v.Teams[i] = NewTeamView(t)
	}
	if h != nil {
		v.History = append([]models.DraftHistoryItem(nil), h.Items...)
	}
	return v
}
