package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Position is a roster slot tag. Outfield sub-positions are collapsed into OF.
type Position string

const (
	PositionCatcher   Position = "C"
	PositionFirstBase Position = "1B"
	PositionOutfield  Position = "OF"
	PositionPitcher   Position = "P"
)

// AllPositions lists every roster slot in canonical order.
var AllPositions = []Position{PositionCatcher, PositionFirstBase, PositionOutfield, PositionPitcher}

// Valid reports whether p is one of the four roster slots.
func (p Position) Valid() bool {
	for _, pos := range AllPositions {
		if p == pos {
			return true
		}
	}
	return false
}

func (p Position) rank() int {
	for i, pos := range AllPositions {
		if p == pos {
			return i
		}
	}
	return len(AllPositions)
}

// ParsePosition converts a position abbreviation into a roster slot.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown position %q", s)
	}
	return p, nil
}

// SortPositions orders positions canonically in place.
func SortPositions(positions []Position) {
	sort.Slice(positions, func(i, j int) bool { return positions[i].rank() < positions[j].rank() })
}

// Stats is the season statistics line carried with a player. Hitters leave
// the pitching fields zero and vice versa.
type Stats struct {
	AtBats         int     `json:"at_bats"`
	Runs           int     `json:"r"`
	HomeRuns       int     `json:"hr"`
	RBI            int     `json:"rbi"`
	StolenBases    int     `json:"sb"`
	Avg            float64 `json:"avg"`
	OBP            float64 `json:"obp"`
	SLG            float64 `json:"slg"`
	InningsPitched float64 `json:"innings_pitched"`
	Wins           int     `json:"w"`
	Strikeouts     int     `json:"k"`
	ERA            float64 `json:"era"`
	WHIP           float64 `json:"whip"`
	Saves          int     `json:"s"`
}

// Player is a draftable player. Identity is ID.
type Player struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Team      string   `json:"team"`
	Position  Position `json:"position"`
	Stats     Stats    `json:"stats"`
	IsDrafted bool     `json:"is_drafted"`
}

// MarkDrafted flags the player as drafted. The flag is never cleared.
func (p *Player) MarkDrafted() {
	p.IsDrafted = true
}

// PlayerPool holds every draftable player of a draft.
type PlayerPool struct {
	ID        string    `json:"id"`
	Season    int       `json:"season,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Players   []Player  `json:"players"`
}

// Undrafted returns copies of the players not yet drafted, in pool order.
// It is recomputed on every call.
func (pp *PlayerPool) Undrafted() []Player {
	out := make([]Player, 0, len(pp.Players))
	for _, p := range pp.Players {
		if !p.IsDrafted {
			out = append(out, p)
		}
	}
	return out
}

// Player returns the pool entry with the given id.
func (pp *PlayerPool) Player(id int) (*Player, bool) {
	for i := range pp.Players {
		if pp.Players[i].ID == id {
			return &pp.Players[i], true
		}
	}
	return nil, false
}

// MarkDrafted flags the player with the given id as drafted.
func (pp *PlayerPool) MarkDrafted(id int) error {
	p, ok := pp.Player(id)
	if !ok {
		return fmt.Errorf("%w: id %d in pool %s", ErrPlayerNotFound, id, pp.ID)
	}
	p.MarkDrafted()
	return nil
}

// CountByPosition returns the number of players per roster slot.
func (pp *PlayerPool) CountByPosition() map[Position]int {
	counts := make(map[Position]int, len(AllPositions))
	for _, p := range pp.Players {
		counts[p.Position]++
	}
	return counts
}

// Clone returns a deep copy of the pool.
func (pp *PlayerPool) Clone() *PlayerPool {
	c := *pp
	c.Players = make([]Player, len(pp.Players))
	copy(c.Players, pp.Players)
	return &c
}

// Roster maps each roster slot to the player filling it, or nil when empty.
type Roster map[Position]*Player

// NewRoster returns a roster with all four slots empty.
func NewRoster() Roster {
	r := make(Roster, len(AllPositions))
	for _, pos := range AllPositions {
		r[pos] = nil
	}
	return r
}

// Team is one drafting team.
type Team struct {
	Name           string   `json:"name"`
	Strategy       string   `json:"strategy"`
	Roster         Roster   `json:"roster"`
	DraftedPlayers []Player `json:"drafted_players"`
}

// NewTeam returns a team with an empty roster.
func NewTeam(name, strategy string) *Team {
	return &Team{
		Name:           name,
		Strategy:       strategy,
		Roster:         NewRoster(),
		DraftedPlayers: []Player{},
	}
}

// NeededPositions returns the empty roster slots in canonical order.
// An empty result means the roster is full.
func (t *Team) NeededPositions() []Position {
	var needed []Position
	for _, pos := range AllPositions {
		if p, ok := t.Roster[pos]; ok && p == nil {
			needed = append(needed, pos)
		}
	}
	return needed
}

// Needs reports whether the slot for pos is empty.
func (t *Team) Needs(pos Position) bool {
	p, ok := t.Roster[pos]
	return ok && p == nil
}

// Assign places player into its position slot and records it as drafted.
// Callers must check Needs first.
func (t *Team) Assign(player Player) {
	p := player
	t.Roster[player.Position] = &p
	t.DraftedPlayers = append(t.DraftedPlayers, player)
}

// NameIs compares team names case-insensitively.
func (t *Team) NameIs(name string) bool {
	return strings.EqualFold(t.Name, name)
}

// DraftHistoryItem records one scheduled pick slot and its resolution.
type DraftHistoryItem struct {
	Round     int    `json:"round"`
	Pick      int    `json:"pick"`
	Team      string `json:"team"`
	Selection string `json:"selection"`
	Rationale string `json:"rationale"`
}

// Resolved reports whether the slot has been committed.
func (i DraftHistoryItem) Resolved() bool {
	return i.Selection != ""
}

// DraftHistory is the pre-scheduled ledger of every pick slot of a draft.
type DraftHistory struct {
	DraftID string             `json:"draft_id"`
	Items   []DraftHistoryItem `json:"items"`
}

// Item returns the slot for (round, pick).
func (h *DraftHistory) Item(round, pick int) (*DraftHistoryItem, bool) {
	for i := range h.Items {
		if h.Items[i].Round == round && h.Items[i].Pick == pick {
			return &h.Items[i], true
		}
	}
	return nil, false
}

// Commit resolves the slot for (round, pick). A slot is resolved at most once.
func (h *DraftHistory) Commit(round, pick int, player Player, rationale string) error {
	item, ok := h.Item(round, pick)
	if !ok {
		return fmt.Errorf("%w: draft %s round %d pick %d", ErrHistoryItemNotFound, h.DraftID, round, pick)
	}
	if item.Resolved() {
		return fmt.Errorf("%w: draft %s round %d pick %d already holds %s",
			ErrHistorySlotFilled, h.DraftID, round, pick, item.Selection)
	}
	item.Selection = player.Name
	item.Rationale = rationale
	return nil
}

// Draft is the draft aggregate: pool, teams and the pick pointer.
type Draft struct {
	ID           string
	Name         string
	NumRounds    int
	PoolID       string
	Pool         *PlayerPool
	Teams        []*Team
	CurrentRound int
	CurrentPick  int
	IsComplete   bool
	CreatedAt    time.Time
}

// TotalPicks is the number of pick slots in the draft.
func (d *Draft) TotalPicks() int {
	return len(d.Teams) * d.NumRounds
}

// Team looks a team up by name, case-insensitively.
func (d *Draft) Team(name string) (*Team, bool) {
	for _, t := range d.Teams {
		if t.NameIs(name) {
			return t, true
		}
	}
	return nil, false
}

// SelectionResult is returned for every committed pick.
type SelectionResult struct {
	PlayerID   int    `json:"player_id"`
	PlayerName string `json:"player_name"`
	Rationale  string `json:"rationale"`
}

// TaskStatus is the state of an asynchronous pick task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// PickTask tracks one submitted pick request.
type PickTask struct {
	ID        string           `json:"id"`
	DraftID   string           `json:"draft_id"`
	Team      string           `json:"team"`
	Round     int              `json:"round"`
	Pick      int              `json:"pick"`
	Status    TaskStatus       `json:"status"`
	Result    *SelectionResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
