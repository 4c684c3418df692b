package models

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks pool invariants: unique player ids and known positions.
func (pp *PlayerPool) Validate() error {
	if pp.ID == "" {
		return errors.New("pool id is empty")
	}
	seen := make(map[int]bool, len(pp.Players))
	for _, p := range pp.Players {
		if seen[p.ID] {
			return fmt.Errorf("duplicate player id %d", p.ID)
		}
		seen[p.ID] = true
		if !p.Position.Valid() {
			return fmt.Errorf("player %d has unknown position %q", p.ID, p.Position)
		}
	}
	return nil
}

// Validate checks the roster shape and that drafted players match the filled slots.
func (t *Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("team name is empty")
	}
	if len(t.Roster) != len(AllPositions) {
		return fmt.Errorf("team %q roster has %d slots, want %d", t.Name, len(t.Roster), len(AllPositions))
	}
	filled := 0
	for _, pos := range AllPositions {
		p, ok := t.Roster[pos]
		if !ok {
			return fmt.Errorf("team %q roster missing slot %s", t.Name, pos)
		}
		if p == nil {
			continue
		}
		if p.Position != pos {
			return fmt.Errorf("team %q slot %s holds a %s", t.Name, pos, p.Position)
		}
		filled++
	}
	if filled != len(t.DraftedPlayers) {
		return fmt.Errorf("team %q has %d filled slots but %d drafted players", t.Name, filled, len(t.DraftedPlayers))
	}
	for _, dp := range t.DraftedPlayers {
		slot := t.Roster[dp.Position]
		if slot == nil || slot.ID != dp.ID {
			return fmt.Errorf("team %q drafted player %d is not on the roster", t.Name, dp.ID)
		}
	}
	return nil
}

// ValidateTeams checks every team and that names are unique case-insensitively.
func ValidateTeams(teams []*Team) error {
	if len(teams) == 0 {
		return errors.New("no teams")
	}
	seen := make(map[string]bool, len(teams))
	for _, t := range teams {
		if t == nil {
			return errors.New("nil team")
		}
		if err := t.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(t.Name)
		if seen[key] {
			return fmt.Errorf("duplicate team name %q", t.Name)
		}
		seen[key] = true
	}
	return nil
}

// Validate checks that every (round, pick) appears once and picks run 1..n.
func (h *DraftHistory) Validate() error {
	seen := make(map[[2]int]bool, len(h.Items))
	for i, item := range h.Items {
		if item.Pick != i+1 {
			return fmt.Errorf("history item %d has pick %d", i, item.Pick)
		}
		key := [2]int{item.Round, item.Pick}
		if seen[key] {
			return fmt.Errorf("duplicate history slot round %d pick %d", item.Round, item.Pick)
		}
		seen[key] = true
	}
	return nil
}

// Validate checks the draft pointer against its shape.
func (d *Draft) Validate() error {
	if d.ID == "" {
		return errors.New("draft id is empty")
	}
	if d.NumRounds < 1 {
		return fmt.Errorf("draft %s has %d rounds", d.ID, d.NumRounds)
	}
	if d.CurrentRound < 1 || d.CurrentRound > d.NumRounds {
		return fmt.Errorf("draft %s current round %d outside 1..%d", d.ID, d.CurrentRound, d.NumRounds)
	}
	if total := d.TotalPicks(); total > 0 && (d.CurrentPick < 1 || d.CurrentPick > total) {
		return fmt.Errorf("draft %s current pick %d outside 1..%d", d.ID, d.CurrentPick, total)
	}
	return nil
}
