package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

// DefaultMaxAttempts is the attempt ceiling used when Retrying.MaxAttempts is unset.
const DefaultMaxAttempts = 5

// Retrying validates every proposal of Inner and asks again, up to
// MaxAttempts times, until one is usable:
//   - a player that is unknown or already drafted is excluded from later attempts;
//   - a player at a position the team has filled is excluded, and the next
//     attempt targets the next needed position after it.
type Retrying struct {
	Inner       Oracle
	MaxAttempts int
}

// NewRetrying wraps inner with the given attempt ceiling.
func NewRetrying(inner Oracle, maxAttempts int) *Retrying {
	return &Retrying{Inner: inner, MaxAttempts: maxAttempts}
}

func (r *Retrying) Select(ctx context.Context, req Request) (Selection, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	excluded := make(map[int]bool)
	target := req.Target
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Selection{}, err
		}

		attemptReq := req
		attemptReq.Target = target
		attemptReq.Candidates = remaining(req.Candidates, excluded)
		if len(attemptReq.Candidates) == 0 {
			lastErr = fmt.Errorf("%w: every candidate was rejected", ErrNoCandidates)
			break
		}

		sel, err := r.Inner.Select(ctx, attemptReq)
		if err != nil {
			if ctx.Err() != nil {
				return Selection{}, err
			}
			lastErr = err
			logger.Warn("Oracle attempt failed", "draft_id", req.DraftID, "team", req.Team, "attempt", attempt, "error", err)
			continue
		}

		player, ok := findCandidate(req.Candidates, sel.PlayerID)
		switch {
		case !ok || player.IsDrafted:
			excluded[sel.PlayerID] = true
			lastErr = fmt.Errorf("player %d (%s) is not available", sel.PlayerID, sel.PlayerName)
		case !isNeeded(req.Needed, player.Position):
			excluded[player.ID] = true
			target = nextNeeded(req.Needed, player.Position)
			lastErr = fmt.Errorf("player %d (%s) plays filled position %s", player.ID, player.Name, player.Position)
		default:
			return Selection{PlayerID: player.ID, PlayerName: player.Name, Rationale: sel.Rationale}, nil
		}
		logger.Warn("Oracle proposal rejected", "draft_id", req.DraftID, "team", req.Team, "attempt", attempt,
			"reason", lastErr.Error(), "next_target", string(target))
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return Selection{}, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, maxAttempts, lastErr)
}

func remaining(candidates []models.Player, excluded map[int]bool) []models.Player {
	out := make([]models.Player, 0, len(candidates))
	for _, p := range candidates {
		if !excluded[p.ID] && !p.IsDrafted {
			out = append(out, p)
		}
	}
	return out
}

func findCandidate(candidates []models.Player, id int) (models.Player, bool) {
	for _, p := range candidates {
		if p.ID == id {
			return p, true
		}
	}
	return models.Player{}, false
}

// nextNeeded returns the first needed position after from in canonical
// order, wrapping around.
func nextNeeded(needed []models.Position, from models.Position) models.Position {
	if len(needed) == 0 {
		return ""
	}
	start := 0
	for i, pos := range models.AllPositions {
		if pos == from {
			start = i + 1
			break
		}
	}
	for i := 0; i < len(models.AllPositions); i++ {
		pos := models.AllPositions[(start+i)%len(models.AllPositions)]
		if isNeeded(needed, pos) {
			return pos
		}
	}
	return ""
}
