// Package oracle defines the decision collaborator that picks one player for
// a team, and the adapters that make an unreliable decider safe to call.
package oracle

import (
	"context"
	"errors"

	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

var (
	// ErrAttemptsExhausted is returned when no valid selection was produced
	// within the attempt ceiling.
	ErrAttemptsExhausted = errors.New("oracle attempts exhausted")
	// ErrNoCandidates means nothing in the request can fill a needed position.
	ErrNoCandidates = errors.New("no eligible candidates")
	// ErrSelectionFailed is reported by an async oracle whose task failed.
	ErrSelectionFailed = errors.New("oracle selection failed")
	// ErrPollLimit is returned when an async task stays pending past the poll budget.
	ErrPollLimit = errors.New("oracle task still pending after poll limit")
)

// Request is everything a decider needs to choose one player.
type Request struct {
	DraftID    string            `json:"draft_id"`
	Team       string            `json:"team"`
	Strategy   string            `json:"strategy"`
	Round      int               `json:"round"`
	Pick       int               `json:"pick"`
	Needed     []models.Position `json:"needed_positions"`
	Candidates []models.Player   `json:"candidates"`
	// Target, when set, is the needed position the decider should fill.
	Target models.Position `json:"target_position,omitempty"`
}

// Selection is a decider's answer.
type Selection struct {
	PlayerID   int    `json:"player_id"`
	PlayerName string `json:"player_name"`
	Rationale  string `json:"rationale"`
}

// Oracle picks exactly one player from req.Candidates.
type Oracle interface {
	Select(ctx context.Context, req Request) (Selection, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, req Request) (Selection, error)

func (f Func) Select(ctx context.Context, req Request) (Selection, error) {
	return f(ctx, req)
}

// PollStatus is the state of an async selection task.
type PollStatus string

const (
	StatusPending   PollStatus = "pending"
	StatusCompleted PollStatus = "completed"
	StatusFailed    PollStatus = "failed"
)

// PollResult is one observation of an async selection task.
type PollResult struct {
	Status    PollStatus `json:"status"`
	Selection *Selection `json:"selection,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// AsyncOracle is the two-phase form of Oracle: submit a request, then poll
// the returned task id until it completes or fails.
type AsyncOracle interface {
	Submit(ctx context.Context, req Request) (string, error)
	Poll(ctx context.Context, taskID string) (PollResult, error)
}

func isNeeded(needed []models.Position, pos models.Position) bool {
	for _, n := range needed {
		if n == pos {
			return true
		}
	}
	return false
}
