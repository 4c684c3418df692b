package models

import (
	"errors"
	"fmt"
)

// Draft error taxonomy. Every engine failure wraps exactly one of these.
var (
	// Integrity errors: scheduling and history disagree. Never retried.
	ErrInvalidPick         = errors.New("pick number inconsistent with round")
	ErrHistoryItemNotFound = errors.New("draft history item not found")
	ErrHistorySlotFilled   = errors.New("draft history slot already resolved")

	// Turn and validation errors: rejected with no mutation.
	ErrWrongTurn         = errors.New("not this team's turn")
	ErrTeamNotFound      = errors.New("team not found in draft")
	ErrDraftNotFound     = errors.New("draft not found")
	ErrRosterFull        = errors.New("team roster is full")
	ErrInvalidSelection  = errors.New("invalid player selection")
	ErrStalePick         = errors.New("pick is not the next unresolved slot")
	ErrPickOutOfRange    = errors.New("round or pick outside the draft schedule")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrPoolNotFound      = errors.New("player pool not found")
	ErrInsufficientPool  = errors.New("player pool cannot fill every roster")
	ErrInvalidDraftSetup = errors.New("invalid draft setup")
	ErrTaskNotFound      = errors.New("pick task not found")

	// Terminal errors.
	ErrDraftComplete = errors.New("draft is complete")

	// Transient errors: the decision step gave up; nothing was mutated.
	ErrDraftPickFailed = errors.New("draft pick failed")

	// ErrDeserialization marks a stored document that failed schema validation.
	ErrDeserialization = errors.New("document deserialization failed")
)

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindIntegrity  Kind = "integrity"
	KindValidation Kind = "validation"
	KindTerminal   Kind = "terminal"
	KindTransient  Kind = "transient"
	KindInternal   Kind = "internal"
)

// KindOf classifies err. Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPick),
		errors.Is(err, ErrHistoryItemNotFound),
		errors.Is(err, ErrHistorySlotFilled),
		errors.Is(err, ErrDeserialization):
		return KindIntegrity
	case errors.Is(err, ErrDraftComplete):
		return KindTerminal
	case errors.Is(err, ErrDraftPickFailed):
		return KindTransient
	case errors.Is(err, ErrWrongTurn),
		errors.Is(err, ErrTeamNotFound),
		errors.Is(err, ErrDraftNotFound),
		errors.Is(err, ErrRosterFull),
		errors.Is(err, ErrInvalidSelection),
		errors.Is(err, ErrStalePick),
		errors.Is(err, ErrPickOutOfRange),
		errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrPoolNotFound),
		errors.Is(err, ErrInsufficientPool),
		errors.Is(err, ErrInvalidDraftSetup),
		errors.Is(err, ErrTaskNotFound):
		return KindValidation
	default:
		return KindInternal
	}
}

// IsNotFound reports whether err names a missing draft, team, pool, player or task.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDraftNotFound) ||
		errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrPoolNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrTaskNotFound)
}

// PickError identifies the pick a failure belongs to.
type PickError struct {
	DraftID string
	Round   int
	Pick    int
	Team    string
	Err     error
}

func (e *PickError) Error() string {
	return fmt.Sprintf("draft %s round %d pick %d team %q: %v", e.DraftID, e.Round, e.Pick, e.Team, e.Err)
}

func (e *PickError) Unwrap() error {
	return e.Err
}

// DeserializationError reports a stored document that could not be decoded
// into a valid aggregate.
type DeserializationError struct {
	Kind string
	Key  string
	Err  error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("decode %s/%s: %v", e.Kind, e.Key, e.Err)
}

func (e *DeserializationError) Unwrap() []error {
	return []error{ErrDeserialization, e.Err}
}
