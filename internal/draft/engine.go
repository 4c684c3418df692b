package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/draft-oracle/internal/dal"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
	"github.com/Billy-Davies-2/draft-oracle/internal/oracle"
	"github.com/Billy-Davies-2/draft-oracle/internal/pubsub"
	"github.com/Billy-Davies-2/draft-oracle/internal/statsfeed"
)

// MaxRounds is the number of rounds a four-slot roster can absorb.
var MaxRounds = len(models.AllPositions)

// Config is the shape every new draft gets.
type Config struct {
	NumTeams      int
	NumRounds     int
	Strategies    []string
	TeamNames     []string
	PositionQuota int
	Season        int
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	switch {
	case c.NumTeams < 2:
		return fmt.Errorf("%w: need at least 2 teams, got %d", models.ErrInvalidDraftSetup, c.NumTeams)
	case c.NumRounds < 1 || c.NumRounds > MaxRounds:
		return fmt.Errorf("%w: rounds must be 1..%d, got %d", models.ErrInvalidDraftSetup, MaxRounds, c.NumRounds)
	case len(c.Strategies) == 0:
		return fmt.Errorf("%w: no strategies configured", models.ErrInvalidDraftSetup)
	case len(c.TeamNames) > 0 && len(c.TeamNames) != c.NumTeams:
		return fmt.Errorf("%w: %d team names for %d teams", models.ErrInvalidDraftSetup, len(c.TeamNames), c.NumTeams)
	}
	return nil
}

// Engine owns every draft mutation. Picks on one draft are serialised by a
// per-draft lock; picks on different drafts run in parallel.
type Engine struct {
	repo   *dal.Repository
	oracle oracle.Oracle
	cfg    Config
	feed   statsfeed.Source
	events pubsub.Publisher
	names  *NameGenerator
	locks  *Locks
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStatsFeed seeds a pool from src when a draft is created and none exists.
func WithStatsFeed(src statsfeed.Source) Option {
	return func(e *Engine) { e.feed = src }
}

// WithPublisher sends draft events to p.
func WithPublisher(p pubsub.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithNameGenerator replaces the time-seeded name generator.
func WithNameGenerator(g *NameGenerator) Option {
	return func(e *Engine) { e.names = g }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine validates cfg and builds an engine over repo and o.
func NewEngine(repo *dal.Repository, o oracle.Oracle, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		repo:   repo,
		oracle: o,
		cfg:    cfg,
		events: pubsub.Discard{},
		locks:  NewLocks(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.names == nil {
		e.names = NewNameGenerator(uint64(e.now().UnixNano()))
	}
	return e, nil
}

// Config returns the engine's draft configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// CreateDraftInput names optional overrides for a new draft.
type CreateDraftInput struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name,omitempty"`
	PoolID    string   `json:"pool_id,omitempty"`
	TeamNames []string `json:"team_names,omitempty"`
}

// CreateDraft builds a draft over its own copy of a template pool, with
// fresh teams and a fully scheduled history, and stores it in one batch.
func (e *Engine) CreateDraft(ctx context.Context, in CreateDraftInput) (*models.Draft, error) {
	id := dal.NormalizeKey(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	release, err := e.locks.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, _, err := e.repo.Draft(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: draft %s already exists", models.ErrInvalidDraftSetup, id)
	} else if !errors.Is(err, models.ErrDraftNotFound) {
		return nil, err
	}

	template, err := e.resolvePool(ctx, in.PoolID)
	if err != nil {
		return nil, err
	}
	counts := template.CountByPosition()
	for _, pos := range models.AllPositions {
		if counts[pos] < e.cfg.NumTeams {
			return nil, fmt.Errorf("%w: pool %s has %d %s for %d teams",
				models.ErrInsufficientPool, template.ID, counts[pos], pos, e.cfg.NumTeams)
		}
	}

	names := in.TeamNames
	if len(names) == 0 {
		names = e.cfg.TeamNames
	}
	if len(names) == 0 {
		names = e.names.TeamNames(e.cfg.NumTeams)
	}
	if len(names) != e.cfg.NumTeams {
		return nil, fmt.Errorf("%w: %d team names for %d teams", models.ErrInvalidDraftSetup, len(names), e.cfg.NumTeams)
	}
	teams := make([]*models.Team, len(names))
	for i, name := range names {
		teams[i] = models.NewTeam(strings.TrimSpace(name), e.names.Strategy(e.cfg.Strategies))
	}
	if err := models.ValidateTeams(teams); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidDraftSetup, err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = e.names.DraftName()
	}

	d := &models.Draft{
		ID:           id,
		Name:         name,
		NumRounds:    e.cfg.NumRounds,
		PoolID:       template.ID,
		Pool:         template.Clone(),
		Teams:        teams,
		CurrentRound: 1,
		CurrentPick:  1,
		CreatedAt:    e.now().UTC(),
	}
	h := InitializeHistory(d.ID, d.Teams, d.NumRounds)
	if err := e.repo.SaveDraft(ctx, d, h); err != nil {
		return nil, fmt.Errorf("save draft %s: %w", d.ID, err)
	}

	logger.Info("Draft created", "draft_id", d.ID, "name", d.Name, "pool_id", d.PoolID,
		"teams", TeamNames(d.Teams), "rounds", d.NumRounds)
	e.events.Publish(pubsub.Event{
		Type:    pubsub.EventDraftCreated,
		DraftID: d.ID,
		Payload: map[string]interface{}{"name": d.Name, "teams": TeamNames(d.Teams), "rounds": d.NumRounds},
	})
	return d, nil
}

func (e *Engine) resolvePool(ctx context.Context, poolID string) (*models.PlayerPool, error) {
	if poolID != "" {
		return e.repo.Pool(ctx, poolID)
	}
	pool, err := e.repo.LatestPool(ctx)
	if errors.Is(err, models.ErrPoolNotFound) && e.feed != nil {
		return e.SeedPool(ctx)
	}
	return pool, err
}

// SeedPool builds a new template pool from the stats feed and stores it.
func (e *Engine) SeedPool(ctx context.Context) (*models.PlayerPool, error) {
	if e.feed == nil {
		return nil, fmt.Errorf("%w: no stats feed configured", models.ErrPoolNotFound)
	}
	pool, err := statsfeed.Seed(ctx, e.feed, statsfeed.BuildOptions{
		Season: e.cfg.Season,
		Quota:  e.cfg.PositionQuota,
		Now:    e.now,
	})
	if err != nil {
		return nil, err
	}
	if err := e.repo.SavePool(ctx, pool); err != nil {
		return nil, fmt.Errorf("save pool %s: %w", pool.ID, err)
	}
	logger.Info("Player pool seeded", "pool_id", pool.ID, "season", pool.Season, "players", len(pool.Players))
	return pool, nil
}

// LatestPool returns the most recently seeded template pool.
func (e *Engine) LatestPool(ctx context.Context) (*models.PlayerPool, error) {
	return e.repo.LatestPool(ctx)
}

// Pool returns a template pool by id.
func (e *Engine) Pool(ctx context.Context, id string) (*models.PlayerPool, error) {
	return e.repo.Pool(ctx, id)
}

// GetDraft loads a draft and its history.
func (e *Engine) GetDraft(ctx context.Context, id string) (*models.Draft, *models.DraftHistory, error) {
	return e.repo.Draft(ctx, id)
}

// LatestDraft loads the most recently created draft.
func (e *Engine) LatestDraft(ctx context.Context) (*models.Draft, *models.DraftHistory, error) {
	return e.repo.LatestDraft(ctx)
}

// ListDrafts loads every draft, oldest first.
func (e *Engine) ListDrafts(ctx context.Context) ([]*models.Draft, error) {
	ids, err := e.repo.DraftIDs(ctx)
	if err != nil {
		return nil, err
	}
	drafts := make([]*models.Draft, 0, len(ids))
	for _, id := range ids {
		d, _, err := e.repo.Draft(ctx, id)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// Team returns one team of a draft, matched case-insensitively.
func (e *Engine) Team(ctx context.Context, draftID, name string) (*models.Team, error) {
	d, _, err := e.repo.Draft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	t, ok := d.Team(strings.TrimSpace(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q in draft %s", models.ErrTeamNotFound, name, d.ID)
	}
	return t, nil
}

// OrderForRound returns team names in pick order for round of a draft.
func (e *Engine) OrderForRound(ctx context.Context, draftID string, round int) ([]string, error) {
	d, _, err := e.repo.Draft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if round < 1 || round > d.NumRounds {
		return nil, fmt.Errorf("%w: round %d outside 1..%d", models.ErrPickOutOfRange, round, d.NumRounds)
	}
	return TeamNames(OrderForRound(d.Teams, round)), nil
}

// PickStatus reports one history slot of a draft.
type PickStatus struct {
	Round     int               `json:"round"`
	Pick      int               `json:"pick"`
	Team      string            `json:"team"`
	Status    models.TaskStatus `json:"status"`
	Selection string            `json:"selection,omitempty"`
	Rationale string            `json:"rationale,omitempty"`
}

// PickStatus reports whether (round, pick) has been resolved.
func (e *Engine) PickStatus(ctx context.Context, draftID string, round, pick int) (PickStatus, error) {
	d, h, err := e.repo.Draft(ctx, draftID)
	if err != nil {
		return PickStatus{}, err
	}
	if err := checkSlot(d, round, pick); err != nil {
		return PickStatus{}, err
	}
	if _, err := TeamForPick(d.Teams, round, pick); err != nil {
		return PickStatus{}, err
	}
	item, ok := h.Item(round, pick)
	if !ok {
		return PickStatus{}, fmt.Errorf("%w: draft %s round %d pick %d", models.ErrHistoryItemNotFound, d.ID, round, pick)
	}
	st := PickStatus{
		Round:     item.Round,
		Pick:      item.Pick,
		Team:      item.Team,
		Status:    models.TaskPending,
		Selection: item.Selection,
		Rationale: item.Rationale,
	}
	if item.Resolved() {
		st.Status = models.TaskCompleted
	}
	return st, nil
}

// ExecutePick resolves (round, pick) for teamName. Every precondition is
// checked before the oracle is consulted, the oracle's answer is checked
// again, and the draft, pool, teams and history are then written in one
// batch. Any failure leaves the stored draft untouched.
func (e *Engine) ExecutePick(ctx context.Context, draftID string, round, pick int, teamName string) (models.SelectionResult, error) {
	log := logger.With("draft_id", draftID, "round", round, "pick", pick, "team", teamName)
	fail := func(err error) (models.SelectionResult, error) {
		err = &models.PickError{DraftID: draftID, Round: round, Pick: pick, Team: teamName, Err: err}
		logRejection(log, err)
		return models.SelectionResult{}, err
	}

	release, err := e.locks.Acquire(ctx, dal.NormalizeKey(draftID))
	if err != nil {
		return fail(err)
	}
	defer release()

	log.Info("Executing pick")

	d, h, err := e.repo.Draft(ctx, draftID)
	if err != nil {
		return fail(err)
	}
	if d.IsComplete {
		return fail(models.ErrDraftComplete)
	}
	if err := checkSlot(d, round, pick); err != nil {
		return fail(err)
	}

	expected, err := TeamForPick(d.Teams, round, pick)
	if err != nil {
		return fail(err)
	}
	if !expected.NameIs(teamName) {
		if _, ok := d.Team(teamName); !ok {
			return fail(fmt.Errorf("%w: %q", models.ErrTeamNotFound, teamName))
		}
		return fail(fmt.Errorf("%w: pick %d belongs to %s", models.ErrWrongTurn, pick, expected.Name))
	}
	if pick != d.CurrentPick {
		return fail(fmt.Errorf("%w: next pick is %d", models.ErrStalePick, d.CurrentPick))
	}

	item, ok := h.Item(round, pick)
	if !ok {
		return fail(models.ErrHistoryItemNotFound)
	}
	if !expected.NameIs(item.Team) {
		return fail(fmt.Errorf("%w: history slot belongs to %s, scheduler says %s", models.ErrInvalidPick, item.Team, expected.Name))
	}
	if item.Resolved() {
		return fail(fmt.Errorf("%w: holds %s", models.ErrHistorySlotFilled, item.Selection))
	}

	team := expected
	needed := team.NeededPositions()
	if len(needed) == 0 {
		return fail(models.ErrRosterFull)
	}

	sel, err := e.oracle.Select(ctx, oracle.Request{
		DraftID:    d.ID,
		Team:       team.Name,
		Strategy:   team.Strategy,
		Round:      round,
		Pick:       pick,
		Needed:     needed,
		Candidates: d.Pool.Undrafted(),
	})
	if err != nil {
		e.events.Publish(pubsub.Event{
			Type:    pubsub.EventPickFailed,
			DraftID: d.ID,
			Payload: map[string]interface{}{"round": round, "pick": pick, "team": team.Name, "error": err.Error()},
		})
		return fail(fmt.Errorf("%w: %w", models.ErrDraftPickFailed, err))
	}

	player, ok := d.Pool.Player(sel.PlayerID)
	switch {
	case !ok:
		return fail(fmt.Errorf("%w: player %d (%s) is not in the pool", models.ErrInvalidSelection, sel.PlayerID, sel.PlayerName))
	case player.IsDrafted:
		return fail(fmt.Errorf("%w: %s is already drafted", models.ErrInvalidSelection, player.Name))
	case !team.Needs(player.Position):
		return fail(fmt.Errorf("%w: %s has filled %s", models.ErrInvalidSelection, team.Name, player.Position))
	}

	// Commit. Everything below mutates the loaded copy only; SaveDraft
	// publishes it in one write.
	player.MarkDrafted()
	team.Assign(*player)
	if err := h.Commit(round, pick, *player, sel.Rationale); err != nil {
		return fail(err)
	}
	if d.CurrentPick == d.TotalPicks() {
		d.IsComplete = true
	} else {
		d.CurrentPick++
	}
	d.CurrentRound = RoundOfPick(len(d.Teams), d.CurrentPick)

	if err := e.repo.SaveDraft(ctx, d, h); err != nil {
		return fail(fmt.Errorf("save draft: %w", err))
	}

	result := models.SelectionResult{PlayerID: player.ID, PlayerName: player.Name, Rationale: sel.Rationale}
	log.Info("Pick committed", "player_id", player.ID, "player", player.Name, "position", player.Position,
		"next_pick", d.CurrentPick, "complete", d.IsComplete)

	e.events.Publish(pubsub.Event{
		Type:    pubsub.EventDraftPick,
		DraftID: d.ID,
		Payload: map[string]interface{}{
			"round":       round,
			"pick":        pick,
			"team":        team.Name,
			"player_id":   player.ID,
			"player_name": player.Name,
			"position":    string(player.Position),
			"rationale":   sel.Rationale,
		},
	})
	if d.IsComplete {
		e.events.Publish(pubsub.Event{
			Type:    pubsub.EventDraftComplete,
			DraftID: d.ID,
			Payload: map[string]interface{}{"picks": d.TotalPicks()},
		})
	}
	return result, nil
}

// checkSlot rejects a requested (round, pick) that is not on the draft's
// schedule. Past this point ErrInvalidPick means stored state is corrupt.
func checkSlot(d *models.Draft, round, pick int) error {
	numTeams := len(d.Teams)
	first := FirstPickOfRound(numTeams, round)
	if round < 1 || round > d.NumRounds || pick < first || pick >= first+numTeams {
		return fmt.Errorf("%w: round %d pick %d (%d rounds of %d teams)", models.ErrPickOutOfRange, round, pick, d.NumRounds, numTeams)
	}
	return nil
}

func logRejection(log *slog.Logger, err error) {
	kind := models.KindOf(err)
	switch kind {
	case models.KindIntegrity, models.KindInternal:
		log.Error("Pick failed", "kind", kind, "error", err)
	default:
		log.Warn("Pick rejected", "kind", kind, "error", err)
	}
}

// PickOutcome is one slot resolved by RunToCompletion.
type PickOutcome struct {
	Round  int                    `json:"round"`
	Pick   int                    `json:"pick"`
	Team   string                 `json:"team"`
	Result models.SelectionResult `json:"result"`
}

// RunToCompletion drives ExecutePick over every slot in canonical snake
// order, skipping slots already resolved, and stops at the first error.
func (e *Engine) RunToCompletion(ctx context.Context, draftID string) ([]PickOutcome, error) {
	d, h, err := e.repo.Draft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	var outcomes []PickOutcome
	pick := 1
	for round := 1; round <= d.NumRounds; round++ {
		for _, team := range OrderForRound(d.Teams, round) {
			if item, ok := h.Item(round, pick); ok && item.Resolved() {
				pick++
				continue
			}
			res, err := e.ExecutePick(ctx, d.ID, round, pick, team.Name)
			if err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, PickOutcome{Round: round, Pick: pick, Team: team.Name, Result: res})
			pick++
		}
	}
	return outcomes, nil
}

// SortedStrategies returns the keys of a strategy map in a stable order.
func SortedStrategies(strategies map[string]string) []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
