package dal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

// draftDocument is the stored shape of a draft aggregate root. Pool, teams
// and history are separate documents under the same key.
type draftDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	NumRounds    int       `json:"num_rounds"`
	PoolID       string    `json:"pool_id"`
	CurrentRound int       `json:"current_round"`
	CurrentPick  int       `json:"current_pick"`
	IsComplete   bool      `json:"is_complete"`
	CreatedAt    time.Time `json:"created_at"`
}

type teamsDocument struct {
	DraftID string         `json:"draft_id"`
	Teams   []*models.Team `json:"teams"`
}

// Repository maps draft aggregates onto Store documents. Every decode is
// strict: unknown fields and broken invariants yield a
// *models.DeserializationError instead of a silently repaired value.
type Repository struct {
	store Store
}

// NewRepository wraps store.
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying document store.
func (r *Repository) Store() Store {
	return r.store
}

type validator interface {
	Validate() error
}

func decode(kind, key string, data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &models.DeserializationError{Kind: kind, Key: key, Err: err}
	}
	if dec.More() {
		return &models.DeserializationError{Kind: kind, Key: key, Err: errors.New("trailing data after document")}
	}
	if val, ok := v.(validator); ok {
		if err := val.Validate(); err != nil {
			return &models.DeserializationError{Kind: kind, Key: key, Err: err}
		}
	}
	return nil
}

func encode(kind, key string, v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s/%s: %w", kind, key, err)
	}
	return Document{Kind: kind, Key: key, Data: data}, nil
}

// SavePool stores a template pool under player_pools.
func (r *Repository) SavePool(ctx context.Context, pool *models.PlayerPool) error {
	doc, err := encode(KindPlayerPools, pool.ID, pool)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, doc)
}

// Pool loads a template pool by id.
func (r *Repository) Pool(ctx context.Context, id string) (*models.PlayerPool, error) {
	data, err := r.store.Get(ctx, KindPlayerPools, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrPoolNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var pool models.PlayerPool
	if err := decode(KindPlayerPools, id, data, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

// LatestPool loads the most recently seeded template pool.
func (r *Repository) LatestPool(ctx context.Context) (*models.PlayerPool, error) {
	doc, err := r.store.Latest(ctx, KindPlayerPools)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: no pool has been seeded", models.ErrPoolNotFound)
	}
	if err != nil {
		return nil, err
	}
	var pool models.PlayerPool
	if err := decode(KindPlayerPools, doc.Key, doc.Data, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

// SaveDraft writes the draft root, its pool copy, its team-set and its
// history in one atomic batch.
func (r *Repository) SaveDraft(ctx context.Context, d *models.Draft, h *models.DraftHistory) error {
	root, err := encode(KindDrafts, d.ID, draftDocument{
		ID:           d.ID,
		Name:         d.Name,
		NumRounds:    d.NumRounds,
		PoolID:       d.PoolID,
		CurrentRound: d.CurrentRound,
		CurrentPick:  d.CurrentPick,
		IsComplete:   d.IsComplete,
		CreatedAt:    d.CreatedAt,
	})
	if err != nil {
		return err
	}
	pool, err := encode(KindDraftPools, d.ID, d.Pool)
	if err != nil {
		return err
	}
	teams, err := encode(KindDraftTeams, d.ID, teamsDocument{DraftID: d.ID, Teams: d.Teams})
	if err != nil {
		return err
	}
	history, err := encode(KindDraftHistory, d.ID, h)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, root, pool, teams, history)
}

// Draft loads a full draft aggregate and its history.
func (r *Repository) Draft(ctx context.Context, id string) (*models.Draft, *models.DraftHistory, error) {
	key := NormalizeKey(id)
	data, err := r.store.Get(ctx, KindDrafts, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: %s", models.ErrDraftNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}
	return r.assemble(ctx, key, data)
}

// LatestDraft loads the most recently created draft.
func (r *Repository) LatestDraft(ctx context.Context) (*models.Draft, *models.DraftHistory, error) {
	doc, err := r.store.Latest(ctx, KindDrafts)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: no drafts exist", models.ErrDraftNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	return r.assemble(ctx, doc.Key, doc.Data)
}

// DraftIDs lists draft ids in creation order.
func (r *Repository) DraftIDs(ctx context.Context) ([]string, error) {
	docs, err := r.store.List(ctx, KindDrafts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.Key
	}
	return ids, nil
}

func (r *Repository) assemble(ctx context.Context, key string, data []byte) (*models.Draft, *models.DraftHistory, error) {
	var root draftDocument
	if err := decode(KindDrafts, key, data, &root); err != nil {
		return nil, nil, err
	}

	var pool models.PlayerPool
	if err := r.getPart(ctx, KindDraftPools, key, &pool); err != nil {
		return nil, nil, err
	}
	var teams teamsDocument
	if err := r.getPart(ctx, KindDraftTeams, key, &teams); err != nil {
		return nil, nil, err
	}
	if err := models.ValidateTeams(teams.Teams); err != nil {
		return nil, nil, &models.DeserializationError{Kind: KindDraftTeams, Key: key, Err: err}
	}
	var history models.DraftHistory
	if err := r.getPart(ctx, KindDraftHistory, key, &history); err != nil {
		return nil, nil, err
	}

	d := &models.Draft{
		ID:           root.ID,
		Name:         root.Name,
		NumRounds:    root.NumRounds,
		PoolID:       root.PoolID,
		Pool:         &pool,
		Teams:        teams.Teams,
		CurrentRound: root.CurrentRound,
		CurrentPick:  root.CurrentPick,
		IsComplete:   root.IsComplete,
		CreatedAt:    root.CreatedAt,
	}
	if err := d.Validate(); err != nil {
		return nil, nil, &models.DeserializationError{Kind: KindDrafts, Key: key, Err: err}
	}
	if want := d.TotalPicks(); len(history.Items) != want {
		return nil, nil, &models.DeserializationError{
			Kind: KindDraftHistory,
			Key:  key,
			Err:  fmt.Errorf("history has %d items, want %d", len(history.Items), want),
		}
	}
	return d, &history, nil
}

func (r *Repository) getPart(ctx context.Context, kind, key string, v any) error {
	data, err := r.store.Get(ctx, kind, key)
	if errors.Is(err, ErrNotFound) {
		return &models.DeserializationError{Kind: kind, Key: key, Err: err}
	}
	if err != nil {
		return err
	}
	return decode(kind, key, data, v)
}

// SaveTask stores a pick task.
func (r *Repository) SaveTask(ctx context.Context, task *models.PickTask) error {
	doc, err := encode(KindPickTasks, task.ID, task)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, doc)
}

// Task loads a pick task by id.
func (r *Repository) Task(ctx context.Context, id string) (*models.PickTask, error) {
	data, err := r.store.Get(ctx, KindPickTasks, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var task models.PickTask
	if err := decode(KindPickTasks, id, data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
