package dal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/draft-oracle/internal/models"
)

func samplePool() *models.PlayerPool {
	return &models.PlayerPool{
		ID:        "pool-1",
		Season:    2024,
		CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Players: []models.Player{
			{ID: 1, Name: "Cal Catcher", Team: "SEA", Position: models.PositionCatcher},
			{ID: 2, Name: "Fred First", Team: "ATL", Position: models.PositionFirstBase},
			{ID: 3, Name: "Otto Field", Team: "NYY", Position: models.PositionOutfield},
			{ID: 4, Name: "Pete Pitcher", Team: "LAD", Position: models.PositionPitcher},
		},
	}
}

func sampleDraft() (*models.Draft, *models.DraftHistory) {
	pool := samplePool()
	teams := []*models.Team{models.NewTeam("Alpha", "balanced"), models.NewTeam("Beta", "speed")}
	d := &models.Draft{
		ID:           "draft-1",
		Name:         "Spring Draft",
		NumRounds:    1,
		PoolID:       pool.ID,
		Pool:         pool,
		Teams:        teams,
		CurrentRound: 1,
		CurrentPick:  1,
		CreatedAt:    time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	h := &models.DraftHistory{DraftID: d.ID, Items: []models.DraftHistoryItem{
		{Round: 1, Pick: 1, Team: "Alpha"},
		{Round: 1, Pick: 2, Team: "Beta"},
	}}
	return d, h
}

func TestRepositoryDraftRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore())
	d, h := sampleDraft()

	d.Teams[0].Assign(d.Pool.Players[0])
	require.NoError(t, d.Pool.MarkDrafted(1))
	require.NoError(t, h.Commit(1, 1, d.Pool.Players[0], "needed a catcher"))
	d.CurrentPick = 2
	require.NoError(t, repo.SaveDraft(ctx, d, h))

	got, gotHistory, err := repo.Draft(ctx, "DRAFT-1")
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, 2, got.CurrentPick)
	assert.True(t, got.Pool.Players[0].IsDrafted)
	require.NotNil(t, got.Teams[0].Roster[models.PositionCatcher])
	assert.Equal(t, 1, got.Teams[0].Roster[models.PositionCatcher].ID)
	assert.Nil(t, got.Teams[0].Roster[models.PositionPitcher])
	assert.Equal(t, "Cal Catcher", gotHistory.Items[0].Selection)

	latest, _, err := repo.LatestDraft(ctx)
	require.NoError(t, err)
	assert.Equal(t, d.ID, latest.ID)

	ids, err := repo.DraftIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft-1"}, ids)
}

func TestRepositoryMissing(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore())

	_, _, err := repo.Draft(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrDraftNotFound)
	_, _, err = repo.LatestDraft(ctx)
	assert.ErrorIs(t, err, models.ErrDraftNotFound)
	_, err = repo.Pool(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrPoolNotFound)
	_, err = repo.LatestPool(ctx)
	assert.ErrorIs(t, err, models.ErrPoolNotFound)
	_, err = repo.Task(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestRepositoryPools(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore())
	first := samplePool()
	second := samplePool()
	second.ID = "pool-2"
	require.NoError(t, repo.SavePool(ctx, first))
	require.NoError(t, repo.SavePool(ctx, second))

	latest, err := repo.LatestPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pool-2", latest.ID)

	got, err := repo.Pool(ctx, "pool-1")
	require.NoError(t, err)
	assert.Len(t, got.Players, 4)
}

func TestRepositoryTasks(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(NewMemoryStore())
	task := &models.PickTask{
		ID:      "task-1",
		DraftID: "draft-1",
		Team:    "Alpha",
		Round:   1,
		Pick:    1,
		Status:  models.TaskCompleted,
		Result:  &models.SelectionResult{PlayerID: 1, PlayerName: "Cal Catcher", Rationale: "r"},
	}
	require.NoError(t, repo.SaveTask(ctx, task))

	got, err := repo.Task(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, got.Status)
	assert.Equal(t, "Cal Catcher", got.Result.PlayerName)
}

func TestRepositoryRejectsMalformedDocuments(t *testing.T) {
	cases := []struct {
		name string
		kind string
		data string
	}{
		{"unknown draft field", KindDrafts, `{"id":"draft-1","name":"x","num_rounds":1,"pool_id":"pool-1","current_round":1,"current_pick":1,"is_complete":false,"created_at":"2024-03-02T00:00:00Z","legacy":true}`},
		{"truncated teams", KindDraftTeams, `{"draft_id":"draft-1","teams":[`},
		{"missing roster slot", KindDraftTeams, `{"draft_id":"draft-1","teams":[{"name":"Alpha","strategy":"balanced","roster":{"C":null,"1B":null,"OF":null},"drafted_players":[]},{"name":"Beta","strategy":"speed","roster":{"C":null,"1B":null,"OF":null,"P":null},"drafted_players":[]}]}`},
		{"duplicate team names", KindDraftTeams, `{"draft_id":"draft-1","teams":[{"name":"Alpha","strategy":"balanced","roster":{"C":null,"1B":null,"OF":null,"P":null},"drafted_players":[]},{"name":"alpha","strategy":"speed","roster":{"C":null,"1B":null,"OF":null,"P":null},"drafted_players":[]}]}`},
		{"duplicate player ids", KindDraftPools, `{"id":"pool-1","created_at":"2024-03-01T00:00:00Z","players":[{"id":1,"name":"a","team":"x","position":"C","stats":{},"is_drafted":false},{"id":1,"name":"b","team":"y","position":"P","stats":{},"is_drafted":false}]}`},
		{"history gap", KindDraftHistory, `{"draft_id":"draft-1","items":[{"round":1,"pick":1,"team":"Alpha","selection":"","rationale":""},{"round":1,"pick":3,"team":"Beta","selection":"","rationale":""}]}`},
		{"history too short", KindDraftHistory, `{"draft_id":"draft-1","items":[{"round":1,"pick":1,"team":"Alpha","selection":"","rationale":""}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := NewMemoryStore()
			repo := NewRepository(store)
			d, h := sampleDraft()
			require.NoError(t, repo.SaveDraft(ctx, d, h))
			require.NoError(t, store.Put(ctx, Document{Kind: tc.kind, Key: d.ID, Data: []byte(tc.data)}))

			_, _, err := repo.Draft(ctx, d.ID)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrDeserialization)
			var de *models.DeserializationError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.kind, de.Kind)
			assert.Equal(t, models.KindIntegrity, models.KindOf(err))
		})
	}
}

func TestRepositoryMissingCompanionDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := NewRepository(store)
	d, _ := sampleDraft()
	doc, err := encode(KindDrafts, d.ID, draftDocument{ID: d.ID, NumRounds: 1, PoolID: d.PoolID, CurrentRound: 1, CurrentPick: 1})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, doc))

	_, _, err = repo.Draft(ctx, d.ID)
	assert.ErrorIs(t, err, models.ErrDeserialization)
}
