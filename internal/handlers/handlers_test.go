package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/draft-oracle/internal/dal"
	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
	"github.com/Billy-Davies-2/draft-oracle/internal/oracle"
	"github.com/Billy-Davies-2/draft-oracle/internal/pubsub"
	"github.com/Billy-Davies-2/draft-oracle/internal/statsfeed"
	"github.com/Billy-Davies-2/draft-oracle/internal/tasks"
)

func init() {
	logger.Init("error")
}

type fixture struct {
	srv    *httptest.Server
	api    *APIHandlers
	events *pubsub.PubSub
	runner *tasks.Runner
}

func newFixture(t *testing.T, protect func(http.Handler) http.Handler, checks map[string]HealthCheck) *fixture {
	t.Helper()
	repo := dal.NewRepository(dal.NewMemoryStore())
	events := pubsub.New()
	engine, err := draft.NewEngine(repo, oracle.NewRetrying(oracle.Heuristic{}, 3), draft.Config{
		NumTeams:   2,
		NumRounds:  4,
		Strategies: []string{oracle.StrategyBalanced},
		TeamNames:  []string{"Alpha", "Beta"},
	},
		draft.WithStatsFeed(statsfeed.NewFixtureSource()),
		draft.WithPublisher(events),
		draft.WithNameGenerator(draft.NewNameGenerator(7)),
	)
	require.NoError(t, err)

	runner := tasks.NewRunner(repo, engine, tasks.Options{Publisher: events})
	t.Cleanup(runner.Close)

	api := NewAPIHandlers(engine, runner, events, checks)
	api.keepalive = 50 * time.Millisecond
	mux := http.NewServeMux()
	api.Register(mux, protect)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, api: api, events: events, runner: runner}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (f *fixture) getList(t *testing.T, path string) []interface{} {
	t.Helper()
	resp, err := f.srv.Client().Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateAndGetDraft(t *testing.T) {
	f := newFixture(t, nil, nil)

	status, body := f.do(t, http.MethodPost, "/api/drafts", `{"id":"D1","name":"Spring"}`)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "d1", body["id"])
	assert.Equal(t, "Spring", body["name"])
	assert.Equal(t, float64(8), body["total_picks"])
	assert.Len(t, body["teams"], 2)

	status, body = f.do(t, http.MethodPost, "/api/drafts", `{"id":"d1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(models.KindValidation), body["kind"])

	status, _ = f.do(t, http.MethodPost, "/api/drafts", `{"bogus":true}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = f.do(t, http.MethodGet, "/api/drafts/d1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["history"], 8)

	status, _ = f.do(t, http.MethodGet, "/api/drafts/missing", "")
	assert.Equal(t, http.StatusNotFound, status)

	assert.Len(t, f.getList(t, "/api/drafts"), 1)
}

func TestCurrentDraftCreatesOnce(t *testing.T) {
	f := newFixture(t, nil, nil)

	status, first := f.do(t, http.MethodGet, "/api/draft", "")
	require.Equal(t, http.StatusOK, status)
	status, second := f.do(t, http.MethodGet, "/api/draft", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first["id"], second["id"])
	assert.Len(t, f.getList(t, "/api/drafts"), 1)
}

func TestOrderEndpoint(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.do(t, http.MethodPost, "/api/drafts", `{"id":"d1"}`)

	status, body := f.do(t, http.MethodGet, "/api/drafts/d1/rounds/2/order", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"Beta", "Alpha"}, body["order"])

	status, _ = f.do(t, http.MethodGet, "/api/drafts/d1/rounds/two/order", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPickLifecycle(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.do(t, http.MethodPost, "/api/drafts", `{"id":"d1"}`)

	status, body := f.do(t, http.MethodGet, "/api/drafts/d1/rounds/1/picks/1/status", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pending", body["status"])

	status, body = f.do(t, http.MethodPost, "/api/drafts/d1/rounds/1/picks/1/teams/Alpha", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.NotZero(t, body["player_id"])

	status, body = f.do(t, http.MethodGet, "/api/drafts/d1/rounds/1/picks/1/status", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])

	status, body = f.do(t, http.MethodPost, "/api/drafts/d1/rounds/1/picks/2/teams/Alpha", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], models.ErrWrongTurn.Error())

	status, _ = f.do(t, http.MethodPost, "/api/drafts/d1/rounds/1/picks/2/teams/Zed", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodPost, "/api/drafts/d1/rounds/1/picks/2/teams/Beta/async", "")
	require.Equal(t, http.StatusAccepted, status, body)
	taskID, _ := body["task_id"].(string)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		s, task := f.do(t, http.MethodGet, "/api/tasks/"+taskID, "")
		return s == http.StatusOK && task["status"] == "completed"
	}, 2*time.Second, 10*time.Millisecond)

	status, _ = f.do(t, http.MethodGet, "/api/tasks/nope", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodPost, "/api/drafts/d1/run", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Len(t, body["outcomes"], 6)

	status, body = f.do(t, http.MethodPost, "/api/drafts/d1/rounds/4/picks/8/teams/Alpha", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(models.KindTerminal), body["kind"])

	status, body = f.do(t, http.MethodGet, "/api/drafts/d1", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["is_complete"])
}

func TestPoolEndpoints(t *testing.T) {
	f := newFixture(t, nil, nil)

	status, _ := f.do(t, http.MethodGet, "/api/player-pool", "")
	assert.Equal(t, http.StatusNotFound, status)

	f.do(t, http.MethodPost, "/api/drafts", `{"id":"d1"}`)
	status, body := f.do(t, http.MethodGet, "/api/player-pool", "")
	require.Equal(t, http.StatusOK, status)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	status, _ = f.do(t, http.MethodGet, "/api/player-pools/"+id, "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/api/player-pools/none", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProtectGuardsMutations(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no", http.StatusUnauthorized)
		})
	}
	f := newFixture(t, deny, nil)

	status, _ := f.do(t, http.MethodPost, "/api/drafts", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = f.do(t, http.MethodPost, "/api/drafts/d1/run", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = f.do(t, http.MethodGet, "/api/drafts/d1", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrWrongTurn, http.StatusBadRequest},
		{&models.PickError{Err: models.ErrTeamNotFound}, http.StatusNotFound},
		{models.ErrDraftComplete, http.StatusConflict},
		{models.ErrDraftPickFailed, http.StatusServiceUnavailable},
		{models.ErrHistorySlotFilled, http.StatusInternalServerError},
		{models.ErrPickOutOfRange, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestGetTeam(t *testing.T) {
	f := newFixture(t, nil, nil)
	status, _ := f.do(t, http.MethodPost, "/api/drafts", `{"id":"d1"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := f.do(t, http.MethodGet, "/api/drafts/d1/teams/alpha", "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Alpha", body["name"])
	assert.Len(t, body["needed"], 4)
	assert.Empty(t, body["drafted_players"])

	status, res := f.do(t, http.MethodPost, "/api/drafts/d1/rounds/1/picks/1/teams/Alpha", "")
	require.Equal(t, http.StatusOK, status, res)

	status, body = f.do(t, http.MethodGet, "/api/drafts/d1/teams/ALPHA", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["needed"], 3)
	drafted, ok := body["drafted_players"].([]interface{})
	require.True(t, ok)
	require.Len(t, drafted, 1)
	assert.Equal(t, res["player_name"], drafted[0].(map[string]interface{})["name"])

	roster, ok := body["roster"].(map[string]interface{})
	require.True(t, ok)
	filled := 0
	for _, name := range roster {
		if name != "" {
			filled++
			assert.Equal(t, res["player_name"], name)
		}
	}
	assert.Equal(t, 1, filled)

	status, body = f.do(t, http.MethodGet, "/api/drafts/d1/teams/Gamma", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(models.KindValidation), body["kind"])
	status, _ = f.do(t, http.MethodGet, "/api/drafts/missing/teams/Alpha", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPickOffScheduleIsBadRequest(t *testing.T) {
	f := newFixture(t, nil, nil)
	status, _ := f.do(t, http.MethodPost, "/api/drafts", `{"id":"d1"}`)
	require.Equal(t, http.StatusCreated, status)

	for _, path := range []string{
		"/api/drafts/d1/rounds/1/picks/5/teams/Alpha",
		"/api/drafts/d1/rounds/9/picks/17/teams/Alpha",
	} {
		status, body := f.do(t, http.MethodPost, path, "")
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Equal(t, string(models.KindValidation), body["kind"], path)
	}

	status, _ = f.do(t, http.MethodGet, "/api/drafts/d1/rounds/1/picks/5/status", "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodGet, "/api/drafts/d1/rounds/5/order", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHealth(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }

	f := newFixture(t, nil, map[string]HealthCheck{"database": healthy, "nats": healthy})
	status, body := f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	status, _ = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, status)

	f = newFixture(t, nil, map[string]HealthCheck{"database": broken})
	status, body = f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
	status, body = f.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "database_unavailable", body["reason"])

	status, _ = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestEventsSSE(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.events.Publish(pubsub.Event{Type: pubsub.EventDraftPick, DraftID: "d1", Payload: map[string]interface{}{"pick": 1}})
	f.events.Publish(pubsub.Event{Type: pubsub.EventDraftPick, DraftID: "d2"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/api/events?draft_id=d1", nil)
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	// next returns the next non-blank line, skipping keepalives unless asked for.
	next := func(keepalive ...bool) string {
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					t.Fatal("stream closed")
				}
				if l == "" || (l == ": keepalive" && len(keepalive) == 0) {
					continue
				}
				return l
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for SSE line")
			}
		}
	}

	assert.Equal(t, `data: {"type":"connected"}`, next())
	assert.Equal(t, "event: draft:pick", next())
	replayed := next()
	assert.Contains(t, replayed, `"draft_id":"d1"`)

	require.Eventually(t, func() bool { return f.events.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	f.events.Publish(pubsub.Event{Type: pubsub.EventDraftPick, DraftID: "d2"})
	f.events.Publish(pubsub.Event{Type: pubsub.EventDraftComplete, DraftID: "d1"})
	assert.Equal(t, "event: draft:complete", next())
	next()

	assert.Equal(t, ": keepalive", next(true))
}

// overlapEvents hands out a subscription that already holds events which
// Recent also reports, as happens when a publish lands between the two calls.
type overlapEvents struct {
	ch     chan pubsub.Event
	recent []pubsub.Event
}

func (o *overlapEvents) Subscribe() chan pubsub.Event { return o.ch }
func (o *overlapEvents) Unsubscribe(chan pubsub.Event) {}
func (o *overlapEvents) Recent(string) []pubsub.Event { return o.recent }

func TestEventsSSEDoesNotRepeatReplayedEvents(t *testing.T) {
	ev := func(seq uint64, typ string) pubsub.Event {
		return pubsub.Event{Type: typ, DraftID: "d1", Seq: seq}
	}
	src := &overlapEvents{
		ch:     make(chan pubsub.Event, 4),
		recent: []pubsub.Event{ev(1, pubsub.EventDraftCreated), ev(2, pubsub.EventDraftPick)},
	}
	src.ch <- ev(2, pubsub.EventDraftPick)
	src.ch <- ev(3, pubsub.EventDraftComplete)
	close(src.ch)

	api := NewAPIHandlers(nil, nil, src, nil)
	w := httptest.NewRecorder()
	api.EventsSSE(w, httptest.NewRequest(http.MethodGet, "/api/events?draft_id=d1", nil))

	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, "event: draft:created"), body)
	assert.Equal(t, 1, strings.Count(body, "event: draft:pick"), body)
	assert.Equal(t, 1, strings.Count(body, "event: draft:complete"), body)
	assert.Less(t, strings.Index(body, "draft:pick"), strings.Index(body, "draft:complete"))
}
