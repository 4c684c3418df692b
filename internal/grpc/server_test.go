package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Billy-Davies-2/draft-oracle/internal/dal"
	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
	"github.com/Billy-Davies-2/draft-oracle/internal/oracle"
	"github.com/Billy-Davies-2/draft-oracle/internal/statsfeed"
	"github.com/Billy-Davies-2/draft-oracle/internal/tasks"
)

func init() {
	logger.Init("error")
}

func newClient(t *testing.T) *DraftServiceClient {
	t.Helper()
	ctx := context.Background()

	repo := dal.NewRepository(dal.NewMemoryStore())
	engine, err := draft.NewEngine(repo, oracle.NewRetrying(oracle.Heuristic{}, 3), draft.Config{
		NumTeams:   2,
		NumRounds:  4,
		Strategies: []string{oracle.StrategyBalanced},
		TeamNames:  []string{"Alpha", "Beta"},
	}, draft.WithStatsFeed(statsfeed.NewFixtureSource()))
	require.NoError(t, err)
	_, err = engine.CreateDraft(ctx, draft.CreateDraftInput{ID: "d1"})
	require.NoError(t, err)

	runner := tasks.NewRunner(repo, engine, tasks.Options{})
	t.Cleanup(runner.Close)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterDraftServiceServer(srv, NewServer(engine, runner))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewDraftServiceClient(conn)
}

func pickReq(t *testing.T, round, pick int, team string) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(map[string]interface{}{"draft_id": "d1", "round": round, "pick": pick, "team": team})
	require.NoError(t, err)
	return s
}

func codeOf(err error) codes.Code {
	return status.Code(err)
}

func TestGetDraftAndOrder(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	d, err := c.GetDraft(ctx, wrapperspb.String("d1"))
	require.NoError(t, err)
	assert.Equal(t, "d1", d.Fields["id"].GetStringValue())
	assert.Len(t, d.Fields["teams"].GetListValue().GetValues(), 2)

	_, err = c.GetDraft(ctx, wrapperspb.String("nope"))
	assert.Equal(t, codes.NotFound, codeOf(err))

	req, err := structpb.NewStruct(map[string]interface{}{"draft_id": "d1", "round": 2})
	require.NoError(t, err)
	order, err := c.GetDraftOrder(ctx, req)
	require.NoError(t, err)
	var names []string
	for _, v := range order.Fields["order"].GetListValue().GetValues() {
		names = append(names, v.GetStringValue())
	}
	assert.Equal(t, []string{"Beta", "Alpha"}, names)
}

func TestGetTeam(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	req, err := structpb.NewStruct(map[string]interface{}{"draft_id": "d1", "team": "beta"})
	require.NoError(t, err)
	team, err := c.GetTeam(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Beta", team.Fields["name"].GetStringValue())
	assert.Len(t, team.Fields["needed"].GetListValue().GetValues(), 4)

	req, err = structpb.NewStruct(map[string]interface{}{"draft_id": "d1", "team": "Gamma"})
	require.NoError(t, err)
	_, err = c.GetTeam(ctx, req)
	assert.Equal(t, codes.NotFound, codeOf(err))

	_, err = c.GetTeam(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, codeOf(err))
}

func TestExecutePickCodes(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	res, err := c.ExecutePick(ctx, pickReq(t, 1, 1, "Alpha"))
	require.NoError(t, err)
	assert.NotZero(t, res.Fields["player_id"].GetNumberValue())

	_, err = c.ExecutePick(ctx, pickReq(t, 1, 2, "Alpha"))
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	_, err = c.ExecutePick(ctx, pickReq(t, 1, 2, "Nobody"))
	assert.Equal(t, codes.NotFound, codeOf(err))

	_, err = c.ExecutePick(ctx, pickReq(t, 0, 1, "Alpha"))
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	bad, err := structpb.NewStruct(map[string]interface{}{"draft_id": "d1", "round": 1.5, "pick": 2, "team": "Beta"})
	require.NoError(t, err)
	_, err = c.ExecutePick(ctx, bad)
	assert.Equal(t, codes.InvalidArgument, codeOf(err))

	_, err = c.ExecutePick(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, codeOf(err))
}

func TestSubmitAndPollPick(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	id, err := c.SubmitPick(ctx, pickReq(t, 1, 1, "Alpha"))
	require.NoError(t, err)
	require.NotEmpty(t, id.GetValue())

	require.Eventually(t, func() bool {
		task, err := c.GetPickTask(ctx, id)
		return err == nil && task.Fields["status"].GetStringValue() == string(models.TaskCompleted)
	}, 2*time.Second, 10*time.Millisecond)

	_, err = c.GetPickTask(ctx, wrapperspb.String("missing"))
	assert.Equal(t, codes.NotFound, codeOf(err))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{models.ErrDraftComplete, codes.FailedPrecondition},
		{models.ErrDraftPickFailed, codes.Unavailable},
		{models.ErrHistoryItemNotFound, codes.DataLoss},
		{models.ErrInvalidPick, codes.DataLoss},
		{models.ErrPickOutOfRange, codes.InvalidArgument},
		{models.ErrRosterFull, codes.InvalidArgument},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, codeOf(toStatus(tt.err)), tt.err.Error())
	}
}
