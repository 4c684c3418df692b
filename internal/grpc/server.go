package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
	"github.com/Billy-Davies-2/draft-oracle/internal/tasks"
)

// Drafts is the engine surface served over gRPC.
type Drafts interface {
	GetDraft(ctx context.Context, id string) (*models.Draft, *models.DraftHistory, error)
	Team(ctx context.Context, draftID, name string) (*models.Team, error)
	OrderForRound(ctx context.Context, draftID string, round int) ([]string, error)
	ExecutePick(ctx context.Context, draftID string, round, pick int, team string) (models.SelectionResult, error)
}

// Tasks is the async pick surface served over gRPC.
type Tasks interface {
	Submit(ctx context.Context, req tasks.PickRequest) (string, error)
	Poll(ctx context.Context, id string) (*models.PickTask, error)
}

// Server implements the gRPC DraftService
type Server struct {
	drafts Drafts
	tasks  Tasks
}

var _ DraftServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server
func NewServer(drafts Drafts, t Tasks) *Server {
	return &Server{drafts: drafts, tasks: t}
}

// GetDraft returns a draft view with its history.
func (s *Server) GetDraft(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	logger.Debug("gRPC: Getting draft", "draft_id", req.GetValue())
	d, h, err := s.drafts.GetDraft(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(draft.NewDraftView(d, h))
}

// GetTeam returns one team's roster, needs and drafted players.
func (s *Server) GetTeam(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	draftID, err := stringField(req, "draft_id")
	if err != nil {
		return nil, err
	}
	name, err := stringField(req, "team")
	if err != nil {
		return nil, err
	}
	team, err := s.drafts.Team(ctx, draftID, name)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(draft.NewTeamView(team))
}

// GetDraftOrder returns team names in pick order for a round.
func (s *Server) GetDraftOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	draftID, err := stringField(req, "draft_id")
	if err != nil {
		return nil, err
	}
	round, err := intField(req, "round")
	if err != nil {
		return nil, err
	}
	order, err := s.drafts.OrderForRound(ctx, draftID, round)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"draft_id": draftID, "round": round, "order": order})
}

// ExecutePick runs one pick and returns the selection.
func (s *Server) ExecutePick(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, err := pickArgs(req)
	if err != nil {
		return nil, err
	}
	logger.Info("gRPC: Executing pick", "draft_id", p.DraftID, "round", p.Round, "pick", p.Pick, "team", p.Team)
	res, err := s.drafts.ExecutePick(ctx, p.DraftID, p.Round, p.Pick, p.Team)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

// SubmitPick queues a pick and returns its task id.
func (s *Server) SubmitPick(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	p, err := pickArgs(req)
	if err != nil {
		return nil, err
	}
	id, err := s.tasks.Submit(ctx, p)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(id), nil
}

// GetPickTask polls an async pick.
func (s *Server) GetPickTask(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	task, err := s.tasks.Poll(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(task)
}

func pickArgs(req *structpb.Struct) (tasks.PickRequest, error) {
	var (
		p   tasks.PickRequest
		err error
	)
	if p.DraftID, err = stringField(req, "draft_id"); err != nil {
		return p, err
	}
	if p.Round, err = intField(req, "round"); err != nil {
		return p, err
	}
	if p.Pick, err = intField(req, "pick"); err != nil {
		return p, err
	}
	if p.Team, err = stringField(req, "team"); err != nil {
		return p, err
	}
	return p, nil
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "missing field %s", name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || sv.StringValue == "" {
		return "", status.Errorf(codes.InvalidArgument, "field %s must be a non-empty string", name)
	}
	return sv.StringValue, nil
}

func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing field %s", name)
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "field %s must be a number", name)
	}
	n := nv.NumberValue
	if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "field %s must be an integer, got %v", name, n)
	}
	return int(n), nil
}

// toStruct converts v through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

// toStatus maps an engine error onto a gRPC status by kind.
func toStatus(err error) error {
	var code codes.Code
	switch models.KindOf(err) {
	case models.KindValidation:
		code = codes.InvalidArgument
		if models.IsNotFound(err) {
			code = codes.NotFound
		}
	case models.KindTerminal:
		code = codes.FailedPrecondition
	case models.KindTransient:
		code = codes.Unavailable
	case models.KindIntegrity:
		code = codes.DataLoss
	default:
		switch {
		case errors.Is(err, context.Canceled):
			code = codes.Canceled
		case errors.Is(err, context.DeadlineExceeded):
			code = codes.DeadlineExceeded
		default:
			code = codes.Internal
		}
	}
	if code == codes.Internal || code == codes.DataLoss {
		logger.Error("gRPC: Request failed", "code", code.String(), "error", err)
	}
	return status.Error(code, fmt.Sprintf("%s: %v", models.KindOf(err), err))
}
