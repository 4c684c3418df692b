package fuzz

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcserver "github.com/Billy-Davies-2/draft-oracle/internal/grpc"
)

// checkCode fails on codes that only a server defect should produce.
func checkCode(t *testing.T, method string, err error) {
	t.Helper()
	switch status.Code(err) {
	case codes.Internal, codes.DataLoss, codes.Unknown:
		t.Fatalf("%s: %v", method, err)
	}
}

func newServer(f *testing.F) *grpcserver.Server {
	f.Helper()
	s := newService(f)
	return grpcserver.NewServer(s.engine, s.runner)
}

// FuzzGRPCExecutePick fuzzes the gRPC ExecutePick endpoint
func FuzzGRPCExecutePick(f *testing.F) {
	// Seed corpus
	f.Add("d1", 1.0, 1.0, "Alpha")
	f.Add("d1", 1.5, 2.0, "Beta")
	f.Add("d1", 1e300, -1e300, "Beta")
	f.Add("", 0.0, 0.0, "")

	server := newServer(f)
	f.Fuzz(func(t *testing.T, draftID string, round, pick float64, team string) {
		req, err := structpb.NewStruct(map[string]interface{}{
			"draft_id": draftID,
			"round":    round,
			"pick":     pick,
			"team":     team,
		})
		if err != nil {
			return
		}

		_, err = server.ExecutePick(context.Background(), req)
		checkCode(t, "ExecutePick", err)
	})
}

// FuzzGRPCGetDraftOrder fuzzes the gRPC GetDraftOrder endpoint
func FuzzGRPCGetDraftOrder(f *testing.F) {
	f.Add("d1", 1.0)
	f.Add("d1", 0.0)
	f.Add("other", 3.0)

	server := newServer(f)
	f.Fuzz(func(t *testing.T, draftID string, round float64) {
		req, err := structpb.NewStruct(map[string]interface{}{"draft_id": draftID, "round": round})
		if err != nil {
			return
		}
		_, err = server.GetDraftOrder(context.Background(), req)
		checkCode(t, "GetDraftOrder", err)
	})
}

// FuzzGRPCGetPickTask fuzzes task lookups
func FuzzGRPCGetPickTask(f *testing.F) {
	f.Add("")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("../../etc/passwd")

	server := newServer(f)
	f.Fuzz(func(t *testing.T, id string) {
		_, err := server.GetPickTask(context.Background(), wrapperspb.String(id))
		checkCode(t, "GetPickTask", err)
		_, err = server.GetDraft(context.Background(), wrapperspb.String(id))
		checkCode(t, "GetDraft", err)
	})
}
