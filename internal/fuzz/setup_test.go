package fuzz

import (
	"context"
	"testing"

	"github.com/Billy-Davies-2/draft-oracle/internal/dal"
	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/oracle"
	"github.com/Billy-Davies-2/draft-oracle/internal/pubsub"
	"github.com/Billy-Davies-2/draft-oracle/internal/statsfeed"
	"github.com/Billy-Davies-2/draft-oracle/internal/tasks"
)

func init() {
	// Initialize logger for tests
	logger.Init("error")
}

type service struct {
	engine *draft.Engine
	runner *tasks.Runner
	events *pubsub.PubSub
}

// newService builds an in-memory engine with one draft "d1".
func newService(f *testing.F) *service {
	f.Helper()
	repo := dal.NewRepository(dal.NewMemoryStore())
	events := pubsub.New()
	engine, err := draft.NewEngine(repo, oracle.NewRetrying(oracle.Heuristic{}, 3), draft.Config{
		NumTeams:   2,
		NumRounds:  4,
		Strategies: draft.SortedStrategies(oracle.DefaultStrategies),
		TeamNames:  []string{"Alpha", "Beta"},
	},
		draft.WithStatsFeed(statsfeed.NewFixtureSource()),
		draft.WithPublisher(events),
	)
	if err != nil {
		f.Fatal(err)
	}
	if _, err := engine.CreateDraft(context.Background(), draft.CreateDraftInput{ID: "d1"}); err != nil {
		f.Fatal(err)
	}
	runner := tasks.NewRunner(repo, engine, tasks.Options{Publisher: events})
	f.Cleanup(runner.Close)
	return &service{engine: engine, runner: runner, events: events}
}
