// Command draftsim runs a whole snake draft in-process or prints the pick
// order of a round.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Billy-Davies-2/draft-oracle/internal/config"
	"github.com/Billy-Davies-2/draft-oracle/internal/dal"
	"github.com/Billy-Davies-2/draft-oracle/internal/draft"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
	"github.com/Billy-Davies-2/draft-oracle/internal/oracle"
	"github.com/Billy-Davies-2/draft-oracle/internal/statsfeed"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "draftsim",
		Short:         "Simulate snake fantasy baseball drafts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level (debug, info, warn, error)")
	root.AddCommand(newSimulateCmd(), newOrderCmd())
	return root
}

type simulateOptions struct {
	teams       int
	rounds      int
	seed        uint64
	configFile  string
	maxAttempts int
	jsonOut     bool
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a full draft with the heuristic oracle and print the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.DefaultDraftSettings()
			if opts.configFile != "" {
				s, err := config.LoadDraftSettings(opts.configFile)
				if err != nil {
					return err
				}
				settings = s
			}
			if cmd.Flags().Changed("teams") {
				settings.NumTeams = opts.teams
				if len(settings.TeamNames) != opts.teams {
					settings.TeamNames = nil
				}
			}
			if cmd.Flags().Changed("rounds") {
				settings.NumRounds = opts.rounds
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), settings, opts)
		},
	}
	cmd.Flags().IntVar(&opts.teams, "teams", 2, "number of teams")
	cmd.Flags().IntVar(&opts.rounds, "rounds", draft.MaxRounds, "number of rounds")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "seed for team names and strategies")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML draft settings file")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", oracle.DefaultMaxAttempts, "oracle attempts per pick")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the final draft as JSON")
	return cmd
}

func simulate(ctx context.Context, out io.Writer, settings config.DraftSettings, opts simulateOptions) error {
	repo := dal.NewRepository(dal.NewMemoryStore())
	defer repo.Store().Close()

	engine, err := draft.NewEngine(repo, oracle.NewRetrying(oracle.Heuristic{}, opts.maxAttempts), settings.DraftConfig(0),
		draft.WithStatsFeed(statsfeed.NewFixtureSource()),
		draft.WithNameGenerator(draft.NewNameGenerator(opts.seed)),
	)
	if err != nil {
		return err
	}

	d, err := engine.CreateDraft(ctx, draft.CreateDraftInput{})
	if err != nil {
		return err
	}
	if _, err := engine.RunToCompletion(ctx, d.ID); err != nil {
		return err
	}
	d, h, err := engine.GetDraft(ctx, d.ID)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(draft.NewDraftView(d, h))
	}
	return printHistory(out, d, h)
}

func printHistory(out io.Writer, d *models.Draft, h *models.DraftHistory) error {
	fmt.Fprintf(out, "%s (%s)\n", d.Name, d.ID)
	for _, t := range d.Teams {
		fmt.Fprintf(out, "  %s: %s\n", t.Name, t.Strategy)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUND\tPICK\tTEAM\tSELECTION\tRATIONALE")
	for _, item := range h.Items {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", item.Round, item.Pick, item.Team, item.Selection, item.Rationale)
	}
	return tw.Flush()
}

func newOrderCmd() *cobra.Command {
	var teams, round int
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the snake order of one round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if teams < 1 {
				return fmt.Errorf("--teams must be at least 1, got %d", teams)
			}
			if round < 1 {
				return fmt.Errorf("--round must be at least 1, got %d", round)
			}
			ts := make([]*models.Team, teams)
			for i := range ts {
				ts[i] = models.NewTeam(fmt.Sprintf("Team %d", i+1), "")
			}
			out := cmd.OutOrStdout()
			base := (round - 1) * teams
			for i, t := range draft.OrderForRound(ts, round) {
				fmt.Fprintf(out, "%d\t%s\n", base+i+1, t.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&teams, "teams", 2, "number of teams")
	cmd.Flags().IntVar(&round, "round", 1, "round number")
	return cmd
}
