package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
)

// Polling turns an AsyncOracle into an Oracle: it submits once, then polls
// with linear backoff (Interval, 2*Interval, ... capped at MaxInterval)
// until the task settles or MaxPolls observations have been pending.
type Polling struct {
	Async       AsyncOracle
	Interval    time.Duration
	MaxInterval time.Duration
	MaxPolls    int
}

// NewPolling returns a Polling adapter. maxInterval defaults to five intervals.
func NewPolling(async AsyncOracle, interval time.Duration, maxPolls int) *Polling {
	return &Polling{Async: async, Interval: interval, MaxInterval: 5 * interval, MaxPolls: maxPolls}
}

func (p *Polling) Select(ctx context.Context, req Request) (Selection, error) {
	taskID, err := p.Async.Submit(ctx, req)
	if err != nil {
		return Selection{}, fmt.Errorf("submit selection: %w", err)
	}
	logger.Debug("Oracle task submitted", "draft_id", req.DraftID, "team", req.Team, "task_id", taskID)

	maxPolls := p.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 1
	}
	for poll := 1; poll <= maxPolls; poll++ {
		if err := sleep(ctx, p.delay(poll)); err != nil {
			return Selection{}, err
		}

		res, err := p.Async.Poll(ctx, taskID)
		if err != nil {
			return Selection{}, fmt.Errorf("poll task %s: %w", taskID, err)
		}
		switch res.Status {
		case StatusCompleted:
			if res.Selection == nil {
				return Selection{}, fmt.Errorf("%w: task %s completed without a selection", ErrSelectionFailed, taskID)
			}
			return *res.Selection, nil
		case StatusFailed:
			return Selection{}, fmt.Errorf("%w: task %s: %s", ErrSelectionFailed, taskID, res.Reason)
		case StatusPending:
		default:
			return Selection{}, fmt.Errorf("task %s reported unknown status %q", taskID, res.Status)
		}
	}
	return Selection{}, fmt.Errorf("%w: task %s after %d polls", ErrPollLimit, taskID, maxPolls)
}

func (p *Polling) delay(poll int) time.Duration {
	d := p.Interval * time.Duration(poll)
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
