// Package tasks runs picks asynchronously: Submit returns a task id at once
// and Poll reports pending, completed or failed.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/draft-oracle/internal/dal"
	"github.com/Billy-Davies-2/draft-oracle/internal/logger"
	"github.com/Billy-Davies-2/draft-oracle/internal/models"
	"github.com/Billy-Davies-2/draft-oracle/internal/pubsub"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("task runner is closed")

// Executor runs one pick. *draft.Engine satisfies it.
type Executor interface {
	ExecutePick(ctx context.Context, draftID string, round, pick int, team string) (models.SelectionResult, error)
}

// PickRequest identifies the pick to run.
type PickRequest struct {
	DraftID string `json:"draft_id"`
	Round   int    `json:"round"`
	Pick    int    `json:"pick"`
	Team    string `json:"team"`
}

// Options tunes a Runner.
type Options struct {
	QueueSize   int           // per-draft queue depth, default 64
	PickTimeout time.Duration // zero means no per-pick deadline
	IdleTimeout time.Duration // a worker with an empty queue exits after this, default 1m
	Publisher   pubsub.Publisher
	Now         func() time.Time
}

// Runner owns one worker goroutine per draft, so queued picks on a draft run
// strictly in submission order. A worker whose queue stays empty for
// IdleTimeout exits; the next Submit for that draft starts a new one.
type Runner struct {
	repo    *dal.Repository
	exec    Executor
	events  pubsub.Publisher
	now     func() time.Time
	timeout time.Duration
	idle    time.Duration
	size    int

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queues map[string]chan *models.PickTask
	closed bool
	wg     sync.WaitGroup
}

// NewRunner builds a runner. Tasks are persisted through repo.
func NewRunner(repo *dal.Repository, exec Executor, opts Options) *Runner {
	r := &Runner{
		repo:    repo,
		exec:    exec,
		events:  opts.Publisher,
		now:     opts.Now,
		timeout: opts.PickTimeout,
		idle:    opts.IdleTimeout,
		size:    opts.QueueSize,
		queues:  make(map[string]chan *models.PickTask),
	}
	if r.events == nil {
		r.events = pubsub.Discard{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.size <= 0 {
		r.size = 64
	}
	if r.idle <= 0 {
		r.idle = time.Minute
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Submit stores a pending task and queues it on the draft's worker.
func (r *Runner) Submit(ctx context.Context, req PickRequest) (string, error) {
	draftID := dal.NormalizeKey(req.DraftID)
	if draftID == "" || strings.TrimSpace(req.Team) == "" {
		return "", fmt.Errorf("%w: submit needs a draft id and a team", models.ErrInvalidDraftSetup)
	}

	now := r.now().UTC()
	task := &models.PickTask{
		ID:        uuid.NewString(),
		DraftID:   draftID,
		Team:      req.Team,
		Round:     req.Round,
		Pick:      req.Pick,
		Status:    models.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}
	if err := r.repo.SaveTask(ctx, task); err != nil {
		return "", fmt.Errorf("save task: %w", err)
	}

	r.publish(task)

	q, ok := r.queues[draftID]
	if !ok {
		q = make(chan *models.PickTask, r.size)
		r.queues[draftID] = q
		r.wg.Add(1)
		go r.worker(draftID, q)
	}
	select {
	case q <- task:
	default:
		task.Status = models.TaskFailed
		task.Error = "pick queue is full"
		task.ErrorKind = string(models.KindTransient)
		r.finish(task)
		r.publish(task)
		return "", fmt.Errorf("%w: queue for draft %s is full", models.ErrDraftPickFailed, draftID)
	}

	logger.Info("Pick task submitted", "task_id", task.ID, "draft_id", draftID, "round", req.Round, "pick", req.Pick, "team", req.Team)
	return task.ID, nil
}

// Poll returns the current state of a task.
func (r *Runner) Poll(ctx context.Context, taskID string) (*models.PickTask, error) {
	return r.repo.Task(ctx, taskID)
}

// Close stops accepting tasks, lets every worker drain its queue, then
// returns. Call Abort first to cancel in-flight picks.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, q := range r.queues {
		close(q)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.cancel()
}

// Abort cancels the context of running and queued picks.
func (r *Runner) Abort() {
	r.cancel()
}

func (r *Runner) worker(draftID string, q chan *models.PickTask) {
	defer r.wg.Done()
	logger.Debug("Pick worker started", "draft_id", draftID)
	defer logger.Debug("Pick worker stopped", "draft_id", draftID)

	idle := time.NewTimer(r.idle)
	defer idle.Stop()
	for {
		select {
		case task, ok := <-q:
			if !ok {
				return
			}
			r.run(task)
			idle.Reset(r.idle)
		case <-idle.C:
			if r.retire(draftID, q) {
				return
			}
			idle.Reset(r.idle)
		}
	}
}

// retire drops an idle worker's queue. Submit sends while holding mu, so an
// empty queue seen here stays empty until the entry is gone.
func (r *Runner) retire(draftID string, q chan *models.PickTask) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(q) > 0 || r.queues[draftID] != q {
		return false
	}
	delete(r.queues, draftID)
	return true
}

func (r *Runner) workers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

func (r *Runner) run(task *models.PickTask) {
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.exec.ExecutePick(ctx, task.DraftID, task.Round, task.Pick, task.Team)
	if err != nil {
		task.Status = models.TaskFailed
		task.Error = err.Error()
		task.ErrorKind = string(models.KindOf(err))
	} else {
		task.Status = models.TaskCompleted
		task.Result = &res
	}
	r.finish(task)
	r.publish(task)
}

// finish persists a settled task. A context independent of the runner is
// used so a cancelled pick still records its failure.
func (r *Runner) finish(task *models.PickTask) {
	task.UpdatedAt = r.now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.repo.SaveTask(ctx, task); err != nil {
		logger.Error("Failed to save pick task", "task_id", task.ID, "error", err)
	}
	logger.Info("Pick task settled", "task_id", task.ID, "draft_id", task.DraftID, "status", task.Status, "error_kind", task.ErrorKind)
}

func (r *Runner) publish(task *models.PickTask) {
	payload := map[string]interface{}{
		"task_id": task.ID,
		"status":  string(task.Status),
		"round":   task.Round,
		"pick":    task.Pick,
		"team":    task.Team,
	}
	if task.Result != nil {
		payload["player_id"] = task.Result.PlayerID
		payload["player_name"] = task.Result.PlayerName
	}
	if task.Error != "" {
		payload["error"] = task.Error
		payload["error_kind"] = task.ErrorKind
	}
	r.events.Publish(pubsub.Event{Type: pubsub.EventTaskUpdate, DraftID: task.DraftID, Payload: payload})
}
