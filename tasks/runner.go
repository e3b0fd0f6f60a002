package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/Ben-Bingham/osp-magnum/utils"
)

// TaskFunc is one task body. It may run on any worker goroutine; the data
// it touches must be disjoint from concurrently runnable tasks, which is
// exactly what the task's declared edges are for.
type TaskFunc func(ctx context.Context) (TaskActions, error)

// ErrStalled means the graph quiesced with pipelines still mid-run: some
// declared edge can never be satisfied. That is a graph bug, not a runtime
// condition to wait out.
var ErrStalled = errors.New("tasks: pipelines stalled with no runnable tasks")

// Runner owns an ExecContext and drives it to quiescence, dispatching task
// bodies to a bounded pool of worker goroutines. The ExecContext itself is
// only ever touched from the goroutine calling Run; workers just execute
// bodies and report back over a channel.
type Runner struct {
	graph *Graph
	exec  *ExecContext

	funcs   *xsync.MapOf[TaskId, TaskFunc]
	workers int
	log     utils.Logger

	// bodies executed over the runner's lifetime
	Executed *xsync.Counter
}

func NewRunner(g *Graph, exec *ExecContext, workers int, log utils.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = utils.NopLogger{}
	}
	exec.Resize(g)
	return &Runner{
		graph:    g,
		exec:     exec,
		funcs:    xsync.NewMapOf[TaskId, TaskFunc](),
		workers:  workers,
		log:      log,
		Executed: xsync.NewCounter(),
	}
}

// Register binds a body to a task. Tasks without a body complete
// immediately with no actions. Safe to call from any goroutine, but not
// while Run is in flight for a graph using the task.
func (r *Runner) Register(task TaskId, fn TaskFunc) {
	r.funcs.Store(task, fn)
}

func (r *Runner) Exec() *ExecContext { return r.exec }

type taskResult struct {
	task    TaskId
	actions TaskActions
	err     error
}

// Run starts every root pipeline and alternates EnqueueDirty/CompleteTask
// until all pipelines return to idle. Ready tasks are dispatched in id
// order; at most `workers` bodies run at once.
func (r *Runner) Run(ctx context.Context) error {
	for pl := 0; pl < r.graph.tasks.PipelineCapacity(); pl++ {
		if r.graph.tasks.Parent(PipelineId(pl)) == PipelineNone {
			r.exec.PipelineRun(PipelineId(pl))
		}
	}
	return r.drive(ctx)
}

func (r *Runner) drive(ctx context.Context) error {
	results := make(chan taskResult, r.workers)
	slots := make(chan struct{}, r.workers)
	dispatched := make(map[TaskId]struct{})
	inFlight := 0

	for {
		r.exec.EnqueueDirty(r.graph)

		// hand out everything ready, smallest id first
		var ready utils.Heap[uint32]
		for task := range r.exec.TasksQueuedRun {
			if _, is := dispatched[task]; !is {
				ready.Push(uint32(task))
			}
		}
		for ready.Len() > 0 {
			task := TaskId(ready.Pop())
			dispatched[task] = struct{}{}
			inFlight++
			go r.runBody(ctx, task, slots, results)
		}

		if inFlight == 0 {
			if r.exec.AnyRunning() {
				r.log.Error("graph stalled", "ready", len(r.exec.TasksQueuedRun),
					"blocked", len(r.exec.TasksQueuedBlocked))
				return ErrStalled
			}
			return nil
		}

		select {
		case res := <-results:
			inFlight--
			delete(dispatched, res.task)
			if res.err != nil {
				r.drain(results, inFlight)
				return fmt.Errorf("task %d: %w", res.task, res.err)
			}
			r.exec.CompleteTask(r.graph, res.task, res.actions)
		case <-ctx.Done():
			r.drain(results, inFlight)
			return ctx.Err()
		}
	}
}

func (r *Runner) runBody(ctx context.Context, task TaskId, slots chan struct{}, results chan<- taskResult) {
	slots <- struct{}{}
	defer func() { <-slots }()

	fn, ok := r.funcs.Load(task)
	if !ok {
		results <- taskResult{task: task}
		return
	}
	actions, err := fn(ctx)
	r.Executed.Inc()
	results <- taskResult{task: task, actions: actions, err: err}
}

// drain waits out in-flight bodies so none outlive Run.
func (r *Runner) drain(results <-chan taskResult, inFlight int) {
	for ; inFlight > 0; inFlight-- {
		<-results
	}
}
