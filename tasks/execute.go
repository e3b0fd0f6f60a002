package tasks

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/learn-decentralized-systems/toyqueue"
)

// ExecPipeline is the per-pipeline slice of executor state.
type ExecPipeline struct {
	Stage StageId // StageNone while idle

	Running         bool
	DoLoop          bool
	CancelOptionals bool
	TasksQueued     bool // this stage's tasks have been enqueued this visit

	// counts of this pipeline's own tasks in the global queues
	TasksQueuedRun     int
	TasksQueuedBlocked int

	// outstanding tasks (from any pipeline) requiring this pipeline's
	// current stage; must reach 0 before the stage can change
	TasksReqOwnStageLeft int

	// required tasks this stage still waits on; must reach 0 before the
	// stage can change
	OwnStageReqTasksLeft int
}

// BlockedTask is a queued task still waiting for some of its required
// stages.
type BlockedTask struct {
	ReqStagesLeft int
	Pipeline      PipelineId
}

// ExecContext is one run's worth of mutable executor state. Not safe for
// concurrent use; EnqueueDirty and CompleteTask must alternate from a single
// goroutine. Task bodies may run anywhere, the ready set is all the executor
// publishes.
type ExecContext struct {
	PlData []ExecPipeline

	TasksQueuedRun     map[TaskId]struct{}
	TasksQueuedBlocked map[TaskId]BlockedTask

	plAdvance     *bitset.BitSet
	plAdvanceNext *bitset.BitSet
	plRequestRun  *bitset.BitSet
	hasPlAdvance  bool
	hasRequestRun bool

	// tagged event log; see events.go
	LogMsg    []Event
	DoLogging bool

	// Sink, when set, receives the TLV-encoded log tail after every
	// EnqueueDirty.
	Sink       toyqueue.Drainer
	logFlushed int

	// totals for the collector
	CompletedTotal uint64
	EnqueueCycles  uint64
}

// Resize reserves all state to the graph's id capacities. Idempotent; call
// before the first PipelineRun.
func (x *ExecContext) Resize(g *Graph) {
	nPl := g.tasks.PipelineCapacity()
	if len(x.PlData) < nPl {
		grown := make([]ExecPipeline, nPl)
		copy(grown, x.PlData)
		for i := len(x.PlData); i < nPl; i++ {
			grown[i].Stage = StageNone
		}
		x.PlData = grown
	}
	if x.TasksQueuedRun == nil {
		x.TasksQueuedRun = make(map[TaskId]struct{}, g.tasks.TaskCapacity())
		x.TasksQueuedBlocked = make(map[TaskId]BlockedTask, g.tasks.TaskCapacity())
	}
	if x.plAdvance == nil {
		x.plAdvance = bitset.New(uint(nPl))
		x.plAdvanceNext = bitset.New(uint(nPl))
		x.plRequestRun = bitset.New(uint(nPl))
	}
}

// PipelineRun schedules a pipeline (and its descendants) to start on the
// next EnqueueDirty. Starting new pipelines while any pipeline is running is
// a caller bug and panics inside EnqueueDirty.
func (x *ExecContext) PipelineRun(pl PipelineId) {
	x.plRequestRun.Set(uint(pl))
	x.hasRequestRun = true
	x.log(ExternalTrigger{Pipeline: pl})
}

func (x *ExecContext) log(ev Event) {
	if x.DoLogging {
		x.LogMsg = append(x.LogMsg, ev)
	}
}

func (x *ExecContext) pipelineCanAdvance(pl *ExecPipeline) bool {
	return pl.OwnStageReqTasksLeft == 0 && // tasks required by stage are done
		pl.TasksReqOwnStageLeft == 0 && // not required by any tasks
		pl.TasksQueuedBlocked+pl.TasksQueuedRun == 0 // own tasks done
}

func (x *ExecContext) pipelineTryAdvance(pl PipelineId) {
	if x.pipelineCanAdvance(&x.PlData[pl]) {
		x.plAdvance.Set(uint(pl))
		x.hasPlAdvance = true
	}
}

func (x *ExecContext) stageIsCancelled(g *Graph, pl PipelineId, stg StageId) bool {
	return x.PlData[pl].CancelOptionals && g.tasks.StageOptional(pl, stg)
}

// EnqueueDirty drives the graph until no pipeline can advance further
// without an external task completion, filling TasksQueuedRun on the way.
func (x *ExecContext) EnqueueDirty(g *Graph) {
	x.log(EnqueueStart{})

	if x.hasRequestRun {
		for pl := range x.PlData {
			if x.PlData[pl].Running {
				panic("tasks: starting new pipelines while already running is not supported")
			}
		}
		for plInt, ok := x.plRequestRun.NextSet(0); ok; plInt, ok = x.plRequestRun.NextSet(plInt + 1) {
			x.runPipelineRecurse(g, PipelineId(plInt))
		}
		x.plRequestRun.ClearAll()
		x.hasRequestRun = false
	}

	for x.hasPlAdvance {
		x.log(EnqueueCycle{})
		x.EnqueueCycles++

		x.hasPlAdvance = false

		for plInt, ok := x.plAdvance.NextSet(0); ok; plInt, ok = x.plAdvance.NextSet(plInt + 1) {
			x.pipelineAdvanceStage(g, PipelineId(plInt))
		}
		for plInt, ok := x.plAdvance.NextSet(0); ok; plInt, ok = x.plAdvance.NextSet(plInt + 1) {
			x.pipelineAdvanceReqs(g, PipelineId(plInt))
		}
		for plInt, ok := x.plAdvance.NextSet(0); ok; plInt, ok = x.plAdvance.NextSet(plInt + 1) {
			x.pipelineAdvanceRun(g, PipelineId(plInt))
		}

		x.plAdvance, x.plAdvanceNext = x.plAdvanceNext, x.plAdvance
		x.plAdvanceNext.ClearAll()
	}

	x.log(EnqueueEnd{})
	x.flushLog()
}

func (x *ExecContext) runPipelineRecurse(g *Graph, pl PipelineId) {
	execPl := &x.PlData[pl]

	if g.StageCount(pl) != 0 {
		execPl.Running = true
		execPl.DoLoop = g.tasks.Loops(pl)
		execPl.CancelOptionals = false

		if execPl.OwnStageReqTasksLeft == 0 {
			x.plAdvance.Set(uint(pl))
			x.hasPlAdvance = true
		}
	}

	for _, sub := range g.Children(pl) {
		x.runPipelineRecurse(g, sub)
	}
}

func (x *ExecContext) pipelineAdvanceStage(g *Graph, pl PipelineId) {
	execPl := &x.PlData[pl]

	if !x.pipelineCanAdvance(execPl) {
		panic(fmt.Sprintf("tasks: advancing pipeline %d with outstanding work", pl))
	}

	stageCount := g.StageCount(pl)
	if stageCount == 0 {
		panic("tasks: pipelines with 0 stages shouldn't be running")
	}

	justStarting := execPl.Stage == StageNone

	nextStage := StageId(0)
	if !justStarting {
		nextStage = execPl.Stage + 1
	}

	switch {
	case int(nextStage) != stageCount:
		x.log(StageChange{Pipeline: pl, StageOld: execPl.Stage, StageNew: nextStage})
		execPl.Stage = nextStage
		execPl.TasksQueued = false
	case execPl.DoLoop:
		// final stage wraps around; a fresh pass through the loop gets its
		// optional stages back
		x.log(StageChange{Pipeline: pl, StageOld: execPl.Stage, StageNew: 0})
		execPl.Stage = 0
		execPl.TasksQueued = false
		execPl.CancelOptionals = false
	default:
		// one past the last stage; finished running
		x.log(StageChange{Pipeline: pl, StageOld: execPl.Stage, StageNew: StageNone})
		execPl.Stage = StageNone
		execPl.Running = false
	}
}

func (x *ExecContext) pipelineAdvanceReqs(g *Graph, pl PipelineId) {
	execPl := &x.PlData[pl]

	if !execPl.Running {
		return
	}

	anystg := g.AnystgFrom(pl, execPl.Stage)

	// Evaluate Task-requires-Stages. These are tasks from other pipelines
	// that require the new stage.
	revTaskReqStage := g.RevTaskReqStages(anystg)

	execPl.TasksReqOwnStageLeft = len(revTaskReqStage)

	for _, task := range revTaskReqStage {
		if blocked, is := x.TasksQueuedBlocked[task]; is {
			// unblock tasks that are already queued
			blocked.ReqStagesLeft--
			if blocked.ReqStagesLeft == 0 {
				x.log(UnblockTask{Task: task})
				taskPl := &x.PlData[blocked.Pipeline]
				taskPl.TasksQueuedBlocked--
				taskPl.TasksQueuedRun++
				x.TasksQueuedRun[task] = struct{}{}
				delete(x.TasksQueuedBlocked, task)
			} else {
				x.TasksQueuedBlocked[task] = blocked
			}
		} else if runOn := g.tasks.RunOn(task); x.stageIsCancelled(g, runOn.Pipeline, runOn.Stage) {
			// task is cancelled and will never show up
			execPl.TasksReqOwnStageLeft--
		}
	}

	// Evaluate Stage-requires-Tasks. To advance past the new stage, these
	// tasks must be complete; some may be already.
	stgreqtasks := g.StageReqTasks(anystg)

	execPl.OwnStageReqTasksLeft = len(stgreqtasks)

	for _, stgreqtask := range stgreqtasks {
		reqTaskPl := &x.PlData[stgreqtask.ReqPipeline]

		var reqTaskDone bool
		switch {
		case !reqTaskPl.Running:
			reqTaskDone = true // whole pipeline finished already
		case x.stageIsCancelled(g, stgreqtask.ReqPipeline, stgreqtask.ReqStage):
			reqTaskDone = true // cancelled; required task will never run
		case reqTaskPl.Stage < stgreqtask.ReqStage:
			reqTaskDone = false // not yet reached required stage
		case reqTaskPl.Stage > stgreqtask.ReqStage:
			reqTaskDone = true // passed required stage
		case !reqTaskPl.TasksQueued:
			reqTaskDone = false // required tasks not queued yet
		default:
			_, inBlocked := x.TasksQueuedBlocked[stgreqtask.ReqTask]
			_, inRun := x.TasksQueuedRun[stgreqtask.ReqTask]
			// on the right stage, queued, and no longer in either queue
			// means it completed
			reqTaskDone = !inBlocked && !inRun
		}

		if reqTaskDone {
			execPl.OwnStageReqTasksLeft--
		}
	}
}

func (x *ExecContext) pipelineAdvanceRun(g *Graph, pl PipelineId) {
	execPl := &x.PlData[pl]

	if !execPl.Running {
		return
	}

	stageCancelled := execPl.CancelOptionals && g.tasks.StageOptional(pl, execPl.Stage)
	noTasksRun := true

	if !stageCancelled {
		anystg := g.AnystgFrom(pl, execPl.Stage)
		runTasks := g.RunTasks(anystg)

		noTasksRun = len(runTasks) == 0

		for _, task := range runTasks {
			if _, is := x.TasksQueuedBlocked[task]; is {
				panic("tasks: impossible to queue a task that's already queued")
			}
			if _, is := x.TasksQueuedRun[task]; is {
				panic("tasks: impossible to queue a task that's already queued")
			}

			// some Task-requires-Stage requirements may already hold
			taskreqstages := g.TaskReqStages(task)
			reqStagesLeft := len(taskreqstages)

			for _, req := range taskreqstages {
				if x.PlData[req.Pipeline].Stage == req.Stage {
					reqStagesLeft--
				}
			}

			blocked := reqStagesLeft != 0
			if !blocked {
				x.TasksQueuedRun[task] = struct{}{}
				execPl.TasksQueuedRun++
			} else {
				x.TasksQueuedBlocked[task] = BlockedTask{ReqStagesLeft: reqStagesLeft, Pipeline: pl}
				execPl.TasksQueuedBlocked++
			}

			x.log(EnqueueTask{Pipeline: pl, Stage: execPl.Stage, Task: task, Blocked: blocked})
			if blocked && x.DoLogging {
				for _, req := range taskreqstages {
					if x.PlData[req.Pipeline].Stage != req.Stage {
						x.log(EnqueueTaskReq{Pipeline: req.Pipeline, Stage: req.Stage})
					}
				}
			}
		}
	}

	execPl.TasksQueued = true

	if noTasksRun && x.pipelineCanAdvance(execPl) {
		// No tasks to run. Completing tasks are responsible for re-dirtying
		// this pipeline; with none, nothing would, so re-dirty right away.
		x.plAdvanceNext.Set(uint(pl))
		x.hasPlAdvance = true
	}
}

// CompleteTask records the completion of a task previously handed out
// through TasksQueuedRun, propagates edge counters, and honors actions.
// Call EnqueueDirty afterwards to pick up any advances it scheduled.
func (x *ExecContext) CompleteTask(g *Graph, task TaskId, actions TaskActions) {
	if _, is := x.TasksQueuedRun[task]; !is {
		panic(fmt.Sprintf("tasks: completing task %d that is not in the run queue", task))
	}
	delete(x.TasksQueuedRun, task)

	x.log(CompleteTask{Task: task})
	x.CompletedTotal++

	runOn := g.tasks.RunOn(task)
	execPl := &x.PlData[runOn.Pipeline]

	execPl.TasksQueuedRun--

	x.pipelineTryAdvance(runOn.Pipeline)

	// stages requiring this task
	for _, reqTaskAnystg := range g.RevStageReqTasks(task) {
		reqPl := g.PipelineOf(reqTaskAnystg)
		reqStg := g.StageFrom(reqPl, reqTaskAnystg)
		reqExecPl := &x.PlData[reqPl]

		if reqExecPl.Stage == reqStg {
			reqExecPl.OwnStageReqTasksLeft--
			x.pipelineTryAdvance(reqPl)
		} else if reqExecPl.Stage == StageNone || reqExecPl.Stage > reqStg {
			// the requiring stage can't have been advanced past while the
			// task was still outstanding
			panic(fmt.Sprintf("tasks: task %d completed after pipeline %d passed stage %d", task, reqPl, reqStg))
		}
	}

	// this task requiring stages
	for _, req := range g.TaskReqStages(task) {
		reqExecPl := &x.PlData[req.Pipeline]

		if reqExecPl.Stage != req.Stage {
			panic(fmt.Sprintf("tasks: task %d ran outside required stage (%d, %d)", task, req.Pipeline, req.Stage))
		}

		reqExecPl.TasksReqOwnStageLeft--
		x.pipelineTryAdvance(req.Pipeline)
	}

	if actions&TaskActionCancelOptionalStages != 0 {
		x.log(CompleteTaskTrigger{Task: task, Pipeline: runOn.Pipeline})
		x.PipelineCancelOptionals(g, runOn.Pipeline)
	}
}

// PipelineCancelOptionals cancels every optional stage of a pipeline from
// its current stage onward: their tasks are treated as already done and are
// never enqueued. Idempotent.
func (x *ExecContext) PipelineCancelOptionals(g *Graph, pl PipelineId) {
	execPl := &x.PlData[pl]

	if execPl.CancelOptionals {
		return // already cancelled
	}

	stageCount := g.StageCount(pl)

	for stg := execPl.Stage; int(stg) < stageCount; stg++ {
		if !g.tasks.StageOptional(pl, stg) {
			continue
		}

		anystg := g.AnystgFrom(pl, stg)

		for _, task := range g.RunTasks(anystg) {
			// stages depend on this task (reverse Stage-requires-Task)
			for _, reqTaskAnystg := range g.RevStageReqTasks(task) {
				reqPl := g.PipelineOf(reqTaskAnystg)
				reqStg := g.StageFrom(reqPl, reqTaskAnystg)
				reqExecPl := &x.PlData[reqPl]

				if reqExecPl.Stage == reqStg {
					if reqExecPl.OwnStageReqTasksLeft == 0 {
						panic("tasks: cancel underflowed a stage requirement counter")
					}
					reqExecPl.OwnStageReqTasksLeft--
					x.pipelineTryAdvance(reqPl)
				}
			}

			// this task depends on stages (Task-requires-Stage)
			for _, req := range g.TaskReqStages(task) {
				reqExecPl := &x.PlData[req.Pipeline]

				if reqExecPl.Stage == req.Stage {
					if reqExecPl.TasksReqOwnStageLeft == 0 {
						panic("tasks: cancel underflowed a task requirement counter")
					}
					reqExecPl.TasksReqOwnStageLeft--
					x.pipelineTryAdvance(req.Pipeline)
				}
			}
		}
	}

	execPl.CancelOptionals = true
}

// PipelineCancelLoop clears a looping pipeline's loop flag; the pipeline
// finishes for good the next time it exhausts its stage list.
func (x *ExecContext) PipelineCancelLoop(pl PipelineId) {
	x.PlData[pl].DoLoop = false
}

// AnyRunning reports whether any pipeline is still mid-run.
func (x *ExecContext) AnyRunning() bool {
	for pl := range x.PlData {
		if x.PlData[pl].Running {
			return true
		}
	}
	return false
}
