package tasks

import "fmt"

// StageRequiresTask is one Stage-requires-Task edge as stored in the graph:
// the owning any-stage cannot be advanced past until ReqTask completes.
// ReqPipeline/ReqStage cache the required task's runOn tuple.
type StageRequiresTask struct {
	ReqTask     TaskId
	ReqPipeline PipelineId
	ReqStage    StageId
}

// Graph is the frozen task graph: every fan-out the executor iterates,
// precomputed as (offsets, payload) pairs in both directions. Built once by
// NewGraph; never mutated afterwards.
type Graph struct {
	tasks *Tasks

	// stage addressing
	pipelineToFirstAnystg []AnyStageId // len = pipelines+1
	anystgToPipeline      []PipelineId // len = total stages

	// anystg -> tasks that execute on it
	anystgToFirstRuntask []int32
	runtaskToTask        []TaskId

	// anystg -> tasks it must wait for, and the reverse
	anystgToFirstStgreqtask []int32
	stgreqtaskData          []StageRequiresTask
	taskToFirstRevStgreqtask []int32
	revStgreqtaskToStage     []AnyStageId

	// task -> stages it requires, and the reverse
	taskToFirstTaskreqstg      []int32
	taskreqstgData             []TplPipelineStage
	anystgToFirstRevTaskreqstg []int32
	revTaskreqstgToTask        []TaskId

	// pipeline forest
	pipelineToFirstChild []int32
	childPipelines       []PipelineId
}

// NewGraph freezes the declarations into fan-out tables. Bad declarations
// (unknown parents, parent cycles, looping pipelines without tasks) panic
// here rather than surfacing as scheduler misbehavior later; dangling edge
// endpoints were already rejected by AddTask.
func NewGraph(t *Tasks) *Graph {
	g := &Graph{tasks: t}

	nPl := t.PipelineCapacity()
	nTask := t.TaskCapacity()

	// flatten (pipeline, stage) into the any-stage space
	g.pipelineToFirstAnystg = make([]AnyStageId, nPl+1)
	total := AnyStageId(0)
	for pl := 0; pl < nPl; pl++ {
		g.pipelineToFirstAnystg[pl] = total
		total += AnyStageId(t.pipelines[pl].stageCount)
	}
	g.pipelineToFirstAnystg[nPl] = total

	g.anystgToPipeline = make([]PipelineId, total)
	for pl := 0; pl < nPl; pl++ {
		for a := g.pipelineToFirstAnystg[pl]; a < g.pipelineToFirstAnystg[pl+1]; a++ {
			g.anystgToPipeline[a] = PipelineId(pl)
		}
	}

	// anystg -> run tasks
	g.anystgToFirstRuntask, g.runtaskToTask = buildFanout(int(total), nTask,
		func(task int, emit func(int, TaskId)) {
			runOn := t.taskRunOn[task]
			emit(int(g.AnystgFrom(runOn.Pipeline, runOn.Stage)), TaskId(task))
		})

	// anystg -> stage-requires-task, forward and reverse
	g.anystgToFirstStgreqtask, g.stgreqtaskData = buildFanout(int(total), nTask,
		func(task int, emit func(int, StageRequiresTask)) {
			runOn := t.taskRunOn[task]
			for _, tpl := range t.taskRequiredBy[task] {
				emit(int(g.AnystgFrom(tpl.Pipeline, tpl.Stage)), StageRequiresTask{
					ReqTask:     TaskId(task),
					ReqPipeline: runOn.Pipeline,
					ReqStage:    runOn.Stage,
				})
			}
		})
	g.taskToFirstRevStgreqtask, g.revStgreqtaskToStage = buildFanout(nTask, nTask,
		func(task int, emit func(int, AnyStageId)) {
			for _, tpl := range t.taskRequiredBy[task] {
				emit(task, g.AnystgFrom(tpl.Pipeline, tpl.Stage))
			}
		})

	// task -> task-requires-stage, forward and reverse
	g.taskToFirstTaskreqstg, g.taskreqstgData = buildFanout(nTask, nTask,
		func(task int, emit func(int, TplPipelineStage)) {
			for _, tpl := range t.taskReqStages[task] {
				emit(task, tpl)
			}
		})
	g.anystgToFirstRevTaskreqstg, g.revTaskreqstgToTask = buildFanout(int(total), nTask,
		func(task int, emit func(int, TaskId)) {
			for _, tpl := range t.taskReqStages[task] {
				emit(int(g.AnystgFrom(tpl.Pipeline, tpl.Stage)), TaskId(task))
			}
		})

	// A looping pipeline with no tasks at all would re-dirty itself forever;
	// refuse it up front.
	for pl := 0; pl < nPl; pl++ {
		if !t.pipelines[pl].loops {
			continue
		}
		hasTask := false
		for a := g.pipelineToFirstAnystg[pl]; a < g.pipelineToFirstAnystg[pl+1]; a++ {
			if len(g.RunTasks(a)) != 0 {
				hasTask = true
				break
			}
		}
		if !hasTask {
			panic(fmt.Sprintf("tasks: looping pipeline %d has no tasks", pl))
		}
	}

	// pipeline forest
	for pl := 0; pl < nPl; pl++ {
		checkParentChain(t, PipelineId(pl))
	}
	g.pipelineToFirstChild, g.childPipelines = buildFanout(nPl, nPl,
		func(pl int, emit func(int, PipelineId)) {
			parent := t.pipelines[pl].parent
			if parent != PipelineNone {
				emit(int(parent), PipelineId(pl))
			}
		})

	return g
}

// buildFanout runs the emitter twice: once to count entries per bucket, once
// to fill them, producing the usual CSR (offsets, payload) pair.
func buildFanout[P any](buckets, items int, each func(item int, emit func(int, P))) ([]int32, []P) {
	first := make([]int32, buckets+1)
	for item := 0; item < items; item++ {
		each(item, func(bucket int, _ P) { first[bucket+1]++ })
	}
	for i := 1; i <= buckets; i++ {
		first[i] += first[i-1]
	}
	payload := make([]P, first[buckets])
	fill := make([]int32, buckets)
	for item := 0; item < items; item++ {
		each(item, func(bucket int, p P) {
			payload[first[bucket]+fill[bucket]] = p
			fill[bucket]++
		})
	}
	return first, payload
}

func checkParentChain(t *Tasks, pl PipelineId) {
	seen := 0
	for p := t.pipelines[pl].parent; p != PipelineNone; p = t.pipelines[p].parent {
		if int(p) >= len(t.pipelines) {
			panic(fmt.Sprintf("tasks: pipeline %d has unknown parent %d", pl, p))
		}
		if seen++; seen > len(t.pipelines) {
			panic(fmt.Sprintf("tasks: pipeline %d has a parent cycle", pl))
		}
	}
}

func (g *Graph) Tasks() *Tasks { return g.tasks }

// AnystgFrom flattens (pipeline, stage) into the any-stage space.
func (g *Graph) AnystgFrom(pl PipelineId, stg StageId) AnyStageId {
	return g.pipelineToFirstAnystg[pl] + AnyStageId(stg)
}

// StageFrom recovers the stage index of an any-stage within its pipeline.
func (g *Graph) StageFrom(pl PipelineId, anystg AnyStageId) StageId {
	return StageId(anystg - g.pipelineToFirstAnystg[pl])
}

func (g *Graph) PipelineOf(anystg AnyStageId) PipelineId {
	return g.anystgToPipeline[anystg]
}

func (g *Graph) StageCount(pl PipelineId) int {
	return int(g.pipelineToFirstAnystg[pl+1] - g.pipelineToFirstAnystg[pl])
}

func (g *Graph) AnystgCapacity() int { return len(g.anystgToPipeline) }

// RunTasks lists the tasks that execute on an any-stage.
func (g *Graph) RunTasks(anystg AnyStageId) []TaskId {
	return g.runtaskToTask[g.anystgToFirstRuntask[anystg]:g.anystgToFirstRuntask[anystg+1]]
}

// StageReqTasks lists the tasks an any-stage must wait for before advancing.
func (g *Graph) StageReqTasks(anystg AnyStageId) []StageRequiresTask {
	return g.stgreqtaskData[g.anystgToFirstStgreqtask[anystg]:g.anystgToFirstStgreqtask[anystg+1]]
}

// RevStageReqTasks lists the any-stages that wait on a task.
func (g *Graph) RevStageReqTasks(task TaskId) []AnyStageId {
	return g.revStgreqtaskToStage[g.taskToFirstRevStgreqtask[task]:g.taskToFirstRevStgreqtask[task+1]]
}

// TaskReqStages lists the (pipeline, stage) tuples a task requires.
func (g *Graph) TaskReqStages(task TaskId) []TplPipelineStage {
	return g.taskreqstgData[g.taskToFirstTaskreqstg[task]:g.taskToFirstTaskreqstg[task+1]]
}

// RevTaskReqStages lists the tasks that require an any-stage.
func (g *Graph) RevTaskReqStages(anystg AnyStageId) []TaskId {
	return g.revTaskreqstgToTask[g.anystgToFirstRevTaskreqstg[anystg]:g.anystgToFirstRevTaskreqstg[anystg+1]]
}

// Children lists a pipeline's direct child pipelines.
func (g *Graph) Children(pl PipelineId) []PipelineId {
	return g.childPipelines[g.pipelineToFirstChild[pl]:g.pipelineToFirstChild[pl+1]]
}
