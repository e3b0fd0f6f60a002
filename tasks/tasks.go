package tasks

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// PipelineDecl declares one pipeline: an ordered finite state machine of
// StageCount stages. Pipelines form a forest through Parent; running a
// pipeline runs all of its descendants too.
type PipelineDecl struct {
	StageCount     int
	Loops          bool
	OptionalStages []StageId
	Parent         PipelineId // PipelineNone for a root
}

// TaskDecl declares one task and its ordering edges.
//
// RequiresStages are Task-requires-Stage edges: the task may only execute
// while each referenced pipeline sits at the referenced stage.
//
// RequiredBy are Stage-requires-Task edges: each referenced stage cannot be
// advanced past until this task has completed.
type TaskDecl struct {
	RunOn          TplPipelineStage
	RequiresStages []TplPipelineStage
	RequiredBy     []TplPipelineStage
}

type pipelineControl struct {
	stageCount     int
	loops          bool
	optionalStages *bitset.BitSet
	parent         PipelineId
}

// Tasks is the mutable declaration registry. Declare pipelines and tasks,
// then freeze them into a Graph with NewGraph. Ids are dense and handed out
// in declaration order.
type Tasks struct {
	pipelines []pipelineControl

	taskRunOn      []TplPipelineStage
	taskReqStages  [][]TplPipelineStage
	taskRequiredBy [][]TplPipelineStage
}

func NewTasks() *Tasks {
	return &Tasks{}
}

func (t *Tasks) AddPipeline(decl PipelineDecl) PipelineId {
	if decl.StageCount <= 0 {
		panic("tasks: pipeline needs at least one stage")
	}
	optional := bitset.New(uint(decl.StageCount))
	for _, stg := range decl.OptionalStages {
		if int(stg) < 0 || int(stg) >= decl.StageCount {
			panic(fmt.Sprintf("tasks: optional stage %d out of range", stg))
		}
		optional.Set(uint(stg))
	}
	t.pipelines = append(t.pipelines, pipelineControl{
		stageCount:     decl.StageCount,
		loops:          decl.Loops,
		optionalStages: optional,
		parent:         decl.Parent,
	})
	return PipelineId(len(t.pipelines) - 1)
}

func (t *Tasks) AddTask(decl TaskDecl) TaskId {
	t.checkStage(decl.RunOn)
	for _, tpl := range decl.RequiresStages {
		t.checkStage(tpl)
	}
	for _, tpl := range decl.RequiredBy {
		t.checkStage(tpl)
	}
	t.taskRunOn = append(t.taskRunOn, decl.RunOn)
	t.taskReqStages = append(t.taskReqStages, decl.RequiresStages)
	t.taskRequiredBy = append(t.taskRequiredBy, decl.RequiredBy)
	return TaskId(len(t.taskRunOn) - 1)
}

func (t *Tasks) checkStage(tpl TplPipelineStage) {
	if int(tpl.Pipeline) >= len(t.pipelines) {
		panic(fmt.Sprintf("tasks: unknown pipeline %d", tpl.Pipeline))
	}
	if tpl.Stage < 0 || int(tpl.Stage) >= t.pipelines[tpl.Pipeline].stageCount {
		panic(fmt.Sprintf("tasks: pipeline %d has no stage %d", tpl.Pipeline, tpl.Stage))
	}
}

func (t *Tasks) PipelineCapacity() int { return len(t.pipelines) }

func (t *Tasks) TaskCapacity() int { return len(t.taskRunOn) }

// RunOn reports the (pipeline, stage) a task executes on.
func (t *Tasks) RunOn(task TaskId) TplPipelineStage { return t.taskRunOn[task] }

func (t *Tasks) StageCount(pl PipelineId) int { return t.pipelines[pl].stageCount }

func (t *Tasks) Loops(pl PipelineId) bool { return t.pipelines[pl].loops }

func (t *Tasks) Parent(pl PipelineId) PipelineId { return t.pipelines[pl].parent }

// StageOptional reports whether a stage may be skipped when its pipeline's
// optional stages are cancelled.
func (t *Tasks) StageOptional(pl PipelineId, stg StageId) bool {
	return t.pipelines[pl].optionalStages.Test(uint(stg))
}
