package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunnerOrdering(t *testing.T) {
	decl := NewTasks()
	plP := decl.AddPipeline(PipelineDecl{StageCount: 2, Parent: PipelineNone})
	plQ := decl.AddPipeline(PipelineDecl{StageCount: 1, Parent: plP})

	taskA := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 0}})
	taskB := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 1}})
	taskC := decl.AddTask(TaskDecl{
		RunOn:          TplPipelineStage{Pipeline: plQ, Stage: 0},
		RequiresStages: []TplPipelineStage{{Pipeline: plP, Stage: 1}},
	})

	g := NewGraph(decl)
	x := &ExecContext{}
	r := NewRunner(g, x, 4, nil)

	var mu sync.Mutex
	var order []TaskId
	record := func(task TaskId) TaskFunc {
		return func(context.Context) (TaskActions, error) {
			mu.Lock()
			order = append(order, task)
			mu.Unlock()
			return 0, nil
		}
	}
	r.Register(taskA, record(taskA))
	r.Register(taskB, record(taskB))
	r.Register(taskC, record(taskC))

	assert.Nil(t, r.Run(context.Background()))

	assert.Len(t, order, 3)
	assert.Equal(t, taskA, order[0], "stage 0 runs before stage 1")
	assert.ElementsMatch(t, []TaskId{taskB, taskC}, order[1:])
	assert.False(t, x.AnyRunning())
	assert.Equal(t, int64(3), r.Executed.Value())
}

func TestRunnerUnregisteredTasksComplete(t *testing.T) {
	decl := NewTasks()
	plP := decl.AddPipeline(PipelineDecl{StageCount: 2, Parent: PipelineNone})
	decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 0}})
	decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 1}})

	g := NewGraph(decl)
	x := &ExecContext{}
	r := NewRunner(g, x, 2, nil)

	assert.Nil(t, r.Run(context.Background()))
	assert.False(t, x.AnyRunning())
	assert.Equal(t, uint64(2), x.CompletedTotal)
}

func TestRunnerTaskError(t *testing.T) {
	decl := NewTasks()
	plP := decl.AddPipeline(PipelineDecl{StageCount: 1, Parent: PipelineNone})
	task := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 0}})

	g := NewGraph(decl)
	x := &ExecContext{}
	r := NewRunner(g, x, 1, nil)

	r.Register(task, func(context.Context) (TaskActions, error) {
		return 0, context.DeadlineExceeded
	})

	assert.NotNil(t, r.Run(context.Background()))
}

func TestRunnerCancelOptionalAction(t *testing.T) {
	decl := NewTasks()
	plP := decl.AddPipeline(PipelineDecl{
		StageCount:     3,
		OptionalStages: []StageId{1},
		Parent:         PipelineNone,
	})
	taskA := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 0}})
	taskB := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 1}})

	g := NewGraph(decl)
	x := &ExecContext{}
	r := NewRunner(g, x, 2, nil)

	ranB := false
	r.Register(taskA, func(context.Context) (TaskActions, error) {
		return TaskActionCancelOptionalStages, nil
	})
	r.Register(taskB, func(context.Context) (TaskActions, error) {
		ranB = true
		return 0, nil
	})

	assert.Nil(t, r.Run(context.Background()))
	assert.False(t, ranB, "optional stage task must be skipped after cancel")
	assert.False(t, x.AnyRunning())
}
