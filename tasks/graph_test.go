package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildTestGraph(t *testing.T) (*Tasks, *Graph, []TaskId) {
	t.Helper()
	decl := NewTasks()
	plA := decl.AddPipeline(PipelineDecl{StageCount: 3, Parent: PipelineNone})
	plB := decl.AddPipeline(PipelineDecl{StageCount: 2, Parent: plA})

	t0 := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plA, Stage: 0}})
	t1 := decl.AddTask(TaskDecl{
		RunOn:          TplPipelineStage{Pipeline: plB, Stage: 0},
		RequiresStages: []TplPipelineStage{{Pipeline: plA, Stage: 1}},
		RequiredBy:     []TplPipelineStage{{Pipeline: plA, Stage: 2}},
	})
	t2 := decl.AddTask(TaskDecl{
		RunOn:          TplPipelineStage{Pipeline: plB, Stage: 1},
		RequiresStages: []TplPipelineStage{{Pipeline: plA, Stage: 1}},
	})

	return decl, NewGraph(decl), []TaskId{t0, t1, t2}
}

func TestGraphStageAddressing(t *testing.T) {
	decl, g, _ := buildTestGraph(t)

	assert.Equal(t, 5, g.AnystgCapacity())
	assert.Equal(t, 3, g.StageCount(0))
	assert.Equal(t, 2, g.StageCount(1))

	for pl := PipelineId(0); int(pl) < decl.PipelineCapacity(); pl++ {
		for stg := StageId(0); int(stg) < decl.StageCount(pl); stg++ {
			anystg := g.AnystgFrom(pl, stg)
			assert.Equal(t, pl, g.PipelineOf(anystg))
			assert.Equal(t, stg, g.StageFrom(pl, anystg))
		}
	}
}

func TestGraphRunTasks(t *testing.T) {
	_, g, ids := buildTestGraph(t)

	assert.Equal(t, []TaskId{ids[0]}, g.RunTasks(g.AnystgFrom(0, 0)))
	assert.Empty(t, g.RunTasks(g.AnystgFrom(0, 1)))
	assert.Equal(t, []TaskId{ids[1]}, g.RunTasks(g.AnystgFrom(1, 0)))
	assert.Equal(t, []TaskId{ids[2]}, g.RunTasks(g.AnystgFrom(1, 1)))
}

// TestGraphReverseTables checks that every forward edge appears in the
// matching reverse table and vice versa.
func TestGraphReverseTables(t *testing.T) {
	decl, g, _ := buildTestGraph(t)

	for task := TaskId(0); int(task) < decl.TaskCapacity(); task++ {
		for _, tpl := range g.TaskReqStages(task) {
			assert.Contains(t, g.RevTaskReqStages(g.AnystgFrom(tpl.Pipeline, tpl.Stage)), task)
		}
		for _, anystg := range g.RevStageReqTasks(task) {
			found := false
			for _, req := range g.StageReqTasks(anystg) {
				if req.ReqTask == task {
					found = true
					assert.Equal(t, decl.RunOn(task).Pipeline, req.ReqPipeline)
					assert.Equal(t, decl.RunOn(task).Stage, req.ReqStage)
				}
			}
			assert.True(t, found, "task %d missing from stgreqtask table", task)
		}
	}

	for anystg := AnyStageId(0); int(anystg) < g.AnystgCapacity(); anystg++ {
		for _, task := range g.RevTaskReqStages(anystg) {
			pl := g.PipelineOf(anystg)
			assert.Contains(t, g.TaskReqStages(task),
				TplPipelineStage{Pipeline: pl, Stage: g.StageFrom(pl, anystg)})
		}
		for _, req := range g.StageReqTasks(anystg) {
			assert.Contains(t, g.RevStageReqTasks(req.ReqTask), anystg)
		}
	}
}

func TestGraphChildren(t *testing.T) {
	_, g, _ := buildTestGraph(t)

	assert.Equal(t, []PipelineId{1}, g.Children(0))
	assert.Empty(t, g.Children(1))
}

func TestGraphRejectsBadDecls(t *testing.T) {
	assert.Panics(t, func() {
		decl := NewTasks()
		decl.AddPipeline(PipelineDecl{StageCount: 0, Parent: PipelineNone})
	})

	assert.Panics(t, func() {
		decl := NewTasks()
		decl.AddPipeline(PipelineDecl{StageCount: 1, Parent: PipelineNone})
		decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: 7, Stage: 0}})
	})

	assert.Panics(t, func() {
		decl := NewTasks()
		pl := decl.AddPipeline(PipelineDecl{StageCount: 2, Parent: PipelineNone})
		decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: pl, Stage: 5}})
	})

	// a looping pipeline with no tasks would spin forever
	assert.Panics(t, func() {
		decl := NewTasks()
		decl.AddPipeline(PipelineDecl{StageCount: 2, Loops: true, Parent: PipelineNone})
		NewGraph(decl)
	})
}
