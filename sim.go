// Package ospmagnum glues the two cores together the way a scene session
// does: a small pipeline forest for one simulation frame, with the terrain
// controller running as a task on it.
package ospmagnum

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ben-Bingham/osp-magnum/planeta"
	"github.com/Ben-Bingham/osp-magnum/tasks"
	"github.com/Ben-Bingham/osp-magnum/utils"
)

// stages of the surfaceFrame pipeline
const (
	surfaceFrameModify tasks.StageId = iota
	surfaceFrameReady
)

// stages of the skeleton pipeline
const (
	skeletonNew tasks.StageId = iota
	skeletonUse
)

type SimOptions struct {
	Radius  float64
	Height  float64
	Scale   int
	Workers int
	Logger  utils.Logger
}

// Sim is one planet scene: the frame pipeline graph, its executor, and the
// terrain state the tasks operate on.
type Sim struct {
	opts SimOptions
	log  utils.Logger

	graph  *tasks.Graph
	exec   *tasks.ExecContext
	runner *tasks.Runner

	terrain      planeta.Terrain
	terrainIco   planeta.TerrainIco
	surfaceFrame planeta.SurfaceFrame

	plUpdate       tasks.PipelineId
	plSurfaceFrame tasks.PipelineId
	plSkeleton     tasks.PipelineId
	plSubdivLoop   tasks.PipelineId
}

func NewSim(opts SimOptions) *Sim {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = utils.NopLogger{}
	}

	s := &Sim{opts: opts, log: log}

	decl := tasks.NewTasks()

	s.plUpdate = decl.AddPipeline(tasks.PipelineDecl{
		StageCount: 1, Parent: tasks.PipelineNone,
	})
	s.plSurfaceFrame = decl.AddPipeline(tasks.PipelineDecl{
		StageCount: 2, Parent: s.plUpdate,
	})
	s.plSkeleton = decl.AddPipeline(tasks.PipelineDecl{
		StageCount: 2, Parent: s.plUpdate,
	})
	s.plSubdivLoop = decl.AddPipeline(tasks.PipelineDecl{
		StageCount: 1, Parent: s.plUpdate,
	})

	initTerrain := decl.AddTask(tasks.TaskDecl{
		RunOn: tasks.TplPipelineStage{Pipeline: s.plUpdate, Stage: 0},
		RequiresStages: []tasks.TplPipelineStage{
			{Pipeline: s.plSurfaceFrame, Stage: surfaceFrameModify},
		},
		RequiredBy: []tasks.TplPipelineStage{
			{Pipeline: s.plSurfaceFrame, Stage: surfaceFrameModify},
		},
	})
	subdivSkeleton := decl.AddTask(tasks.TaskDecl{
		RunOn: tasks.TplPipelineStage{Pipeline: s.plSubdivLoop, Stage: 0},
		RequiresStages: []tasks.TplPipelineStage{
			{Pipeline: s.plSurfaceFrame, Stage: surfaceFrameReady},
			{Pipeline: s.plSkeleton, Stage: skeletonNew},
		},
		RequiredBy: []tasks.TplPipelineStage{
			{Pipeline: s.plSkeleton, Stage: skeletonNew},
		},
	})

	s.graph = tasks.NewGraph(decl)
	s.exec = &tasks.ExecContext{DoLogging: true}
	s.runner = tasks.NewRunner(s.graph, s.exec, opts.Workers, log)

	s.runner.Register(initTerrain, func(context.Context) (tasks.TaskActions, error) {
		if !s.surfaceFrame.Active {
			s.surfaceFrame.Active = true
			planeta.InitIcoTerrain(&s.terrain, &s.terrainIco, s.opts.Radius, s.opts.Height, s.opts.Scale)
			s.log.Info("terrain initialized",
				"radius", s.opts.Radius, "scale", s.opts.Scale)
		}
		return 0, nil
	})
	s.runner.Register(subdivSkeleton, func(context.Context) (tasks.TaskActions, error) {
		if !s.surfaceFrame.Active {
			return 0, nil
		}
		planeta.Update(&s.terrain, &s.terrainIco, &s.surfaceFrame, s.log)
		return 0, nil
	})

	return s
}

// Step runs one frame: the observer moves to pos (world units) and the
// pipeline graph runs to quiescence, updating the terrain on the way.
func (s *Sim) Step(ctx context.Context, pos planeta.Vector3) error {
	s.surfaceFrame.Position = planeta.Vector3lFrom(pos.Mul(float64(planeta.Pow2(s.opts.Scale))))
	return s.runner.Run(ctx)
}

func (s *Sim) Terrain() *planeta.Terrain { return &s.terrain }

func (s *Sim) TerrainIco() *planeta.TerrainIco { return &s.terrainIco }

func (s *Sim) Exec() *tasks.ExecContext { return s.exec }

// Collectors returns prometheus collectors over the executor and terrain.
func (s *Sim) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		tasks.NewCollector(s.exec),
		planeta.NewCollector(&s.terrain),
	}
}
