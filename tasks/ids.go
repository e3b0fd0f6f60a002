package tasks

// Dense integer handles for everything in the task graph. Handles index
// arena arrays directly; the "none" values are all-ones, so zero stays a
// valid handle and a zeroed struct refers to id 0.

type TaskId uint32

type PipelineId uint32

// StageId is an index into a pipeline's ordered stage list. StageNone marks
// a pipeline that is not running.
type StageId int16

// AnyStageId is a flattened (pipeline, stage) index used to key fan-out
// tables across all pipelines.
type AnyStageId uint32

const (
	TaskNone     = ^TaskId(0)
	PipelineNone = ^PipelineId(0)
	StageNone    = StageId(-1)
	AnyStageNone = ^AnyStageId(0)
)

// TplPipelineStage addresses one stage of one pipeline.
type TplPipelineStage struct {
	Pipeline PipelineId
	Stage    StageId
}

// TaskActions is the bitflag set a completing task hands back to the
// executor.
type TaskActions uint8

const (
	// TaskActionCancelOptionalStages cancels all optional stages of the
	// completing task's own pipeline, from its current stage onward.
	TaskActionCancelOptionalStages TaskActions = 1 << iota
)
