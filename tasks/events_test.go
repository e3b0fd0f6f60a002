package tasks

import (
	"testing"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/stretchr/testify/assert"
)

func TestEventRoundTrip(t *testing.T) {
	events := []Event{
		EnqueueStart{},
		ExternalTrigger{Pipeline: 3},
		EnqueueCycle{},
		StageChange{Pipeline: 1, StageOld: StageNone, StageNew: 0},
		EnqueueTask{Pipeline: 1, Stage: 0, Task: 42, Blocked: true},
		EnqueueTaskReq{Pipeline: 2, Stage: 1},
		UnblockTask{Task: 42},
		CompleteTask{Task: 42},
		CompleteTaskTrigger{Task: 42, Pipeline: 1},
		EnqueueEnd{},
	}

	var buf []byte
	for _, ev := range events {
		buf = ev.Feed(buf)
	}

	for _, want := range events {
		var got Event
		var err error
		got, buf, err = TakeEvent(buf)
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}
	assert.Empty(t, buf)
}

func TestTakeEventBadRecord(t *testing.T) {
	_, _, err := TakeEvent([]byte{0xff, 0x01, 0x02})
	assert.NotNil(t, err)
}

func TestExecLogSequence(t *testing.T) {
	decl := NewTasks()
	plP := decl.AddPipeline(PipelineDecl{StageCount: 1, Parent: PipelineNone})
	task := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 0}})

	g := NewGraph(decl)
	x := &ExecContext{DoLogging: true}
	x.Resize(g)

	x.PipelineRun(plP)
	x.EnqueueDirty(g)
	x.CompleteTask(g, task, 0)
	x.EnqueueDirty(g)

	assert.Equal(t, Event(ExternalTrigger{Pipeline: plP}), x.LogMsg[0])
	assert.Contains(t, x.LogMsg, Event(StageChange{Pipeline: plP, StageOld: StageNone, StageNew: 0}))
	assert.Contains(t, x.LogMsg, Event(EnqueueTask{Pipeline: plP, Stage: 0, Task: task}))
	assert.Contains(t, x.LogMsg, Event(CompleteTask{Task: task}))
	assert.Contains(t, x.LogMsg, Event(StageChange{Pipeline: plP, StageOld: 0, StageNew: StageNone}))
}

type recordingDrainer struct {
	recs toyqueue.Records
}

func (d *recordingDrainer) Drain(recs toyqueue.Records) error {
	d.recs = append(d.recs, recs...)
	return nil
}

func TestExecLogSink(t *testing.T) {
	decl := NewTasks()
	plP := decl.AddPipeline(PipelineDecl{StageCount: 1, Parent: PipelineNone})
	task := decl.AddTask(TaskDecl{RunOn: TplPipelineStage{Pipeline: plP, Stage: 0}})

	g := NewGraph(decl)
	sink := &recordingDrainer{}
	x := &ExecContext{DoLogging: true, Sink: sink}
	x.Resize(g)

	x.PipelineRun(plP)
	x.EnqueueDirty(g)
	x.CompleteTask(g, task, 0)
	x.EnqueueDirty(g)

	// every logged event went out as exactly one record
	assert.Equal(t, len(x.LogMsg), len(sink.recs))

	events := make([]Event, 0, len(sink.recs))
	for _, rec := range sink.recs {
		ev, rest, err := TakeEvent(rec)
		assert.Nil(t, err)
		assert.Empty(t, rest)
		events = append(events, ev)
	}
	assert.Equal(t, x.LogMsg, events)
}
