package tasks

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
)

// Event is one entry of the executor's tagged log. Consumers type-switch
// over the concrete kinds; Feed appends the event as one TLV record for
// consumers behind a queue.
//
// FORMAT: each event is a single record; fixed-width little-endian fields.
//
//	S           enqueue start
//	C           enqueue cycle
//	E           enqueue end
//	G p4 o2 n2  stage change (old, new; -1 is the idle stage)
//	Q p4 s2 t4 b1  task enqueued (blocked flag)
//	R p4 s2     enqueued task waits for this stage
//	U t4        task unblocked
//	D t4        task completed
//	T t4 p4     task completion cancelled optional stages
//	X p4        external run request
type Event interface {
	Feed(into []byte) []byte
}

type EnqueueStart struct{}

type EnqueueCycle struct{}

type EnqueueEnd struct{}

type StageChange struct {
	Pipeline PipelineId
	StageOld StageId
	StageNew StageId
}

type EnqueueTask struct {
	Pipeline PipelineId
	Stage    StageId
	Task     TaskId
	Blocked  bool
}

type EnqueueTaskReq struct {
	Pipeline PipelineId
	Stage    StageId
}

type UnblockTask struct {
	Task TaskId
}

type CompleteTask struct {
	Task TaskId
}

type CompleteTaskTrigger struct {
	Task     TaskId
	Pipeline PipelineId
}

type ExternalTrigger struct {
	Pipeline PipelineId
}

func appendU32(into []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(into, v)
}

func appendStage(into []byte, s StageId) []byte {
	return binary.LittleEndian.AppendUint16(into, uint16(s))
}

func (EnqueueStart) Feed(into []byte) []byte { return toytlv.Append(into, 'S') }

func (EnqueueCycle) Feed(into []byte) []byte { return toytlv.Append(into, 'C') }

func (EnqueueEnd) Feed(into []byte) []byte { return toytlv.Append(into, 'E') }

func (e StageChange) Feed(into []byte) []byte {
	body := appendU32(nil, uint32(e.Pipeline))
	body = appendStage(body, e.StageOld)
	body = appendStage(body, e.StageNew)
	return toytlv.Append(into, 'G', body)
}

func (e EnqueueTask) Feed(into []byte) []byte {
	body := appendU32(nil, uint32(e.Pipeline))
	body = appendStage(body, e.Stage)
	body = appendU32(body, uint32(e.Task))
	if e.Blocked {
		body = append(body, 1)
	} else {
		body = append(body, 0)
	}
	return toytlv.Append(into, 'Q', body)
}

func (e EnqueueTaskReq) Feed(into []byte) []byte {
	body := appendU32(nil, uint32(e.Pipeline))
	body = appendStage(body, e.Stage)
	return toytlv.Append(into, 'R', body)
}

func (e UnblockTask) Feed(into []byte) []byte {
	return toytlv.Append(into, 'U', appendU32(nil, uint32(e.Task)))
}

func (e CompleteTask) Feed(into []byte) []byte {
	return toytlv.Append(into, 'D', appendU32(nil, uint32(e.Task)))
}

func (e CompleteTaskTrigger) Feed(into []byte) []byte {
	body := appendU32(nil, uint32(e.Task))
	body = appendU32(body, uint32(e.Pipeline))
	return toytlv.Append(into, 'T', body)
}

func (e ExternalTrigger) Feed(into []byte) []byte {
	return toytlv.Append(into, 'X', appendU32(nil, uint32(e.Pipeline)))
}

var ErrBadEvent = errors.New("tasks: malformed event record")

func takeU32(body []byte) (uint32, []byte, error) {
	if len(body) < 4 {
		return 0, nil, ErrBadEvent
	}
	return binary.LittleEndian.Uint32(body), body[4:], nil
}

func takeStage(body []byte) (StageId, []byte, error) {
	if len(body) < 2 {
		return StageNone, nil, ErrBadEvent
	}
	return StageId(binary.LittleEndian.Uint16(body)), body[2:], nil
}

// TakeEvent parses one event record off the front of data.
func TakeEvent(data []byte) (ev Event, rest []byte, err error) {
	lit, body, rest, err := toytlv.TakeAnyWary(data)
	if err != nil {
		return nil, data, err
	}
	switch lit {
	case 'S':
		return EnqueueStart{}, rest, nil
	case 'C':
		return EnqueueCycle{}, rest, nil
	case 'E':
		return EnqueueEnd{}, rest, nil
	case 'G':
		var e StageChange
		var pl uint32
		if pl, body, err = takeU32(body); err != nil {
			return nil, data, err
		}
		e.Pipeline = PipelineId(pl)
		if e.StageOld, body, err = takeStage(body); err != nil {
			return nil, data, err
		}
		if e.StageNew, _, err = takeStage(body); err != nil {
			return nil, data, err
		}
		return e, rest, nil
	case 'Q':
		var e EnqueueTask
		var pl, task uint32
		if pl, body, err = takeU32(body); err != nil {
			return nil, data, err
		}
		e.Pipeline = PipelineId(pl)
		if e.Stage, body, err = takeStage(body); err != nil {
			return nil, data, err
		}
		if task, body, err = takeU32(body); err != nil {
			return nil, data, err
		}
		e.Task = TaskId(task)
		if len(body) < 1 {
			return nil, data, ErrBadEvent
		}
		e.Blocked = body[0] != 0
		return e, rest, nil
	case 'R':
		var e EnqueueTaskReq
		var pl uint32
		if pl, body, err = takeU32(body); err != nil {
			return nil, data, err
		}
		e.Pipeline = PipelineId(pl)
		if e.Stage, _, err = takeStage(body); err != nil {
			return nil, data, err
		}
		return e, rest, nil
	case 'U':
		task, _, err := takeU32(body)
		if err != nil {
			return nil, data, err
		}
		return UnblockTask{Task: TaskId(task)}, rest, nil
	case 'D':
		task, _, err := takeU32(body)
		if err != nil {
			return nil, data, err
		}
		return CompleteTask{Task: TaskId(task)}, rest, nil
	case 'T':
		var e CompleteTaskTrigger
		var task, pl uint32
		if task, body, err = takeU32(body); err != nil {
			return nil, data, err
		}
		e.Task = TaskId(task)
		if pl, _, err = takeU32(body); err != nil {
			return nil, data, err
		}
		e.Pipeline = PipelineId(pl)
		return e, rest, nil
	case 'X':
		pl, _, err := takeU32(body)
		if err != nil {
			return nil, data, err
		}
		return ExternalTrigger{Pipeline: PipelineId(pl)}, rest, nil
	default:
		return nil, data, fmt.Errorf("%w: lit %q", ErrBadEvent, lit)
	}
}

// FeedRecords encodes events one record each.
func FeedRecords(events []Event) toyqueue.Records {
	recs := make(toyqueue.Records, 0, len(events))
	for _, ev := range events {
		recs = append(recs, ev.Feed(nil))
	}
	return recs
}

// flushLog hands the unflushed log tail to the sink, if any.
func (x *ExecContext) flushLog() {
	if x.Sink == nil || x.logFlushed >= len(x.LogMsg) {
		return
	}
	recs := FeedRecords(x.LogMsg[x.logFlushed:])
	x.logFlushed = len(x.LogMsg)
	if err := x.Sink.Drain(recs); err != nil {
		// the log is advisory; a dead sink must not wedge the scheduler
		x.Sink = nil
	}
}
