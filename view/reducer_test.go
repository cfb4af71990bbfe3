package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweinmeister/agent-design-patterns/stream"
	"github.com/kweinmeister/agent-design-patterns/testutil/fixtures"
	"github.com/kweinmeister/agent-design-patterns/types"
)

func decodeAll(t *testing.T, payloads ...string) []stream.Event {
	t.Helper()
	events := make([]stream.Event, 0, len(payloads))
	for _, p := range payloads {
		e, err := stream.DecodeEvent([]byte(p))
		require.NoError(t, err, p)
		events = append(events, e)
	}
	return events
}

func TestReduce_OrchestratorHelloScenario(t *testing.T) {
	s := ReduceAll(Orchestrator, Begin(Orchestrator), decodeAll(t, fixtures.OrchestratorHello()...)...)

	entry, ok := s.Entry("0")
	require.True(t, ok)
	assert.Equal(t, Done, entry.Lifecycle)
	assert.Equal(t, "Hello", entry.Content)
	assert.Equal(t, "research", entry.Label)
	assert.False(t, s.Submitting)
	assert.True(t, s.Completed)
	assert.Len(t, s.Order, 1)
}

func TestReduce_OrchestratorFull(t *testing.T) {
	s := ReduceAll(Orchestrator, Begin(Orchestrator), decodeAll(t, fixtures.OrchestratorFull()...)...)

	require.Equal(t, []string{"0", "1", SynthesisKey}, s.Order)
	assert.Equal(t, "Facts found.", s.Entries["0"].Content)
	assert.Equal(t, "Gather facts", s.Entries["0"].Detail)
	assert.Equal(t, "Draft ready.", s.Entries["1"].Content)
	assert.Equal(t, "# Summary\nAll done.", s.Entries[SynthesisKey].Content)
	assert.Equal(t, "Synthesis", s.Entries[SynthesisKey].Label)
	assert.Equal(t, "Synthesis: Finalizing Output", s.Status)
	assert.Equal(t, Done, s.Entries["0"].Lifecycle)
	assert.Equal(t, Done, s.Entries["1"].Lifecycle)
	assert.Equal(t, Done, s.Entries[SynthesisKey].Lifecycle)
	assert.True(t, s.Completed)
}

func TestReduce_OrchestratorSettlesOnlyActiveEntries(t *testing.T) {
	s := ReduceAll(Orchestrator, Begin(Orchestrator), decodeAll(t,
		fixtures.PlanOf("research", "writer"),
		fixtures.WorkerStart(0),
		fixtures.SynthesisStep("partial"),
		fixtures.Complete(),
	)...)

	assert.Equal(t, Done, s.Entries["0"].Lifecycle)
	assert.Equal(t, Pending, s.Entries["1"].Lifecycle)
	assert.Equal(t, Done, s.Entries[SynthesisKey].Lifecycle)
	assert.Equal(t, "partial", s.Entries[SynthesisKey].Content)
}

func TestReduce_Transitions(t *testing.T) {
	planned := Reduce(Orchestrator, Begin(Orchestrator), stream.Event{
		Type: stream.EventPlan,
		Plan: &stream.Plan{Tasks: []stream.Task{{WorkerType: "a"}, {WorkerType: "b"}}},
	})

	tests := []struct {
		name  string
		event stream.Event
		check func(t *testing.T, before, after State)
	}{
		{
			name:  "start moves pending to active",
			event: stream.Event{Type: stream.EventWorkerStart, TaskID: stream.IntPtr(1)},
			check: func(t *testing.T, _, after State) {
				assert.Equal(t, Active, after.Entries["1"].Lifecycle)
				assert.Equal(t, Pending, after.Entries["0"].Lifecycle)
			},
		},
		{
			name:  "finish without start collapses to done",
			event: stream.Event{Type: stream.EventWorkerComplete, TaskID: stream.IntPtr(0)},
			check: func(t *testing.T, _, after State) {
				assert.Equal(t, Done, after.Entries["0"].Lifecycle)
			},
		},
		{
			name:  "append to pending activates",
			event: stream.Event{Type: stream.EventWorkerStep, TaskID: stream.IntPtr(0), Content: "x"},
			check: func(t *testing.T, _, after State) {
				assert.Equal(t, Active, after.Entries["0"].Lifecycle)
				assert.Equal(t, "x", after.Entries["0"].Content)
			},
		},
		{
			name:  "unknown finish creates nothing",
			event: stream.Event{Type: stream.EventWorkerComplete, TaskID: stream.IntPtr(9)},
			check: func(t *testing.T, before, after State) {
				assert.Equal(t, before, after)
			},
		},
		{
			name:  "unknown start creates nothing",
			event: stream.Event{Type: stream.EventWorkerStart, TaskID: stream.IntPtr(9)},
			check: func(t *testing.T, before, after State) {
				assert.Equal(t, before, after)
			},
		},
		{
			name:  "unknown append dropped without auto create",
			event: stream.Event{Type: stream.EventStep, Agent: "stranger", Content: "x"},
			check: func(t *testing.T, before, after State) {
				assert.Equal(t, before, after)
			},
		},
		{
			name:  "unknown event type is a no-op",
			event: stream.Event{Type: "heartbeat"},
			check: func(t *testing.T, before, after State) {
				assert.Equal(t, before, after)
			},
		},
		{
			name:  "status sets narration",
			event: stream.Event{Type: stream.EventStatus, Message: "Working"},
			check: func(t *testing.T, _, after State) {
				assert.Equal(t, "Working", after.Status)
			},
		},
		{
			name:  "server error recorded without clearing submission",
			event: stream.Event{Type: stream.EventError, Message: "model failed"},
			check: func(t *testing.T, _, after State) {
				require.Error(t, after.Err)
				assert.True(t, types.IsErrorCode(after.Err, types.ErrUpstreamError))
				assert.True(t, after.Submitting)
			},
		},
		{
			name:  "second plan replaces entries wholesale",
			event: stream.Event{Type: stream.EventPlan, Plan: &stream.Plan{Tasks: []stream.Task{{Title: "only"}}}},
			check: func(t *testing.T, _, after State) {
				assert.Equal(t, []string{"0"}, after.Order)
				assert.Equal(t, "only", after.Entries["0"].Label)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := planned.clone()
			after := Reduce(Orchestrator, planned, tt.event)
			// 入参不被修改
			assert.Equal(t, before, planned)
			tt.check(t, planned, after)
		})
	}
}

func TestReduce_DoneNeverRegresses(t *testing.T) {
	s := ReduceAll(Orchestrator, Begin(Orchestrator),
		stream.Event{Type: stream.EventPlan, Plan: &stream.Plan{Tasks: []stream.Task{{WorkerType: "a"}}}},
		stream.Event{Type: stream.EventWorkerComplete, TaskID: stream.IntPtr(0)},
		stream.Event{Type: stream.EventWorkerStart, TaskID: stream.IntPtr(0)},
		stream.Event{Type: stream.EventWorkerStep, TaskID: stream.IntPtr(0), Content: "late"},
	)
	assert.Equal(t, Done, s.Entries["0"].Lifecycle)
	assert.Equal(t, "late", s.Entries["0"].Content)
}

func TestReduce_TerminalIdempotent(t *testing.T) {
	s := ReduceAll(Orchestrator, Begin(Orchestrator), decodeAll(t, fixtures.OrchestratorHello()...)...)
	again := Reduce(Orchestrator, s, stream.Event{Type: stream.EventComplete})
	assert.Equal(t, s, again)
}

func TestReduce_CompleteRecordsFinalText(t *testing.T) {
	s := Reduce(Voting, Begin(Voting), stream.Event{Type: stream.EventComplete, Final: "Professional wins"})
	assert.Equal(t, "Professional wins", s.Final)
	assert.True(t, s.Completed)
}

func TestReduce_Voting(t *testing.T) {
	begin := Begin(Voting)
	require.Equal(t, []string{"humorous", "professional", "urgent", "judge"}, begin.Order)
	for _, e := range begin.List() {
		assert.Equal(t, Pending, e.Lifecycle)
	}
	assert.True(t, begin.Submitting)

	events := decodeAll(t, fixtures.VotingRound()...)
	s := ReduceAll(Voting, begin, events...)

	assert.Equal(t, "Ha.", s.Entries["humorous"].Content)
	assert.Equal(t, "Professional wins.", s.Entries["judge"].Content)
	for _, e := range s.List() {
		assert.Equal(t, Done, e.Lifecycle, e.Key)
	}
	assert.False(t, s.Submitting)
}

func TestReduce_VotingDropsUnknownAgent(t *testing.T) {
	s := Reduce(Voting, Begin(Voting), stream.Event{Type: stream.EventStep, Agent: "sarcastic", Content: "x"})
	assert.Len(t, s.Order, 4)
	_, ok := s.Entry("sarcastic")
	assert.False(t, ok)
}

func TestReduce_Reflection(t *testing.T) {
	s := ReduceAll(Reflection, Begin(Reflection), decodeAll(t, fixtures.ReflectionLoop()...)...)

	assert.Equal(t, []string{"InitialWriterAgent", "CriticAgent", "RefinerAgent", "final"}, s.Order)
	assert.Equal(t, "Too short.", s.Entries["CriticAgent"].Content)
	assert.Equal(t, "Longer draft.", s.Final)
	assert.True(t, s.Completed)
	assert.False(t, s.Submitting)
	for _, e := range s.List() {
		assert.Equal(t, Done, e.Lifecycle, e.Key)
	}
}

func TestReduce_ContentAppendOnlyAcrossRoles(t *testing.T) {
	s := ReduceAll(Reflection, Begin(Reflection),
		stream.Event{Type: stream.EventStep, Role: "CriticAgent", Content: "a"},
		stream.Event{Type: stream.EventStep, Role: "RefinerAgent", Content: "b"},
		stream.Event{Type: stream.EventStep, Role: "CriticAgent", Content: "c"},
	)
	assert.Equal(t, "a\n\nc", s.Entries["CriticAgent"].Content)
	assert.Equal(t, "b", s.Entries["RefinerAgent"].Content)
}

func TestReduce_ReflectionSeparatesRounds(t *testing.T) {
	step := func(role, content string) stream.Event {
		return stream.Event{Type: stream.EventStep, Role: role, Content: content}
	}
	s := ReduceAll(Reflection, Begin(Reflection),
		step("CriticAgent", "criti"),
		step("CriticAgent", "que1"),
		step("RefinerAgent", "draft1"),
		step("CriticAgent", "critique2"),
		step("RefinerAgent", ""),
		step("RefinerAgent", "draft2"),
	)
	assert.Equal(t, "critique1\n\ncritique2", s.Entries["CriticAgent"].Content)
	assert.Equal(t, "draft1\n\ndraft2", s.Entries["RefinerAgent"].Content)

	// 其他模式不加分隔
	v := ReduceAll(Voting, Begin(Voting),
		stream.Event{Type: stream.EventStep, Agent: "judge", Content: "a"},
		stream.Event{Type: stream.EventStep, Agent: "urgent", Content: "b"},
		stream.Event{Type: stream.EventStep, Agent: "judge", Content: "c"},
	)
	assert.Equal(t, "ac", v.Entries["judge"].Content)
}

func TestFail_KeepsContent(t *testing.T) {
	s := ReduceAll(Orchestrator, Begin(Orchestrator), decodeAll(t,
		fixtures.PlanOf("research"),
		fixtures.WorkerStep(0, "partial"),
	)...)
	failed := Fail(s, errors.New("boom"))

	assert.False(t, failed.Submitting)
	assert.True(t, failed.Failed())
	assert.Equal(t, "partial", failed.Entries["0"].Content)
	assert.Equal(t, s.Entries, failed.Entries)
	assert.True(t, s.Submitting, "input state untouched")
}

func TestBegin_ResetsContent(t *testing.T) {
	s := ReduceAll(Voting, Begin(Voting), decodeAll(t, fixtures.VotingRound()...)...)
	require.NotEmpty(t, s.Entries["judge"].Content)

	fresh := Begin(Voting)
	assert.Empty(t, fresh.Entries["judge"].Content)
	assert.Nil(t, fresh.Err)
	assert.False(t, fresh.Completed)
}
