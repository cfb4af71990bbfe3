package view

import (
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kweinmeister/agent-design-patterns/stream"
)

// TestProperty_Reduce_ContentIsOrderedConcatenation 对任意良构序列：
// 每个启动过的键最终为 done，内容等于其片段按序拼接
func TestProperty_Reduce_ContentIsOrderedConcatenation(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numTasks := rapid.IntRange(1, 6).Draw(rt, "numTasks")
		tasks := make([]stream.Task, numTasks)
		for i := range tasks {
			tasks[i] = stream.Task{WorkerType: fmt.Sprintf("worker-%d", i)}
		}

		events := []stream.Event{{Type: stream.EventPlan, Plan: &stream.Plan{Tasks: tasks}}}
		for i := 0; i < numTasks; i++ {
			events = append(events, stream.Event{Type: stream.EventWorkerStart, TaskID: stream.IntPtr(i)})
		}

		expected := make([]string, numTasks)
		numSteps := rapid.IntRange(0, 40).Draw(rt, "numSteps")
		for j := 0; j < numSteps; j++ {
			task := rapid.IntRange(0, numTasks-1).Draw(rt, fmt.Sprintf("task_%d", j))
			fragment := rapid.StringN(0, 8, -1).Draw(rt, fmt.Sprintf("fragment_%d", j))
			expected[task] += fragment
			events = append(events, stream.Event{Type: stream.EventWorkerStep, TaskID: stream.IntPtr(task), Content: fragment})
		}

		for i := 0; i < numTasks; i++ {
			events = append(events, stream.Event{Type: stream.EventWorkerComplete, TaskID: stream.IntPtr(i)})
		}
		events = append(events, stream.Event{Type: stream.EventComplete})

		s := ReduceAll(Orchestrator, Begin(Orchestrator), events...)

		require.Len(rt, s.Order, numTasks)
		for i := 0; i < numTasks; i++ {
			entry := s.Entries[strconv.Itoa(i)]
			assert.Equal(rt, Done, entry.Lifecycle)
			assert.Equal(rt, expected[i], entry.Content)
		}
		assert.False(rt, s.Submitting)
	})
}

// drawEvent 生成任意（可能无序、可能指向未知键的）非 plan 事件
func drawEvent(rt *rapid.T, label string) stream.Event {
	kind := rapid.IntRange(0, 6).Draw(rt, label+"_kind")
	id := rapid.IntRange(0, 5).Draw(rt, label+"_id")
	content := rapid.StringN(0, 5, -1).Draw(rt, label+"_content")
	switch kind {
	case 0:
		return stream.Event{Type: stream.EventWorkerStart, TaskID: stream.IntPtr(id)}
	case 1:
		return stream.Event{Type: stream.EventWorkerStep, TaskID: stream.IntPtr(id), Content: content}
	case 2:
		return stream.Event{Type: stream.EventWorkerComplete, TaskID: stream.IntPtr(id)}
	case 3:
		return stream.Event{Type: stream.EventStep, Agent: fmt.Sprintf("worker-%d", id), Content: content}
	case 4:
		return stream.Event{Type: stream.EventSynthesisStep, Content: content}
	case 5:
		return stream.Event{Type: stream.EventStatus, Message: content}
	default:
		return stream.Event{Type: stream.EventType("unknown_" + content)}
	}
}

// TestProperty_Reduce_Monotone 内容长度与生命周期在 plan 之后永不回退
func TestProperty_Reduce_Monotone(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numTasks := rapid.IntRange(0, 4).Draw(rt, "numTasks")
		tasks := make([]stream.Task, numTasks)
		for i := range tasks {
			tasks[i] = stream.Task{WorkerType: fmt.Sprintf("worker-%d", i)}
		}
		s := Reduce(Orchestrator, Begin(Orchestrator), stream.Event{Type: stream.EventPlan, Plan: &stream.Plan{Tasks: tasks}})

		n := rapid.IntRange(1, 30).Draw(rt, "n")
		for i := 0; i < n; i++ {
			next := Reduce(Orchestrator, s, drawEvent(rt, fmt.Sprintf("e%d", i)))
			for k, before := range s.Entries {
				after, ok := next.Entries[k]
				require.True(rt, ok, "entry %s vanished", k)
				assert.GreaterOrEqual(rt, len(after.Content), len(before.Content))
				assert.Equal(rt, before.Content, after.Content[:len(before.Content)])
				assert.GreaterOrEqual(rt, after.Lifecycle.rank(), before.Lifecycle.rank())
			}
			s = next
		}
	})
}

// genPrefix 生成在计划之后的一段随机前缀
func genPrefix() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 8)).Map(func(ops []int) []stream.Event {
		events := []stream.Event{{Type: stream.EventPlan, Plan: &stream.Plan{Tasks: []stream.Task{
			{WorkerType: "research"}, {WorkerType: "writer"}, {WorkerType: "editor"},
		}}}}
		for i, op := range ops {
			id := i % 3
			switch op {
			case 0, 1:
				events = append(events, stream.Event{Type: stream.EventWorkerStart, TaskID: stream.IntPtr(id)})
			case 2, 3:
				events = append(events, stream.Event{Type: stream.EventWorkerStep, TaskID: stream.IntPtr(id), Content: "x"})
			case 4:
				events = append(events, stream.Event{Type: stream.EventWorkerComplete, TaskID: stream.IntPtr(id)})
			case 5:
				events = append(events, stream.Event{Type: stream.EventSynthesisStep, Content: "s"})
			case 6:
				events = append(events, stream.Event{Type: stream.EventStatus, Message: fmt.Sprintf("status %d", i)})
			default:
				events = append(events, stream.Event{Type: stream.EventComplete})
			}
		}
		return events
	})
}

// TestProperty_Reduce_TerminalIdempotent 终结事件应用两次与一次结果相同
func TestProperty_Reduce_TerminalIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	terminals := []stream.Event{
		{Type: stream.EventComplete},
		{Type: stream.EventComplete, Final: "done"},
	}

	for _, p := range []*Pattern{Orchestrator, Voting, Reflection} {
		pattern := p
		properties.Property(pattern.Name+": terminal applied twice equals once", prop.ForAll(
			func(prefix []stream.Event, which int) bool {
				s := ReduceAll(pattern, Begin(pattern), prefix...)
				term := terminals[which]
				once := Reduce(pattern, s, term)
				twice := Reduce(pattern, once, term)
				if !reflect.DeepEqual(once, twice) {
					t.Logf("terminal not idempotent: %+v vs %+v", once, twice)
					return false
				}
				return !once.Submitting && once.Completed
			},
			genPrefix(),
			gen.IntRange(0, len(terminals)-1),
		))
	}

	properties.TestingRun(t)
}

// TestProperty_Reduce_UnknownWorkerCompleteCreatesNothing worker_complete 指向未知 task_id 时不新增条目
func TestProperty_Reduce_UnknownWorkerCompleteCreatesNothing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("unknown task ids leave entries unchanged", prop.ForAll(
		func(prefix []stream.Event, unknown int) bool {
			s := ReduceAll(Orchestrator, Begin(Orchestrator), prefix...)
			next := Reduce(Orchestrator, s, stream.Event{Type: stream.EventWorkerComplete, TaskID: stream.IntPtr(unknown)})
			return reflect.DeepEqual(s, next)
		},
		genPrefix(),
		gen.IntRange(3, 1000),
	))

	properties.TestingRun(t)
}
