package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kweinmeister/agent-design-patterns/stream"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"orchestrator", "Voting", " reflection "} {
		p, ok := Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, p.Path)
	}
	_, ok := Lookup("sequential")
	assert.False(t, ok)
	assert.Equal(t, []string{"orchestrator", "reflection", "voting"}, Names())
}

func TestPattern_Request(t *testing.T) {
	req := Orchestrator.Request("http://localhost:8080/", "plan a trip")
	assert.Equal(t, "http://localhost:8080/stream_orchestrator?prompt=plan+a+trip", req.URL)
	assert.Equal(t, "GET", req.Method)
}

func TestPattern_Terminator(t *testing.T) {
	assert.True(t, Voting.StreamTerminator()(stream.Event{Type: stream.EventComplete}))

	custom := &Pattern{Terminator: func(e stream.Event) bool { return e.Type == stream.EventStatus }}
	assert.True(t, custom.terminates(stream.Event{Type: stream.EventStatus}))
	assert.False(t, custom.terminates(stream.Event{Type: stream.EventComplete}))
}
