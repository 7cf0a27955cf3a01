package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		h.Record(Frame{NodeID: id})
	}

	// Oldest frame evicted.
	assert.Equal(t, 3, h.Len())

	f, ok := h.Pop()
	require.True(t, ok)
	assert.Equal(t, "d", f.NodeID)

	f, ok = h.Peek()
	require.True(t, ok)
	assert.Equal(t, "c", f.NodeID)
	assert.Equal(t, 2, h.Len())
}

func TestHistoryEmpty(t *testing.T) {
	h := NewHistory(2)
	_, ok := h.Pop()
	assert.False(t, ok)
	_, ok = h.Peek()
	assert.False(t, ok)
}

func TestTimerHeapOrdering(t *testing.T) {
	var h timerHeap
	now := time.Now()
	h.add(timer{wakeAt: now.Add(30 * time.Millisecond), nodeID: "late"})
	h.add(timer{wakeAt: now.Add(-time.Millisecond), nodeID: "due"})
	h.add(timer{wakeAt: now.Add(10 * time.Millisecond), nodeID: "soon"})

	next, ok := h.next()
	require.True(t, ok)
	assert.True(t, next.Before(now))

	due := h.popDue(now)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].nodeID)
	assert.Equal(t, 2, h.Len())

	due = h.popDue(now.Add(time.Minute))
	require.Len(t, due, 2)
	assert.Equal(t, "soon", due[0].nodeID)
	assert.Equal(t, "late", due[1].nodeID)

	_, ok = h.next()
	assert.False(t, ok)
}

func TestTracerGrammar(t *testing.T) {
	var buf testBuffer
	tr := NewTracer(&buf, true)

	tr.NodeStart("n1")
	tr.Flow("a", "Flow", "b", "In")
	tr.WaitingStart("w", 500)
	tr.WaitingPulse("w", 500)
	tr.NodeError("n1", "boom")
	tr.NodeStop("n1")
	tr.SubGraphActivity()
	tr.SubGraphFinished()

	out := buf.String()
	assert.Contains(t, out, "[NODE_START] n1\n")
	assert.Contains(t, out, "[FLOW] a:Flow -> b:In\n")
	assert.Contains(t, out, "[NODE_WAITING_START] w | 500\n")
	assert.Contains(t, out, "[NODE_WAITING_PULSE] w | 500\n")
	assert.Contains(t, out, "[NODE_ERROR] n1 | boom\n")
	assert.Contains(t, out, "[NODE_STOP] n1\n")
	assert.Contains(t, out, "[SYNP_SUBGRAPH_ACTIVITY]\n")
	assert.Contains(t, out, "[SYNP_SUBGRAPH_FINISHED]\n")
}

func TestTracerDisabled(t *testing.T) {
	var buf testBuffer
	tr := NewTracer(&buf, false)
	tr.NodeStart("n1")
	assert.Empty(t, buf.String())

	tr.SetEnabled(true)
	tr.NodeStart("n1")
	assert.NotEmpty(t, buf.String())
}

// testBuffer is a minimal writer for tracer tests; the Tracer's own mutex
// serializes writes to it.
type testBuffer struct {
	data []byte
}

func (b *testBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *testBuffer) String() string { return string(b.data) }
