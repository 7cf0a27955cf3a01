package engine

import (
	"container/heap"
	"time"
)

// timer parks one branch until wakeAt, when the engine re-activates the
// branch's resume port.
type timer struct {
	wakeAt time.Time
	nodeID string
	port   string
	ms     int
}

// timerHeap orders parked branches by wake time.
type timerHeap []timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].wakeAt.Before(h[j].wakeAt) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(timer)) }

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

func (h *timerHeap) add(t timer) {
	heap.Push(h, t)
}

// popDue removes and returns every timer whose wake time has passed.
func (h *timerHeap) popDue(now time.Time) []timer {
	var due []timer
	for h.Len() > 0 && !(*h)[0].wakeAt.After(now) {
		due = append(due, heap.Pop(h).(timer))
	}
	return due
}

// next returns the earliest wake time, or zero when no branch is parked.
func (h timerHeap) next() (time.Time, bool) {
	if len(h) == 0 {
		return time.Time{}, false
	}
	return h[0].wakeAt, true
}
