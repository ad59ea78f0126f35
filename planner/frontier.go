package planner

import (
	"container/heap"

	"github.com/beka-birhanu/ohrace/world"
)

// item is a frontier entry. Entries are ordered by priority, then by the
// secondary key, then by insertion sequence so equal keys pop first-in first-out.
type item struct {
	pos       world.Pos
	g         float64
	priority  float64
	secondary float64
	seq       int
	index     int
}

type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.secondary != b.secondary {
		return a.secondary < b.secondary
	}
	return a.seq < b.seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*pq)
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[:n-1]
	return it
}

// frontier is a stable min-priority queue.
type frontier struct {
	pq  priorityQueue
	seq int
}

func newFrontier() *frontier {
	f := &frontier{}
	heap.Init(&f.pq)
	return f
}

func (f *frontier) Len() int { return f.pq.Len() }

func (f *frontier) push(pos world.Pos, g, priority, secondary float64) {
	heap.Push(&f.pq, &item{pos: pos, g: g, priority: priority, secondary: secondary, seq: f.seq})
	f.seq++
}

func (f *frontier) pop() *item {
	return heap.Pop(&f.pq).(*item)
}
