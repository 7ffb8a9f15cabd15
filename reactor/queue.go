//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reactor implements the reaction executor: it turns a matched
// rule's reaction into scheduled writes on one side of a connection and,
// independently, into feedback events.
package reactor

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nalgeon/cqlmitm/frame"
)

// Entry is one scheduled delivery: either a frame to write at ReleaseAt, or
// (if Close is true) the CloseConnection sentinel, which also participates
// in release-time ordering so it cannot jump ahead of earlier-scheduled
// frames.
type Entry struct {
	ReleaseAt time.Time
	Frame     *frame.Frame
	Close     bool
}

func (e Entry) String() string {
	if e.Close {
		return fmt.Sprintf("{close at %v}", e.ReleaseAt)
	}
	return fmt.Sprintf("{frame %v at %v}", e.Frame, e.ReleaseAt)
}

// entryHeap is a container/heap.Interface ordering Entry values by
// ReleaseAt, earliest first.
type entryHeap []Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].ReleaseAt.Before(h[j].ReleaseAt) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(Entry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a bounded, release-time-ordered delivery queue for one write
// direction of one connection. It has one consumer (the writer task); its
// producers are the reader tasks that apply rules (the driver-side queue
// also receives forged ERROR frames from the request reader). Every waiter
// re-checks the heap after it wakes, so plain size-1 signal channels are
// used rather than a broadcast.
type Queue struct {
	bound int

	mu     sync.Mutex
	h      entryHeap
	closed bool

	wake  chan struct{} // signals "heap changed" to the one Dequeue caller
	space chan struct{} // signals "room freed" to the one Enqueue caller
}

// NewQueue builds a Queue with the given bound on pending entries.
func NewQueue(bound int) *Queue {
	return &Queue{
		bound: bound,
		wake:  make(chan struct{}, 1),
		space: make(chan struct{}, 1),
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Enqueue adds e to the queue, blocking while the queue is at its bound.
// Returns false if the queue was closed, or ctx was cancelled, before e
// could be added.
func (q *Queue) Enqueue(ctx context.Context, e Entry) bool {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return false
		}
		if len(q.h) < q.bound {
			heap.Push(&q.h, e)
			q.mu.Unlock()
			notify(q.wake)
			return true
		}
		q.mu.Unlock()
		select {
		case <-q.space:
		case <-ctx.Done():
			return false
		}
	}
}

// Dequeue blocks until the earliest-scheduled entry's release time, then
// pops and returns it. It returns (Entry{}, false) once the queue is
// closed and drained, or if ctx is cancelled first.
func (q *Queue) Dequeue(ctx context.Context) (Entry, bool) {
	for {
		q.mu.Lock()
		if len(q.h) == 0 {
			if q.closed {
				q.mu.Unlock()
				return Entry{}, false
			}
			q.mu.Unlock()
			select {
			case <-q.wake:
				continue
			case <-ctx.Done():
				return Entry{}, false
			}
		}

		next := q.h[0]
		wait := time.Until(next.ReleaseAt)
		if wait <= 0 {
			heap.Pop(&q.h)
			q.mu.Unlock()
			notify(q.space)
			return next, true
		}
		q.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-q.wake:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return Entry{}, false
		}
	}
}

// Close marks the queue closed and wakes any blocked Enqueue/Dequeue
// caller. Entries already queued are still delivered by Dequeue; once
// drained, Dequeue reports (Entry{}, false). This lets a worker in the
// Draining state keep pumping a queue that was closed out from under it
// by a later CloseConnection sentinel's own enqueue.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	notify(q.wake)
	notify(q.space)
}

// Len reports the number of pending entries, for tests and diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

// Drained reports whether the queue is closed and has no pending entries.
func (q *Queue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.h) == 0
}
