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

// Package worker implements the per-connection bidirectional CQL frame
// interception engine: the four cooperating activities that apply rules to
// a driver<->node pair and enact the resulting reactions.
package worker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/nalgeon/cqlmitm/feedback"
	"github.com/nalgeon/cqlmitm/frame"
	"github.com/nalgeon/cqlmitm/reactor"
	"github.com/nalgeon/cqlmitm/rules"
)

// State is the worker's lifecycle state: Running while both sockets are
// read; Draining once a peer EOF or a CloseConnection reaction has been
// seen, pumping scheduled-frame queues until both are empty; Closed once
// both sockets are shut down.
type State int32

const (
	Running State = iota
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	default:
		return "Closed"
	}
}

// Snapshot is the immutable pair of rule sets a worker evaluates frames
// against. A new Snapshot is published by Reconfigure; the next frame
// processed in each direction picks it up.
type Snapshot struct {
	RequestRules  *rules.RuleSet
	ResponseRules *rules.RuleSet
}

// QueueBound is the default bound on each direction's scheduled-frame
// queue.
const QueueBound = 16

// directionEval carries the per-direction Condition evaluation state. It
// is touched by exactly one goroutine (the reader task for that
// direction), so it needs no locking; a new EvalContext is built whenever
// the RuleSet pointer it was built from changes, which resets
// ConnectionSeqEquals counters for that direction on reconfigure.
type directionEval struct {
	ruleSet *rules.RuleSet
	ctx     *rules.EvalContext
}

func (d *directionEval) forRuleSet(rs *rules.RuleSet, seed int64) *rules.EvalContext {
	if d.ruleSet != rs {
		d.ruleSet = rs
		d.ctx = rs.NewEvalContext(seed)
	}
	return d.ctx
}

// Worker orchestrates one accepted driver<->node connection pair.
type Worker struct {
	ID string

	driverConn net.Conn
	nodeConn   net.Conn

	snapshot atomic.Value // holds *Snapshot
	state    atomic.Int32

	toNode   *reactor.Queue
	toDriver *reactor.Queue

	bus *feedback.Bus

	reqEval  directionEval
	respEval directionEval
	seed     int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a worker for one accepted connection. driverConn is the
// socket facing the driver under test; nodeConn is the socket already
// connected to the real node. queueBound bounds each direction's
// scheduled-frame queue; a value <= 0 falls back to QueueBound. The worker
// does not start its activities until Start is called.
func New(driverConn, nodeConn net.Conn, initial *Snapshot, bus *feedback.Bus, queueBound int) *Worker {
	if queueBound <= 0 {
		queueBound = QueueBound
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		ID:         uuid.New().String(),
		driverConn: driverConn,
		nodeConn:   nodeConn,
		toNode:     reactor.NewQueue(queueBound),
		toDriver:   reactor.NewQueue(queueBound),
		bus:        bus,
		seed:       entropySeed(),
		ctx:        ctx,
		cancel:     cancel,
	}
	w.snapshot.Store(initial)
	w.state.Store(int32(Running))
	return w
}

func entropySeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.BigEndian.Uint64(buf[:]))
}

func (w *Worker) String() string {
	return fmt.Sprintf("worker [%s]", w.ID)
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Reconfigure atomically publishes a new rule-set snapshot. The next frame
// processed in each direction picks it up; frames already in flight keep
// evaluating against the snapshot they started with.
func (w *Worker) Reconfigure(s *Snapshot) {
	w.snapshot.Store(s)
}

// Start launches the worker's four cooperating activities plus the
// supervisor that advances Draining to Closed, and returns immediately.
func (w *Worker) Start() {
	w.wg.Add(5)
	go w.runReader(w.driverConn, feedback.ToNode, w.toNode, func(s *Snapshot) *rules.RuleSet { return s.RequestRules }, &w.reqEval)
	go w.runReader(w.nodeConn, feedback.ToDriver, w.toDriver, func(s *Snapshot) *rules.RuleSet { return s.ResponseRules }, &w.respEval)
	go w.runWriter(w.toNode, w.nodeConn)
	go w.runWriter(w.toDriver, w.driverConn)
	go w.supervise()
}

// Wait blocks until the worker has fully closed both sockets.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Cancel forces the worker to Closed immediately, shutting down both
// sockets without draining pending scheduled frames.
func (w *Worker) Cancel() {
	w.state.Store(int32(Closed))
	w.cancel()
	_ = w.driverConn.Close()
	_ = w.nodeConn.Close()
	w.toNode.Close()
	w.toDriver.Close()
}

// Drain requests a graceful shutdown: no further frames are read from
// either socket, but both scheduled-frame queues finish flushing before
// the worker transitions to Closed. Used by a proxy-level shutdown, which
// must not silently drop frames already in flight.
func (w *Worker) Drain() {
	w.beginDraining()
}

// beginDraining moves the worker from Running to Draining exactly once,
// closing both scheduled-frame queues so supervise() can observe them
// drain. A CloseConnection reaction only ever enqueues its sentinel onto
// the one queue matching its own direction, so the other direction's queue
// would otherwise never see its closed flag set; closing both here (rather
// than waiting for a Close entry to reach each one) is what lets
// Queue.Drained() eventually go true on both sides. Already-queued entries
// are unaffected: after Close, Enqueue refuses new entries, while Dequeue
// keeps delivering the queued ones until the heap is empty.
func (w *Worker) beginDraining() {
	if w.state.CompareAndSwap(int32(Running), int32(Draining)) {
		log.Debug().Msgf("%v: entering Draining", w)
		w.toNode.Close()
		w.toDriver.Close()
	}
}

func (w *Worker) runReader(
	src net.Conn,
	direction feedback.Direction,
	queue *reactor.Queue,
	pick func(*Snapshot) *rules.RuleSet,
	eval *directionEval,
) {
	defer w.wg.Done()
	defer w.recoverPanic("reader " + direction.String())
	for {
		if State(w.state.Load()) != Running {
			return
		}
		f, err := frame.DecodeFrame(src)
		if err != nil {
			w.onReaderError(direction, err)
			return
		}

		snapshot := w.snapshot.Load().(*Snapshot)
		ruleSet := pick(snapshot)
		ctx := eval.forRuleSet(ruleSet, w.seed)
		reaction, idx, _ := ruleSet.Eval(ctx, f)

		// A forged ERROR frame always answers the driver, whichever
		// direction the triggering frame was travelling.
		target := queue
		if reaction.Addressee != nil && reaction.Addressee.Action == rules.ForgeWithError {
			target = w.toDriver
		}
		if err := reactor.Execute(w.ctx, time.Now, f, direction, idx, reaction, target, w.bus, w.ID); err != nil {
			log.Error().Msgf("%v: feedback publish failed: %v", w, err)
		}
		if reaction.Addressee != nil && reaction.Addressee.Action == rules.CloseConnection {
			w.beginDraining()
		}
	}
}

func (w *Worker) onReaderError(direction feedback.Direction, err error) {
	w.beginDraining()
	var tooLarge *frame.FrameTooLarge
	var malformed *frame.MalformedHeader
	var eof *frame.UnexpectedEof
	tag := "peer-closed"
	switch {
	case errors.As(err, &tooLarge):
		tag = "frame-too-large"
	case errors.As(err, &malformed):
		tag = "malformed-header"
	case errors.As(err, &eof):
		tag = "unexpected-eof"
	}
	log.Debug().Msgf("%v: %s reader stopped: %v", w, direction, err)
	_ = w.bus.Publish(feedback.Event{WorkerID: w.ID, Direction: direction, RuleIndex: -1, EventTag: tag, Timestamp: time.Now()})
}

func (w *Worker) runWriter(queue *reactor.Queue, dest net.Conn) {
	defer w.wg.Done()
	defer w.recoverPanic("writer")
	for {
		entry, ok := queue.Dequeue(w.ctx)
		if !ok {
			return
		}
		if entry.Close {
			queue.Close()
			if tc, ok := dest.(interface{ CloseWrite() error }); ok {
				_ = tc.CloseWrite()
			} else {
				_ = dest.Close()
			}
			return
		}
		if err := frame.WriteFrame(entry.Frame, dest); err != nil {
			log.Error().Msgf("%v: write failed: %v", w, err)
			w.beginDraining()
			return
		}
	}
}

// supervise advances Draining to Closed once both scheduled-frame queues
// are empty.
func (w *Worker) supervise() {
	defer w.wg.Done()
	defer w.recoverPanic("supervisor")
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if State(w.state.Load()) == Draining && w.toNode.Drained() && w.toDriver.Drained() {
				w.toNode.Close()
				w.toDriver.Close()
				w.state.Store(int32(Closed))
				_ = w.driverConn.Close()
				_ = w.nodeConn.Close()
				w.cancel()
				log.Info().Msgf("%v: closed", w)
				return
			}
		}
	}
}

// recoverPanic contains a panic inside one activity so a poisoned worker
// cannot kill the listener.
func (w *Worker) recoverPanic(activity string) {
	if r := recover(); r != nil {
		log.Error().Msgf("%v: %s panicked: %v", w, activity, r)
		w.beginDraining()
	}
}
