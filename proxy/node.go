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

package proxy

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"

	"github.com/nalgeon/cqlmitm/feedback"
	"github.com/nalgeon/cqlmitm/worker"
)

type nodeState int32

const (
	nodeNotStarted nodeState = iota
	nodeRunning
	nodeDraining
	nodeClosed
)

// node binds one proxy_address, accepts driver connections, dials the
// node's real_address for each one, and tracks every worker it has spawned
// so reconfigure and shutdown can reach them.
type node struct {
	cfg        NodeConfig
	queueBound int
	bus        *feedback.Bus

	listener net.Listener
	state    atomic.Int32
	snapshot atomic.Value // holds *worker.Snapshot

	mu      sync.Mutex
	workers map[string]*worker.Worker

	wg sync.WaitGroup
}

func newNode(cfg NodeConfig, queueBound int, bus *feedback.Bus) *node {
	n := &node{
		cfg:        cfg,
		queueBound: queueBound,
		bus:        bus,
		workers:    make(map[string]*worker.Worker),
	}
	n.snapshot.Store(&worker.Snapshot{
		RequestRules:  cfg.InitialRequestRules,
		ResponseRules: cfg.InitialResponseRules,
	})
	n.state.Store(int32(nodeNotStarted))
	return n
}

func (n *node) String() string {
	return fmt.Sprintf("cql-proxy node [%s]", n.cfg.ProxyAddress)
}

// start binds the listener and launches the accept loop.
func (n *node) start() error {
	ln, err := net.Listen("tcp", n.cfg.ProxyAddress)
	if err != nil {
		return &ListenFailed{ProxyAddress: n.cfg.ProxyAddress, Err: err}
	}
	n.listener = ln
	n.state.Store(int32(nodeRunning))
	log.Info().Msgf("%v: listening", n)
	n.wg.Add(1)
	go n.acceptLoop()
	return nil
}

func (n *node) acceptLoop() {
	defer n.wg.Done()
	for {
		driverConn, err := n.listener.Accept()
		if err != nil {
			if nodeState(n.state.Load()) == nodeRunning {
				log.Error().Msgf("%v: accept failed, stopping: %v", n, err)
			}
			return
		}
		log.Debug().Msgf("%v: accepted driver connection from %v", n, driverConn.RemoteAddr())

		nodeConn, err := net.Dial("tcp", n.cfg.RealAddress)
		if err != nil {
			_ = driverConn.Close()
			connErr := &ConnectFailed{ProxyAddress: n.cfg.ProxyAddress, RealAddress: n.cfg.RealAddress, Err: err}
			log.Error().Msgf("%v: %v", n, connErr)
			_ = n.bus.Publish(feedback.Event{EventTag: "connect-failed", Timestamp: time.Now()})
			continue
		}

		w := worker.New(driverConn, nodeConn, n.snapshot.Load().(*worker.Snapshot), n.bus, n.queueBound)
		n.mu.Lock()
		n.workers[w.ID] = w
		n.mu.Unlock()
		log.Info().Msgf("%v: spawned %v", n, w)
		w.Start()
		go n.reap(w)
	}
}

// reap removes a worker from the registry once it has fully closed.
func (n *node) reap(w *worker.Worker) {
	w.Wait()
	n.mu.Lock()
	delete(n.workers, w.ID)
	n.mu.Unlock()
}

// reconfigure publishes a new rule-set snapshot to this node and to every
// worker currently in flight.
func (n *node) reconfigure(s *worker.Snapshot) {
	n.snapshot.Store(s)
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, w := range n.workers {
		w.Reconfigure(s)
	}
}

// liveWorkers returns a snapshot slice of the currently tracked workers.
func (n *node) liveWorkers() []*worker.Worker {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*worker.Worker, 0, len(n.workers))
	for _, w := range n.workers {
		out = append(out, w)
	}
	return out
}

// status reports whether this node's listener is currently bound
// (SUPPLEMENTED FEATURES: running_nodes liveness).
type Status struct {
	ProxyAddress string
	RealAddress  string
	Listening    bool
	Draining     bool
}

func (n *node) status() Status {
	s := nodeState(n.state.Load())
	return Status{
		ProxyAddress: n.cfg.ProxyAddress,
		RealAddress:  n.cfg.RealAddress,
		Listening:    s == nodeRunning,
		Draining:     s == nodeDraining,
	}
}

// shutdown stops accepting new connections, asks every in-flight worker to
// drain, and waits up to grace for them to close on their own before
// cancelling the stragglers outright.
func (n *node) shutdown(grace time.Duration) {
	if !n.state.CompareAndSwap(int32(nodeRunning), int32(nodeDraining)) {
		return
	}
	log.Debug().Msgf("%v: draining", n)
	_ = n.listener.Close()
	n.wg.Wait()

	workers := n.liveWorkers()
	for _, w := range workers {
		w.Drain()
	}

	done := make(chan struct{})
	go func() {
		for _, w := range workers {
			w.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		for _, w := range workers {
			w.Cancel()
		}
		<-done
	}
	n.state.Store(int32(nodeClosed))
	log.Info().Msgf("%v: closed", n)
}
