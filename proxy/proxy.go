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
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nalgeon/cqlmitm/feedback"
	"github.com/nalgeon/cqlmitm/rules"
	"github.com/nalgeon/cqlmitm/worker"
)

// SelectorAll reconfigures every node the proxy fronts.
const SelectorAll = "all"

// Proxy is the listener / node registry and control interface: one TCP
// listener per configured node, a registry of in-flight connection
// workers per node, and the reconfigure/feedback surface tests drive.
type Proxy struct {
	cfg *Config
	bus *feedback.Bus

	mu    sync.RWMutex
	nodes map[string]*node // keyed by ProxyAddress
}

// New builds a Proxy from cfg without binding any socket; call Start to
// bind every configured node.
func New(cfg *Config) *Proxy {
	bus := feedback.NewBus(cfg.FeedbackPolicy)
	p := &Proxy{
		cfg:   cfg,
		bus:   bus,
		nodes: make(map[string]*node, len(cfg.Nodes)),
	}
	for _, nc := range cfg.Nodes {
		p.nodes[nc.ProxyAddress] = newNode(nc, cfg.QueueBound, bus)
	}
	return p
}

func (p *Proxy) String() string {
	return fmt.Sprintf("cql-proxy [%d nodes]", len(p.nodes))
}

// Start binds every configured node's proxy_address and begins accepting
// driver connections. If any node fails to bind, Start unbinds the nodes
// that did succeed and returns the first ListenFailed encountered.
func (p *Proxy) Start() error {
	var started []*node
	for _, n := range p.nodes {
		if err := n.start(); err != nil {
			for _, s := range started {
				_ = s.listener.Close()
			}
			return err
		}
		started = append(started, n)
	}
	log.Info().Msgf("%v: started", p)
	return nil
}

// RunningNodes reports every configured node's proxy/real address pair and
// whether its listener is currently bound or draining.
func (p *Proxy) RunningNodes() []Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Status, 0, len(p.nodes))
	for _, n := range p.nodes {
		out = append(out, n.status())
	}
	return out
}

// Reconfigure atomically swaps the rule-set snapshot for the node(s)
// selected by nodeSelector ("all" or a specific proxy_address). The new
// snapshot is validated before it is installed; an invalid rule set is
// rejected and the previous snapshot is left untouched.
func (p *Proxy) Reconfigure(nodeSelector string, requestRules, responseRules *rules.RuleSet) error {
	if requestRules == nil {
		requestRules = rules.Empty()
	}
	if responseRules == nil {
		responseRules = rules.Empty()
	}
	if err := requestRules.Validate(); err != nil {
		return err
	}
	if err := responseRules.Validate(); err != nil {
		return err
	}

	snapshot := &worker.Snapshot{RequestRules: requestRules, ResponseRules: responseRules}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if nodeSelector == SelectorAll {
		for _, n := range p.nodes {
			n.reconfigure(snapshot)
		}
		return nil
	}
	n, ok := p.nodes[nodeSelector]
	if !ok {
		return &NodeSelectorUnknown{Selector: nodeSelector}
	}
	n.reconfigure(snapshot)
	return nil
}

// SubscribeFeedback hands out a receiver endpoint of the feedback channel,
// buffered to bound.
func (p *Proxy) SubscribeFeedback(bound int) <-chan feedback.Event {
	return p.bus.Subscribe(bound)
}

// Shutdown stops every node from accepting new connections and asks all of
// their workers to drain, falling back to a hard cancel past
// cfg.ShutdownGrace so an unresponsive worker cannot hang shutdown forever.
func (p *Proxy) Shutdown() {
	p.mu.RLock()
	nodes := make([]*node, 0, len(p.nodes))
	for _, n := range p.nodes {
		nodes = append(nodes, n)
	}
	p.mu.RUnlock()

	var wg sync.WaitGroup
	wg.Add(len(nodes))
	for _, n := range nodes {
		n := n
		go func() {
			defer wg.Done()
			n.shutdown(p.cfg.ShutdownGrace)
		}()
	}
	wg.Wait()
	p.bus.Close()
	log.Info().Msgf("%v: shut down", p)
}
