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

// Package proxy implements the listener / node registry and control
// interface that front the connection worker: one TCP listener per
// configured node, a registry of in-flight workers per node, and the
// run-time reconfiguration and feedback-subscription surface.
package proxy

import (
	"time"

	"github.com/nalgeon/cqlmitm/feedback"
	"github.com/nalgeon/cqlmitm/rules"
)

// DefaultShutdownGrace bounds how long Shutdown waits for workers to drain
// their scheduled-frame queues before cancelling them outright.
const DefaultShutdownGrace = 5 * time.Second

// NodeConfig maps one real database node to the address drivers connect to
// instead, plus the rule sets new connections to it start with.
type NodeConfig struct {
	// RealAddress is the address of the actual database node.
	RealAddress string
	// ProxyAddress is the address this proxy binds and drivers connect to.
	ProxyAddress string
	// InitialRequestRules is the RuleSet new connections evaluate
	// driver->node frames against. Empty() if nil.
	InitialRequestRules *rules.RuleSet
	// InitialResponseRules is the RuleSet new connections evaluate
	// node->driver frames against. Empty() if nil.
	InitialResponseRules *rules.RuleSet
}

func (c NodeConfig) String() string {
	return c.ProxyAddress + " -> " + c.RealAddress
}

// Config is the full construction-time configuration of a proxy.
type Config struct {
	Nodes []NodeConfig
	// FeedbackPolicy controls what Publish does when a subscriber's buffer
	// is full. Defaults to feedback.Block, preserving observability.
	FeedbackPolicy feedback.Policy
	// QueueBound bounds each worker's per-direction scheduled-frame queue.
	QueueBound int
	// ShutdownGrace bounds how long Shutdown waits for workers to drain
	// before cancelling them.
	ShutdownGrace time.Duration
}

// NewConfig builds a Config from the given node mappings, applying
// sensible defaults for everything not explicitly set.
func NewConfig(nodes ...NodeConfig) *Config {
	for i, n := range nodes {
		if n.InitialRequestRules == nil {
			nodes[i].InitialRequestRules = rules.Empty()
		}
		if n.InitialResponseRules == nil {
			nodes[i].InitialResponseRules = rules.Empty()
		}
	}
	return &Config{
		Nodes:          nodes,
		FeedbackPolicy: feedback.Block,
		QueueBound:     16,
		ShutdownGrace:  DefaultShutdownGrace,
	}
}
