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

package rules

import (
	"fmt"
	"math/rand"

	"github.com/nalgeon/cqlmitm/frame"
)

// Rule pairs a Condition with the Reaction to perform when it matches.
type Rule struct {
	Condition Condition
	Reaction  Reaction
}

func (r Rule) String() string {
	return fmt.Sprintf("{condition: %v, reaction: %v}", r.Condition, r.Reaction)
}

// RuleSet is an ordered, immutable list of rules evaluated first-match-wins
// for one direction (RequestRules or ResponseRules). RuleSet values are
// shared, read-only, copy-on-write snapshots: once built they are never
// mutated, so the same *RuleSet can back many connection workers at once.
type RuleSet struct {
	rules    []Rule
	seqCount int
}

// NewRuleSet builds a RuleSet from the given rules, in evaluation order.
// It assigns stable per-node ids to every ConnectionSeqEquals condition so
// that per-connection EvalContext values know how many counters to carry.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{rules: rules}
	next := 0
	for _, r := range rs.rules {
		next = assignSeqIDs(r.Condition, next)
	}
	rs.seqCount = next
	return rs
}

// Empty is the rule set with no rules: every frame gets the default
// reaction (forward, no feedback).
func Empty() *RuleSet {
	return NewRuleSet()
}

func (rs *RuleSet) String() string {
	return fmt.Sprintf("RuleSet(%d rules)", len(rs.rules))
}

// Validate reports every rule whose parameters are semantically
// impossible, currently RandomWithProbability outside [0,1]. A reconfigure
// call should refuse to install a rule set that fails validation.
func (rs *RuleSet) Validate() error {
	var invalid RuleInvalidList
	for i, r := range rs.rules {
		walkConditions(r.Condition, func(c Condition) {
			if p, ok := c.(RandomWithProbability); ok && (p.P < 0 || p.P > 1) {
				invalid = append(invalid, &RuleInvalid{RuleIndex: i, Reason: fmt.Sprintf("RandomWithProbability(%v) outside [0,1]", p.P)})
			}
		})
	}
	if len(invalid) > 0 {
		return invalid
	}
	return nil
}

func walkConditions(c Condition, visit func(Condition)) {
	visit(c)
	switch v := c.(type) {
	case And:
		walkConditions(v.A, visit)
		walkConditions(v.B, visit)
	case Or:
		walkConditions(v.A, visit)
		walkConditions(v.B, visit)
	case Not:
		walkConditions(v.C, visit)
	}
}

// NewEvalContext builds the per-connection evaluation state this rule set
// needs: one counter per ConnectionSeqEquals node and a PRNG seeded from
// seed, which the worker assigns once at connection creation.
func (rs *RuleSet) NewEvalContext(seed int64) *EvalContext {
	return &EvalContext{
		seqCounters: make([]int32, rs.seqCount),
		rand:        rand.New(rand.NewSource(seed)),
	}
}

// EvalContext is the per-connection, per-direction mutable state that
// Condition evaluation reads and advances: ConnectionSeqEquals counters and
// the worker's PRNG. A single reader goroutine owns it exclusively, so no
// locking is required.
type EvalContext struct {
	seqCounters []int32
	rand        *rand.Rand
}

// Eval evaluates rs against f using ctx, returning the first matching
// rule's reaction, or DefaultReaction() if none match.
func (rs *RuleSet) Eval(ctx *EvalContext, f *frame.Frame) (Reaction, int, bool) {
	for i, r := range rs.rules {
		if r.Condition.eval(ctx, f) {
			return r.Reaction, i, true
		}
	}
	return DefaultReaction(), -1, false
}
