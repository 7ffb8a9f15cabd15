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

// Package rules implements the condition/reaction algebra that rule sets
// are built from, and the per-connection evaluation state they need.
package rules

import (
	"fmt"

	"github.com/nalgeon/cqlmitm/frame"
	"github.com/nalgeon/cqlmitm/primitive"
)

// Condition is a pure predicate over a frame plus the evaluating
// connection's counters. Implementations are small tagged values, not a
// class hierarchy: a type switch in assignSeqIDs is the only place that
// needs to know every concrete Condition type.
type Condition interface {
	eval(ctx *EvalContext, f *frame.Frame) bool
	String() string
}

// True always matches.
type True struct{}

func (True) eval(*EvalContext, *frame.Frame) bool { return true }
func (True) String() string                       { return "True" }

// False never matches.
type False struct{}

func (False) eval(*EvalContext, *frame.Frame) bool { return false }
func (False) String() string                       { return "False" }

// OpcodeEquals matches frames with the given opcode.
type OpcodeEquals struct {
	OpCode primitive.OpCode
}

func (c OpcodeEquals) eval(_ *EvalContext, f *frame.Frame) bool {
	return f.Header.OpCode == c.OpCode
}

func (c OpcodeEquals) String() string {
	return fmt.Sprintf("OpcodeEquals(%v)", c.OpCode)
}

// BodyContainsCaseSensitive matches frames whose body contains Needle as a
// verbatim byte substring.
type BodyContainsCaseSensitive struct {
	Needle []byte
}

func (c BodyContainsCaseSensitive) eval(_ *EvalContext, f *frame.Frame) bool {
	return frame.ContainsCaseSensitive(f, c.Needle)
}

func (c BodyContainsCaseSensitive) String() string {
	return fmt.Sprintf("BodyContainsCaseSensitive(%q)", c.Needle)
}

// BodyContainsCaseInsensitive matches frames whose body contains Needle
// ignoring case.
type BodyContainsCaseInsensitive struct {
	Needle []byte
}

func (c BodyContainsCaseInsensitive) eval(_ *EvalContext, f *frame.Frame) bool {
	return frame.ContainsCaseInsensitive(f, c.Needle)
}

func (c BodyContainsCaseInsensitive) String() string {
	return fmt.Sprintf("BodyContainsCaseInsensitive(%q)", c.Needle)
}

// ConnectionSeqEquals matches on the N-th (0-indexed) time this condition
// node is reached during a full evaluation of its enclosing rule's
// condition tree for a given connection, regardless of what it itself
// returns on any other evaluation. The counter lives in the EvalContext,
// keyed by an id assigned once when the owning RuleSet is built, so the
// condition value itself stays immutable and shareable across workers.
type ConnectionSeqEquals struct {
	N  int
	id int
}

// NewConnectionSeqEquals builds a ConnectionSeqEquals node. Its id is
// assigned later, when the RuleSet containing it is constructed.
func NewConnectionSeqEquals(n int) *ConnectionSeqEquals {
	return &ConnectionSeqEquals{N: n, id: -1}
}

func (c *ConnectionSeqEquals) eval(ctx *EvalContext, _ *frame.Frame) bool {
	seq := ctx.seqCounters[c.id]
	ctx.seqCounters[c.id]++
	return int(seq) == c.N
}

func (c *ConnectionSeqEquals) String() string {
	return fmt.Sprintf("ConnectionSeqEquals(%d)", c.N)
}

// RandomWithProbability matches with probability P, in [0,1], drawn from
// the evaluating worker's PRNG.
type RandomWithProbability struct {
	P float64
}

func (c RandomWithProbability) eval(ctx *EvalContext, _ *frame.Frame) bool {
	return ctx.rand.Float64() < c.P
}

func (c RandomWithProbability) String() string {
	return fmt.Sprintf("RandomWithProbability(%v)", c.P)
}

// HasFlag matches frames whose header flags contain Flag.
type HasFlag struct {
	Flag primitive.HeaderFlag
}

func (c HasFlag) eval(_ *EvalContext, f *frame.Frame) bool {
	return f.Header.Flags.Contains(c.Flag)
}

func (c HasFlag) String() string {
	return fmt.Sprintf("HasFlag(%v)", c.Flag)
}

// HasProtocolVersion matches frames whose header carries exactly Version.
type HasProtocolVersion struct {
	Version primitive.ProtocolVersion
}

func (c HasProtocolVersion) eval(_ *EvalContext, f *frame.Frame) bool {
	return f.Header.Version == c.Version
}

func (c HasProtocolVersion) String() string {
	return fmt.Sprintf("HasProtocolVersion(%v)", c.Version)
}

// And matches when both A and B match. B is not evaluated if A does not
// match, so a ConnectionSeqEquals nested in B is not reached and its
// counter does not advance.
type And struct {
	A, B Condition
}

func (c And) eval(ctx *EvalContext, f *frame.Frame) bool {
	return c.A.eval(ctx, f) && c.B.eval(ctx, f)
}

func (c And) String() string {
	return fmt.Sprintf("And(%v, %v)", c.A, c.B)
}

// Or matches when either A or B matches, short-circuiting the same way.
type Or struct {
	A, B Condition
}

func (c Or) eval(ctx *EvalContext, f *frame.Frame) bool {
	return c.A.eval(ctx, f) || c.B.eval(ctx, f)
}

func (c Or) String() string {
	return fmt.Sprintf("Or(%v, %v)", c.A, c.B)
}

// Not negates C.
type Not struct {
	C Condition
}

func (c Not) eval(ctx *EvalContext, f *frame.Frame) bool {
	return !c.C.eval(ctx, f)
}

func (c Not) String() string {
	return fmt.Sprintf("Not(%v)", c.C)
}

// assignSeqIDs walks a condition tree depth-first, assigning sequential
// counter ids to every ConnectionSeqEquals node it finds, and returns the
// next free id. Called once per rule when a RuleSet is constructed.
func assignSeqIDs(c Condition, next int) int {
	switch v := c.(type) {
	case *ConnectionSeqEquals:
		v.id = next
		return next + 1
	case And:
		next = assignSeqIDs(v.A, next)
		return assignSeqIDs(v.B, next)
	case Or:
		next = assignSeqIDs(v.A, next)
		return assignSeqIDs(v.B, next)
	case Not:
		return assignSeqIDs(v.C, next)
	default:
		return next
	}
}
