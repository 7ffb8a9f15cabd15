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
	"time"

	"github.com/nalgeon/cqlmitm/frame"
	"github.com/nalgeon/cqlmitm/primitive"
)

// Action is the action a ToAddressee reaction performs on the frame
// addressed to one side of the connection.
type Action int

const (
	Forward Action = iota
	Drop
	Forge
	ForgeWithError
	CloseConnection
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "Forward"
	case Drop:
		return "Drop"
	case Forge:
		return "Forge"
	case ForgeWithError:
		return "ForgeWithError"
	case CloseConnection:
		return "CloseConnection"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ToAddressee is the half of a Reaction that acts on the frame's
// addressee: forward, drop, forge a replacement, or close the connection.
type ToAddressee struct {
	Delay  time.Duration
	Action Action

	// ForgedFrame is used when Action is Forge; it replaces the triggering
	// frame verbatim, stream id included.
	ForgedFrame *frame.Frame

	// ErrorCode and ErrorMessage are used when Action is ForgeWithError.
	ErrorCode    primitive.ErrorCode
	ErrorMessage string
}

func (a ToAddressee) String() string {
	return fmt.Sprintf("{delay: %v, action: %v}", a.Delay, a.Action)
}

// ToFeedback is the half of a Reaction that publishes an observation on
// the worker's feedback channel.
type ToFeedback struct {
	EventTag     string
	IncludeFrame bool
}

func (f ToFeedback) String() string {
	return fmt.Sprintf("{event_tag: %q, include_frame: %v}", f.EventTag, f.IncludeFrame)
}

// Reaction is what a matched rule does. Both fields are independently
// optional: a nil Addressee enqueues nothing for either side, so the
// triggering frame is not forwarded, and a nil Feedback publishes no event.
// DefaultReaction always sets an Addressee.
type Reaction struct {
	Addressee *ToAddressee
	Feedback  *ToFeedback
}

func (r Reaction) String() string {
	return fmt.Sprintf("{addressee: %v, feedback: %v}", r.Addressee, r.Feedback)
}

// DefaultReaction is returned when no rule in a RuleSet matches: forward
// the frame unchanged, no feedback.
func DefaultReaction() Reaction {
	return Reaction{Addressee: &ToAddressee{Action: Forward}}
}

// ForwardTo builds a plain pass-through reaction, optionally delayed.
func ForwardTo(delay time.Duration) Reaction {
	return Reaction{Addressee: &ToAddressee{Action: Forward, Delay: delay}}
}

// DropFrame builds a reaction that silently discards the triggering frame.
func DropFrame() Reaction {
	return Reaction{Addressee: &ToAddressee{Action: Drop}}
}

// ForgeFrame builds a reaction that replaces the triggering frame with f.
func ForgeFrame(f *frame.Frame, delay time.Duration) Reaction {
	return Reaction{Addressee: &ToAddressee{Action: Forge, Delay: delay, ForgedFrame: f}}
}

// ForgeError builds a reaction that replaces the triggering frame with a
// synthesized ERROR frame bearing code and msg. The worker always delivers
// that ERROR frame to the driver, so a matched request never reaches the
// node.
func ForgeError(code primitive.ErrorCode, msg string, delay time.Duration) Reaction {
	return Reaction{Addressee: &ToAddressee{
		Action:       ForgeWithError,
		Delay:        delay,
		ErrorCode:    code,
		ErrorMessage: msg,
	}}
}

// CloseAfter builds a reaction that closes the connection once any
// earlier-scheduled frames on both sides have drained.
func CloseAfter(delay time.Duration) Reaction {
	return Reaction{Addressee: &ToAddressee{Action: CloseConnection, Delay: delay}}
}

// WithFeedback attaches a ToFeedback publication to an existing reaction.
func (r Reaction) WithFeedback(eventTag string, includeFrame bool) Reaction {
	r.Feedback = &ToFeedback{EventTag: eventTag, IncludeFrame: includeFrame}
	return r
}
