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

package reactor

import (
	"bytes"
	"context"
	"time"

	"github.com/nalgeon/cqlmitm/feedback"
	"github.com/nalgeon/cqlmitm/frame"
	"github.com/nalgeon/cqlmitm/primitive"
	"github.com/nalgeon/cqlmitm/rules"
)

// Execute enacts the side effects of a matched reaction: it enqueues
// whatever should be written to the addressee's queue, and independently
// publishes a feedback event if the reaction asked for one.
// triggering is the frame that matched; direction says which side it was
// travelling. queue is where any entry is enqueued: the worker passes the
// addressee's queue, or the driver-side queue for a ForgeWithError action.
func Execute(
	ctx context.Context,
	now func() time.Time,
	triggering *frame.Frame,
	direction feedback.Direction,
	ruleIndex int,
	reaction rules.Reaction,
	queue *Queue,
	bus *feedback.Bus,
	workerID string,
) error {
	if reaction.Addressee != nil {
		entry, ok, err := buildEntry(now, triggering, reaction.Addressee)
		if err != nil {
			return err
		}
		if ok {
			queue.Enqueue(ctx, entry)
		}
	}
	if reaction.Feedback != nil {
		evt := feedback.Event{
			WorkerID:  workerID,
			Direction: direction,
			RuleIndex: ruleIndex,
			EventTag:  reaction.Feedback.EventTag,
			Timestamp: now(),
		}
		if reaction.Feedback.IncludeFrame {
			evt.Frame = triggering
		}
		if err := bus.Publish(evt); err != nil {
			return err
		}
	}
	return nil
}

// buildEntry translates a ToAddressee into the Entry to enqueue, or
// (nil, false, nil) when the action is Drop and nothing should be written.
func buildEntry(now func() time.Time, triggering *frame.Frame, addressee *rules.ToAddressee) (Entry, bool, error) {
	releaseAt := now().Add(addressee.Delay)
	switch addressee.Action {
	case rules.Forward:
		return Entry{ReleaseAt: releaseAt, Frame: triggering}, true, nil
	case rules.Drop:
		return Entry{}, false, nil
	case rules.Forge:
		return Entry{ReleaseAt: releaseAt, Frame: addressee.ForgedFrame}, true, nil
	case rules.ForgeWithError:
		f, err := forgeErrorFrame(triggering, addressee.ErrorCode, addressee.ErrorMessage)
		if err != nil {
			return Entry{}, false, err
		}
		return Entry{ReleaseAt: releaseAt, Frame: f}, true, nil
	case rules.CloseConnection:
		return Entry{ReleaseAt: releaseAt, Close: true}, true, nil
	default:
		return Entry{ReleaseAt: releaseAt, Frame: triggering}, true, nil
	}
}

// forgeErrorFrame synthesizes an ERROR frame body as [int code][string msg]
// and keeps the triggering frame's stream id and version so the driver can
// still correlate it with its request.
func forgeErrorFrame(triggering *frame.Frame, code primitive.ErrorCode, msg string) (*frame.Frame, error) {
	body := &bytes.Buffer{}
	if err := primitive.WriteInt(int32(code), body); err != nil {
		return nil, err
	}
	if err := primitive.WriteString(msg, body); err != nil {
		return nil, err
	}
	return frame.New(triggering.Header.Version, triggering.Header.Flags, triggering.Header.StreamId, primitive.OpCodeError, body.Bytes()), nil
}
