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

// Package frame implements the CQL binary protocol at the granularity the
// interception engine needs: a 9-byte header plus an opaque body. It never
// interprets the body beyond the few fields rule conditions match on.
package frame

import (
	"encoding/hex"
	"fmt"

	"github.com/nalgeon/cqlmitm/primitive"
)

// MaxBodyLength is the largest body the codec accepts before reporting
// FrameTooLarge. 256 MiB, matching the limit the CQL protocol itself imposes
// on frame bodies.
const MaxBodyLength = 256 * 1024 * 1024

// Header is the 9-byte CQL frame header: version, flags, stream id, opcode,
// and body length. The codec records the version byte as given and never
// validates it against a request/response direction, so that rule authors
// can exercise protocol-negotiation failure paths with any version.
type Header struct {
	Version    primitive.ProtocolVersion
	Flags      primitive.HeaderFlag
	StreamId   int16
	OpCode     primitive.OpCode
	BodyLength int32
}

func (h *Header) String() string {
	return fmt.Sprintf("{version: %v, flags: %v, stream id: %v, opcode: %v, body length: %v}",
		h.Version, h.Flags, h.StreamId, h.OpCode, h.BodyLength)
}

// Frame is an immutable carrier of one CQL frame: a header plus an opaque
// body. Its serialized length always equals 9 + len(Body).
type Frame struct {
	Header *Header
	Body   []byte
}

// New builds a Frame with BodyLength set from the given body.
func New(version primitive.ProtocolVersion, flags primitive.HeaderFlag, streamId int16, opCode primitive.OpCode, body []byte) *Frame {
	return &Frame{
		Header: &Header{
			Version:    version,
			Flags:      flags,
			StreamId:   streamId,
			OpCode:     opCode,
			BodyLength: int32(len(body)),
		},
		Body: body,
	}
}

// Clone returns a deep copy of this frame: an independent header and an
// independent copy of the body buffer, safe to mutate or enqueue for a
// forged delivery on either side.
func (f *Frame) Clone() *Frame {
	header := *f.Header
	body := make([]byte, len(f.Body))
	copy(body, f.Body)
	return &Frame{Header: &header, Body: body}
}

func (f *Frame) String() string {
	return fmt.Sprintf("{header: %v, body: %d bytes}", f.Header, len(f.Body))
}

// Dump renders the wire-encoded form of this frame as a hex dump, for
// logging and feedback-event display.
func (f *Frame) Dump() (string, error) {
	encoded, err := EncodeFrame(f)
	if err != nil {
		return "", err
	}
	return hex.Dump(encoded), nil
}
