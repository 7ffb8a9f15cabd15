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

package frame

import "fmt"

// FrameTooLarge is returned by DecodeHeader when the declared body length
// exceeds MaxBodyLength. The worker treats it as fatal for the connection.
type FrameTooLarge struct {
	BodyLength int32
}

func (e *FrameTooLarge) Error() string {
	return fmt.Sprintf("frame body too large: %d bytes (max %d)", e.BodyLength, MaxBodyLength)
}

// MalformedHeader is returned by DecodeHeader when the header bytes cannot
// be interpreted, for example a negative body length.
type MalformedHeader struct {
	Reason string
}

func (e *MalformedHeader) Error() string {
	return fmt.Sprintf("malformed frame header: %s", e.Reason)
}

// UnexpectedEof is returned by DecodeBody when the source closes or errors
// before the full body could be read. A short header is reported by
// DecodeHeader as the wrapped read error instead.
type UnexpectedEof struct {
	Expected int
	Got      int
	While    string
}

func (e *UnexpectedEof) Error() string {
	return fmt.Sprintf("unexpected EOF while reading %s: expected %d bytes, got %d", e.While, e.Expected, e.Got)
}
