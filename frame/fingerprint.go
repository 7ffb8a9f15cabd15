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

import (
	"bytes"
	"strings"

	"github.com/nalgeon/cqlmitm/primitive"
)

// QueryText extracts the query string from a QUERY or PREPARE body. Both
// opcodes begin their body with a [long string]: a 4-byte big-endian length
// followed by that many bytes of UTF-8. If the body is too short or the
// declared length overruns it, ok is false and callers should fall back to
// matching raw bytes.
func QueryText(f *Frame) (text string, ok bool) {
	if f.Header.OpCode != primitive.OpCodeQuery && f.Header.OpCode != primitive.OpCodePrepare {
		return "", false
	}
	s, err := primitive.ReadLongString(bytes.NewReader(f.Body))
	if err != nil {
		return "", false
	}
	return s, true
}

// ContainsCaseSensitive reports whether needle occurs verbatim in the frame
// body. Used by the BodyContainsCaseSensitive condition.
func ContainsCaseSensitive(f *Frame, needle []byte) bool {
	return bytes.Contains(f.Body, needle)
}

// ContainsCaseInsensitive reports whether needle occurs in the frame body
// ignoring case. It prefers comparing the extracted query text when the
// opcode is QUERY/PREPARE (ASCII case-folding on the full body could
// otherwise corrupt multi-byte UTF-8 sequences in bulk data), falling back
// to a case-insensitive scan of the raw bytes otherwise.
func ContainsCaseInsensitive(f *Frame, needle []byte) bool {
	if text, ok := QueryText(f); ok {
		return strings.Contains(strings.ToLower(text), strings.ToLower(string(needle)))
	}
	return bytes.Contains(bytes.ToLower(f.Body), bytes.ToLower(needle))
}
