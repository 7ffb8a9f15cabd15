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

package primitive

import "io"

// ReadStreamId reads a stream id from the given source as a 16-bit
// integer. The header codec always reads a fixed 9-byte header regardless
// of the version byte it finds there, so the stream id is always 2 bytes:
// there is no version-dependent branching here, on purpose, so a forged or
// unknown version byte still leaves the rest of the header parseable.
func ReadStreamId(source io.Reader) (int16, error) {
	id, err := ReadShort(source)
	return int16(id), err
}

// WriteStreamId writes the given stream id as a 16-bit integer, mirroring
// ReadStreamId.
func WriteStreamId(streamId int16, dest io.Writer) error {
	return WriteShort(uint16(streamId), dest)
}
