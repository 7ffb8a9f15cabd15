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

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadStreamId(t *testing.T) {
	tests := []struct {
		name     string
		source   []byte
		expected int16
	}{
		{"zero stream id", []byte{0, 0}, int16(0)},
		{"positive stream id", []byte{0x7f, 0xff}, math.MaxInt16},
		{"negative stream id", []byte{0x80, 0x00}, math.MinInt16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.NewBuffer(tt.source)
			actual, err := ReadStreamId(buf)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestWriteStreamId(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected []byte
	}{
		{"zero stream id", int16(0), []byte{0, 0}},
		{"positive stream id", math.MaxInt16, []byte{0x7f, 0xff}},
		{"negative stream id", math.MinInt16, []byte{0x80, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			err := WriteStreamId(tt.input, buf)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, buf.Bytes())
		})
	}
}

// TestReadStreamId_IgnoresVersion exercises the simplification this codec
// relies on: the stream id is always 2 bytes, even for a forged or unknown
// version byte elsewhere in the header, so ReadStreamId/WriteStreamId take
// no version parameter at all.
func TestReadStreamId_IgnoresVersion(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01, 0x2c})
	actual, err := ReadStreamId(buf)
	assert.NoError(t, err)
	assert.Equal(t, int16(0x012c), actual)
}
