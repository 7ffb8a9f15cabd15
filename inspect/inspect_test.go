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

package inspect

import (
	"bytes"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nalgeon/cqlmitm/frame"
	"github.com/nalgeon/cqlmitm/primitive"
)

func TestDecompressBody_SnappyRoundTrip(t *testing.T) {
	original := []byte("SELECT * FROM keyspace.table")
	compressed := snappy.Encode(nil, original)
	f := frame.New(primitive.ProtocolVersion4, primitive.HeaderFlagCompressed, 1, primitive.OpCodeQuery, compressed)

	got := DecompressBody(f, primitive.CompressionSnappy)
	assert.Equal(t, original, got)
}

func TestDecompressBody_NoCompressionFlagReturnsBodyUnchanged(t *testing.T) {
	body := []byte("not compressed")
	f := frame.New(primitive.ProtocolVersion4, 0, 1, primitive.OpCodeQuery, body)

	got := DecompressBody(f, primitive.CompressionSnappy)
	assert.Equal(t, body, got)
}

func TestDecompressBody_CorruptBodyFallsBackToRawBytes(t *testing.T) {
	garbage := []byte{0xff, 0xff, 0xff}
	f := frame.New(primitive.ProtocolVersion4, primitive.HeaderFlagCompressed, 1, primitive.OpCodeQuery, garbage)

	got := DecompressBody(f, primitive.CompressionSnappy)
	assert.Equal(t, garbage, got)
}

func TestDump_IncludesHeaderAndHexBody(t *testing.T) {
	f := frame.New(primitive.ProtocolVersion4, 0, 7, primitive.OpCodeQuery, []byte("hi"))
	out := Dump(f, primitive.CompressionNone)
	require.NotEmpty(t, out)
	assert.Contains(t, out, "stream id: 7")
	assert.True(t, bytes.Contains([]byte(out), []byte("68 69")), "expected hex bytes of \"hi\" in dump")
}
