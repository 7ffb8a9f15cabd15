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

// Package inspect adapts the compression backends for best-effort,
// human-readable display of a captured frame's body on the feedback
// channel. It is never consulted by the core codec or by rule evaluation:
// the frame codec treats a COMPRESSION-flagged body as opaque, and this
// package exists purely to make that opaque body readable in a feedback
// event's string form.
package inspect

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/nalgeon/cqlmitm/compression/lz4"
	"github.com/nalgeon/cqlmitm/compression/snappy"
	"github.com/nalgeon/cqlmitm/frame"
	"github.com/nalgeon/cqlmitm/primitive"
)

// decompressor is the decompress-only shape lz4.BodyCompressor and
// snappy.BodyCompressor both implement.
type decompressor interface {
	Decompress(source io.Reader, dest io.Writer) error
}

func backendFor(negotiated primitive.Compression) decompressor {
	switch negotiated {
	case primitive.CompressionLz4:
		return lz4.BodyCompressor{}
	case primitive.CompressionSnappy:
		return snappy.BodyCompressor{}
	default:
		return nil
	}
}

// DecompressBody best-effort decompresses f's body using the algorithm
// negotiated on this connection's STARTUP frame. If f does not carry the
// COMPRESSION flag, if negotiated is CompressionNone, or if decompression
// fails, it returns f.Body unchanged: this helper never errors, it only
// degrades to the raw bytes.
func DecompressBody(f *frame.Frame, negotiated primitive.Compression) []byte {
	if !f.Header.Flags.Contains(primitive.HeaderFlagCompressed) {
		return f.Body
	}
	backend := backendFor(negotiated)
	if backend == nil {
		return f.Body
	}
	dest := &bytes.Buffer{}
	if err := backend.Decompress(bytes.NewReader(f.Body), dest); err != nil {
		return f.Body
	}
	return dest.Bytes()
}

// Dump renders f for feedback-event display: the header, then a hex dump
// of the body after best-effort decompression. negotiated may be
// CompressionNone if no compression was negotiated on this connection.
func Dump(f *frame.Frame, negotiated primitive.Compression) string {
	body := DecompressBody(f, negotiated)
	return fmt.Sprintf("%v\n%s", f.Header, hex.Dump(body))
}
