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
	"fmt"
	"io"

	"github.com/nalgeon/cqlmitm/primitive"
)

// DecodeFrame reads exactly one frame from source: a 9-byte header followed
// by BodyLength opaque bytes. It never compresses or decompresses the body;
// a COMPRESSION flag is recorded but the body is passed through untouched.
func DecodeFrame(source io.Reader) (*Frame, error) {
	header, err := DecodeHeader(source)
	if err != nil {
		return nil, fmt.Errorf("cannot decode frame header: %w", err)
	}
	body, err := DecodeBody(header, source)
	if err != nil {
		return nil, fmt.Errorf("cannot decode frame body: %w", err)
	}
	return &Frame{Header: header, Body: body}, nil
}

// DecodeHeader reads the 9-byte CQL header, leaving the body unread. Callers
// must follow with DecodeBody to consume exactly BodyLength bytes before
// reading the next frame from the same stream.
func DecodeHeader(source io.Reader) (*Header, error) {
	version, err := primitive.ReadByte(source)
	if err != nil {
		return nil, fmt.Errorf("cannot decode header version: %w", err)
	}
	flags, err := primitive.ReadByte(source)
	if err != nil {
		return nil, fmt.Errorf("cannot decode header flags: %w", err)
	}
	streamId, err := primitive.ReadStreamId(source)
	if err != nil {
		return nil, fmt.Errorf("cannot decode header stream id: %w", err)
	}
	opCode, err := primitive.ReadByte(source)
	if err != nil {
		return nil, fmt.Errorf("cannot decode header opcode: %w", err)
	}
	bodyLength, err := primitive.ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot decode header body length: %w", err)
	}
	if bodyLength < 0 {
		return nil, &MalformedHeader{Reason: fmt.Sprintf("negative body length: %d", bodyLength)}
	}
	if bodyLength > MaxBodyLength {
		return nil, &FrameTooLarge{BodyLength: bodyLength}
	}
	return &Header{
		Version:    primitive.ProtocolVersion(version),
		Flags:      primitive.HeaderFlag(flags),
		StreamId:   streamId,
		OpCode:     primitive.OpCode(opCode),
		BodyLength: bodyLength,
	}, nil
}

// DecodeBody reads exactly header.BodyLength opaque bytes from source.
func DecodeBody(header *Header, source io.Reader) ([]byte, error) {
	if header.BodyLength == 0 {
		return []byte{}, nil
	}
	count := int64(header.BodyLength)
	buf := bytes.NewBuffer(make([]byte, 0, count))
	written, err := io.CopyN(buf, source, count)
	if err != nil {
		return nil, &UnexpectedEof{Expected: int(count), Got: int(written), While: "frame body"}
	}
	return buf.Bytes(), nil
}

// EncodeFrame writes 9+len(Body) bytes to dest: the header followed by the
// opaque body verbatim. BodyLength is recomputed from len(frame.Body)
// rather than trusted from the header, so forged frames never need their
// length field maintained by hand.
func EncodeFrame(frame *Frame) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(primitive.FrameHeaderLength + len(frame.Body))
	header := *frame.Header
	header.BodyLength = int32(len(frame.Body))
	if err := EncodeHeader(&header, buf); err != nil {
		return nil, fmt.Errorf("cannot encode frame header: %w", err)
	}
	if _, err := buf.Write(frame.Body); err != nil {
		return nil, fmt.Errorf("cannot write frame body: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFrame encodes and writes frame directly to dest.
func WriteFrame(frame *Frame, dest io.Writer) error {
	encoded, err := EncodeFrame(frame)
	if err != nil {
		return err
	}
	if _, err := dest.Write(encoded); err != nil {
		return fmt.Errorf("cannot write frame: %w", err)
	}
	return nil
}

// EncodeHeader writes the 9-byte header to dest.
func EncodeHeader(header *Header, dest io.Writer) error {
	if err := primitive.WriteByte(uint8(header.Version), dest); err != nil {
		return fmt.Errorf("cannot encode header version: %w", err)
	}
	if err := primitive.WriteByte(uint8(header.Flags), dest); err != nil {
		return fmt.Errorf("cannot encode header flags: %w", err)
	}
	if err := primitive.WriteStreamId(header.StreamId, dest); err != nil {
		return fmt.Errorf("cannot encode header stream id: %w", err)
	}
	if err := primitive.WriteByte(uint8(header.OpCode), dest); err != nil {
		return fmt.Errorf("cannot encode header opcode: %w", err)
	}
	if err := primitive.WriteInt(header.BodyLength, dest); err != nil {
		return fmt.Errorf("cannot encode header body length: %w", err)
	}
	return nil
}
