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

import "fmt"

// ProtocolVersion is the single version byte carried by a frame header. The codec records it
// but never validates it against a direction: rule authors are expected to exercise negotiation
// failure paths with versions a real driver would never send.
type ProtocolVersion uint8

const (
	ProtocolVersion2 = ProtocolVersion(0x2)
	ProtocolVersion3 = ProtocolVersion(0x3)
	ProtocolVersion4 = ProtocolVersion(0x4)
	ProtocolVersion5 = ProtocolVersion(0x5)
)

func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolVersion2:
		return "ProtocolVersion OSS 2"
	case ProtocolVersion3:
		return "ProtocolVersion OSS 3"
	case ProtocolVersion4:
		return "ProtocolVersion OSS 4"
	case ProtocolVersion5:
		return "ProtocolVersion OSS 5"
	}
	return fmt.Sprintf("ProtocolVersion ? [%#.2X]", uint8(v))
}

const FrameHeaderLength = 9

// OpCode is the single opcode byte that distinguishes the kind of payload a frame carries.
// The codec does not enforce direction-correctness: a rule may forge any opcode to either side.
type OpCode uint8

const (
	OpCodeError         = OpCode(0x00)
	OpCodeStartup       = OpCode(0x01)
	OpCodeReady         = OpCode(0x02)
	OpCodeAuthenticate  = OpCode(0x03)
	OpCodeOptions       = OpCode(0x05)
	OpCodeSupported     = OpCode(0x06)
	OpCodeQuery         = OpCode(0x07)
	OpCodeResult        = OpCode(0x08)
	OpCodePrepare       = OpCode(0x09)
	OpCodeExecute       = OpCode(0x0A)
	OpCodeRegister      = OpCode(0x0B)
	OpCodeEvent         = OpCode(0x0C)
	OpCodeBatch         = OpCode(0x0D)
	OpCodeAuthChallenge = OpCode(0x0E)
	OpCodeAuthResponse  = OpCode(0x0F)
	OpCodeAuthSuccess   = OpCode(0x10)
)

func (c OpCode) String() string {
	switch c {
	case OpCodeError:
		return "OpCode ERROR [0x00]"
	case OpCodeStartup:
		return "OpCode STARTUP [0x01]"
	case OpCodeReady:
		return "OpCode READY [0x02]"
	case OpCodeAuthenticate:
		return "OpCode AUTHENTICATE [0x03]"
	case OpCodeOptions:
		return "OpCode OPTIONS [0x05]"
	case OpCodeSupported:
		return "OpCode SUPPORTED [0x06]"
	case OpCodeQuery:
		return "OpCode QUERY [0x07]"
	case OpCodeResult:
		return "OpCode RESULT [0x08]"
	case OpCodePrepare:
		return "OpCode PREPARE [0x09]"
	case OpCodeExecute:
		return "OpCode EXECUTE [0x0A]"
	case OpCodeRegister:
		return "OpCode REGISTER [0x0B]"
	case OpCodeEvent:
		return "OpCode EVENT [0x0C]"
	case OpCodeBatch:
		return "OpCode BATCH [0x0D]"
	case OpCodeAuthChallenge:
		return "OpCode AUTH_CHALLENGE [0x0E]"
	case OpCodeAuthResponse:
		return "OpCode AUTH_RESPONSE [0x0F]"
	case OpCodeAuthSuccess:
		return "OpCode AUTH_SUCCESS [0x10]"
	}
	return fmt.Sprintf("OpCode ? [%#.2X]", uint8(c))
}

// HeaderFlag is the bitmask occupying the second byte of a frame header.
type HeaderFlag uint8

const (
	HeaderFlagCompressed    = HeaderFlag(0x01)
	HeaderFlagTracing       = HeaderFlag(0x02)
	HeaderFlagCustomPayload = HeaderFlag(0x04)
	HeaderFlagWarning       = HeaderFlag(0x08)
	HeaderFlagUseBeta       = HeaderFlag(0x10)
)

func (f HeaderFlag) Add(other HeaderFlag) HeaderFlag {
	return f | other
}

func (f HeaderFlag) Remove(other HeaderFlag) HeaderFlag {
	return f &^ other
}

func (f HeaderFlag) Contains(other HeaderFlag) bool {
	return f&other != 0
}

func (f HeaderFlag) String() string {
	return fmt.Sprintf("HeaderFlag [%#.8b]", uint8(f))
}

// ErrorCode is the 4-byte code carried in the body of an ERROR frame. rules.ForgeError
// accepts any value here; these constants are the ones a real node would send, kept so rule
// authors can forge realistic errors without memorizing the wire values.
type ErrorCode uint32

const (
	ErrorCodeServerError         = ErrorCode(0x00000000)
	ErrorCodeProtocolError       = ErrorCode(0x0000000A)
	ErrorCodeAuthenticationError = ErrorCode(0x00000100)
	ErrorCodeUnavailable         = ErrorCode(0x00001000)
	ErrorCodeOverloaded          = ErrorCode(0x00001001)
	ErrorCodeIsBootstrapping     = ErrorCode(0x00001002)
	ErrorCodeTruncateError       = ErrorCode(0x00001003)
	ErrorCodeWriteTimeout        = ErrorCode(0x00001100)
	ErrorCodeReadTimeout         = ErrorCode(0x00001200)
	ErrorCodeReadFailure         = ErrorCode(0x00001300)
	ErrorCodeFunctionFailure     = ErrorCode(0x00001400)
	ErrorCodeWriteFailure        = ErrorCode(0x00001500)
	ErrorCodeSyntaxError         = ErrorCode(0x00002000)
	ErrorCodeUnauthorized        = ErrorCode(0x00002100)
	ErrorCodeInvalid             = ErrorCode(0x00002200)
	ErrorCodeConfigError         = ErrorCode(0x00002300)
	ErrorCodeAlreadyExists       = ErrorCode(0x00002400)
	ErrorCodeUnprepared          = ErrorCode(0x00002500)
)

func (c ErrorCode) String() string {
	return fmt.Sprintf("ErrorCode [%#.8X]", uint32(c))
}

// Compression records what a STARTUP frame negotiated for the COMPRESSION header flag. The core
// codec never compresses or decompresses bodies; this is only used by the inspect package to
// best-effort decode captured bodies for human-readable feedback logging.
type Compression string

const (
	CompressionNone   Compression = "NONE"
	CompressionLz4    Compression = "LZ4"
	CompressionSnappy Compression = "SNAPPY"
)
