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

import "testing"

func TestProtocolVersion_String(t *testing.T) {
	tests := []struct {
		name string
		v    ProtocolVersion
		want string
	}{
		{"v2", ProtocolVersion2, "ProtocolVersion OSS 2"},
		{"v3", ProtocolVersion3, "ProtocolVersion OSS 3"},
		{"v4", ProtocolVersion4, "ProtocolVersion OSS 4"},
		{"v5", ProtocolVersion5, "ProtocolVersion OSS 5"},
		{"unknown", ProtocolVersion(6), "ProtocolVersion ? [0X06]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpCode_String(t *testing.T) {
	tests := []struct {
		name string
		c    OpCode
		want string
	}{
		{"query", OpCodeQuery, "OpCode QUERY [0x07]"},
		{"error", OpCodeError, "OpCode ERROR [0x00]"},
		{"unknown", OpCode(0xEE), "OpCode ? [0XEE]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeaderFlag_AddRemoveContains(t *testing.T) {
	var f HeaderFlag
	f = f.Add(HeaderFlagCompressed)
	if !f.Contains(HeaderFlagCompressed) {
		t.Fatalf("expected flag to contain Compressed")
	}
	f = f.Add(HeaderFlagTracing)
	if !f.Contains(HeaderFlagTracing) || !f.Contains(HeaderFlagCompressed) {
		t.Fatalf("expected flag to contain both Compressed and Tracing")
	}
	f = f.Remove(HeaderFlagCompressed)
	if f.Contains(HeaderFlagCompressed) {
		t.Fatalf("expected flag to no longer contain Compressed")
	}
	if !f.Contains(HeaderFlagTracing) {
		t.Fatalf("expected flag to still contain Tracing")
	}
}
