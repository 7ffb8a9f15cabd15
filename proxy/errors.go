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

package proxy

import "fmt"

// ListenFailed is raised during Start when a node's proxy_address cannot be
// bound. Surfaced synchronously to the caller of Start.
type ListenFailed struct {
	ProxyAddress string
	Err          error
}

func (e *ListenFailed) Error() string {
	return fmt.Sprintf("listen on %s failed: %v", e.ProxyAddress, e.Err)
}

func (e *ListenFailed) Unwrap() error {
	return e.Err
}

// ConnectFailed is raised on accept when the outbound connection to a
// node's real_address cannot be established. The driver-side socket is
// closed immediately; the error is logged and a feedback event tagged
// "connect-failed" is published, and the listener keeps accepting.
type ConnectFailed struct {
	ProxyAddress string
	RealAddress  string
	Err          error
}

func (e *ConnectFailed) Error() string {
	return fmt.Sprintf("connect to node %s (behind %s) failed: %v", e.RealAddress, e.ProxyAddress, e.Err)
}

func (e *ConnectFailed) Unwrap() error {
	return e.Err
}

// NodeSelectorUnknown is raised by Reconfigure when the node_selector names
// a proxy_address this proxy does not have a node bound to.
type NodeSelectorUnknown struct {
	Selector string
}

func (e *NodeSelectorUnknown) Error() string {
	return fmt.Sprintf("no node bound to proxy address %q", e.Selector)
}
