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

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nalgeon/cqlmitm/frame"
	"github.com/nalgeon/cqlmitm/primitive"
	"github.com/nalgeon/cqlmitm/rules"
)

// fakeNode listens on 127.0.0.1:0 and answers every frame it receives,
// whatever its opcode, with a READY frame on the same stream id, standing
// in for the real database node
// behind the proxy.
type fakeNode struct {
	ln net.Listener
}

func startFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fn := &fakeNode{ln: ln}
	go fn.serve()
	return fn
}

func (fn *fakeNode) serve() {
	for {
		conn, err := fn.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			for {
				f, err := frame.DecodeFrame(conn)
				if err != nil {
					return
				}
				ready := frame.New(f.Header.Version, 0, f.Header.StreamId, primitive.OpCodeReady, nil)
				if err := frame.WriteFrame(ready, conn); err != nil {
					return
				}
			}
		}()
	}
}

func (fn *fakeNode) addr() string {
	return fn.ln.Addr().String()
}

func (fn *fakeNode) close() {
	_ = fn.ln.Close()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestProxy_PassThroughEndToEnd(t *testing.T) {
	node := startFakeNode(t)
	defer node.close()

	proxyAddr := freeAddr(t)
	cfg := NewConfig(NodeConfig{RealAddress: node.addr(), ProxyAddress: proxyAddr})
	p := New(cfg)
	require.NoError(t, p.Start())
	defer p.Shutdown()

	driver, err := net.Dial("tcp", proxyAddr)
	require.NoError(t, err)
	defer driver.Close()

	startup := frame.New(primitive.ProtocolVersion4, 0, 1, primitive.OpCodeStartup, nil)
	require.NoError(t, frame.WriteFrame(startup, driver))

	_ = driver.SetReadDeadline(time.Now().Add(time.Second))
	got, err := frame.DecodeFrame(driver)
	require.NoError(t, err)
	assert.Equal(t, primitive.OpCodeReady, got.Header.OpCode)
	assert.Equal(t, int16(1), got.Header.StreamId)
}

func TestProxy_RunningNodesReportsListening(t *testing.T) {
	node := startFakeNode(t)
	defer node.close()

	proxyAddr := freeAddr(t)
	p := New(NewConfig(NodeConfig{RealAddress: node.addr(), ProxyAddress: proxyAddr}))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	statuses := p.RunningNodes()
	require.Len(t, statuses, 1)
	assert.Equal(t, proxyAddr, statuses[0].ProxyAddress)
	assert.True(t, statuses[0].Listening)
	assert.False(t, statuses[0].Draining)
}

func TestProxy_ReconfigureDropsSubsequentQueries(t *testing.T) {
	node := startFakeNode(t)
	defer node.close()

	proxyAddr := freeAddr(t)
	p := New(NewConfig(NodeConfig{RealAddress: node.addr(), ProxyAddress: proxyAddr}))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	driver, err := net.Dial("tcp", proxyAddr)
	require.NoError(t, err)
	defer driver.Close()

	// give the accept loop a moment to spawn the worker before reconfigure
	time.Sleep(20 * time.Millisecond)

	dropQuery := rules.NewRuleSet(rules.Rule{
		Condition: rules.OpcodeEquals{OpCode: primitive.OpCodeQuery},
		Reaction:  rules.DropFrame(),
	})
	require.NoError(t, p.Reconfigure(SelectorAll, dropQuery, rules.Empty()))

	q := frame.New(primitive.ProtocolVersion4, 0, 2, primitive.OpCodeQuery, []byte("x"))
	require.NoError(t, frame.WriteFrame(q, driver))

	_ = driver.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	buf := make([]byte, 1)
	_, err = driver.Read(buf)
	netErr, ok := err.(net.Error)
	require.True(t, ok)
	assert.True(t, netErr.Timeout(), "dropped query should never be echoed back")
}

func TestProxy_ReconfigureRejectsInvalidRuleSet(t *testing.T) {
	node := startFakeNode(t)
	defer node.close()

	proxyAddr := freeAddr(t)
	p := New(NewConfig(NodeConfig{RealAddress: node.addr(), ProxyAddress: proxyAddr}))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	invalid := rules.NewRuleSet(rules.Rule{
		Condition: rules.RandomWithProbability{P: 2},
		Reaction:  rules.DropFrame(),
	})
	err := p.Reconfigure(SelectorAll, invalid, rules.Empty())
	assert.Error(t, err)
}

func TestProxy_ReconfigureUnknownSelector(t *testing.T) {
	node := startFakeNode(t)
	defer node.close()

	proxyAddr := freeAddr(t)
	p := New(NewConfig(NodeConfig{RealAddress: node.addr(), ProxyAddress: proxyAddr}))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	err := p.Reconfigure("127.0.0.1:1", rules.Empty(), rules.Empty())
	assert.Error(t, err)
	var unknown *NodeSelectorUnknown
	assert.ErrorAs(t, err, &unknown)
}

func TestProxy_ConnectFailedClosesDriverSocket(t *testing.T) {
	unreachable := freeAddr(t) // nothing listens here
	proxyAddr := freeAddr(t)
	p := New(NewConfig(NodeConfig{RealAddress: unreachable, ProxyAddress: proxyAddr}))
	require.NoError(t, p.Start())
	defer p.Shutdown()

	driver, err := net.Dial("tcp", proxyAddr)
	require.NoError(t, err)
	defer driver.Close()

	_ = driver.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = driver.Read(buf)
	assert.Error(t, err, "driver socket should be closed when the node is unreachable")
}

func TestProxy_ShutdownStopsAccepting(t *testing.T) {
	node := startFakeNode(t)
	defer node.close()

	proxyAddr := freeAddr(t)
	p := New(NewConfig(NodeConfig{RealAddress: node.addr(), ProxyAddress: proxyAddr}))
	require.NoError(t, p.Start())

	driver, err := net.Dial("tcp", proxyAddr)
	require.NoError(t, err)
	defer driver.Close()

	p.Shutdown()

	_, err = net.DialTimeout("tcp", proxyAddr, 200*time.Millisecond)
	assert.Error(t, err, "listener should no longer accept after shutdown")
}
