//go:build linux

package netcore

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEngine_InputHandlerThroughSoftIRQToProtocolHandler(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Init())

	dev := &fakeDevice{name: "dev0", mtu: 1500}
	h := e.RegisterDevice(dev)

	var calls atomic.Int32
	e.RegisterProtocol(0x0800, func([]byte, DeviceHandle) { calls.Add(1) })

	require.NoError(t, e.Run())
	defer e.Shutdown()

	require.NoError(t, e.Protocols.InputHandler(h, 0x0800, []byte("hi")))
	waitUntil(t, func() bool { return calls.Load() >= 1 })
}

func TestEngine_ShutdownClosesDevicesAfterStoppingIRQ(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Init())

	dev := &fakeDevice{name: "dev0", mtu: 1500}
	e.RegisterDevice(dev)

	require.NoError(t, e.Run())
	require.True(t, dev.IsUp())

	require.NoError(t, e.Shutdown())
	require.False(t, dev.IsUp())
}
