package netcore

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProtocolTable_UnknownTypeIsDroppedSilently(t *testing.T) {
	var raised atomic.Int32
	table := NewProtocolTable(func() error { raised.Add(1); return nil })

	err := table.InputHandler(DeviceHandle{}, 0x9999, []byte("nope"))
	require.NoError(t, err)
	require.Zero(t, raised.Load())
}

func TestProtocolTable_MatchingTypeQueuesAndRaisesSoftIRQ(t *testing.T) {
	var raised atomic.Int32
	table := NewProtocolTable(func() error { raised.Add(1); return nil })

	var got []byte
	table.Register(0x0800, func(data []byte, _ DeviceHandle) { got = data })

	require.NoError(t, table.InputHandler(DeviceHandle{}, 0x0800, []byte("payload")))
	require.Equal(t, int32(1), raised.Load())

	require.NoError(t, table.SoftIRQHandler())
	require.Equal(t, []byte("payload"), got)
}

func TestProtocolTable_DuplicateRegistrationIsPermissive(t *testing.T) {
	table := NewProtocolTable(func() error { return nil })

	var calls int
	table.Register(0x0800, func([]byte, DeviceHandle) { calls++ })
	table.Register(0x0800, func([]byte, DeviceHandle) { calls++ })

	require.NoError(t, table.InputHandler(DeviceHandle{}, 0x0800, []byte("x")))
	require.NoError(t, table.SoftIRQHandler())
	require.Equal(t, 1, calls, "only the first registered handler for a type should run")
}

func TestProtocolTable_DrainsInFIFOOrderPerType(t *testing.T) {
	table := NewProtocolTable(func() error { return nil })

	var order []string
	table.Register(0x0800, func(data []byte, _ DeviceHandle) { order = append(order, string(data)) })

	require.NoError(t, table.InputHandler(DeviceHandle{}, 0x0800, []byte("first")))
	require.NoError(t, table.InputHandler(DeviceHandle{}, 0x0800, []byte("second")))
	require.NoError(t, table.InputHandler(DeviceHandle{}, 0x0800, []byte("third")))

	require.NoError(t, table.SoftIRQHandler())
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestProtocolTable_VisitsProtocolsInRegistrationOrder(t *testing.T) {
	table := NewProtocolTable(func() error { return nil })

	var order []string
	table.Register(0x0800, func([]byte, DeviceHandle) { order = append(order, "ip") })
	table.Register(0x0806, func([]byte, DeviceHandle) { order = append(order, "arp") })

	require.NoError(t, table.InputHandler(DeviceHandle{}, 0x0806, []byte("a")))
	require.NoError(t, table.InputHandler(DeviceHandle{}, 0x0800, []byte("b")))

	require.NoError(t, table.SoftIRQHandler())
	require.Equal(t, []string{"ip", "arp"}, order)
}
