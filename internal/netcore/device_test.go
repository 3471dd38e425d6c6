package netcore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	name       string
	typ        DeviceType
	mtu        uint16
	up         bool
	ifaces     []Interface
	transmits  []struct{ typ uint16; data []byte }
	txErr      error
}

func (d *fakeDevice) Name() string      { return d.name }
func (d *fakeDevice) Type() DeviceType  { return d.typ }
func (d *fakeDevice) MTU() uint16       { return d.mtu }
func (d *fakeDevice) IsUp() bool        { return d.up }
func (d *fakeDevice) Open() error       { d.up = true; return nil }
func (d *fakeDevice) Close() error      { d.up = false; return nil }
func (d *fakeDevice) Transmit(typ uint16, data []byte, _ []byte) error {
	if d.txErr != nil {
		return d.txErr
	}
	d.transmits = append(d.transmits, struct {
		typ  uint16
		data []byte
	}{typ, data})
	return nil
}
func (d *fakeDevice) AddInterface(iface Interface) (InterfaceHandle, error) {
	d.ifaces = append(d.ifaces, iface)
	return InterfaceHandle{Device: d, Slot: len(d.ifaces) - 1, Family: iface.Family()}, nil
}
func (d *fakeDevice) Interfaces() []Interface { return d.ifaces }

func TestDeviceTable_RegisterAndResolve(t *testing.T) {
	table := NewDeviceTable()
	dev := &fakeDevice{name: "dev0", mtu: 1500, up: true}
	h := table.Register(dev)

	got, err := table.Resolve(h)
	require.NoError(t, err)
	require.Same(t, dev, got)
}

func TestDeviceTable_ResolveUnknownHandle(t *testing.T) {
	table := NewDeviceTable()
	_, err := table.Resolve(DeviceHandle{})
	require.ErrorIs(t, err, ErrUnknownDevice)
}

func TestDeviceTable_OutputRequiresDeviceUp(t *testing.T) {
	table := NewDeviceTable()
	dev := &fakeDevice{name: "dev0", mtu: 1500}
	h := table.Register(dev)

	err := table.Output(h, 0x0800, []byte("hi"), nil)
	require.ErrorIs(t, err, ErrDeviceNotUp)
}

func TestDeviceTable_OutputEnforcesMTU(t *testing.T) {
	table := NewDeviceTable()
	dev := &fakeDevice{name: "dev0", mtu: 1000, up: true}
	h := table.Register(dev)

	err := table.Output(h, 0x0800, make([]byte, 1001), nil)
	require.ErrorIs(t, err, ErrDataTooLarge)
}

func TestDeviceTable_OutputAllowsPayloadExactlyAtMTU(t *testing.T) {
	table := NewDeviceTable()
	dev := &fakeDevice{name: "dev0", mtu: 1000, up: true}
	h := table.Register(dev)

	err := table.Output(h, 0x0800, make([]byte, 1000), nil)
	require.NoError(t, err)
	require.Len(t, dev.transmits, 1)
	require.Len(t, dev.transmits[0].data, 1000)
}

func TestDeviceTable_OutputDelegatesToTransmit(t *testing.T) {
	table := NewDeviceTable()
	dev := &fakeDevice{name: "dev0", mtu: 1500, up: true}
	h := table.Register(dev)

	require.NoError(t, table.Output(h, 0x0800, []byte("hello"), nil))
	require.Len(t, dev.transmits, 1)
	require.Equal(t, uint16(0x0800), dev.transmits[0].typ)
}

func TestDeviceTable_OutputPropagatesTransmitError(t *testing.T) {
	table := NewDeviceTable()
	dev := &fakeDevice{name: "dev0", mtu: 1500, up: true, txErr: errors.New("boom")}
	h := table.Register(dev)

	err := table.Output(h, 0x0800, []byte("hi"), nil)
	require.Error(t, err)
}

func TestDeviceHandle_RawRoundTrips(t *testing.T) {
	table := NewDeviceTable()
	h := table.Register(&fakeDevice{name: "dev0", mtu: 1500, up: true})
	require.Equal(t, h, DeviceHandleFromRaw(h.Raw()))
}
