package netcore

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DeviceFlags mirrors the device's operational bitfield.
type DeviceFlags uint16

const (
	FlagUp DeviceFlags = 1 << iota
	FlagLoopback
	FlagBroadcast
	FlagP2P
	FlagNeedARP
)

// DeviceType tags the closed set of device variants. Adding a new driver
// means adding a variant here and a case everywhere DeviceType is
// switched on — deliberate, since the set of devices is small and the
// dispatch is hot.
type DeviceType int

const (
	DeviceTypeDummy DeviceType = iota
	DeviceTypeLoopback
	DeviceTypeEthernet
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeDummy:
		return "dummy"
	case DeviceTypeLoopback:
		return "loopback"
	case DeviceTypeEthernet:
		return "ethernet"
	default:
		return "unknown"
	}
}

// Device is the contract every device variant implements.
type Device interface {
	Name() string
	Type() DeviceType
	MTU() uint16
	IsUp() bool
	Open() error
	Close() error
	Transmit(typ uint16, data []byte, scratch []byte) error
	AddInterface(iface Interface) (InterfaceHandle, error)
	Interfaces() []Interface
}

// DeviceHandle is an opaque, copy-cheap reference into the device table.
// Handles are stable for the process lifetime; deregistration is not
// supported.
type DeviceHandle struct {
	index uint32
}

// Raw returns the handle's underlying index, for drivers that must pass it
// through irq.Handler's uint32 dev parameter and reconstruct the handle in
// their ISR via DeviceHandleFromRaw.
func (h DeviceHandle) Raw() uint32 { return h.index }

// DeviceHandleFromRaw reconstructs a DeviceHandle from a raw index
// previously obtained from Raw.
func DeviceHandleFromRaw(raw uint32) DeviceHandle { return DeviceHandle{index: raw} }

var deviceIndexCounter atomic.Uint32

// NewDeviceIndex returns the next value in the process-wide monotonic
// counter drivers use to name themselves ("devN").
func NewDeviceIndex() uint32 {
	return deviceIndexCounter.Add(1) - 1
}

// DeviceTable is the append-only registry of devices, addressed by stable
// DeviceHandle. It is safe for concurrent registration, but by contract all
// registration happens on the user goroutine before the interrupt goroutine
// starts (see package irq); after that point only Output/Resolve are called,
// and the backing slice is never resized, so lock contention is limited to
// the brief registration phase in practice.
type DeviceTable struct {
	mu      sync.Mutex
	devices []Device
}

// NewDeviceTable returns an empty device table.
func NewDeviceTable() *DeviceTable {
	return &DeviceTable{}
}

// Register assigns the next device index, stores dev, and returns a handle
// for it.
func (t *DeviceTable) Register(dev Device) DeviceHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := uint32(len(t.devices))
	t.devices = append(t.devices, dev)
	slog.Debug("netcore: device registered", "name", dev.Name(), "type", dev.Type(), "index", idx)
	return DeviceHandle{index: idx}
}

// Resolve returns the device h addresses.
func (t *DeviceTable) Resolve(h DeviceHandle) (Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(h.index) >= len(t.devices) {
		return nil, wrap(ErrUnknownDevice, fmt.Sprintf("handle index %d out of range", h.index))
	}
	return t.devices[h.index], nil
}

// Output resolves h, requires the device to be up and data to fit its MTU,
// and delegates to the device's Transmit.
func (t *DeviceTable) Output(h DeviceHandle, typ uint16, data, scratch []byte) error {
	dev, err := t.Resolve(h)
	if err != nil {
		return err
	}
	if !dev.IsUp() {
		metricDeviceTxErrors.WithLabelValues(dev.Name(), "not_up").Inc()
		return wrap(ErrDeviceNotUp, fmt.Sprintf("dev=%s", dev.Name()))
	}
	if len(data) > int(dev.MTU()) {
		metricDeviceTxErrors.WithLabelValues(dev.Name(), "too_large").Inc()
		return wrap(ErrDataTooLarge, fmt.Sprintf("dev=%s len=%d mtu=%d", dev.Name(), len(data), dev.MTU()))
	}
	if err := dev.Transmit(typ, data, scratch); err != nil {
		metricDeviceTxErrors.WithLabelValues(dev.Name(), "transmit_error").Inc()
		return err
	}
	metricDeviceTxBytes.WithLabelValues(dev.Name()).Add(float64(len(data)))
	return nil
}

// OpenAll opens every registered device, logging each transition.
func (t *DeviceTable) OpenAll() error {
	t.mu.Lock()
	devices := append([]Device(nil), t.devices...)
	t.mu.Unlock()

	for _, dev := range devices {
		if err := dev.Open(); err != nil {
			return err
		}
		slog.Info("netcore: device opened", "dev", dev.Name(), "up", dev.IsUp())
	}
	return nil
}

// CloseAll closes every registered device, logging each transition.
func (t *DeviceTable) CloseAll() error {
	t.mu.Lock()
	devices := append([]Device(nil), t.devices...)
	t.mu.Unlock()

	for _, dev := range devices {
		if err := dev.Close(); err != nil {
			return err
		}
		slog.Info("netcore: device closed", "dev", dev.Name(), "up", dev.IsUp())
	}
	return nil
}

// All returns every registered device handle paired with its device, for
// callers that must scan the whole table.
func (t *DeviceTable) All() []struct {
	Handle DeviceHandle
	Device Device
} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]struct {
		Handle DeviceHandle
		Device Device
	}, len(t.devices))
	for i, dev := range t.devices {
		out[i].Handle = DeviceHandle{index: uint32(i)}
		out[i].Device = dev
	}
	return out
}
