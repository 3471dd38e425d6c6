//go:build linux

// Package dummy implements a device variant with no real transport: transmit
// logs the frame and raises its IRQ, whose ISR only counts and logs. It exists to smoke
// test the device/IRQ path without any hardware or loopback queueing.
package dummy

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"syscall"

	"github.com/lattice-net/uconet/internal/irq"
	"github.com/lattice-net/uconet/internal/netcore"
)

// Device is a netcore.Device with no backing transport.
type Device struct {
	name  string
	flags atomic.Uint32
	isrs  atomic.Uint64

	engine *netcore.Engine
	irqNum syscall.Signal
}

// New constructs a dummy device, registers it with engine, and requests its
// IRQ line (irq.FirstDeviceIRQ()). Call before engine.Run.
func New(engine *netcore.Engine) (netcore.DeviceHandle, *Device, error) {
	d := &Device{
		name:   fmt.Sprintf("dev%d", netcore.NewDeviceIndex()),
		engine: engine,
		irqNum: irq.FirstDeviceIRQ(),
	}
	h := engine.RegisterDevice(d)
	if err := engine.IRQ.RequestIRQ(d.irqNum, d.isr, 0, d.name, h.Raw()); err != nil {
		return netcore.DeviceHandle{}, nil, err
	}
	slog.Debug("dummy: initialized", "dev", d.name)
	return h, d, nil
}

func (d *Device) Name() string             { return d.name }
func (d *Device) Type() netcore.DeviceType { return netcore.DeviceTypeDummy }
func (d *Device) MTU() uint16              { return 65535 }

func (d *Device) IsUp() bool {
	return netcore.DeviceFlags(d.flags.Load())&netcore.FlagUp != 0
}

func (d *Device) Open() error {
	d.flags.Or(uint32(netcore.FlagUp))
	slog.Debug("dummy: opened", "dev", d.name)
	return nil
}

func (d *Device) Close() error {
	d.flags.And(^uint32(netcore.FlagUp))
	slog.Debug("dummy: closed", "dev", d.name)
	return nil
}

// Transmit logs the frame and raises the device's IRQ. The ISR itself does
// no further work with the frame; no protocol handler is ever invoked from
// a dummy device.
func (d *Device) Transmit(typ uint16, data []byte, _ []byte) error {
	slog.Debug("dummy: transmit", "dev", d.name, "type", typ, "len", len(data))
	return d.engine.IRQ.RaiseIRQ(d.irqNum)
}

func (d *Device) isr(sig syscall.Signal, dev uint32) {
	d.isrs.Add(1)
	slog.Debug("dummy: isr fired", "dev", d.name)
}

// ISRCount returns the number of times the ISR has fired, for tests.
func (d *Device) ISRCount() uint64 { return d.isrs.Load() }

func (d *Device) AddInterface(netcore.Interface) (netcore.InterfaceHandle, error) {
	return netcore.InterfaceHandle{}, netcore.ErrUnsupportedOperation
}

func (d *Device) Interfaces() []netcore.Interface { return nil }
