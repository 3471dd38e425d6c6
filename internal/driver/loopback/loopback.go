//go:build linux

// Package loopback implements the loopback device variant: transmit pushes
// into a bounded ring queue and raises the device's IRQ; the ISR drains the
// queue back through the protocol table's InputHandler.
package loopback

import (
	"fmt"
	"log/slog"
	"sync"
	"syscall"

	"github.com/lattice-net/uconet/internal/irq"
	"github.com/lattice-net/uconet/internal/netcore"
	"github.com/lattice-net/uconet/internal/squeue"
)

// QueueLimit is the loopback device's fixed reception queue capacity.
const QueueLimit = 16

type frame struct {
	typ  uint16
	data []byte
}

// Device is a netcore.Device backed by a bounded ring queue instead of any
// real transport: what goes out comes back in on the same device.
type Device struct {
	name string

	mu     sync.Mutex
	flags  netcore.DeviceFlags
	ifaces []netcore.Interface
	queue  *squeue.Queue[frame]

	engine *netcore.Engine
	handle netcore.DeviceHandle
	irqNum syscall.Signal
}

// New constructs a loopback device, registers it with engine, requests its
// IRQ (irq.FirstDeviceIRQ()+1, Shared), and attaches a single
// 127.0.0.1/255.0.0.0 IPv4 interface.
func New(engine *netcore.Engine) (netcore.DeviceHandle, *Device, error) {
	d := &Device{
		name:   fmt.Sprintf("dev%d", netcore.NewDeviceIndex()),
		flags:  netcore.FlagLoopback,
		queue:  squeue.New[frame](QueueLimit),
		engine: engine,
		irqNum: irq.FirstDeviceIRQ() + 1,
	}
	h := engine.RegisterDevice(d)
	d.handle = h

	if err := engine.IRQ.RequestIRQ(d.irqNum, d.isr, irq.Shared, d.name, h.Raw()); err != nil {
		return netcore.DeviceHandle{}, nil, err
	}
	if err := engine.RegisterInterface(h, netcore.NewIPInterface(0x7f000001, 0xff000000)); err != nil {
		return netcore.DeviceHandle{}, nil, err
	}

	slog.Debug("loopback: initialized", "dev", d.name)
	return h, d, nil
}

func (d *Device) Name() string             { return d.name }
func (d *Device) Type() netcore.DeviceType { return netcore.DeviceTypeLoopback }
func (d *Device) MTU() uint16              { return 65535 }

func (d *Device) IsUp() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags&netcore.FlagUp != 0
}

func (d *Device) Open() error {
	d.mu.Lock()
	d.flags |= netcore.FlagUp
	d.mu.Unlock()
	slog.Debug("loopback: opened", "dev", d.name)
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	d.flags &^= netcore.FlagUp
	d.mu.Unlock()
	slog.Debug("loopback: closed", "dev", d.name)
	return nil
}

// Transmit copies data, pushes (typ, copy) into the bounded queue (evicting
// the oldest frame if full), and raises the device's IRQ.
func (d *Device) Transmit(typ uint16, data []byte, _ []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	d.mu.Lock()
	d.queue.Push(frame{typ: typ, data: cp})
	depth := d.queue.Len()
	d.mu.Unlock()

	slog.Debug("loopback: queued", "dev", d.name, "type", typ, "len", len(data), "depth", depth)
	return d.engine.IRQ.RaiseIRQ(d.irqNum)
}

// isr drains every queued frame back through the protocol table, in FIFO
// order, on the interrupt goroutine.
func (d *Device) isr(sig syscall.Signal, dev uint32) {
	for {
		d.mu.Lock()
		f, ok := d.queue.PopFront()
		d.mu.Unlock()
		if !ok {
			return
		}
		if err := d.engine.Protocols.InputHandler(d.handle, f.typ, f.data); err != nil {
			slog.Error("loopback: input handler failed", "dev", d.name, "error", err)
		}
	}
}

func (d *Device) AddInterface(iface netcore.Interface) (netcore.InterfaceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ifaces = append(d.ifaces, iface)
	return netcore.InterfaceHandle{Device: d, Slot: len(d.ifaces) - 1, Family: iface.Family()}, nil
}

func (d *Device) Interfaces() []netcore.Interface {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]netcore.Interface(nil), d.ifaces...)
}
