//go:build linux

package netcore

import (
	"log/slog"

	"github.com/lattice-net/uconet/internal/irq"
)

// Engine wires the device table, protocol table, and interface table to a
// single IRQ subsystem: the seam where the soft-IRQ raised by InputHandler
// and the soft-IRQ handler drained by the interrupt goroutine are, in fact,
// the same protocol table.
type Engine struct {
	IRQ        *irq.Subsystem
	Devices    *DeviceTable
	Protocols  *ProtocolTable
	Interfaces *InterfaceTable
}

// NewEngine constructs an unstarted engine. Call Init then Run.
func NewEngine() *Engine {
	e := &Engine{Devices: NewDeviceTable()}
	e.Interfaces = NewInterfaceTable(e.Devices)
	e.Protocols = NewProtocolTable(func() error { return e.IRQ.RaiseIRQ(irq.Softirq) })
	e.IRQ = irq.New(e.Protocols.SoftIRQHandler)
	return e
}

// Init prepares the IRQ subsystem. Call before registering devices that
// request their own IRQ line.
func (e *Engine) Init() error {
	return e.IRQ.Init()
}

// Run starts the interrupt goroutine and opens every registered device.
// Devices must be registered, and any IRQs they need requested, before Run.
func (e *Engine) Run() error {
	if err := e.IRQ.Run(); err != nil {
		return err
	}
	return e.Devices.OpenAll()
}

// Shutdown stops the interrupt goroutine, then closes every device, so no
// ISR can run against a device that is already closing.
func (e *Engine) Shutdown() error {
	if err := e.IRQ.Shutdown(); err != nil {
		return err
	}
	if err := e.Devices.CloseAll(); err != nil {
		return err
	}
	slog.Info("netcore: shut down")
	return nil
}

// RegisterDevice adds dev to the device table and returns its handle.
func (e *Engine) RegisterDevice(dev Device) DeviceHandle {
	return e.Devices.Register(dev)
}

// Output transmits data of type typ on the device h resolves to.
func (e *Engine) Output(h DeviceHandle, typ uint16, data, scratch []byte) error {
	return e.Devices.Output(h, typ, data, scratch)
}

// RegisterProtocol installs handler for frames of type typ.
func (e *Engine) RegisterProtocol(typ uint16, handler ProtocolHandler) {
	e.Protocols.Register(typ, handler)
}

// RegisterInterface attaches iface to the device h resolves to.
func (e *Engine) RegisterInterface(h DeviceHandle, iface Interface) error {
	return e.Interfaces.Register(h, iface)
}

// GetInterface returns the interface of family on the device h resolves to.
func (e *Engine) GetInterface(h DeviceHandle, family Family) (Interface, bool) {
	return e.Interfaces.Get(h, family)
}
