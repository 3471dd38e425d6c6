package netcore

import (
	"fmt"
	"sync"
)

// Family identifies the protocol family an Interface belongs to.
type Family int

const (
	FamilyIP Family = iota
)

// Interface is implemented by every L3 interface variant a device can host.
// IPInterface is the only variant in scope for this module.
type Interface interface {
	Family() Family
}

// IPInterface is an IPv4 address bound to a device: a (unicast, netmask,
// broadcast) tuple giving the device an L3 identity. Callers must maintain
// the invariant broadcast == unicast | ^netmask; NewIPInterface enforces it.
type IPInterface struct {
	Unicast   uint32
	Netmask   uint32
	Broadcast uint32
}

// NewIPInterface builds an IPInterface from a unicast address and netmask,
// deriving the broadcast address.
func NewIPInterface(unicast, netmask uint32) IPInterface {
	return IPInterface{
		Unicast:   unicast,
		Netmask:   netmask,
		Broadcast: unicast | ^netmask,
	}
}

// Family implements Interface.
func (IPInterface) Family() Family { return FamilyIP }

// InterfaceHandle is a reference to an interface slot on a device, as
// returned by Device.AddInterface. It holds the owning Device value itself
// (not a DeviceHandle index) together with the slot and family; the global
// index in InterfaceTable records (DeviceHandle, slot, family) instead.
type InterfaceHandle struct {
	Device Device
	Slot   int
	Family Family
}

// interfaceTableEntry is the global IPv4-interface index record.
type interfaceTableEntry struct {
	dev    DeviceHandle
	slot   int
	family Family
}

// InterfaceTable is the global index of L3 interfaces across every
// registered device. Devices own their own interface slices; this table
// only records which (device, slot) pairs exist, so interface selection can
// scan every interface in the system without each device exposing a global
// lookup of its own.
type InterfaceTable struct {
	mu      sync.Mutex
	devices *DeviceTable
	entries []interfaceTableEntry
}

// NewInterfaceTable returns an interface table backed by devices.
func NewInterfaceTable(devices *DeviceTable) *InterfaceTable {
	return &InterfaceTable{devices: devices}
}

// Register attaches iface to the device h resolves to and records it in the
// global index. It rejects a second interface of the same family on the
// same device.
func (t *InterfaceTable) Register(h DeviceHandle, iface Interface) error {
	dev, err := t.devices.Resolve(h)
	if err != nil {
		return err
	}

	for _, existing := range dev.Interfaces() {
		if existing.Family() == iface.Family() {
			return wrap(ErrDuplicateInterfaceFamily, fmt.Sprintf("dev=%s family=%v", dev.Name(), iface.Family()))
		}
	}

	handle, err := dev.AddInterface(iface)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.entries = append(t.entries, interfaceTableEntry{dev: h, slot: handle.Slot, family: iface.Family()})
	t.mu.Unlock()
	return nil
}

// Get returns the first interface on the device h resolves to that matches
// family, or false if none does.
func (t *InterfaceTable) Get(h DeviceHandle, family Family) (Interface, bool) {
	dev, err := t.devices.Resolve(h)
	if err != nil {
		return nil, false
	}
	for _, iface := range dev.Interfaces() {
		if iface.Family() == family {
			return iface, true
		}
	}
	return nil, false
}

// IPInterfaceRef pairs an IPv4 interface with the device handle that owns
// it, for callers scanning every interface in the system (e.g. IPv4
// destination-address selection).
type IPInterfaceRef struct {
	Device DeviceHandle
	Iface  IPInterface
}

// AllIP returns every IPv4 interface registered on any device, in
// registration order.
func (t *InterfaceTable) AllIP() []IPInterfaceRef {
	t.mu.Lock()
	entries := append([]interfaceTableEntry(nil), t.entries...)
	t.mu.Unlock()

	out := make([]IPInterfaceRef, 0, len(entries))
	for _, e := range entries {
		if e.family != FamilyIP {
			continue
		}
		dev, err := t.devices.Resolve(e.dev)
		if err != nil {
			continue
		}
		ifaces := dev.Interfaces()
		if e.slot >= len(ifaces) {
			continue
		}
		if ip, ok := ifaces[e.slot].(IPInterface); ok {
			out = append(out, IPInterfaceRef{Device: e.dev, Iface: ip})
		}
	}
	return out
}
